package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/raoulx24/camrelay/internal/artifact"
	"github.com/raoulx24/camrelay/internal/capture"
	"github.com/raoulx24/camrelay/internal/clock"
	"github.com/raoulx24/camrelay/internal/config"
	"github.com/raoulx24/camrelay/internal/delivery"
	"github.com/raoulx24/camrelay/internal/fs"
	"github.com/raoulx24/camrelay/internal/ledger"
	"github.com/raoulx24/camrelay/internal/logging"
	"github.com/raoulx24/camrelay/internal/mailbox"
	"github.com/raoulx24/camrelay/internal/registry"
	"github.com/raoulx24/camrelay/internal/retention"
	"github.com/raoulx24/camrelay/internal/round"
	"github.com/raoulx24/camrelay/internal/runner"
	"github.com/raoulx24/camrelay/internal/watcher"
	"github.com/raoulx24/camrelay/internal/worker"
)

const lockName = ".camrelay.lock"

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Capture the configured cameras until the run budget is spent",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			log, err := ctx.logger(cmd)
			if err != nil {
				return err
			}

			lock, err := acquireLock(cfg.Storage.Path)
			if err != nil {
				return err
			}
			defer func() { _ = lock.Unlock() }()

			_, cams, err := ctx.cameras()
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sum, err := runCapture(runCtx, cfg, cams, log)
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), sum)
		},
	}
}

// acquireLock refuses to start a second run on the same storage tree.
func acquireLock(storage string) (*flock.Flock, error) {
	if err := os.MkdirAll(storage, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	lock := flock.New(filepath.Join(storage, lockName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another camrelay run is already using %s", storage)
	}
	return lock, nil
}

// runCapture wires the capture pipeline and runs it to completion.
func runCapture(ctx context.Context, cfg *config.Config, cams []registry.Camera, log logging.Logger) (runner.Summary, error) {
	clk := clock.Real{Location: cfg.Location()}
	filesystem := fs.New()
	layout := artifact.Layout{Root: cfg.Storage.Path, Format: cfg.Capture.ImageFormat}

	capturer := capture.NewWebDriver(capture.OptionsFromConfig(cfg.Capture), clk, filesystem, log)
	w := worker.New(capturer, newCropper(), layout, clk, filesystem, log)
	coord := round.New(w, clk, cfg.Capture, log)

	var drainer runner.Drainer
	var check watcher.CheckFunc
	if cfg.Parallel() {
		d, closeLedger, err := newDrainer(ctx, cfg, filesystem, log)
		if err != nil {
			return runner.Summary{}, err
		}
		defer closeLedger()
		drainer = d
		check = round.CheckParallel
	}

	ret, err := retention.New(cfg, filesystem, log)
	if err != nil {
		return runner.Summary{}, err
	}

	reloads := mailbox.New[[]registry.Camera]()
	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	watch := watcher.New(cfg.Registry, log, reloads, check)
	go func() {
		if err := watch.Start(watchCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("registry watcher stopped", "error", err)
		}
	}()

	r := runner.New(runner.OptionsFromConfig(cfg), clk, coord, drainer, log).
		WithSweeper(ret).
		WithReloads(reloads)
	return r.Run(ctx, cams)
}

// newDrainer builds the configured uploader and, unless disabled, the
// delivery ledger. The returned func closes the ledger.
func newDrainer(ctx context.Context, cfg *config.Config, filesystem fs.FS, log logging.Logger) (*delivery.Drainer, func(), error) {
	uploader, err := delivery.NewUploader(ctx, cfg.Delivery)
	if err != nil {
		return nil, nil, err
	}
	store, err := openLedger(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		return delivery.NewDrainer(uploader, filesystem, nil, log), func() {}, nil
	}
	closeFn := func() {
		if err := store.Close(); err != nil {
			log.Warn("closing ledger failed", "error", err)
		}
	}
	return delivery.NewDrainer(uploader, filesystem, store, log), closeFn, nil
}

// openLedger returns nil when the ledger is disabled.
func openLedger(ctx context.Context, cfg *config.Config) (*ledger.Store, error) {
	if cfg.Delivery.Ledger.Driver == "none" {
		return nil, nil
	}
	store, err := ledger.Open(ctx, cfg.Delivery.Ledger, cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return store, nil
}

func printSummary(w io.Writer, sum runner.Summary) error {
	rows := [][]string{
		{"run", sum.RunID},
		{"started", sum.Started.Format(timeLayout)},
		{"ended", sum.Ended.Format(timeLayout)},
		{"rounds", fmt.Sprint(sum.Rounds)},
		{"captures", fmt.Sprint(sum.Captures)},
		{"artifacts", fmt.Sprint(sum.Artifacts)},
		{"failures", fmt.Sprint(sum.Failures)},
		{"delivered", fmt.Sprint(sum.Delivered)},
		{"retained", fmt.Sprint(sum.Retained)},
		{"reloads", fmt.Sprint(sum.Reloads)},
		{"interrupted", yesNo(sum.Interrupted)},
	}
	return writeTable(w, []string{"FIELD", "VALUE"}, rows, []columnAlignment{alignLeft, alignRight})
}

const timeLayout = "2006-01-02 15:04:05"

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
