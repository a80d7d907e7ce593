package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/raoulx24/camrelay/internal/artifact"
	"github.com/raoulx24/camrelay/internal/config"
	"github.com/raoulx24/camrelay/internal/fs"
	"github.com/raoulx24/camrelay/internal/logging"
	"github.com/raoulx24/camrelay/internal/registry"
	"github.com/raoulx24/camrelay/internal/retention"
)

func newRetainedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retained",
		Short: "List region images still waiting on disk for delivery",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			log, err := ctx.logger(cmd)
			if err != nil {
				return err
			}

			found, err := scanRetained(cfg, log)
			if err != nil {
				return err
			}
			lastErrors := retainedErrors(cmd.Context(), cfg, log)

			rows := make([][]string, 0, len(found))
			for _, f := range found {
				rows = append(rows, []string{
					f.Parsed.CameraID,
					f.Parsed.Region,
					f.Parsed.Captured.Format(timeLayout),
					fmt.Sprint(f.File.Size),
					f.File.Path,
					lastErrors[f.File.Path],
				})
			}
			return writeTable(cmd.OutOrStdout(), []string{"CAMERA", "REGION", "CAPTURED", "BYTES", "FILE", "LAST ERROR"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight})
		},
	}
}

func newRedeliverCommand(ctx *commandContext) *cobra.Command {
	var camera string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "redeliver",
		Short: "Upload retained region images and delete the confirmed ones",
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

			reg, err := registry.Load(cfg.Registry.Path)
			if err != nil {
				return err
			}
			found, err := scanRetained(cfg, log)
			if err != nil {
				return err
			}
			descs := retainedDescriptors(found, reg, camera)

			out := cmd.OutOrStdout()
			if dryRun || len(descs) == 0 {
				rows := make([][]string, 0, len(descs))
				for _, d := range descs {
					rows = append(rows, []string{d.CameraAlias, d.CaptureDate, d.CaptureTime, d.FilePath})
				}
				if err := writeTable(out, []string{"ALIAS", "DATE", "TIME", "FILE"}, rows, nil); err != nil {
					return err
				}
				_, err := fmt.Fprintf(out, "%d file(s) would be redelivered\n", len(descs))
				return err
			}

			drainer, closeLedger, err := newDrainer(cmd.Context(), cfg, fs.New(), log)
			if err != nil {
				return err
			}
			defer closeLedger()

			stats := drainer.Redeliver(cmd.Context(), descs, uuid.NewString())
			_, err = fmt.Fprintf(out, "delivered %d, retained %d\n", stats.Delivered, stats.Retained)
			return err
		},
	}
	cmd.Flags().StringVar(&camera, "camera", "", "Only redeliver images of this camera")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List what would be uploaded without uploading")
	return cmd
}

func scanRetained(cfg *config.Config, log logging.Logger) ([]retention.Found, error) {
	engine, err := retention.New(cfg, fs.New(), log)
	if err != nil {
		return nil, err
	}
	return engine.Scan()
}

// retainedDescriptors rebuilds delivery descriptors from file names. Aliases
// come from the registry; a camera no longer in it falls back to the region
// name.
func retainedDescriptors(found []retention.Found, reg *registry.Registry, camera string) []artifact.Descriptor {
	descs := make([]artifact.Descriptor, 0, len(found))
	for _, f := range found {
		if camera != "" && f.Parsed.CameraID != camera {
			continue
		}
		alias := ""
		if cam, ok := reg.Get(f.Parsed.CameraID); ok {
			alias = cam.Alias(f.Parsed.Region)
		}
		descs = append(descs, artifact.NewDescriptor(f.File.Path, f.Parsed.CameraID, f.Parsed.Region, alias, f.Parsed.Captured))
	}
	return descs
}

// retainedErrors maps file paths to the error of their last failed delivery.
// The listing still works when the ledger is disabled or unreadable.
func retainedErrors(ctx context.Context, cfg *config.Config, log logging.Logger) map[string]string {
	out := map[string]string{}
	store, err := openLedger(ctx, cfg)
	if err != nil {
		log.Warn("ledger unavailable", "error", err)
		return out
	}
	if store == nil {
		return out
	}
	defer store.Close()

	entries, err := store.Retained(ctx)
	if err != nil {
		log.Warn("reading retained entries failed", "error", err)
		return out
	}
	for _, e := range entries {
		out[e.FilePath] = e.Error
	}
	return out
}
