// Package watcher monitors the camera registry file and publishes reloaded
// camera sets to the run loop.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/raoulx24/camrelay/internal/config"
	"github.com/raoulx24/camrelay/internal/fsprobe"
	"github.com/raoulx24/camrelay/internal/logging"
	"github.com/raoulx24/camrelay/internal/mailbox"
	"github.com/raoulx24/camrelay/internal/registry"
)

// CheckFunc vets a reloaded camera set before it is published.
type CheckFunc func([]registry.Camera) error

// Watcher observes the registry file and puts every valid new camera set in
// the mailbox. The run loop applies it between rounds.
type Watcher struct {
	mu sync.RWMutex

	path      string
	cameras   []string
	interval  time.Duration
	mode      string
	debounce  time.Duration
	stability time.Duration

	log   logging.Logger
	check CheckFunc

	lastModTime time.Time
	lastSize    int64

	mb *mailbox.Mailbox[[]registry.Camera]
}

// New creates a watcher for the registry section. The file as it is now is
// taken as already loaded.
func New(cfg config.RegistryConfig, log logging.Logger, mb *mailbox.Mailbox[[]registry.Camera], check CheckFunc) *Watcher {
	w := &Watcher{
		path:      cfg.Path,
		cameras:   append([]string(nil), cfg.Cameras...),
		interval:  cfg.Watch.PollInterval,
		mode:      cfg.Watch.Mode,
		debounce:  cfg.Watch.DebounceWindow,
		stability: cfg.Watch.StabilityWindow,
		log:       log.With("component", "watcher"),
		check:     check,
		mb:        mb,
	}
	if info, err := os.Stat(cfg.Path); err == nil {
		w.lastModTime = info.ModTime()
		w.lastSize = info.Size()
	}
	return w
}

// Start chooses the watching strategy from config and blocks until ctx is
// done. Mode "off" returns immediately.
func (w *Watcher) Start(ctx context.Context) error {
	switch w.mode {
	case "off":
		w.log.Info("registry watching disabled")
		return nil

	case "fsnotify":
		return w.StartFsNotify(ctx)

	case "poll":
		w.StartPolling(ctx)
		return nil

	case "auto":
		res := fsprobe.Probe(filepath.Dir(w.path), fsprobe.DefaultTimeout)
		if res.FsnotifySupported {
			return w.StartFsNotify(ctx)
		}
		w.log.Warn("fsnotify disabled, polling registry", "reason", res.Reason, "interval", w.interval)
		w.StartPolling(ctx)
		return nil

	default:
		return fmt.Errorf("unknown watch mode %q", w.mode)
	}
}
