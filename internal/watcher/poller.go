package watcher

import (
	"context"
	"time"
)

// StartPolling stats the registry every poll interval until ctx is done.
func (w *Watcher) StartPolling(ctx context.Context) {
	w.mu.RLock()
	interval := w.interval
	w.mu.RUnlock()

	w.log.Info("polling registry", "path", w.path, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.safeDetect()
		}
	}
}
