package watcher

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// StartFsNotify reloads the registry once events for it have been quiet for
// the debounce window. The parent directory is watched so editors that
// replace the file by rename are still seen.
func (w *Watcher) StartFsNotify(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	w.mu.RLock()
	path := w.path
	debounce := w.debounce
	w.mu.RUnlock()

	if err := fw.Add(filepath.Dir(path)); err != nil {
		return err
	}
	w.log.Info("watching registry", "path", path)

	// armed by the first event
	quiet := time.NewTimer(debounce)
	quiet.Stop()
	defer quiet.Stop()

	base := filepath.Base(path)
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				w.log.Error("events channel closed")
				return nil
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			w.log.Debug("registry event", "name", ev.Name, "op", ev.Op)
			quiet.Reset(debounce)

		case <-quiet.C:
			w.safeDetect()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("fsnotify error", "error", err)
		}
	}
}

// safeDetect keeps a panicking reload from taking the watcher down.
func (w *Watcher) safeDetect() {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("detect panic", "panic", r)
		}
	}()
	w.detect()
}
