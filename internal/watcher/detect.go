package watcher

import (
	"os"

	"github.com/raoulx24/camrelay/internal/registry"
)

// detect reloads the registry when the file changed and hands the resolved
// camera set to the run loop. An invalid file is logged and ignored; the
// current set stays in use.
func (w *Watcher) detect() {
	w.mu.RLock()
	path := w.path
	ids := append([]string(nil), w.cameras...)
	last := w.lastModTime
	lastSize := w.lastSize
	w.mu.RUnlock()

	info, err := os.Stat(path)
	if err != nil {
		w.log.Debug("registry not readable", "path", path, "error", err)
		return
	}

	mod := info.ModTime()
	if !mod.After(last) && info.Size() == lastSize {
		return
	}
	if !w.isStable() {
		w.log.Debug("registry still being written", "path", path)
		return
	}

	w.mu.Lock()
	w.lastModTime = mod
	w.lastSize = info.Size()
	w.mu.Unlock()

	reg, err := registry.Load(path)
	if err != nil {
		w.log.Warn("registry reload rejected", "path", path, "error", err)
		return
	}
	cams, err := reg.Resolve(ids)
	if err != nil {
		w.log.Warn("registry reload rejected", "path", path, "error", err)
		return
	}
	if w.check != nil {
		if err := w.check(cams); err != nil {
			w.log.Warn("registry reload rejected", "path", path, "error", err)
			return
		}
	}

	w.log.Info("registry reloaded", "path", path, "cameras", len(cams))
	w.mb.Put(cams)
}
