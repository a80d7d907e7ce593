// Package retention keeps the storage tree tidy. It removes per-date
// directories that have been emptied by delivery and lists region images
// still waiting on disk. It never deletes an image.
package retention

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/raoulx24/camrelay/internal/artifact"
	"github.com/raoulx24/camrelay/internal/config"
	cfs "github.com/raoulx24/camrelay/internal/fs"
	"github.com/raoulx24/camrelay/internal/logging"
)

type Engine struct {
	layout   artifact.Layout
	loc      *time.Location
	fs       cfs.FS
	enabled  bool
	schedule cron.Schedule
	next     time.Time
	log      logging.Logger
}

// New builds an engine from the storage and retention sections.
func New(cfg *config.Config, filesystem cfs.FS, log logging.Logger) (*Engine, error) {
	if filesystem == nil {
		filesystem = cfs.New()
	}
	e := &Engine{
		layout:  artifact.Layout{Root: cfg.Storage.Path, Format: cfg.Capture.ImageFormat},
		loc:     cfg.Location(),
		fs:      filesystem,
		enabled: cfg.Retention.Enabled,
		log:     log.With("component", "retention"),
	}
	if e.enabled {
		sched, err := cron.ParseStandard(cfg.Retention.Schedule)
		if err != nil {
			return nil, fmt.Errorf("retention schedule %q: %w", cfg.Retention.Schedule, err)
		}
		e.schedule = sched
	}
	return e, nil
}

// MaybeSweep sweeps when the schedule is due. The first call always sweeps.
// It is called between rounds, so a sweep never races a worker.
func (e *Engine) MaybeSweep(ctx context.Context, now time.Time) int {
	if !e.enabled {
		return 0
	}
	if !e.next.IsZero() && now.Before(e.next) {
		return 0
	}
	e.next = e.schedule.Next(now)

	removed, err := e.Sweep(ctx, now)
	if err != nil {
		e.log.Warn("sweep incomplete", "error", err)
	}
	if removed > 0 {
		e.log.Info("removed empty date directories", "count", removed, "next", e.next)
	}
	return removed
}

// Sweep removes empty date directories dated before the day of now.
func (e *Engine) Sweep(ctx context.Context, now time.Time) (int, error) {
	today := now.In(e.loc).Format(artifact.DateLayout)

	days, err := e.dayDirs()
	if err != nil {
		return 0, err
	}

	var (
		removed  int
		failures []error
	)
	for _, d := range days {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if d.date >= today {
			continue
		}
		ok, err := e.fs.RemoveEmptyDir(d.path)
		if err != nil {
			failures = append(failures, err)
			continue
		}
		if ok {
			removed++
			e.log.Debug("removed empty directory", "path", d.path)
		}
	}
	return removed, errors.Join(failures...)
}

// Found is a region image still on disk.
type Found struct {
	File   artifact.File
	Parsed artifact.Parsed
}

// Scan lists every region image under the storage root, oldest capture
// first. Raw screenshots and foreign files are ignored.
func (e *Engine) Scan() ([]Found, error) {
	days, err := e.dayDirs()
	if err != nil {
		return nil, err
	}

	var out []Found
	for _, d := range days {
		entries, err := e.fs.ReadDir(d.path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", d.path, err)
		}
		for _, ent := range entries {
			if ent.IsDir() {
				continue
			}
			parsed, ok := e.layout.ParseName(ent.Name(), e.loc)
			if !ok {
				continue
			}
			info, err := ent.Info()
			if err != nil {
				continue
			}
			out = append(out, Found{
				File:   artifact.FromFileInfo(filepath.Join(d.path, ent.Name()), info),
				Parsed: parsed,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Parsed.Captured.Equal(out[j].Parsed.Captured) {
			return out[i].Parsed.Captured.Before(out[j].Parsed.Captured)
		}
		return out[i].File.Path < out[j].File.Path
	})
	return out, nil
}

type dayDir struct {
	camera string
	date   string
	path   string
}

// dayDirs finds <root>/<camera>/<YYYY-MM-DD> directories.
func (e *Engine) dayDirs() ([]dayDir, error) {
	cameras, err := e.fs.ReadDir(e.layout.Root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading storage root: %w", err)
	}

	var out []dayDir
	for _, cam := range cameras {
		if !cam.IsDir() {
			continue
		}
		camDir := e.layout.CameraDir(cam.Name())
		entries, err := e.fs.ReadDir(camDir)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", camDir, err)
		}
		for _, ent := range entries {
			if !ent.IsDir() {
				continue
			}
			if _, err := time.Parse(artifact.DateLayout, ent.Name()); err != nil {
				continue
			}
			out = append(out, dayDir{camera: cam.Name(), date: ent.Name(), path: filepath.Join(camDir, ent.Name())})
		}
	}
	return out, nil
}
