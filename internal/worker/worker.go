// Package worker captures one camera for the duration of its dwell window:
// screenshot, crop into regions, hand the regions to delivery and drop the
// raw image.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/raoulx24/camrelay/internal/artifact"
	"github.com/raoulx24/camrelay/internal/capture"
	"github.com/raoulx24/camrelay/internal/clock"
	"github.com/raoulx24/camrelay/internal/crop"
	"github.com/raoulx24/camrelay/internal/fs"
	"github.com/raoulx24/camrelay/internal/logging"
	"github.com/raoulx24/camrelay/internal/registry"
)

// failurePause spaces retries after a failed capture when captures are
// otherwise back to back.
const failurePause = time.Second

// Worker holds the collaborators shared by every camera. It keeps no per-run
// state, so one Worker serves all goroutines of a round.
type Worker struct {
	capturer capture.Capturer
	cropper  crop.Cropper
	layout   artifact.Layout
	clock    clock.Clock
	fs       fs.FS
	log      logging.Logger
}

// New creates a worker. A nil filesystem uses the OS filesystem.
func New(c capture.Capturer, cr crop.Cropper, layout artifact.Layout, clk clock.Clock, filesystem fs.FS, log logging.Logger) *Worker {
	if filesystem == nil {
		filesystem = fs.New()
	}
	return &Worker{
		capturer: c,
		cropper:  cr,
		layout:   layout,
		clock:    clk,
		fs:       filesystem,
		log:      log.With("component", "worker"),
	}
}

// Prepare ensures the camera and date directories exist. Existing
// directories and their contents are left alone.
func (w *Worker) Prepare(cam registry.Camera, t time.Time) error {
	for _, dir := range []string{w.layout.CameraDir(cam.ID), w.layout.DayDir(cam.ID, t)} {
		if err := w.fs.MkdirAll(dir); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// Run executes the dwell loop for one camera. Failures end the iteration
// they happen in and are collected in the result; the loop goes on until the
// dwell window or the run window closes.
func (w *Worker) Run(ctx context.Context, a Assignment) Result {
	cam := a.Camera
	res := Result{CameraID: cam.ID}
	log := w.log.With("camera", cam.ID, "deadline", a.Deadline)

	window := clock.Window{Now: w.clock.Now(), End: a.End}
	dwellEnd := window.Now.Add(a.CameraInterval)
	if !a.End.IsZero() {
		dwellEnd = window.Earliest(dwellEnd)
	}

	var failures []error
	deadline := a.Deadline
	for {
		n, err := w.iterate(ctx, cam, deadline, a, log)
		res.Artifacts += n
		if err != nil {
			log.Error("capture iteration failed", "error", err)
			failures = append(failures, err)
		}
		if n > 0 || err == nil {
			res.Captures++
		}

		if a.Once {
			break
		}
		pause := a.PhotoInterval
		if pause <= 0 && err != nil {
			pause = failurePause
		}
		if err := w.clock.Sleep(ctx, pause); err != nil {
			failures = append(failures, err)
			break
		}
		if !w.clock.Now().Before(dwellEnd) {
			break
		}
		// Later captures in the same dwell are not aligned.
		deadline = time.Time{}
	}

	res.Err = errors.Join(failures...)
	log.Info("camera done", "captures", res.Captures, "artifacts", res.Artifacts)
	return res
}

// iterate captures, crops and enqueues once. It returns how many region
// images were produced.
func (w *Worker) iterate(ctx context.Context, cam registry.Camera, deadline time.Time, a Assignment, log logging.Logger) (int, error) {
	raw, err := w.capturer.Capture(ctx, capture.Request{
		Camera:   cam,
		Deadline: deadline,
		RawPath:  w.layout.RawPath(cam.ID),
	})
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := w.fs.Remove(ctx, raw); err != nil {
			log.Warn("removing raw screenshot failed", "path", raw, "error", err)
		}
	}()

	captured := deadline
	if captured.IsZero() {
		captured = w.clock.Now()
	}
	if err := w.fs.MkdirAll(w.layout.DayDir(cam.ID, captured)); err != nil {
		return 0, fmt.Errorf("creating day directory: %w", err)
	}

	base := w.layout.BaseName(cam.ID, captured)
	outputs, cropErr := w.cropper.Crop(raw, base, w.layout.Format, cam.Regions)
	for _, o := range outputs {
		if a.Queue != nil {
			a.Queue.Push(artifact.NewDescriptor(o.Path, cam.ID, o.Region, o.Alias, captured))
		}
		log.Debug("region written", "region", o.Region, "path", o.Path)
	}
	return len(outputs), cropErr
}
