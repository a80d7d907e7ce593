// Package round runs a single scheduling cycle: every camera at once in
// parallel mode, or the next camera of the rotation in sequential mode.
package round

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/raoulx24/camrelay/internal/clock"
	"github.com/raoulx24/camrelay/internal/config"
	"github.com/raoulx24/camrelay/internal/errs"
	"github.com/raoulx24/camrelay/internal/logging"
	"github.com/raoulx24/camrelay/internal/queue"
	"github.com/raoulx24/camrelay/internal/registry"
	"github.com/raoulx24/camrelay/internal/worker"
)

// CameraWorker is what the coordinator needs from a worker.
type CameraWorker interface {
	Prepare(cam registry.Camera, t time.Time) error
	Run(ctx context.Context, a worker.Assignment) worker.Result
}

// Coordinator fans a round out to workers and joins them.
type Coordinator struct {
	worker         CameraWorker
	clock          clock.Clock
	log            logging.Logger
	photoInterval  time.Duration
	cameraInterval time.Duration
}

// New creates a coordinator with the dwell parameters of the run.
func New(w CameraWorker, clk clock.Clock, capCfg config.CaptureConfig, log logging.Logger) *Coordinator {
	return &Coordinator{
		worker:         w,
		clock:          clk,
		log:            log.With("component", "round"),
		photoInterval:  capCfg.PhotoInterval,
		cameraInterval: capCfg.CameraInterval,
	}
}

// Outcome is what a parallel round leaves for the drainer.
type Outcome struct {
	Deadline time.Time
	Results  []worker.Result
	Queue    *queue.Queue
}

// Failed counts cameras whose assignment reported an error.
func (o Outcome) Failed() int {
	n := 0
	for _, r := range o.Results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// CheckParallel rejects camera sets the parallel protocol cannot serve.
func CheckParallel(cams []registry.Camera) error {
	if len(cams) == 0 {
		return errs.Configf("no cameras to capture")
	}
	if len(cams) > config.MaxParallelCameras {
		return errs.Configf("parallel mode supports at most %d cameras, got %d", config.MaxParallelCameras, len(cams))
	}
	return nil
}

// RunParallel captures every camera concurrently for deadline and blocks
// until all of them finish. One camera failing never stops the others.
func (c *Coordinator) RunParallel(ctx context.Context, cams []registry.Camera, deadline time.Time, window clock.Window) (Outcome, error) {
	if err := CheckParallel(cams); err != nil {
		return Outcome{}, err
	}

	out := Outcome{
		Deadline: deadline,
		Results:  make([]worker.Result, len(cams)),
		Queue:    queue.New(),
	}
	log := c.log.With("deadline", deadline)
	log.Info("round starting", "cameras", len(cams))

	var wg sync.WaitGroup
	for i, cam := range cams {
		if err := c.worker.Prepare(cam, deadline); err != nil {
			log.Error("preparing camera directories failed", "camera", cam.ID, "error", err)
			out.Results[i] = worker.Result{CameraID: cam.ID, Err: err}
			continue
		}

		wg.Add(1)
		go func(i int, cam registry.Camera) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Error("worker panicked", "camera", cam.ID, "panic", r)
					out.Results[i] = worker.Result{CameraID: cam.ID, Err: fmt.Errorf("worker panic: %v", r)}
				}
			}()
			out.Results[i] = c.worker.Run(ctx, worker.Assignment{
				Camera:         cam,
				Deadline:       deadline,
				Once:           true,
				CameraInterval: c.cameraInterval,
				End:            window.End,
				Queue:          out.Queue,
			})
		}(i, cam)
	}
	wg.Wait()

	log.Info("round joined", "queued", out.Queue.Len(), "failed", out.Failed())
	return out, nil
}

// RunSequential captures the camera at cursor and returns the cursor of the
// next camera. The cursor advances whether or not the capture succeeded.
func (c *Coordinator) RunSequential(ctx context.Context, cams []registry.Camera, cursor int, window clock.Window) (worker.Result, int, error) {
	if len(cams) == 0 {
		return worker.Result{}, cursor, errs.Configf("no cameras to capture")
	}
	cursor = Normalize(cursor, len(cams))
	cam := cams[cursor]
	next := Advance(cursor, len(cams))

	now := c.clock.Now()
	if err := c.worker.Prepare(cam, now); err != nil {
		c.log.Error("preparing camera directories failed", "camera", cam.ID, "error", err)
		return worker.Result{CameraID: cam.ID, Err: err}, next, nil
	}

	res := c.worker.Run(ctx, worker.Assignment{
		Camera:         cam,
		PhotoInterval:  c.photoInterval,
		CameraInterval: c.cameraInterval,
		End:            window.End,
	})

	// A turn lasts the whole dwell window even when the captures finished
	// early or failed fast, so a broken hub cannot spin the rotation.
	turnEnd := window.Earliest(now.Add(c.cameraInterval))
	if err := c.clock.Sleep(ctx, clock.Interval(c.clock.Now(), turnEnd)); err != nil {
		return res, next, err
	}
	return res, next, nil
}

// Advance moves a round-robin cursor by one, wrapping at n.
func Advance(cursor, n int) int {
	if n <= 0 {
		return 0
	}
	return (Normalize(cursor, n) + 1) % n
}

// Normalize maps any cursor into [0, n). A camera set that shrank on reload
// can leave the cursor out of range.
func Normalize(cursor, n int) int {
	if n <= 0 {
		return 0
	}
	cursor %= n
	if cursor < 0 {
		cursor += n
	}
	return cursor
}
