// Package runner drives a whole run: it aligns rounds on the clock, runs them
// through the coordinator, drains their queues and stops once the run budget
// is spent.
package runner

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/raoulx24/camrelay/internal/clock"
	"github.com/raoulx24/camrelay/internal/config"
	"github.com/raoulx24/camrelay/internal/delivery"
	"github.com/raoulx24/camrelay/internal/logging"
	"github.com/raoulx24/camrelay/internal/mailbox"
	"github.com/raoulx24/camrelay/internal/queue"
	"github.com/raoulx24/camrelay/internal/registry"
	"github.com/raoulx24/camrelay/internal/round"
	"github.com/raoulx24/camrelay/internal/worker"
)

// Coordinator runs single rounds. *round.Coordinator satisfies it.
type Coordinator interface {
	RunParallel(ctx context.Context, cams []registry.Camera, deadline time.Time, window clock.Window) (round.Outcome, error)
	RunSequential(ctx context.Context, cams []registry.Camera, cursor int, window clock.Window) (worker.Result, int, error)
}

// Drainer empties a round's queue. *delivery.Drainer satisfies it.
type Drainer interface {
	Drain(ctx context.Context, q *queue.Queue, info delivery.RoundInfo) delivery.Stats
}

// Sweeper does housekeeping between rounds. *retention.Engine satisfies it.
type Sweeper interface {
	MaybeSweep(ctx context.Context, now time.Time) int
}

// Options are the run-level settings.
type Options struct {
	Parallel         bool
	MaxRunTime       time.Duration
	AlignmentMinutes int
	StartupOverhead  time.Duration
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Parallel:         cfg.Parallel(),
		MaxRunTime:       cfg.Run.MaxRunTime,
		AlignmentMinutes: cfg.Run.AlignmentMinutes,
		StartupOverhead:  cfg.Run.StartupOverhead,
	}
}

// Summary is what a finished run reports.
type Summary struct {
	RunID       string
	Started     time.Time
	Ended       time.Time
	Rounds      int
	Captures    int
	Artifacts   int
	Failures    int
	Delivered   int
	Retained    int
	Reloads     int
	Interrupted bool
}

// Runner owns the run loop. It is not safe to call Run concurrently.
type Runner struct {
	opts    Options
	clock   clock.Clock
	coord   Coordinator
	drainer Drainer
	sweeper Sweeper
	reloads *mailbox.Mailbox[[]registry.Camera]
	runID   string
	log     logging.Logger
}

// New creates a runner. drainer may be nil in sequential mode.
func New(opts Options, clk clock.Clock, coord Coordinator, drainer Drainer, log logging.Logger) *Runner {
	return &Runner{
		opts:    opts,
		clock:   clk,
		coord:   coord,
		drainer: drainer,
		runID:   uuid.NewString(),
		log:     log,
	}
}

func (r *Runner) WithSweeper(s Sweeper) *Runner {
	r.sweeper = s
	return r
}

// WithReloads makes the runner pick up camera sets published by the
// registry watcher between rounds.
func (r *Runner) WithReloads(mb *mailbox.Mailbox[[]registry.Camera]) *Runner {
	r.reloads = mb
	return r
}

func (r *Runner) WithRunID(id string) *Runner {
	r.runID = id
	return r
}

func (r *Runner) RunID() string {
	return r.runID
}

// Run executes rounds until the run budget is exhausted or ctx is cancelled.
// Cancellation is honoured between rounds and during inter-round sleeps; a
// round in progress always completes, including its drain.
func (r *Runner) Run(ctx context.Context, cams []registry.Camera) (Summary, error) {
	log := r.log.With("run", r.runID)

	start := r.clock.Now()
	st := RunState{
		State:   Idle,
		Window:  clock.Window{Now: start, End: start.Add(r.opts.MaxRunTime)},
		Cameras: cams,
	}
	sum := Summary{RunID: r.runID, Started: start}

	if r.opts.Parallel {
		if err := round.CheckParallel(cams); err != nil {
			return sum, err
		}
		if r.drainer == nil {
			return sum, errors.New("parallel mode needs a drainer")
		}
	} else if len(cams) == 0 {
		return sum, round.CheckParallel(cams)
	}

	log.Info("run starting",
		"mode", modeName(r.opts.Parallel),
		"cameras", len(cams),
		"end", st.Window.End,
	)

	// Rounds run to completion once started.
	roundCtx := context.WithoutCancel(ctx)

	var err error
	for st.State != Terminated {
		st, err = r.step(ctx, roundCtx, st, &sum, log)
		if err != nil {
			sum.Ended = r.clock.Now()
			return sum, err
		}
	}

	sum.Ended = r.clock.Now()
	log.Info("run finished",
		"rounds", sum.Rounds,
		"captures", sum.Captures,
		"delivered", sum.Delivered,
		"retained", sum.Retained,
		"interrupted", sum.Interrupted,
	)
	return sum, nil
}

// step performs one state transition and returns the next state.
func (r *Runner) step(ctx, roundCtx context.Context, st RunState, sum *Summary, log logging.Logger) (RunState, error) {
	switch st.State {
	case Idle:
		if st.Window.Expired() {
			log.Info("run budget is zero, nothing to do")
			return st.to(Terminated), nil
		}
		if r.opts.Parallel {
			return st.to(Aligning), nil
		}
		return st.to(RoundRunning), nil

	case Aligning:
		now := r.clock.Now()
		deadline, err := r.nextDeadline(now, st)
		if err != nil {
			return st, err
		}
		st.Deadline = deadline

		wait := clock.SleepFor(now, deadline, r.opts.StartupOverhead)
		log.Debug("aligning", "deadline", deadline, "sleep", wait)
		if err := r.clock.Sleep(ctx, wait); err != nil {
			sum.Interrupted = true
			return st.to(Terminated), nil
		}
		return st.to(RoundRunning), nil

	case RoundRunning:
		st = r.applyReload(st, sum, log)
		st.Round++
		st.Window.Now = r.clock.Now()

		if r.opts.Parallel {
			out, err := r.coord.RunParallel(roundCtx, st.Cameras, st.Deadline, st.Window)
			if err != nil {
				return st, err
			}
			r.tally(sum, out.Results...)
			st.pending = out.Queue
			return st.to(Draining), nil
		}

		res, next, err := r.coord.RunSequential(roundCtx, st.Cameras, st.Cursor, st.Window)
		if err != nil {
			return st, err
		}
		r.tally(sum, res)
		st.Cursor = next
		return st.to(Sleeping), nil

	case Draining:
		stats := r.drainer.Drain(roundCtx, st.pending, delivery.RoundInfo{RunID: r.runID, Deadline: st.Deadline})
		st.pending = nil
		sum.Delivered += stats.Delivered
		sum.Retained += stats.Retained
		return st.to(Sleeping), nil

	case Sleeping:
		sum.Rounds = st.Round
		now := r.clock.Now()
		if r.sweeper != nil {
			r.sweeper.MaybeSweep(roundCtx, now)
		}
		st.Window.Now = now
		if st.Window.Expired() {
			return st.to(Terminated), nil
		}
		if ctx.Err() != nil {
			sum.Interrupted = true
			return st.to(Terminated), nil
		}
		if r.opts.Parallel {
			return st.to(Aligning), nil
		}
		return st.to(RoundRunning), nil
	}
	return st.to(Terminated), nil
}

// nextDeadline aligns the first round on the clock and spaces later rounds
// by the alignment interval. A round that overran its successor's slot
// realigns from now instead of starting late.
func (r *Runner) nextDeadline(now time.Time, st RunState) (time.Time, error) {
	if !st.Deadline.IsZero() {
		next := st.Deadline.Add(time.Duration(r.opts.AlignmentMinutes) * time.Minute)
		if next.After(now) {
			return next, nil
		}
	}
	return clock.NextAlignedDeadline(now, r.opts.AlignmentMinutes)
}

func (r *Runner) applyReload(st RunState, sum *Summary, log logging.Logger) RunState {
	if r.reloads == nil {
		return st
	}
	cams := r.reloads.TryTake()
	if cams == nil {
		return st
	}
	if r.opts.Parallel {
		if err := round.CheckParallel(*cams); err != nil {
			log.Warn("ignoring reloaded camera set", "error", err)
			return st
		}
	} else if len(*cams) == 0 {
		log.Warn("ignoring empty reloaded camera set")
		return st
	}

	st.Cameras = *cams
	st.Cursor = round.Normalize(st.Cursor, len(st.Cameras))
	sum.Reloads++
	log.Info("camera set reloaded", "cameras", len(st.Cameras))
	return st
}

func (r *Runner) tally(sum *Summary, results ...worker.Result) {
	for _, res := range results {
		sum.Captures += res.Captures
		sum.Artifacts += res.Artifacts
		if res.Err != nil {
			sum.Failures++
		}
	}
}

func modeName(parallel bool) string {
	if parallel {
		return config.JobParallel
	}
	return config.JobSequential
}
