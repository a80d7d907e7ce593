// Package clock computes aligned round deadlines and abstracts wall-clock
// reads and sleeps so the run loop can be driven by a fake in tests.
package clock

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Clock reads the current time and blocks for a duration.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done. Non-positive durations
	// return immediately.
	Sleep(ctx context.Context, d time.Duration) error
}

// Real is the wall clock in a fixed location.
type Real struct {
	Location *time.Location
}

func (r Real) Now() time.Time {
	if r.Location == nil {
		return time.Now()
	}
	return time.Now().In(r.Location)
}

func (Real) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Schedule returns the cron schedule firing on every minute divisible by
// multiple.
func Schedule(multiple int) (cron.Schedule, error) {
	if multiple < 1 || multiple > 60 {
		return nil, fmt.Errorf("alignment multiple must be between 1 and 60, got %d", multiple)
	}
	return cron.ParseStandard(fmt.Sprintf("*/%d * * * *", multiple))
}

// NextAlignedDeadline returns the first instant strictly after now whose
// minute is divisible by multiple, with seconds and sub-seconds zeroed. When
// now sits exactly on a boundary the following boundary is returned, so a
// round never starts with no time to spin up workers.
func NextAlignedDeadline(now time.Time, multiple int) (time.Time, error) {
	sched, err := Schedule(multiple)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(now), nil
}

// Interval is the signed time from now until deadline.
func Interval(now, deadline time.Time) time.Duration {
	return deadline.Sub(now)
}

// SleepFor is how long the coordinator should sleep before a round: the
// interval minus the startup overhead, never negative.
func SleepFor(now, deadline time.Time, overhead time.Duration) time.Duration {
	d := Interval(now, deadline) - overhead
	if d < 0 {
		return 0
	}
	return d
}

// Window bounds a run. End is fixed when the run starts.
type Window struct {
	Now time.Time
	End time.Time
}

// Expired reports whether the run budget is exhausted.
func (w Window) Expired() bool {
	return !w.Now.Before(w.End)
}

// Earliest returns the sooner of t and the window end.
func (w Window) Earliest(t time.Time) time.Time {
	if t.Before(w.End) {
		return t
	}
	return w.End
}
