package runner

import (
	"time"

	"github.com/raoulx24/camrelay/internal/clock"
	"github.com/raoulx24/camrelay/internal/queue"
	"github.com/raoulx24/camrelay/internal/registry"
)

// State is a phase of the run loop.
type State int

const (
	Idle State = iota
	Aligning
	RoundRunning
	Draining
	Sleeping
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Aligning:
		return "aligning"
	case RoundRunning:
		return "round-running"
	case Draining:
		return "draining"
	case Sleeping:
		return "sleeping"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// RunState is threaded through every transition of the loop. Each step
// returns an updated copy.
type RunState struct {
	State    State
	Round    int
	Deadline time.Time
	Cursor   int
	Window   clock.Window
	Cameras  []registry.Camera

	pending *queue.Queue
}

func (s RunState) to(next State) RunState {
	s.State = next
	return s
}
