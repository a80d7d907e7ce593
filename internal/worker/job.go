package worker

import (
	"time"

	"github.com/raoulx24/camrelay/internal/queue"
	"github.com/raoulx24/camrelay/internal/registry"
)

// Assignment is the work handed to a worker for one round.
type Assignment struct {
	Camera registry.Camera
	// Deadline is the aligned instant of the first capture. Zero captures as
	// soon as the page is ready (sequential rounds).
	Deadline time.Time
	// Once limits the assignment to a single capture (parallel rounds).
	Once bool
	// PhotoInterval separates captures inside the dwell window. Zero captures
	// back to back until the window closes.
	PhotoInterval  time.Duration
	CameraInterval time.Duration
	// End is the run window end; the dwell window never extends past it.
	End time.Time
	// Queue receives one descriptor per region image. Nil keeps the images on
	// disk without handing them to delivery.
	Queue *queue.Queue
}

// Result summarizes one assignment.
type Result struct {
	CameraID  string
	Captures  int
	Artifacts int
	// Err joins every iteration failure. A worker never aborts on the first.
	Err error
}
