// Package queue is the per-round result queue between capture workers and the
// drainer.
package queue

import (
	"sync"

	"github.com/raoulx24/camrelay/internal/artifact"
)

// Queue is an unbounded FIFO of artifact descriptors. Push never blocks and
// is safe from many producers; TryPop is used by the single drainer once all
// producers have finished.
type Queue struct {
	mu    sync.Mutex
	items []artifact.Descriptor
}

func New() *Queue {
	return &Queue{}
}

func (q *Queue) Push(d artifact.Descriptor) {
	q.mu.Lock()
	q.items = append(q.items, d)
	q.mu.Unlock()
}

// TryPop removes the oldest descriptor. ok is false when the queue is empty;
// that is the end-of-drain signal, not an error.
func (q *Queue) TryPop() (d artifact.Descriptor, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return artifact.Descriptor{}, false
	}
	d = q.items[0]
	q.items[0] = artifact.Descriptor{}
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return d, true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
