package mailbox

import "sync"

// Mailbox is a single-slot buffer where the latest value always wins.
// It is NOT a queue. The watcher puts freshly parsed camera sets here and the
// run loop picks up at most one between rounds.
type Mailbox[T any] struct {
	mu    sync.Mutex
	value *T
}

// New creates an empty mailbox.
func New[T any]() *Mailbox[T] {
	return &Mailbox[T]{}
}

// Put stores v, replacing any value not yet taken. It never blocks.
func (m *Mailbox[T]) Put(v T) {
	m.mu.Lock()
	m.value = &v
	m.mu.Unlock()
}

// TryTake returns the pending value and clears the slot, or nil when empty.
// It never blocks.
func (m *Mailbox[T]) TryTake() *T {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := m.value
	m.value = nil
	return v
}

// Pending reports whether a value is waiting.
func (m *Mailbox[T]) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value != nil
}
