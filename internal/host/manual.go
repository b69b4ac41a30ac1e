package host

import "sync"

// Manual is a headless host: requested callbacks wait in a FIFO run queue
// until the owner turns the loop with [Manual.Tick] or [Manual.Drain].
type Manual struct {
	mu    sync.Mutex
	queue []func()
	turns int
}

// NewManual creates an empty manual host.
func NewManual() *Manual {
	return &Manual{}
}

// RequestCallback queues fn for a later turn.
func (m *Manual) RequestCallback(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queue = append(m.queue, fn)
}

// Pending returns the number of queued callbacks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.queue)
}

// Turns returns how many callbacks have been run.
func (m *Manual) Turns() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.turns
}

// Tick runs the oldest queued callback, reporting false if there was none.
func (m *Manual) Tick() bool {
	m.mu.Lock()
	if len(m.queue) == 0 {
		m.mu.Unlock()
		return false
	}
	fn := m.queue[0]
	m.queue[0] = nil
	m.queue = m.queue[1:]
	m.turns++
	m.mu.Unlock()

	fn()
	return true
}

// Drain turns the loop until the run queue is empty or max callbacks have
// run. A non-positive max means no limit. It returns the number run.
func (m *Manual) Drain(max int) int {
	n := 0
	for max <= 0 || n < max {
		if !m.Tick() {
			break
		}
		n++
	}
	return n
}
