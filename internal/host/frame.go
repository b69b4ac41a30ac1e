// internal/host/frame.go

package host

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
)

// Frame runs requested callbacks on the next tick of a frame clock, the way
// animation-frame callbacks run once per display frame. Callbacks requested
// during a frame wait for the following one.
type Frame struct {
	clock   clock.Clock
	mu      sync.Mutex
	pending []func()
	count   atomic.Int64
	started atomic.Bool
	stopped sync.Once
	stop    chan struct{}
	done    chan struct{}
}

// NewFrame creates a frame host but does not start it.
func NewFrame(clk clock.Clock) *Frame {
	if clk == nil {
		clk = clock.New()
	}
	return &Frame{
		clock: clk,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Start begins emitting frames at the given interval. Only the first call
// has an effect.
func (f *Frame) Start(interval time.Duration) {
	if !f.started.CompareAndSwap(false, true) {
		return
	}
	ticker := f.clock.Ticker(interval)
	go func() {
		defer close(f.done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				f.count.Add(1)
				f.runFrame()
			case <-f.stop:
				return
			}
		}
	}()
}

func (f *Frame) runFrame() {
	f.mu.Lock()
	batch := f.pending
	f.pending = nil
	f.mu.Unlock()

	for _, fn := range batch {
		fn()
	}
}

// Stop signals the frame goroutine to exit and waits for it. It is safe to
// call more than once, and on a frame host that was never started.
func (f *Frame) Stop() {
	f.stopped.Do(func() {
		// A Start racing with Stop sees started already set and does nothing.
		if f.started.Swap(true) {
			close(f.stop)
			<-f.done
		}
	})
}

// Count returns the number of frames emitted so far.
func (f *Frame) Count() int64 {
	return f.count.Load()
}

// Pending returns the number of callbacks waiting for the next frame.
func (f *Frame) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.pending)
}

// RequestCallback queues fn for the next frame.
func (f *Frame) RequestCallback(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pending = append(f.pending, fn)
}
