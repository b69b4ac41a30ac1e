package host

import (
	"context"
	"sync"

	zerr "coopsched/errors"
	"coopsched/internal/log"
)

// Loop is a message-passing loopback host. A single goroutine, the one
// calling [Loop.Run], executes posted callbacks in FIFO order. Callbacks
// posted while a batch runs wait for the next batch, so work posted from
// other goroutines interleaves with scheduler turns.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	closed bool
	wake   chan struct{}
	stop   chan struct{}
	log    log.Logger
}

// NewLoop creates a loop host. It does nothing until Run is called.
func NewLoop(logger log.Logger) *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
		log:  logger.Component("host"),
	}
}

// RequestCallback posts fn to the loop.
func (l *Loop) RequestCallback(fn func()) {
	if err := l.Post(fn); err != nil {
		l.log.Warn().Err(err).Msg("host: dropping callback, work loop will stall")
	}
}

// Post queues fn to run on the loop goroutine. It is how other goroutines
// marshal work, such as scheduling calls, onto the loop.
func (l *Loop) Post(fn func()) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return zerr.ErrHostClosed
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// Run executes callbacks until ctx is done or Close is called. Callbacks
// still queued at that point are discarded.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, fn := range batch {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fn()
		}

		if len(batch) > 0 {
			continue
		}

		select {
		case <-l.wake:
		case <-l.stop:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops the loop and rejects further callbacks.
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true
	l.queue = nil
	close(l.stop)
}
