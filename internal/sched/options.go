package sched

import (
	"time"

	"coopsched/internal/log"
)

// DefaultTimeSlice is how long the work loop runs before yielding to the host.
const DefaultTimeSlice = 5 * time.Millisecond

// ErrorHandler observes task callback failures.
type ErrorHandler func(err error, task *Task)

// Options holds configuration options for the [Scheduler].
type Options struct {
	TimeSlice    time.Duration
	Timeouts     TimeoutPolicy
	Clock        Clock
	Logger       log.Logger
	ErrorHandler ErrorHandler
	Observers    []Observer
}

// Option is a function that configures [Options].
type Option func(*Options)

// WithTimeSlice sets the work loop budget per host turn. Non-positive values
// are ignored.
func WithTimeSlice(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.TimeSlice = d
		}
	}
}

// WithTimeouts sets the priority timeout policy. Callers should
// [TimeoutPolicy.Validate] it first.
func WithTimeouts(tp TimeoutPolicy) Option {
	return func(o *Options) {
		o.Timeouts = tp
	}
}

// WithClock sets the time source for expiration times and deadlines.
func WithClock(c Clock) Option {
	return func(o *Options) {
		if c != nil {
			o.Clock = c
		}
	}
}

// WithLogger sets the logger, which is also the default sink for task errors.
func WithLogger(l log.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithErrorHandler sets the task error hook.
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *Options) {
		o.ErrorHandler = h
	}
}

// WithObserver adds an event observer. It may be given more than once.
func WithObserver(obs Observer) Option {
	return func(o *Options) {
		if obs != nil {
			o.Observers = append(o.Observers, obs)
		}
	}
}
