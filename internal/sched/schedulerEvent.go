// internal/sched/schedulerEvent.go

package sched

import (
	"time"
)

// EventKind represents the type of scheduler event
type EventKind int

const (
	EventEnqueue EventKind = iota
	EventCancel
	EventDispatch
	EventFinish
	EventFail
	EventSkip
	EventYield
	EventIdle
)

// Event is emitted on every key action of the scheduler and work loop.
type Event struct {
	Time     time.Time
	Kind     EventKind
	TaskID   TaskID
	Priority Priority
	Pending  int // live tasks still queued after the event

	// Elapsed is the queue wait for EventDispatch, the run time for
	// EventFinish and EventFail, and the turn length for EventYield and
	// EventIdle.
	Elapsed time.Duration
	Err     error
}

func (k EventKind) String() string {
	switch k {
	case EventEnqueue:
		return "Enqueue"
	case EventCancel:
		return "Cancel"
	case EventDispatch:
		return "Dispatch"
	case EventFinish:
		return "Finish"
	case EventFail:
		return "Fail"
	case EventSkip:
		return "Skip"
	case EventYield:
		return "Yield"
	case EventIdle:
		return "Idle"
	default:
		return "Unknown"
	}
}

// Observer receives scheduler events synchronously, on the goroutine that
// produced them and never while the scheduler lock is held.
type Observer interface {
	Observe(ev Event)
}

// ObserverFunc adapts a function to [Observer].
type ObserverFunc func(ev Event)

func (f ObserverFunc) Observe(ev Event) { f(ev) }
