package sched

import "time"

// TaskID uniquely identifies a task in the scheduler.
type TaskID uint64

// Callback is the unit of work carried by a [Task]. It receives the time slice
// it was dispatched in. A returned error is reported through the scheduler's
// error hook and never stops the work loop.
type Callback func(slice Slice) error

// Task represents one schedulable unit of work.
type Task struct {
	id             TaskID
	priority       Priority
	submittedAt    time.Time
	expirationTime time.Time // submittedAt + timeout; fixed once queued

	// Guarded by the owning scheduler's mutex.
	callback  Callback // nil once the task has left the queue
	cancelled bool
}

func newTask(id TaskID, priority Priority, cb Callback, now time.Time, timeout time.Duration) *Task {
	return &Task{
		id:             id,
		priority:       priority,
		callback:       cb,
		submittedAt:    now,
		expirationTime: now.Add(timeout),
	}
}

// ID returns the task's identifier.
func (t *Task) ID() TaskID { return t.id }

// Priority returns the priority the task was submitted with.
func (t *Task) Priority() Priority { return t.priority }

// SubmittedAt returns the scheduler time at submission.
func (t *Task) SubmittedAt() time.Time { return t.submittedAt }

// ExpirationTime returns the sort key of the task.
func (t *Task) ExpirationTime() time.Time { return t.expirationTime }

// Handle is returned by [Scheduler.Schedule] and is used solely for
// cancellation and inspection. The zero Handle is valid and refers to nothing.
type Handle struct {
	task  *Task
	owner *Scheduler
}

// ID returns the identifier of the referenced task, or zero.
func (h Handle) ID() TaskID {
	if h.task == nil {
		return 0
	}
	return h.task.id
}

// Task returns the referenced task, or nil for the zero Handle.
func (h Handle) Task() *Task { return h.task }

// Slice describes the time slice a callback is running in.
type Slice struct {
	clock      Clock
	deadline   time.Time
	didTimeout bool
}

// Deadline returns the instant the work loop yields back to the host.
func (s Slice) Deadline() time.Time { return s.deadline }

// TimeRemaining returns how much of the slice is left, never negative.
func (s Slice) TimeRemaining() time.Duration {
	if s.clock == nil {
		return 0
	}
	if d := s.deadline.Sub(s.clock.Now()); d > 0 {
		return d
	}
	return 0
}

// ShouldYield reports whether the slice has been used up.
func (s Slice) ShouldYield() bool {
	return s.TimeRemaining() == 0
}

// DidTimeout reports whether the task's expiration time had already passed
// when it was dispatched.
func (s Slice) DidTimeout() bool { return s.didTimeout }
