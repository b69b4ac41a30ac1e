package sched

import (
	"fmt"
	"runtime/debug"
	"time"

	zerr "coopsched/errors"
)

// PanicError wraps a value recovered from a panicking callback.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task: callback panicked: %v", e.Value)
}

// Is matches [zerr.ErrTaskPanicked].
func (e *PanicError) Is(target error) bool {
	return target == zerr.ErrTaskPanicked
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// workLoop is the host callback. It drains the queue until it is empty or the
// time slice is used up, in which case it re-arms the host and returns.
func (s *Scheduler) workLoop() {
	start := s.clock.Now()
	deadline := start.Add(s.timeSlice)

	for {
		s.mu.Lock()
		t, ok := s.queue.PopMin()
		if !ok {
			s.armed = false
			s.mu.Unlock()
			s.idle(start)
			return
		}

		cb := t.callback
		t.callback = nil
		cancelled := t.cancelled
		if !cancelled {
			s.registry.Remove(uint64(t.id))
		}
		pending := s.registry.Size()
		s.mu.Unlock()

		if cancelled {
			s.emit(Event{
				Time:     s.clock.Now(),
				Kind:     EventSkip,
				TaskID:   t.id,
				Priority: t.priority,
				Pending:  pending,
			})
		} else {
			s.runTask(t, cb, deadline, pending)
		}

		now := s.clock.Now()
		if now.Before(deadline) {
			continue
		}

		s.mu.Lock()
		if s.queue.IsEmpty() {
			s.armed = false
			s.mu.Unlock()
			s.idle(start)
			return
		}
		pending = s.registry.Size()
		s.mu.Unlock()

		s.log.Debug().Int("pending", pending).Dur("turn", now.Sub(start)).
			Msg("scheduler: time slice exhausted, yielding to host")
		s.emit(Event{
			Time:    now,
			Kind:    EventYield,
			Pending: pending,
			Elapsed: now.Sub(start),
		})
		s.host.RequestCallback(s.workLoop)
		return
	}
}

func (s *Scheduler) idle(start time.Time) {
	now := s.clock.Now()
	s.emit(Event{
		Time:    now,
		Kind:    EventIdle,
		Elapsed: now.Sub(start),
	})
}

func (s *Scheduler) runTask(t *Task, cb Callback, deadline time.Time, pending int) {
	dispatched := s.clock.Now()
	s.emit(Event{
		Time:     dispatched,
		Kind:     EventDispatch,
		TaskID:   t.id,
		Priority: t.priority,
		Pending:  pending,
		Elapsed:  dispatched.Sub(t.submittedAt),
	})

	slice := Slice{
		clock:      s.clock,
		deadline:   deadline,
		didTimeout: !t.expirationTime.After(dispatched),
	}

	err := invoke(cb, slice)

	finished := s.clock.Now()
	ev := Event{
		Time:     finished,
		Kind:     EventFinish,
		TaskID:   t.id,
		Priority: t.priority,
		Pending:  pending,
		Elapsed:  finished.Sub(dispatched),
	}

	if err != nil {
		ev.Kind = EventFail
		ev.Err = err
		s.reportError(err, t)
	}

	s.emit(ev)
}

func invoke(cb Callback, slice Slice) (err error) {
	if cb == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	return cb(slice)
}

func (s *Scheduler) reportError(err error, t *Task) {
	s.mu.Lock()
	handler := s.onError
	s.mu.Unlock()

	if handler != nil {
		handler(err, t)
		return
	}

	s.log.Error().Err(err).Uint64("task", uint64(t.id)).Str("priority", t.priority.String()).
		Msg("scheduler: task failed")
}
