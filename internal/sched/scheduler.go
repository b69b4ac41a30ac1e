// internal/sched/scheduler.go

package sched

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/emirpasic/gods/utils"

	"coopsched/internal/log"
)

// Host is the host yield channel: it runs fn asynchronously, as soon as the
// host loop is free. Implementations must invoke fn exactly once per call and
// never from within RequestCallback itself.
type Host interface {
	RequestCallback(fn func())
}

// Clock is the time source used by the scheduler. [clock.Clock] satisfies it.
type Clock interface {
	Now() time.Time
}

// State is the work loop state.
type State int

const (
	// StateIdle means no host callback is armed.
	StateIdle State = iota
	// StateRunning means a host callback is armed or the loop is draining.
	StateRunning
)

func (s State) String() string {
	if s == StateRunning {
		return "running"
	}
	return "idle"
}

// Scheduler orders opaque callbacks by expiration time and drains them in
// deadline-bounded turns of the host's event loop.
//
// Schedule and Cancel may be called from any goroutine, including from inside
// a running callback. Callbacks themselves only ever run on the host's
// callback goroutine, one at a time.
type Scheduler struct {
	mu        sync.Mutex         // protects queue, registry, nextID and armed
	queue     *TaskQueue         // pending tasks ordered by expiration time
	registry  *redblacktree.Tree // live (queued, not cancelled) tasks by id
	nextID    TaskID             // last id handed out
	armed     bool               // a host callback is outstanding or running
	onError   ErrorHandler       // task error hook, nil means log
	host      Host               // yield channel back to the host loop
	clock     Clock              // time source
	timeSlice time.Duration      // work loop budget per host turn
	timeouts  TimeoutPolicy      // priority -> expiration delay
	observers []Observer         // event sinks
	log       log.Logger         // component logger, also the default error sink
}

// New creates a new Scheduler bound to the given host.
func New(host Host, opts ...Option) *Scheduler {
	o := &Options{
		TimeSlice: DefaultTimeSlice,
		Timeouts:  DefaultTimeouts(),
		Clock:     clock.New(),
		Logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	return &Scheduler{
		queue:     NewTaskQueue(),
		registry:  redblacktree.NewWith(utils.UInt64Comparator),
		onError:   o.ErrorHandler,
		host:      host,
		clock:     o.Clock,
		timeSlice: o.TimeSlice,
		timeouts:  o.Timeouts,
		observers: o.Observers,
		log:       o.Logger.Component("scheduler"),
	}
}

// Schedule queues cb with the given priority and makes sure the work loop is
// armed. It never blocks and never runs cb synchronously.
func (s *Scheduler) Schedule(priority Priority, cb Callback) Handle {
	if !priority.IsValid() {
		priority = NormalPriority
	}

	s.mu.Lock()
	now := s.clock.Now()
	s.nextID++
	t := newTask(s.nextID, priority, cb, now, s.timeouts.Timeout(priority))
	s.queue.Insert(t)
	s.registry.Put(uint64(t.id), t)
	pending := s.registry.Size()
	arm := !s.armed
	s.armed = true
	s.mu.Unlock()

	s.emit(Event{
		Time:     now,
		Kind:     EventEnqueue,
		TaskID:   t.id,
		Priority: priority,
		Pending:  pending,
	})

	if arm {
		s.log.Debug().Msg("scheduler: arming work loop")
		s.host.RequestCallback(s.workLoop)
	}

	return Handle{task: t, owner: s}
}

// ScheduleFunc is Schedule for callbacks that do not report errors.
func (s *Scheduler) ScheduleFunc(priority Priority, fn func()) Handle {
	return s.Schedule(priority, func(Slice) error {
		fn()
		return nil
	})
}

// Cancel marks the referenced task so the work loop discards it instead of
// running it. Cancelling twice, cancelling a task that already ran, or
// cancelling a handle from another scheduler does nothing.
func (s *Scheduler) Cancel(h Handle) {
	if h.task == nil || h.owner != s {
		return
	}

	s.mu.Lock()
	t := h.task
	if _, found := s.registry.Get(uint64(t.id)); !found {
		s.mu.Unlock()
		return
	}
	t.cancelled = true
	s.registry.Remove(uint64(t.id))
	pending := s.registry.Size()
	s.mu.Unlock()

	s.emit(Event{
		Time:     s.clock.Now(),
		Kind:     EventCancel,
		TaskID:   t.id,
		Priority: t.priority,
		Pending:  pending,
	})
}

// Cancelled reports whether the referenced task was cancelled before it ran.
func (s *Scheduler) Cancelled(h Handle) bool {
	if h.task == nil || h.owner != s {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return h.task.cancelled
}

// OnTaskError installs the hook that observes callback failures. A nil
// handler restores logging to the scheduler's logger.
func (s *Scheduler) OnTaskError(handler ErrorHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.onError = handler
}

// Len returns the number of tasks waiting to run, cancelled ones excluded.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.registry.Size()
}

// Pending returns the tasks waiting to run ordered by id, which is
// submission order.
func (s *Scheduler) Pending() []*Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := s.registry.Values()
	tasks := make([]*Task, 0, len(values))
	for _, v := range values {
		tasks = append(tasks, v.(*Task))
	}
	return tasks
}

// State reports whether the work loop is armed.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.armed {
		return StateRunning
	}
	return StateIdle
}

func (s *Scheduler) emit(ev Event) {
	for _, obs := range s.observers {
		obs.Observe(ev)
	}
}
