package job_test

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coopsched/internal/host"
	"coopsched/internal/job"
	"coopsched/internal/log"
	"coopsched/internal/sched"
)

// tickingClock moves forward by step on every reading.
type tickingClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(c.step)
	return c.now
}

func TestBusy(t *testing.T) {
	t.Parallel()

	clk := clock.New()
	start := clk.Now()
	require.NoError(t, job.Busy(clk, 2*time.Millisecond)(sched.Slice{}))
	assert.GreaterOrEqual(t, clk.Since(start), 2*time.Millisecond)
}

func TestPrint(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := host.NewManual()
	s := sched.New(h, sched.WithLogger(log.Nop()))

	for i, p := range []sched.Priority{sched.LowPriority, sched.ImmediatePriority, sched.NormalPriority} {
		s.Schedule(p, job.Print(&buf, []string{"low", "immediate", "normal"}[i]))
	}
	h.Drain(0)

	assert.Equal(t, "immediate\nnormal\nlow\n", buf.String())
}

func TestChunked(t *testing.T) {
	t.Parallel()

	clk := &tickingClock{now: time.Unix(0, 0), step: 100 * time.Microsecond}
	h := host.NewManual()

	var dispatches int
	s := sched.New(h,
		sched.WithClock(clk),
		sched.WithLogger(log.Nop()),
		sched.WithObserver(sched.ObserverFunc(func(ev sched.Event) {
			if ev.Kind == sched.EventDispatch {
				dispatches++
			}
		})),
	)

	done := false
	s.Schedule(sched.NormalPriority, job.Chunked(s, sched.NormalPriority, clk, 20*time.Millisecond, time.Millisecond))
	s.ScheduleFunc(sched.IdlePriority, func() { done = true })

	h.Drain(1000)

	assert.True(t, done)
	assert.Zero(t, s.Len())
	assert.Greater(t, dispatches, 2, "a 20ms job should be split across several 5ms slices")
	assert.Greater(t, h.Turns(), 2)
}
