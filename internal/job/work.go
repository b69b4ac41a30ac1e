// Package job holds ready-made task callbacks for demos and load generation.
package job

import (
	"fmt"
	"io"
	"runtime"
	"time"

	"coopsched/internal/sched"
)

// Busy returns a callback that spins until d has passed on clk. It never
// sleeps, so it holds the host loop for the whole duration the way real
// CPU-bound work does.
func Busy(clk sched.Clock, d time.Duration) sched.Callback {
	return func(sched.Slice) error {
		spin(clk, d)
		return nil
	}
}

func spin(clk sched.Clock, d time.Duration) {
	end := clk.Now().Add(d)
	for clk.Now().Before(end) {
		runtime.Gosched()
	}
}

// Print returns a callback that writes msg and a newline to w.
func Print(w io.Writer, msg string) sched.Callback {
	return func(sched.Slice) error {
		_, err := fmt.Fprintln(w, msg)
		return err
	}
}

// Chunked returns a callback that spends total on clk in steps of chunk. When
// the slice asks it to yield with work left, it reschedules the remainder at
// the same priority and returns.
func Chunked(s *sched.Scheduler, p sched.Priority, clk sched.Clock, total, chunk time.Duration) sched.Callback {
	remaining := total

	var cb sched.Callback
	cb = func(slice sched.Slice) error {
		for remaining > 0 {
			n := min(chunk, remaining)
			spin(clk, n)
			remaining -= n

			if remaining > 0 && slice.ShouldYield() {
				s.Schedule(p, cb)
				return nil
			}
		}
		return nil
	}
	return cb
}
