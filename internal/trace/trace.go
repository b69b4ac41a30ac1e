// Package trace records scheduler events as CSV rows.
package trace

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"coopsched/internal/sched"
)

var header = []string{"timestamp", "event", "task_id", "priority", "pending", "elapsed_us", "error"}

// CSV is a [sched.Observer] that writes one row per event and flushes after
// every row.
type CSV struct {
	mu     sync.Mutex
	w      *csv.Writer
	closer io.Closer
	err    error
}

// NewCSV writes the header row to w and returns the observer.
func NewCSV(w io.Writer) (*CSV, error) {
	c := &CSV{w: csv.NewWriter(w)}
	if err := c.write(header); err != nil {
		return nil, err
	}
	return c, nil
}

// Open creates or truncates the file at path and traces into it. Close
// releases the file.
func Open(path string) (*CSV, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	c, err := NewCSV(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	c.closer = f
	return c, nil
}

// Observe implements [sched.Observer]. The first write error is kept and
// later events are dropped.
func (c *CSV) Observe(ev sched.Event) {
	rec := []string{
		ev.Time.Format(time.RFC3339Nano),
		ev.Kind.String(),
		"",
		"",
		strconv.Itoa(ev.Pending),
		strconv.FormatInt(ev.Elapsed.Microseconds(), 10),
		"",
	}
	if ev.TaskID != 0 {
		rec[2] = strconv.FormatUint(uint64(ev.TaskID), 10)
		rec[3] = ev.Priority.String()
	}
	if ev.Err != nil {
		rec[6] = ev.Err.Error()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err != nil {
		return
	}
	c.err = c.write(rec)
}

// Err returns the first write error, if any.
func (c *CSV) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.err
}

// Close flushes pending output and closes the file opened by [Open].
func (c *CSV) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.w.Flush()
	err := c.w.Error()
	if c.closer != nil {
		if cerr := c.closer.Close(); err == nil {
			err = cerr
		}
		c.closer = nil
	}
	return err
}

func (c *CSV) write(rec []string) error {
	if err := c.w.Write(rec); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}
