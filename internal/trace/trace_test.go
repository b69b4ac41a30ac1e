package trace_test

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coopsched/internal/host"
	"coopsched/internal/log"
	"coopsched/internal/sched"
	"coopsched/internal/trace"
)

func readRows(t *testing.T, data []byte) [][]string {
	t.Helper()

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSV_Rows(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	tr, err := trace.NewCSV(&buf)
	require.NoError(t, err)

	h := host.NewManual()
	s := sched.New(h,
		sched.WithLogger(log.Nop()),
		sched.WithErrorHandler(func(error, *sched.Task) {}),
		sched.WithObserver(tr),
	)

	s.ScheduleFunc(sched.LowPriority, func() {})
	s.Schedule(sched.ImmediatePriority, func(sched.Slice) error {
		return errors.New("bad, input")
	})
	h.Drain(0)
	require.NoError(t, tr.Err())

	rows := readRows(t, buf.Bytes())
	require.Len(t, rows, 8)
	assert.Equal(t, []string{"timestamp", "event", "task_id", "priority", "pending", "elapsed_us", "error"}, rows[0])

	var kinds []string
	for _, r := range rows[1:] {
		require.Len(t, r, 7)
		_, err := time.Parse(time.RFC3339Nano, r[0])
		require.NoError(t, err)
		kinds = append(kinds, r[1])
	}
	assert.Equal(t, []string{"Enqueue", "Enqueue", "Dispatch", "Fail", "Dispatch", "Finish", "Idle"}, kinds)

	assert.Equal(t, []string{"2", "immediate", "1"}, rows[3][2:5])
	assert.Equal(t, "bad, input", rows[4][6])
	assert.Equal(t, []string{"", "", "0"}, rows[7][2:5])
}

func TestOpen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trace.csv")
	tr, err := trace.Open(path)
	require.NoError(t, err)

	tr.Observe(sched.Event{Time: time.Now(), Kind: sched.EventYield, Pending: 3, Elapsed: 5 * time.Millisecond})

	// Rows are flushed as they are written.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	rows := readRows(t, data)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Yield", "", "", "3", "5000", ""}, rows[1][1:])

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
}

// shortWriter accepts limit bytes and then fails.
type shortWriter struct {
	limit int
}

var errDiskFull = errors.New("disk full")

func (w *shortWriter) Write(p []byte) (int, error) {
	if len(p) > w.limit {
		n := w.limit
		w.limit = 0
		return n, errDiskFull
	}
	w.limit -= len(p)
	return len(p), nil
}

func TestCSV_CloseReportsWriteFailure(t *testing.T) {
	t.Parallel()

	tr, err := trace.NewCSV(&shortWriter{limit: 64})
	require.NoError(t, err)

	tr.Observe(sched.Event{Time: time.Now(), Kind: sched.EventIdle})
	require.ErrorIs(t, tr.Err(), errDiskFull)

	// Later events are dropped and the failure still surfaces on Close.
	tr.Observe(sched.Event{Time: time.Now(), Kind: sched.EventIdle})
	require.ErrorIs(t, tr.Close(), errDiskFull)
}

func TestOpen_BadPath(t *testing.T) {
	t.Parallel()

	_, err := trace.Open(filepath.Join(t.TempDir(), "missing", "trace.csv"))
	require.Error(t, err)
}
