package log

import (
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultPerms = 0o0600

//nolint:gochecknoglobals
var loggerSetTimeFormat sync.Once

// Logger extends zerolog's Logger.
type Logger struct {
	zerolog.Logger
}

// NewLogger builds a logger at the given level. An empty output writes to
// stdout, anything else is opened as an append-only file.
func NewLogger(level, output string) (Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return Logger{}, err
	}

	var out io.Writer = os.Stdout

	if output != "" {
		file, err := os.OpenFile(output, os.O_APPEND|os.O_WRONLY|os.O_CREATE, defaultPerms)
		if err != nil {
			return Logger{}, err
		}

		out = file
	}

	return NewWriterLogger(lvl, out), nil
}

// NewWriterLogger builds a logger writing JSON lines to w.
func NewWriterLogger(level zerolog.Level, w io.Writer) Logger {
	loggerSetTimeFormat.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339Nano
	})

	log := zerolog.New(w).Level(level)

	return Logger{Logger: log.Hook(goroutineHook{}).With().Caller().Timestamp().Logger()}
}

// Default is the process-wide diagnostic sink: info level on stderr.
func Default() Logger {
	return NewWriterLogger(zerolog.InfoLevel, os.Stderr)
}

// Nop discards everything.
func Nop() Logger {
	return Logger{Logger: zerolog.Nop()}
}

// Component returns a sub-logger tagged with the component name.
func (l Logger) Component(name string) Logger {
	return Logger{Logger: l.With().Str("component", name).Logger()}
}

// GoroutineID adds goroutine-id to logs to help debug concurrency issues.
func GoroutineID() int {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	idField := strings.Fields(strings.TrimPrefix(string(buf[:n]), "goroutine "))[0]

	id, err := strconv.Atoi(idField)
	if err != nil {
		return -1
	}

	return id
}

type goroutineHook struct{}

func (h goroutineHook) Run(e *zerolog.Event, level zerolog.Level, _ string) {
	if level != zerolog.NoLevel {
		e.Int("goroutine", GoroutineID())
	}
}
