package errors

import "errors"

var (
	ErrBadConfig    = errors.New("config: invalid config")
	ErrBadPriority  = errors.New("priority: unknown priority level")
	ErrBadTimeouts  = errors.New("priority: timeouts must increase with decreasing urgency")
	ErrUnknownHost  = errors.New("host: unknown host backend")
	ErrHostClosed   = errors.New("host: callback requested after close")
	ErrTaskPanicked = errors.New("task: callback panicked")
)
