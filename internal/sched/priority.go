package sched

import (
	"fmt"
	"strings"
	"time"

	zerr "coopsched/errors"
)

// Priority is the relative urgency of a [Task]. Lower values are more urgent.
type Priority uint8

const (
	NoPriority Priority = iota
	ImmediatePriority
	UserBlockingPriority
	NormalPriority
	LowPriority
	IdlePriority
)

// Priorities lists the valid levels from most to least urgent.
func Priorities() []Priority {
	return []Priority{
		ImmediatePriority,
		UserBlockingPriority,
		NormalPriority,
		LowPriority,
		IdlePriority,
	}
}

var (
	strPriorityMap = map[Priority]string{
		NoPriority:           "none",
		ImmediatePriority:    "immediate",
		UserBlockingPriority: "user-blocking",
		NormalPriority:       "normal",
		LowPriority:          "low",
		IdlePriority:         "idle",
	}

	typePriorityMap = map[string]Priority{
		"immediate":     ImmediatePriority,
		"user-blocking": UserBlockingPriority,
		"normal":        NormalPriority,
		"low":           LowPriority,
		"idle":          IdlePriority,
	}
)

func (p Priority) String() string {
	if s, ok := strPriorityMap[p]; ok {
		return s
	}
	return fmt.Sprintf("priority(%d)", uint8(p))
}

// IsValid reports whether p is one of [Priorities].
func (p Priority) IsValid() bool {
	return p >= ImmediatePriority && p <= IdlePriority
}

// ParsePriority maps a level name such as "user-blocking" to its Priority.
// Matching ignores case and accepts underscores in place of dashes.
func ParsePriority(s string) (Priority, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	if p, ok := typePriorityMap[key]; ok {
		return p, nil
	}
	return NoPriority, fmt.Errorf("%w: %q", zerr.ErrBadPriority, s)
}

func (p Priority) MarshalText() ([]byte, error) {
	if !p.IsValid() {
		return nil, fmt.Errorf("%w: %d", zerr.ErrBadPriority, uint8(p))
	}
	return []byte(p.String()), nil
}

func (p *Priority) UnmarshalText(b []byte) error {
	v, err := ParsePriority(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// maxTimeout is the idle timeout of the browser scheduler this models, about
// 12.4 days: long enough to never expire in practice.
const maxTimeout = 1073741823 * time.Millisecond

// TimeoutPolicy maps each priority to the delay added to the submission time
// to form a task's expiration time. Urgency is encoded purely through these
// magnitudes.
type TimeoutPolicy struct {
	timeouts [IdlePriority + 1]time.Duration
}

// DefaultTimeouts returns the standard policy.
func DefaultTimeouts() TimeoutPolicy {
	var tp TimeoutPolicy
	tp.timeouts[ImmediatePriority] = -1 * time.Millisecond
	tp.timeouts[UserBlockingPriority] = 250 * time.Millisecond
	tp.timeouts[NormalPriority] = 5 * time.Second
	tp.timeouts[LowPriority] = 10 * time.Second
	tp.timeouts[IdlePriority] = maxTimeout
	return tp
}

// With returns a copy of the policy with the timeout of p replaced.
// Invalid priorities are ignored.
func (tp TimeoutPolicy) With(p Priority, d time.Duration) TimeoutPolicy {
	if p.IsValid() {
		tp.timeouts[p] = d
	}
	return tp
}

// Timeout returns the timeout for p. Unknown priorities are treated as
// [NormalPriority].
func (tp TimeoutPolicy) Timeout(p Priority) time.Duration {
	if !p.IsValid() {
		p = NormalPriority
	}
	return tp.timeouts[p]
}

// Validate checks that timeouts strictly increase from Immediate to Idle.
func (tp TimeoutPolicy) Validate() error {
	prio := Priorities()
	for i := 1; i < len(prio); i++ {
		prev, cur := prio[i-1], prio[i]
		if tp.timeouts[cur] <= tp.timeouts[prev] {
			return fmt.Errorf("%w: %s (%s) <= %s (%s)", zerr.ErrBadTimeouts,
				cur, tp.timeouts[cur], prev, tp.timeouts[prev])
		}
	}
	return nil
}
