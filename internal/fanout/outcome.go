package fanout

import (
	"strings"
	"time"
)

// Separator joins the contributions of a combined greeting.
const Separator = ", "

// Status tags the result of one peer slot.
type Status int

const (
	StatusAbsent Status = iota
	StatusOK
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusFailed:
		return "failed"
	default:
		return "absent"
	}
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Outcome is what happened to one peer slot during a fan-out. Body is set only
// for StatusOK and Err only for StatusFailed.
type Outcome struct {
	Err      error
	Slot     string
	Addr     string
	Body     string
	Duration time.Duration
	Status   Status
}

func (o Outcome) OK() bool { return o.Status == StatusOK }

// Join reduces outcomes to the combined greeting: local first, then every
// successful peer body in slot order. Absent and failed slots leave no gap.
func Join(local string, outcomes []Outcome) string {
	parts := make([]string, 1, len(outcomes)+1)
	parts[0] = local
	for _, o := range outcomes {
		if o.OK() {
			parts = append(parts, o.Body)
		}
	}
	return strings.Join(parts, Separator)
}
