// Package timer derives remaining time and expiry from stored deadlines.
// Nothing here is persisted; every read recomputes against the clock.
package timer

import "time"

// DefaultForceFinalizeThreshold is the remaining session time below which a
// section fetch seals the session instead of serving questions.
const DefaultForceFinalizeThreshold = 15 * time.Second

// Clock abstracts time.Now for tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// State is the timer view of a session and one of its sections.
type State struct {
	SessionRemaining int  `json:"session_remaining"`
	SectionRemaining int  `json:"section_remaining"`
	SessionExpired   bool `json:"session_expired"`
	SectionExpired   bool `json:"section_expired"`
	ForceFinalize    bool `json:"-"`
}

// Remaining returns whole seconds left until endsAt, floored and clamped at 0.
func Remaining(now, endsAt time.Time) int {
	d := endsAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(d / time.Second)
}

// Expired reports whether the deadline has passed.
func Expired(now, endsAt time.Time) bool {
	return !now.Before(endsAt)
}

// Evaluate computes remaining time for the session and section deadlines.
// ForceFinalize is set when the session has less than threshold left.
func Evaluate(now, sessionEndsAt, sectionEndsAt time.Time, threshold time.Duration) State {
	return State{
		SessionRemaining: Remaining(now, sessionEndsAt),
		SectionRemaining: Remaining(now, sectionEndsAt),
		SessionExpired:   Expired(now, sessionEndsAt),
		SectionExpired:   Expired(now, sectionEndsAt),
		ForceFinalize:    sessionEndsAt.Sub(now) < threshold,
	}
}
