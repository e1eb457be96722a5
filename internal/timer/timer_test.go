package timer

import (
	"testing"
	"time"
)

func TestEvaluate(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		sessionLeft time.Duration
		sectionLeft time.Duration
		want        State
	}{
		{
			name:        "plenty of time",
			sessionLeft: 3 * time.Minute,
			sectionLeft: 90 * time.Second,
			want:        State{SessionRemaining: 180, SectionRemaining: 90},
		},
		{
			name:        "fractional seconds floor",
			sessionLeft: 20*time.Second + 900*time.Millisecond,
			sectionLeft: 900 * time.Millisecond,
			want:        State{SessionRemaining: 20, SectionRemaining: 0},
		},
		{
			name:        "under threshold forces finalize",
			sessionLeft: 10 * time.Second,
			sectionLeft: 10 * time.Second,
			want:        State{SessionRemaining: 10, SectionRemaining: 10, ForceFinalize: true},
		},
		{
			name:        "section expired session running",
			sessionLeft: 2 * time.Minute,
			sectionLeft: -5 * time.Second,
			want:        State{SessionRemaining: 120, SectionRemaining: 0, SectionExpired: true},
		},
		{
			name:        "session expired clamps to zero",
			sessionLeft: -time.Hour,
			sectionLeft: -time.Hour,
			want:        State{SessionExpired: true, SectionExpired: true, ForceFinalize: true},
		},
		{
			name:        "exactly at deadline is expired",
			sessionLeft: 0,
			sectionLeft: 0,
			want:        State{SessionExpired: true, SectionExpired: true, ForceFinalize: true},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(now, now.Add(tc.sessionLeft), now.Add(tc.sectionLeft), DefaultForceFinalizeThreshold)
			if got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestRemainingNeverNegative(t *testing.T) {
	now := time.Now()
	if r := Remaining(now, now.Add(-time.Minute)); r != 0 {
		t.Fatalf("expected 0, got %d", r)
	}
}
