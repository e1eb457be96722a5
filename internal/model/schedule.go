package model

import (
	"time"

	"github.com/google/uuid"
)

// ScheduleType distinguishes a single start time from an open range.
type ScheduleType string

const (
	ScheduleTypeFixed    ScheduleType = "fixed"
	ScheduleTypeFlexible ScheduleType = "flexible"
)

// ScheduleStatus is the administrative state of a schedule.
type ScheduleStatus string

const (
	ScheduleStatusActive    ScheduleStatus = "active"
	ScheduleStatusExpired   ScheduleStatus = "expired"
	ScheduleStatusCancelled ScheduleStatus = "cancelled"
)

// Schedule binds an exam to an access window and a set of eligible groups.
type Schedule struct {
	ID                 uuid.UUID      `json:"id"`
	ExamID             uuid.UUID      `json:"exam_id"`
	ScheduleType       ScheduleType   `json:"schedule_type"`
	StartsAt           time.Time      `json:"starts_at"`
	EndsAt             *time.Time     `json:"ends_at,omitempty"`
	GracePeriodMinutes int            `json:"grace_period_minutes"`
	Status             ScheduleStatus `json:"status"`
	GroupIDs           []int          `json:"group_ids"`
}

// Window returns the effective access window.
// fixed: [starts_at, starts_at+grace]; flexible: [starts_at, ends_at].
// A flexible schedule without ends_at is open-ended.
func (s *Schedule) Window() (from time.Time, until *time.Time) {
	switch s.ScheduleType {
	case ScheduleTypeFixed:
		end := s.StartsAt.Add(time.Duration(s.GracePeriodMinutes) * time.Minute)
		return s.StartsAt, &end
	default:
		return s.StartsAt, s.EndsAt
	}
}

// IsOpen reports whether an attempt may be started at now.
func (s *Schedule) IsOpen(now time.Time) bool {
	if s.Status == ScheduleStatusExpired || s.Status == ScheduleStatusCancelled {
		return false
	}
	from, until := s.Window()
	if now.Before(from) {
		return false
	}
	if until != nil && now.After(*until) {
		return false
	}
	return true
}

// AllowsGroup reports whether any of the given groups is eligible.
// An empty group set means the schedule is open to everyone.
func (s *Schedule) AllowsGroup(groupIDs []int) bool {
	if len(s.GroupIDs) == 0 {
		return true
	}
	for _, g := range groupIDs {
		for _, allowed := range s.GroupIDs {
			if g == allowed {
				return true
			}
		}
	}
	return false
}
