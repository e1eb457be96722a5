package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates persisted attempt session states.
// Expiry is derived from ends_at and never stored.
type AttemptStatus string

const (
	AttemptStatusStarted   AttemptStatus = "started"
	AttemptStatusCompleted AttemptStatus = "completed"
)

// AttemptKey identifies the uniqueness scope of a started session:
// (user, exam) when unscheduled, (user, exam, schedule) when scheduled.
type AttemptKey struct {
	UserID     int
	ExamID     uuid.UUID
	ScheduleID *uuid.UUID
}

// AttemptSession is one learner's instance of an exam.
type AttemptSession struct {
	ID              uuid.UUID      `json:"id"`
	Code            string         `json:"code"`
	UserID          int            `json:"user_id"`
	ExamID          uuid.UUID      `json:"exam_id"`
	ScheduleID      *uuid.UUID     `json:"schedule_id,omitempty"`
	StartsAt        time.Time      `json:"starts_at"`
	EndsAt          time.Time      `json:"ends_at"`
	CurrentSection  *uuid.UUID     `json:"current_section,omitempty"`
	CurrentQuestion *uuid.UUID     `json:"current_question,omitempty"`
	TotalTimeTaken  int            `json:"total_time_taken"`
	Status          AttemptStatus  `json:"status"`
	Results         *SessionResult `json:"results,omitempty"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// Key returns the uniqueness scope of the session.
func (s *AttemptSession) Key() AttemptKey {
	return AttemptKey{UserID: s.UserID, ExamID: s.ExamID, ScheduleID: s.ScheduleID}
}

// IsCompleted reports whether the session has been sealed.
func (s *AttemptSession) IsCompleted() bool {
	return s.Status == AttemptStatusCompleted
}

// Navigation is the learner's reported position plus time spent since the
// last report.
type Navigation struct {
	SectionID  uuid.UUID
	QuestionID uuid.UUID
	TimeTaken  int
}

// AttemptDraft is everything Session Builder persists in one write.
type AttemptDraft struct {
	Session   AttemptSession
	Sections  []SectionAttempt
	Questions []QuestionAttempt
}
