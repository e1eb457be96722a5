package event

import (
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assessment/internal/model"
)

type EventType string

const (
	EventTypeAttemptStarted   EventType = "attempt.started"
	EventTypeAttemptFinalized EventType = "attempt.finalized"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"`
	Version   string    `json:"version"`
}

type AttemptStartedEvent struct {
	BaseEvent
	SessionCode string     `json:"session_code"`
	UserID      int        `json:"user_id"`
	ExamID      uuid.UUID  `json:"exam_id"`
	ScheduleID  *uuid.UUID `json:"schedule_id,omitempty"`
	EndsAt      time.Time  `json:"ends_at"`
	Redeemed    bool       `json:"redeemed"`
}

type AttemptFinalizedEvent struct {
	BaseEvent
	SessionCode string              `json:"session_code"`
	UserID      int                 `json:"user_id"`
	ExamID      uuid.UUID           `json:"exam_id"`
	ScheduleID  *uuid.UUID          `json:"schedule_id,omitempty"`
	Result      model.SessionResult `json:"result"`
}

func NewAttemptStartedEvent(s *model.AttemptSession, redeemed bool) *AttemptStartedEvent {
	return &AttemptStartedEvent{
		BaseEvent:   newBase(EventTypeAttemptStarted),
		SessionCode: s.Code,
		UserID:      s.UserID,
		ExamID:      s.ExamID,
		ScheduleID:  s.ScheduleID,
		EndsAt:      s.EndsAt,
		Redeemed:    redeemed,
	}
}

func NewAttemptFinalizedEvent(s *model.AttemptSession, result model.SessionResult) *AttemptFinalizedEvent {
	return &AttemptFinalizedEvent{
		BaseEvent:   newBase(EventTypeAttemptFinalized),
		SessionCode: s.Code,
		UserID:      s.UserID,
		ExamID:      s.ExamID,
		ScheduleID:  s.ScheduleID,
		Result:      result,
	}
}

func newBase(t EventType) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      t,
		Timestamp: time.Now().Unix(),
		Version:   "1.0",
	}
}
