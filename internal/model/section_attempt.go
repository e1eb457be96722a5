package model

import (
	"time"

	"github.com/google/uuid"
)

// SectionAttemptStatus tracks whether the learner has opened a section.
type SectionAttemptStatus string

const (
	SectionNotVisited SectionAttemptStatus = "not_visited"
	SectionVisited    SectionAttemptStatus = "visited"
)

// SectionAttempt is the per-section sub-record of a session.
type SectionAttempt struct {
	SessionID       uuid.UUID            `json:"session_id"`
	SectionID       uuid.UUID            `json:"section_id"`
	SNo             int                  `json:"sno"`
	Name            string               `json:"name"`
	StartsAt        time.Time            `json:"starts_at"`
	EndsAt          time.Time            `json:"ends_at"`
	CurrentQuestion *uuid.UUID           `json:"current_question,omitempty"`
	TotalTimeTaken  int                  `json:"total_time_taken"`
	Status          SectionAttemptStatus `json:"status"`
	Marking         MarkingScheme        `json:"marking"`
	Results         *SectionResult       `json:"results,omitempty"`
}
