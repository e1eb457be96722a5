package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// QuestionStatus is the learner-visible state of a question.
type QuestionStatus string

const (
	QuestionNotVisited            QuestionStatus = "not_visited"
	QuestionNotAnswered           QuestionStatus = "not_answered"
	QuestionAnswered              QuestionStatus = "answered"
	QuestionMarkForReview         QuestionStatus = "mark_for_review"
	QuestionAnsweredMarkForReview QuestionStatus = "answered_mark_for_review"
)

// IsAnswered reports whether the status carries a stored answer.
func (s QuestionStatus) IsAnswered() bool {
	return s == QuestionAnswered || s == QuestionAnsweredMarkForReview
}

// QuestionAttempt is the per-question sub-record of a session.
type QuestionAttempt struct {
	SessionID        uuid.UUID        `json:"session_id"`
	QuestionID       uuid.UUID        `json:"question_id"`
	SectionID        uuid.UUID        `json:"section_id"`
	SNo              int              `json:"sno"`
	OriginalQuestion QuestionSnapshot `json:"original_question"`
	UserAnswer       json.RawMessage  `json:"user_answer,omitempty"`
	IsCorrect        *bool            `json:"is_correct,omitempty"`
	Status           QuestionStatus   `json:"status"`
	TimeTaken        int              `json:"time_taken"`
	MarksEarned      float64          `json:"marks_earned"`
	MarksDeducted    float64          `json:"marks_deducted"`
}

// HasAnswer reports whether a non-empty answer is stored.
func (q *QuestionAttempt) HasAnswer() bool {
	return len(q.UserAnswer) > 0 && string(q.UserAnswer) != "null"
}
