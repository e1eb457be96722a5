package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// QuestionType identifies the answer encoding of a question.
type QuestionType string

const (
	QuestionTypeSingleChoice   QuestionType = "single_choice"
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeTrueFalse      QuestionType = "true_false"
	QuestionTypeNumeric        QuestionType = "numeric"
	QuestionTypeFillBlank      QuestionType = "fill_blank"
)

// Question is a question-bank entry.
type Question struct {
	ID            uuid.UUID       `json:"id"`
	QBankID       uuid.UUID       `json:"qbank_id"`
	QuestionType  QuestionType    `json:"question_type"`
	QuestionText  string          `json:"question_text"`
	Options       json.RawMessage `json:"options"`
	CorrectAnswer json.RawMessage `json:"correct_answer"`
	DefaultMarks  float64         `json:"default_marks"`
}

// QuestionSnapshot is the frozen copy of a question stored on the
// attempt, so later bank edits never change an in-flight attempt.
type QuestionSnapshot struct {
	ID            uuid.UUID       `json:"id"`
	QuestionType  QuestionType    `json:"question_type"`
	QuestionText  string          `json:"question_text"`
	Options       json.RawMessage `json:"options,omitempty"`
	CorrectAnswer json.RawMessage `json:"correct_answer"`
	DefaultMarks  float64         `json:"default_marks"`
}

// Snapshot freezes the rendering- and grading-relevant fields.
func (q *Question) Snapshot() QuestionSnapshot {
	return QuestionSnapshot{
		ID:            q.ID,
		QuestionType:  q.QuestionType,
		QuestionText:  q.QuestionText,
		Options:       q.Options,
		CorrectAnswer: q.CorrectAnswer,
		DefaultMarks:  q.DefaultMarks,
	}
}
