package model

import (
	"time"

	"github.com/google/uuid"
)

// NegativeMarkingType selects how a wrong answer is penalised.
type NegativeMarkingType string

const (
	NegativeMarkingFixed      NegativeMarkingType = "fixed"
	NegativeMarkingPercentage NegativeMarkingType = "percentage"
)

// MarkingScheme is a section's scoring configuration. It is frozen into
// every SectionAttempt at build time.
type MarkingScheme struct {
	CorrectMarks        float64             `json:"correct_marks"`
	NegativeMarkingType NegativeMarkingType `json:"negative_marking_type"`
	NegativeMarks       float64             `json:"negative_marks"`
	SectionCutoff       *float64            `json:"section_cutoff,omitempty"`
}

// Section is an ordered sub-unit of an exam.
type Section struct {
	ID              uuid.UUID     `json:"id"`
	ExamID          uuid.UUID     `json:"exam_id"`
	SNo             int           `json:"sno"`
	Name            string        `json:"name"`
	QBankID         uuid.UUID     `json:"qbank_id"`
	TotalQuestions  int           `json:"total_questions"`
	DurationMinutes int           `json:"duration_minutes"`
	Marking         MarkingScheme `json:"marking"`
}

// Duration returns the section time budget.
func (s *Section) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}
