package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the possible states of an exam.
type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "DRAFT"
	ExamStatusPublished ExamStatus = "PUBLISHED"
	ExamStatusArchived  ExamStatus = "ARCHIVED"
)

// ExamSettings holds the per-exam engine switches.
type ExamSettings struct {
	AutoGrading           bool `json:"auto_grading"`
	EnableNegativeMarking bool `json:"enable_negative_marking"`
	ShowLeaderboard       bool `json:"show_leaderboard"`
	RestrictAttempts      bool `json:"restrict_attempts"`
	NoOfAttempts          int  `json:"no_of_attempts"`
}

// Exam is the assessment template an attempt is taken against.
// It is authored elsewhere and read-only to the attempt engine.
type Exam struct {
	ID              uuid.UUID    `json:"id"`
	Title           string       `json:"title"`
	CategoryID      *int         `json:"category_id,omitempty"`
	TotalQuestions  int          `json:"total_questions"`
	TotalMarks      float64      `json:"total_marks"`
	DurationMinutes int          `json:"duration_minutes"`
	PassPercentage  *float64     `json:"pass_percentage,omitempty"`
	Settings        ExamSettings `json:"settings"`
	IsPaid          bool         `json:"is_paid"`
	CanRedeem       bool         `json:"can_redeem"`
	PointsRequired  int          `json:"points_required"`
	Status          ExamStatus   `json:"status"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// Duration returns the whole-exam time budget.
func (e *Exam) Duration() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}

// ExamTemplate bundles an exam with its ordered section templates.
// This is the unit cached in Redis.
type ExamTemplate struct {
	Exam     Exam      `json:"exam"`
	Sections []Section `json:"sections"`
}

// Section finds a section template by id.
func (t *ExamTemplate) Section(id uuid.UUID) (*Section, bool) {
	for i := range t.Sections {
		if t.Sections[i].ID == id {
			return &t.Sections[i], true
		}
	}
	return nil, false
}
