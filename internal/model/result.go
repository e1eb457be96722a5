package model

import (
	"time"

	"github.com/google/uuid"
)

// SectionResult is the per-section result document.
type SectionResult struct {
	Score         float64 `json:"score"`
	MaxScore      float64 `json:"max_score"`
	MarksEarned   float64 `json:"marks_earned"`
	MarksDeducted float64 `json:"marks_deducted"`
	Correct       int     `json:"correct"`
	Incorrect     int     `json:"incorrect"`
	Unanswered    int     `json:"unanswered"`
	Percentage    float64 `json:"percentage"`
	TimeTaken     int     `json:"time_taken"`
	CutoffCleared *bool   `json:"cutoff_cleared,omitempty"`
}

// ResultStatus is the pass/fail verdict when the exam defines a pass mark.
type ResultStatus string

const (
	ResultPassed ResultStatus = "passed"
	ResultFailed ResultStatus = "failed"
)

// SessionResult is the aggregate result document sealed by the finalizer.
type SessionResult struct {
	Score          float64       `json:"score"`
	TotalMarks     float64       `json:"total_marks"`
	Percentage     float64       `json:"percentage"`
	MarksEarned    float64       `json:"marks_earned"`
	MarksDeducted  float64       `json:"marks_deducted"`
	TotalQuestions int           `json:"total_questions"`
	Correct        int           `json:"correct"`
	Incorrect      int           `json:"incorrect"`
	Unanswered     int           `json:"unanswered"`
	TimeTaken      int           `json:"time_taken"`
	Status         *ResultStatus `json:"status,omitempty"`
	CompletedAt    time.Time     `json:"completed_at"`
}

// LeaderboardEntry is one ranked learner.
type LeaderboardEntry struct {
	Rank           int        `json:"rank"`
	UserID         int        `json:"user_id"`
	ExamID         uuid.UUID  `json:"exam_id"`
	ScheduleID     *uuid.UUID `json:"schedule_id,omitempty"`
	HighScore      float64    `json:"high_score"`
	HighPercentage float64    `json:"high_percentage"`
	Attempts       int        `json:"attempts"`
}
