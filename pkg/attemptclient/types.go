package attemptclient

import (
	"encoding/json"
	"time"
)

// Timer is the server's view of the remaining time, in seconds.
type Timer struct {
	SessionRemaining int  `json:"session_remaining"`
	SectionRemaining int  `json:"section_remaining"`
	SessionExpired   bool `json:"session_expired"`
	SectionExpired   bool `json:"section_expired"`
}

// Session is a learner's attempt.
type Session struct {
	Code            string     `json:"code"`
	ExamID          string     `json:"exam_id"`
	ScheduleID      string     `json:"schedule_id,omitempty"`
	Status          string     `json:"status"`
	StartsAt        time.Time  `json:"starts_at"`
	EndsAt          time.Time  `json:"ends_at"`
	CurrentSection  string     `json:"current_section,omitempty"`
	CurrentQuestion string     `json:"current_question,omitempty"`
	TotalTimeTaken  int        `json:"total_time_taken"`
	Results         *Result    `json:"results,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// Result is the sealed outcome of a session.
type Result struct {
	Score          float64   `json:"score"`
	TotalMarks     float64   `json:"total_marks"`
	Percentage     float64   `json:"percentage"`
	MarksEarned    float64   `json:"marks_earned"`
	MarksDeducted  float64   `json:"marks_deducted"`
	TotalQuestions int       `json:"total_questions"`
	Correct        int       `json:"correct"`
	Incorrect      int       `json:"incorrect"`
	Unanswered     int       `json:"unanswered"`
	TimeTaken      int       `json:"time_taken"`
	Status         string    `json:"status,omitempty"`
	CompletedAt    time.Time `json:"completed_at"`
}

// SectionResult is the sealed outcome of one section.
type SectionResult struct {
	Score         float64 `json:"score"`
	MaxScore      float64 `json:"max_score"`
	Correct       int     `json:"correct"`
	Incorrect     int     `json:"incorrect"`
	Unanswered    int     `json:"unanswered"`
	Percentage    float64 `json:"percentage"`
	TimeTaken     int     `json:"time_taken"`
	CutoffCleared *bool   `json:"cutoff_cleared,omitempty"`
}

// Section is one section of a session.
type Section struct {
	SectionID       string         `json:"section_id"`
	SNo             int            `json:"sno"`
	Name            string         `json:"name"`
	EndsAt          time.Time      `json:"ends_at"`
	CurrentQuestion string         `json:"current_question,omitempty"`
	TotalTimeTaken  int            `json:"total_time_taken"`
	Status          string         `json:"status"`
	Results         *SectionResult `json:"results,omitempty"`
}

// Prompt is a question as rendered to the learner.
type Prompt struct {
	ID           string          `json:"id"`
	QuestionType string          `json:"question_type"`
	QuestionText string          `json:"question_text"`
	Options      json.RawMessage `json:"options,omitempty"`
	DefaultMarks float64         `json:"default_marks"`
}

// Question is one question slot of a section.
type Question struct {
	QuestionID string          `json:"question_id"`
	SNo        int             `json:"sno"`
	Question   Prompt          `json:"question"`
	UserAnswer json.RawMessage `json:"user_answer,omitempty"`
	Status     string          `json:"status"`
	TimeTaken  int             `json:"time_taken"`
}

// SectionView is the response of SectionQuestions. Completed is set when
// the session expired and was sealed by this request.
type SectionView struct {
	Session       Session    `json:"session"`
	Section       Section    `json:"section"`
	Questions     []Question `json:"questions"`
	AnsweredCount int        `json:"answered_count"`
	Timer         Timer      `json:"timer"`
	Completed     bool       `json:"completed"`
	Result        *Result    `json:"result,omitempty"`
}

// ResultView is the response of Results.
type ResultView struct {
	Session  Session   `json:"session"`
	Sections []Section `json:"sections"`
}

// Answer is one submit_answer payload. Status is "answered" or
// "answered_mark_for_review"; TimeTaken is cumulative for the question.
type Answer struct {
	SectionID       string          `json:"section_id"`
	QuestionID      string          `json:"question_id"`
	Answer          json.RawMessage `json:"answer"`
	Status          string          `json:"status"`
	TimeTaken       int             `json:"time_taken"`
	CurrentSection  string          `json:"current_section,omitempty"`
	CurrentQuestion string          `json:"current_question,omitempty"`
}

// Navigation is a navigate payload.
type Navigation struct {
	SectionID  string `json:"section_id"`
	QuestionID string `json:"question_id"`
	TimeTaken  int    `json:"time_taken"`
}

// Outcome is the reply to every question write. Completed means the write
// was skipped because the session is sealed.
type Outcome struct {
	AnsweredCount int    `json:"answered_count"`
	Status        string `json:"status,omitempty"`
	Completed     bool   `json:"completed"`
	Timer         Timer  `json:"timer"`
}

// LeaderboardEntry is one ranked learner.
type LeaderboardEntry struct {
	Rank           int     `json:"rank"`
	UserID         int     `json:"user_id"`
	HighScore      float64 `json:"high_score"`
	HighPercentage float64 `json:"high_percentage"`
	Attempts       int     `json:"attempts"`
}
