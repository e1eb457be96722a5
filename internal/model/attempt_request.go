package model

import "encoding/json"

// StartAttemptRequest is the payload for start_or_resume.
type StartAttemptRequest struct {
	ExamID     string  `json:"exam_id" binding:"required,uuid"`
	ScheduleID *string `json:"schedule_id" binding:"omitempty,uuid"`
}

// MySessionsQuery filters my_sessions by exam.
type MySessionsQuery struct {
	ExamID string `form:"exam_id" binding:"required,uuid"`
}

// SubmitAnswerRequest is the payload for submit_answer.
type SubmitAnswerRequest struct {
	SectionID       string          `json:"section_id" binding:"required,uuid"`
	QuestionID      string          `json:"question_id" binding:"required,uuid"`
	Answer          json.RawMessage `json:"answer" binding:"required,answer"`
	Status          QuestionStatus  `json:"status" binding:"required,oneof=answered answered_mark_for_review"`
	TimeTaken       int             `json:"time_taken" binding:"min=0,max=86400"`
	CurrentSection  string          `json:"current_section" binding:"omitempty,uuid"`
	CurrentQuestion string          `json:"current_question" binding:"omitempty,uuid"`
}

// QuestionRefRequest addresses one question of a section (clear, review).
type QuestionRefRequest struct {
	SectionID  string `json:"section_id" binding:"required,uuid"`
	QuestionID string `json:"question_id" binding:"required,uuid"`
}

// NavigateRequest reports the learner's new position.
type NavigateRequest struct {
	SectionID  string `json:"section_id" binding:"required,uuid"`
	QuestionID string `json:"question_id" binding:"required,uuid"`
	TimeTaken  int    `json:"time_taken" binding:"min=0,max=86400"`
}

// FinishRequest is the payload for finish.
type FinishRequest struct {
	TotalTimeTaken int `json:"total_time_taken" binding:"min=0"`
}
