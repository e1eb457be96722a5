package handler

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/service"
	"github.com/stemsi/exstem-assessment/internal/timer"
)

// SessionDTO is the learner-facing projection of an attempt session.
type SessionDTO struct {
	Code            string               `json:"code"`
	ExamID          uuid.UUID            `json:"exam_id"`
	ScheduleID      *uuid.UUID           `json:"schedule_id,omitempty"`
	Status          model.AttemptStatus  `json:"status"`
	StartsAt        time.Time            `json:"starts_at"`
	EndsAt          time.Time            `json:"ends_at"`
	CurrentSection  *uuid.UUID           `json:"current_section,omitempty"`
	CurrentQuestion *uuid.UUID           `json:"current_question,omitempty"`
	TotalTimeTaken  int                  `json:"total_time_taken"`
	Results         *model.SessionResult `json:"results,omitempty"`
	CompletedAt     *time.Time           `json:"completed_at,omitempty"`
}

// SectionDTO is one section of an attempt.
type SectionDTO struct {
	SectionID       uuid.UUID                  `json:"section_id"`
	SNo             int                        `json:"sno"`
	Name            string                     `json:"name"`
	EndsAt          time.Time                  `json:"ends_at"`
	CurrentQuestion *uuid.UUID                 `json:"current_question,omitempty"`
	TotalTimeTaken  int                        `json:"total_time_taken"`
	Status          model.SectionAttemptStatus `json:"status"`
	Results         *model.SectionResult       `json:"results,omitempty"`
}

// PromptDTO is a question as rendered to the learner. It never carries the
// answer key.
type PromptDTO struct {
	ID           uuid.UUID          `json:"id"`
	QuestionType model.QuestionType `json:"question_type"`
	QuestionText string             `json:"question_text"`
	Options      json.RawMessage    `json:"options,omitempty"`
	DefaultMarks float64            `json:"default_marks"`
}

// QuestionDTO is one question slot of a section.
type QuestionDTO struct {
	QuestionID uuid.UUID            `json:"question_id"`
	SNo        int                  `json:"sno"`
	Question   PromptDTO            `json:"question"`
	UserAnswer json.RawMessage      `json:"user_answer,omitempty"`
	Status     model.QuestionStatus `json:"status"`
	TimeTaken  int                  `json:"time_taken"`
}

// SectionViewDTO is the section_questions response.
type SectionViewDTO struct {
	Session       SessionDTO           `json:"session"`
	Section       SectionDTO           `json:"section"`
	Questions     []QuestionDTO        `json:"questions"`
	AnsweredCount int                  `json:"answered_count"`
	Timer         timer.State          `json:"timer"`
	Completed     bool                 `json:"completed"`
	Result        *model.SessionResult `json:"result,omitempty"`
}

// ResultViewDTO is the results response.
type ResultViewDTO struct {
	Session  SessionDTO   `json:"session"`
	Sections []SectionDTO `json:"sections"`
}

func toSessionDTO(s *model.AttemptSession) (SessionDTO, error) {
	var dto SessionDTO
	if err := copier.Copy(&dto, s); err != nil {
		return dto, fmt.Errorf("project session: %w", err)
	}
	return dto, nil
}

func toSessionDTOs(sessions []model.AttemptSession) ([]SessionDTO, error) {
	dtos := make([]SessionDTO, 0, len(sessions))
	if err := copier.Copy(&dtos, &sessions); err != nil {
		return nil, fmt.Errorf("project sessions: %w", err)
	}
	return dtos, nil
}

func toSectionDTOs(sections []model.SectionAttempt) ([]SectionDTO, error) {
	dtos := make([]SectionDTO, 0, len(sections))
	if err := copier.Copy(&dtos, &sections); err != nil {
		return nil, fmt.Errorf("project sections: %w", err)
	}
	return dtos, nil
}

func toQuestionDTOs(questions []model.QuestionAttempt) ([]QuestionDTO, error) {
	dtos := make([]QuestionDTO, len(questions))
	for i := range questions {
		q := &questions[i]
		if err := copier.Copy(&dtos[i], q); err != nil {
			return nil, fmt.Errorf("project question: %w", err)
		}
		if err := copier.Copy(&dtos[i].Question, &q.OriginalQuestion); err != nil {
			return nil, fmt.Errorf("project prompt: %w", err)
		}
	}
	return dtos, nil
}

func toSectionViewDTO(v *service.SectionView) (*SectionViewDTO, error) {
	session, err := toSessionDTO(v.Session)
	if err != nil {
		return nil, err
	}
	var section SectionDTO
	if err := copier.Copy(&section, v.Section); err != nil {
		return nil, fmt.Errorf("project section: %w", err)
	}
	questions, err := toQuestionDTOs(v.Questions)
	if err != nil {
		return nil, err
	}

	return &SectionViewDTO{
		Session:       session,
		Section:       section,
		Questions:     questions,
		AnsweredCount: v.AnsweredCount,
		Timer:         v.Timer,
		Completed:     v.Completed,
		Result:        v.Result,
	}, nil
}

func toResultViewDTO(v *service.ResultView) (*ResultViewDTO, error) {
	session, err := toSessionDTO(v.Session)
	if err != nil {
		return nil, err
	}
	sections, err := toSectionDTOs(v.Sections)
	if err != nil {
		return nil, err
	}
	return &ResultViewDTO{Session: session, Sections: sections}, nil
}
