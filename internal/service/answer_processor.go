package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assessment/internal/grading"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/repository"
	"github.com/stemsi/exstem-assessment/internal/scoring"
	"github.com/stemsi/exstem-assessment/internal/timer"
)

// SubmitAnswerInput is one answer submission.
type SubmitAnswerInput struct {
	Code            string
	SectionID       uuid.UUID
	QuestionID      uuid.UUID
	Answer          json.RawMessage
	Status          model.QuestionStatus
	TimeTaken       int
	CurrentSection  *uuid.UUID
	CurrentQuestion *uuid.UUID
}

// AnswerOutcome reports the state after a question write.
type AnswerOutcome struct {
	AnsweredCount int                  `json:"answered_count"`
	Status        model.QuestionStatus `json:"status,omitempty"`
	// Completed is set when the write was skipped because the session is
	// sealed. It is not an error.
	Completed bool        `json:"completed"`
	Timer     timer.State `json:"timer"`
}

type applyFunc func(q *model.QuestionAttempt, cfg scoring.Config) error

// SubmitAnswer grades and stores an answer and returns the section's
// answered count. Resubmitting overwrites the previous answer.
func (s *AttemptService) SubmitAnswer(ctx context.Context, who Identity, in SubmitAnswerInput) (*AnswerOutcome, error) {
	if !in.Status.IsAnswered() {
		return nil, fmt.Errorf("%w: status must be answered or answered_mark_for_review", ErrValidation)
	}

	pos := &model.Navigation{SectionID: in.SectionID, QuestionID: in.QuestionID}
	if in.CurrentSection != nil && in.CurrentQuestion != nil {
		pos = &model.Navigation{SectionID: *in.CurrentSection, QuestionID: *in.CurrentQuestion}
	}

	return s.mutate(ctx, who, in.Code, in.SectionID, in.QuestionID, pos, func(q *model.QuestionAttempt, cfg scoring.Config) error {
		var outcome scoring.Outcome
		correct, err := s.bank.EvaluateAnswer(q.OriginalQuestion, in.Answer)
		switch {
		case errors.Is(err, grading.ErrMalformedKey):
			// Stored as incorrect with no marks either way.
			if verr := grading.ValidateAnswer(q.OriginalQuestion, in.Answer); verr != nil {
				return fmt.Errorf("%w: %v", ErrValidation, verr)
			}
			s.log.Error().Err(err).
				Str("session_code", in.Code).
				Str("question_id", q.QuestionID.String()).
				Msg("Answer key is malformed, storing answer as incorrect")
		case errors.Is(err, grading.ErrMalformedAnswer):
			return fmt.Errorf("%w: %v", ErrValidation, err)
		case err != nil:
			return fmt.Errorf("evaluate answer: %w", err)
		default:
			if outcome, err = scoring.Score(cfg, q.OriginalQuestion, correct); err != nil {
				return fmt.Errorf("score answer: %w", err)
			}
		}

		q.UserAnswer = in.Answer
		q.IsCorrect = &outcome.IsCorrect
		q.MarksEarned = outcome.MarksEarned
		q.MarksDeducted = outcome.MarksDeducted
		q.Status = in.Status
		q.TimeTaken = max(q.TimeTaken, in.TimeTaken)
		return nil
	})
}

// ClearAnswer removes a stored answer and its marks. A question marked for
// review stays marked.
func (s *AttemptService) ClearAnswer(ctx context.Context, who Identity, code string, sectionID, questionID uuid.UUID) (*AnswerOutcome, error) {
	return s.mutate(ctx, who, code, sectionID, questionID, nil, func(q *model.QuestionAttempt, _ scoring.Config) error {
		q.UserAnswer = nil
		q.IsCorrect = nil
		q.MarksEarned = 0
		q.MarksDeducted = 0
		q.Status = scoring.Clear(q.Status)
		return nil
	})
}

// ToggleReview flips the mark-for-review flag of a question.
func (s *AttemptService) ToggleReview(ctx context.Context, who Identity, code string, sectionID, questionID uuid.UUID) (*AnswerOutcome, error) {
	return s.mutate(ctx, who, code, sectionID, questionID, nil, func(q *model.QuestionAttempt, _ scoring.Config) error {
		q.Status = scoring.ToggleReview(q.Status, q.HasAnswer())
		return nil
	})
}

// Navigate moves the session cursor to a question, marks it seen and adds
// the reported seconds to the section and session totals.
func (s *AttemptService) Navigate(ctx context.Context, who Identity, code string, nav model.Navigation) (*AnswerOutcome, error) {
	pos := nav
	return s.mutate(ctx, who, code, nav.SectionID, nav.QuestionID, &pos, func(q *model.QuestionAttempt, _ scoring.Config) error {
		q.Status = scoring.Visit(q.Status)
		return nil
	})
}

// mutate runs one question write under the session's atomicity boundary.
// Writes against a sealed or expired session resolve to a Completed outcome.
func (s *AttemptService) mutate(ctx context.Context, who Identity, code string, sectionID, questionID uuid.UUID, pos *model.Navigation, apply applyFunc) (*AnswerOutcome, error) {
	session, err := s.loadOwned(ctx, who, code)
	if err != nil {
		return nil, err
	}

	section, err := s.store.GetSection(ctx, session.ID, sectionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: section is not part of this attempt", ErrValidation)
		}
		return nil, fmt.Errorf("get section: %w", err)
	}

	state := timer.Evaluate(s.clock.Now(), session.EndsAt, section.EndsAt, s.forceThreshold)
	if session.IsCompleted() {
		return s.sealedOutcome(ctx, session, sectionID, state)
	}
	if state.SessionExpired {
		if _, err := s.finalizer.Finalize(ctx, session, nil); err != nil {
			return nil, err
		}
		return s.sealedOutcome(ctx, session, sectionID, state)
	}

	tmpl, err := s.catalog.Template(ctx, session.ExamID)
	if err != nil {
		return nil, fmt.Errorf("load exam template: %w", err)
	}
	cfg := scoring.ConfigFor(tmpl.Exam.Settings, section.Marking)

	q, answered, err := s.store.UpdateQuestion(ctx, repository.QuestionUpdate{
		SessionID:  session.ID,
		SectionID:  sectionID,
		QuestionID: questionID,
		Position:   pos,
		Apply: func(q *model.QuestionAttempt) error {
			return apply(q, cfg)
		},
	})
	switch {
	case errors.Is(err, repository.ErrSessionCompleted):
		return s.sealedOutcome(ctx, session, sectionID, state)
	case errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("%w: question is not part of this section", ErrValidation)
	case err != nil:
		if errors.Is(err, ErrValidation) {
			return nil, err
		}
		return nil, fmt.Errorf("update question: %w", err)
	}

	return &AnswerOutcome{AnsweredCount: answered, Status: q.Status, Timer: state}, nil
}

func (s *AttemptService) sealedOutcome(ctx context.Context, session *model.AttemptSession, sectionID uuid.UUID, state timer.State) (*AnswerOutcome, error) {
	n, err := s.store.CountAnswered(ctx, session.ID, sectionID)
	if err != nil {
		return nil, fmt.Errorf("count answered: %w", err)
	}
	return &AnswerOutcome{AnsweredCount: n, Completed: true, Timer: state}, nil
}
