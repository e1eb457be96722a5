package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/timer"
)

// SessionBuilder assembles a new attempt in memory. Nothing is persisted
// here; the store writes the whole draft in one transaction.
type SessionBuilder struct {
	bank  QuestionBank
	clock timer.Clock
}

// NewSessionBuilder creates a new SessionBuilder.
func NewSessionBuilder(bank QuestionBank, clock timer.Clock) *SessionBuilder {
	return &SessionBuilder{bank: bank, clock: clock}
}

// Build selects questions for every section and computes absolute
// deadlines. Session and section deadlines are both measured from now and
// are independent of any schedule window.
func (b *SessionBuilder) Build(ctx context.Context, who Identity, tmpl *model.ExamTemplate, sched *model.Schedule) (*model.AttemptDraft, error) {
	if len(tmpl.Sections) == 0 {
		return nil, fmt.Errorf("%w: exam has no sections", ErrExamNotAvailable)
	}

	now := b.clock.Now()
	sessionID := uuid.New()

	draft := &model.AttemptDraft{
		Session: model.AttemptSession{
			ID:       sessionID,
			Code:     uuid.NewString(),
			UserID:   who.UserID,
			ExamID:   tmpl.Exam.ID,
			StartsAt: now,
			EndsAt:   now.Add(tmpl.Exam.Duration()),
			Status:   model.AttemptStatusStarted,
		},
	}
	if sched != nil {
		id := sched.ID
		draft.Session.ScheduleID = &id
	}
	first := tmpl.Sections[0].ID
	draft.Session.CurrentSection = &first

	for _, sec := range tmpl.Sections {
		questions, err := b.bank.SelectQuestions(ctx, sec)
		if err != nil {
			return nil, err
		}
		if len(questions) < sec.TotalQuestions {
			return nil, fmt.Errorf("%w: section %q needs %d, bank has %d",
				ErrQuestionBankExhausted, sec.Name, sec.TotalQuestions, len(questions))
		}

		draft.Sections = append(draft.Sections, model.SectionAttempt{
			SessionID: sessionID,
			SectionID: sec.ID,
			SNo:       sec.SNo,
			Name:      sec.Name,
			StartsAt:  now,
			EndsAt:    now.Add(sec.Duration()),
			Status:    model.SectionNotVisited,
			Marking:   sec.Marking,
		})

		for i := range questions {
			draft.Questions = append(draft.Questions, model.QuestionAttempt{
				SessionID:        sessionID,
				QuestionID:       questions[i].ID,
				SectionID:        sec.ID,
				SNo:              i + 1,
				OriginalQuestion: questions[i].Snapshot(),
				Status:           model.QuestionNotVisited,
			})
		}
	}

	return draft, nil
}
