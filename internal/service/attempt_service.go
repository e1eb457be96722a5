package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/config"
	"github.com/stemsi/exstem-assessment/internal/event"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/repository"
	"github.com/stemsi/exstem-assessment/internal/timer"
)

// StartResult is returned by StartOrResume.
type StartResult struct {
	Session *model.AttemptSession
	Resumed bool
}

// SectionView is what a learner sees when opening a section.
type SectionView struct {
	Session       *model.AttemptSession
	Section       *model.SectionAttempt
	Questions     []model.QuestionAttempt
	AnsweredCount int
	Timer         timer.State
	// Completed is set when the session is sealed, including when this
	// read sealed it because the session deadline was near.
	Completed bool
	Result    *model.SessionResult
}

// ResultView is the read-only projection of a finished attempt.
type ResultView struct {
	Session  *model.AttemptSession
	Sections []model.SectionAttempt
}

// AttemptService runs the attempt lifecycle: start or resume, section
// reads, answer writes, finish and results.
type AttemptService struct {
	store          AttemptStore
	catalog        ExamCatalog
	bank           QuestionBank
	gate           *AccessGate
	builder        *SessionBuilder
	finalizer      *Finalizer
	wallet         Wallet
	debits         DebitQueue
	events         EventPublisher
	clock          timer.Clock
	forceThreshold time.Duration
	log            zerolog.Logger
}

// NewAttemptService creates a new AttemptService and its gate, builder and
// finalizer.
func NewAttemptService(
	cfg *config.Config,
	store AttemptStore,
	catalog ExamCatalog,
	bank QuestionBank,
	wallet Wallet,
	subs Subscriptions,
	debits DebitQueue,
	events EventPublisher,
	boards CacheInvalidator,
	clock timer.Clock,
	log zerolog.Logger,
) *AttemptService {
	threshold := cfg.ForceFinalizeThreshold
	if threshold <= 0 {
		threshold = timer.DefaultForceFinalizeThreshold
	}
	return &AttemptService{
		store:          store,
		catalog:        catalog,
		bank:           bank,
		gate:           NewAccessGate(store, wallet, subs, clock),
		builder:        NewSessionBuilder(bank, clock),
		finalizer:      NewFinalizer(store, catalog, events, boards, clock, log),
		wallet:         wallet,
		debits:         debits,
		events:         events,
		clock:          clock,
		forceThreshold: threshold,
		log:            log.With().Str("component", "attempt_service").Logger(),
	}
}

// StartOrResume returns the learner's started session for the exam (and
// schedule), or creates one after the access gate admits it.
func (s *AttemptService) StartOrResume(ctx context.Context, who Identity, examID uuid.UUID, scheduleID *uuid.UUID) (*StartResult, error) {
	// A started session resumes even if the exam was unpublished or the
	// schedule closed after it began.
	key := model.AttemptKey{UserID: who.UserID, ExamID: examID, ScheduleID: scheduleID}
	existing, err := s.store.FindStarted(ctx, key)
	if err == nil {
		return &StartResult{Session: existing, Resumed: true}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("find started session: %w", err)
	}

	tmpl, err := s.catalog.Template(ctx, examID)
	if err != nil {
		return nil, err
	}
	if tmpl.Exam.Status != model.ExamStatusPublished {
		return nil, ErrExamNotAvailable
	}

	var sched *model.Schedule
	if scheduleID != nil {
		sched, err = s.catalog.Schedule(ctx, *scheduleID)
		if err != nil {
			return nil, err
		}
		if sched.ExamID != examID {
			return nil, ErrScheduleClosed
		}
	}

	decision, err := s.gate.Evaluate(ctx, who, tmpl, sched)
	if err != nil {
		return nil, err
	}
	if decision.Resume != nil {
		return &StartResult{Session: decision.Resume, Resumed: true}, nil
	}

	draft, err := s.builder.Build(ctx, who, tmpl, sched)
	if err != nil {
		return nil, err
	}

	session, created, err := s.store.Create(ctx, draft, func(completed int) error {
		return AdmitAttempt(&tmpl.Exam, sched, completed)
	})
	if err != nil {
		if errors.Is(err, ErrAttemptLimitReached) {
			return nil, err
		}
		return nil, fmt.Errorf("create attempt: %w", err)
	}
	if !created {
		return &StartResult{Session: session, Resumed: true}, nil
	}

	s.log.Info().
		Str("session_code", session.Code).
		Int("user_id", who.UserID).
		Str("exam_id", examID.String()).
		Msg("Attempt started")

	if decision.Redeem {
		s.redeem(ctx, session, decision.Points)
	}
	if err := s.events.PublishAttemptStarted(ctx, event.NewAttemptStartedEvent(session, decision.Redeem)); err != nil {
		s.log.Warn().Err(err).Str("session_code", session.Code).Msg("Publish attempt.started failed")
	}

	return &StartResult{Session: session}, nil
}

// redeem debits the wallet once for a committed session. A failed debit is
// logged and queued for reconciliation; the attempt stands.
func (s *AttemptService) redeem(ctx context.Context, session *model.AttemptSession, points int) {
	memo := fmt.Sprintf("redeem:%s", session.Code)
	err := s.wallet.Debit(ctx, session.UserID, points, memo)
	if err == nil {
		return
	}

	s.log.Error().Err(err).
		Int("user_id", session.UserID).
		Str("exam_id", session.ExamID.String()).
		Str("session_code", session.Code).
		Int("amount", points).
		Msg("Wallet debit failed, queued for retry")

	job := model.DebitJob{
		UserID:      session.UserID,
		Amount:      points,
		Memo:        memo,
		SessionCode: session.Code,
	}
	if qerr := s.debits.Enqueue(ctx, job); qerr != nil {
		s.log.Error().Err(qerr).Str("session_code", session.Code).Msg("Enqueue debit retry failed")
	}
}

// SectionQuestions returns a section's questions with fresh timer values.
// When less than the force-finalize threshold remains on the session, the
// session is sealed instead and the result is returned.
func (s *AttemptService) SectionQuestions(ctx context.Context, who Identity, code string, sectionID uuid.UUID) (*SectionView, error) {
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

	view := &SectionView{
		Session: session,
		Section: section,
		Timer:   timer.Evaluate(s.clock.Now(), session.EndsAt, section.EndsAt, s.forceThreshold),
	}

	if session.IsCompleted() {
		view.Completed, view.Result = true, session.Results
		return view, nil
	}
	if view.Timer.ForceFinalize {
		res, err := s.finalizer.Finalize(ctx, session, nil)
		if err != nil {
			return nil, err
		}
		view.Completed, view.Result = true, res
		return view, nil
	}

	questions, err := s.store.ListQuestions(ctx, session.ID, sectionID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	view.Questions = questions
	for _, q := range questions {
		if q.Status.IsAnswered() {
			view.AnsweredCount++
		}
	}
	return view, nil
}

// Finish seals the session. Finishing a completed session returns the
// stored result.
func (s *AttemptService) Finish(ctx context.Context, who Identity, code string, totalTimeTaken int) (*model.SessionResult, error) {
	session, err := s.loadOwned(ctx, who, code)
	if err != nil {
		return nil, err
	}
	return s.finalizer.Finalize(ctx, session, &totalTimeTaken)
}

// Results returns the stored result documents. A started session whose
// deadline has passed is finalized first.
func (s *AttemptService) Results(ctx context.Context, who Identity, code string) (*ResultView, error) {
	session, err := s.loadOwned(ctx, who, code)
	if err != nil {
		return nil, err
	}

	if !session.IsCompleted() {
		if !timer.Expired(s.clock.Now(), session.EndsAt) {
			return nil, ErrResultsNotReady
		}
		if _, err := s.finalizer.Finalize(ctx, session, nil); err != nil {
			return nil, err
		}
		if session, err = s.loadOwned(ctx, who, code); err != nil {
			return nil, err
		}
	}

	sections, err := s.store.ListSections(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return &ResultView{Session: session, Sections: sections}, nil
}

// MySessions lists the caller's sessions for an exam, newest first.
func (s *AttemptService) MySessions(ctx context.Context, who Identity, examID uuid.UUID) ([]model.AttemptSession, error) {
	sessions, err := s.store.ListByUserExam(ctx, who.UserID, examID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if sessions == nil {
		sessions = []model.AttemptSession{}
	}
	return sessions, nil
}

// loadOwned resolves a session code and hides sessions owned by others.
func (s *AttemptService) loadOwned(ctx context.Context, who Identity, code string) (*model.AttemptSession, error) {
	session, err := s.store.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session.UserID != who.UserID {
		return nil, ErrSessionNotFound
	}
	return session, nil
}
