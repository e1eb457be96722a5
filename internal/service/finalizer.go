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
	"github.com/stemsi/exstem-assessment/internal/scoring"
	"github.com/stemsi/exstem-assessment/internal/timer"
)

// Finalizer seals an attempt exactly once and computes its result documents.
type Finalizer struct {
	store   AttemptStore
	catalog ExamCatalog
	events  EventPublisher
	boards  CacheInvalidator
	clock   timer.Clock
	log     zerolog.Logger
}

// NewFinalizer creates a new Finalizer. boards may be nil when leaderboards
// are not cached.
func NewFinalizer(store AttemptStore, catalog ExamCatalog, events EventPublisher, boards CacheInvalidator, clock timer.Clock, log zerolog.Logger) *Finalizer {
	return &Finalizer{
		store:   store,
		catalog: catalog,
		events:  events,
		boards:  boards,
		clock:   clock,
		log:     log.With().Str("component", "finalizer").Logger(),
	}
}

// Finalize completes the session and returns its result. Calling it on a
// completed session returns the stored result unchanged. totalTimeTaken,
// when given, raises the recorded total but never lowers it.
func (f *Finalizer) Finalize(ctx context.Context, session *model.AttemptSession, totalTimeTaken *int) (*model.SessionResult, error) {
	if session.IsCompleted() && session.Results != nil {
		return session.Results, nil
	}

	tmpl, err := f.catalog.Template(ctx, session.ExamID)
	if err != nil {
		return nil, fmt.Errorf("load exam template: %w", err)
	}

	now := f.clock.Now()
	result, won, err := f.store.Finalize(ctx, session.ID, totalTimeTaken,
		func(s *model.AttemptSession, sections []model.SectionAttempt, questions []model.QuestionAttempt) (*model.SessionResult, error) {
			return ComputeResults(&tmpl.Exam, sections, questions, s.TotalTimeTaken, now), nil
		})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("finalize session: %w", err)
	}

	if won {
		f.log.Info().
			Str("session_code", session.Code).
			Int("user_id", session.UserID).
			Float64("score", result.Score).
			Msg("Attempt finalized")
		f.invalidateLeaderboards(ctx, session)
		if err := f.events.PublishAttemptFinalized(ctx, event.NewAttemptFinalizedEvent(session, *result)); err != nil {
			f.log.Warn().Err(err).Str("session_code", session.Code).Msg("Publish attempt.finalized failed")
		}
	}
	return result, nil
}

func (f *Finalizer) invalidateLeaderboards(ctx context.Context, session *model.AttemptSession) {
	if f.boards == nil {
		return
	}
	keys := []string{config.CacheKey.ExamLeaderboardKey(session.ExamID.String())}
	if session.ScheduleID != nil {
		keys = append(keys, config.CacheKey.ScheduleLeaderboardKey(session.ScheduleID.String()))
	}
	f.boards.Invalidate(ctx, keys...)
}

// ComputeResults fills Results on every section and returns the session
// aggregate. Section scores may be negative; the session score is clamped
// at zero.
func ComputeResults(exam *model.Exam, sections []model.SectionAttempt, questions []model.QuestionAttempt, totalTimeTaken int, completedAt time.Time) *model.SessionResult {
	bySection := make(map[uuid.UUID][]model.QuestionAttempt, len(sections))
	for _, q := range questions {
		bySection[q.SectionID] = append(bySection[q.SectionID], q)
	}

	res := &model.SessionResult{
		TotalQuestions: len(questions),
		TimeTaken:      totalTimeTaken,
		CompletedAt:    completedAt,
	}
	cutoffsCleared, hasCutoff := true, false

	for i := range sections {
		sr := sectionResult(exam, &sections[i], bySection[sections[i].SectionID])
		sections[i].Results = sr

		res.TotalMarks += sr.MaxScore
		res.MarksEarned += sr.MarksEarned
		res.MarksDeducted += sr.MarksDeducted
		res.Correct += sr.Correct
		res.Incorrect += sr.Incorrect
		res.Unanswered += sr.Unanswered
		if sr.CutoffCleared != nil {
			hasCutoff = true
			cutoffsCleared = cutoffsCleared && *sr.CutoffCleared
		}
	}

	res.TotalMarks = scoring.Round2(res.TotalMarks)
	res.MarksEarned = scoring.Round2(res.MarksEarned)
	res.MarksDeducted = scoring.Round2(res.MarksDeducted)
	res.Score = max(scoring.Round2(res.MarksEarned-res.MarksDeducted), 0)
	res.Percentage = percentage(res.Score, res.TotalMarks)

	if exam.PassPercentage != nil || hasCutoff {
		passed := cutoffsCleared
		if exam.PassPercentage != nil {
			passed = passed && res.Percentage >= *exam.PassPercentage
		}
		status := model.ResultFailed
		if passed {
			status = model.ResultPassed
		}
		res.Status = &status
	}
	return res
}

func sectionResult(exam *model.Exam, sa *model.SectionAttempt, questions []model.QuestionAttempt) *model.SectionResult {
	cfg := scoring.ConfigFor(exam.Settings, sa.Marking)
	sr := &model.SectionResult{TimeTaken: sa.TotalTimeTaken}

	for _, q := range questions {
		sr.MaxScore += scoring.QuestionMarks(cfg, q.OriginalQuestion)
		sr.MarksEarned += q.MarksEarned
		sr.MarksDeducted += q.MarksDeducted
		switch {
		case !q.Status.IsAnswered() || q.IsCorrect == nil:
			sr.Unanswered++
		case *q.IsCorrect:
			sr.Correct++
		default:
			sr.Incorrect++
		}
	}

	sr.MaxScore = scoring.Round2(sr.MaxScore)
	sr.MarksEarned = scoring.Round2(sr.MarksEarned)
	sr.MarksDeducted = scoring.Round2(sr.MarksDeducted)
	sr.Score = scoring.Round2(sr.MarksEarned - sr.MarksDeducted)
	sr.Percentage = percentage(sr.Score, sr.MaxScore)

	if cutoff := sa.Marking.SectionCutoff; cutoff != nil {
		cleared := sr.Score >= *cutoff
		sr.CutoffCleared = &cleared
	}
	return sr
}

func percentage(score, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return scoring.Round2(score / total * 100)
}
