package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assessment/internal/event"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/repository"
)

// AttemptStore is the persisted attempt aggregate.
type AttemptStore interface {
	FindStarted(ctx context.Context, key model.AttemptKey) (*model.AttemptSession, error)
	CountCompleted(ctx context.Context, key model.AttemptKey) (int, error)
	Create(ctx context.Context, draft *model.AttemptDraft, admit repository.AdmitFunc) (*model.AttemptSession, bool, error)
	GetByCode(ctx context.Context, code string) (*model.AttemptSession, error)
	ListByUserExam(ctx context.Context, userID int, examID uuid.UUID) ([]model.AttemptSession, error)
	ListSections(ctx context.Context, sessionID uuid.UUID) ([]model.SectionAttempt, error)
	GetSection(ctx context.Context, sessionID, sectionID uuid.UUID) (*model.SectionAttempt, error)
	ListQuestions(ctx context.Context, sessionID, sectionID uuid.UUID) ([]model.QuestionAttempt, error)
	CountAnswered(ctx context.Context, sessionID, sectionID uuid.UUID) (int, error)
	UpdateQuestion(ctx context.Context, u repository.QuestionUpdate) (*model.QuestionAttempt, int, error)
	Finalize(ctx context.Context, sessionID uuid.UUID, totalTimeTaken *int, compute repository.FinalizeFunc) (*model.SessionResult, bool, error)
	CompletedBests(ctx context.Context, examID uuid.UUID, scheduleID *uuid.UUID, limit int) ([]model.LeaderboardEntry, error)
}

// ExamCatalog reads exam templates and schedules.
type ExamCatalog interface {
	Template(ctx context.Context, examID uuid.UUID) (*model.ExamTemplate, error)
	Schedule(ctx context.Context, scheduleID uuid.UUID) (*model.Schedule, error)
}

// QuestionBank selects questions for a section and grades answers.
type QuestionBank interface {
	SelectQuestions(ctx context.Context, section model.Section) ([]model.Question, error)
	EvaluateAnswer(q model.QuestionSnapshot, answer json.RawMessage) (bool, error)
}

// Wallet is the point ledger used for redemption.
type Wallet interface {
	Balance(ctx context.Context, userID int) (int, error)
	Debit(ctx context.Context, userID, amount int, memo string) error
}

// Subscriptions answers whether a user holds a live subscription.
type Subscriptions interface {
	IsActive(ctx context.Context, userID int, categoryID *int) (bool, error)
}

// DebitQueue accepts debits that failed after a session was committed.
type DebitQueue interface {
	Enqueue(ctx context.Context, job model.DebitJob) error
}

// CacheInvalidator drops cached entries so the next read reloads them.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, keys ...string)
}

// EventPublisher emits attempt lifecycle events.
type EventPublisher interface {
	PublishAttemptStarted(ctx context.Context, e *event.AttemptStartedEvent) error
	PublishAttemptFinalized(ctx context.Context, e *event.AttemptFinalizedEvent) error
}
