package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/repository"
	"github.com/stemsi/exstem-assessment/internal/timer"
)

// AccessDecision is the outcome of a successful gate evaluation. Exactly
// one of Resume or a fresh start (Resume == nil) applies.
type AccessDecision struct {
	Resume *model.AttemptSession
	// Redeem is set when the attempt is paid for with points. The debit
	// happens only after the session is committed.
	Redeem bool
	Points int
}

// AccessGate decides whether a learner may start or resume an attempt.
// It never mutates state.
type AccessGate struct {
	store  AttemptStore
	wallet Wallet
	subs   Subscriptions
	clock  timer.Clock
}

// NewAccessGate creates a new AccessGate.
func NewAccessGate(store AttemptStore, wallet Wallet, subs Subscriptions, clock timer.Clock) *AccessGate {
	return &AccessGate{store: store, wallet: wallet, subs: subs, clock: clock}
}

// Evaluate runs the gate checks in order: resume, attempt count, schedule
// window and group, then paid access.
func (g *AccessGate) Evaluate(ctx context.Context, who Identity, tmpl *model.ExamTemplate, sched *model.Schedule) (*AccessDecision, error) {
	key := attemptKey(who, tmpl, sched)

	existing, err := g.store.FindStarted(ctx, key)
	if err == nil {
		return &AccessDecision{Resume: existing}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("find started session: %w", err)
	}

	completed, err := g.store.CountCompleted(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("count completed sessions: %w", err)
	}
	if err := AdmitAttempt(&tmpl.Exam, sched, completed); err != nil {
		return nil, err
	}

	if sched != nil {
		if !sched.IsOpen(g.clock.Now()) {
			return nil, ErrScheduleClosed
		}
		if !sched.AllowsGroup(who.GroupIDs) {
			return nil, ErrAccessDenied
		}
	}

	redeem, err := g.checkPaid(ctx, who, &tmpl.Exam)
	if err != nil {
		return nil, err
	}
	decision := &AccessDecision{Redeem: redeem}
	if redeem {
		decision.Points = tmpl.Exam.PointsRequired
	}
	return decision, nil
}

// AdmitAttempt applies the attempt-count rule to a number of completed
// sessions. Scheduled attempts are single-shot.
func AdmitAttempt(exam *model.Exam, sched *model.Schedule, completed int) error {
	if sched != nil {
		if completed >= 1 {
			return ErrAttemptLimitReached
		}
		return nil
	}
	if exam.Settings.RestrictAttempts && completed >= exam.Settings.NoOfAttempts {
		return ErrAttemptLimitReached
	}
	return nil
}

func (g *AccessGate) checkPaid(ctx context.Context, who Identity, exam *model.Exam) (bool, error) {
	if !exam.IsPaid {
		return false, nil
	}

	active, err := g.subs.IsActive(ctx, who.UserID, exam.CategoryID)
	if err != nil {
		return false, fmt.Errorf("check subscription: %w", err)
	}
	if active {
		return false, nil
	}

	if !exam.CanRedeem {
		return false, ErrSubscriptionRequired
	}

	balance, err := g.wallet.Balance(ctx, who.UserID)
	if err != nil {
		return false, fmt.Errorf("read wallet balance: %w", err)
	}
	if balance < exam.PointsRequired {
		return false, ErrInsufficientBalance
	}
	return true, nil
}

func attemptKey(who Identity, tmpl *model.ExamTemplate, sched *model.Schedule) model.AttemptKey {
	key := model.AttemptKey{UserID: who.UserID, ExamID: tmpl.Exam.ID}
	if sched != nil {
		id := sched.ID
		key.ScheduleID = &id
	}
	return key
}
