package service

import "errors"

// Domain errors surfaced to callers. Already-completed sessions are not in
// this list: writes against them resolve to idempotent success.
var (
	ErrAccessDenied          = errors.New("not eligible for this schedule")
	ErrScheduleClosed        = errors.New("schedule is not open")
	ErrAttemptLimitReached   = errors.New("attempt limit reached")
	ErrInsufficientBalance   = errors.New("insufficient wallet balance to redeem this exam")
	ErrSubscriptionRequired  = errors.New("an active subscription is required for this exam")
	ErrSessionNotFound       = errors.New("attempt session not found")
	ErrValidation            = errors.New("invalid answer payload")
	ErrQuestionBankExhausted = errors.New("question bank has too few questions for a section")
	ErrLeaderboardHidden     = errors.New("leaderboard is not enabled for this exam")
	ErrResultsNotReady       = errors.New("results are not available until the attempt is finished")
	ErrExamNotAvailable      = errors.New("exam is not available")
)
