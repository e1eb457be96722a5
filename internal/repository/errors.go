package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrSessionCompleted is returned by writes against a sealed session.
	ErrSessionCompleted = errors.New("attempt session already completed")
	// ErrInsufficientFunds is returned by a wallet debit that would overdraw.
	ErrInsufficientFunds = errors.New("insufficient wallet balance")
)

// notFound maps pgx.ErrNoRows onto ErrNotFound and passes other errors through.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
