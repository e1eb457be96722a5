package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WalletRepository is the point ledger used for paid-exam redemption.
type WalletRepository struct {
	pool *pgxpool.Pool
}

// NewWalletRepository creates a new WalletRepository.
func NewWalletRepository(pool *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{pool: pool}
}

// Balance returns the user's point balance. A user without an account has 0.
func (r *WalletRepository) Balance(ctx context.Context, userID int) (int, error) {
	var balance int
	err := r.pool.QueryRow(ctx,
		`SELECT balance FROM wallet_accounts WHERE user_id = $1`, userID,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return balance, nil
}

// Debit subtracts amount from the user's balance. The memo is unique in the
// ledger, so replaying a debit with the same memo is a no-op.
func (r *WalletRepository) Debit(ctx context.Context, userID, amount int, memo string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var balance int
		err := tx.QueryRow(ctx,
			`SELECT balance FROM wallet_accounts WHERE user_id = $1 FOR UPDATE`, userID,
		).Scan(&balance)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrInsufficientFunds
			}
			return fmt.Errorf("lock wallet: %w", err)
		}

		tag, err := tx.Exec(ctx,
			`INSERT INTO wallet_transactions (user_id, amount, memo)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (memo) DO NOTHING`,
			userID, -amount, memo)
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}

		if balance < amount {
			return ErrInsufficientFunds
		}

		_, err = tx.Exec(ctx,
			`UPDATE wallet_accounts SET balance = balance - $2, updated_at = NOW() WHERE user_id = $1`,
			userID, amount)
		return err
	})
}
