package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SubscriptionRepository answers whether a user holds a live subscription.
type SubscriptionRepository struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepository creates a new SubscriptionRepository.
func NewSubscriptionRepository(pool *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{pool: pool}
}

// IsActive reports whether the user has a current subscription covering the
// category. A subscription without a category covers every category.
func (r *SubscriptionRepository) IsActive(ctx context.Context, userID int, categoryID *int) (bool, error) {
	var active bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM subscriptions
		     WHERE user_id = $1
		       AND (category_id IS NULL OR category_id = $2)
		       AND starts_at <= NOW() AND ends_at > NOW()
		 )`, userID, categoryID,
	).Scan(&active)
	return active, err
}
