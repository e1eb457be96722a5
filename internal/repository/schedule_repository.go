package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-assessment/internal/model"
)

// ScheduleRepository reads exam schedules.
type ScheduleRepository struct {
	pool *pgxpool.Pool
}

// NewScheduleRepository creates a new ScheduleRepository.
func NewScheduleRepository(pool *pgxpool.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

// GetByID retrieves a schedule with its eligible group ids.
func (r *ScheduleRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Schedule, error) {
	s := &model.Schedule{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, schedule_type, starts_at, ends_at, grace_period_minutes, status, group_ids
		 FROM schedules WHERE id = $1`, id,
	).Scan(&s.ID, &s.ExamID, &s.ScheduleType, &s.StartsAt, &s.EndsAt, &s.GracePeriodMinutes, &s.Status, &s.GroupIDs)
	if err != nil {
		return nil, notFound(err)
	}
	return s, nil
}
