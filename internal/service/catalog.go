package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assessment/internal/cache"
	"github.com/stemsi/exstem-assessment/internal/config"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/repository"
)

// scheduleCacheTTL is kept short so a cancelled schedule closes quickly.
const scheduleCacheTTL = time.Minute

// TemplateReader loads an exam with its sections.
type TemplateReader interface {
	GetTemplate(ctx context.Context, examID uuid.UUID) (*model.ExamTemplate, error)
}

// ScheduleReader loads a schedule.
type ScheduleReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Schedule, error)
}

// CachedCatalog serves exam templates and schedules through Redis.
type CachedCatalog struct {
	exams     TemplateReader
	schedules ScheduleReader
	cache     *cache.Store
	ttl       time.Duration
}

// NewCachedCatalog creates a new CachedCatalog.
func NewCachedCatalog(exams TemplateReader, schedules ScheduleReader, store *cache.Store, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{exams: exams, schedules: schedules, cache: store, ttl: ttl}
}

// Template returns the exam template or ErrExamNotAvailable.
func (c *CachedCatalog) Template(ctx context.Context, examID uuid.UUID) (*model.ExamTemplate, error) {
	return cache.Fetch(ctx, c.cache, config.CacheKey.ExamTemplateKey(examID.String()), c.ttl,
		func(ctx context.Context) (*model.ExamTemplate, error) {
			t, err := c.exams.GetTemplate(ctx, examID)
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrExamNotAvailable
			}
			return t, err
		})
}

// Schedule returns the schedule or ErrScheduleClosed when it does not exist.
func (c *CachedCatalog) Schedule(ctx context.Context, scheduleID uuid.UUID) (*model.Schedule, error) {
	return cache.Fetch(ctx, c.cache, config.CacheKey.ScheduleKey(scheduleID.String()), scheduleCacheTTL,
		func(ctx context.Context) (*model.Schedule, error) {
			s, err := c.schedules.GetByID(ctx, scheduleID)
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrScheduleClosed
			}
			return s, err
		})
}
