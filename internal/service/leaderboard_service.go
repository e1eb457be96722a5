package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assessment/internal/cache"
	"github.com/stemsi/exstem-assessment/internal/config"
	"github.com/stemsi/exstem-assessment/internal/model"
)

// DefaultLeaderboardLimit caps the number of ranked entries returned.
const DefaultLeaderboardLimit = 100

// LeaderboardService ranks completed attempts by best score.
type LeaderboardService struct {
	store   AttemptStore
	catalog ExamCatalog
	cache   *cache.Store
	ttl     time.Duration
}

// NewLeaderboardService creates a new LeaderboardService.
func NewLeaderboardService(store AttemptStore, catalog ExamCatalog, lbCache *cache.Store, ttl time.Duration) *LeaderboardService {
	return &LeaderboardService{store: store, catalog: catalog, cache: lbCache, ttl: ttl}
}

// ForExam ranks every completed attempt of an exam.
func (s *LeaderboardService) ForExam(ctx context.Context, examID uuid.UUID) ([]model.LeaderboardEntry, error) {
	if err := s.ensureVisible(ctx, examID); err != nil {
		return nil, err
	}
	return cache.Fetch(ctx, s.cache, config.CacheKey.ExamLeaderboardKey(examID.String()), s.ttl,
		func(ctx context.Context) ([]model.LeaderboardEntry, error) {
			return s.load(ctx, examID, nil)
		})
}

// ForSchedule ranks the completed attempts taken under one schedule.
func (s *LeaderboardService) ForSchedule(ctx context.Context, scheduleID uuid.UUID) ([]model.LeaderboardEntry, error) {
	sched, err := s.catalog.Schedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureVisible(ctx, sched.ExamID); err != nil {
		return nil, err
	}
	return cache.Fetch(ctx, s.cache, config.CacheKey.ScheduleLeaderboardKey(scheduleID.String()), s.ttl,
		func(ctx context.Context) ([]model.LeaderboardEntry, error) {
			return s.load(ctx, sched.ExamID, &scheduleID)
		})
}

func (s *LeaderboardService) ensureVisible(ctx context.Context, examID uuid.UUID) error {
	tmpl, err := s.catalog.Template(ctx, examID)
	if err != nil {
		return err
	}
	if !tmpl.Exam.Settings.ShowLeaderboard {
		return ErrLeaderboardHidden
	}
	return nil
}

func (s *LeaderboardService) load(ctx context.Context, examID uuid.UUID, scheduleID *uuid.UUID) ([]model.LeaderboardEntry, error) {
	entries, err := s.store.CompletedBests(ctx, examID, scheduleID, DefaultLeaderboardLimit)
	if err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}
	if entries == nil {
		entries = []model.LeaderboardEntry{}
	}
	return entries, nil
}
