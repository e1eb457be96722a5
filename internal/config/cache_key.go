package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ExamTemplateKey returns the cache key for an exam with its sections
func (r *CacheKeyStruct) ExamTemplateKey(examID string) string {
	return fmt.Sprintf("exam:%s:template", examID)
}

// ScheduleKey returns the cache key for a schedule definition
func (r *CacheKeyStruct) ScheduleKey(scheduleID string) string {
	return fmt.Sprintf("schedule:%s", scheduleID)
}

// ExamLeaderboardKey returns the cache key for an exam-wide leaderboard
func (r *CacheKeyStruct) ExamLeaderboardKey(examID string) string {
	return fmt.Sprintf("leaderboard:exam:%s", examID)
}

// ScheduleLeaderboardKey returns the cache key for a schedule leaderboard
func (r *CacheKeyStruct) ScheduleLeaderboardKey(scheduleID string) string {
	return fmt.Sprintf("leaderboard:schedule:%s", scheduleID)
}

var CacheKey = NewCacheKeyStruct()
