package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/response"
)

// LeaderboardAPI ranks completed attempts.
type LeaderboardAPI interface {
	ForExam(ctx context.Context, examID uuid.UUID) ([]model.LeaderboardEntry, error)
	ForSchedule(ctx context.Context, scheduleID uuid.UUID) ([]model.LeaderboardEntry, error)
}

// LeaderboardHandler serves exam and schedule leaderboards.
type LeaderboardHandler struct {
	boards LeaderboardAPI
	log    zerolog.Logger
}

// NewLeaderboardHandler creates a new LeaderboardHandler.
func NewLeaderboardHandler(boards LeaderboardAPI, log zerolog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		boards: boards,
		log:    log.With().Str("component", "leaderboard_handler").Logger(),
	}
}

// ForExam godoc
// GET /api/v1/leaderboards/exams/:exam_id
func (h *LeaderboardHandler) ForExam(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	entries, err := h.boards.ForExam(c.Request.Context(), examID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"entries": entries})
}

// ForSchedule godoc
// GET /api/v1/leaderboards/schedules/:schedule_id
func (h *LeaderboardHandler) ForSchedule(c *gin.Context) {
	scheduleID, err := uuid.Parse(c.Param("schedule_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	entries, err := h.boards.ForSchedule(c.Request.Context(), scheduleID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"entries": entries})
}
