package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-assessment/internal/config"
	"github.com/stemsi/exstem-assessment/internal/handler"
	"github.com/stemsi/exstem-assessment/internal/middleware"
	"github.com/stemsi/exstem-assessment/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Attempt     *handler.AttemptHandler
	Leaderboard *handler.LeaderboardHandler
	WS          *handler.WSHandler
	System      *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// startLimiter throttles session creation per learner; nil disables it.
func SetupRouter(
	auth middleware.TokenValidator,
	handlers *Handlers,
	startLimiter *middleware.RateLimiter,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally. Upgrade requests pass through.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", middleware.NoStore(), handlers.System.Health)

	// ─── 1. Attempt Group (Learner JWT) ────────────────────────────────
	attempts := router.Group("/api/v1/attempts")
	attempts.Use(middleware.RequireLearnerJWT(auth), middleware.NoStore())
	{
		start := []gin.HandlerFunc{handlers.Attempt.Start}
		if startLimiter != nil {
			start = append([]gin.HandlerFunc{startLimiter.Middleware()}, start...)
		}
		attempts.POST("", start...)
		attempts.GET("/mine", handlers.Attempt.MySessions)

		attempts.GET("/:code/sections/:section_id", handlers.Attempt.SectionQuestions)
		attempts.POST("/:code/answers", handlers.Attempt.SubmitAnswer)
		attempts.POST("/:code/answers/clear", handlers.Attempt.ClearAnswer)
		attempts.POST("/:code/review", handlers.Attempt.ToggleReview)
		attempts.POST("/:code/navigate", handlers.Attempt.Navigate)
		attempts.POST("/:code/finish", handlers.Attempt.Finish)
		attempts.GET("/:code/results", handlers.Attempt.Results)
	}

	// ─── 2. Leaderboard Group (Learner JWT, Short Cache) ───────────────
	boards := router.Group("/api/v1/leaderboards")
	boards.Use(middleware.RequireLearnerJWT(auth), middleware.CacheControl(cfg.LeaderboardCacheTTL))
	{
		boards.GET("/exams/:exam_id", handlers.Leaderboard.ForExam)
		boards.GET("/schedules/:schedule_id", handlers.Leaderboard.ForSchedule)
	}

	// ─── 3. WebSocket Group (Learner WS Auth) ───────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireLearnerWSAuth(auth))
	{
		ws.GET("/attempts/:code/stream", handlers.WS.AttemptStream)
	}

	return router
}
