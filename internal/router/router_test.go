package router

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/config"
	"github.com/stemsi/exstem-assessment/internal/handler"
	"github.com/stemsi/exstem-assessment/internal/middleware"
	"github.com/stemsi/exstem-assessment/internal/service"
)

type rejectAll struct{}

func (rejectAll) ValidateToken(string) (*service.Claims, error) {
	return nil, errors.New("invalid")
}

func newTestRouter() *gin.Engine {
	log := zerolog.Nop()
	handlers := &Handlers{
		Attempt:     handler.NewAttemptHandler(nil, log),
		Leaderboard: handler.NewLeaderboardHandler(nil, log),
		WS:          handler.NewWSHandler(nil, log, nil),
		System:      handler.NewSystemHandler(nil, nil, log),
	}
	cfg := &config.Config{GinMode: gin.TestMode, LeaderboardCacheTTL: 30 * time.Second}
	return SetupRouter(rejectAll{}, handlers, middleware.NewRateLimiter(5, time.Minute), cfg)
}

func TestRoutesRegistered(t *testing.T) {
	r := newTestRouter()

	want := map[string]bool{
		"GET /health":                                     false,
		"POST /api/v1/attempts":                           false,
		"GET /api/v1/attempts/mine":                       false,
		"GET /api/v1/attempts/:code/sections/:section_id": false,
		"POST /api/v1/attempts/:code/answers":             false,
		"POST /api/v1/attempts/:code/answers/clear":       false,
		"POST /api/v1/attempts/:code/review":              false,
		"POST /api/v1/attempts/:code/navigate":            false,
		"POST /api/v1/attempts/:code/finish":              false,
		"GET /api/v1/attempts/:code/results":              false,
		"GET /api/v1/leaderboards/exams/:exam_id":         false,
		"GET /api/v1/leaderboards/schedules/:schedule_id": false,
		"GET /ws/v1/attempts/:code/stream":                false,
	}
	for _, route := range r.Routes() {
		key := route.Method + " " + route.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for route, found := range want {
		if !found {
			t.Errorf("route %s not registered", route)
		}
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r := newTestRouter()

	tests := []struct {
		method string
		path   string
		header string
		want   int
	}{
		{http.MethodGet, "/api/v1/attempts/mine", "", http.StatusUnauthorized},
		{http.MethodPost, "/api/v1/attempts/abc/finish", "Bearer bogus", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/leaderboards/exams/x", "", http.StatusUnauthorized},
		{http.MethodGet, "/ws/v1/attempts/abc/stream", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestHealthIsUncached(t *testing.T) {
	r := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}
