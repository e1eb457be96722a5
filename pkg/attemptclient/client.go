// Package attemptclient is a typed HTTP client for the learner attempt API.
package attemptclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultTimeout = 10 * time.Second

// Error codes returned by the server that callers commonly branch on.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeSessionNotFound    = "SESSION_NOT_FOUND"
	CodeResultsNotReady    = "RESULTS_NOT_READY"
	CodeAttemptLimit       = "ATTEMPT_LIMIT_REACHED"
	CodeInsufficientPoints = "INSUFFICIENT_BALANCE"
)

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	Status  int               `json:"-"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("attempt api: %d %s: %s", e.Status, e.Code, e.Message)
}

// IsCode reports whether err is an APIError carrying code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// Client talks to one attempt service as one learner.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default 10s-timeout client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used by the client and its AutoSavers.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New creates a Client. baseURL is the server root, e.g. http://localhost:8080.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: defaultTimeout},
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start returns the learner's started session for the exam or creates one.
// resumed is true when an existing session was returned.
func (c *Client) Start(ctx context.Context, examID, scheduleID string) (session *Session, resumed bool, err error) {
	body := map[string]string{"exam_id": examID}
	if scheduleID != "" {
		body["schedule_id"] = scheduleID
	}
	var out struct {
		Session Session `json:"session"`
		Resumed bool    `json:"resumed"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/attempts", body, &out); err != nil {
		return nil, false, err
	}
	return &out.Session, out.Resumed, nil
}

// MySessions lists the learner's sessions for an exam, newest first.
func (c *Client) MySessions(ctx context.Context, examID string) ([]Session, error) {
	var out struct {
		Sessions []Session `json:"sessions"`
	}
	path := "/api/v1/attempts/mine?exam_id=" + url.QueryEscape(examID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

// SectionQuestions loads one section with fresh timer values.
func (c *Client) SectionQuestions(ctx context.Context, code, sectionID string) (*SectionView, error) {
	var out SectionView
	if err := c.do(ctx, http.MethodGet, attemptPath(code, "sections", url.PathEscape(sectionID)), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitAnswer grades and stores one answer.
func (c *Client) SubmitAnswer(ctx context.Context, code string, a Answer) (*Outcome, error) {
	var out Outcome
	if err := c.do(ctx, http.MethodPost, attemptPath(code, "answers"), a, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClearAnswer removes the stored answer for a question.
func (c *Client) ClearAnswer(ctx context.Context, code, sectionID, questionID string) (*Outcome, error) {
	var out Outcome
	if err := c.do(ctx, http.MethodPost, attemptPath(code, "answers", "clear"), questionRef{sectionID, questionID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ToggleReview flips the mark-for-review flag of a question.
func (c *Client) ToggleReview(ctx context.Context, code, sectionID, questionID string) (*Outcome, error) {
	var out Outcome
	if err := c.do(ctx, http.MethodPost, attemptPath(code, "review"), questionRef{sectionID, questionID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Navigate reports the learner's new position and the time spent since the
// last report.
func (c *Client) Navigate(ctx context.Context, code string, nav Navigation) (*Outcome, error) {
	var out Outcome
	if err := c.do(ctx, http.MethodPost, attemptPath(code, "navigate"), nav, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Finish seals the attempt and returns its result.
func (c *Client) Finish(ctx context.Context, code string, totalTimeTaken int) (*Result, error) {
	var out struct {
		Result Result `json:"result"`
	}
	body := map[string]int{"total_time_taken": totalTimeTaken}
	if err := c.do(ctx, http.MethodPost, attemptPath(code, "finish"), body, &out); err != nil {
		return nil, err
	}
	return &out.Result, nil
}

// Results returns the sealed session with per-section results.
func (c *Client) Results(ctx context.Context, code string) (*ResultView, error) {
	var out ResultView
	if err := c.do(ctx, http.MethodGet, attemptPath(code, "results"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExamLeaderboard ranks learners by their best completed attempt.
func (c *Client) ExamLeaderboard(ctx context.Context, examID string) ([]LeaderboardEntry, error) {
	var out struct {
		Entries []LeaderboardEntry `json:"entries"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/leaderboards/exams/"+url.PathEscape(examID), nil, &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

// ─── Transport ─────────────────────────────────────────────────────────

type questionRef struct {
	SectionID  string `json:"section_id"`
	QuestionID string `json:"question_id"`
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *APIError       `json:"error,omitempty"`
}

func attemptPath(code string, parts ...string) string {
	return "/api/v1/attempts/" + url.PathEscape(code) + "/" + strings.Join(parts, "/")
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode %s %s (status %d): %w", method, path, resp.StatusCode, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		if env.Error == nil {
			env.Error = &APIError{Message: http.StatusText(resp.StatusCode)}
		}
		env.Error.Status = resp.StatusCode
		return env.Error
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s %s data: %w", method, path, err)
	}
	return nil
}
