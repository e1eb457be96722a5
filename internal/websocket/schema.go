package websocket

import (
	"encoding/json"

	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/timer"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave Action = "autosave"
	ActionReview   Action = "review"
	ActionNavigate Action = "navigate"
	ActionFinish   Action = "finish"
	ActionPing     Action = "ping"
)

// Request is one client message. Ref is echoed back on the reply so the
// client can match responses to requests.
type Request struct {
	Action         Action               `json:"action"`
	Ref            string               `json:"ref,omitempty"`
	SectionID      string               `json:"section_id,omitempty"`
	QuestionID     string               `json:"question_id,omitempty"`
	Answer         json.RawMessage      `json:"answer,omitempty"`
	Status         model.QuestionStatus `json:"status,omitempty"`
	TimeTaken      int                  `json:"time_taken,omitempty"`
	TotalTimeTaken int                  `json:"total_time_taken,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventSaved    Event = "saved"
	EventStatus   Event = "status"
	EventFinished Event = "finished"
	EventExpired  Event = "expired"
	EventError    Event = "error"
	EventPong     Event = "pong"
)

// OutcomeResponse answers autosave (saved), review and navigate (status).
type OutcomeResponse struct {
	Event         Event                `json:"event"`
	Ref           string               `json:"ref,omitempty"`
	QuestionID    string               `json:"question_id"`
	Status        model.QuestionStatus `json:"status"`
	AnsweredCount int                  `json:"answered_count"`
	Timer         timer.State          `json:"timer"`
}

// FinishedResponse carries the sealed result.
type FinishedResponse struct {
	Event  Event                `json:"event"`
	Ref    string               `json:"ref,omitempty"`
	Result *model.SessionResult `json:"result,omitempty"`
}

// ExpiredResponse reports that a write hit a sealed or expired session.
type ExpiredResponse struct {
	Event Event       `json:"event"`
	Ref   string      `json:"ref,omitempty"`
	Timer timer.State `json:"timer"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Ref   string `json:"ref,omitempty"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event  `json:"event"`
	Ref   string `json:"ref,omitempty"`
}
