package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/middleware"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/response"
	"github.com/stemsi/exstem-assessment/internal/service"
	ws "github.com/stemsi/exstem-assessment/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams answer writes for one attempt over a WebSocket.
type WSHandler struct {
	attempts AttemptAPI
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attempts AttemptAPI, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attempts: attempts,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/attempts/:code/stream
// Upgrades to WebSocket for autosave, review toggles, navigation and finish.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	who, err := middleware.GetIdentity(c)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	code := c.Param("code")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("user_id", who.UserID).
		Str("session_code", code).
		Logger()
	wsLog.Info().Msg("Learner connected")

	for {
		var msg ws.Request
		if err := ws.ReadJSON(conn, &msg); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				_ = ws.WriteError(conn, "", string(response.ErrInvalidPayload), "malformed message")
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		ctx := c.Request.Context()
		var done bool
		switch msg.Action {
		case ws.ActionAutosave:
			done = h.handleAutosave(ctx, conn, wsLog, who, code, &msg)
		case ws.ActionReview:
			done = h.handleReview(ctx, conn, wsLog, who, code, &msg)
		case ws.ActionNavigate:
			done = h.handleNavigate(ctx, conn, wsLog, who, code, &msg)
		case ws.ActionFinish:
			done = h.handleFinish(ctx, conn, wsLog, who, code, &msg)
		case ws.ActionPing:
			_ = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong, Ref: msg.Ref})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			_ = ws.WriteError(conn, msg.Ref, string(response.ErrInvalidPayload), "unknown action: "+string(msg.Action))
		}
		if done {
			return
		}
	}
}

func (h *WSHandler) handleAutosave(ctx context.Context, conn *websocket.Conn, log zerolog.Logger, who service.Identity, code string, msg *ws.Request) bool {
	sectionID, questionID, ok := h.parseRef(conn, msg)
	if !ok {
		return false
	}
	status := msg.Status
	if status == "" {
		status = model.QuestionAnswered
	}

	out, err := h.attempts.SubmitAnswer(ctx, who, service.SubmitAnswerInput{
		Code:       code,
		SectionID:  sectionID,
		QuestionID: questionID,
		Answer:     msg.Answer,
		Status:     status,
		TimeTaken:  msg.TimeTaken,
	})
	return h.reply(conn, log, msg, ws.EventSaved, out, err)
}

func (h *WSHandler) handleReview(ctx context.Context, conn *websocket.Conn, log zerolog.Logger, who service.Identity, code string, msg *ws.Request) bool {
	sectionID, questionID, ok := h.parseRef(conn, msg)
	if !ok {
		return false
	}
	out, err := h.attempts.ToggleReview(ctx, who, code, sectionID, questionID)
	return h.reply(conn, log, msg, ws.EventStatus, out, err)
}

func (h *WSHandler) handleNavigate(ctx context.Context, conn *websocket.Conn, log zerolog.Logger, who service.Identity, code string, msg *ws.Request) bool {
	sectionID, questionID, ok := h.parseRef(conn, msg)
	if !ok {
		return false
	}
	out, err := h.attempts.Navigate(ctx, who, code, model.Navigation{
		SectionID:  sectionID,
		QuestionID: questionID,
		TimeTaken:  max(msg.TimeTaken, 0),
	})
	return h.reply(conn, log, msg, ws.EventStatus, out, err)
}

func (h *WSHandler) handleFinish(ctx context.Context, conn *websocket.Conn, log zerolog.Logger, who service.Identity, code string, msg *ws.Request) bool {
	res, err := h.attempts.Finish(ctx, who, code, max(msg.TotalTimeTaken, 0))
	if err != nil {
		return h.writeFailure(conn, log, msg.Ref, err)
	}
	log.Info().Float64("score", res.Score).Msg("Attempt finished over stream")
	_ = ws.WriteTyped(conn, ws.FinishedResponse{Event: ws.EventFinished, Ref: msg.Ref, Result: res})
	return true
}

// reply sends the outcome of a question write. It returns true when the
// session is sealed and the stream should end.
func (h *WSHandler) reply(conn *websocket.Conn, log zerolog.Logger, msg *ws.Request, event ws.Event, out *service.AnswerOutcome, err error) bool {
	if err != nil {
		return h.writeFailure(conn, log, msg.Ref, err)
	}
	if out.Completed {
		_ = ws.WriteTyped(conn, ws.ExpiredResponse{Event: ws.EventExpired, Ref: msg.Ref, Timer: out.Timer})
		return true
	}
	_ = ws.WriteTyped(conn, ws.OutcomeResponse{
		Event:         event,
		Ref:           msg.Ref,
		QuestionID:    msg.QuestionID,
		Status:        out.Status,
		AnsweredCount: out.AnsweredCount,
		Timer:         out.Timer,
	})
	return false
}

// writeFailure reports err to the client. A session that no longer resolves
// ends the stream.
func (h *WSHandler) writeFailure(conn *websocket.Conn, log zerolog.Logger, ref string, err error) bool {
	_, code := StatusFor(err)
	msg := response.GetMessage(code)
	switch code {
	case response.ErrInternal:
		log.Error().Err(err).Msg("Stream action failed")
	case response.ErrValidation:
		msg = err.Error()
	}
	_ = ws.WriteError(conn, ref, string(code), msg)
	return code == response.ErrSessionNotFound
}

func (h *WSHandler) parseRef(conn *websocket.Conn, msg *ws.Request) (uuid.UUID, uuid.UUID, bool) {
	sectionID, err := uuid.Parse(msg.SectionID)
	if err != nil {
		_ = ws.WriteError(conn, msg.Ref, string(response.ErrInvalidID), "invalid section_id")
		return uuid.Nil, uuid.Nil, false
	}
	questionID, err := uuid.Parse(msg.QuestionID)
	if err != nil {
		_ = ws.WriteError(conn, msg.Ref, string(response.ErrInvalidID), "invalid question_id")
		return uuid.Nil, uuid.Nil, false
	}
	return sectionID, questionID, true
}
