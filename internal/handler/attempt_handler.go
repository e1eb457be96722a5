package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/middleware"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/response"
	"github.com/stemsi/exstem-assessment/internal/service"
	"github.com/stemsi/exstem-assessment/internal/validator"
)

// AttemptAPI is the attempt lifecycle as the transport layer sees it.
// *service.AttemptService implements it.
type AttemptAPI interface {
	StartOrResume(ctx context.Context, who service.Identity, examID uuid.UUID, scheduleID *uuid.UUID) (*service.StartResult, error)
	MySessions(ctx context.Context, who service.Identity, examID uuid.UUID) ([]model.AttemptSession, error)
	SectionQuestions(ctx context.Context, who service.Identity, code string, sectionID uuid.UUID) (*service.SectionView, error)
	SubmitAnswer(ctx context.Context, who service.Identity, in service.SubmitAnswerInput) (*service.AnswerOutcome, error)
	ClearAnswer(ctx context.Context, who service.Identity, code string, sectionID, questionID uuid.UUID) (*service.AnswerOutcome, error)
	ToggleReview(ctx context.Context, who service.Identity, code string, sectionID, questionID uuid.UUID) (*service.AnswerOutcome, error)
	Navigate(ctx context.Context, who service.Identity, code string, nav model.Navigation) (*service.AnswerOutcome, error)
	Finish(ctx context.Context, who service.Identity, code string, totalTimeTaken int) (*model.SessionResult, error)
	Results(ctx context.Context, who service.Identity, code string) (*service.ResultView, error)
}

// AttemptHandler handles learner-facing attempt endpoints.
type AttemptHandler struct {
	attempts AttemptAPI
	log      zerolog.Logger
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attempts AttemptAPI, log zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{
		attempts: attempts,
		log:      log.With().Str("component", "attempt_handler").Logger(),
	}
}

// Start godoc
// POST /api/v1/attempts
// Returns the learner's started session for the exam or creates one.
func (h *AttemptHandler) Start(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}

	var req model.StartAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	examID := uuid.MustParse(req.ExamID)
	var scheduleID *uuid.UUID
	if req.ScheduleID != nil {
		id := uuid.MustParse(*req.ScheduleID)
		scheduleID = &id
	}

	res, err := h.attempts.StartOrResume(c.Request.Context(), who, examID, scheduleID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	session, err := toSessionDTO(res.Session)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	status := http.StatusCreated
	if res.Resumed {
		status = http.StatusOK
	}
	response.Success(c, status, gin.H{"session": session, "resumed": res.Resumed})
}

// MySessions godoc
// GET /api/v1/attempts/mine?exam_id=
// Lists the caller's sessions for an exam, newest first.
func (h *AttemptHandler) MySessions(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}

	var q model.MySessionsQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sessions, err := h.attempts.MySessions(c.Request.Context(), who, uuid.MustParse(q.ExamID))
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	dtos, err := toSessionDTOs(sessions)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"sessions": dtos})
}

// SectionQuestions godoc
// GET /api/v1/attempts/:code/sections/:section_id
// Returns a section's questions with fresh timer values.
func (h *AttemptHandler) SectionQuestions(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}

	sectionID, err := uuid.Parse(c.Param("section_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	view, err := h.attempts.SectionQuestions(c.Request.Context(), who, c.Param("code"), sectionID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	dto, err := toSectionViewDTO(view)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, dto)
}

// SubmitAnswer godoc
// POST /api/v1/attempts/:code/answers
// Grades and stores one answer.
func (h *AttemptHandler) SubmitAnswer(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}

	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	out, err := h.attempts.SubmitAnswer(c.Request.Context(), who, submitInput(c.Param("code"), &req))
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, out)
}

// ClearAnswer godoc
// POST /api/v1/attempts/:code/answers/clear
func (h *AttemptHandler) ClearAnswer(c *gin.Context) {
	h.questionWrite(c, h.attempts.ClearAnswer)
}

// ToggleReview godoc
// POST /api/v1/attempts/:code/review
func (h *AttemptHandler) ToggleReview(c *gin.Context) {
	h.questionWrite(c, h.attempts.ToggleReview)
}

type questionWriteFunc func(ctx context.Context, who service.Identity, code string, sectionID, questionID uuid.UUID) (*service.AnswerOutcome, error)

func (h *AttemptHandler) questionWrite(c *gin.Context, write questionWriteFunc) {
	who, ok := identity(c)
	if !ok {
		return
	}

	var req model.QuestionRefRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	out, err := write(c.Request.Context(), who, c.Param("code"), uuid.MustParse(req.SectionID), uuid.MustParse(req.QuestionID))
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, out)
}

// Navigate godoc
// POST /api/v1/attempts/:code/navigate
func (h *AttemptHandler) Navigate(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}

	var req model.NavigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	out, err := h.attempts.Navigate(c.Request.Context(), who, c.Param("code"), model.Navigation{
		SectionID:  uuid.MustParse(req.SectionID),
		QuestionID: uuid.MustParse(req.QuestionID),
		TimeTaken:  req.TimeTaken,
	})
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, out)
}

// Finish godoc
// POST /api/v1/attempts/:code/finish
// Seals the attempt. Finishing twice returns the same result.
func (h *AttemptHandler) Finish(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}

	var req model.FinishRequest
	if c.Request.ContentLength != 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	}

	res, err := h.attempts.Finish(c.Request.Context(), who, c.Param("code"), req.TotalTimeTaken)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"result": res})
}

// Results godoc
// GET /api/v1/attempts/:code/results
func (h *AttemptHandler) Results(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}

	view, err := h.attempts.Results(c.Request.Context(), who, c.Param("code"))
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	dto, err := toResultViewDTO(view)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, dto)
}

// identity writes a 401 and returns false when the request carries no
// learner claims.
func identity(c *gin.Context) (service.Identity, bool) {
	who, err := middleware.GetIdentity(c)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return service.Identity{}, false
	}
	return who, true
}

// submitInput converts a validated request. Ids are already checked by the
// uuid binding tags.
func submitInput(code string, req *model.SubmitAnswerRequest) service.SubmitAnswerInput {
	in := service.SubmitAnswerInput{
		Code:       code,
		SectionID:  uuid.MustParse(req.SectionID),
		QuestionID: uuid.MustParse(req.QuestionID),
		Answer:     req.Answer,
		Status:     req.Status,
		TimeTaken:  req.TimeTaken,
	}
	if req.CurrentSection != "" && req.CurrentQuestion != "" {
		sec, q := uuid.MustParse(req.CurrentSection), uuid.MustParse(req.CurrentQuestion)
		in.CurrentSection, in.CurrentQuestion = &sec, &q
	}
	return in
}
