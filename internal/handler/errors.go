package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/response"
	"github.com/stemsi/exstem-assessment/internal/service"
)

type errorMapping struct {
	err    error
	status int
	code   response.ErrCode
}

var domainErrors = []errorMapping{
	{service.ErrAccessDenied, http.StatusForbidden, response.ErrAccessDenied},
	{service.ErrScheduleClosed, http.StatusForbidden, response.ErrScheduleClosed},
	{service.ErrAttemptLimitReached, http.StatusConflict, response.ErrAttemptLimitReached},
	{service.ErrInsufficientBalance, http.StatusPaymentRequired, response.ErrInsufficientBalance},
	{service.ErrSubscriptionRequired, http.StatusPaymentRequired, response.ErrSubscriptionRequired},
	{service.ErrSessionNotFound, http.StatusNotFound, response.ErrSessionNotFound},
	{service.ErrExamNotAvailable, http.StatusNotFound, response.ErrExamNotAvailable},
	{service.ErrResultsNotReady, http.StatusConflict, response.ErrResultsNotReady},
	{service.ErrLeaderboardHidden, http.StatusForbidden, response.ErrLeaderboardHidden},
	{service.ErrQuestionBankExhausted, http.StatusServiceUnavailable, response.ErrQuestionBankExhausted},
}

// StatusFor maps a service error to its HTTP status and error code.
func StatusFor(err error) (int, response.ErrCode) {
	if errors.Is(err, service.ErrValidation) {
		return http.StatusBadRequest, response.ErrValidation
	}
	for _, m := range domainErrors {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, response.ErrInternal
}

// failFromError writes the envelope for err. Unexpected errors are logged
// and hidden behind INTERNAL_ERROR.
func failFromError(c *gin.Context, log zerolog.Logger, err error) {
	status, code := StatusFor(err)
	switch code {
	case response.ErrInternal:
		log.Error().Err(err).
			Str("path", c.FullPath()).
			Str("request_id", response.RequestID(c)).
			Msg("Request failed")
		response.Fail(c, status, code)
	case response.ErrValidation:
		response.FailWithFields(c, status, code, map[string]string{"detail": err.Error()})
	default:
		response.Fail(c, status, code)
	}
}
