package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/trialiq-server/internal/domain"
	"github.com/trialiq-server/internal/middleware"
)

const storeRetryAfter = "5"

// respondError maps a service error onto the JSON error envelope. The
// message is localized for localeCode.
func (s *Server) respondError(c *gin.Context, err error, localeCode string) {
	requestID := c.GetString(middleware.CorrelationIDKey)
	tr := s.deps.Translator

	var (
		answerErr     *domain.AnswerError
		incompleteErr *domain.IncompleteError
		status        int
		apiErr        *domain.APIError
	)
	switch {
	case errors.As(err, &answerErr):
		status = http.StatusUnprocessableEntity
		apiErr = domain.NewAPIError(domain.ErrCodeInvalidAnswer,
			tr.Text(localeCode, "error.invalid_answer", answerErr.Key), answerErr.Reason, requestID)
	case errors.As(err, &incompleteErr):
		status = http.StatusUnprocessableEntity
		apiErr = domain.NewAPIError(domain.ErrCodeIncompleteSubmission,
			tr.Text(localeCode, "error.incomplete", strings.Join(incompleteErr.Missing, ", ")),
			strings.Join(incompleteErr.Missing, ","), requestID)
	case errors.Is(err, domain.ErrConsentRequired):
		status = http.StatusConflict
		apiErr = domain.NewAPIError(domain.ErrCodeConsentRequired,
			tr.Text(localeCode, "error.consent_required"), "", requestID)
	case errors.Is(err, domain.ErrInvalidTransition):
		status = http.StatusConflict
		apiErr = domain.NewAPIError(domain.ErrCodeInvalidTransition, "invalid step transition", err.Error(), requestID)
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
		apiErr = domain.NewAPIError(domain.ErrCodeNotFound, "resource not found", "", requestID)
	case errors.Is(err, domain.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
		c.Header("Retry-After", storeRetryAfter)
		apiErr = domain.NewAPIError(domain.ErrCodeStoreUnavailable,
			tr.Text(localeCode, "error.store_unavailable"), "", requestID)
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
		apiErr = domain.NewAPIError(domain.ErrCodeUnauthorized, "invalid credentials", "", requestID)
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
		apiErr = domain.NewAPIError(domain.ErrCodeInternalServer, "request timed out", "", requestID)
	default:
		status = http.StatusInternalServerError
		apiErr = domain.NewAPIError(domain.ErrCodeInternalServer, "internal server error", "", requestID)
	}

	entry := s.log.WithError(err).WithField("correlation_id", requestID).WithField("code", apiErr.Code)
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Debug("Request rejected")
	}
	c.AbortWithStatusJSON(status, apiErr)
}

func (s *Server) badRequest(c *gin.Context, details string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, domain.NewAPIError(
		domain.ErrCodeInvalidInput, "invalid request", details, c.GetString(middleware.CorrelationIDKey),
	))
}
