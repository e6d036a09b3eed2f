package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Error kinds. All are recoverable at the step level.
var (
	ErrInvalidAnswer        = errors.New("invalid answer")
	ErrIncompleteSubmission = errors.New("incomplete submission")
	ErrStoreUnavailable     = errors.New("submission store unavailable")
	ErrConsentRequired      = errors.New("consent required")
	ErrInvalidTransition    = errors.New("invalid transition")
	ErrNotFound             = errors.New("not found")
	ErrUnauthorized         = errors.New("unauthorized")
)

// APIError represents a standardized error response
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrCodeInvalidInput         = "INVALID_INPUT"
	ErrCodeInvalidAnswer        = "INVALID_ANSWER"
	ErrCodeIncompleteSubmission = "INCOMPLETE_SUBMISSION"
	ErrCodeConsentRequired      = "CONSENT_REQUIRED"
	ErrCodeInvalidTransition    = "INVALID_TRANSITION"
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeStoreUnavailable     = "STORE_UNAVAILABLE"
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeRateLimit            = "RATE_LIMITED"
	ErrCodeInternalServer       = "INTERNAL_SERVER_ERROR"
)

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: code == ErrCodeStoreUnavailable || code == ErrCodeRateLimit,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// AnswerError reports an answer that failed type or range validation.
type AnswerError struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
	Value  any    `json:"value"`
}

// NewAnswerError creates a new AnswerError
func NewAnswerError(key, reason string, value any) *AnswerError {
	return &AnswerError{Key: key, Reason: reason, Value: value}
}

func (e *AnswerError) Error() string {
	return fmt.Sprintf("invalid answer for %q: %s", e.Key, e.Reason)
}

func (e *AnswerError) Unwrap() error { return ErrInvalidAnswer }

// IncompleteError lists the demographic fields that are missing or malformed.
type IncompleteError struct {
	Missing []string `json:"missing"`
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("incomplete submission: %s", strings.Join(e.Missing, ", "))
}

func (e *IncompleteError) Unwrap() error { return ErrIncompleteSubmission }
