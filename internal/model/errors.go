package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error codes carried in the "code" field of the error envelope.
const (
	CodeNotFound           = "NOT_FOUND"
	CodeValidation         = "VALIDATION_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeUpstream           = "UPSTREAM_ERROR"
	CodeRateLimited        = "RATE_LIMITED"
	CodeSessionUnavailable = "SESSION_UNAVAILABLE"
	CodeInternal           = "INTERNAL_ERROR"
)

// Sentinels matched with errors.Is. Every APIError built here wraps one.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrUpstreamError      = errors.New("upstream error")
	ErrRateLimited        = errors.New("rate limited")
	ErrSessionUnavailable = errors.New("session unavailable")
)

// APIError is an error with a client-facing code and HTTP status. Only Code
// and Message reach the client.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *APIError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// Envelope is the JSON body of every failed REST response.
type Envelope struct {
	Error *APIError `json:"error"`
}

// WriteError writes e as a JSON error envelope.
func WriteError(w http.ResponseWriter, e *APIError) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	return json.NewEncoder(w).Encode(Envelope{Error: e})
}

// AsAPIError returns the first APIError in err's chain. When there is none
// it returns an INTERNAL_ERROR wrapping err and false.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return NewInternalError(err), false
}

// IsNotFound reports whether err carries ErrNotFound anywhere in its chain.
// Remote lookups use it to tell "absent" apart from transport failures.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// NewNotFoundError reports a missing cart, item or other resource.
func NewNotFoundError(resource string) *APIError {
	return &APIError{
		Code:       CodeNotFound,
		Message:    resource + " not found",
		StatusCode: http.StatusNotFound,
		Err:        ErrNotFound,
	}
}

// NewValidationError rejects a request field.
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:       CodeValidation,
		Message:    fmt.Sprintf("invalid %s: %s", field, reason),
		StatusCode: http.StatusBadRequest,
		Err:        ErrInvalidRequest,
	}
}

func NewUnauthorizedError(reason string) *APIError {
	return &APIError{
		Code:       CodeUnauthorized,
		Message:    reason,
		StatusCode: http.StatusUnauthorized,
		Err:        ErrUnauthorized,
	}
}

// NewUpstreamError reports a failed call to service. Both ErrUpstreamError
// and err stay reachable through errors.Is.
func NewUpstreamError(service string, err error) *APIError {
	return &APIError{
		Code:       CodeUpstream,
		Message:    service + " request failed",
		StatusCode: http.StatusBadGateway,
		Err:        fmt.Errorf("%w: %w", ErrUpstreamError, err),
	}
}

func NewRateLimitError(service string) *APIError {
	return &APIError{
		Code:       CodeRateLimited,
		Message:    service + " rate limit exceeded, please retry later",
		StatusCode: http.StatusTooManyRequests,
		Err:        ErrRateLimited,
	}
}

// NewSessionUnavailableError is returned when the visitor's session cannot
// be loaded or saved.
func NewSessionUnavailableError(err error) *APIError {
	return &APIError{
		Code:       CodeSessionUnavailable,
		Message:    "session store unavailable, please retry",
		StatusCode: http.StatusServiceUnavailable,
		Err:        fmt.Errorf("%w: %w", ErrSessionUnavailable, err),
	}
}

// NewInternalError hides err from the client.
func NewInternalError(err error) *APIError {
	return &APIError{
		Code:       CodeInternal,
		Message:    "an internal error occurred",
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}
