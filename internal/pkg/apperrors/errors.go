package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound = errors.New("resource not found")

	ErrInvalidArgument = errors.New("invalid argument")

	ErrConfiguration = errors.New("invalid configuration")

	ErrUnauthorized = errors.New("unauthorized")

	ErrForbidden = errors.New("forbidden")

	ErrRateLimited = errors.New("rate limit exceeded")

	ErrUpstream = errors.New("upstream service error")

	ErrInternalServer = errors.New("internal server error")
)

// UpstreamError carries the HTTP status of a failed upstream call and
// unwraps to the sentinel matching its class, so callers can decide with
// errors.Is whether a failure is benign, systemic, or transient.
type UpstreamError struct {
	StatusCode int
	Endpoint   string
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream %s returned %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upstream %s returned %d", e.Endpoint, e.StatusCode)
}

func (e *UpstreamError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return ErrUpstream
	}
}

func NewUpstreamError(statusCode int, endpoint, message string) error {
	return &UpstreamError{StatusCode: statusCode, Endpoint: endpoint, Message: message}
}

// IsSystemic reports whether an upstream failure must abort the whole
// analysis run rather than being absorbed at a stage boundary.
// Authentication, authorization and rate-limit responses indicate the
// remaining calls would fail the same way.
func IsSystemic(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrRateLimited)
}

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func NewConfigurationError(message string) error {
	return &AppError{
		Code:    "CONFIG_ERROR",
		Message: message,
		Cause:   ErrConfiguration,
	}
}
