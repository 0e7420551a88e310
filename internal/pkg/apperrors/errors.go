package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrRateLimit       ErrorType = "RATE_LIMIT_EXCEEDED"
	ErrSafety          ErrorType = "SAFETY_VIOLATION"
	ErrUpstream        ErrorType = "UPSTREAM_ERROR"
	ErrUpstreamTimeout ErrorType = "UPSTREAM_TIMEOUT"
	ErrNotFound        ErrorType = "NOT_FOUND"
	ErrDataContract    ErrorType = "DATA_CONTRACT"
	ErrUnknownTool     ErrorType = "UNKNOWN_TOOL"
	ErrInvalidArgs     ErrorType = "INVALID_ARGUMENTS"
	ErrToolTimeout     ErrorType = "TOOL_TIMEOUT"
	ErrStreamDown      ErrorType = "STREAM_DISCONNECTED"
	ErrAuthFailed      ErrorType = "AUTH_FAILED"
	ErrReadOnly        ErrorType = "READ_ONLY_MODE"
	ErrInternal        ErrorType = "INTERNAL_ERROR"
)

// AppError is the standard error struct for the application
type AppError struct {
	Type       ErrorType `json:"code"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion,omitempty"`
	// Reason carries the safety-validation reject reason for ErrSafety.
	Reason string `json:"reason,omitempty"`
	// UpstreamStatus carries the HTTP status for ErrUpstream.
	UpstreamStatus int   `json:"upstream_status,omitempty"`
	HTTPStatus     int   `json:"-"`
	Cause          error `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(errType ErrorType, msg string, cause error) *AppError {
	return &AppError{
		Type:       errType,
		Message:    msg,
		Cause:      cause,
		HTTPStatus: mapTypeToStatus(errType),
		Suggestion: mapTypeToSuggestion(errType),
	}
}

func NewRateLimit(category string) *AppError {
	return New(ErrRateLimit, fmt.Sprintf("rate limit exceeded for category %q", category), nil)
}

// NewSafety builds a safety-violation error. The reason is one of the
// validator's reject reasons and is stable for callers to match on.
func NewSafety(reason, msg string) *AppError {
	e := New(ErrSafety, msg, nil)
	e.Reason = reason
	return e
}

func NewUpstream(status int, msg string) *AppError {
	e := New(ErrUpstream, msg, nil)
	e.UpstreamStatus = status
	return e
}

func NewNotFound(msg string) *AppError {
	return New(ErrNotFound, msg, nil)
}

func NewInvalidArgs(msg string) *AppError {
	return New(ErrInvalidArgs, msg, nil)
}

func NewUnknownTool(name string) *AppError {
	return New(ErrUnknownTool, fmt.Sprintf("unknown tool %q", name), nil)
}

func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(ErrInternal, err.Error(), err)
}

// TypeOf returns the error type of err, or ErrInternal for plain errors.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrInternal
}

// StatusFor maps an error type to its HTTP status code.
func StatusFor(t ErrorType) int {
	return mapTypeToStatus(t)
}

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrRateLimit:
		return http.StatusTooManyRequests
	case ErrSafety, ErrInvalidArgs, ErrUnknownTool:
		return http.StatusBadRequest
	case ErrAuthFailed:
		return http.StatusUnauthorized
	case ErrReadOnly:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrUpstream, ErrDataContract:
		return http.StatusBadGateway
	case ErrUpstreamTimeout, ErrToolTimeout:
		return http.StatusGatewayTimeout
	case ErrStreamDown:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func mapTypeToSuggestion(t ErrorType) string {
	switch t {
	case ErrRateLimit:
		return "Back off and retry after the current window."
	case ErrSafety:
		return "Check order parameters against the configured safety limits."
	case ErrUpstreamTimeout:
		return "Retry the request."
	case ErrAuthFailed:
		return "Check the gateway API key."
	case ErrUnknownTool:
		return "List registered tools via GET /v1/tools."
	case ErrStreamDown:
		return "The market feed is reconnecting; retry shortly."
	default:
		return ""
	}
}
