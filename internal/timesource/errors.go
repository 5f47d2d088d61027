package timesource

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of a time fetch failure
type ErrorType int

const (
	// ErrTypeNetwork indicates the request never produced a response
	ErrTypeNetwork ErrorType = iota
	// ErrTypeHTTP indicates a non-200 status code
	ErrTypeHTTP
	// ErrTypeParse indicates a response body that could not be understood
	ErrTypeParse
	// ErrTypeConfig indicates a source that is missing required settings
	ErrTypeConfig
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeConfig:
		return "Configuration Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error describes a failed time fetch
type Error struct {
	Type       ErrorType
	Message    string
	StatusCode int // HTTP status, for ErrTypeHTTP
	Err        error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Err != nil {
		msg += fmt.Sprintf(" (caused by: %v)", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a network error
func NewNetworkError(message string, err error) *Error {
	return &Error{Type: ErrTypeNetwork, Message: message, Err: err}
}

// NewHTTPError creates an HTTP status error
func NewHTTPError(statusCode int, message string) *Error {
	return &Error{Type: ErrTypeHTTP, Message: message, StatusCode: statusCode}
}

// NewParseError creates a response parse error
func NewParseError(message string, err error) *Error {
	return &Error{Type: ErrTypeParse, Message: message, Err: err}
}

// NewConfigError creates a source configuration error
func NewConfigError(message string) *Error {
	return &Error{Type: ErrTypeConfig, Message: message}
}

// IsRetryable reports whether another attempt may succeed
func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Type {
	case ErrTypeNetwork:
		return true
	case ErrTypeHTTP:
		return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
	default:
		return false
	}
}

// IsParseError checks if err is, or wraps, a parse error
func IsParseError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == ErrTypeParse
}

// IsHTTPError checks if err is, or wraps, an HTTP status error
func IsHTTPError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == ErrTypeHTTP
}
