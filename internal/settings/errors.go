package settings

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of a settings failure
type ErrorType int

const (
	// ErrTypeParse indicates malformed or undecodable JSON text
	ErrTypeParse ErrorType = iota
	// ErrTypeIO indicates a filesystem read or write failure
	ErrTypeIO
	// ErrTypeValidation indicates a value outside its allowed range
	ErrTypeValidation
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeIO:
		return "I/O Error"
	case ErrTypeValidation:
		return "Validation Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error describes a settings failure. Store operations log these and carry
// on; only ApplyJSON hands one back to the caller.
type Error struct {
	Type    ErrorType // Category of error
	Message string    // Human-readable error message
	Path    string    // File involved, if any
	Err     error     // Underlying error, if any
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	if e.Err != nil {
		msg += fmt.Sprintf(" (caused by: %v)", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// NewParseError creates a parse error
func NewParseError(message string, err error) *Error {
	return &Error{Type: ErrTypeParse, Message: message, Err: err}
}

// NewIOError creates a filesystem error for path
func NewIOError(path, message string, err error) *Error {
	return &Error{Type: ErrTypeIO, Message: message, Path: path, Err: err}
}

// NewValidationError creates a validation error
func NewValidationError(message string) *Error {
	return &Error{Type: ErrTypeValidation, Message: message}
}

func isType(err error, t ErrorType) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == t
}

// IsParseError checks if err is, or wraps, a parse error
func IsParseError(err error) bool { return isType(err, ErrTypeParse) }

// IsIOError checks if err is, or wraps, a filesystem error
func IsIOError(err error) bool { return isType(err, ErrTypeIO) }

// IsValidationError checks if err is, or wraps, a validation error
func IsValidationError(err error) bool { return isType(err, ErrTypeValidation) }
