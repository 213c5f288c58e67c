package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a specific error type for engine operations.
type ErrorCode string

const (
	// ErrCodeMissingData indicates no mastery/attempt data exists for a required entity.
	// Callers skip the unit; it never crashes the batch.
	ErrCodeMissingData ErrorCode = "MISSING_DATA"
	// ErrCodeConfigResolution indicates an unknown exam code with no DEFAULT fallback.
	// Fatal for the unit only.
	ErrCodeConfigResolution ErrorCode = "CONFIG_RESOLUTION"
	// ErrCodeTransientIO indicates an underlying data-store read/write failure.
	// Retried with exponential backoff before being surfaced as a failed unit.
	ErrCodeTransientIO ErrorCode = "TRANSIENT_IO"
)

// EngineError represents a structured error for engine operations.
type EngineError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// GetCode returns the error code.
func (e *EngineError) GetCode() ErrorCode {
	return e.Code
}

// MissingData creates a missing data error.
func MissingData(msg string) *EngineError {
	return &EngineError{Code: ErrCodeMissingData, Message: msg}
}

// ConfigResolution creates a config resolution error.
func ConfigResolution(msg string) *EngineError {
	return &EngineError{Code: ErrCodeConfigResolution, Message: msg}
}

// TransientIO wraps a data-store failure.
func TransientIO(msg string, cause error) *EngineError {
	return &EngineError{Code: ErrCodeTransientIO, Message: msg, Cause: cause}
}

// Wrap wraps an existing error with a code and message.
func Wrap(cause error, code ErrorCode, msg string) *EngineError {
	return &EngineError{Code: code, Message: msg, Cause: cause}
}

// CodeOf returns the error code of err, or "" if err carries none.
func CodeOf(err error) ErrorCode {
	var ee *EngineError
	if stderrors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

// IsMissingData reports whether err is a missing data error.
func IsMissingData(err error) bool {
	return CodeOf(err) == ErrCodeMissingData
}

// IsConfigResolution reports whether err is a config resolution error.
func IsConfigResolution(err error) bool {
	return CodeOf(err) == ErrCodeConfigResolution
}

// IsTransientIO reports whether err is a transient I/O error.
func IsTransientIO(err error) bool {
	return CodeOf(err) == ErrCodeTransientIO
}
