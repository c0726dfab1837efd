package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a specific error type for study operations.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeUnauthorized indicates authentication failure.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeNotFound indicates the requested session or profile does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeSessionEnded indicates a review was sent to a closed session.
	ErrCodeSessionEnded ErrorCode = "SESSION_ENDED"
	// ErrCodeRateLimitExceeded indicates rate limit has been exceeded.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeInternal indicates a storage or unexpected failure.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// StudyError represents a structured error for study operations.
type StudyError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *StudyError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *StudyError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *StudyError) WithContext(key string, value any) *StudyError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// HTTPStatus maps the error code onto a response status.
func (e *StudyError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeInvalidArgument:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeSessionEnded:
		return http.StatusConflict
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *StudyError {
	return &StudyError{Code: ErrCodeInvalidArgument, Message: msg}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *StudyError {
	return &StudyError{Code: ErrCodeUnauthorized, Message: msg}
}

// NotFound creates a not found error.
func NotFound(msg string) *StudyError {
	return &StudyError{Code: ErrCodeNotFound, Message: msg}
}

// SessionEnded creates a session ended error.
func SessionEnded(sessionID string) *StudyError {
	return &StudyError{
		Code:    ErrCodeSessionEnded,
		Message: fmt.Sprintf("session %s has ended", sessionID),
	}
}

// RateLimitExceeded creates a rate limit exceeded error.
func RateLimitExceeded(msg string) *StudyError {
	return &StudyError{Code: ErrCodeRateLimitExceeded, Message: msg}
}

// Internal creates an internal error around cause.
func Internal(msg string, cause error) *StudyError {
	return &StudyError{Code: ErrCodeInternal, Message: msg, Cause: cause}
}

// Wrap wraps an existing error with additional context.
func Wrap(cause error, code ErrorCode, msg string) *StudyError {
	return &StudyError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if an error, or any error it wraps, carries code.
func IsCode(err error, code ErrorCode) bool {
	var se *StudyError
	if stderrors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not a StudyError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	var se *StudyError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return defaultCode
}

// From returns err as a StudyError, wrapping unknown errors as INTERNAL.
func From(err error) *StudyError {
	var se *StudyError
	if stderrors.As(err, &se) {
		return se
	}
	return Internal("internal error", err)
}
