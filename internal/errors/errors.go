package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Authentication & Authorization
	ErrCodeUnauthorized        ErrorCode = "UNAUTHORIZED"
	ErrCodeInvalidSecretFormat ErrorCode = "INVALID_SECRET_FORMAT"
	ErrCodeExternalAuthFailed  ErrorCode = "EXTERNAL_AUTH_FAILED"
	ErrCodeHandshakeFailed     ErrorCode = "SESSION_HANDSHAKE_FAILED"

	// Validation
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeMissingRequired ErrorCode = "MISSING_REQUIRED"

	// Resource
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	ErrCodeConflict ErrorCode = "CONFLICT"

	// Rate Limiting
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Internal
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	ErrCodeStorage  ErrorCode = "STORAGE_FAILURE"
	ErrCodeRefresh  ErrorCode = "REFRESH_FAILED"
)

// AppError is a structured error that can be returned to clients
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause adds a cause to the error
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common error constructors

func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message)
}

// InvalidSecretFormat reports a TOTP secret that is not valid base32.
func InvalidSecretFormat(cause error) *AppError {
	return Wrap(ErrCodeInvalidSecretFormat, "TOTP secret is not valid base32", cause)
}

// ExternalAuthFailed reports a credential or 2FA rejection by the broker.
// The upstream body rides on Details for internal logs; callers must not
// forward it to external clients.
func ExternalAuthFailed(step string, upstream string) *AppError {
	return New(ErrCodeExternalAuthFailed, fmt.Sprintf("broker rejected %s", step)).
		WithDetails(upstream)
}

// HandshakeFailed reports an unexpected response shape during the API
// token handshake (wrong status, missing redirect parameter, bad body).
func HandshakeFailed(reason string) *AppError {
	return New(ErrCodeHandshakeFailed, fmt.Sprintf("API handshake failed: %s", reason))
}

func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func InvalidInput(field string, reason string) *AppError {
	return New(ErrCodeInvalidInput, fmt.Sprintf("Invalid %s: %s", field, reason))
}

func MissingRequired(field string) *AppError {
	return New(ErrCodeMissingRequired, fmt.Sprintf("%s is required", field))
}

func RateLimitExceeded() *AppError {
	return New(ErrCodeRateLimitExceeded, "Rate limit exceeded")
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

func Storage(cause error) *AppError {
	return Wrap(ErrCodeStorage, "Storage error", cause)
}

func Refresh(cause error) *AppError {
	return Wrap(ErrCodeRefresh, "Instrument refresh failed", cause)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns the error code if the error is an AppError, otherwise returns ErrCodeInternal
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}
