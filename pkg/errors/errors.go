// Package errors defines the error taxonomy of the shieldgate service.
// Every error that reaches the transport layer is an AppError carrying a stable code,
// an HTTP status and a caller-safe description.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/turtacn/shieldgate/pkg/constants"
)

// ================================================================================
// Base Error Interface
// ================================================================================

// AppError represents a structured error with additional metadata
type AppError interface {
	error

	// Code returns the machine-readable error code
	Code() constants.ErrorCode

	// HTTPStatus returns the HTTP status code
	HTTPStatus() int

	// Description returns a caller-safe description
	Description() string

	// Unwrap returns the underlying error for error chain support
	Unwrap() error

	// WithCause adds a cause error to the error chain
	WithCause(cause error) AppError

	// WithMetadata adds caller-visible context metadata
	WithMetadata(key string, value interface{}) AppError

	// Metadata returns all metadata
	Metadata() map[string]interface{}
}

// ================================================================================
// Base Error Implementation
// ================================================================================

type baseError struct {
	code        constants.ErrorCode
	httpStatus  int
	description string
	message     string
	cause       error
	metadata    map[string]interface{}
}

// Error implements the error interface. The message is internal and may be logged,
// the description is what callers see.
func (e *baseError) Error() string {
	msg := e.message
	if msg == "" {
		msg = e.description
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

func (e *baseError) Code() constants.ErrorCode { return e.code }

func (e *baseError) HTTPStatus() int { return e.httpStatus }

func (e *baseError) Description() string { return e.description }

func (e *baseError) Unwrap() error { return e.cause }

func (e *baseError) WithCause(cause error) AppError {
	e.cause = cause
	return e
}

func (e *baseError) WithMetadata(key string, value interface{}) AppError {
	if e.metadata == nil {
		e.metadata = make(map[string]interface{})
	}
	e.metadata[key] = value
	return e
}

func (e *baseError) Metadata() map[string]interface{} {
	return e.metadata
}

// Is reports code equality so errors.Is works against the sentinel-style constructors.
func (e *baseError) Is(target error) bool {
	var other AppError
	if !stderrors.As(target, &other) {
		return false
	}
	return other.Code() == e.code
}

// ================================================================================
// Error Constructor
// ================================================================================

// NewError creates a new AppError with the specified parameters
func NewError(code constants.ErrorCode, httpStatus int, description string, message string) AppError {
	return &baseError{
		code:        code,
		httpStatus:  httpStatus,
		description: description,
		message:     message,
		metadata:    make(map[string]interface{}),
	}
}

// ================================================================================
// Predefined Error Constructors
// ================================================================================

// ErrInvalidRequest creates an invalid_request error
func ErrInvalidRequest(message string) AppError {
	return NewError(
		constants.ErrCodeInvalidRequest,
		http.StatusBadRequest,
		"The request is missing a required parameter or is otherwise malformed.",
		message,
	)
}

// ErrAuthentication is returned for missing, malformed, expired or forged credentials.
// The request terminates immediately with no side effects.
func ErrAuthentication(message string) AppError {
	return NewError(
		constants.ErrCodeUnauthorized,
		http.StatusUnauthorized,
		"The credential is missing or not valid.",
		message,
	)
}

// ErrForbidden is returned when the tenant lacks a required permission
func ErrForbidden(permission string) AppError {
	return NewError(
		constants.ErrCodeForbidden,
		http.StatusForbidden,
		"The credential does not grant access to this operation.",
		fmt.Sprintf("missing permission %q", permission),
	).WithMetadata("required_permission", permission)
}

// ErrRateLimitExceeded is a retryable throttling signal.
//
// Parameters:
//   - retryAfterSeconds: seconds until at least one token is available
func ErrRateLimitExceeded(retryAfterSeconds int) AppError {
	return NewError(
		constants.ErrCodeRateLimitExceeded,
		http.StatusTooManyRequests,
		"Too many requests. Please retry later.",
		"rate limit exceeded",
	).WithMetadata("retry_after", retryAfterSeconds)
}

// ErrInputRejected is returned when input validation blocks a message or parameter.
// It carries the threat category and level, never the matched rule text.
func ErrInputRejected(category, level string) AppError {
	return NewError(
		constants.ErrCodeInputRejected,
		http.StatusBadRequest,
		constants.BlockedMessage,
		fmt.Sprintf("input rejected: category=%s level=%s", category, level),
	).WithMetadata("threat_category", category).WithMetadata("threat_level", level)
}

// ErrIsolationViolation signals that a tenant-scoped resource reached a request bound to a
// different tenant. It is fatal for the request and the caller only sees a generic error.
func ErrIsolationViolation(expectedTenant, ownerTenant string) AppError {
	return NewError(
		constants.ErrCodeServerError,
		http.StatusInternalServerError,
		"An internal error occurred.",
		fmt.Sprintf("tenant isolation violation: validated=%q owner=%q", expectedTenant, ownerTenant),
	).WithMetadata(metaIsolation, true)
}

// ErrGenerationFailure wraps a timeout or upstream failure of the text-generation service
func ErrGenerationFailure(cause error) AppError {
	return NewError(
		constants.ErrCodeGenerationFailed,
		http.StatusOK,
		constants.ApologyMessage,
		"generation service failure",
	).WithCause(cause)
}

// ErrOutputRejected is returned when generated text is discarded
func ErrOutputRejected(reason string) AppError {
	return NewError(
		constants.ErrCodeOutputRejected,
		http.StatusOK,
		constants.RefusalMessage,
		"output rejected: "+reason,
	)
}

// ErrNotFound creates a not_found error
func ErrNotFound(resource, id string) AppError {
	return NewError(
		constants.ErrCodeNotFound,
		http.StatusNotFound,
		"The requested resource was not found.",
		fmt.Sprintf("%s %s not found", resource, id),
	)
}

// ErrConflict creates a conflict error for repeated submissions
func ErrConflict(message string) AppError {
	return NewError(
		constants.ErrCodeConflict,
		http.StatusConflict,
		"This request has already been processed.",
		message,
	)
}

// ErrStorageUnavailable creates a temporarily_unavailable error for store outages
func ErrStorageUnavailable(component string, cause error) AppError {
	return NewError(
		constants.ErrCodeStorageUnavailable,
		http.StatusServiceUnavailable,
		"The service is temporarily unavailable.",
		component+" unavailable",
	).WithCause(cause)
}

// ErrInternal creates a server_error
func ErrInternal(message string) AppError {
	return NewError(
		constants.ErrCodeServerError,
		http.StatusInternalServerError,
		"An internal error occurred.",
		message,
	)
}

const metaIsolation = "isolation_violation"

// ================================================================================
// Error Validation Utilities
// ================================================================================

// AsAppError finds the first AppError in err's chain
func AsAppError(err error) (AppError, bool) {
	var appErr AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// WrapError wraps a generic error into an AppError
func WrapError(err error, code constants.ErrorCode, message string) AppError {
	var httpStatus int

	switch code {
	case constants.ErrCodeInvalidRequest, constants.ErrCodeInputRejected:
		httpStatus = http.StatusBadRequest
	case constants.ErrCodeUnauthorized:
		httpStatus = http.StatusUnauthorized
	case constants.ErrCodeForbidden:
		httpStatus = http.StatusForbidden
	case constants.ErrCodeNotFound:
		httpStatus = http.StatusNotFound
	case constants.ErrCodeRateLimitExceeded:
		httpStatus = http.StatusTooManyRequests
	case constants.ErrCodeStorageUnavailable:
		httpStatus = http.StatusServiceUnavailable
	default:
		httpStatus = http.StatusInternalServerError
	}

	return NewError(code, httpStatus, "An error occurred while processing the request.", message).WithCause(err)
}

func hasCode(err error, code constants.ErrorCode) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code() == code
	}
	return false
}

// IsAuthenticationError checks if an error is an authentication failure
func IsAuthenticationError(err error) bool { return hasCode(err, constants.ErrCodeUnauthorized) }

// IsRateLimitError checks if an error is related to rate limiting
func IsRateLimitError(err error) bool { return hasCode(err, constants.ErrCodeRateLimitExceeded) }

// IsInputRejected checks if an error is an input validation rejection
func IsInputRejected(err error) bool { return hasCode(err, constants.ErrCodeInputRejected) }

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool { return hasCode(err, constants.ErrCodeNotFound) }

// IsGenerationFailure checks if an error came from the generation service
func IsGenerationFailure(err error) bool { return hasCode(err, constants.ErrCodeGenerationFailed) }

// IsOutputRejected checks if an error is an output rejection
func IsOutputRejected(err error) bool { return hasCode(err, constants.ErrCodeOutputRejected) }

// IsTransientError checks if an error is transient and can be retried
func IsTransientError(err error) bool {
	return hasCode(err, constants.ErrCodeStorageUnavailable) || IsRateLimitError(err)
}

// IsIsolationViolation checks if an error reports a tenant ownership mismatch
func IsIsolationViolation(err error) bool {
	appErr, ok := AsAppError(err)
	if !ok {
		return false
	}
	v, _ := appErr.Metadata()[metaIsolation].(bool)
	return v
}

// ShouldLogError determines if an error should be logged at error level
func ShouldLogError(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		status := appErr.HTTPStatus()
		return status >= 500 || IsGenerationFailure(err)
	}
	return true
}

// ================================================================================
// Error Response Builder
// ================================================================================

// ErrorResponse represents the JSON structure for error responses
type ErrorResponse struct {
	Error            string                 `json:"error"`
	ErrorDescription string                 `json:"error_description"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

// ToErrorResponse converts an AppError to an ErrorResponse. Internal metadata of 5xx errors
// is never exposed.
func ToErrorResponse(err AppError) *ErrorResponse {
	resp := &ErrorResponse{
		Error:            string(err.Code()),
		ErrorDescription: err.Description(),
	}
	if err.HTTPStatus() < http.StatusInternalServerError && len(err.Metadata()) > 0 {
		resp.Metadata = err.Metadata()
	}
	return resp
}

// ToGenericErrorResponse converts any error to an ErrorResponse
func ToGenericErrorResponse(err error) (int, *ErrorResponse) {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus(), ToErrorResponse(appErr)
	}
	return http.StatusInternalServerError, &ErrorResponse{
		Error:            string(constants.ErrCodeServerError),
		ErrorDescription: "An unexpected error occurred",
	}
}
