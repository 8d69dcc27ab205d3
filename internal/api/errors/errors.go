// Package errors provides structured error types and response helpers for the API.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"

	"github.com/narvanalabs/matchday/internal/blob"
	"github.com/narvanalabs/matchday/internal/engine"
	"github.com/narvanalabs/matchday/internal/models"
	"github.com/narvanalabs/matchday/internal/store"
)

// Error codes for structured API responses.
const (
	CodeValidationError    = "VALIDATION_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeConflict           = "CONFLICT"
	CodeInvalidState       = "INVALID_STATE"
	CodeAlreadyParticipant = "ALREADY_PARTICIPANT"
	CodeDuplicatePending   = "DUPLICATE_PENDING"
	CodeExternalService    = "EXTERNAL_SERVICE_FAILURE"
	CodeRateLimited        = "RATE_LIMITED"
	CodeUnavailable        = "SERVICE_UNAVAILABLE"
)

// APIError represents a structured API error response.
type APIError struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithDetails returns a copy of the error with additional details.
func (e *APIError) WithDetails(details map[string]any) *APIError {
	c := *e
	c.Details = details
	return &c
}

// WithRequestID returns a copy of the error with the request ID set.
func (e *APIError) WithRequestID(requestID string) *APIError {
	c := *e
	c.RequestID = requestID
	return &c
}

// New creates a new APIError with the given code and message.
func New(code, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a validation error.
func NewValidationError(message string) *APIError {
	return New(CodeValidationError, message)
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(message string) *APIError {
	return New(CodeNotFound, message)
}

// NewUnauthorizedError creates an unauthorized error.
func NewUnauthorizedError(message string) *APIError {
	return New(CodeUnauthorized, message)
}

// NewForbiddenError creates a forbidden error.
func NewForbiddenError(message string) *APIError {
	return New(CodeForbidden, message)
}

// NewInternalError creates an internal server error.
func NewInternalError(message string) *APIError {
	return New(CodeInternalError, message)
}

// NewConflictError creates a conflict error.
func NewConflictError(message string) *APIError {
	return New(CodeConflict, message)
}

// NewRateLimitedError creates a too-many-requests error.
func NewRateLimitedError(message string) *APIError {
	return New(CodeRateLimited, message)
}

// HTTPStatusCode returns the appropriate HTTP status code for the error.
func (e *APIError) HTTPStatusCode() int {
	switch e.Code {
	case CodeValidationError:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeConflict, CodeInvalidState, CodeAlreadyParticipant, CodeDuplicatePending:
		return http.StatusConflict
	case CodeExternalService:
		return http.StatusBadGateway
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// FromDomain converts an error returned by the engine or its collaborators
// into an APIError. Unknown errors become INTERNAL_ERROR without leaking
// their text.
func FromDomain(err error) *APIError {
	var (
		apiErr *APIError
		fields models.FieldErrors
	)
	switch {
	case err == nil:
		return nil
	case errors.As(err, &apiErr):
		return apiErr
	case errors.As(err, &fields):
		var v ValidationErrors
		for _, f := range fields {
			v.Add(f.Field, f.Err.Error())
		}
		return v.ToAPIError()
	case errors.Is(err, engine.ErrInvalidInput):
		return NewValidationError(err.Error())
	case errors.Is(err, engine.ErrNotFound), errors.Is(err, store.ErrNotFound):
		return NewNotFoundError("resource not found")
	case errors.Is(err, engine.ErrUnauthorized):
		return NewForbiddenError("you are not allowed to perform this action")
	case errors.Is(err, engine.ErrInvalidState):
		return New(CodeInvalidState, err.Error())
	case errors.Is(err, engine.ErrAlreadyParticipant):
		return New(CodeAlreadyParticipant, "you are already part of this activity")
	case errors.Is(err, engine.ErrDuplicatePending), errors.Is(err, store.ErrDuplicatePending):
		return New(CodeDuplicatePending, "you already have a pending request for this activity")
	case errors.Is(err, store.ErrEmailTaken):
		return NewConflictError("email already registered")
	case errors.Is(err, store.ErrInvalidCredentials):
		return NewUnauthorizedError("invalid email or password")
	case errors.Is(err, blob.ErrUnsupportedType):
		return NewValidationError("photo must be a JPEG, PNG, WebP or GIF image")
	case errors.Is(err, blob.ErrDisabled):
		return New(CodeUnavailable, "photo uploads are not configured")
	case errors.Is(err, engine.ErrExternalService):
		return New(CodeExternalService, "a backing service failed, try again")
	default:
		return NewInternalError("an unexpected error occurred")
	}
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// WriteError writes an APIError as a JSON response.
func WriteError(w http.ResponseWriter, err *APIError) {
	WriteJSON(w, err.HTTPStatusCode(), err)
}

// WriteErrorWithRequestID writes an APIError with the request ID set.
func WriteErrorWithRequestID(w http.ResponseWriter, err *APIError, requestID string) {
	WriteError(w, err.WithRequestID(requestID))
}

// GetStackTrace returns the current stack trace as a string.
func GetStackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// ValidationError represents a field-level validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of field-level validation errors.
type ValidationErrors []ValidationError

// Add adds a new validation error for a field.
func (v *ValidationErrors) Add(field, message string) {
	*v = append(*v, ValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are any validation errors.
func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

// ToAPIError converts validation errors to an APIError with field details.
func (v ValidationErrors) ToAPIError() *APIError {
	if !v.HasErrors() {
		return NewValidationError("validation failed")
	}

	mainMessage := v[0].Message
	if len(v) > 1 {
		mainMessage = fmt.Sprintf("%s (and %d more errors)", mainMessage, len(v)-1)
	}

	return NewValidationError(mainMessage).WithDetails(map[string]any{
		"fields": v,
	})
}

// ErrorLogEntry represents a structured error log entry.
type ErrorLogEntry struct {
	CorrelationID string `json:"correlation_id"`
	ErrorCode     string `json:"error_code"`
	Message       string `json:"message"`
	StackTrace    string `json:"stack_trace"`
}

// NewErrorLogEntry creates a new error log entry with all required fields.
func NewErrorLogEntry(correlationID, errorCode, message string) *ErrorLogEntry {
	return &ErrorLogEntry{
		CorrelationID: correlationID,
		ErrorCode:     errorCode,
		Message:       message,
		StackTrace:    GetStackTrace(),
	}
}

// ToSlogAttrs returns the error log entry as slog attributes for structured logging.
func (e *ErrorLogEntry) ToSlogAttrs() []any {
	return []any{
		"correlation_id", e.CorrelationID,
		"error_code", e.ErrorCode,
		"message", e.Message,
		"stack_trace", e.StackTrace,
	}
}
