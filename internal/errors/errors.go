// FilePath: internal/errors/errors.go
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// Error types
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeDatabase     ErrorType = "database"
	ErrorTypeAuth         ErrorType = "authentication"
	ErrorTypeAuthorize    ErrorType = "authorization"
	ErrorTypeAccessDenied ErrorType = "access_denied"
	ErrorTypeNoDevices    ErrorType = "no_devices"
	ErrorTypeTransport    ErrorType = "transport"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeConflict     ErrorType = "conflict"
	ErrorTypeInternal     ErrorType = "internal"
	ErrorTypeUnavailable  ErrorType = "service_unavailable"
)

// APIError represents a structured API error
type APIError struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	Code      int       `json:"code"`
	RequestID string    `json:"request_id,omitempty"`
	Details   any       `json:"details,omitempty"`
	err       error     // Internal error for logging
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the internal error to errors.Is / errors.As
func (e *APIError) Unwrap() error {
	return e.err
}

// WithRequestID adds a request ID to the error
func (e *APIError) WithRequestID(id string) *APIError {
	e.RequestID = id
	return e
}

// WithDetails adds additional details to the error
func (e *APIError) WithDetails(details any) *APIError {
	e.Details = details
	return e
}

func newError(t ErrorType, code int, msg string, err error) *APIError {
	return &APIError{
		Type:    t,
		Message: msg,
		Code:    code,
		err:     err,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(msg string, err error) *APIError {
	return newError(ErrorTypeValidation, http.StatusBadRequest, msg, err)
}

// NewDatabaseError creates a new database error
func NewDatabaseError(msg string, err error) *APIError {
	return newError(ErrorTypeDatabase, http.StatusInternalServerError, msg, err)
}

// NewAuthError creates a new authentication error
func NewAuthError(msg string, err error) *APIError {
	return newError(ErrorTypeAuth, http.StatusUnauthorized, msg, err)
}

// NewAuthorizationError creates a new authorization error
func NewAuthorizationError(msg string, err error) *APIError {
	return newError(ErrorTypeAuthorize, http.StatusForbidden, msg, err)
}

// NewAccessDeniedError is returned when a device outside the caller's ownership is requested.
// No readings are queried once this error is produced.
func NewAccessDeniedError(msg string, err error) *APIError {
	return newError(ErrorTypeAccessDenied, http.StatusForbidden, msg, err)
}

// NewNoDevicesError is returned when a scope resolves to an empty device set
func NewNoDevicesError(msg string, err error) *APIError {
	return newError(ErrorTypeNoDevices, http.StatusNotFound, msg, err)
}

// NewTransportError wraps a failure of the backend query collaborator
func NewTransportError(msg string, err error) *APIError {
	return newError(ErrorTypeTransport, http.StatusBadGateway, msg, err)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(msg string, err error) *APIError {
	return newError(ErrorTypeNotFound, http.StatusNotFound, msg, err)
}

// NewConflictError creates a new conflict error
func NewConflictError(msg string, err error) *APIError {
	return newError(ErrorTypeConflict, http.StatusConflict, msg, err)
}

// NewInternalError creates a new internal server error
func NewInternalError(msg string, err error) *APIError {
	return newError(ErrorTypeInternal, http.StatusInternalServerError, msg, err)
}

// NewUnavailableError creates a new service unavailable error
func NewUnavailableError(msg string, err error) *APIError {
	return newError(ErrorTypeUnavailable, http.StatusServiceUnavailable, msg, err)
}

// As returns the outermost APIError in err's chain
func As(err error) (*APIError, bool) {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// TypeOf returns the error type of the outermost APIError, or "" for foreign errors
func TypeOf(err error) ErrorType {
	if apiErr, ok := As(err); ok {
		return apiErr.Type
	}
	return ""
}

// IsNotFound checks if an error is a NotFound error
func IsNotFound(err error) bool {
	return TypeOf(err) == ErrorTypeNotFound
}

// IsValidation checks if an error is a Validation error
func IsValidation(err error) bool {
	return TypeOf(err) == ErrorTypeValidation
}

// IsAccessDenied checks if an error is an AccessDenied error
func IsAccessDenied(err error) bool {
	return TypeOf(err) == ErrorTypeAccessDenied
}

// IsNoDevices checks if an error is a NoDevicesFound error
func IsNoDevices(err error) bool {
	return TypeOf(err) == ErrorTypeNoDevices
}

// IsTransport checks if an error is a TransportError
func IsTransport(err error) bool {
	return TypeOf(err) == ErrorTypeTransport
}

// IsConflict checks if an error is a Conflict error
func IsConflict(err error) bool {
	return TypeOf(err) == ErrorTypeConflict
}
