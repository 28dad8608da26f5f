package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// APIError represents a custom error type for API responses
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Details string `json:"details,omitempty"`

	cause error
}

// Error returns the error message
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *APIError) Unwrap() error {
	return e.cause
}

// Is matches on Code so that a detailed copy of a sentinel still compares equal to it.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetails returns a copy of e carrying details.
func (e *APIError) WithDetails(details string) *APIError {
	cp := *e
	cp.Details = details
	return &cp
}

// WithMessage returns a copy of e with a different human readable message.
func (e *APIError) WithMessage(message string) *APIError {
	cp := *e
	cp.Message = message
	return &cp
}

// Public strips details from server errors so nothing internal reaches the client.
func (e *APIError) Public() *APIError {
	cp := *e
	cp.cause = nil
	if cp.Status >= http.StatusInternalServerError {
		cp.Details = ""
	}
	return &cp
}

func NewAPIError(code, message string, status int, details ...string) *APIError {
	err := &APIError{
		Code:    code,
		Message: message,
		Status:  status,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

var (
	ErrValidation         = NewAPIError("VALIDATION_ERROR", "Invalid request data", http.StatusBadRequest)
	ErrDuplicateEmail     = NewAPIError("DUPLICATE_EMAIL", "User already exists", http.StatusBadRequest)
	ErrInvalidCredentials = NewAPIError("INVALID_CREDENTIALS", "Invalid credentials", http.StatusBadRequest)
	ErrUnauthenticated    = NewAPIError("UNAUTHENTICATED", "No token, authorization denied", http.StatusUnauthorized)
	ErrInvalidToken       = NewAPIError("INVALID_TOKEN", "Token is not valid", http.StatusBadRequest)
	ErrDuplicateRequest   = NewAPIError("DUPLICATE_REQUEST", "Connection request already sent", http.StatusBadRequest)
	ErrNoSuchRequest      = NewAPIError("NO_SUCH_REQUEST", "No connection request found", http.StatusBadRequest)
	ErrNotFound           = NewAPIError("NOT_FOUND", "Resource not found", http.StatusNotFound)
	ErrTooManyAttempts    = NewAPIError("TOO_MANY_ATTEMPTS", "Too many failed login attempts, try again later", http.StatusTooManyRequests)
	ErrStore              = NewAPIError("STORE_ERROR", "Server error", http.StatusInternalServerError)
	ErrInternal           = NewAPIError("INTERNAL_SERVER_ERROR", "Internal server error", http.StatusInternalServerError)
)

// Wrap turns err into an APIError. APIErrors anywhere in the chain are returned as is.
func Wrap(err error, code, message string, status int) *APIError {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}
	wrapped := NewAPIError(code, message, status, err.Error())
	wrapped.cause = err
	return wrapped
}

// StoreFailure wraps a persistence failure as ErrStore, keeping the cause for logs.
func StoreFailure(err error, op string) *APIError {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}
	wrapped := ErrStore.WithDetails(fmt.Sprintf("%s: %v", op, err))
	wrapped.cause = err
	return wrapped
}
