// Package errors is the API error model: a stable code, a message, optional
// details and the HTTP status the error handler renders it with.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error codes
const (
	CodeValidationError    = "VALIDATION_ERROR"
	CodeBadRequest         = "BAD_REQUEST"
	CodeNotFound           = "RESOURCE_NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"

	CodeInsufficientStock        = "INSUFFICIENT_STOCK"
	CodeInsufficientPackingStock = "INSUFFICIENT_PACKING_STOCK"
	CodeInvalidState             = "INVALID_STATE"
	CodeVerificationMismatch     = "VERIFICATION_MISMATCH"
	CodeConcurrencyConflict      = "CONCURRENCY_CONFLICT"
)

// AppError is an error the API can render
type AppError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	HTTPStatus int               `json:"-"`
	Err        error             `json:"-"`
}

// Error leaves out the cause when the message already is its text
func (e *AppError) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds one detail
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Wrap records the underlying cause
func (e *AppError) Wrap(err error) *AppError {
	e.Err = err
	return e
}

// NewAppError creates an AppError
func NewAppError(code string, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus}
}

func ErrValidation(message string) *AppError {
	return NewAppError(CodeValidationError, message, http.StatusBadRequest)
}

// ErrValidationWithFields reports one message per offending field
func ErrValidationWithFields(message string, fields map[string]string) *AppError {
	appErr := ErrValidation(message)
	for field, msg := range fields {
		appErr.WithDetail(field, msg)
	}
	return appErr
}

// ErrBadRequest is for bodies and queries that cannot be decoded at all
func ErrBadRequest(message string) *AppError {
	return NewAppError(CodeBadRequest, message, http.StatusBadRequest)
}

func ErrNotFound(resource string) *AppError {
	return NewAppError(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func ErrNotFoundWithID(resource, id string) *AppError {
	return ErrNotFound(resource).WithDetail("id", id)
}

func ErrConflict(message string) *AppError {
	return NewAppError(CodeConflict, message, http.StatusConflict)
}

func ErrInternal(message string) *AppError {
	if message == "" {
		message = "an internal error occurred"
	}
	return NewAppError(CodeInternalError, message, http.StatusInternalServerError)
}

func ErrServiceUnavailable(service string) *AppError {
	return NewAppError(CodeServiceUnavailable, fmt.Sprintf("%s is temporarily unavailable", service), http.StatusServiceUnavailable)
}

// ErrInsufficientStock is a guarded decrement that found too little stock
func ErrInsufficientStock(message string) *AppError {
	return NewAppError(CodeInsufficientStock, message, http.StatusConflict)
}

// ErrInsufficientPackingStock is a pack that cannot reserve its packing stock
func ErrInsufficientPackingStock(message string) *AppError {
	return NewAppError(CodeInsufficientPackingStock, message, http.StatusConflict)
}

// ErrInvalidState is an operation on a record in the wrong state
func ErrInvalidState(message string) *AppError {
	return NewAppError(CodeInvalidState, message, http.StatusConflict)
}

// ErrVerificationMismatch is a physical count that does not add up
func ErrVerificationMismatch(message string) *AppError {
	return NewAppError(CodeVerificationMismatch, message, http.StatusUnprocessableEntity)
}

// ErrConcurrencyConflict is a write that lost a race
func ErrConcurrencyConflict(message string) *AppError {
	return NewAppError(CodeConcurrencyConflict, message, http.StatusConflict)
}

// IsAppError reports whether err wraps an AppError
func IsAppError(err error) bool {
	_, ok := AsAppError(err)
	return ok
}

// AsAppError returns the AppError wrapped by err
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// MapDomainError is the fallback mapping for errors no layer has typed yet.
// It goes by the message, so typed mappings should run first.
func MapDomainError(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrServiceUnavailable("storage").Wrap(err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "insufficient packing stock"):
		return ErrInsufficientPackingStock(err.Error()).Wrap(err)
	case strings.Contains(msg, "insufficient stock"):
		return ErrInsufficientStock(err.Error()).Wrap(err)
	case strings.Contains(msg, "not found"):
		return ErrNotFound("resource").Wrap(err)
	case strings.Contains(msg, "already exists"):
		return ErrConflict(err.Error()).Wrap(err)
	case strings.Contains(msg, "invalid"), strings.Contains(msg, "required"):
		return ErrValidation(err.Error()).Wrap(err)
	default:
		return ErrInternal("").Wrap(err)
	}
}
