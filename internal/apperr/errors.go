// Package apperr defines the error taxonomy shared by services and handlers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable, client-facing error identifier.
type Code string

const (
	CodeAuthFailed       Code = "AUTH_FAILED"
	CodeUnauthenticated  Code = "UNAUTHENTICATED"
	CodePermissionDenied Code = "PERMISSION_DENIED"
	CodeValidationFailed Code = "VALIDATION_FAILED"
	CodeNotFound         Code = "NOT_FOUND"
	CodeConflict         Code = "CONFLICT"
	CodeInternal         Code = "INTERNAL"
)

// Error is a refused action with a user-visible message.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	err     error
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

// Wrap attaches a cause that errors.Is/As can reach.
func (e *Error) Wrap(err error) *Error {
	e.err = err
	return e
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func AuthFailed() *Error {
	return New(CodeAuthFailed, "Invalid username or password")
}

func Unauthenticated() *Error {
	return New(CodeUnauthenticated, "Login required")
}

func PermissionDenied(message string) *Error {
	return New(CodePermissionDenied, message)
}

func Validation(message, details string) *Error {
	return &Error{Code: CodeValidationFailed, Message: message, Details: details}
}

func NotFound(message string) *Error {
	return New(CodeNotFound, message)
}

func Conflict(message string) *Error {
	return New(CodeConflict, message)
}

// As extracts an *Error from err, converting unknown errors to CodeInternal.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: CodeInternal, Message: "internal error", err: err}
}

// HTTPStatus maps an error to the status code written by handlers.
func HTTPStatus(err error) int {
	switch As(err).Code {
	case CodeAuthFailed, CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeValidationFailed:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
