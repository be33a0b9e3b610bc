package errors

import (
	"errors"
	"net/http"
)

// AppError is an error that crosses into the console's domain, carrying a
// human readable message, an HTTP status and a machine readable code.
type AppError struct {
	Err       error
	Message   string
	Status    int
	Code      string
	Retryable bool
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined errors
var (
	ErrInvalidBody = &AppError{
		Err:     errors.New("invalid request body"),
		Message: "The request body is not valid JSON settings.",
		Status:  http.StatusBadRequest,
		Code:    "invalid_body",
	}

	ErrNotFound = &AppError{
		Err:     errors.New("record not found"),
		Message: "The requested record does not exist.",
		Status:  http.StatusNotFound,
		Code:    "not_found",
	}

	ErrUnauthorized = &AppError{
		Err:     errors.New("unauthorized"),
		Message: "Your session has expired. Please sign in again.",
		Status:  http.StatusUnauthorized,
		Code:    "unauthorized",
	}

	ErrBackendUnavailable = &AppError{
		Err:       errors.New("backend unavailable"),
		Message:   "The scanning backend is currently unavailable. Please try again later.",
		Status:    http.StatusServiceUnavailable,
		Code:      "backend_unavailable",
		Retryable: true,
	}

	ErrBackendTimeout = &AppError{
		Err:       errors.New("backend timeout"),
		Message:   "The scanning backend took too long to respond.",
		Status:    http.StatusGatewayTimeout,
		Code:      "backend_timeout",
		Retryable: true,
	}
)

// New creates an AppError without an underlying cause
func New(status int, code, message string) *AppError {
	return &AppError{
		Err:     errors.New(message),
		Message: message,
		Status:  status,
		Code:    code,
	}
}

// Wrap wraps a technical error with a user message
func Wrap(err error, message string, retryable bool) *AppError {
	return &AppError{
		Err:       err,
		Message:   message,
		Status:    StatusOf(err),
		Code:      CodeOf(err),
		Retryable: retryable,
	}
}

// GetMessage extracts the user-facing message from err
func GetMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return "An unexpected error occurred. Please try again later."
}

// StatusOf returns the HTTP status carried by err, or 500
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// CodeOf returns the error code carried by err, or "internal"
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != "" {
		return appErr.Code
	}
	return "internal"
}

// IsRetryable checks if an error can be retried
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}
