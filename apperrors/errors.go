package apperrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// AppError is an error that knows how it should be reported to a client
type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code string, message string, status int, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

func BadRequest(code, message string) *AppError {
	return New(code, message, http.StatusBadRequest, nil)
}

func Validation(message string) *AppError {
	return New("VALIDATION_ERROR", message, http.StatusBadRequest, nil)
}

func Unauthorized(message string) *AppError {
	return New("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func Forbidden(message string) *AppError {
	return New("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NotFound(resource string) *AppError {
	return New("NOT_FOUND", fmt.Sprintf("%s not found", resource), http.StatusNotFound, nil)
}

func Conflict(message string) *AppError {
	return New("CONFLICT", message, http.StatusConflict, nil)
}

func TooManyRequests(message string) *AppError {
	return New("TOO_MANY_REQUESTS", message, http.StatusTooManyRequests, nil)
}

// Internal wraps a dependency failure. Message is shown to the client, err is only logged.
func Internal(message string, err error) *AppError {
	return New("INTERNAL_ERROR", message, http.StatusInternalServerError, err)
}

func Timeout(err error) *AppError {
	return New("TIMEOUT", "The request took too long to complete", http.StatusGatewayTimeout, err)
}

// Is reports whether err is an AppError with the given code
func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// FromError classifies any error. A deadline anywhere in the chain becomes a
// timeout even when it was wrapped in an Internal error.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout(err)
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}
