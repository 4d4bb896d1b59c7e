// AngelaMos | 2026
// errors.go

package core

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound      = errors.New("resource not found")
	ErrDuplicateKey  = errors.New("duplicate key")
	ErrInvalidInput  = errors.New("invalid input")
	ErrTokenInvalid  = errors.New("invalid token")
	ErrRateLimited   = errors.New("rate limited")
	ErrInternalError = errors.New("internal error")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
	Code       string
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(err error, message string, status int, code string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		StatusCode: status,
		Code:       code,
	}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func NotFoundError(resource string) *AppError {
	return NewAppError(
		ErrNotFound,
		resource+" not found",
		http.StatusNotFound,
		"NOT_FOUND",
	)
}

func DuplicateError(field string) *AppError {
	return NewAppError(
		ErrDuplicateKey,
		field+" already in use",
		http.StatusConflict,
		"CONFLICT",
	)
}

func ValidationError(message string) *AppError {
	return NewAppError(
		ErrInvalidInput,
		message,
		http.StatusBadRequest,
		"VALIDATION_ERROR",
	)
}

// TokenInvalidError covers malformed, expired, tampered and unresolvable
// tokens alike so callers cannot tell which check failed.
func TokenInvalidError() *AppError {
	return NewAppError(
		ErrTokenInvalid,
		"not authorized",
		http.StatusUnauthorized,
		"TOKEN_INVALID",
	)
}

func InternalError() *AppError {
	return NewAppError(
		ErrInternalError,
		"internal server error",
		http.StatusInternalServerError,
		"INTERNAL_ERROR",
	)
}
