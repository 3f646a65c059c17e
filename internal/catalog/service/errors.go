package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"ms-catalog/internal/catalog/db"
	"ms-catalog/internal/models"
)

// Error kinds. Every failure a service reports wraps exactly one of them.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInternal     = errors.New("internal error")
)

// Error is a failure with a caller-facing message.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Kind }

func invalid(format string, args ...any) error {
	return &Error{Kind: ErrInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func conflict(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

// StatusCode maps an error onto the HTTP status of its kind. Storage sentinels
// are classified too so raw store errors never surface as 500 by accident.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput), errors.Is(err, db.ErrTxInProgress):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound), errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, db.ErrDuplicate), errors.Is(err, db.ErrInsufficientSeats):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// failure converts err into a failed Result. Messages of internal errors are
// replaced with fallback so driver details do not leak to callers.
func failure[T any](err error, fallback string) models.Result[T] {
	status := StatusCode(err)

	var svcErr *Error
	switch {
	case errors.As(err, &svcErr):
		return models.Fail[T](status, svcErr.Message)
	case status == http.StatusInternalServerError:
		return models.Fail[T](status, fallback)
	}
	return models.Fail[T](status, err.Error())
}
