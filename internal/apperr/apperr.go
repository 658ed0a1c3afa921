// Package apperr holds the sentinel errors shared by the backend services and
// their HTTP status mapping.
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrDuplicate         = errors.New("already exists")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrPaymentRequired   = errors.New("payment has not been completed")
	ErrInvalidInput      = errors.New("invalid input")
	ErrTooLarge          = errors.New("payload too large")
	ErrUnavailable       = errors.New("upstream service unavailable")
)

// Status maps an error chain to the HTTP status handlers respond with.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, ErrPaymentRequired):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
