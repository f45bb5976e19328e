package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation         = fmt.Errorf("validation failed")
	ErrNotFound           = fmt.Errorf("not found")
	ErrPersistence        = fmt.Errorf("persistence failure")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrWorkerPanic        = fmt.Errorf("worker panic")
)

// MapToHTTPStatus translates domain sentinels into HTTP status codes.
// Unknown errors are treated as server-side failures so that internals
// never leak to the client as a 4xx.
func MapToHTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUserAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
