package response

import (
	"errors"
	"net/http"

	"memorymount/entity"
	"memorymount/lib/clock"
)

type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Success       bool        `json:"success" validate:"required"`
	StatusMessage string      `json:"status_message"`
	Timestamp     string      `json:"timestamp"`
}

func Ok(data interface{}) Response {
	return Response{
		Data:          data,
		Success:       true,
		StatusMessage: "Success",
		Timestamp:     clock.Now(),
	}
}

func Error(message string) Response {
	return Response{
		Success:       false,
		StatusMessage: message,
		Timestamp:     clock.Now(),
	}
}

// Status maps a service-layer failure to an HTTP status code.
// Unrecognized errors are treated as internal.
func Status(err error) int {
	switch {
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrAlreadyUsed),
		errors.Is(err, entity.ErrAlreadyAssigned),
		errors.Is(err, entity.ErrAlreadyClaimed),
		errors.Is(err, entity.ErrDuplicateEmail):
		return http.StatusConflict
	case errors.Is(err, entity.ErrInvalidCredentials),
		errors.Is(err, entity.ErrTokenExpired),
		errors.Is(err, entity.ErrTokenInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, entity.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, entity.ErrMismatch),
		errors.Is(err, entity.ErrWrongCurrentPassword),
		errors.Is(err, entity.ErrPasswordTooShort),
		errors.Is(err, entity.ErrMissingParameters):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrMissingConfig):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
