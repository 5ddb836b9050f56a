package dto

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/taskdesk/taskdesk/internal/domain"
)

// MapDomainError maps domain errors to HTTP status codes. Ownership
// misses share the 404 with true absence on purpose: a manager guessing a
// foreign task ID learns nothing.
func MapDomainError(err error) (status int, message string) {
	message = err.Error()

	switch {
	// Not found (and ownership masking)
	case errors.Is(err, domain.ErrTaskNotFound):
		return http.StatusNotFound, message
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, message

	// Role gates
	case errors.Is(err, domain.ErrNotManager):
		return http.StatusForbidden, message
	case errors.Is(err, domain.ErrNotEmployee):
		return http.StatusForbidden, message
	case errors.Is(err, domain.ErrInvalidToken):
		return http.StatusUnauthorized, message

	// Validation
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidDeadline),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrAssigneeRole),
		errors.Is(err, domain.ErrAssigneeNotFound):
		return http.StatusBadRequest, message

	default:
		slog.Error("unmapped domain error returned to client",
			"error", err,
			"error_type", fmt.Sprintf("%T", err),
		)
		return http.StatusInternalServerError, "Internal server error"
	}
}
