package handler

import (
	"errors"
	"net/http"

	domain "fieldserve/internal/core"

	pbCore "github.com/pocketbase/pocketbase/core"
)

// writeError translates a service error kind into an HTTP response.
// Unrecognized errors are reported as 500 with a generic message so
// internal details never leak to the client.
func writeError(e *pbCore.RequestEvent, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return e.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		return e.JSON(http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrStaleState),
		errors.Is(err, domain.ErrDuplicateReview),
		errors.Is(err, domain.ErrNotCompleted):
		return e.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidPin),
		errors.Is(err, domain.ErrMissingProof),
		errors.Is(err, domain.ErrMissingExtraReason),
		errors.Is(err, domain.ErrInvalidRating):
		return e.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		return e.JSON(http.StatusInternalServerError, map[string]string{"error": "Something went wrong"})
	}
}
