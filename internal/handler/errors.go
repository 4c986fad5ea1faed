package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"reelmarket/internal/models"
	"reelmarket/internal/resolution"
)

// respondError maps domain errors onto HTTP statuses. A partial
// resolution failure is surfaced as 500 with the completed steps in the
// meta block so the operator knows what already committed.
func respondError(c *gin.Context, err error) {
	var partial *resolution.PartialError
	if errors.As(err, &partial) {
		Error(c, http.StatusInternalServerError, partial.Error(), map[string]any{
			"completed_steps": partial.Completed,
		})
		return
	}
	switch {
	case errors.Is(err, models.ErrMarketNotFound),
		errors.Is(err, models.ErrOutcomeNotFound),
		errors.Is(err, models.ErrBetNotFound),
		errors.Is(err, models.ErrUserNotFound):
		Error(c, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, models.ErrAlreadyResolved),
		errors.Is(err, models.ErrInvalidState),
		errors.Is(err, models.ErrDuplicateBet):
		Error(c, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, models.ErrInvalidInput),
		errors.Is(err, models.ErrInsufficientFunds),
		errors.Is(err, models.ErrInsufficientConfidence):
		Error(c, http.StatusBadRequest, err.Error(), nil)
	default:
		Error(c, http.StatusInternalServerError, err.Error(), nil)
	}
}
