package handlers

import (
	"errors"
	"net/http"
	"reward-service/internal/models"
	"reward-service/internal/utils"

	"github.com/gofiber/fiber/v3"
)

// respondError maps the service error taxonomy to HTTP statuses. Anything
// not in the taxonomy is an internal error with a generic message.
func respondError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return c.Status(http.StatusNotFound).JSON(
			utils.CreateErrorResponse("NOT_FOUND", err.Error()))
	case errors.Is(err, models.ErrAlreadyProcessed):
		return c.Status(http.StatusConflict).JSON(
			utils.CreateErrorResponse("ALREADY_PROCESSED", err.Error()))
	case errors.Is(err, models.ErrRateLimited):
		return c.Status(http.StatusTooManyRequests).JSON(
			utils.CreateErrorResponse("RATE_LIMITED", err.Error()))
	case errors.Is(err, models.ErrLocationMismatch):
		return c.Status(http.StatusUnprocessableEntity).JSON(
			utils.CreateErrorResponse("LOCATION_MISMATCH", err.Error()))
	case errors.Is(err, models.ErrValidation):
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("VALIDATION_ERROR", err.Error()))
	default:
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("INTERNAL_ERROR", "An internal error occurred"))
	}
}

// requireUserID reads the gateway-injected user header
func requireUserID(c fiber.Ctx) (string, bool) {
	userID := c.Get("X-User-ID")
	return userID, userID != ""
}

func unauthorized(c fiber.Ctx) error {
	return c.Status(http.StatusUnauthorized).JSON(
		utils.CreateErrorResponse("UNAUTHORIZED", "User ID is required"))
}
