package handlers

import (
	"log/slog"
	"net/http"
	"reward-service/internal/models"
	"reward-service/internal/services"
	"reward-service/internal/utils"

	"github.com/gofiber/fiber/v3"
)

type VerificationHandler struct {
	verificationService *services.VerificationService
}

func NewVerificationHandler(verificationService *services.VerificationService) *VerificationHandler {
	return &VerificationHandler{verificationService: verificationService}
}

func (h *VerificationHandler) Register(app *fiber.App) {
	protectedGr := app.Group("reward/protected/api/v1")

	verifyGroup := protectedGr.Group("/verifications")
	verifyGroup.Post("/plants/:plant_id/submit", h.SubmitActivity) // POST /verifications/plants/:plant_id/submit
	verifyGroup.Get("/plants/:plant_id/state", h.GetState)         // GET /verifications/plants/:plant_id/state
	verifyGroup.Get("/plants/:plant_id", h.ListVerifications)      // GET /verifications/plants/:plant_id
}

// SubmitActivity verifies and rewards a watering or health scan submission
func (h *VerificationHandler) SubmitActivity(c fiber.Ctx) error {
	userID, ok := requireUserID(c)
	if !ok {
		return unauthorized(c)
	}

	plantID := c.Params("plant_id")

	var req models.SubmitActivityRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_BODY", "Invalid request body"))
	}

	result, err := h.verificationService.ProcessSubmission(c.Context(), userID, plantID, req)
	if err != nil {
		slog.Error("Failed to process submission",
			"plant_id", plantID,
			"user_id", userID,
			"activity_type", req.ActivityType,
			"error", err)
		return respondError(c, err)
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}

	return c.Status(status).JSON(utils.CreateSuccessResponse(result))
}

// GetState returns the plant's latest verification verdict
func (h *VerificationHandler) GetState(c fiber.Ctx) error {
	userID, ok := requireUserID(c)
	if !ok {
		return unauthorized(c)
	}

	plantID := c.Params("plant_id")
	state, err := h.verificationService.GetVerificationState(c.Context(), plantID)
	if err != nil {
		slog.Error("Failed to get verification state", "plant_id", plantID, "user_id", userID, "error", err)
		return respondError(c, err)
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(state))
}

// ListVerifications returns a plant's verification records newest first
func (h *VerificationHandler) ListVerifications(c fiber.Ctx) error {
	userID, ok := requireUserID(c)
	if !ok {
		return unauthorized(c)
	}

	plantID := c.Params("plant_id")
	limit, err := utils.GetQueryParamAsInt(c, "limit", 20)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_PARAM", err.Error()))
	}

	records, err := h.verificationService.ListVerifications(c.Context(), plantID, limit)
	if err != nil {
		slog.Error("Failed to list verifications", "plant_id", plantID, "user_id", userID, "error", err)
		return respondError(c, err)
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(map[string]interface{}{
		"verifications": records,
		"count":         len(records),
		"plant_id":      plantID,
	}))
}
