package handlers

import (
	"log/slog"
	"net/http"
	"reward-service/internal/models"
	"reward-service/internal/services"
	"reward-service/internal/utils"
	"time"

	"github.com/gofiber/fiber/v3"
)

type RewardsHandler struct {
	ledgerService   *services.LedgerService
	streakService   *services.StreakService
	throttleService *services.ScanThrottleService
}

func NewRewardsHandler(
	ledgerService *services.LedgerService,
	streakService *services.StreakService,
	throttleService *services.ScanThrottleService,
) *RewardsHandler {
	return &RewardsHandler{
		ledgerService:   ledgerService,
		streakService:   streakService,
		throttleService: throttleService,
	}
}

func (h *RewardsHandler) Register(app *fiber.App) {
	protectedGr := app.Group("reward/protected/api/v1")

	rewardGroup := protectedGr.Group("/rewards")
	rewardGroup.Get("/balance", h.GetBalance)                   // GET /rewards/balance
	rewardGroup.Get("/history", h.GetHistory)                   // GET /rewards/history
	rewardGroup.Post("/convert", h.ConvertPoints)               // POST /rewards/convert
	rewardGroup.Get("/streak/:plant_id", h.GetStreak)           // GET /rewards/streak/:plant_id
	rewardGroup.Get("/streak/:plant_id/next-day", h.GetNextDay) // GET /rewards/streak/:plant_id/next-day
	rewardGroup.Get("/scan-window/:plant_id", h.GetScanWindow)  // GET /rewards/scan-window/:plant_id
}

// GetBalance returns the authenticated user's points and coins
func (h *RewardsHandler) GetBalance(c fiber.Ctx) error {
	userID, ok := requireUserID(c)
	if !ok {
		return unauthorized(c)
	}

	balance, err := h.ledgerService.GetBalance(c.Context(), userID)
	if err != nil {
		slog.Error("Failed to get balance", "user_id", userID, "error", err)
		return respondError(c, err)
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(balance))
}

// GetHistory returns the user's ledger entries newest first
func (h *RewardsHandler) GetHistory(c fiber.Ctx) error {
	userID, ok := requireUserID(c)
	if !ok {
		return unauthorized(c)
	}

	limit, err := utils.GetQueryParamAsInt(c, "limit", 50)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_PARAM", err.Error()))
	}
	offset := fiber.Query[int](c, "offset", 0)

	history, err := h.ledgerService.GetHistory(c.Context(), userID, limit, offset)
	if err != nil {
		slog.Error("Failed to get ledger history", "user_id", userID, "error", err)
		return respondError(c, err)
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(map[string]interface{}{
		"transactions": history,
		"count":        len(history),
		"user_id":      userID,
	}))
}

// ConvertPoints converts points to coins at the program rate
func (h *RewardsHandler) ConvertPoints(c fiber.Ctx) error {
	userID, ok := requireUserID(c)
	if !ok {
		return unauthorized(c)
	}

	var req models.ConvertPointsRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_BODY", "Invalid request body"))
	}

	result, err := h.ledgerService.ConvertPoints(c.Context(), userID, req)
	if err != nil {
		slog.Error("Failed to convert points", "user_id", userID, "error", err)
		return respondError(c, err)
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(result))
}

// GetStreak returns a plant's current streak state
func (h *RewardsHandler) GetStreak(c fiber.Ctx) error {
	userID, ok := requireUserID(c)
	if !ok {
		return unauthorized(c)
	}

	plantID := c.Params("plant_id")
	streak, err := h.streakService.GetStreak(c.Context(), plantID)
	if err != nil {
		slog.Error("Failed to get streak", "plant_id", plantID, "user_id", userID, "error", err)
		return respondError(c, err)
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(streak))
}

// GetNextDay reports which streak day the next watering would be
func (h *RewardsHandler) GetNextDay(c fiber.Ctx) error {
	_, ok := requireUserID(c)
	if !ok {
		return unauthorized(c)
	}

	plantID := c.Params("plant_id")
	dayNumber, err := h.streakService.NextDayNumber(c.Context(), plantID, time.Now())
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(map[string]interface{}{
		"plant_id":   plantID,
		"day_number": dayNumber,
	}))
}

// GetScanWindow reports the plant's scan window occupancy
func (h *RewardsHandler) GetScanWindow(c fiber.Ctx) error {
	userID, ok := requireUserID(c)
	if !ok {
		return unauthorized(c)
	}

	plantID := c.Params("plant_id")
	status, err := h.throttleService.Status(c.Context(), plantID, time.Now())
	if err != nil {
		slog.Error("Failed to get scan window", "plant_id", plantID, "user_id", userID, "error", err)
		return respondError(c, err)
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(status))
}
