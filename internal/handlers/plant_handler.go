package handlers

import (
	"log/slog"
	"net/http"
	"reward-service/internal/models"
	"reward-service/internal/services"
	"reward-service/internal/utils"

	"github.com/gofiber/fiber/v3"
)

type PlantHandler struct {
	plantService *services.PlantService
}

func NewPlantHandler(plantService *services.PlantService) *PlantHandler {
	return &PlantHandler{plantService: plantService}
}

func (h *PlantHandler) Register(app *fiber.App) {
	protectedGr := app.Group("reward/protected/api/v1")

	plantGroup := protectedGr.Group("/plants")
	plantGroup.Post("/", h.RegisterPlant)                   // POST /plants
	plantGroup.Get("/mine", h.GetOwnPlants)                 // GET /plants/mine
	plantGroup.Get("/:id", h.GetPlant)                      // GET /plants/:id
	plantGroup.Post("/:id/planting-photo", h.PlantingPhoto) // POST /plants/:id/planting-photo
	plantGroup.Get("/:id/activities", h.GetActivities)      // GET /plants/:id/activities

	publicGr := app.Group("reward/public/api/v1")
	publicGr.Get("/stats", h.GetStats) // GET /stats
}

// RegisterPlant registers a new plant for the authenticated user
func (h *PlantHandler) RegisterPlant(c fiber.Ctx) error {
	userID, ok := requireUserID(c)
	if !ok {
		return unauthorized(c)
	}

	var req models.RegisterPlantRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_BODY", "Invalid request body"))
	}

	result, err := h.plantService.RegisterPlant(c.Context(), userID, req)
	if err != nil {
		slog.Error("Failed to register plant", "user_id", userID, "error", err)
		return respondError(c, err)
	}

	return c.Status(http.StatusCreated).JSON(utils.CreateSuccessResponse(result))
}

// GetOwnPlants lists the authenticated user's plants
func (h *PlantHandler) GetOwnPlants(c fiber.Ctx) error {
	userID, ok := requireUserID(c)
	if !ok {
		return unauthorized(c)
	}

	plants, err := h.plantService.GetPlantsByOwner(c.Context(), userID)
	if err != nil {
		slog.Error("Failed to get plants", "user_id", userID, "error", err)
		return respondError(c, err)
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(map[string]interface{}{
		"plants": plants,
		"count":  len(plants),
	}))
}

// GetPlant retrieves a single plant
func (h *PlantHandler) GetPlant(c fiber.Ctx) error {
	userID, ok := requireUserID(c)
	if !ok {
		return unauthorized(c)
	}

	plantID := c.Params("id")
	plant, err := h.plantService.GetPlant(c.Context(), plantID)
	if err != nil {
		return respondError(c, err)
	}

	if plant.OwnerID != userID {
		return c.Status(http.StatusForbidden).JSON(
			utils.CreateErrorResponse("FORBIDDEN", "You do not have permission to view this plant"))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(plant))
}

// PlantingPhoto confirms a plant with its first photo and freezes the
// location profile
func (h *PlantHandler) PlantingPhoto(c fiber.Ctx) error {
	userID, ok := requireUserID(c)
	if !ok {
		return unauthorized(c)
	}

	plantID := c.Params("id")

	var req models.PlantingPhotoRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_BODY", "Invalid request body"))
	}

	// Photo payload is optional; evidence can be attached later via the
	// multipart endpoint of the media gateway.
	var photo []byte
	contentType := "image/jpeg"
	if file, err := c.FormFile("photo"); err == nil && file != nil {
		f, err := file.Open()
		if err == nil {
			defer f.Close()
			buf := make([]byte, file.Size)
			if _, err := f.Read(buf); err == nil {
				photo = buf
			}
			if ct := file.Header.Get("Content-Type"); ct != "" {
				contentType = ct
			}
		}
	}

	result, err := h.plantService.ConfirmPlantingPhoto(c.Context(), userID, plantID, req, photo, contentType)
	if err != nil {
		slog.Error("Failed to confirm planting photo", "plant_id", plantID, "error", err)
		return respondError(c, err)
	}

	return c.Status(http.StatusCreated).JSON(utils.CreateSuccessResponse(result))
}

// GetActivities lists a plant's recent activities
func (h *PlantHandler) GetActivities(c fiber.Ctx) error {
	userID, ok := requireUserID(c)
	if !ok {
		return unauthorized(c)
	}

	plantID := c.Params("id")
	limit, err := utils.GetQueryParamAsInt(c, "limit", 50)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_PARAM", err.Error()))
	}

	activities, err := h.plantService.GetActivities(c.Context(), plantID, limit)
	if err != nil {
		slog.Error("Failed to get activities", "plant_id", plantID, "user_id", userID, "error", err)
		return respondError(c, err)
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(map[string]interface{}{
		"activities": activities,
		"count":      len(activities),
		"plant_id":   plantID,
	}))
}

// GetStats returns program-wide totals
func (h *PlantHandler) GetStats(c fiber.Ctx) error {
	stats, err := h.plantService.GetProgramStats(c.Context())
	if err != nil {
		slog.Error("Failed to get program stats", "error", err)
		return respondError(c, err)
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(stats))
}
