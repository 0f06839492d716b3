package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reward-service/internal/config"
	"reward-service/internal/database/minio"
	"reward-service/internal/models"
	"reward-service/internal/repository"
	"reward-service/internal/utils"
	"time"

	"github.com/google/uuid"
)

// Estimated lifetime CO2 offset per plant, in kilograms
const co2PerPlantKG = 130

// PlantService handles registration, planting-photo confirmation and
// program statistics.
type PlantService struct {
	userRepo      *repository.UserRepository
	plantRepo     *repository.PlantRepository
	streakRepo    *repository.StreakRepository
	activityRepo  *repository.ActivityRepository
	ledgerRepo    *repository.LedgerRepository
	ledgerService *LedgerService
	locationSvc   *LocationService
	minioClient   *minio.MinioClient
	rewardCfg     config.RewardConfig
}

func NewPlantService(
	userRepo *repository.UserRepository,
	plantRepo *repository.PlantRepository,
	streakRepo *repository.StreakRepository,
	activityRepo *repository.ActivityRepository,
	ledgerRepo *repository.LedgerRepository,
	ledgerService *LedgerService,
	locationSvc *LocationService,
	minioClient *minio.MinioClient,
	rewardCfg config.RewardConfig,
) *PlantService {
	return &PlantService{
		userRepo:      userRepo,
		plantRepo:     plantRepo,
		streakRepo:    streakRepo,
		activityRepo:  activityRepo,
		ledgerRepo:    ledgerRepo,
		ledgerService: ledgerService,
		locationSvc:   locationSvc,
		minioClient:   minioClient,
		rewardCfg:     rewardCfg,
	}
}

// RegistrationResult reports a completed plant registration
type RegistrationResult struct {
	Plant         *models.Plant `json:"plant"`
	UserCreated   bool          `json:"user_created"`
	PointsAwarded int           `json:"points_awarded"`
}

// RegisterPlant registers a plant, creating the owner account on first
// contact. The user row, plant row, zero-state streak row, registration
// activity and the 30-point ledger entry all commit together.
func (s *PlantService) RegisterPlant(ctx context.Context, userID string, req models.RegisterPlantRequest) (*RegistrationResult, error) {
	if req.PlantType == "" {
		return nil, fmt.Errorf("plant_type is required: %w", models.ErrValidation)
	}
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		return nil, fmt.Errorf("coordinates out of range: %w", models.ErrValidation)
	}
	if req.UserEmail != nil {
		if ok, err := validateEmailOptional(*req.UserEmail); !ok {
			return nil, fmt.Errorf("%s: %w", err, models.ErrValidation)
		}
	}

	userExists, err := s.userRepo.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}

	tx, err := s.userRepo.BeginTransaction()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	if !userExists {
		user := &models.User{
			ID:       userID,
			Name:     req.UserName,
			Email:    req.UserEmail,
			Phone:    req.UserPhone,
			Location: req.LocationLabel,
		}
		if err := s.userRepo.CreateTx(tx, user); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	plant := &models.Plant{
		ID:            uuid.NewString(),
		OwnerID:       userID,
		PlantType:     req.PlantType,
		PlantSpecies:  req.PlantSpecies,
		LocationLabel: req.LocationLabel,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
	}
	if err := s.plantRepo.CreateTx(tx, plant); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := s.streakRepo.CreateTx(tx, plant.ID); err != nil {
		tx.Rollback()
		return nil, err
	}

	activity := &models.Activity{
		ID:                 uuid.NewString(),
		PlantID:            plant.ID,
		UserID:             userID,
		ActivityType:       models.ActivityPlantRegistration,
		Latitude:           &req.Latitude,
		Longitude:          &req.Longitude,
		VerificationStatus: models.VerificationVerified,
		PointsEarned:       s.rewardCfg.RegistrationPoints,
	}
	if err := s.activityRepo.CreateTx(tx, activity); err != nil {
		tx.Rollback()
		return nil, err
	}

	description := fmt.Sprintf("Registered plant %s", plant.ID)
	entry := &models.PointsTransaction{
		TransactionID:   fmt.Sprintf("reg:%s", plant.ID),
		UserID:          userID,
		PlantID:         &plant.ID,
		ActivityID:      &activity.ID,
		TransactionType: models.TxRegistration,
		Points:          s.rewardCfg.RegistrationPoints,
		Description:     &description,
	}
	if _, err := s.ledgerService.AppendTransactionTx(tx, entry); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit registration: %w", err)
	}

	slog.Info("Plant registered",
		"plant_id", plant.ID,
		"user_id", userID,
		"user_created", !userExists)

	return &RegistrationResult{
		Plant:         plant,
		UserCreated:   !userExists,
		PointsAwarded: s.rewardCfg.RegistrationPoints,
	}, nil
}

// PlantingPhotoResult reports a confirmed planting photo. Duplicate marks
// a repeated confirmation; the frozen profile is returned and nothing new
// is written or awarded.
type PlantingPhotoResult struct {
	Plant         *models.Plant           `json:"plant"`
	Profile       *models.LocationProfile `json:"location_profile"`
	EvidenceURL   string                  `json:"evidence_url"`
	PointsAwarded int                     `json:"points_awarded"`
	Duplicate     bool                    `json:"duplicate"`
}

// ConfirmPlantingPhoto stores the first planting photo, freezes the plant's
// reference location profile at the photo's GPS fix and awards the photo
// points. A second photo for the same plant is a benign replay.
func (s *PlantService) ConfirmPlantingPhoto(ctx context.Context, userID, plantID string, req models.PlantingPhotoRequest, photo []byte, contentType string) (*PlantingPhotoResult, error) {
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		return nil, fmt.Errorf("coordinates out of range: %w", models.ErrValidation)
	}

	plant, err := s.plantRepo.GetByID(ctx, plantID)
	if err != nil {
		return nil, err
	}
	if plant.OwnerID != userID {
		return nil, fmt.Errorf("plant %s does not belong to user %s: %w", plantID, userID, models.ErrValidation)
	}

	// The profile is write-once; detect a repeat before touching storage so
	// replays leave no orphan objects behind.
	existing, err := s.locationSvc.GetProfile(ctx, plantID)
	if err == nil {
		slog.Info("Planting photo already confirmed", "plant_id", plantID, "user_id", userID)
		return &PlantingPhotoResult{Plant: plant, Profile: existing, Duplicate: true}, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	evidenceURL := ""
	if s.minioClient != nil && len(photo) > 0 {
		objectName := fmt.Sprintf("%s/%d.jpg", plantID, time.Now().UnixNano())
		if err := s.minioClient.UploadBytes(ctx, minio.Storage.PlantingPhotos, objectName, photo, contentType); err != nil {
			return nil, fmt.Errorf("failed to store planting photo: %w", err)
		}
		evidenceURL = s.minioClient.ResourceURL(minio.Storage.PlantingPhotos, objectName)
	}

	tx, err := s.ledgerRepo.BeginTransaction()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	profile, err := s.locationSvc.CreateProfileTx(tx, plantID, req.Latitude, req.Longitude, req.RadiusMeters)
	if err != nil {
		tx.Rollback()
		// A concurrent confirmation may have frozen the profile between the
		// pre-check and the insert.
		if errors.Is(err, models.ErrAlreadyProcessed) {
			stored, gerr := s.locationSvc.GetProfile(ctx, plantID)
			if gerr != nil {
				return nil, gerr
			}
			return &PlantingPhotoResult{Plant: plant, Profile: stored, Duplicate: true}, nil
		}
		return nil, err
	}

	activity := &models.Activity{
		ID:                 uuid.NewString(),
		PlantID:            plantID,
		UserID:             userID,
		ActivityType:       models.ActivityPlantingPhoto,
		EvidenceURL:        &evidenceURL,
		Latitude:           &req.Latitude,
		Longitude:          &req.Longitude,
		VerificationStatus: models.VerificationVerified,
		PointsEarned:       s.rewardCfg.PlantingPhotoPoints,
	}
	if err := s.activityRepo.CreateTx(tx, activity); err != nil {
		tx.Rollback()
		return nil, err
	}

	description := fmt.Sprintf("Planting photo confirmed for plant %s", plantID)
	entry := &models.PointsTransaction{
		TransactionID:   fmt.Sprintf("photo:%s", plantID),
		UserID:          userID,
		PlantID:         &plantID,
		ActivityID:      &activity.ID,
		TransactionType: models.TxPlantingPhoto,
		Points:          s.rewardCfg.PlantingPhotoPoints,
		Description:     &description,
	}
	if _, err := s.ledgerService.AppendTransactionTx(tx, entry); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit planting photo: %w", err)
	}

	slog.Info("Planting photo confirmed",
		"plant_id", plantID,
		"user_id", userID,
		"radius_meters", profile.RadiusMeters)

	return &PlantingPhotoResult{
		Plant:         plant,
		Profile:       profile,
		EvidenceURL:   evidenceURL,
		PointsAwarded: s.rewardCfg.PlantingPhotoPoints,
	}, nil
}

// GetPlant returns a plant by ID
func (s *PlantService) GetPlant(ctx context.Context, plantID string) (*models.Plant, error) {
	return s.plantRepo.GetByID(ctx, plantID)
}

// GetPlantsByOwner returns a user's plants
func (s *PlantService) GetPlantsByOwner(ctx context.Context, ownerID string) ([]models.Plant, error) {
	return s.plantRepo.GetByOwnerID(ctx, ownerID)
}

// GetActivities returns a plant's recent activities
func (s *PlantService) GetActivities(ctx context.Context, plantID string, limit int) ([]models.Activity, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if _, err := s.plantRepo.GetByID(ctx, plantID); err != nil {
		return nil, err
	}
	return s.activityRepo.GetByPlantID(ctx, plantID, limit)
}

// GetProgramStats aggregates program-wide totals
func (s *PlantService) GetProgramStats(ctx context.Context) (*models.ProgramStats, error) {
	activeUsers, err := s.userRepo.CountActive(ctx)
	if err != nil {
		return nil, err
	}

	activePlants, err := s.plantRepo.CountActive(ctx)
	if err != nil {
		return nil, err
	}

	pointsIssued, err := s.ledgerRepo.SumPointsIssued(ctx)
	if err != nil {
		return nil, err
	}

	waterings, err := s.streakRepo.SumWaterings(ctx)
	if err != nil {
		return nil, err
	}

	return &models.ProgramStats{
		ActiveUsers:       activeUsers,
		ActivePlants:      activePlants,
		TotalPointsIssued: pointsIssued,
		TotalWaterings:    waterings,
		EstimatedCO2KG:    float64(activePlants) * co2PerPlantKG,
	}, nil
}

func validateEmailOptional(email string) (bool, error) {
	if email == "" {
		return true, nil
	}
	return utils.ValidateEmail(email)
}
