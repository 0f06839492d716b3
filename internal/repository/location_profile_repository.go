package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"reward-service/internal/models"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type LocationProfileRepository struct {
	db *sqlx.DB
}

func NewLocationProfileRepository(db *sqlx.DB) *LocationProfileRepository {
	return &LocationProfileRepository{db: db}
}

// GetByPlantID retrieves a plant's reference location profile
func (r *LocationProfileRepository) GetByPlantID(ctx context.Context, plantID string) (*models.LocationProfile, error) {
	var profile models.LocationProfile
	query := `
		SELECT plant_id, reference_point, radius_meters, created_at
		FROM location_profiles
		WHERE plant_id = $1
	`

	err := r.db.GetContext(ctx, &profile, query, plantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("location profile for plant %s: %w", plantID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get location profile: %w", err)
	}

	return &profile, nil
}

// Exists checks whether a plant already has a location profile
func (r *LocationProfileRepository) Exists(ctx context.Context, plantID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM location_profiles WHERE plant_id = $1)`

	err := r.db.GetContext(ctx, &exists, query, plantID)
	if err != nil {
		return false, fmt.Errorf("failed to check location profile existence: %w", err)
	}

	return exists, nil
}

// CreateTx inserts a plant's location profile inside a transaction. Profiles
// are write-once: a second insert for the same plant surfaces as
// ErrAlreadyProcessed and no update path exists.
func (r *LocationProfileRepository) CreateTx(tx *sqlx.Tx, profile *models.LocationProfile) error {
	slog.Info("Creating location profile",
		"plant_id", profile.PlantID,
		"radius_meters", profile.RadiusMeters)

	profile.CreatedAt = time.Now()

	query := `
		INSERT INTO location_profiles (plant_id, reference_point, radius_meters, created_at)
		VALUES (:plant_id, :reference_point, :radius_meters, :created_at)
	`

	_, err := tx.NamedExec(query, profile)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return fmt.Errorf("location profile for plant %s: %w", profile.PlantID, models.ErrAlreadyProcessed)
		}
		return fmt.Errorf("failed to create location profile: %w", err)
	}

	return nil
}
