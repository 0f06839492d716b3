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
)

type PlantRepository struct {
	db *sqlx.DB
}

func NewPlantRepository(db *sqlx.DB) *PlantRepository {
	return &PlantRepository{db: db}
}

// GetByID retrieves a plant by ID
func (r *PlantRepository) GetByID(ctx context.Context, id string) (*models.Plant, error) {
	var plant models.Plant
	query := `
		SELECT id, owner_id, plant_type, plant_species, location_label, latitude, longitude,
		       status, health_score, total_points_earned, planted_at, created_at
		FROM plants
		WHERE id = $1
	`

	err := r.db.GetContext(ctx, &plant, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("plant %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get plant by id: %w", err)
	}

	return &plant, nil
}

// GetByOwnerID retrieves all plants owned by a user
func (r *PlantRepository) GetByOwnerID(ctx context.Context, ownerID string) ([]models.Plant, error) {
	var plants []models.Plant
	query := `
		SELECT id, owner_id, plant_type, plant_species, location_label, latitude, longitude,
		       status, health_score, total_points_earned, planted_at, created_at
		FROM plants
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`

	err := r.db.SelectContext(ctx, &plants, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get plants by owner id: %w", err)
	}

	return plants, nil
}

// CreateTx inserts a new plant inside an existing transaction
func (r *PlantRepository) CreateTx(tx *sqlx.Tx, plant *models.Plant) error {
	slog.Info("Creating plant", "plant_id", plant.ID, "owner_id", plant.OwnerID, "plant_type", plant.PlantType)

	if plant.Status == "" {
		plant.Status = models.PlantActive
	}
	if plant.HealthScore == 0 {
		plant.HealthScore = 100
	}
	now := time.Now()
	if plant.PlantedAt.IsZero() {
		plant.PlantedAt = now
	}
	plant.CreatedAt = now

	query := `
		INSERT INTO plants (id, owner_id, plant_type, plant_species, location_label, latitude, longitude,
		                    status, health_score, total_points_earned, planted_at, created_at)
		VALUES (:id, :owner_id, :plant_type, :plant_species, :location_label, :latitude, :longitude,
		        :status, :health_score, :total_points_earned, :planted_at, :created_at)
	`

	_, err := tx.NamedExec(query, plant)
	if err != nil {
		return fmt.Errorf("failed to create plant: %w", err)
	}

	return nil
}

// AddPointsEarnedTx increments a plant's lifetime points inside a transaction
func (r *PlantRepository) AddPointsEarnedTx(tx *sqlx.Tx, plantID string, delta int) error {
	query := `UPDATE plants SET total_points_earned = total_points_earned + $1 WHERE id = $2`

	result, err := tx.Exec(query, delta, plantID)
	if err != nil {
		return fmt.Errorf("failed to update plant points: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("plant %s: %w", plantID, models.ErrNotFound)
	}

	return nil
}

// UpdateHealthScore sets a plant's latest health score
func (r *PlantRepository) UpdateHealthScore(ctx context.Context, plantID string, score int) error {
	query := `UPDATE plants SET health_score = $1 WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, score, plantID)
	if err != nil {
		return fmt.Errorf("failed to update plant health score: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("plant %s: %w", plantID, models.ErrNotFound)
	}

	return nil
}

// CountActive counts plants with active status
func (r *PlantRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM plants WHERE status = $1`

	err := r.db.GetContext(ctx, &count, query, models.PlantActive)
	if err != nil {
		return 0, fmt.Errorf("failed to count active plants: %w", err)
	}

	return count, nil
}
