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

type ActivityRepository struct {
	db *sqlx.DB
}

func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// GetByID retrieves an activity by ID
func (r *ActivityRepository) GetByID(ctx context.Context, id string) (*models.Activity, error) {
	var activity models.Activity
	query := `
		SELECT id, plant_id, user_id, activity_type, description, evidence_url,
		       latitude, longitude, verification_status, ai_confidence, points_earned, created_at
		FROM activities
		WHERE id = $1
	`

	err := r.db.GetContext(ctx, &activity, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("activity %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get activity by id: %w", err)
	}

	return &activity, nil
}

// GetByPlantID lists a plant's activities newest first
func (r *ActivityRepository) GetByPlantID(ctx context.Context, plantID string, limit int) ([]models.Activity, error) {
	var activities []models.Activity
	query := `
		SELECT id, plant_id, user_id, activity_type, description, evidence_url,
		       latitude, longitude, verification_status, ai_confidence, points_earned, created_at
		FROM activities
		WHERE plant_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	err := r.db.SelectContext(ctx, &activities, query, plantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get activities by plant id: %w", err)
	}

	return activities, nil
}

// CreateTx records an accepted submission inside a transaction
func (r *ActivityRepository) CreateTx(tx *sqlx.Tx, activity *models.Activity) error {
	slog.Debug("Recording activity",
		"activity_id", activity.ID,
		"plant_id", activity.PlantID,
		"type", activity.ActivityType)

	activity.CreatedAt = time.Now()

	query := `
		INSERT INTO activities (id, plant_id, user_id, activity_type, description, evidence_url,
		                        latitude, longitude, verification_status, ai_confidence, points_earned, created_at)
		VALUES (:id, :plant_id, :user_id, :activity_type, :description, :evidence_url,
		        :latitude, :longitude, :verification_status, :ai_confidence, :points_earned, :created_at)
	`

	_, err := tx.NamedExec(query, activity)
	if err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}

	return nil
}

// GetRecentFixes returns a plant's recorded GPS fixes in submission order.
// Activities without coordinates are skipped.
func (r *ActivityRepository) GetRecentFixes(ctx context.Context, plantID string, limit int) ([]models.GPSFix, error) {
	var fixes []models.GPSFix
	query := `
		SELECT latitude, longitude
		FROM (
			SELECT latitude, longitude, created_at
			FROM activities
			WHERE plant_id = $1 AND latitude IS NOT NULL AND longitude IS NOT NULL
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC
	`

	err := r.db.SelectContext(ctx, &fixes, query, plantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent GPS fixes: %w", err)
	}

	return fixes, nil
}

// CountByUserSince counts a user's activities at or after the cutoff
func (r *ActivityRepository) CountByUserSince(ctx context.Context, userID string, cutoff time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM activities WHERE user_id = $1 AND created_at >= $2`

	err := r.db.GetContext(ctx, &count, query, userID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to count recent activities: %w", err)
	}

	return count, nil
}

// UserBehavior aggregates the behavioral signals the fraud scorer reads
type UserBehavior struct {
	ActivityCount   int     `db:"activity_count"`
	VerifiedCount   int     `db:"verified_count"`
	DecidedCount    int     `db:"decided_count"`
	AvgPointsPerDay float64 `db:"avg_points_per_day"`
}

// GetUserBehavior computes a user's verification success rate and average
// daily points over the trailing window. Pending activities are excluded
// from the success rate denominator.
func (r *ActivityRepository) GetUserBehavior(ctx context.Context, userID string, windowDays int) (*UserBehavior, error) {
	var behavior UserBehavior
	query := `
		SELECT COUNT(*) AS activity_count,
		       COUNT(*) FILTER (WHERE verification_status = 'verified') AS verified_count,
		       COUNT(*) FILTER (WHERE verification_status <> 'pending') AS decided_count,
		       COALESCE(SUM(points_earned), 0)::float / $3 AS avg_points_per_day
		FROM activities
		WHERE user_id = $1 AND created_at >= $2
	`

	cutoff := time.Now().AddDate(0, 0, -windowDays)
	err := r.db.GetContext(ctx, &behavior, query, userID, cutoff, windowDays)
	if err != nil {
		return nil, fmt.Errorf("failed to compute user behavior: %w", err)
	}

	return &behavior, nil
}
