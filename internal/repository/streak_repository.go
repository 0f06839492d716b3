package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"reward-service/internal/models"

	"github.com/jmoiron/sqlx"
)

type StreakRepository struct {
	db *sqlx.DB
}

func NewStreakRepository(db *sqlx.DB) *StreakRepository {
	return &StreakRepository{db: db}
}

// BeginTransaction starts a new database transaction
func (r *StreakRepository) BeginTransaction() (*sqlx.Tx, error) {
	return r.db.Beginx()
}

// GetByPlantID retrieves a plant's streak state
func (r *StreakRepository) GetByPlantID(ctx context.Context, plantID string) (*models.Streak, error) {
	var streak models.Streak
	query := `
		SELECT plant_id, current_streak, longest_streak, last_watered_date,
		       total_waterings, streak_bonus_points
		FROM streaks
		WHERE plant_id = $1
	`

	err := r.db.GetContext(ctx, &streak, query, plantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("streak for plant %s: %w", plantID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get streak: %w", err)
	}

	return &streak, nil
}

// GetForUpdateTx locks the streak row for the duration of the transaction.
// All watering writes go through this lock so concurrent submissions for
// the same plant serialize.
func (r *StreakRepository) GetForUpdateTx(tx *sqlx.Tx, plantID string) (*models.Streak, error) {
	var streak models.Streak
	query := `
		SELECT plant_id, current_streak, longest_streak, last_watered_date,
		       total_waterings, streak_bonus_points
		FROM streaks
		WHERE plant_id = $1
		FOR UPDATE
	`

	err := tx.Get(&streak, query, plantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("streak for plant %s: %w", plantID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock streak row: %w", err)
	}

	return &streak, nil
}

// CreateTx inserts a zero-state streak row for a newly registered plant
func (r *StreakRepository) CreateTx(tx *sqlx.Tx, plantID string) error {
	slog.Debug("Creating streak row", "plant_id", plantID)

	query := `
		INSERT INTO streaks (plant_id, current_streak, longest_streak, last_watered_date,
		                     total_waterings, streak_bonus_points)
		VALUES ($1, 0, 0, NULL, 0, 0)
	`

	_, err := tx.Exec(query, plantID)
	if err != nil {
		return fmt.Errorf("failed to create streak row: %w", err)
	}

	return nil
}

// UpdateTx writes the full streak state inside a transaction
func (r *StreakRepository) UpdateTx(tx *sqlx.Tx, streak *models.Streak) error {
	query := `
		UPDATE streaks
		SET current_streak = :current_streak,
		    longest_streak = :longest_streak,
		    last_watered_date = :last_watered_date,
		    total_waterings = :total_waterings,
		    streak_bonus_points = :streak_bonus_points
		WHERE plant_id = :plant_id
	`

	result, err := tx.NamedExec(query, streak)
	if err != nil {
		return fmt.Errorf("failed to update streak: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("streak for plant %s: %w", streak.PlantID, models.ErrNotFound)
	}

	return nil
}

// SumWaterings totals all recorded waterings across the program
func (r *StreakRepository) SumWaterings(ctx context.Context) (int64, error) {
	var total int64
	query := `SELECT COALESCE(SUM(total_waterings), 0) FROM streaks`

	err := r.db.GetContext(ctx, &total, query)
	if err != nil {
		return 0, fmt.Errorf("failed to sum waterings: %w", err)
	}

	return total, nil
}
