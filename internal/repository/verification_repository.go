package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reward-service/internal/models"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

const verificationStateCacheTTL = 5 * time.Minute

type VerificationRepository struct {
	db          *sqlx.DB
	redisClient *redis.Client
}

// NewVerificationRepository creates the repository. redisClient may be nil;
// the repository then skips caching.
func NewVerificationRepository(db *sqlx.DB, redisClient *redis.Client) *VerificationRepository {
	return &VerificationRepository{
		db:          db,
		redisClient: redisClient,
	}
}

func verificationStateKey(plantID string) string {
	return fmt.Sprintf("reward:verification_state:%s", plantID)
}

// Create persists a verification record and invalidates the plant's cached
// state so the next read sees the new verdict.
func (r *VerificationRepository) Create(ctx context.Context, record *models.VerificationRecord) error {
	slog.Info("Creating verification record",
		"verification_id", record.ID,
		"plant_id", record.PlantID,
		"recommendation", record.Recommendation,
		"approved", record.Approved)

	record.CreatedAt = time.Now()

	query := `
		INSERT INTO verifications (id, plant_id, user_id, activity_id, status, approved,
		                           recommendation, overall_confidence, checks, created_at)
		VALUES (:id, :plant_id, :user_id, :activity_id, :status, :approved,
		        :recommendation, :overall_confidence, :checks, :created_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, record)
	if err != nil {
		return fmt.Errorf("failed to create verification record: %w", err)
	}

	if r.redisClient != nil {
		if err := r.redisClient.Del(ctx, verificationStateKey(record.PlantID)).Err(); err != nil {
			slog.Error("Failed to invalidate verification state cache", "plant_id", record.PlantID, "error", err)
		}
	}

	return nil
}

// GetLatestByPlantID returns the newest verification record for a plant
func (r *VerificationRepository) GetLatestByPlantID(ctx context.Context, plantID string) (*models.VerificationRecord, error) {
	var record models.VerificationRecord
	query := `
		SELECT id, plant_id, user_id, activity_id, status, approved,
		       recommendation, overall_confidence, checks, created_at
		FROM verifications
		WHERE plant_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	err := r.db.GetContext(ctx, &record, query, plantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("verification for plant %s: %w", plantID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get latest verification: %w", err)
	}

	return &record, nil
}

// GetState returns the plant's current verification state, reading through
// the redis cache when available.
func (r *VerificationRepository) GetState(ctx context.Context, plantID string) (*models.VerificationState, error) {
	if r.redisClient != nil {
		data, err := r.redisClient.Get(ctx, verificationStateKey(plantID)).Bytes()
		if err == nil {
			var state models.VerificationState
			if err := json.Unmarshal(data, &state); err == nil {
				return &state, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			slog.Error("Failed to read verification state cache", "plant_id", plantID, "error", err)
		}
	}

	record, err := r.GetLatestByPlantID(ctx, plantID)
	if err != nil {
		return nil, err
	}

	verifiedAt := record.CreatedAt
	state := &models.VerificationState{
		PlantID:           record.PlantID,
		Approved:          record.Approved,
		Recommendation:    record.Recommendation,
		OverallConfidence: record.OverallConfidence,
		VerifiedAt:        &verifiedAt,
	}

	if r.redisClient != nil {
		if data, err := json.Marshal(state); err == nil {
			if err := r.redisClient.Set(ctx, verificationStateKey(plantID), data, verificationStateCacheTTL).Err(); err != nil {
				slog.Error("Failed to write verification state cache", "plant_id", plantID, "error", err)
			}
		}
	}

	return state, nil
}

// ListByPlantID returns a plant's verification records newest first
func (r *VerificationRepository) ListByPlantID(ctx context.Context, plantID string, limit int) ([]models.VerificationRecord, error) {
	var records []models.VerificationRecord
	query := `
		SELECT id, plant_id, user_id, activity_id, status, approved,
		       recommendation, overall_confidence, checks, created_at
		FROM verifications
		WHERE plant_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	err := r.db.SelectContext(ctx, &records, query, plantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list verifications: %w", err)
	}

	return records, nil
}
