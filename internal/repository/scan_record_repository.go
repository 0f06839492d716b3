package repository

import (
	"context"
	"fmt"
	"log/slog"
	"reward-service/internal/models"
	"time"

	"github.com/jmoiron/sqlx"
)

type ScanRecordRepository struct {
	db *sqlx.DB
}

func NewScanRecordRepository(db *sqlx.DB) *ScanRecordRepository {
	return &ScanRecordRepository{db: db}
}

// CountSince counts admitted scans for a plant at or after the cutoff.
// Rejected attempts never reach this table, so the count is the throttle
// window occupancy.
func (r *ScanRecordRepository) CountSince(ctx context.Context, plantID string, cutoff time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM scan_records WHERE plant_id = $1 AND scan_timestamp >= $2`

	err := r.db.GetContext(ctx, &count, query, plantID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to count scans in window: %w", err)
	}

	return count, nil
}

// CreateTx records an admitted scan inside a transaction
func (r *ScanRecordRepository) CreateTx(tx *sqlx.Tx, record *models.ScanRecord) error {
	slog.Debug("Recording health scan", "plant_id", record.PlantID, "scan_id", record.ID)

	if record.ScanTimestamp.IsZero() {
		record.ScanTimestamp = time.Now()
	}

	query := `INSERT INTO scan_records (id, plant_id, scan_timestamp) VALUES ($1, $2, $3)`

	_, err := tx.Exec(query, record.ID, record.PlantID, record.ScanTimestamp)
	if err != nil {
		return fmt.Errorf("failed to record scan: %w", err)
	}

	return nil
}

// GetByPlantID lists a plant's scans newest first
func (r *ScanRecordRepository) GetByPlantID(ctx context.Context, plantID string, limit int) ([]models.ScanRecord, error) {
	var records []models.ScanRecord
	query := `
		SELECT id, plant_id, scan_timestamp
		FROM scan_records
		WHERE plant_id = $1
		ORDER BY scan_timestamp DESC
		LIMIT $2
	`

	err := r.db.SelectContext(ctx, &records, query, plantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get scans by plant id: %w", err)
	}

	return records, nil
}
