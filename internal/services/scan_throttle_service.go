package services

import (
	"context"
	"fmt"
	"reward-service/internal/config"
	"reward-service/internal/models"
	"reward-service/internal/repository"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ScanThrottleService enforces the health scan admission window: at most
// ScanWindowLimit scans per plant in the trailing ScanWindowDays. The
// decision happens before any downstream verification work.
type ScanThrottleService struct {
	scanRepo  *repository.ScanRecordRepository
	rewardCfg config.RewardConfig
}

func NewScanThrottleService(scanRepo *repository.ScanRecordRepository, rewardCfg config.RewardConfig) *ScanThrottleService {
	return &ScanThrottleService{
		scanRepo:  scanRepo,
		rewardCfg: rewardCfg,
	}
}

// Check reports whether a scan would be admitted right now, without
// recording anything.
func (s *ScanThrottleService) Check(ctx context.Context, plantID string, now time.Time) error {
	cutoff := now.AddDate(0, 0, -s.rewardCfg.ScanWindowDays)

	count, err := s.scanRepo.CountSince(ctx, plantID, cutoff)
	if err != nil {
		return err
	}

	if count >= s.rewardCfg.ScanWindowLimit {
		return fmt.Errorf("plant %s reached %d scans in %d days: %w",
			plantID, s.rewardCfg.ScanWindowLimit, s.rewardCfg.ScanWindowDays, models.ErrRateLimited)
	}

	return nil
}

// AdmitTx records an admitted scan inside a caller-owned transaction.
// The caller must have passed Check first; rejected attempts leave no row,
// so they never consume window capacity.
func (s *ScanThrottleService) AdmitTx(tx *sqlx.Tx, plantID string, now time.Time) (*models.ScanRecord, error) {
	record := &models.ScanRecord{
		ID:            uuid.New(),
		PlantID:       plantID,
		ScanTimestamp: now,
	}

	if err := s.scanRepo.CreateTx(tx, record); err != nil {
		return nil, err
	}

	return record, nil
}

// WindowStatus reports the current window occupancy for a plant
type WindowStatus struct {
	PlantID    string `json:"plant_id"`
	Used       int    `json:"used"`
	Limit      int    `json:"limit"`
	WindowDays int    `json:"window_days"`
}

// Status returns the plant's current scan window occupancy
func (s *ScanThrottleService) Status(ctx context.Context, plantID string, now time.Time) (*WindowStatus, error) {
	cutoff := now.AddDate(0, 0, -s.rewardCfg.ScanWindowDays)

	count, err := s.scanRepo.CountSince(ctx, plantID, cutoff)
	if err != nil {
		return nil, err
	}

	return &WindowStatus{
		PlantID:    plantID,
		Used:       count,
		Limit:      s.rewardCfg.ScanWindowLimit,
		WindowDays: s.rewardCfg.ScanWindowDays,
	}, nil
}
