package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reward-service/internal/config"
	"reward-service/internal/models"
	"reward-service/internal/repository"
	"time"

	"github.com/jmoiron/sqlx"
)

// LedgerService owns the append-only points ledger and the aggregate user
// balances. Every append and its balance update happen in one transaction;
// replayed transaction ids return the stored entry unchanged.
type LedgerService struct {
	ledgerRepo *repository.LedgerRepository
	userRepo   *repository.UserRepository
	plantRepo  *repository.PlantRepository
	rewardCfg  config.RewardConfig
}

func NewLedgerService(
	ledgerRepo *repository.LedgerRepository,
	userRepo *repository.UserRepository,
	plantRepo *repository.PlantRepository,
	rewardCfg config.RewardConfig,
) *LedgerService {
	return &LedgerService{
		ledgerRepo: ledgerRepo,
		userRepo:   userRepo,
		plantRepo:  plantRepo,
		rewardCfg:  rewardCfg,
	}
}

// AppendResult reports an append outcome. Duplicate is set when the
// transaction id had already been processed; Entry is then the stored one.
type AppendResult struct {
	Entry     *models.PointsTransaction `json:"entry"`
	Duplicate bool                      `json:"duplicate"`
}

func (s *LedgerService) validateEntry(entry *models.PointsTransaction) error {
	if entry.TransactionID == "" {
		return fmt.Errorf("transaction_id is required: %w", models.ErrValidation)
	}
	if entry.UserID == "" {
		return fmt.Errorf("user_id is required: %w", models.ErrValidation)
	}
	// Only conversions may debit points; every reward append is a credit.
	if entry.Points <= 0 && entry.TransactionType != models.TxCoinConversion {
		return fmt.Errorf("points must be positive for %s: %w", entry.TransactionType, models.ErrValidation)
	}
	return nil
}

// AppendTransaction appends a single ledger entry and updates the user's
// (and plant's) aggregates in one transaction.
func (s *LedgerService) AppendTransaction(ctx context.Context, entry *models.PointsTransaction) (*AppendResult, error) {
	if err := s.validateEntry(entry); err != nil {
		return nil, err
	}

	tx, err := s.ledgerRepo.BeginTransaction()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	result, err := s.appendTx(tx, entry)
	if err != nil {
		tx.Rollback()
		if errors.Is(err, models.ErrAlreadyProcessed) {
			return s.replayedResult(ctx, entry.TransactionID)
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit ledger append: %w", err)
	}

	return result, nil
}

// AppendTransactionTx appends inside a caller-owned transaction. Used when
// a submission writes the ledger together with streak or activity rows;
// ErrAlreadyProcessed propagates for the caller to handle.
func (s *LedgerService) AppendTransactionTx(tx *sqlx.Tx, entry *models.PointsTransaction) (*AppendResult, error) {
	if err := s.validateEntry(entry); err != nil {
		return nil, err
	}
	return s.appendTx(tx, entry)
}

func (s *LedgerService) appendTx(tx *sqlx.Tx, entry *models.PointsTransaction) (*AppendResult, error) {
	// Lock the user row so the ledger insert and the aggregate update are
	// serialized per user.
	if _, err := s.userRepo.GetForUpdateTx(tx, entry.UserID); err != nil {
		return nil, err
	}

	if err := s.ledgerRepo.CreateTx(tx, entry); err != nil {
		return nil, err
	}

	if err := s.userRepo.AddPointsTx(tx, entry.UserID, entry.Points); err != nil {
		return nil, err
	}

	if entry.PlantID != nil && entry.Points > 0 {
		if err := s.plantRepo.AddPointsEarnedTx(tx, *entry.PlantID, entry.Points); err != nil {
			return nil, err
		}
	}

	return &AppendResult{Entry: entry, Duplicate: false}, nil
}

// replayedResult fetches the stored entry for a replayed transaction id
func (s *LedgerService) replayedResult(ctx context.Context, transactionID string) (*AppendResult, error) {
	stored, err := s.ledgerRepo.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch replayed transaction: %w", err)
	}

	slog.Info("Replayed ledger transaction", "transaction_id", transactionID, "user_id", stored.UserID)
	return &AppendResult{Entry: stored, Duplicate: true}, nil
}

// GetBalance returns a user's aggregate standing
func (s *LedgerService) GetBalance(ctx context.Context, userID string) (*models.Balance, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &models.Balance{
		UserID:      user.ID,
		TotalPoints: user.TotalPoints,
		TotalCoins:  user.TotalCoins,
	}, nil
}

// GetHistory returns a user's ledger entries newest first
func (s *LedgerService) GetHistory(ctx context.Context, userID string, limit, offset int) ([]models.PointsTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	exists, err := s.userRepo.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("user %s: %w", userID, models.ErrNotFound)
	}

	return s.ledgerRepo.GetHistoryByUser(ctx, userID, limit, offset)
}

// ConvertPoints converts points to coins at the program rate. The debit
// ledger entry and the coin credit are written in one transaction; the
// account must be older than the minimum age and hold enough points.
// A replayed transaction id returns the stored conversion unchanged.
func (s *LedgerService) ConvertPoints(ctx context.Context, userID string, req models.ConvertPointsRequest) (*models.ConversionResult, error) {
	if req.TransactionID == "" {
		return nil, fmt.Errorf("transaction_id is required: %w", models.ErrValidation)
	}
	rate := s.rewardCfg.CoinConversionRate
	if req.Points <= 0 || req.Points%rate != 0 {
		return nil, fmt.Errorf("points must be a positive multiple of %d: %w", rate, models.ErrValidation)
	}

	tx, err := s.ledgerRepo.BeginTransaction()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	user, err := s.userRepo.GetForUpdateTx(tx, userID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	minAge := time.Duration(s.rewardCfg.MinAccountAgeDays) * 24 * time.Hour
	if time.Since(user.CreatedAt) < minAge {
		tx.Rollback()
		return nil, fmt.Errorf("account younger than %d days: %w", s.rewardCfg.MinAccountAgeDays, models.ErrValidation)
	}
	if user.TotalPoints < int64(req.Points) {
		tx.Rollback()
		return nil, fmt.Errorf("insufficient points balance: %w", models.ErrValidation)
	}

	coins := req.Points / rate
	description := fmt.Sprintf("Converted %d points to %d coins", req.Points, coins)

	pointsEntry := &models.PointsTransaction{
		TransactionID:   req.TransactionID,
		UserID:          userID,
		TransactionType: models.TxCoinConversion,
		Points:          -req.Points,
		Description:     &description,
	}
	if err := s.ledgerRepo.CreateTx(tx, pointsEntry); err != nil {
		tx.Rollback()
		if errors.Is(err, models.ErrAlreadyProcessed) {
			return s.replayedConversion(ctx, userID, req.TransactionID)
		}
		return nil, err
	}

	coinEntry := &models.CoinTransaction{
		TransactionID:   req.TransactionID,
		UserID:          userID,
		TransactionType: models.TxCoinConversion,
		Coins:           coins,
		Description:     &description,
	}
	if err := s.ledgerRepo.CreateCoinEntryTx(tx, coinEntry); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := s.userRepo.AddPointsTx(tx, userID, -req.Points); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := s.userRepo.AddCoinsTx(tx, userID, coins); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit conversion: %w", err)
	}

	slog.Info("Points converted to coins",
		"user_id", userID,
		"points", req.Points,
		"coins", coins)

	return &models.ConversionResult{
		UserID:          userID,
		PointsConverted: req.Points,
		CoinsCredited:   coins,
		RemainingPoints: user.TotalPoints - int64(req.Points),
	}, nil
}

// replayedConversion rebuilds the result of an already-applied conversion
// from its stored debit entry, so blind retries stay side-effect free.
func (s *LedgerService) replayedConversion(ctx context.Context, userID, transactionID string) (*models.ConversionResult, error) {
	stored, err := s.ledgerRepo.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch replayed conversion: %w", err)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	pointsConverted := -stored.Points
	slog.Info("Replayed points conversion", "transaction_id", transactionID, "user_id", userID)

	return &models.ConversionResult{
		UserID:          userID,
		PointsConverted: pointsConverted,
		CoinsCredited:   pointsConverted / s.rewardCfg.CoinConversionRate,
		RemainingPoints: user.TotalPoints,
		Duplicate:       true,
	}, nil
}
