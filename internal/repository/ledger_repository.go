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

const pqUniqueViolation = "23505"

type LedgerRepository struct {
	db *sqlx.DB
}

func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// BeginTransaction starts a new database transaction
func (r *LedgerRepository) BeginTransaction() (*sqlx.Tx, error) {
	return r.db.Beginx()
}

// GetByTransactionID retrieves a points ledger entry by its idempotency key
func (r *LedgerRepository) GetByTransactionID(ctx context.Context, transactionID string) (*models.PointsTransaction, error) {
	var entry models.PointsTransaction
	query := `
		SELECT id, transaction_id, user_id, plant_id, activity_id, transaction_type,
		       points, description, created_at
		FROM points_ledger
		WHERE transaction_id = $1
	`

	err := r.db.GetContext(ctx, &entry, query, transactionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transaction %s: %w", transactionID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}

	return &entry, nil
}

// CreateTx appends a points ledger entry inside a transaction. A replayed
// transaction_id surfaces as ErrAlreadyProcessed via the unique constraint;
// the caller refetches and returns the stored entry.
func (r *LedgerRepository) CreateTx(tx *sqlx.Tx, entry *models.PointsTransaction) error {
	slog.Debug("Appending ledger entry",
		"transaction_id", entry.TransactionID,
		"user_id", entry.UserID,
		"type", entry.TransactionType,
		"points", entry.Points)

	entry.CreatedAt = time.Now()

	query := `
		INSERT INTO points_ledger (transaction_id, user_id, plant_id, activity_id, transaction_type,
		                           points, description, created_at)
		VALUES (:transaction_id, :user_id, :plant_id, :activity_id, :transaction_type,
		        :points, :description, :created_at)
	`

	_, err := tx.NamedExec(query, entry)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return fmt.Errorf("transaction %s: %w", entry.TransactionID, models.ErrAlreadyProcessed)
		}
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	return nil
}

// CreateCoinEntryTx appends a coins ledger entry inside a transaction
func (r *LedgerRepository) CreateCoinEntryTx(tx *sqlx.Tx, entry *models.CoinTransaction) error {
	entry.CreatedAt = time.Now()

	query := `
		INSERT INTO coins_ledger (transaction_id, user_id, transaction_type, coins, description, created_at)
		VALUES (:transaction_id, :user_id, :transaction_type, :coins, :description, :created_at)
	`

	_, err := tx.NamedExec(query, entry)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return fmt.Errorf("coin transaction %s: %w", entry.TransactionID, models.ErrAlreadyProcessed)
		}
		return fmt.Errorf("failed to append coin ledger entry: %w", err)
	}

	return nil
}

// GetHistoryByUser returns a user's ledger entries newest first. Ordering is
// created_at DESC with id DESC as the tie-break so same-timestamp entries
// keep a stable order.
func (r *LedgerRepository) GetHistoryByUser(ctx context.Context, userID string, limit, offset int) ([]models.PointsTransaction, error) {
	var entries []models.PointsTransaction
	query := `
		SELECT id, transaction_id, user_id, plant_id, activity_id, transaction_type,
		       points, description, created_at
		FROM points_ledger
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	err := r.db.SelectContext(ctx, &entries, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger history: %w", err)
	}

	return entries, nil
}

// SumPointsIssued totals all positive ledger entries across the program
func (r *LedgerRepository) SumPointsIssued(ctx context.Context) (int64, error) {
	var total int64
	query := `SELECT COALESCE(SUM(points), 0) FROM points_ledger WHERE points > 0`

	err := r.db.GetContext(ctx, &total, query)
	if err != nil {
		return 0, fmt.Errorf("failed to sum issued points: %w", err)
	}

	return total, nil
}
