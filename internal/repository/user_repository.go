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

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// BeginTransaction starts a new database transaction
func (r *UserRepository) BeginTransaction() (*sqlx.Tx, error) {
	return r.db.Beginx()
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	query := `
		SELECT id, name, email, phone, location, total_points, total_coins, status, created_at
		FROM users
		WHERE id = $1
	`

	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return &user, nil
}

// GetForUpdateTx locks the user row for the duration of the transaction.
// Used to serialize balance updates during ledger appends and conversions.
func (r *UserRepository) GetForUpdateTx(tx *sqlx.Tx, id string) (*models.User, error) {
	var user models.User
	query := `
		SELECT id, name, email, phone, location, total_points, total_coins, status, created_at
		FROM users
		WHERE id = $1
		FOR UPDATE
	`

	err := tx.Get(&user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock user row: %w", err)
	}

	return &user, nil
}

// Exists checks whether a user row is present
func (r *UserRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`

	err := r.db.GetContext(ctx, &exists, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}

	return exists, nil
}

// CreateTx inserts a new user inside an existing transaction
func (r *UserRepository) CreateTx(tx *sqlx.Tx, user *models.User) error {
	slog.Info("Creating user", "user_id", user.ID)

	if user.Status == "" {
		user.Status = models.UserActive
	}
	user.CreatedAt = time.Now()

	query := `
		INSERT INTO users (id, name, email, phone, location, total_points, total_coins, status, created_at)
		VALUES (:id, :name, :email, :phone, :location, :total_points, :total_coins, :status, :created_at)
	`

	_, err := tx.NamedExec(query, user)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// AddPointsTx adjusts a user's points balance inside a transaction
func (r *UserRepository) AddPointsTx(tx *sqlx.Tx, userID string, delta int) error {
	query := `UPDATE users SET total_points = total_points + $1 WHERE id = $2`

	result, err := tx.Exec(query, delta, userID)
	if err != nil {
		return fmt.Errorf("failed to update user points: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user %s: %w", userID, models.ErrNotFound)
	}

	return nil
}

// AddCoinsTx adjusts a user's coin balance inside a transaction
func (r *UserRepository) AddCoinsTx(tx *sqlx.Tx, userID string, delta int) error {
	query := `UPDATE users SET total_coins = total_coins + $1 WHERE id = $2`

	result, err := tx.Exec(query, delta, userID)
	if err != nil {
		return fmt.Errorf("failed to update user coins: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user %s: %w", userID, models.ErrNotFound)
	}

	return nil
}

// CountActive counts users with active status
func (r *UserRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM users WHERE status = $1`

	err := r.db.GetContext(ctx, &count, query, models.UserActive)
	if err != nil {
		return 0, fmt.Errorf("failed to count active users: %w", err)
	}

	return count, nil
}

// BalanceDrift is a user whose stored balance disagrees with the ledger sum
type BalanceDrift struct {
	UserID      string `db:"user_id"`
	StoredTotal int64  `db:"stored_total"`
	LedgerTotal int64  `db:"ledger_total"`
}

// FindBalanceDrift compares stored user totals against recomputed ledger
// sums. Used by the periodic audit job; a non-empty result means a balance
// invariant was broken somewhere.
func (r *UserRepository) FindBalanceDrift(ctx context.Context) ([]BalanceDrift, error) {
	var drifts []BalanceDrift
	query := `
		SELECT u.id AS user_id,
		       u.total_points AS stored_total,
		       COALESCE(SUM(pl.points), 0) AS ledger_total
		FROM users u
		LEFT JOIN points_ledger pl ON pl.user_id = u.id
		GROUP BY u.id, u.total_points
		HAVING u.total_points <> COALESCE(SUM(pl.points), 0)
	`

	err := r.db.SelectContext(ctx, &drifts, query)
	if err != nil {
		return nil, fmt.Errorf("failed to audit user balances: %w", err)
	}

	return drifts, nil
}
