package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reward-service/internal/config"
	"reward-service/internal/models"
	"reward-service/internal/repository"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

func testRewardConfig() config.RewardConfig {
	return config.RewardConfig{
		RegistrationPoints:  30,
		PlantingPhotoPoints: 20,
		WateringPoints:      5,
		HealthScanPoints:    5,
		ScanWindowDays:      7,
		ScanWindowLimit:     2,
		DefaultRadiusMeters: 50,
		CoinConversionRate:  10,
		MinAccountAgeDays:   180,
	}
}

func newLedgerServiceWithMock(t *testing.T) (*LedgerService, sqlmock.Sqlmock) {
	t.Helper()

	db, mock := newMockDB(t)
	return NewLedgerService(
		repository.NewLedgerRepository(db),
		repository.NewUserRepository(db),
		repository.NewPlantRepository(db),
		testRewardConfig(),
	), mock
}

func userColumns() []string {
	return []string{
		"id", "name", "email", "phone", "location",
		"total_points", "total_coins", "status", "created_at",
	}
}

func userRow(id string, points, coins int64, createdAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(userColumns()).
		AddRow(id, nil, nil, nil, nil, points, coins, "active", createdAt)
}

func ledgerColumns() []string {
	return []string{
		"id", "transaction_id", "user_id", "plant_id", "activity_id",
		"transaction_type", "points", "description", "created_at",
	}
}

func wateringEntry() *models.PointsTransaction {
	plantID := "plant-1"
	return &models.PointsTransaction{
		TransactionID:   "tx-watering-1",
		UserID:          "user-1",
		PlantID:         &plantID,
		TransactionType: models.TxWatering,
		Points:          5,
	}
}

// ============================================================================
// TEST SUITE 1: ENTRY VALIDATION
// ============================================================================

func TestValidateEntry(t *testing.T) {
	service, _ := newLedgerServiceWithMock(t)

	tests := []struct {
		name    string
		mutate  func(*models.PointsTransaction)
		wantErr bool
	}{
		{"valid credit", func(e *models.PointsTransaction) {}, false},
		{"missing transaction id", func(e *models.PointsTransaction) { e.TransactionID = "" }, true},
		{"missing user id", func(e *models.PointsTransaction) { e.UserID = "" }, true},
		{"zero points", func(e *models.PointsTransaction) { e.Points = 0 }, true},
		{"negative watering", func(e *models.PointsTransaction) { e.Points = -5 }, true},
		{
			"negative conversion is allowed",
			func(e *models.PointsTransaction) {
				e.Points = -10
				e.TransactionType = models.TxCoinConversion
			},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := wateringEntry()
			tt.mutate(entry)

			err := service.validateEntry(entry)
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// ============================================================================
// TEST SUITE 2: APPEND AND IDEMPOTENT REPLAY
// ============================================================================

func TestAppendTransaction_HappyPath(t *testing.T) {
	service, mock := newLedgerServiceWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM users (.+) FOR UPDATE").
		WithArgs("user-1").
		WillReturnRows(userRow("user-1", 100, 0, time.Now().AddDate(-1, 0, 0)))
	mock.ExpectExec("INSERT INTO points_ledger").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE users SET total_points").
		WithArgs(5, "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE plants SET total_points_earned").
		WithArgs(5, "plant-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := service.AppendTransaction(t.Context(), wateringEntry())
	require.NoError(t, err)

	assert.False(t, result.Duplicate)
	assert.Equal(t, "tx-watering-1", result.Entry.TransactionID)
	assert.Equal(t, 5, result.Entry.Points)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendTransaction_ReplayReturnsStoredEntry(t *testing.T) {
	service, mock := newLedgerServiceWithMock(t)

	storedAt := time.Now().Add(-time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM users (.+) FOR UPDATE").
		WithArgs("user-1").
		WillReturnRows(userRow("user-1", 100, 0, time.Now().AddDate(-1, 0, 0)))
	mock.ExpectExec("INSERT INTO points_ledger").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()
	mock.ExpectQuery("SELECT (.+) FROM points_ledger WHERE transaction_id").
		WithArgs("tx-watering-1").
		WillReturnRows(sqlmock.NewRows(ledgerColumns()).
			AddRow(int64(42), "tx-watering-1", "user-1", "plant-1", nil, "watering", 5, nil, storedAt))

	result, err := service.AppendTransaction(t.Context(), wateringEntry())
	require.NoError(t, err, "A replayed transaction id is not an error")

	assert.True(t, result.Duplicate)
	assert.Equal(t, int64(42), result.Entry.ID)
	assert.Equal(t, 5, result.Entry.Points, "Replay returns the stored entry, nothing new is written")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendTransaction_UserUpdateFailureRollsBack(t *testing.T) {
	service, mock := newLedgerServiceWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM users (.+) FOR UPDATE").
		WithArgs("user-1").
		WillReturnRows(userRow("user-1", 100, 0, time.Now().AddDate(-1, 0, 0)))
	mock.ExpectExec("INSERT INTO points_ledger").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE users SET total_points").
		WithArgs(5, "user-1").
		WillReturnResult(sqlmock.NewResult(0, 0)) // user row vanished
	mock.ExpectRollback()

	_, err := service.AppendTransaction(t.Context(), wateringEntry())
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet(), "A failed aggregate update must roll back the append")
}

// ============================================================================
// TEST SUITE 3: POINTS TO COINS CONVERSION
// ============================================================================

func TestConvertPoints_Validation(t *testing.T) {
	service, _ := newLedgerServiceWithMock(t)

	tests := []struct {
		name   string
		txID   string
		points int
	}{
		{"missing transaction id", "", 100},
		{"zero points", "tx-1", 0},
		{"negative points", "tx-1", -10},
		{"not a multiple of the rate", "tx-1", 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.ConvertPoints(t.Context(), "user-1", models.ConvertPointsRequest{
				TransactionID: tt.txID,
				Points:        tt.points,
			})
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}
}

func TestConvertPoints_AccountTooYoung(t *testing.T) {
	service, mock := newLedgerServiceWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM users (.+) FOR UPDATE").
		WithArgs("user-1").
		WillReturnRows(userRow("user-1", 1000, 0, time.Now().AddDate(0, 0, -30)))
	mock.ExpectRollback()

	_, err := service.ConvertPoints(t.Context(), "user-1", models.ConvertPointsRequest{
		TransactionID: "tx-convert-1",
		Points:        100,
	})

	assert.ErrorIs(t, err, models.ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConvertPoints_InsufficientBalance(t *testing.T) {
	service, mock := newLedgerServiceWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM users (.+) FOR UPDATE").
		WithArgs("user-1").
		WillReturnRows(userRow("user-1", 50, 0, time.Now().AddDate(-1, 0, 0)))
	mock.ExpectRollback()

	_, err := service.ConvertPoints(t.Context(), "user-1", models.ConvertPointsRequest{
		TransactionID: "tx-convert-1",
		Points:        100,
	})

	assert.ErrorIs(t, err, models.ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConvertPoints_HappyPath(t *testing.T) {
	service, mock := newLedgerServiceWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM users (.+) FOR UPDATE").
		WithArgs("user-1").
		WillReturnRows(userRow("user-1", 1000, 5, time.Now().AddDate(-1, 0, 0)))
	mock.ExpectExec("INSERT INTO points_ledger").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO coins_ledger").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE users SET total_points").
		WithArgs(-100, "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users SET total_coins").
		WithArgs(10, "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := service.ConvertPoints(t.Context(), "user-1", models.ConvertPointsRequest{
		TransactionID: "tx-convert-1",
		Points:        100,
	})
	require.NoError(t, err)

	assert.Equal(t, 100, result.PointsConverted)
	assert.Equal(t, 10, result.CoinsCredited, "10 points convert to 1 coin")
	assert.Equal(t, int64(900), result.RemainingPoints)
	assert.False(t, result.Duplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConvertPoints_ReplayReturnsStoredResult(t *testing.T) {
	service, mock := newLedgerServiceWithMock(t)

	storedAt := time.Now().Add(-time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM users (.+) FOR UPDATE").
		WithArgs("user-1").
		WillReturnRows(userRow("user-1", 900, 10, time.Now().AddDate(-1, 0, 0)))
	mock.ExpectExec("INSERT INTO points_ledger").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()
	mock.ExpectQuery("SELECT (.+) FROM points_ledger WHERE transaction_id").
		WithArgs("tx-convert-1").
		WillReturnRows(sqlmock.NewRows(ledgerColumns()).
			AddRow(int64(7), "tx-convert-1", "user-1", nil, nil, "coin_conversion", -100, nil, storedAt))
	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs("user-1").
		WillReturnRows(userRow("user-1", 900, 10, time.Now().AddDate(-1, 0, 0)))

	result, err := service.ConvertPoints(t.Context(), "user-1", models.ConvertPointsRequest{
		TransactionID: "tx-convert-1",
		Points:        100,
	})
	require.NoError(t, err, "A retried conversion is not an error")

	assert.True(t, result.Duplicate)
	assert.Equal(t, 100, result.PointsConverted)
	assert.Equal(t, 10, result.CoinsCredited)
	assert.Equal(t, int64(900), result.RemainingPoints, "The balance already reflects the stored conversion")
	assert.NoError(t, mock.ExpectationsWereMet(), "A replay must not write a second debit or credit")
}
