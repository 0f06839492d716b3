package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reward-service/internal/models"
	"reward-service/internal/repository"
)

func newThrottleWithMock(t *testing.T) (*ScanThrottleService, sqlmock.Sqlmock) {
	t.Helper()

	db, mock := newMockDB(t)
	return NewScanThrottleService(repository.NewScanRecordRepository(db), testRewardConfig()), mock
}

// ============================================================================
// TEST SUITE 1: WINDOW ADMISSION
// ============================================================================

func TestThrottleCheck(t *testing.T) {
	tests := []struct {
		name        string
		windowCount int
		wantErr     bool
	}{
		{"empty window admits", 0, false},
		{"one scan admits", 1, false},
		{"window full rejects", 2, true},
		{"over the limit rejects", 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, mock := newThrottleWithMock(t)

			mock.ExpectQuery("SELECT COUNT(.+) FROM scan_records").
				WithArgs("plant-1", sqlmock.AnyArg()).
				WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(tt.windowCount))

			err := service.Check(t.Context(), "plant-1", time.Now())
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrRateLimited)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestThrottleCheck_WindowCutoff(t *testing.T) {
	service, mock := newThrottleWithMock(t)

	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	expectedCutoff := now.AddDate(0, 0, -7)

	mock.ExpectQuery("SELECT COUNT(.+) FROM scan_records").
		WithArgs("plant-1", expectedCutoff).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	err := service.Check(t.Context(), "plant-1", now)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet(),
		"Scans exactly 7 days old fall out of the trailing window")
}

// ============================================================================
// TEST SUITE 2: ADMISSION RECORDING
// ============================================================================

func TestAdmitTx_RecordsScan(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewScanThrottleService(repository.NewScanRecordRepository(db), testRewardConfig())

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO scan_records").
		WithArgs(sqlmock.AnyArg(), "plant-1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	tx, err := db.Beginx()
	require.NoError(t, err)

	record, err := service.AdmitTx(tx, "plant-1", now)
	require.NoError(t, err)

	assert.Equal(t, "plant-1", record.PlantID)
	assert.Equal(t, now, record.ScanTimestamp)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", record.ID.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ============================================================================
// TEST SUITE 3: WINDOW STATUS
// ============================================================================

func TestThrottleStatus(t *testing.T) {
	service, mock := newThrottleWithMock(t)

	mock.ExpectQuery("SELECT COUNT(.+) FROM scan_records").
		WithArgs("plant-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	status, err := service.Status(t.Context(), "plant-1", time.Now())
	require.NoError(t, err)

	assert.Equal(t, 1, status.Used)
	assert.Equal(t, 2, status.Limit)
	assert.Equal(t, 7, status.WindowDays)
	assert.NoError(t, mock.ExpectationsWereMet())
}
