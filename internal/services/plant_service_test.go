package services

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"reward-service/internal/models"
	"reward-service/internal/repository"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

func newPlantServiceWithMock(t *testing.T) (*PlantService, sqlmock.Sqlmock) {
	t.Helper()

	db, mock := newMockDB(t)
	cfg := testRewardConfig()

	userRepo := repository.NewUserRepository(db)
	plantRepo := repository.NewPlantRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	service := NewPlantService(
		userRepo,
		plantRepo,
		repository.NewStreakRepository(db),
		activityRepo,
		ledgerRepo,
		NewLedgerService(ledgerRepo, userRepo, plantRepo, cfg),
		NewLocationService(repository.NewLocationProfileRepository(db), activityRepo, cfg),
		nil, // no object storage in tests
		cfg,
	)
	return service, mock
}

func plantColumns() []string {
	return []string{
		"id", "owner_id", "plant_type", "plant_species", "location_label",
		"latitude", "longitude", "status", "health_score",
		"total_points_earned", "planted_at", "created_at",
	}
}

func plantRow(id, ownerID string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(plantColumns()).
		AddRow(id, ownerID, "tree", nil, nil, 10.8231, 106.6297, "active", 100, int64(50), now, now)
}

// profileRow encodes the reference point the way the database driver
// delivers it: hex-encoded EWKB text.
func profileRow(t *testing.T, plantID string, lat, lon, radius float64) *sqlmock.Rows {
	t.Helper()

	point := geom.NewPointFlat(geom.XY, []float64{lon, lat}).SetSRID(4326)
	raw, err := ewkb.Marshal(point, ewkb.NDR)
	require.NoError(t, err)

	return sqlmock.NewRows([]string{"plant_id", "reference_point", "radius_meters", "created_at"}).
		AddRow(plantID, []byte(hex.EncodeToString(raw)), radius, time.Now())
}

// ============================================================================
// TEST SUITE 1: PLANTING PHOTO REPLAY
// ============================================================================

func TestConfirmPlantingPhoto_SecondPhotoIsBenignReplay(t *testing.T) {
	service, mock := newPlantServiceWithMock(t)

	mock.ExpectQuery("SELECT (.+) FROM plants WHERE id").
		WithArgs("plant-1").
		WillReturnRows(plantRow("plant-1", "user-1"))
	mock.ExpectQuery("SELECT (.+) FROM location_profiles WHERE plant_id").
		WithArgs("plant-1").
		WillReturnRows(profileRow(t, "plant-1", 10.8231, 106.6297, 50))

	result, err := service.ConfirmPlantingPhoto(t.Context(), "user-1", "plant-1",
		models.PlantingPhotoRequest{Latitude: 10.8231, Longitude: 106.6297},
		[]byte("photo-bytes"), "image/jpeg")
	require.NoError(t, err, "A repeated confirmation is not an error")

	assert.True(t, result.Duplicate)
	assert.Zero(t, result.PointsAwarded, "A replay awards nothing new")
	assert.InDelta(t, 10.8231, result.Profile.Latitude(), 0.000001)
	assert.Equal(t, 50.0, result.Profile.RadiusMeters)
	assert.NoError(t, mock.ExpectationsWereMet(),
		"A replay reads the frozen profile and writes nothing")
}

func TestConfirmPlantingPhoto_RejectsForeignPlant(t *testing.T) {
	service, mock := newPlantServiceWithMock(t)

	mock.ExpectQuery("SELECT (.+) FROM plants WHERE id").
		WithArgs("plant-1").
		WillReturnRows(plantRow("plant-1", "someone-else"))

	_, err := service.ConfirmPlantingPhoto(t.Context(), "user-1", "plant-1",
		models.PlantingPhotoRequest{Latitude: 10.8231, Longitude: 106.6297}, nil, "")

	assert.ErrorIs(t, err, models.ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}
