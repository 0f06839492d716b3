package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"reward-service/internal/config"
	"reward-service/internal/models"
	"reward-service/internal/repository"

	"github.com/jmoiron/sqlx"
)

const earthRadiusMeters = 6371000

// LocationService verifies GPS fixes against a plant's immutable reference
// profile and grades the consistency of its location history.
type LocationService struct {
	profileRepo  *repository.LocationProfileRepository
	activityRepo *repository.ActivityRepository
	rewardCfg    config.RewardConfig
}

func NewLocationService(
	profileRepo *repository.LocationProfileRepository,
	activityRepo *repository.ActivityRepository,
	rewardCfg config.RewardConfig,
) *LocationService {
	return &LocationService{
		profileRepo:  profileRepo,
		activityRepo: activityRepo,
		rewardCfg:    rewardCfg,
	}
}

// HaversineMeters computes the great-circle distance between two
// coordinate pairs.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// CreateProfileTx creates a plant's reference profile inside a caller-owned
// transaction. Profiles are write-once; a second create fails with
// ErrAlreadyProcessed.
func (s *LocationService) CreateProfileTx(tx *sqlx.Tx, plantID string, lat, lon float64, radiusMeters *float64) (*models.LocationProfile, error) {
	radius := s.rewardCfg.DefaultRadiusMeters
	if radiusMeters != nil && *radiusMeters > 0 {
		radius = *radiusMeters
	}

	profile := &models.LocationProfile{
		PlantID:        plantID,
		ReferencePoint: models.NewGeoJSONPoint(lat, lon),
		RadiusMeters:   radius,
	}

	if err := s.profileRepo.CreateTx(tx, profile); err != nil {
		return nil, err
	}

	return profile, nil
}

// Verify checks a GPS fix against the plant's reference profile. A fix
// outside the radius returns ErrLocationMismatch along with the measured
// check for the caller to report.
func (s *LocationService) Verify(ctx context.Context, plantID string, lat, lon float64) (*models.LocationCheck, error) {
	profile, err := s.profileRepo.GetByPlantID(ctx, plantID)
	if err != nil {
		return nil, err
	}

	distance := HaversineMeters(profile.Latitude(), profile.Longitude(), lat, lon)
	check := &models.LocationCheck{
		Verified:       distance <= profile.RadiusMeters,
		DistanceMeters: distance,
		RadiusMeters:   profile.RadiusMeters,
	}

	if !check.Verified {
		slog.Info("Location outside reference radius",
			"plant_id", plantID,
			"distance_m", distance,
			"radius_m", profile.RadiusMeters)
		return check, fmt.Errorf("fix is %.1fm from reference (radius %.1fm): %w",
			distance, profile.RadiusMeters, models.ErrLocationMismatch)
	}

	return check, nil
}

// CheckHistoricalConsistency examines a plant's recorded GPS fixes in
// submission order and counts consecutive pairs further apart than the
// profile radius. 0 inconsistencies is low risk, 1-2 medium, more high.
func (s *LocationService) CheckHistoricalConsistency(ctx context.Context, plantID string, maxFixes int) (*models.ConsistencyReport, error) {
	if maxFixes <= 0 {
		maxFixes = 20
	}

	profile, err := s.profileRepo.GetByPlantID(ctx, plantID)
	if err != nil {
		return nil, err
	}

	fixes, err := s.activityRepo.GetRecentFixes(ctx, plantID, maxFixes)
	if err != nil {
		return nil, err
	}

	report := gradeConsistency(plantID, fixes, profile.RadiusMeters)

	slog.Debug("Historical consistency checked",
		"plant_id", plantID,
		"fixes", report.FixesExamined,
		"inconsistencies", len(report.Inconsistencies),
		"risk", report.RiskLevel)

	return report, nil
}

func gradeConsistency(plantID string, fixes []models.GPSFix, radiusMeters float64) *models.ConsistencyReport {
	var (
		totalDistance   float64
		maxDistance     float64
		pairs           int
		inconsistencies []models.InconsistentPair
	)
	for i := 1; i < len(fixes); i++ {
		d := HaversineMeters(fixes[i-1].Latitude, fixes[i-1].Longitude, fixes[i].Latitude, fixes[i].Longitude)
		pairs++
		totalDistance += d
		if d > maxDistance {
			maxDistance = d
		}
		if d > radiusMeters {
			inconsistencies = append(inconsistencies, models.InconsistentPair{
				Index:          i,
				DistanceMeters: d,
			})
		}
	}

	avgDistance := 0.0
	if pairs > 0 {
		avgDistance = totalDistance / float64(pairs)
	}

	risk := models.RiskLow
	switch {
	case len(inconsistencies) > 2:
		risk = models.RiskHigh
	case len(inconsistencies) >= 1:
		risk = models.RiskMedium
	}

	return &models.ConsistencyReport{
		PlantID:           plantID,
		Consistent:        len(inconsistencies) == 0,
		FixesExamined:     len(fixes),
		AvgDistanceMeters: avgDistance,
		MaxDistanceMeters: maxDistance,
		Inconsistencies:   inconsistencies,
		RiskLevel:         risk,
	}
}

// GetProfile returns a plant's reference profile
func (s *LocationService) GetProfile(ctx context.Context, plantID string) (*models.LocationProfile, error) {
	return s.profileRepo.GetByPlantID(ctx, plantID)
}
