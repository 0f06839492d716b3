package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reward-service/internal/models"
)

// ============================================================================
// TEST SUITE 1: HAVERSINE DISTANCE
// ============================================================================

func TestHaversineMeters(t *testing.T) {
	tests := []struct {
		name       string
		lat1, lon1 float64
		lat2, lon2 float64
		expected   float64
		delta      float64
	}{
		{
			name: "identical points",
			lat1: 10.762622, lon1: 106.660172,
			lat2: 10.762622, lon2: 106.660172,
			expected: 0, delta: 0.001,
		},
		{
			name: "one degree of longitude at the equator",
			lat1: 0, lon1: 0,
			lat2: 0, lon2: 1,
			expected: 111194.9, delta: 1.0,
		},
		{
			name: "one degree of latitude",
			lat1: 10, lon1: 106,
			lat2: 11, lon2: 106,
			expected: 111194.9, delta: 1.0,
		},
		{
			name: "roughly 50 meters north",
			lat1: 10.762622, lon1: 106.660172,
			lat2: 10.763072, lon2: 106.660172,
			expected: 50.0, delta: 0.1,
		},
		{
			name: "hemisphere crossing",
			lat1: 45, lon1: 100,
			lat2: -45, lon2: -80,
			expected: 20015086.0, delta: 10000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := HaversineMeters(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.InDelta(t, tt.expected, d, tt.delta)
		})
	}
}

func TestHaversineMeters_Symmetric(t *testing.T) {
	ab := HaversineMeters(10.76, 106.66, 21.03, 105.85)
	ba := HaversineMeters(21.03, 105.85, 10.76, 106.66)
	assert.InDelta(t, ab, ba, 0.000001)
}

// ============================================================================
// TEST SUITE 2: HISTORICAL CONSISTENCY GRADING
// ============================================================================

// fixesAround builds a trail of fixes offset from a base point. Offsets are
// in degrees of latitude; 0.001 is about 111 meters.
func fixesAround(baseLat, baseLon float64, latOffsets ...float64) []models.GPSFix {
	fixes := make([]models.GPSFix, 0, len(latOffsets))
	for _, off := range latOffsets {
		fixes = append(fixes, models.GPSFix{Latitude: baseLat + off, Longitude: baseLon})
	}
	return fixes
}

func TestGradeConsistency(t *testing.T) {
	const radius = 50.0

	tests := []struct {
		name                    string
		fixes                   []models.GPSFix
		expectedInconsistencies int
		expectedRisk            models.RiskLevel
	}{
		{
			name:                    "no fixes",
			fixes:                   nil,
			expectedInconsistencies: 0,
			expectedRisk:            models.RiskLow,
		},
		{
			name:                    "single fix has no pairs",
			fixes:                   fixesAround(10.76, 106.66, 0),
			expectedInconsistencies: 0,
			expectedRisk:            models.RiskLow,
		},
		{
			name: "tight cluster",
			// All steps ~11m, well inside the 50m radius
			fixes:                   fixesAround(10.76, 106.66, 0, 0.0001, 0.0002, 0.0003),
			expectedInconsistencies: 0,
			expectedRisk:            models.RiskLow,
		},
		{
			name: "one jump",
			// One ~111m step between clustered fixes
			fixes:                   fixesAround(10.76, 106.66, 0, 0.0001, 0.0011, 0.0012),
			expectedInconsistencies: 1,
			expectedRisk:            models.RiskMedium,
		},
		{
			name: "two jumps",
			// Jump out and back
			fixes:                   fixesAround(10.76, 106.66, 0, 0.001, 0, 0.0001),
			expectedInconsistencies: 2,
			expectedRisk:            models.RiskMedium,
		},
		{
			name: "three jumps",
			// Oscillating trail, every step ~111m
			fixes:                   fixesAround(10.76, 106.66, 0, 0.001, 0.002, 0.003),
			expectedInconsistencies: 3,
			expectedRisk:            models.RiskHigh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := gradeConsistency("plant-1", tt.fixes, radius)

			assert.Len(t, report.Inconsistencies, tt.expectedInconsistencies)
			assert.Equal(t, tt.expectedInconsistencies == 0, report.Consistent)
			assert.Equal(t, tt.expectedRisk, report.RiskLevel)
			assert.Equal(t, len(tt.fixes), report.FixesExamined)
			assert.Equal(t, "plant-1", report.PlantID)
		})
	}
}

func TestGradeConsistency_ReportsDistancesAndDetails(t *testing.T) {
	// Three fixes: ~11m step, then a ~111m jump between fixes 1 and 2.
	fixes := fixesAround(10.76, 106.66, 0, 0.0001, 0.0011)

	report := gradeConsistency("plant-1", fixes, 50.0)

	assert.False(t, report.Consistent)
	assert.InDelta(t, 61.2, report.AvgDistanceMeters, 1.0)
	assert.InDelta(t, 111.2, report.MaxDistanceMeters, 1.0)

	require.Len(t, report.Inconsistencies, 1)
	assert.Equal(t, 2, report.Inconsistencies[0].Index,
		"The detail names the later fix of the offending pair")
	assert.InDelta(t, 111.2, report.Inconsistencies[0].DistanceMeters, 1.0)
}

func TestGradeConsistency_EmptyTrailHasZeroDistances(t *testing.T) {
	report := gradeConsistency("plant-1", nil, 50.0)

	assert.True(t, report.Consistent)
	assert.Zero(t, report.AvgDistanceMeters)
	assert.Zero(t, report.MaxDistanceMeters)
	assert.Empty(t, report.Inconsistencies)
}

// ============================================================================
// TEST SUITE 3: LOCATION CHECK CONFIDENCE
// ============================================================================

func TestLocationConfidence(t *testing.T) {
	tests := []struct {
		name     string
		check    models.LocationCheck
		expected float64
	}{
		{
			name:     "verified fix is fully confident",
			check:    models.LocationCheck{Verified: true, DistanceMeters: 10, RadiusMeters: 50},
			expected: 1.0,
		},
		{
			name:     "just outside the radius",
			check:    models.LocationCheck{Verified: false, DistanceMeters: 100, RadiusMeters: 50},
			expected: 0.5,
		},
		{
			name:     "far outside the radius",
			check:    models.LocationCheck{Verified: false, DistanceMeters: 5000, RadiusMeters: 50},
			expected: 0.01,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, locationConfidence(&tt.check), 0.001)
		})
	}
}
