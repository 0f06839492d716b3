package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"reward-service/internal/models"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

func cleanClaim() models.FraudAssessInput {
	return models.FraudAssessInput{
		UserID:               "user-1",
		ClaimedPoints:        5,
		AvgPointsPerDay:      10.0,
		VerificationsLast24h: 2,
		SuccessRatePercent:   95.0,
		HasHistory:           true,
	}
}

// ============================================================================
// TEST SUITE 1: INDIVIDUAL SCORING RULES
// ============================================================================

func TestAssess_CleanClaimApproves(t *testing.T) {
	validator := NewRuleBasedValidator()

	result := validator.Assess(cleanClaim())

	assert.Equal(t, 1.0, result.Confidence)
	assert.Equal(t, models.RiskLow, result.RiskLevel)
	assert.Equal(t, models.RecommendApprove, result.Recommendation)
	assert.Empty(t, result.Reasons)
}

func TestAssess_ClaimSpike(t *testing.T) {
	validator := NewRuleBasedValidator()

	input := cleanClaim()
	input.ClaimedPoints = 31 // > 3x the 10.0 daily average
	result := validator.Assess(input)

	assert.InDelta(t, 0.8, result.Confidence, 0.001)
	assert.Equal(t, models.RecommendApprove, result.Recommendation)
	assert.Len(t, result.Reasons, 1)
}

func TestAssess_ClaimSpikeNeedsBaseline(t *testing.T) {
	validator := NewRuleBasedValidator()

	input := cleanClaim()
	input.ClaimedPoints = 31
	input.HasHistory = false
	result := validator.Assess(input)

	assert.Equal(t, 1.0, result.Confidence, "New users have no baseline to spike against")
}

func TestAssess_BurstActivity(t *testing.T) {
	validator := NewRuleBasedValidator()

	tests := []struct {
		name       string
		last24h    int
		confidence float64
	}{
		{"at threshold", 10, 1.0},
		{"one over threshold", 11, 0.7},
		{"far over threshold", 50, 0.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := cleanClaim()
			input.VerificationsLast24h = tt.last24h
			result := validator.Assess(input)
			assert.InDelta(t, tt.confidence, result.Confidence, 0.001)
		})
	}
}

func TestAssess_LowSuccessRate(t *testing.T) {
	validator := NewRuleBasedValidator()

	tests := []struct {
		name       string
		rate       float64
		hasHistory bool
		confidence float64
	}{
		{"healthy rate", 80.0, true, 1.0},
		{"exactly at floor", 50.0, true, 1.0},
		{"below floor", 49.9, true, 0.8},
		{"below floor without history", 0.0, false, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := cleanClaim()
			input.SuccessRatePercent = tt.rate
			input.HasHistory = tt.hasHistory
			result := validator.Assess(input)
			assert.InDelta(t, tt.confidence, result.Confidence, 0.001)
		})
	}
}

func TestAssess_HugeClaim(t *testing.T) {
	validator := NewRuleBasedValidator()

	input := cleanClaim()
	input.ClaimedPoints = 501
	input.AvgPointsPerDay = 1000.0 // keep the spike rule quiet
	result := validator.Assess(input)

	assert.InDelta(t, 0.5, result.Confidence, 0.001)
	assert.Equal(t, models.RiskMedium, result.RiskLevel)
	assert.Equal(t, models.RecommendManualReview, result.Recommendation)
}

// ============================================================================
// TEST SUITE 2: COMBINED RULES AND CLAMPING
// ============================================================================

func TestAssess_AllRulesTrippedClampsToZero(t *testing.T) {
	validator := NewRuleBasedValidator()

	input := models.FraudAssessInput{
		UserID:               "user-1",
		ClaimedPoints:        600, // spike (avg 10) and huge claim
		AvgPointsPerDay:      10.0,
		VerificationsLast24h: 20,   // burst
		SuccessRatePercent:   20.0, // low success rate
		HasHistory:           true,
	}
	result := validator.Assess(input)

	// 1.0 - 0.2 - 0.3 - 0.2 - 0.5 = -0.2, clamped
	assert.Equal(t, 0.0, result.Confidence)
	assert.Equal(t, models.RiskHigh, result.RiskLevel)
	assert.Equal(t, models.RecommendReject, result.Recommendation)
	assert.Len(t, result.Reasons, 4)
}

func TestAssess_Deterministic(t *testing.T) {
	validator := NewRuleBasedValidator()

	input := cleanClaim()
	input.ClaimedPoints = 40
	input.VerificationsLast24h = 15

	first := validator.Assess(input)
	for range 10 {
		assert.Equal(t, first, validator.Assess(input),
			"Identical input must produce an identical assessment")
	}
}

// ============================================================================
// TEST SUITE 3: RECOMMENDATION THRESHOLDS
// ============================================================================

func TestRecommendationFor(t *testing.T) {
	tests := []struct {
		confidence float64
		expected   models.Recommendation
	}{
		{0.0, models.RecommendReject},
		{0.39, models.RecommendReject},
		{0.4, models.RecommendManualReview},
		{0.69, models.RecommendManualReview},
		{0.7, models.RecommendApprove},
		{1.0, models.RecommendApprove},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, recommendationFor(tt.confidence),
			"confidence %.2f", tt.confidence)
	}
}

func TestRiskLevelFor(t *testing.T) {
	tests := []struct {
		confidence float64
		expected   models.RiskLevel
	}{
		{0.0, models.RiskHigh},
		{0.39, models.RiskHigh},
		{0.4, models.RiskMedium},
		{0.69, models.RiskMedium},
		{0.7, models.RiskLow},
		{1.0, models.RiskLow},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, riskLevelFor(tt.confidence),
			"confidence %.2f", tt.confidence)
	}
}
