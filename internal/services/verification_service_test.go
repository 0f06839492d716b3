package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"reward-service/internal/event"
	"reward-service/internal/models"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

func passingCheck(name string) models.VerificationCheck {
	return models.VerificationCheck{
		Name:           name,
		Passed:         true,
		Confidence:     0.9,
		Recommendation: models.RecommendApprove,
	}
}

func failingCheck(name string, rec models.Recommendation) models.VerificationCheck {
	return models.VerificationCheck{
		Name:           name,
		Passed:         false,
		Confidence:     0.3,
		Recommendation: rec,
	}
}

func allPassing() []models.VerificationCheck {
	checks := make([]models.VerificationCheck, 0, len(models.CriticalChecks))
	for _, name := range models.CriticalChecks {
		checks = append(checks, passingCheck(name))
	}
	return checks
}

// ============================================================================
// TEST SUITE 1: QUORUM
// ============================================================================

func TestAggregate_AllChecksPassApproves(t *testing.T) {
	outcome := Aggregate(allPassing())

	assert.True(t, outcome.Approved)
	assert.Equal(t, models.RecommendApprove, outcome.Recommendation)
	assert.Equal(t, 4, outcome.PassedCritical)
	assert.InDelta(t, 0.9, outcome.OverallConfidence, 0.001)
}

func TestAggregate_ThreeOfFourStillApproves(t *testing.T) {
	checks := allPassing()
	checks[1] = failingCheck(models.CheckPlantHealth, models.RecommendApprove)

	outcome := Aggregate(checks)

	assert.True(t, outcome.Approved, "Three passing critical checks meet the quorum")
	assert.Equal(t, 3, outcome.PassedCritical)
}

func TestAggregate_TwoOfFourFailsQuorum(t *testing.T) {
	checks := allPassing()
	checks[0] = failingCheck(models.CheckImageAuthenticity, models.RecommendApprove)
	checks[1] = failingCheck(models.CheckPlantHealth, models.RecommendApprove)

	outcome := Aggregate(checks)

	assert.False(t, outcome.Approved)
	assert.Equal(t, 2, outcome.PassedCritical)
	assert.Equal(t, models.RecommendApprove, outcome.Recommendation,
		"Failing the quorum does not force a reject recommendation")
}

func TestAggregate_NonCriticalCheckDoesNotCount(t *testing.T) {
	checks := []models.VerificationCheck{
		passingCheck(models.CheckImageAuthenticity),
		passingCheck(models.CheckPlantHealth),
		passingCheck("weather_plausibility"),
	}

	outcome := Aggregate(checks)

	assert.Equal(t, 2, outcome.PassedCritical)
	assert.False(t, outcome.Approved, "Unknown check names never reach the quorum")
}

func TestAggregate_NoChecks(t *testing.T) {
	outcome := Aggregate(nil)

	assert.False(t, outcome.Approved)
	assert.Equal(t, 0, outcome.PassedCritical)
	assert.Equal(t, 0.0, outcome.OverallConfidence)
}

// ============================================================================
// TEST SUITE 2: CONSERVATIVE OVERRIDE
// ============================================================================

func TestAggregate_SingleRejectOverridesEverything(t *testing.T) {
	checks := allPassing()
	checks[3] = models.VerificationCheck{
		Name:           models.CheckFraudRisk,
		Passed:         true, // passing but still recommending reject
		Confidence:     0.9,
		Recommendation: models.RecommendReject,
	}

	outcome := Aggregate(checks)

	assert.False(t, outcome.Approved, "A forced reject blocks approval even with a full quorum")
	assert.Equal(t, models.RecommendReject, outcome.Recommendation)
	assert.Equal(t, 4, outcome.PassedCritical)
}

func TestAggregate_ManualReviewOverridesApprove(t *testing.T) {
	checks := allPassing()
	checks[2] = models.VerificationCheck{
		Name:           models.CheckLocationConsistency,
		Passed:         true,
		Confidence:     0.6,
		Recommendation: models.RecommendManualReview,
	}

	outcome := Aggregate(checks)

	assert.Equal(t, models.RecommendManualReview, outcome.Recommendation)
}

func TestAggregate_RejectBeatsManualReview(t *testing.T) {
	tests := []struct {
		name  string
		order []models.Recommendation
	}{
		{"reject first", []models.Recommendation{models.RecommendReject, models.RecommendManualReview, models.RecommendApprove, models.RecommendApprove}},
		{"reject last", []models.Recommendation{models.RecommendApprove, models.RecommendManualReview, models.RecommendApprove, models.RecommendReject}},
		{"reject in the middle", []models.Recommendation{models.RecommendManualReview, models.RecommendReject, models.RecommendManualReview, models.RecommendApprove}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checks := allPassing()
			for i, rec := range tt.order {
				checks[i].Recommendation = rec
			}

			outcome := Aggregate(checks)
			assert.Equal(t, models.RecommendReject, outcome.Recommendation,
				"Reject wins regardless of check order")
		})
	}
}

func TestAggregate_ConfidenceIsInformationalOnly(t *testing.T) {
	// Every check passes and approves, but with rock-bottom confidence.
	checks := allPassing()
	for i := range checks {
		checks[i].Confidence = 0.05
	}

	outcome := Aggregate(checks)

	assert.True(t, outcome.Approved, "Low averaged confidence never blocks an approval")
	assert.InDelta(t, 0.05, outcome.OverallConfidence, 0.001)
}

// ============================================================================
// TEST SUITE 3: EVENT MAPPING
// ============================================================================

func TestEventTypeFor(t *testing.T) {
	tests := []struct {
		name     string
		outcome  AggregateOutcome
		expected string
	}{
		{
			name:     "approved",
			outcome:  AggregateOutcome{Approved: true, Recommendation: models.RecommendApprove},
			expected: event.EventRewardGranted,
		},
		{
			name:     "rejected",
			outcome:  AggregateOutcome{Approved: false, Recommendation: models.RecommendReject},
			expected: event.EventVerificationRejected,
		},
		{
			name:     "manual review",
			outcome:  AggregateOutcome{Approved: false, Recommendation: models.RecommendManualReview},
			expected: event.EventManualReviewNeeded,
		},
		{
			name:     "quorum failure without override",
			outcome:  AggregateOutcome{Approved: false, Recommendation: models.RecommendApprove},
			expected: event.EventManualReviewNeeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EventTypeFor(tt.outcome))
		})
	}
}
