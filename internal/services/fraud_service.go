package services

import (
	"context"
	"fmt"
	"log/slog"
	"reward-service/internal/models"
	"reward-service/internal/repository"
	"time"
)

// Validator is the single entry point for fraud risk scoring. Implementations
// must be deterministic: the same input always yields the same assessment.
type Validator interface {
	Assess(input models.FraudAssessInput) models.FraudAssessment
}

// Scoring rules. The confidence starts at 1.0 and each tripped rule
// subtracts its penalty; the result is clamped to [0, 1].
const (
	penaltyClaimSpike     = 0.2 // claimed more than 3x the user's daily average
	penaltyBurstActivity  = 0.3 // more than 10 verifications in 24h
	penaltyLowSuccessRate = 0.2 // historical success rate under 50%
	penaltyHugeClaim      = 0.5 // single claim over 500 points

	claimSpikeMultiplier = 3.0
	burstThreshold       = 10
	successRateFloor     = 50.0
	hugeClaimThreshold   = 500

	rejectBelow       = 0.4
	manualReviewBelow = 0.7
)

// RuleBasedValidator is the deterministic production scorer
type RuleBasedValidator struct{}

func NewRuleBasedValidator() *RuleBasedValidator {
	return &RuleBasedValidator{}
}

// Assess applies the scoring rules to one claim
func (v *RuleBasedValidator) Assess(input models.FraudAssessInput) models.FraudAssessment {
	confidence := 1.0
	var reasons []string

	// The spike rule needs a baseline; brand-new users are exempt.
	if input.HasHistory && input.AvgPointsPerDay > 0 &&
		float64(input.ClaimedPoints) > claimSpikeMultiplier*input.AvgPointsPerDay {
		confidence -= penaltyClaimSpike
		reasons = append(reasons, fmt.Sprintf("claimed %d points vs %.1f daily average", input.ClaimedPoints, input.AvgPointsPerDay))
	}

	if input.VerificationsLast24h > burstThreshold {
		confidence -= penaltyBurstActivity
		reasons = append(reasons, fmt.Sprintf("%d verifications in 24h", input.VerificationsLast24h))
	}

	if input.HasHistory && input.SuccessRatePercent < successRateFloor {
		confidence -= penaltyLowSuccessRate
		reasons = append(reasons, fmt.Sprintf("success rate %.1f%%", input.SuccessRatePercent))
	}

	if input.ClaimedPoints > hugeClaimThreshold {
		confidence -= penaltyHugeClaim
		reasons = append(reasons, fmt.Sprintf("claim of %d points exceeds %d", input.ClaimedPoints, hugeClaimThreshold))
	}

	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return models.FraudAssessment{
		Confidence:     confidence,
		RiskLevel:      riskLevelFor(confidence),
		Recommendation: recommendationFor(confidence),
		Reasons:        reasons,
	}
}

func recommendationFor(confidence float64) models.Recommendation {
	switch {
	case confidence < rejectBelow:
		return models.RecommendReject
	case confidence < manualReviewBelow:
		return models.RecommendManualReview
	default:
		return models.RecommendApprove
	}
}

// riskLevelFor mirrors the recommendation thresholds: a claim risky enough
// to reject is high risk, one needing review is medium.
func riskLevelFor(confidence float64) models.RiskLevel {
	switch {
	case confidence < rejectBelow:
		return models.RiskHigh
	case confidence < manualReviewBelow:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// FraudService feeds the validator from recorded user behavior
type FraudService struct {
	validator    Validator
	activityRepo *repository.ActivityRepository
}

func NewFraudService(validator Validator, activityRepo *repository.ActivityRepository) *FraudService {
	return &FraudService{
		validator:    validator,
		activityRepo: activityRepo,
	}
}

const behaviorWindowDays = 30

// AssessClaim builds the behavioral input for a user's claim and scores it
func (s *FraudService) AssessClaim(ctx context.Context, userID string, claimedPoints int) (*models.FraudAssessment, error) {
	behavior, err := s.activityRepo.GetUserBehavior(ctx, userID, behaviorWindowDays)
	if err != nil {
		return nil, err
	}

	last24h, err := s.activityRepo.CountByUserSince(ctx, userID, time.Now().Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}

	successRate := 100.0
	if behavior.DecidedCount > 0 {
		successRate = 100.0 * float64(behavior.VerifiedCount) / float64(behavior.DecidedCount)
	}

	input := models.FraudAssessInput{
		UserID:               userID,
		ClaimedPoints:        claimedPoints,
		AvgPointsPerDay:      behavior.AvgPointsPerDay,
		VerificationsLast24h: last24h,
		SuccessRatePercent:   successRate,
		HasHistory:           behavior.ActivityCount > 0,
	}

	assessment := s.validator.Assess(input)

	slog.Debug("Fraud assessment",
		"user_id", userID,
		"claimed_points", claimedPoints,
		"confidence", assessment.Confidence,
		"risk_level", assessment.RiskLevel,
		"recommendation", assessment.Recommendation)

	return &assessment, nil
}
