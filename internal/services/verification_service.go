package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reward-service/internal/config"
	"reward-service/internal/event"
	"reward-service/internal/models"
	"reward-service/internal/repository"
	"reward-service/internal/utils"
	"time"

	"github.com/google/uuid"
)

// VerificationService runs a submission through every check, aggregates
// the verdicts and, when approved, awards points through the ledger. All
// state written for one submission lands in a single transaction.
type VerificationService struct {
	plantRepo        *repository.PlantRepository
	activityRepo     *repository.ActivityRepository
	verificationRepo *repository.VerificationRepository
	ledgerService    *LedgerService
	streakService    *StreakService
	throttleService  *ScanThrottleService
	locationService  *LocationService
	fraudService     *FraudService
	publisher        *event.RewardPublisher
	rewardCfg        config.RewardConfig
}

func NewVerificationService(
	plantRepo *repository.PlantRepository,
	activityRepo *repository.ActivityRepository,
	verificationRepo *repository.VerificationRepository,
	ledgerService *LedgerService,
	streakService *StreakService,
	throttleService *ScanThrottleService,
	locationService *LocationService,
	fraudService *FraudService,
	publisher *event.RewardPublisher,
	rewardCfg config.RewardConfig,
) *VerificationService {
	return &VerificationService{
		plantRepo:        plantRepo,
		activityRepo:     activityRepo,
		verificationRepo: verificationRepo,
		ledgerService:    ledgerService,
		streakService:    streakService,
		throttleService:  throttleService,
		locationService:  locationService,
		fraudService:     fraudService,
		publisher:        publisher,
		rewardCfg:        rewardCfg,
	}
}

// AggregateOutcome is the merged verdict over all checks
type AggregateOutcome struct {
	Approved          bool
	Recommendation    models.Recommendation
	OverallConfidence float64
	PassedCritical    int
}

// Aggregate merges sub-verdicts. The conservative override runs first: any
// reject wins, then any manual_review, then approve. Approval additionally
// requires the critical-check quorum; the averaged confidence is reported
// but never decides anything.
func Aggregate(checks []models.VerificationCheck) AggregateOutcome {
	recommendation := models.RecommendApprove
	passedCritical := 0
	confidenceSum := 0.0

	critical := make(map[string]bool, len(models.CriticalChecks))
	for _, name := range models.CriticalChecks {
		critical[name] = true
	}

	for _, check := range checks {
		confidenceSum += check.Confidence

		if critical[check.Name] && check.Passed {
			passedCritical++
		}

		switch check.Recommendation {
		case models.RecommendReject:
			recommendation = models.RecommendReject
		case models.RecommendManualReview:
			if recommendation != models.RecommendReject {
				recommendation = models.RecommendManualReview
			}
		}
	}

	overall := 0.0
	if len(checks) > 0 {
		overall = confidenceSum / float64(len(checks))
	}

	return AggregateOutcome{
		Approved:          passedCritical >= models.MinCriticalPasses && recommendation != models.RecommendReject,
		Recommendation:    recommendation,
		OverallConfidence: overall,
		PassedCritical:    passedCritical,
	}
}

// SubmissionResult reports one processed submission
type SubmissionResult struct {
	Activity       *models.Activity           `json:"activity,omitempty"`
	Watering       *models.WateringResult     `json:"watering,omitempty"`
	Verification   *models.VerificationRecord `json:"verification,omitempty"`
	PointsAwarded  int                        `json:"points_awarded"`
	Approved       bool                       `json:"approved"`
	Recommendation models.Recommendation      `json:"recommendation"`
	Duplicate      bool                       `json:"duplicate"`
}

func (s *VerificationService) basePoints(activityType models.ActivityType) int {
	switch activityType {
	case models.ActivityWatering:
		return s.rewardCfg.WateringPoints
	case models.ActivityHealthScan:
		return s.rewardCfg.HealthScanPoints
	default:
		return 0
	}
}

// ProcessSubmission verifies and rewards a watering or health scan.
//
// Order matters: the scan throttle decides before any verification work,
// and a location mismatch rejects before any points move. Everything the
// submission writes (scan record, streak, activity, ledger entries) commits
// or rolls back together; the verification record is persisted after the
// commit as an audit artifact.
func (s *VerificationService) ProcessSubmission(ctx context.Context, userID, plantID string, req models.SubmitActivityRequest) (*SubmissionResult, error) {
	if req.TransactionID == "" {
		return nil, fmt.Errorf("transaction_id is required: %w", models.ErrValidation)
	}
	if req.ActivityType != models.ActivityWatering && req.ActivityType != models.ActivityHealthScan {
		return nil, fmt.Errorf("unsupported activity type %s: %w", req.ActivityType, models.ErrValidation)
	}
	if err := utils.ValidateCoordinates(req.Latitude, req.Longitude); err != nil {
		return nil, fmt.Errorf("%s: %w", err, models.ErrValidation)
	}

	plant, err := s.plantRepo.GetByID(ctx, plantID)
	if err != nil {
		return nil, err
	}
	if plant.OwnerID != userID {
		return nil, fmt.Errorf("plant %s does not belong to user %s: %w", plantID, userID, models.ErrValidation)
	}

	now := time.Now()

	// Throttle before any downstream work; a rejected scan consumes nothing.
	if req.ActivityType == models.ActivityHealthScan {
		if err := s.throttleService.Check(ctx, plantID, now); err != nil {
			return nil, err
		}
	}

	run, err := s.runChecks(ctx, userID, plantID, req)
	if err != nil {
		return nil, err
	}
	checks := run.checks

	outcome := Aggregate(checks)

	if run.locationErr != nil {
		// Outside the reference radius: record the rejected verification
		// and surface the mismatch. No points move.
		s.persistVerification(ctx, userID, plantID, nil, checks, outcome)
		s.publishOutcome(ctx, userID, plantID, req.ActivityType, 0, outcome)
		return nil, run.locationErr
	}

	if !outcome.Approved {
		record := s.persistVerification(ctx, userID, plantID, nil, checks, outcome)
		s.publishOutcome(ctx, userID, plantID, req.ActivityType, 0, outcome)
		return &SubmissionResult{
			Verification:   record,
			PointsAwarded:  0,
			Approved:       false,
			Recommendation: outcome.Recommendation,
		}, nil
	}

	result, err := s.awardApproved(ctx, userID, plantID, req, now, outcome)
	if err != nil {
		return nil, err
	}

	record := s.persistVerification(ctx, userID, plantID, activityIDOf(result.Activity), checks, outcome)
	result.Verification = record

	if !result.Duplicate {
		s.publishOutcome(ctx, userID, plantID, req.ActivityType, result.PointsAwarded, outcome)
	}

	return result, nil
}

// checkRun carries the sub-verdicts for one submission. locationErr is
// non-nil when the fix falls outside the reference radius; the check list
// still carries the failed check so the aggregate reflects it.
type checkRun struct {
	checks      []models.VerificationCheck
	locationErr error
}

func (s *VerificationService) runChecks(ctx context.Context, userID, plantID string, req models.SubmitActivityRequest) (*checkRun, error) {
	var checks []models.VerificationCheck

	// Image authenticity and plant health arrive as narrow numeric results
	// from the external vision pipeline; absent values pass with reduced
	// confidence rather than blocking the submission.
	aiVerified := req.AIVerified == nil || *req.AIVerified
	aiConfidence := 0.8
	if req.AIConfidence != nil {
		aiConfidence = *req.AIConfidence
	}

	imageRec := models.RecommendApprove
	if !aiVerified {
		imageRec = models.RecommendReject
	}
	checks = append(checks, models.VerificationCheck{
		Name:           models.CheckImageAuthenticity,
		Passed:         aiVerified,
		Confidence:     aiConfidence,
		Recommendation: imageRec,
	})

	healthPassed := aiVerified && aiConfidence >= 0.5
	healthRec := models.RecommendApprove
	if !healthPassed {
		healthRec = models.RecommendManualReview
	}
	checks = append(checks, models.VerificationCheck{
		Name:           models.CheckPlantHealth,
		Passed:         healthPassed,
		Confidence:     aiConfidence,
		Recommendation: healthRec,
	})

	locationCheck, locationErr := s.locationService.Verify(ctx, plantID, req.Latitude, req.Longitude)
	if locationErr != nil && !errors.Is(locationErr, models.ErrLocationMismatch) {
		return nil, locationErr
	}

	consistency, err := s.locationService.CheckHistoricalConsistency(ctx, plantID, 20)
	if err != nil {
		return nil, err
	}

	locationPassed := locationCheck.Verified && consistency.RiskLevel != models.RiskHigh
	locationRec := models.RecommendApprove
	switch {
	case !locationCheck.Verified:
		locationRec = models.RecommendReject
	case consistency.RiskLevel == models.RiskHigh:
		locationRec = models.RecommendManualReview
	}
	checks = append(checks, models.VerificationCheck{
		Name:           models.CheckLocationConsistency,
		Passed:         locationPassed,
		Confidence:     locationConfidence(locationCheck),
		Recommendation: locationRec,
		Detail:         fmt.Sprintf("%.1fm from reference, %s historical risk", locationCheck.DistanceMeters, consistency.RiskLevel),
	})

	assessment, err := s.fraudService.AssessClaim(ctx, userID, s.basePoints(req.ActivityType))
	if err != nil {
		return nil, err
	}
	checks = append(checks, models.VerificationCheck{
		Name:           models.CheckFraudRisk,
		Passed:         assessment.Recommendation == models.RecommendApprove,
		Confidence:     assessment.Confidence,
		Recommendation: assessment.Recommendation,
	})

	return &checkRun{checks: checks, locationErr: locationErr}, nil
}

func locationConfidence(check *models.LocationCheck) float64 {
	if check.Verified {
		return 1.0
	}
	// Confidence decays with distance beyond the radius.
	if check.DistanceMeters <= 0 {
		return 0
	}
	c := check.RadiusMeters / check.DistanceMeters
	if c > 1 {
		c = 1
	}
	return c
}

// awardApproved writes everything an approved submission changes in one
// transaction: scan record or streak advance, activity row, base ledger
// entry and any milestone bonus.
func (s *VerificationService) awardApproved(ctx context.Context, userID, plantID string, req models.SubmitActivityRequest, now time.Time, outcome AggregateOutcome) (*SubmissionResult, error) {
	tx, err := s.ledgerService.ledgerRepo.BeginTransaction()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	result := &SubmissionResult{
		Approved:       true,
		Recommendation: outcome.Recommendation,
	}
	basePoints := s.basePoints(req.ActivityType)

	var watering *models.WateringResult
	if req.ActivityType == models.ActivityWatering {
		watering, err = s.streakService.RecordWateringTx(tx, plantID, now)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		result.Watering = watering

		if watering.Duplicate {
			// Same-day rewatering is a benign no-op: nothing was changed,
			// nothing is awarded.
			tx.Rollback()
			result.Duplicate = true
			return result, nil
		}
	} else {
		if _, err := s.throttleService.AdmitTx(tx, plantID, now); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	activity := &models.Activity{
		ID:                 uuid.NewString(),
		PlantID:            plantID,
		UserID:             userID,
		ActivityType:       req.ActivityType,
		Description:        req.Description,
		EvidenceURL:        req.EvidenceURL,
		Latitude:           &req.Latitude,
		Longitude:          &req.Longitude,
		VerificationStatus: models.VerificationVerified,
		AIConfidence:       req.AIConfidence,
		PointsEarned:       basePoints,
	}

	entry := &models.PointsTransaction{
		TransactionID:   req.TransactionID,
		UserID:          userID,
		PlantID:         &plantID,
		ActivityID:      &activity.ID,
		TransactionType: transactionTypeOf(req.ActivityType),
		Points:          basePoints,
	}

	if _, err := s.ledgerService.AppendTransactionTx(tx, entry); err != nil {
		tx.Rollback()
		if errors.Is(err, models.ErrAlreadyProcessed) {
			// Replayed transaction id: the submission was already rewarded.
			slog.Info("Replayed submission", "transaction_id", req.TransactionID, "user_id", userID)
			result.Duplicate = true
			result.PointsAwarded = 0
			result.Watering = nil
			return result, nil
		}
		return nil, err
	}

	totalPoints := basePoints
	if watering != nil && watering.BonusPoints > 0 {
		bonusDescription := fmt.Sprintf("Day %d streak milestone", watering.CurrentStreak)
		bonusEntry := &models.PointsTransaction{
			TransactionID:   req.TransactionID + ":bonus",
			UserID:          userID,
			PlantID:         &plantID,
			ActivityID:      &activity.ID,
			TransactionType: models.TxStreakBonus,
			Points:          watering.BonusPoints,
			Description:     &bonusDescription,
		}
		if _, err := s.ledgerService.AppendTransactionTx(tx, bonusEntry); err != nil {
			tx.Rollback()
			return nil, err
		}
		totalPoints += watering.BonusPoints
		activity.PointsEarned = totalPoints
	}

	if err := s.activityRepo.CreateTx(tx, activity); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit submission: %w", err)
	}

	result.Activity = activity
	result.PointsAwarded = totalPoints
	return result, nil
}

func transactionTypeOf(activityType models.ActivityType) models.TransactionType {
	switch activityType {
	case models.ActivityWatering:
		return models.TxWatering
	case models.ActivityHealthScan:
		return models.TxHealthScan
	case models.ActivityPlantingPhoto:
		return models.TxPlantingPhoto
	default:
		return models.TxRegistration
	}
}

func activityIDOf(activity *models.Activity) *string {
	if activity == nil {
		return nil
	}
	return &activity.ID
}

// persistVerification stores the audit record for a processed submission.
// Failures here are logged, not surfaced: the reward outcome already
// committed and must not be lost to an audit write.
func (s *VerificationService) persistVerification(ctx context.Context, userID, plantID string, activityID *string, checks []models.VerificationCheck, outcome AggregateOutcome) *models.VerificationRecord {
	checksDoc := utils.JSONMap{}
	for _, check := range checks {
		checksDoc[check.Name] = map[string]any{
			"passed":         check.Passed,
			"confidence":     check.Confidence,
			"recommendation": check.Recommendation,
			"detail":         check.Detail,
		}
	}

	status := models.VerificationRejected
	switch outcome.Recommendation {
	case models.RecommendApprove:
		status = models.VerificationVerified
	case models.RecommendManualReview:
		status = models.VerificationManual
	}

	record := &models.VerificationRecord{
		ID:                uuid.New(),
		PlantID:           plantID,
		UserID:            userID,
		ActivityID:        activityID,
		Status:            status,
		Approved:          outcome.Approved,
		Recommendation:    outcome.Recommendation,
		OverallConfidence: outcome.OverallConfidence,
		Checks:            checksDoc,
	}

	if err := s.verificationRepo.Create(ctx, record); err != nil {
		slog.Error("Failed to persist verification record",
			"plant_id", plantID,
			"user_id", userID,
			"error", err)
	}

	return record
}

func (s *VerificationService) publishOutcome(ctx context.Context, userID, plantID string, activityType models.ActivityType, points int, outcome AggregateOutcome) {
	eventType := EventTypeFor(outcome)

	err := s.publisher.Publish(ctx, event.RewardEvent{
		EventType:      eventType,
		UserID:         userID,
		PlantID:        plantID,
		ActivityType:   activityType,
		PointsAwarded:  points,
		Approved:       outcome.Approved,
		Recommendation: outcome.Recommendation,
		OccurredAt:     time.Now(),
	})
	if err != nil {
		slog.Error("Failed to publish reward event", "plant_id", plantID, "error", err)
	}
}

// EventTypeFor maps an aggregate outcome to its event name
func EventTypeFor(outcome AggregateOutcome) string {
	switch {
	case outcome.Approved:
		return event.EventRewardGranted
	case outcome.Recommendation == models.RecommendReject:
		return event.EventVerificationRejected
	default:
		return event.EventManualReviewNeeded
	}
}

// GetVerificationState answers whether points may currently be minted for
// a plant, from the latest verification verdict.
func (s *VerificationService) GetVerificationState(ctx context.Context, plantID string) (*models.VerificationState, error) {
	return s.verificationRepo.GetState(ctx, plantID)
}

// ListVerifications returns a plant's verification records newest first
func (s *VerificationService) ListVerifications(ctx context.Context, plantID string, limit int) ([]models.VerificationRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.verificationRepo.ListByPlantID(ctx, plantID, limit)
}
