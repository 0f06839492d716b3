package models

import (
	"time"

	"github.com/google/uuid"

	"reward-service/internal/utils"
)

// Critical check names tracked by the aggregator. A submission is approved
// only when at least MinCriticalPasses of these pass and no check forces a
// reject.
const (
	CheckImageAuthenticity   = "image_authenticity"
	CheckPlantHealth         = "plant_health"
	CheckLocationConsistency = "location_consistency"
	CheckFraudRisk           = "fraud_risk"

	MinCriticalPasses = 3
)

// CriticalChecks lists the check names that count toward the quorum
var CriticalChecks = []string{
	CheckImageAuthenticity,
	CheckPlantHealth,
	CheckLocationConsistency,
	CheckFraudRisk,
}

// VerificationCheck is a single sub-verdict folded into the aggregate
type VerificationCheck struct {
	Name           string         `json:"name"`
	Passed         bool           `json:"passed"`
	Confidence     float64        `json:"confidence"`
	Recommendation Recommendation `json:"recommendation"`
	Detail         string         `json:"detail,omitempty"`
}

// VerificationRecord is the persisted aggregate for one submission. Checks
// are stored as a JSONB document keyed by check name.
type VerificationRecord struct {
	ID                uuid.UUID          `db:"id" json:"id"`
	PlantID           string             `db:"plant_id" json:"plant_id"`
	UserID            string             `db:"user_id" json:"user_id"`
	ActivityID        *string            `db:"activity_id" json:"activity_id,omitempty"`
	Status            VerificationStatus `db:"status" json:"status"`
	Approved          bool               `db:"approved" json:"approved"`
	Recommendation    Recommendation     `db:"recommendation" json:"recommendation"`
	OverallConfidence float64            `db:"overall_confidence" json:"overall_confidence"`
	Checks            utils.JSONMap      `db:"checks" json:"checks,omitempty"`
	CreatedAt         time.Time          `db:"created_at" json:"created_at"`
}

// VerificationState is the external answer for "may points be minted for
// this plant": the latest verification verdict.
type VerificationState struct {
	PlantID           string         `json:"plant_id"`
	Approved          bool           `json:"approved"`
	Recommendation    Recommendation `json:"recommendation"`
	OverallConfidence float64        `json:"overall_confidence"`
	VerifiedAt        *time.Time     `json:"verified_at,omitempty"`
}
