package models

// ActivityType identifies a reward-earning submission
type ActivityType string

const (
	ActivityPlantRegistration ActivityType = "plant_registration"
	ActivityPlantingPhoto     ActivityType = "planting_photo"
	ActivityWatering          ActivityType = "watering"
	ActivityHealthScan        ActivityType = "health_scan"
)

// TransactionType identifies a points ledger entry
type TransactionType string

const (
	TxRegistration   TransactionType = "registration"
	TxPlantingPhoto  TransactionType = "planting_photo"
	TxWatering       TransactionType = "watering"
	TxStreakBonus    TransactionType = "streak_bonus"
	TxHealthScan     TransactionType = "health_scan"
	TxCoinConversion TransactionType = "coin_conversion"
)

// VerificationStatus is the lifecycle state of a submission's verification
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
	VerificationManual   VerificationStatus = "manual_review"
)

// Recommendation is the verdict a validation check or aggregate can produce
type Recommendation string

const (
	RecommendApprove      Recommendation = "approve"
	RecommendManualReview Recommendation = "manual_review"
	RecommendReject       Recommendation = "reject"
)

// RiskLevel grades historical location consistency
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// UserStatus represents the account state
type UserStatus string

const (
	UserActive    UserStatus = "active"
	UserSuspended UserStatus = "suspended"
)

// PlantStatus represents the plant lifecycle state
type PlantStatus string

const (
	PlantActive   PlantStatus = "active"
	PlantInactive PlantStatus = "inactive"
)

// IsValidActivityType checks if an activity type is one of the known kinds
func IsValidActivityType(t ActivityType) bool {
	switch t {
	case ActivityPlantRegistration, ActivityPlantingPhoto, ActivityWatering, ActivityHealthScan:
		return true
	default:
		return false
	}
}

// IsValidRecommendation checks if a recommendation value is known
func IsValidRecommendation(r Recommendation) bool {
	switch r {
	case RecommendApprove, RecommendManualReview, RecommendReject:
		return true
	default:
		return false
	}
}
