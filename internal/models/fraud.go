package models

// FraudAssessInput carries the behavioral signals the risk scorer reads.
// All fields are plain numbers so the scorer stays deterministic and
// side-effect free.
type FraudAssessInput struct {
	UserID               string  `json:"user_id"`
	ClaimedPoints        int     `json:"claimed_points"`
	AvgPointsPerDay      float64 `json:"avg_points_per_day"`
	VerificationsLast24h int     `json:"verifications_last_24h"`
	SuccessRatePercent   float64 `json:"success_rate_percent"`
	HasHistory           bool    `json:"has_history"`
}

// FraudAssessment is the scorer's deterministic verdict
type FraudAssessment struct {
	Confidence     float64        `json:"confidence"`
	RiskLevel      RiskLevel      `json:"risk_level"`
	Recommendation Recommendation `json:"recommendation"`
	Reasons        []string       `json:"reasons,omitempty"`
}
