package models

import (
	"time"

	"github.com/google/uuid"
)

// PointsTransaction is an append-only points ledger entry. TransactionID is
// the caller-supplied idempotency key; replays return the stored entry.
type PointsTransaction struct {
	ID              int64           `db:"id" json:"-"`
	TransactionID   string          `db:"transaction_id" json:"transaction_id"`
	UserID          string          `db:"user_id" json:"user_id"`
	PlantID         *string         `db:"plant_id" json:"plant_id,omitempty"`
	ActivityID      *string         `db:"activity_id" json:"activity_id,omitempty"`
	TransactionType TransactionType `db:"transaction_type" json:"transaction_type"`
	Points          int             `db:"points" json:"points"`
	Description     *string         `db:"description" json:"description,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// CoinTransaction is an entry in the coins ledger, written alongside the
// negative points entry during a conversion.
type CoinTransaction struct {
	ID              int64           `db:"id" json:"-"`
	TransactionID   string          `db:"transaction_id" json:"transaction_id"`
	UserID          string          `db:"user_id" json:"user_id"`
	TransactionType TransactionType `db:"transaction_type" json:"transaction_type"`
	Coins           int             `db:"coins" json:"coins"`
	Description     *string         `db:"description" json:"description,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// Streak is the per-plant daily watering state. LastWateredDate is a civil
// date; comparisons in the engine are date-only.
type Streak struct {
	PlantID           string     `db:"plant_id" json:"plant_id"`
	CurrentStreak     int        `db:"current_streak" json:"current_streak"`
	LongestStreak     int        `db:"longest_streak" json:"longest_streak"`
	LastWateredDate   *time.Time `db:"last_watered_date" json:"last_watered_date,omitempty"`
	TotalWaterings    int        `db:"total_waterings" json:"total_waterings"`
	StreakBonusPoints int        `db:"streak_bonus_points" json:"streak_bonus_points"`
}

// WateringResult reports the outcome of one watering submission
type WateringResult struct {
	PlantID        string `json:"plant_id"`
	CurrentStreak  int    `json:"current_streak"`
	LongestStreak  int    `json:"longest_streak"`
	TotalWaterings int    `json:"total_waterings"`
	BonusPoints    int    `json:"bonus_points"`
	Duplicate      bool   `json:"duplicate"`
}

// ScanRecord is one admitted health scan, used by the throttle window
type ScanRecord struct {
	ID            uuid.UUID `db:"id" json:"id"`
	PlantID       string    `db:"plant_id" json:"plant_id"`
	ScanTimestamp time.Time `db:"scan_timestamp" json:"scan_timestamp"`
}

// Activity is one accepted reward-earning submission
type Activity struct {
	ID                 string             `db:"id" json:"id"`
	PlantID            string             `db:"plant_id" json:"plant_id"`
	UserID             string             `db:"user_id" json:"user_id"`
	ActivityType       ActivityType       `db:"activity_type" json:"activity_type"`
	Description        *string            `db:"description" json:"description,omitempty"`
	EvidenceURL        *string            `db:"evidence_url" json:"evidence_url,omitempty"`
	Latitude           *float64           `db:"latitude" json:"latitude,omitempty"`
	Longitude          *float64           `db:"longitude" json:"longitude,omitempty"`
	VerificationStatus VerificationStatus `db:"verification_status" json:"verification_status"`
	AIConfidence       *float64           `db:"ai_confidence" json:"ai_confidence,omitempty"`
	PointsEarned       int                `db:"points_earned" json:"points_earned"`
	CreatedAt          time.Time          `db:"created_at" json:"created_at"`
}

// Balance is a user's aggregate standing
type Balance struct {
	UserID      string `json:"user_id"`
	TotalPoints int64  `json:"total_points"`
	TotalCoins  int64  `json:"total_coins"`
}

// ConversionResult reports a completed points-to-coins conversion.
// Duplicate marks a replayed transaction id; the stored outcome is
// returned and nothing new is written.
type ConversionResult struct {
	UserID          string `json:"user_id"`
	PointsConverted int    `json:"points_converted"`
	CoinsCredited   int    `json:"coins_credited"`
	RemainingPoints int64  `json:"remaining_points"`
	Duplicate       bool   `json:"duplicate"`
}
