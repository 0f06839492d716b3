package services

import (
	"context"
	"fmt"
	"log/slog"
	"reward-service/internal/models"
	"reward-service/internal/repository"
	"time"

	"github.com/jmoiron/sqlx"
)

// Milestone bonuses awarded when a streak lands exactly on a milestone day.
// A streak that skips past a milestone (reset and rebuilt) earns nothing
// for it; only exact equality pays.
var streakMilestones = map[int]int{
	7:   10,
	30:  50,
	100: 200,
}

type StreakService struct {
	streakRepo *repository.StreakRepository
}

func NewStreakService(streakRepo *repository.StreakRepository) *StreakService {
	return &StreakService{streakRepo: streakRepo}
}

// sameDay compares two timestamps as civil dates in UTC
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// isNextDay reports whether b falls on the civil day immediately after a
func isNextDay(a, b time.Time) bool {
	next := a.UTC().AddDate(0, 0, 1)
	return sameDay(next, b)
}

// MilestoneBonus returns the bonus for landing exactly on a milestone day
func MilestoneBonus(streak int) int {
	return streakMilestones[streak]
}

// RecordWateringTx advances the streak state machine for one watering.
// The caller owns the transaction; the streak row is locked for its
// duration so concurrent submissions for the same plant serialize.
//
// Rules, relative to the last watered date:
//   - never watered: streak starts at 1
//   - same day: benign no-op, nothing changes
//   - next day: streak increments
//   - gap of 2+ days: streak resets to 1
//
// longest_streak ratchets up, total_waterings counts every distinct day,
// and a milestone bonus is returned only when the new streak equals a
// milestone exactly.
func (s *StreakService) RecordWateringTx(tx *sqlx.Tx, plantID string, now time.Time) (*models.WateringResult, error) {
	streak, err := s.streakRepo.GetForUpdateTx(tx, plantID)
	if err != nil {
		return nil, err
	}

	if streak.LastWateredDate != nil && sameDay(*streak.LastWateredDate, now) {
		slog.Debug("Duplicate same-day watering", "plant_id", plantID)
		return &models.WateringResult{
			PlantID:        plantID,
			CurrentStreak:  streak.CurrentStreak,
			LongestStreak:  streak.LongestStreak,
			TotalWaterings: streak.TotalWaterings,
			BonusPoints:    0,
			Duplicate:      true,
		}, nil
	}

	switch {
	case streak.LastWateredDate == nil:
		streak.CurrentStreak = 1
	case isNextDay(*streak.LastWateredDate, now):
		streak.CurrentStreak++
	default:
		streak.CurrentStreak = 1
	}

	if streak.CurrentStreak > streak.LongestStreak {
		streak.LongestStreak = streak.CurrentStreak
	}
	streak.TotalWaterings++

	wateredDate := now.UTC().Truncate(24 * time.Hour)
	streak.LastWateredDate = &wateredDate

	bonus := MilestoneBonus(streak.CurrentStreak)
	if bonus > 0 {
		streak.StreakBonusPoints += bonus
		slog.Info("Streak milestone reached",
			"plant_id", plantID,
			"streak", streak.CurrentStreak,
			"bonus", bonus)
	}

	if err := s.streakRepo.UpdateTx(tx, streak); err != nil {
		return nil, fmt.Errorf("failed to persist streak: %w", err)
	}

	return &models.WateringResult{
		PlantID:        plantID,
		CurrentStreak:  streak.CurrentStreak,
		LongestStreak:  streak.LongestStreak,
		TotalWaterings: streak.TotalWaterings,
		BonusPoints:    bonus,
		Duplicate:      false,
	}, nil
}

// GetStreak returns a plant's current streak state
func (s *StreakService) GetStreak(ctx context.Context, plantID string) (*models.Streak, error) {
	return s.streakRepo.GetByPlantID(ctx, plantID)
}

// NextDayNumber reports which streak day the next watering would be,
// without changing any state. Only a watering recorded yesterday continues
// the streak; every other case, including a plant already watered today,
// answers day 1.
func (s *StreakService) NextDayNumber(ctx context.Context, plantID string, now time.Time) (int, error) {
	streak, err := s.streakRepo.GetByPlantID(ctx, plantID)
	if err != nil {
		return 0, err
	}

	if streak.LastWateredDate != nil && isNextDay(*streak.LastWateredDate, now) {
		return streak.CurrentStreak + 1, nil
	}
	return 1, nil
}
