package models

import "time"

// User is a reward program participant. Accounts are created implicitly on
// the first plant registration.
type User struct {
	ID          string     `db:"id" json:"id"`
	Name        *string    `db:"name" json:"name,omitempty"`
	Email       *string    `db:"email" json:"email,omitempty"`
	Phone       *string    `db:"phone" json:"phone,omitempty"`
	Location    *string    `db:"location" json:"location,omitempty"`
	TotalPoints int64      `db:"total_points" json:"total_points"`
	TotalCoins  int64      `db:"total_coins" json:"total_coins"`
	Status      UserStatus `db:"status" json:"status"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}
