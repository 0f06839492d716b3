package models

import "time"

// Plant is a registered plant tracked by the reward program
type Plant struct {
	ID                string      `db:"id" json:"id"`
	OwnerID           string      `db:"owner_id" json:"owner_id"`
	PlantType         string      `db:"plant_type" json:"plant_type"`
	PlantSpecies      *string     `db:"plant_species" json:"plant_species,omitempty"`
	LocationLabel     *string     `db:"location_label" json:"location_label,omitempty"`
	Latitude          float64     `db:"latitude" json:"latitude"`
	Longitude         float64     `db:"longitude" json:"longitude"`
	Status            PlantStatus `db:"status" json:"status"`
	HealthScore       int         `db:"health_score" json:"health_score"`
	TotalPointsEarned int64       `db:"total_points_earned" json:"total_points_earned"`
	PlantedAt         time.Time   `db:"planted_at" json:"planted_at"`
	CreatedAt         time.Time   `db:"created_at" json:"created_at"`
}

// ProgramStats summarizes the reward program as a whole
type ProgramStats struct {
	ActiveUsers       int64   `json:"active_users"`
	ActivePlants      int64   `json:"active_plants"`
	TotalPointsIssued int64   `json:"total_points_issued"`
	TotalWaterings    int64   `json:"total_waterings"`
	EstimatedCO2KG    float64 `json:"estimated_co2_offset_kg"`
}
