package models

import "time"

// LocationProfile is the immutable per-plant reference location, created
// when the planting photo is confirmed. ReferencePoint is stored as a
// PostGIS GEOGRAPHY(Point, 4326) column.
type LocationProfile struct {
	PlantID        string       `db:"plant_id" json:"plant_id"`
	ReferencePoint GeoJSONPoint `db:"reference_point" json:"reference_point"`
	RadiusMeters   float64      `db:"radius_meters" json:"radius_meters"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
}

// Latitude returns the profile's reference latitude
func (p *LocationProfile) Latitude() float64 {
	if len(p.ReferencePoint.Coordinates) < 2 {
		return 0
	}
	return p.ReferencePoint.Coordinates[1]
}

// Longitude returns the profile's reference longitude
func (p *LocationProfile) Longitude() float64 {
	if len(p.ReferencePoint.Coordinates) < 2 {
		return 0
	}
	return p.ReferencePoint.Coordinates[0]
}

// LocationCheck is the outcome of verifying one GPS fix against a profile
type LocationCheck struct {
	Verified       bool    `json:"verified"`
	DistanceMeters float64 `json:"distance_meters"`
	RadiusMeters   float64 `json:"radius_meters"`
}

// InconsistentPair flags one consecutive-fix jump beyond the allowed
// radius. Index is the position of the later fix in the examined trail.
type InconsistentPair struct {
	Index          int     `json:"index"`
	DistanceMeters float64 `json:"distance_meters"`
}

// ConsistencyReport grades a plant's GPS history. Distances are measured
// between each consecutive pair of fixes, not against the reference point.
type ConsistencyReport struct {
	PlantID           string             `json:"plant_id"`
	Consistent        bool               `json:"consistent"`
	FixesExamined     int                `json:"fixes_examined"`
	AvgDistanceMeters float64            `json:"avg_distance_meters"`
	MaxDistanceMeters float64            `json:"max_distance_meters"`
	Inconsistencies   []InconsistentPair `json:"inconsistencies"`
	RiskLevel         RiskLevel          `json:"risk_level"`
}

// GPSFix is a recorded coordinate pair in submission order
type GPSFix struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
