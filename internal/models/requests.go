package models

// RegisterPlantRequest registers a new plant (and implicitly its owner)
type RegisterPlantRequest struct {
	PlantType     string  `json:"plant_type"`
	PlantSpecies  *string `json:"plant_species,omitempty"`
	LocationLabel *string `json:"location_label,omitempty"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	UserName      *string `json:"user_name,omitempty"`
	UserEmail     *string `json:"user_email,omitempty"`
	UserPhone     *string `json:"user_phone,omitempty"`
}

// PlantingPhotoRequest confirms a plant with its first photo. The photo
// itself arrives as multipart form data; these fields ride alongside it.
type PlantingPhotoRequest struct {
	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
	RadiusMeters *float64 `json:"radius_meters,omitempty"`
}

// SubmitActivityRequest covers watering and health scan submissions. The
// AI fields are the narrow numeric results of the external vision check.
type SubmitActivityRequest struct {
	TransactionID string       `json:"transaction_id"`
	ActivityType  ActivityType `json:"activity_type"`
	Latitude      float64      `json:"latitude"`
	Longitude     float64      `json:"longitude"`
	EvidenceURL   *string      `json:"evidence_url,omitempty"`
	AIVerified    *bool        `json:"ai_verified,omitempty"`
	AIConfidence  *float64     `json:"ai_confidence,omitempty"`
	AIMultiplier  *float64     `json:"ai_multiplier,omitempty"`
	Description   *string      `json:"description,omitempty"`
}

// ConvertPointsRequest converts points to coins at the program rate
type ConvertPointsRequest struct {
	TransactionID string `json:"transaction_id"`
	Points        int    `json:"points"`
}
