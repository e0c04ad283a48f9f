package domain

import "time"

// Observation is one near-Earth object as reported by the feed or read back
// from the object store.
type Observation struct {
	NeoID        string  `json:"neo_id"`
	Name         string  `json:"name"`
	ApproachDate string  `json:"close_approach_date"` // calendar date, YYYY-MM-DD
	DiameterKM   float64 `json:"diameter_km"`
	VelocityKMS  float64 `json:"velocity_km_s"`
	Hazardous    bool    `json:"hazardous"`
	NASAURL      string  `json:"nasa_url,omitempty"`

	// MissDistanceKM is a property of a single approach, not of the object.
	// It is populated on feed-sourced observations and zero on store-sourced
	// ones: the stored schema does not retain it.
	MissDistanceKM float64 `json:"miss_distance_km,omitempty"`
}

// RiskRecord is the persisted result of classifying one observation at one
// point in time. Records are immutable; re-running classification appends
// new records rather than mutating history.
type RiskRecord struct {
	NeoID        string    `json:"neo_id"`
	Name         string    `json:"name"`
	ApproachDate string    `json:"close_approach_date"`
	DiameterKM   float64   `json:"diameter_km"`
	VelocityKMS  float64   `json:"velocity_km_s"`
	Hazardous    bool      `json:"hazardous"`
	Score        float64   `json:"risk_score"`
	Tier         RiskTier  `json:"risk_level"`
	ClassifiedAt time.Time `json:"classified_at"`
}

// ApproachRisk is the ephemeral result of classifying a live feed approach
// with its true miss distance. It is returned to callers and never persisted.
type ApproachRisk struct {
	NeoID          string   `json:"neo_id"`
	Name           string   `json:"name"`
	Score          float64  `json:"risk_score"`
	Tier           RiskTier `json:"risk_level"`
	DiameterKM     float64  `json:"diameter_km"`
	VelocityKMS    float64  `json:"velocity_km_s"`
	MissDistanceKM float64  `json:"miss_distance_km"`
}
