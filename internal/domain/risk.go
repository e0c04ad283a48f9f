package domain

import "math"

// RiskTier is one of four ordered risk levels derived from a score.
type RiskTier string

const (
	TierLow      RiskTier = "LOW"
	TierModerate RiskTier = "MODERATE"
	TierHigh     RiskTier = "HIGH"
	TierCritical RiskTier = "CRITICAL"
)

// DefaultMissDistanceKM is the substitute miss distance used when classifying
// store-sourced objects, whose schema does not retain the per-approach value.
// Callers must pass it rather than omit the term: stored records were scored
// with it, and results must stay comparable.
const DefaultMissDistanceKM = 1_000_000

// Rank orders tiers LOW < MODERATE < HIGH < CRITICAL. Unknown tiers rank
// below LOW.
func (t RiskTier) Rank() int {
	switch t {
	case TierLow:
		return 1
	case TierModerate:
		return 2
	case TierHigh:
		return 3
	case TierCritical:
		return 4
	default:
		return 0
	}
}

// ClassifyRisk computes the risk score and tier for one approach.
//
// It is total: any finite numeric input produces a score, and negative or
// zero inputs simply yield a lower (possibly negative) score. The score is
// rounded to two decimals before tier bucketing, so a raw 79.995 classifies
// as CRITICAL.
func ClassifyRisk(diameterKM, velocityKMS, missDistanceKM float64, hazardous bool) (float64, RiskTier) {
	score := diameterKM*40 + velocityKMS*2 - missDistanceKM/1_000_000
	if hazardous {
		score += 30
	}
	score = math.Round(score*100) / 100

	switch {
	case score >= 80:
		return score, TierCritical
	case score >= 50:
		return score, TierHigh
	case score >= 30:
		return score, TierModerate
	default:
		return score, TierLow
	}
}

// NewRiskRecord classifies a store-sourced observation with the default miss
// distance approximation and stamps the classification time.
func NewRiskRecord(obs Observation) RiskRecord {
	score, tier := ClassifyRisk(obs.DiameterKM, obs.VelocityKMS, DefaultMissDistanceKM, obs.Hazardous)
	return RiskRecord{
		NeoID:        obs.NeoID,
		Name:         obs.Name,
		ApproachDate: obs.ApproachDate,
		DiameterKM:   obs.DiameterKM,
		VelocityKMS:  obs.VelocityKMS,
		Hazardous:    obs.Hazardous,
		Score:        score,
		Tier:         tier,
		ClassifiedAt: clock.Now().UTC(),
	}
}

// ClassifyApproach classifies a feed-sourced observation with its true miss
// distance, rounding the reported physical parameters the way the public
// by-date view presents them.
func ClassifyApproach(obs Observation) ApproachRisk {
	score, tier := ClassifyRisk(obs.DiameterKM, obs.VelocityKMS, obs.MissDistanceKM, obs.Hazardous)
	return ApproachRisk{
		NeoID:          obs.NeoID,
		Name:           obs.Name,
		Score:          score,
		Tier:           tier,
		DiameterKM:     roundTo(obs.DiameterKM, 4),
		VelocityKMS:    roundTo(obs.VelocityKMS, 4),
		MissDistanceKM: roundTo(obs.MissDistanceKM, 2),
	}
}

func roundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
