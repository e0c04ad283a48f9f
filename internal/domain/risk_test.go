package domain_test

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perihelion-labs/neo-watch/internal/domain"
)

func TestClassifyRisk_WorkedExample(t *testing.T) {
	score, tier := domain.ClassifyRisk(0.5, 20, 1_000_000, true)
	assert.Equal(t, 89.0, score) // 0.5*40 + 20*2 - 1 + 30
	assert.Equal(t, domain.TierCritical, tier)
}

func TestClassifyRisk_HazardAddsThirty(t *testing.T) {
	cases := []struct {
		diameter, velocity, miss float64
	}{
		{0, 0, 0},
		{0.5, 20, 1_000_000},
		{2.1, 33.3, 42_000},
		{0.01, 1.5, 70_000_000},
	}
	for _, tc := range cases {
		safe, _ := domain.ClassifyRisk(tc.diameter, tc.velocity, tc.miss, false)
		hazardous, _ := domain.ClassifyRisk(tc.diameter, tc.velocity, tc.miss, true)
		assert.InDelta(t, 30.0, hazardous-safe, 1e-9,
			"d=%v v=%v m=%v", tc.diameter, tc.velocity, tc.miss)
	}
}

// Boundary exactness: tier assignment flips exactly at 80.00, 50.00, 30.00.
// Velocity is score/2, so velocity inputs below land on exact hundredths.
func TestClassifyRisk_TierBoundaries(t *testing.T) {
	cases := []struct {
		velocity float64
		score    float64
		tier     domain.RiskTier
	}{
		{40.0, 80.00, domain.TierCritical},
		{39.995, 79.99, domain.TierHigh},
		{25.0, 50.00, domain.TierHigh},
		{24.995, 49.99, domain.TierModerate},
		{15.0, 30.00, domain.TierModerate},
		{14.995, 29.99, domain.TierLow},
	}
	for _, tc := range cases {
		score, tier := domain.ClassifyRisk(0, tc.velocity, 0, false)
		assert.Equal(t, tc.score, score)
		assert.Equal(t, tc.tier, tier, "score %v", tc.score)
	}
}

func TestClassifyRisk_TierMonotonicInScore(t *testing.T) {
	prevRank := 0
	// Sweep velocity so the score rises from negative through CRITICAL.
	for v := -10.0; v <= 50; v += 0.25 {
		_, tier := domain.ClassifyRisk(0, v, 0, false)
		require.GreaterOrEqual(t, tier.Rank(), prevRank, "velocity %v", v)
		prevRank = tier.Rank()
	}
	assert.Equal(t, domain.TierCritical.Rank(), prevRank)
}

func TestClassifyRisk_TotalOnNegativeInputs(t *testing.T) {
	score, tier := domain.ClassifyRisk(-1, -5, 2_000_000, false)
	assert.Equal(t, -52.0, score)
	assert.Equal(t, domain.TierLow, tier)
}

func TestTierRank_Ordering(t *testing.T) {
	assert.Less(t, domain.TierLow.Rank(), domain.TierModerate.Rank())
	assert.Less(t, domain.TierModerate.Rank(), domain.TierHigh.Rank())
	assert.Less(t, domain.TierHigh.Rank(), domain.TierCritical.Rank())
	assert.Zero(t, domain.RiskTier("bogus").Rank())
}

func TestNewRiskRecord_UsesDefaultMissDistance(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2025, time.March, 14, 9, 26, 0, 0, time.UTC))
	domain.SetClock(fakeClock)
	t.Cleanup(func() { domain.SetClock(nil) })

	rec := domain.NewRiskRecord(domain.Observation{
		NeoID:        "3542519",
		Name:         "(2010 PK9)",
		ApproachDate: "2025-03-14",
		DiameterKM:   0.5,
		VelocityKMS:  20,
		Hazardous:    true,
	})

	// Same score as the worked example: miss distance defaults to 1,000,000 km.
	assert.Equal(t, 89.0, rec.Score)
	assert.Equal(t, domain.TierCritical, rec.Tier)
	assert.Equal(t, "3542519", rec.NeoID)
	assert.Equal(t, fakeClock.Now().UTC(), rec.ClassifiedAt)
}

func TestClassifyApproach_UsesTrueMissDistanceAndRounds(t *testing.T) {
	view := domain.ClassifyApproach(domain.Observation{
		NeoID:          "2099942",
		Name:           "99942 Apophis",
		DiameterKM:     0.61234567,
		VelocityKMS:    7.42001234,
		MissDistanceKM: 31_664.123456,
		Hazardous:      true,
	})

	// 0.61234567*40 + 7.42001234*2 - 0.031664123456 + 30 = 69.30
	assert.Equal(t, 69.3, view.Score)
	assert.Equal(t, domain.TierHigh, view.Tier)
	assert.Equal(t, 0.6123, view.DiameterKM)
	assert.Equal(t, 7.42, view.VelocityKMS)
	assert.Equal(t, 31664.12, view.MissDistanceKM)
}
