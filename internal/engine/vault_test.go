package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScarcityMultiplierScenario(t *testing.T) {
	v := VaultSettings{TotalSharesIssued: 1000, SharesInCirculation: 300, DemandPressure: 80, SupplyConstraint: 50}
	assert.InDelta(t, 1.95, ScarcityMultiplier(v), 1e-9)
}

func TestScarcityMultiplierBounds(t *testing.T) {
	for _, circ := range []int64{0, 1, 250, 499, 500, 1000} {
		for _, demand := range []float64{-500, 0, 50, 100, 1000} {
			for _, supply := range []float64{-100, 0, 100, 900} {
				v := VaultSettings{TotalSharesIssued: 1000, SharesInCirculation: circ, DemandPressure: demand, SupplyConstraint: supply}
				got := ScarcityMultiplier(v)
				if got < 1.0 || got > 5.0 {
					t.Fatalf("multiplier %v out of bounds for %+v", got, v)
				}
			}
		}
	}
	assert.Equal(t, 1.0, ScarcityMultiplier(VaultSettings{}))
}

func TestShouldTriggerVaulting(t *testing.T) {
	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	longAgo := now.AddDate(0, 0, -45)
	recent := now.AddDate(0, 0, -10)

	base := VaultSettings{TotalSharesIssued: 1000, SharesInCirculation: 800, VaultingThreshold: 50, LastScarcityUpdate: &longAgo}

	tests := []struct {
		name        string
		mutate      func(v *VaultSettings)
		marketCap   float64
		volumeRatio float64
		want        bool
	}{
		{"eligible", nil, 60_000, 0.05, true},
		{"cap below threshold", nil, 40_000, 0.05, false},
		{"volume too high", nil, 60_000, 0.2, false},
		{"inside default holding period", func(v *VaultSettings) { v.LastScarcityUpdate = &recent }, 60_000, 0.05, false},
		{"short custom holding period", func(v *VaultSettings) { v.LastScarcityUpdate = &recent; v.MinHoldingPeriodDays = 7 }, 60_000, 0.05, true},
		{"never updated", func(v *VaultSettings) { v.LastScarcityUpdate = nil }, 60_000, 0.05, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := base
			if tc.mutate != nil {
				tc.mutate(&v)
			}
			assert.Equal(t, tc.want, ShouldTriggerVaulting(v, 100, tc.marketCap, tc.volumeRatio, now))
		})
	}
}

func TestVaultingFee(t *testing.T) {
	v := VaultSettings{VaultingFee: 0.02}
	assert.InDelta(t, 50.0, VaultingFee(v, 25, 100), 1e-9)
}

func TestVaultShares(t *testing.T) {
	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	v := VaultSettings{TotalSharesIssued: 1000, SharesInCirculation: 600}

	out, err := VaultShares(v, 200, now)
	require.NoError(t, err)
	assert.Equal(t, int64(400), out.SharesInCirculation)
	require.NotNil(t, out.LastScarcityUpdate)
	assert.True(t, now.Equal(*out.LastScarcityUpdate))
	assert.Equal(t, int64(600), v.SharesInCirculation, "input must not be mutated")

	_, err = VaultShares(v, 700, now)
	require.ErrorIs(t, err, ErrInvalidVault)

	_, err = VaultShares(v, 0, now)
	require.ErrorIs(t, err, ErrInvalidVault)

	bad := VaultSettings{TotalSharesIssued: 10, SharesInCirculation: 20}
	require.ErrorIs(t, bad.Validate(), ErrInvalidVault)
}
