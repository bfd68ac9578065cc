package engine

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	minScarcity            = 1.0
	maxScarcity            = 5.0
	defaultMinHoldingDays  = 30
	lowVolumeRatio         = 0.1
	scarceCirculationRatio = 0.5
)

var ErrInvalidVault = errors.New("invalid vault settings")

// VaultSettings tracks the share supply of one vaultable asset.
// VaultingThreshold is a percent; VaultingFee is a rate (0.01 = 1%).
type VaultSettings struct {
	TotalSharesIssued    int64      `json:"total_shares_issued"`
	SharesInCirculation  int64      `json:"shares_in_circulation"`
	DemandPressure       float64    `json:"demand_pressure"`
	SupplyConstraint     float64    `json:"supply_constraint"`
	VaultingThreshold    float64    `json:"vaulting_threshold"`
	MinHoldingPeriodDays int        `json:"min_holding_period_days"`
	VaultingFee          float64    `json:"vaulting_fee"`
	LastScarcityUpdate   *time.Time `json:"last_scarcity_update,omitempty"`
}

func (v VaultSettings) Validate() error {
	if v.TotalSharesIssued < 0 || v.SharesInCirculation < 0 {
		return fmt.Errorf("%w: share counts must be >= 0", ErrInvalidVault)
	}
	if v.SharesInCirculation > v.TotalSharesIssued {
		return fmt.Errorf("%w: %d shares in circulation exceeds %d issued", ErrInvalidVault, v.SharesInCirculation, v.TotalSharesIssued)
	}
	if v.VaultingFee < 0 || math.IsNaN(v.VaultingFee) {
		return fmt.Errorf("%w: vaulting fee must be >= 0", ErrInvalidVault)
	}
	return nil
}

// ScarcityMultiplier grows as shares leave circulation and as demand and
// supply pressure rise. The result is always in [1, 5].
func ScarcityMultiplier(v VaultSettings) float64 {
	ratio := 1.0
	if v.TotalSharesIssued > 0 {
		ratio = float64(v.SharesInCirculation) / float64(v.TotalSharesIssued)
	}
	m := 1.0
	if ratio < scarceCirculationRatio {
		m += (scarceCirculationRatio - ratio) * 2.0
	}
	m += finiteOrZero(v.DemandPressure) / 100 * 0.5
	m += finiteOrZero(v.SupplyConstraint) / 100 * 0.3
	return math.Max(minScarcity, math.Min(m, maxScarcity))
}

// ShouldTriggerVaulting reports whether the asset is due for another vaulting
// round. It is never due inside the minimum holding period; a vault that has
// never been updated is treated as updated at now.
func ShouldTriggerVaulting(v VaultSettings, price, marketCap, volumeRatio float64, now time.Time) bool {
	holding := v.MinHoldingPeriodDays
	if holding <= 0 {
		holding = defaultMinHoldingDays
	}
	last := now
	if v.LastScarcityUpdate != nil {
		last = *v.LastScarcityUpdate
	}
	days := now.Sub(last).Hours() / 24
	if days < float64(holding) {
		return false
	}
	threshold := float64(v.TotalSharesIssued) * price * (v.VaultingThreshold / 100)
	return marketCap >= threshold && volumeRatio < lowVolumeRatio
}

func VaultingFee(v VaultSettings, shares int64, price float64) float64 {
	return float64(shares) * price * v.VaultingFee
}

// VaultShares moves shares out of circulation and stamps the update time.
func VaultShares(v VaultSettings, shares int64, now time.Time) (VaultSettings, error) {
	if shares <= 0 {
		return v, fmt.Errorf("%w: shares to vault must be > 0", ErrInvalidVault)
	}
	if err := v.Validate(); err != nil {
		return v, err
	}
	if shares > v.SharesInCirculation {
		return v, fmt.Errorf("%w: cannot vault %d shares, only %d in circulation", ErrInvalidVault, shares, v.SharesInCirculation)
	}
	out := v
	out.SharesInCirculation -= shares
	stamp := now.UTC()
	out.LastScarcityUpdate = &stamp
	return out, nil
}

func finiteOrZero(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
