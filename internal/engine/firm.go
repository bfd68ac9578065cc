package engine

import (
	"fmt"
	"math"
	"strings"
)

const (
	oversizedTradeRatio   = 0.1
	oversizedTradePenalty = 0.9
	minFirmMultiplier     = 0.1
	defaultReputation     = 50.0
)

// TradingFirm is an NPC trading house. Bonus and penalty maps are keyed by
// specialty/weakness and hold percentages (penalties are negative).
type TradingFirm struct {
	Name              string             `json:"name"`
	Specialties       []string           `json:"specialties"`
	Weaknesses        []string           `json:"weaknesses"`
	SpecialtyBonuses  map[string]float64 `json:"specialty_bonuses"`
	WeaknessPenalties map[string]float64 `json:"weakness_penalties"`
	MarketCapacityUSD float64            `json:"market_capacity_usd"`
	Reputation        float64            `json:"reputation"`
}

type FirmBonusResult struct {
	Multiplier     float64 `json:"multiplier"`
	SpecialtyMatch bool    `json:"specialty_match"`
	Explanation    string  `json:"explanation"`
}

type TradePerformance struct {
	Successful         bool    `json:"successful"`
	ProfitLoss         float64 `json:"profit_loss"`
	ClientSatisfaction float64 `json:"client_satisfaction"`
}

// FirmBonus returns the execution multiplier a firm earns on a trade in assetType.
// Only the first matching specialty and the first matching weakness count.
func FirmBonus(firm TradingFirm, assetType string, tradeSize float64) FirmBonusResult {
	res := FirmBonusResult{Multiplier: 1.0}
	var notes []string

	if s, ok := firstMatch(firm.Specialties, assetType); ok {
		bonus := firm.SpecialtyBonuses[s]
		res.Multiplier += bonus / 100
		res.SpecialtyMatch = true
		notes = append(notes, fmt.Sprintf("%s specialty bonus: +%g%%.", s, bonus))
	}
	if w, ok := firstMatch(firm.Weaknesses, assetType); ok {
		penalty := firm.WeaknessPenalties[w]
		res.Multiplier += penalty / 100
		notes = append(notes, fmt.Sprintf("%s weakness penalty: %g%%.", w, penalty))
	}
	if firm.MarketCapacityUSD > 0 && tradeSize/firm.MarketCapacityUSD > oversizedTradeRatio {
		res.Multiplier *= oversizedTradePenalty
		notes = append(notes, "Large trade size penalty: -10%.")
	}

	res.Multiplier = math.Max(minFirmMultiplier, res.Multiplier)
	res.Explanation = strings.Join(notes, " ")
	return res
}

// ReputationImpact returns the firm's reputation after a trade, in [0, 100].
// An unset (zero) reputation starts from defaultReputation.
func ReputationImpact(firm TradingFirm, p TradePerformance) float64 {
	current := firm.Reputation
	if current == 0 {
		current = defaultReputation
	}
	delta := -0.2
	if p.Successful {
		delta = 0.1
	}
	profit := math.Min(math.Abs(p.ProfitLoss)/1_000_000, 5) * 0.05
	if p.ProfitLoss > 0 {
		delta += profit
	} else {
		delta -= profit
	}
	delta += (p.ClientSatisfaction - 50) / 100
	return clamp(current+delta, 0, 100)
}

func firstMatch(candidates []string, assetType string) (string, bool) {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if c == assetType || strings.Contains(assetType, c) {
			return c, true
		}
	}
	return "", false
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
