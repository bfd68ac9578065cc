package npc

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"panelprofits/internal/store"
)

type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

const (
	defaultVolatility   = 0.2
	volatilityWindow    = 5
	tradingDaysPerYear  = 252
	buyThreshold        = 0.6
	sellThreshold       = 0.4
	efficiencyWindow    = 3
	arbitrageEfficiency = 0.8
)

// Decision is the outcome of one trader evaluating one asset.
type Decision struct {
	Action     Action  `json:"action"`
	Quantity   int64   `json:"quantity"`
	Urgency    float64 `json:"urgency"`
	Confidence float64 `json:"confidence"`
}

// TradeResult is the realised outcome of a closed trade.
type TradeResult struct {
	Profit       decimal.Decimal `json:"profit"`
	WinningTrade bool            `json:"winning_trade"`
	TradeReturn  float64         `json:"trade_return"`
}

// Decide evaluates whether trader should buy, sell or hold an asset at price.
// history is ordered oldest first and normally ends with price. sentiment is
// in [-1, 1]; volumeProfile is relative volume (1 = normal).
//
// Decide is deterministic and never panics: invalid inputs degrade to a hold.
func Decide(trader store.NpcTrader, price float64, history []float64, sentiment, volumeProfile float64) Decision {
	if !validPrice(price) {
		return Decision{Action: ActionHold}
	}
	sentiment = finite(sentiment)
	volumeProfile = finite(volumeProfile)

	aggressiveness := slider(trader.Aggressiveness)
	intelligence := slider(trader.Intelligence)
	emotionality := slider(trader.Emotionality)

	momentum := priceMomentum(price, history)
	volatility := defaultVolatility
	if len(history) >= volatilityWindow {
		volatility = annualizedVolatility(history[len(history)-volatilityWindow:])
	}

	buy := 0.5
	switch trader.TraderType {
	case "whale":
		// Whales only move on a clear trend in a quiet market.
		if volatility < 0.1 && math.Abs(momentum) > 0.02 {
			if momentum > 0 {
				buy += 0.3
			} else {
				buy -= 0.3
			}
		}
	case "momentum":
		buy += momentum * 2
		if volumeProfile > 1.5 {
			buy += 0.2
		}
	case "contrarian":
		buy -= sentiment * 0.3
		if momentum < -0.05 {
			buy += 0.4
		}
	case "arbitrage":
		if pricingEfficiency(price, history) < arbitrageEfficiency {
			buy += 0.3
		}
	}

	buy += (aggressiveness - 0.5) * 0.3
	buy += (sentiment*emotionality - 0.5) * 0.2

	noise := intelligence * 0.2
	buy = buy*(1-noise) + 0.5*noise

	d := Decision{Action: ActionHold}
	switch {
	case buy > buyThreshold:
		d.Action = ActionBuy
	case buy < sellThreshold:
		d.Action = ActionSell
	}

	sizing := math.Abs(buy-0.5) * 2
	if d.Action != ActionHold {
		budget := math.Min(trader.MaxPositionSize.InexactFloat64(), trader.AvailableCapital.InexactFloat64())
		d.Quantity = floorQuantity(budget / price * sizing * aggressiveness)
	}
	d.Urgency = clamp01(sizing)
	d.Confidence = clamp01(intelligence * (1 - volatility))
	return d
}

// UpdatePerformance folds one closed trade into the trader's running stats.
func UpdatePerformance(trader store.NpcTrader, r TradeResult, now time.Time) store.TraderPatch {
	n := trader.TotalTrades + 1
	win := 0.0
	if r.WinningTrade {
		win = 100
	}
	winRate := (trader.WinRate*float64(n-1) + win) / float64(n)
	avgReturn := (trader.AvgTradeReturn*float64(n-1) + finite(r.TradeReturn)) / float64(n)
	pnl := trader.TotalPnL.Add(r.Profit)
	ts := now.UTC()
	return store.TraderPatch{
		TotalTrades:    &n,
		WinRate:        &winRate,
		AvgTradeReturn: &avgReturn,
		TotalPnL:       &pnl,
		LastTradeTime:  &ts,
	}
}

func priceMomentum(price float64, history []float64) float64 {
	if len(history) < 2 {
		return 0
	}
	prev := history[len(history)-2]
	if !validPrice(prev) {
		return 0
	}
	return (price - prev) / prev
}

// annualizedVolatility is the population stdev of log returns scaled by sqrt(252).
func annualizedVolatility(prices []float64) float64 {
	if len(prices) < 2 {
		return defaultVolatility
	}
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if !validPrice(prices[i]) || !validPrice(prices[i-1]) {
			return defaultVolatility
		}
		returns = append(returns, math.Log(prices[i]/prices[i-1]))
	}
	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))
	return math.Sqrt(variance * tradingDaysPerYear)
}

// pricingEfficiency is 1 when price sits on its 3-period average and falls
// to 0 at a 20% deviation.
func pricingEfficiency(price float64, history []float64) float64 {
	if len(history) < efficiencyWindow {
		return 1.0
	}
	var sum float64
	for _, p := range history[len(history)-efficiencyWindow:] {
		sum += p
	}
	expected := sum / efficiencyWindow
	if !validPrice(expected) {
		return 1.0
	}
	return math.Max(0, 1-math.Abs(price-expected)/expected*5)
}

func slider(v float64) float64 {
	return clamp01(finite(v) / 100)
}

func floorQuantity(q float64) int64 {
	if math.IsNaN(q) || q <= 0 {
		return 0
	}
	if q >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(math.Floor(q))
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 0) && !math.IsNaN(p)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
