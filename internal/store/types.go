package store

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type Asset struct {
	ID        string          `json:"id"`
	Symbol    string          `json:"symbol"`
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type AssetPrice struct {
	AssetID   string          `json:"asset_id"`
	Price     decimal.Decimal `json:"price"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type AssetFilter struct {
	Type   string
	Limit  int
	Offset int
}

type Portfolio struct {
	ID                    string          `json:"id"`
	UserID                string          `json:"user_id"`
	Name                  string          `json:"name"`
	TotalValue            decimal.Decimal `json:"total_value"`
	CashBalance           decimal.Decimal `json:"cash_balance"`
	InitialCashAllocation decimal.Decimal `json:"initial_cash_allocation"`
	CreatedAt             time.Time       `json:"created_at"`
}

type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

type OrderType string

const (
	OrderMarket OrderType = "market"
	OrderLimit  OrderType = "limit"
)

type OrderMetadata struct {
	NpcTrader  bool    `json:"npc_trader"`
	Confidence float64 `json:"confidence"`
	Urgency    float64 `json:"urgency"`
	TraderType string  `json:"trader_type,omitempty"`
}

type Order struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	PortfolioID string          `json:"portfolio_id"`
	AssetID     string          `json:"asset_id"`
	Side        OrderSide       `json:"side"`
	Type        OrderType       `json:"order_type"`
	Quantity    int64           `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	TotalValue  decimal.Decimal `json:"total_value"`
	Status      string          `json:"status"`
	Metadata    OrderMetadata   `json:"metadata"`
	CreatedAt   time.Time       `json:"created_at"`
}

type TraderPersonality struct {
	Strategy             string  `json:"strategy"`
	SentimentSensitivity float64 `json:"sentiment_sensitivity"`
	TimingStyle          string  `json:"timing_style"`
}

// NpcTrader is a simulated market participant. Behavioural sliders
// (Aggressiveness, Intelligence, Emotionality, Adaptability) range 0-100;
// WinRate is a percent.
type NpcTrader struct {
	ID                      string            `json:"id"`
	Name                    string            `json:"name"`
	TraderType              string            `json:"trader_type"`
	Personality             TraderPersonality `json:"personality"`
	PreferredAssetTypes     []string          `json:"preferred_asset_types"`
	AvoidedAssetTypes       []string          `json:"avoided_asset_types"`
	AvailableCapital        decimal.Decimal   `json:"available_capital"`
	MaxPositionSize         decimal.Decimal   `json:"max_position_size"`
	MaxDailyVolume          decimal.Decimal   `json:"max_daily_volume"`
	Aggressiveness          float64           `json:"aggressiveness"`
	Intelligence            float64           `json:"intelligence"`
	Emotionality            float64           `json:"emotionality"`
	Adaptability            float64           `json:"adaptability"`
	TradesPerDay            int               `json:"trades_per_day"`
	MinMinutesBetweenTrades int               `json:"min_minutes_between_trades"`
	TotalTrades             int64             `json:"total_trades"`
	WinRate                 float64           `json:"win_rate"`
	AvgTradeReturn          float64           `json:"avg_trade_return"`
	TotalPnL                decimal.Decimal   `json:"total_pnl"`
	LastTradeTime           *time.Time        `json:"last_trade_time,omitempty"`
	Active                  bool              `json:"active"`
}

type TraderFilter struct {
	ActiveOnly bool
}

// TraderPatch updates only the non-nil fields.
type TraderPatch struct {
	TotalTrades    *int64
	WinRate        *float64
	AvgTradeReturn *float64
	TotalPnL       *decimal.Decimal
	LastTradeTime  *time.Time
	Active         *bool
}

// Apply returns t with the patch fields copied over.
func (p TraderPatch) Apply(t NpcTrader) NpcTrader {
	if p.TotalTrades != nil {
		t.TotalTrades = *p.TotalTrades
	}
	if p.WinRate != nil {
		t.WinRate = *p.WinRate
	}
	if p.AvgTradeReturn != nil {
		t.AvgTradeReturn = *p.AvgTradeReturn
	}
	if p.TotalPnL != nil {
		t.TotalPnL = *p.TotalPnL
	}
	if p.LastTradeTime != nil {
		ts := *p.LastTradeTime
		t.LastTradeTime = &ts
	}
	if p.Active != nil {
		t.Active = *p.Active
	}
	return t
}
