package npc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"panelprofits/internal/store"
)

const (
	minTradeInterval   = 5 * time.Minute
	maxCandidateAssets = 5
	maxOrderQuantity   = 100
	minConfidence      = 0.7
	marketOrderShare   = 0.7
)

var (
	buyOffset  = decimal.RequireFromString("1.001")
	sellOffset = decimal.RequireFromString("0.999")
)

// CycleStore is the storage the trading cycle reads and writes.
type CycleStore interface {
	ListNpcTraders(ctx context.Context, f store.TraderFilter) ([]store.NpcTrader, error)
	UpdateNpcTrader(ctx context.Context, id string, patch store.TraderPatch) error
	ListAssets(ctx context.Context, f store.AssetFilter) ([]store.Asset, error)
	CurrentPrice(ctx context.Context, assetID string) (store.AssetPrice, error)
	PortfolioByUser(ctx context.Context, userID string) (store.Portfolio, error)
	CreatePortfolio(ctx context.Context, p store.Portfolio) (store.Portfolio, error)
	CreateOrder(ctx context.Context, o store.Order) (store.Order, error)
}

type CycleResult struct {
	TradersProcessed int             `json:"traders_processed"`
	OrdersCreated    int             `json:"orders_created"`
	TotalVolume      decimal.Decimal `json:"total_volume"`
	Errors           []string        `json:"errors"`
	// Failed is set when the cycle could not load its traders or market data.
	Failed bool `json:"failed"`
}

// Cycle runs one pass of simulated NPC trading over every active trader.
// Storage calls are made sequentially; concurrent Run calls are serialized.
type Cycle struct {
	store   CycleStore
	log     *slog.Logger
	metrics *Metrics

	mu   sync.Mutex
	rand *rand.Rand
	now  func() time.Time
}

type CycleOption func(*Cycle)

func WithRand(r *rand.Rand) CycleOption {
	return func(c *Cycle) {
		if r != nil {
			c.rand = r
		}
	}
}

func WithClock(now func() time.Time) CycleOption {
	return func(c *Cycle) {
		if now != nil {
			c.now = now
		}
	}
}

func WithMetrics(m *Metrics) CycleOption {
	return func(c *Cycle) { c.metrics = m }
}

func NewCycle(st CycleStore, logger *slog.Logger, opts ...CycleOption) *Cycle {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cycle{
		store: st,
		log:   logger,
		rand:  rand.New(rand.NewSource(time.Now().UnixNano())),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type marketQuote struct {
	asset store.Asset
	price decimal.Decimal
}

type traderTask struct {
	trader store.NpcTrader
}

type outcome string

const (
	outcomeSkipped outcome = "skipped"
	outcomeHold    outcome = "hold"
	outcomeOrdered outcome = "ordered"
	outcomeError   outcome = "error"
)

// Run executes one trading cycle. Failures are reported in the result and
// never returned: a trader that fails is recorded and the next one proceeds.
func (c *Cycle) Run(ctx context.Context) CycleResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	started := time.Now()
	res := CycleResult{TotalVolume: decimal.Zero, Errors: []string{}}
	defer func() { c.metrics.recordCycle(res, time.Since(started).Seconds()) }()

	tasks, market, err := c.planTasks(ctx)
	if err != nil {
		msg := fmt.Sprintf("npc trading cycle failed: %v", err)
		c.log.Error("npc trading cycle failed", "err", err)
		res.Errors = append(res.Errors, msg)
		res.Failed = true
		return res
	}
	if len(tasks) == 0 {
		c.log.Info("no active npc traders")
		return res
	}
	c.log.Info("npc trading cycle started", "traders", len(tasks), "assets", len(market))

	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("npc trading cycle interrupted: %v", err))
			break
		}
		res.TradersProcessed++

		order, out, err := c.execute(ctx, task, market)
		if err != nil {
			msg := fmt.Sprintf("failed to process trader %s: %v", task.trader.Name, err)
			c.log.Error("npc trader failed", "trader_id", task.trader.ID, "trader", task.trader.Name, "err", err)
			res.Errors = append(res.Errors, msg)
			c.metrics.recordOutcome(string(outcomeError))
			continue
		}
		c.metrics.recordOutcome(string(out))
		if out != outcomeOrdered {
			continue
		}
		res.OrdersCreated++
		res.TotalVolume = res.TotalVolume.Add(order.notional)
	}

	c.log.Info("npc trading cycle complete",
		"traders_processed", res.TradersProcessed,
		"orders_created", res.OrdersCreated,
		"total_volume", res.TotalVolume.StringFixed(2),
		"errors", len(res.Errors),
	)
	return res
}

// planTasks loads the active traders and a price snapshot of every priced asset.
func (c *Cycle) planTasks(ctx context.Context) ([]traderTask, []marketQuote, error) {
	traders, err := c.store.ListNpcTraders(ctx, store.TraderFilter{ActiveOnly: true})
	if err != nil {
		return nil, nil, fmt.Errorf("list npc traders: %w", err)
	}
	tasks := make([]traderTask, 0, len(traders))
	for _, t := range traders {
		if !t.Active {
			continue
		}
		tasks = append(tasks, traderTask{trader: t})
	}
	if len(tasks) == 0 {
		return nil, nil, nil
	}

	assets, err := c.store.ListAssets(ctx, store.AssetFilter{})
	if err != nil {
		return nil, nil, fmt.Errorf("list assets: %w", err)
	}
	market := make([]marketQuote, 0, len(assets))
	for _, a := range assets {
		p, err := c.store.CurrentPrice(ctx, a.ID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("current price for %s: %w", a.Symbol, err)
		}
		if !p.Price.IsPositive() {
			continue
		}
		market = append(market, marketQuote{asset: a, price: p.Price})
	}
	return tasks, market, nil
}

type placedOrder struct {
	order    store.Order
	notional decimal.Decimal
}

// execute evaluates up to five sampled assets for one trader and places at most one order.
func (c *Cycle) execute(ctx context.Context, task traderTask, market []marketQuote) (placedOrder, outcome, error) {
	trader := task.trader
	now := c.now()

	interval := max(minTradeInterval, time.Duration(trader.MinMinutesBetweenTrades)*time.Minute)
	if trader.LastTradeTime != nil && now.Sub(*trader.LastTradeTime) < interval {
		return placedOrder{}, outcomeSkipped, nil
	}

	for _, q := range c.sampleAssets(trader, market) {
		current := q.price.InexactFloat64()
		history := []float64{
			current * (0.95 + c.rand.Float64()*0.1),
			current * (0.97 + c.rand.Float64()*0.06),
			current * (0.98 + c.rand.Float64()*0.04),
			current,
		}
		sentiment := (c.rand.Float64() - 0.5) * 2
		volume := 0.8 + c.rand.Float64()*0.4

		d := Decide(trader, current, history, sentiment, volume)
		if d.Action == ActionHold || d.Confidence <= minConfidence || d.Quantity <= 0 {
			continue
		}

		portfolio, err := c.ensurePortfolio(ctx, trader)
		if err != nil {
			return placedOrder{}, outcomeError, err
		}

		qty := min(d.Quantity, maxOrderQuantity)
		orderType := store.OrderLimit
		if c.rand.Float64() > 1-marketOrderShare {
			orderType = store.OrderMarket
		}
		side := store.SideBuy
		price := q.price.Mul(buyOffset)
		if d.Action == ActionSell {
			side = store.SideSell
			price = q.price.Mul(sellOffset)
		}
		qtyDec := decimal.NewFromInt(qty)

		order, err := c.store.CreateOrder(ctx, store.Order{
			UserID:      trader.ID,
			PortfolioID: portfolio.ID,
			AssetID:     q.asset.ID,
			Side:        side,
			Type:        orderType,
			Quantity:    qty,
			Price:       price,
			TotalValue:  price.Mul(qtyDec),
			Metadata: store.OrderMetadata{
				NpcTrader:  true,
				Confidence: d.Confidence,
				Urgency:    d.Urgency,
				TraderType: trader.TraderType,
			},
		})
		if err != nil {
			return placedOrder{}, outcomeError, fmt.Errorf("create order: %w", err)
		}
		notional := qtyDec.Mul(q.price)

		c.log.Info("npc order placed",
			"trader", trader.Name,
			"trader_type", trader.TraderType,
			"side", string(side),
			"order_type", string(orderType),
			"quantity", qty,
			"symbol", q.asset.Symbol,
			"price", q.price.StringFixed(2),
		)
		c.metrics.recordOrder(string(side), trader.TraderType, notional.InexactFloat64())

		ts := now.UTC()
		if err := c.store.UpdateNpcTrader(ctx, trader.ID, store.TraderPatch{LastTradeTime: &ts}); err != nil {
			return placedOrder{}, outcomeError, fmt.Errorf("update last trade time: %w", err)
		}
		return placedOrder{order: order, notional: notional}, outcomeOrdered, nil
	}
	return placedOrder{}, outcomeHold, nil
}

// sampleAssets returns up to five randomly chosen quotes the trader does not avoid.
func (c *Cycle) sampleAssets(trader store.NpcTrader, market []marketQuote) []marketQuote {
	candidates := make([]marketQuote, 0, len(market))
	for _, q := range market {
		if slices.Contains(trader.AvoidedAssetTypes, q.asset.Type) {
			continue
		}
		candidates = append(candidates, q)
	}
	c.rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if len(candidates) > maxCandidateAssets {
		candidates = candidates[:maxCandidateAssets]
	}
	return candidates
}

func (c *Cycle) ensurePortfolio(ctx context.Context, trader store.NpcTrader) (store.Portfolio, error) {
	p, err := c.store.PortfolioByUser(ctx, trader.ID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return store.Portfolio{}, fmt.Errorf("get portfolio: %w", err)
	}
	p, err = c.store.CreatePortfolio(ctx, store.Portfolio{
		UserID:                trader.ID,
		Name:                  trader.Name + " Portfolio",
		TotalValue:            trader.AvailableCapital,
		CashBalance:           trader.AvailableCapital,
		InitialCashAllocation: trader.AvailableCapital,
	})
	if err != nil {
		return store.Portfolio{}, fmt.Errorf("create portfolio: %w", err)
	}
	return p, nil
}
