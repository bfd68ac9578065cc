package postgres

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"panelprofits/internal/db"
	"panelprofits/internal/store"
)

// setupTestStore starts a throwaway Postgres container and applies the schema.
// Set PP_PG_INTEGRATION=1 to run these tests; they need a Docker daemon.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	if os.Getenv("PP_PG_INTEGRATION") != "1" {
		t.Skip("set PP_PG_INTEGRATION=1 to run postgres integration tests")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("panelprofits"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := db.Connect(ctx, dsn, db.PoolOptions{MaxConns: 4, MinConns: 1})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s := New(pool)
	require.NoError(t, s.ApplySchema(ctx))
	return s
}

func TestAssetsAndPrices(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	a, err := s.CreateAsset(ctx, store.Asset{
		Symbol:   "ASM.V1.#300.B",
		Name:     "Amazing Spider-Man #300",
		Type:     "comic",
		Metadata: json.RawMessage(`{"series":"Amazing Spider-Man","issue":300}`),
	})
	require.NoError(t, err)
	assert.NotZero(t, a.CreatedAt)

	_, err = s.CreateAsset(ctx, store.Asset{Symbol: "ASM.V1.#300.B", Name: "dup", Type: "comic"})
	require.ErrorIs(t, err, store.ErrDuplicateKey)

	got, err := s.GetAssetBySymbol(ctx, "ASM.V1.#300.B")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.JSONEq(t, `{"series":"Amazing Spider-Man","issue":300}`, string(got.Metadata))

	_, err = s.GetAsset(ctx, "not-a-uuid")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.CurrentPrice(ctx, a.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.SetPrice(ctx, store.AssetPrice{AssetID: a.ID, Price: decimal.RequireFromString("2150.25")}))
	require.NoError(t, s.SetPrice(ctx, store.AssetPrice{AssetID: a.ID, Price: decimal.RequireFromString("2200")}))
	p, err := s.CurrentPrice(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, p.Price.Equal(decimal.NewFromInt(2200)), "got %s", p.Price)

	require.NoError(t, s.UpdateAssetSymbol(ctx, a.ID, "ASM.V1.#300"))
	list, err := s.ListAssets(ctx, store.AssetFilter{Type: "comic", Limit: 10})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "ASM.V1.#300", list[0].Symbol)
}

func TestTradersPortfoliosOrders(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	tr, err := s.CreateNpcTrader(ctx, store.NpcTrader{
		Name:              "Momentum Mary",
		TraderType:        "momentum",
		Personality:       store.TraderPersonality{Strategy: "trend", TimingStyle: "fast"},
		AvoidedAssetTypes: []string{"bond"},
		AvailableCapital:  decimal.NewFromInt(50_000),
		MaxPositionSize:   decimal.NewFromInt(10_000),
		Intelligence:      90,
		Active:            true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"bond"}, tr.AvoidedAssetTypes)

	now := time.Now().UTC().Truncate(time.Microsecond)
	pnl := decimal.RequireFromString("125.50")
	require.NoError(t, s.UpdateNpcTrader(ctx, tr.ID, store.TraderPatch{LastTradeTime: &now, TotalPnL: &pnl}))

	got, err := s.GetNpcTrader(ctx, tr.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastTradeTime)
	assert.True(t, now.Equal(*got.LastTradeTime))
	assert.True(t, got.TotalPnL.Equal(pnl))
	assert.Equal(t, "trend", got.Personality.Strategy)
	assert.True(t, got.AvailableCapital.Equal(decimal.NewFromInt(50_000)), "untouched fields survive the patch")

	active, err := s.ListNpcTraders(ctx, store.TraderFilter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, active, 1)

	pf, err := s.CreatePortfolio(ctx, store.Portfolio{UserID: tr.ID, Name: "Momentum Mary Portfolio", CashBalance: tr.AvailableCapital})
	require.NoError(t, err)
	_, err = s.CreatePortfolio(ctx, store.Portfolio{UserID: tr.ID, Name: "again"})
	require.ErrorIs(t, err, store.ErrDuplicateKey)

	a, err := s.CreateAsset(ctx, store.Asset{Symbol: "BAT", Name: "Batman", Type: "character"})
	require.NoError(t, err)
	o, err := s.CreateOrder(ctx, store.Order{
		UserID:      tr.ID,
		PortfolioID: pf.ID,
		AssetID:     a.ID,
		Side:        store.SideBuy,
		Type:        store.OrderLimit,
		Quantity:    10,
		Price:       decimal.RequireFromString("100.1"),
		TotalValue:  decimal.RequireFromString("1001"),
		Metadata:    store.OrderMetadata{NpcTrader: true, Confidence: 0.8, TraderType: "momentum"},
	})
	require.NoError(t, err)
	assert.Equal(t, "pending", o.Status)

	orders, err := s.ListOrdersByUser(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, store.OrderLimit, orders[0].Type)
	assert.True(t, orders[0].Metadata.NpcTrader)
}
