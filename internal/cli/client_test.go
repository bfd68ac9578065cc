package cli

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"panelprofits/internal/api"
	"panelprofits/internal/config"
	"panelprofits/internal/store/memory"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	sessions, err := config.DefaultMarketSessions()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Date(2024, time.March, 12, 15, 0, 0, 0, time.UTC)
	srv := api.New(config.APIConfig{RiskFreeRate: 0.05}, logger, memory.New(), sessions,
		api.WithClock(func() time.Time { return now }))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return NewClient(ts.URL + "/")
}

func TestClientAgainstServer(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.Health(ctx))

	price, err := c.OptionPrice(ctx, OptionInput{Underlying: 100, Strike: 100, Years: 1, Volatility: 0.2, Type: "call"})
	require.NoError(t, err)
	assert.InDelta(t, 10.4506, price["price"].(float64), 1e-3)

	iv, err := c.ImpliedVolatility(ctx, 10.4506, OptionInput{Underlying: 100, Strike: 100, Years: 1, Type: "call"})
	require.NoError(t, err)
	assert.InDelta(t, 0.2, iv["implied_volatility"].(float64), 1e-3)

	nyc, err := c.Market(ctx, "nyc", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, true, nyc["open"])

	cross, err := c.CrossMarket(ctx, "NYC", "SYD", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1.2, cross["adjustment"])

	gen, err := c.GenerateSymbol(ctx, "hero", map[string]any{"name": "Batman"})
	require.NoError(t, err)
	assert.Equal(t, "BAT", gen["symbol"])

	created, err := c.CreateAsset(ctx, "Batman", "character", nil)
	require.NoError(t, err)
	assert.Equal(t, "BAT", created["symbol"])
	id := created["id"].(string)

	_, err = c.SetPrice(ctx, id, "42.5")
	require.NoError(t, err)
	detail, err := c.Asset(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "42.5", detail["price"].(map[string]any)["price"])

	gen, err = c.GenerateSymbol(ctx, "character", map[string]any{"name": "Batman"})
	require.NoError(t, err)
	assert.Equal(t, "BAT.1", gen["symbol"])
	assert.Equal(t, true, gen["collision"])

	rep, err := c.RegenerateSymbols(ctx, []string{id}, true)
	require.NoError(t, err)
	assert.Equal(t, true, rep["dry_run"])
}

func TestClientErrors(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, err := c.Market(ctx, "XXX", time.Time{})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	_, err = c.OptionPrice(ctx, OptionInput{Underlying: 100, Strike: 100, Years: 0, Volatility: 0.2, Type: "put"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Contains(t, apiErr.Message, "invalid option input")
	assert.NotContains(t, apiErr.Message, `"error"`)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "boom", errorMessage([]byte(`{"error":"boom"}`)))
	assert.Equal(t, "bad gateway", errorMessage([]byte("bad gateway\n")))
}

func TestProfileRoundTrip(t *testing.T) {
	ProfileDir = t.TempDir()
	t.Cleanup(func() { ProfileDir = "" })

	p, err := LoadProfile()
	require.NoError(t, err)
	assert.Equal(t, Profile{}, p)

	require.NoError(t, SaveProfile(Profile{APIBaseURL: " http://api.local:8080/ ", Market: "lon", Tier: "Pro"}))
	p, err = LoadProfile()
	require.NoError(t, err)
	assert.Equal(t, Profile{APIBaseURL: "http://api.local:8080", Market: "LON", Tier: "pro"}, p)

	require.NoError(t, ClearProfile())
	require.NoError(t, ClearProfile())
	p, err = LoadProfile()
	require.NoError(t, err)
	assert.Empty(t, p.APIBaseURL)
}
