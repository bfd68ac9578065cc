package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"panelprofits/internal/engine"
)

func TestLoadAPIFromEnv(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("PP_API_ADDR", "")
	t.Setenv("DATABASE_URL", "")
	_, err := LoadAPIFromEnv()
	require.Error(t, err)

	t.Setenv("DATABASE_URL", "postgres://pp@localhost/pp")
	t.Setenv("PP_RISK_FREE_RATE", "0.03")
	cfg, err := LoadAPIFromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 0.03, cfg.RiskFreeRate)

	t.Setenv("PORT", "3000")
	t.Setenv("PP_RISK_FREE_RATE", "lots")
	cfg, err = LoadAPIFromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.Addr)
	assert.Equal(t, 0.05, cfg.RiskFreeRate, "unparsable values fall back")
}

func TestLoadWorkerFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://pp@localhost/pp")
	t.Setenv("PP_NPC_CYCLE_EVERY", "")
	t.Setenv("PP_WORKER_RUN_ONCE", "true")
	t.Setenv("PP_METRICS_ADDR", "")

	cfg, err := LoadWorkerFromEnv()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cfg.CycleEvery)
	assert.True(t, cfg.RunOnce)
	assert.Equal(t, ":9090", cfg.MetricsAddr)

	t.Setenv("PP_NPC_CYCLE_EVERY", "-5s")
	_, err = LoadWorkerFromEnv()
	assert.Error(t, err)
}

func TestLoadCLIFromEnv(t *testing.T) {
	t.Setenv("PP_API_BASE_URL", "https://pp.example.com/")
	assert.Equal(t, "https://pp.example.com", LoadCLIFromEnv().APIBaseURL)
}

func TestDefaultMarketSessions(t *testing.T) {
	sessions, err := DefaultMarketSessions()
	require.NoError(t, err)
	require.Len(t, sessions, 5)

	nyc := sessions[0]
	assert.Equal(t, "NYC", nyc.Code)
	assert.True(t, nyc.LeadMarket)
	assert.Equal(t, 0.001, nyc.CrossTradingFee)
	assert.Contains(t, nyc.Holidays, "2024-07-04")

	open, err := engine.IsMarketOpen(nyc, time.Date(2024, time.March, 12, 15, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, open)
}

func TestLoadMarketSessionsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sessions.yaml")
	t.Setenv("PP_TEST_TZ", "Asia/Tokyo")
	body := `sessions:
  - code: tyo
    name: Tokyo Stock Exchange
    timezone: ${PP_TEST_TZ}
    regular_open: "09:00"
    regular_close: "15:00"
    active: true
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	sessions, err := LoadMarketSessions(path)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "TYO", sessions[0].Code)
	assert.Equal(t, "Asia/Tokyo", sessions[0].Timezone)

	defaults, err := LoadMarketSessions("")
	require.NoError(t, err)
	assert.Len(t, defaults, 5)
}

func TestLoadMarketSessionsRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
		return p
	}

	_, err := LoadMarketSessions(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadMarketSessions(write("empty.yaml", "sessions: []\n"))
	assert.ErrorIs(t, err, engine.ErrInvalidSession)

	_, err = LoadMarketSessions(write("tz.yaml", `sessions:
  - code: XXX
    timezone: Mars/Olympus
    regular_open: "09:00"
    regular_close: "15:00"
`))
	assert.ErrorIs(t, err, engine.ErrInvalidSession)

	_, err = LoadMarketSessions(write("dup.yaml", `sessions:
  - code: NYC
    timezone: America/New_York
    regular_open: "09:30"
    regular_close: "16:00"
  - code: nyc
    timezone: America/New_York
    regular_open: "09:30"
    regular_close: "16:00"
`))
	assert.ErrorIs(t, err, engine.ErrInvalidSession)

	_, err = LoadMarketSessions(write("bad.yaml", "sessions: [\n"))
	assert.Error(t, err)
}
