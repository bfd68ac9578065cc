package symbols

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"panelprofits/internal/store"
	"panelprofits/internal/store/memory"
)

func newTestService(st AssetStore) *Service {
	return NewService(New(), st, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func seed(t *testing.T, s *memory.Store, symbol, name, typ string, metadata string) store.Asset {
	t.Helper()
	a := store.Asset{Symbol: symbol, Name: name, Type: typ}
	if metadata != "" {
		a.Metadata = json.RawMessage(metadata)
	}
	out, err := s.CreateAsset(context.Background(), a)
	require.NoError(t, err)
	return out
}

func TestServiceCreateAsset(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(memory.New())

	first, err := svc.CreateAsset(ctx, NewAsset{Name: "Batman", Type: "hero"})
	require.NoError(t, err)
	assert.Equal(t, "BAT", first.Symbol)
	assert.Equal(t, "character", first.Type)

	second, err := svc.CreateAsset(ctx, NewAsset{Name: "Batman", Type: "character"})
	require.NoError(t, err)
	assert.Equal(t, "BAT.1", second.Symbol)

	opt, err := svc.CreateAsset(ctx, NewAsset{
		Name:     "Batman June Call",
		Type:     "option",
		Metadata: json.RawMessage(`{"underlying":"Batman","expiry":"2025-06-20","strike":150,"option_type":"call"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "BAT.O0620C150", opt.Symbol)

	_, err = svc.CreateAsset(ctx, NewAsset{Name: "Broken Option", Type: "option", Metadata: json.RawMessage(`{"expiry":"2025-06-20"}`)})
	assert.ErrorIs(t, err, ErrInvalidStrike)

	_, err = svc.CreateAsset(ctx, NewAsset{Type: "character"})
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestServiceExists(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seed(t, s, "BAT", "Batman", "character", "")
	svc := newTestService(s)

	taken, err := svc.Exists(ctx, "BAT")
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = svc.Exists(ctx, "SUP")
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestRegenerateByIDsDryRunThenApply(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	a := seed(t, s, "OLD1", "Batman", "character", "")
	b := seed(t, s, "OLD2", "Batman", "character", "")
	svc := newTestService(s)

	preview, err := svc.RegenerateByIDs(ctx, []string{a.ID, b.ID, "missing"}, true)
	require.NoError(t, err)
	assert.True(t, preview.DryRun)
	assert.Equal(t, 3, preview.Processed)
	assert.Equal(t, 2, preview.Changed)
	assert.Equal(t, 1, preview.Failed)
	require.Len(t, preview.Results, 3)
	assert.Equal(t, "BAT", preview.Results[0].NewSymbol)
	assert.Equal(t, "BAT.1", preview.Results[1].NewSymbol, "symbols claimed earlier in the pass count as taken")
	assert.Equal(t, "asset not found", preview.Results[2].Error)
	assert.False(t, preview.Results[2].Success)

	still, err := s.GetAsset(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "OLD1", still.Symbol, "dry run leaves storage untouched")

	applied, err := svc.RegenerateByIDs(ctx, []string{a.ID, b.ID}, false)
	require.NoError(t, err)
	assert.Equal(t, 2, applied.Changed)

	gotA, err := s.GetAsset(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "BAT", gotA.Symbol)
	gotB, err := s.GetAsset(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "BAT.1", gotB.Symbol)

	again, err := svc.RegenerateByIDs(ctx, []string{a.ID, b.ID}, false)
	require.NoError(t, err)
	assert.Zero(t, again.Changed)
	assert.Equal(t, 2, again.Unchanged, "an asset keeps its own symbol")
}

func TestRegenerateByTypeReportsBadMetadata(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seed(t, s, "OPT1", "Batman Call", "option", `{"underlying":"Batman","expiry":"2025-06-20","strike":150,"option_type":"call"}`)
	seed(t, s, "OPT2", "Nameless Put", "option", `{"underlying":"Superman","expiry":"soon","strike":80}`)
	seed(t, s, "BAT", "Batman", "character", "")
	svc := newTestService(s)

	rep, err := svc.RegenerateByType(ctx, "option", 0, false)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Processed)
	assert.Equal(t, 1, rep.Changed)
	assert.Equal(t, 1, rep.Failed)
	require.Len(t, rep.Results, 2)
	assert.Equal(t, "BAT.O0620C150", rep.Results[0].NewSymbol)
	assert.Contains(t, rep.Results[1].Error, "expiry")

	_, err = svc.RegenerateByType(ctx, " ", 10, true)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestRegenerateAllPagesThroughEveryAsset(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seed(t, s, "X1", "Batman", "character", "")
	seed(t, s, "X2", "Green Goblin", "villain", "")
	seed(t, s, "SUP", "Superman", "character", "")
	svc := newTestService(s)

	rep, err := svc.RegenerateAll(ctx, 1, false)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Processed)
	assert.Equal(t, 2, rep.Changed)
	assert.Equal(t, 1, rep.Unchanged)
	assert.Nil(t, rep.Results)

	got, err := s.GetAssetBySymbol(ctx, "GG.V")
	require.NoError(t, err)
	assert.Equal(t, "Green Goblin", got.Name)
}
