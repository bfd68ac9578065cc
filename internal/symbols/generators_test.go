package symbols

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strike(v float64) *float64 { return &v }

func TestGenerators(t *testing.T) {
	r := New()
	tests := []struct {
		name   string
		params Params
		want   string
	}{
		{"comic with era", ComicParams{Series: "Amazing Spider-Man", Volume: 1, Issue: 300, Era: "Bronze"}, "ASM.V1.#300.B"},
		{"comic defaults", ComicParams{Title: "Saga"}, "SAG.V1.#1"},
		{"comic without a name", ComicParams{}, "COMI.V1.#1"},
		{"comic too long for era", ComicParams{Series: "Some Very Long Series Name", Volume: 12, Issue: 1234, Era: "modern"}, "SOVL.V12.#1234"},
		{"character", CharacterParams{Name: "Batman"}, "BAT"},
		{"character acronym", CharacterParams{Name: "Kraven the Hunter"}, "KTH"},
		{"villain", VillainParams{Name: "Green Goblin"}, "GG.V"},
		{"sidekick", SidekickParams{Name: "Robin"}, "ROB.SK"},
		{"bond", BondParams{Issuer: "Wayne Enterprises", CouponRate: 5.5, MaturityYear: 2030}, "WE.B5.5.30"},
		{"option call", OptionParams{Underlying: "Batman", Expiry: "2025-06-20", Strike: strike(150.75), OptionType: "call"}, "BAT.O0620C150"},
		{"option put", OptionParams{Underlying: "Batman", Expiry: "2025-06-20", Strike: strike(150), OptionType: "put"}, "BAT.O0620P150"},
		{"option timestamp keeps written date", OptionParams{Underlying: "Batman", Expiry: "2025-01-17T23:30:00-05:00", Strike: strike(10), OptionType: "put"}, "BAT.O0117P10"},
		{"option expiry code", OptionParams{Name: "Superman", ExpiryCode: "1231", Strike: strike(75), OptionType: "CALL"}, "SUP.O1231C75"},
		{"fund", FundParams{Name: "Heroic Growth", FundClass: "growth", Focus: "tech"}, "HG.FGT"},
		{"fund default class", FundParams{Name: "Heroic Growth"}, "HG.FB"},
		{"etf", ETFParams{Name: "Mutant Index", ETFClass: "index", Focus: "mutants"}, "MI.EIM"},
		{"derivative", DerivativeParams{Underlying: "Spider-Man", Instrument: "future", Tenor: "3M"}, "SM.DF3M"},
		{"derivative forward", DerivativeParams{Underlying: "Spider-Man", Instrument: "Forward", Tenor: "6m"}, "SM.DFW6M"},
		{"derivative unknown instrument", DerivativeParams{Underlying: "Batman", Instrument: "collar", Tenor: "1Y"}, "BAT.DC1Y"},
		{"crypto", CryptoParams{Name: "Gotham Coin"}, "GC.X"},
		{"nft", NFTParams{Collection: "Cosmic Cards", CollectionID: "7", TokenID: "42"}, "CC.N7.42"},
		{"nft default id", NFTParams{Name: "Cosmic Cards"}, "CC.N1"},
		{"gadget", GadgetParams{Name: "Utility Belt", Owner: "Batman", Slot: 2}, "UB.GBAT2"},
		{"gadget without owner", GadgetParams{Name: "Batarang"}, "BATA.G1"},
		{"location", LocationParams{Name: "Gotham City", Country: "United States", City: "New Jersey"}, "GC.LUSNJ"},
		{"location default country", LocationParams{Name: "Metropolis"}, "METR.LUS"},
		{"pet", PetParams{Name: "Ace the Bat-Hound", Owner: "Batman"}, "ATB.PBAT"},
		{"creator", CreatorParams{Name: "Stan Lee", Role: "writer"}, "LEE.CSW"},
		{"creator default role", CreatorParams{Name: "Jack Kirby"}, "KIRB.CJC"},
		{"generic", GenericParams{Type: "mystery", Name: "Infinity Gauntlet"}, "IG"},
		{"generic without a name", GenericParams{Type: "mystery"}, "UNKNOWN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Symbol(tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGeneratorsStayWithinLength(t *testing.T) {
	r := New()
	long := "Extraordinarily Lengthy Multiversal Crossover Spectacular Event Series"
	params := []Params{
		ComicParams{Series: long, Volume: 123456, Issue: 987654, Era: "golden"},
		CharacterParams{Name: long},
		VillainParams{Name: long},
		SidekickParams{Name: long},
		BondParams{Issuer: long, CouponRate: 12.3456789, MaturityYear: 2099},
		OptionParams{Underlying: long, Expiry: "2031-01-17", Strike: strike(123456789), OptionType: "call"},
		FundParams{Name: long, FundClass: "value", Focus: "cosmic"},
		ETFParams{Name: long, ETFClass: "leveraged", Focus: "villains"},
		DerivativeParams{Underlying: long, Instrument: "warrant", Tenor: "120MONTHS"},
		CryptoParams{Name: long},
		NFTParams{Collection: long, CollectionID: "123456789012", TokenID: "99"},
		GadgetParams{Name: long, Owner: long, Slot: 1234567},
		LocationParams{Name: long, Country: long, City: long},
		PetParams{Name: long, Owner: long},
		CreatorParams{Name: "Bartholomew Jebediah Zachariah Montgomery Fitzgerald", Role: "penciller"},
		GenericParams{Type: "relic", Name: long},
	}
	for _, p := range params {
		got, err := r.Symbol(p)
		require.NoError(t, err, "%T", p)
		assert.LessOrEqual(t, len(got), MaxSymbolLength, "%T: %s", p, got)
		assert.Regexp(t, tickerRE, got, "%T", p)
		assert.False(t, strings.HasSuffix(got, "."), "%T: %s", p, got)

		again, err := r.Symbol(p)
		require.NoError(t, err)
		assert.Equal(t, got, again, "deterministic for %T", p)
	}
}

func TestEveryAssetTypeHasAGenerator(t *testing.T) {
	for _, typ := range AssetTypes() {
		g, ok := generators[typ]
		require.True(t, ok, typ)

		p, err := g.decode(nil)
		require.NoError(t, err, typ)
		assert.Equal(t, typ, p.AssetType())
	}
	assert.Len(t, generators, len(AssetTypes()))
}

func TestOptionValidation(t *testing.T) {
	r := New()

	_, err := r.Option(OptionParams{Underlying: "Batman", Strike: strike(100)})
	assert.ErrorIs(t, err, ErrInvalidExpiry)

	_, err = r.Option(OptionParams{Underlying: "Batman", Expiry: "next friday", Strike: strike(100)})
	assert.ErrorIs(t, err, ErrInvalidExpiry)

	_, err = r.Option(OptionParams{Underlying: "Batman", Expiry: "2025-06-20"})
	assert.ErrorIs(t, err, ErrInvalidStrike)

	_, err = r.Option(OptionParams{Underlying: "Batman", Expiry: "2025-06-20", Strike: strike(0)})
	assert.ErrorIs(t, err, ErrInvalidStrike)

	_, err = r.Option(OptionParams{Underlying: "Batman", Expiry: "2025-06-20", Strike: strike(-5)})
	assert.ErrorIs(t, err, ErrInvalidStrike)
}

func TestGeneratorsRequireAName(t *testing.T) {
	r := New()
	for _, p := range []Params{CharacterParams{}, VillainParams{Name: "  "}, BondParams{CouponRate: 1, MaturityYear: 2030}, CreatorParams{}} {
		_, err := r.Symbol(p)
		assert.ErrorIs(t, err, ErrInvalidParams, "%T", p)
	}

	_, err := r.Bond(BondParams{Issuer: "Wayne", CouponRate: 4})
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestDecodeParams(t *testing.T) {
	p, err := DecodeParams("Hero", json.RawMessage(`{"name":"Batman","publisher":"DC"}`))
	require.NoError(t, err)
	assert.Equal(t, CharacterParams{Name: "Batman"}, p)

	p, err = DecodeParams("option", json.RawMessage(`{"underlying":"Batman","expiry":"2025-06-20","strike":150,"option_type":"call"}`))
	require.NoError(t, err)
	op, ok := p.(OptionParams)
	require.True(t, ok)
	require.NotNil(t, op.Strike)
	assert.Equal(t, 150.0, *op.Strike)

	p, err = DecodeParams("relic", json.RawMessage(`{"name":"Cosmic Cube"}`))
	require.NoError(t, err)
	assert.Equal(t, GenericParams{Type: "relic", Name: "Cosmic Cube"}, p)

	p, err = DecodeParams("comic", nil)
	require.NoError(t, err)
	assert.Equal(t, ComicParams{}, p)

	_, err = DecodeParams("comic", json.RawMessage(`{"issue":"three"}`))
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestDecodeWithNameFillsMissingName(t *testing.T) {
	p, err := decodeWithName("villain", "Green Goblin", json.RawMessage(`{"first_appearance":"ASM #14"}`))
	require.NoError(t, err)
	assert.Equal(t, VillainParams{Name: "Green Goblin"}, p)

	p, err = decodeWithName("villain", "Norman Osborn", json.RawMessage(`{"name":"Green Goblin"}`))
	require.NoError(t, err)
	assert.Equal(t, VillainParams{Name: "Green Goblin"}, p)

	_, err = decodeWithName("villain", "x", json.RawMessage(`[1,2]`))
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestResolveAppendsCounter(t *testing.T) {
	ctx := context.Background()
	taken := map[string]bool{"BAT": true, "BAT.1": true}
	got, err := New().Generate(ctx, CharacterParams{Name: "Batman"}, func(_ context.Context, s string) (bool, error) {
		return taken[s], nil
	})
	require.NoError(t, err)
	assert.Equal(t, "BAT.2", got)

	free, err := Resolve(ctx, "BAT", nil)
	require.NoError(t, err)
	assert.Equal(t, "BAT", free)
}

func TestResolveTruncatesLongBase(t *testing.T) {
	ctx := context.Background()
	base := "ABCDEFGHIJKLMNOP"

	takenBelow := func(limit int) ExistsFunc {
		calls := 0
		return func(context.Context, string) (bool, error) {
			calls++
			return calls <= limit, nil
		}
	}

	got, err := Resolve(ctx, base, takenBelow(1))
	require.NoError(t, err)
	assert.Equal(t, "ABCDEFGHIJKLMN.1", got)

	got, err = Resolve(ctx, base, takenBelow(10))
	require.NoError(t, err)
	assert.Equal(t, "ABCDEFGHIJKLM.10", got)

	got, err = Resolve(ctx, "ABCDEFGHIJKL.MNOP", takenBelow(100))
	require.NoError(t, err)
	assert.Equal(t, "ABCDEFGHIJKL.100", got)

	got, err = Resolve(ctx, "ABCDEFGHIJK.LMNOP", takenBelow(100))
	require.NoError(t, err)
	assert.Equal(t, "ABCDEFGHIJK.100", got, "a dangling dot is trimmed before the counter")
}

func TestResolveExhaustsSymbolSpace(t *testing.T) {
	calls := 0
	var last string
	_, err := Resolve(context.Background(), "BAT", func(_ context.Context, s string) (bool, error) {
		calls++
		last = s
		return true, nil
	})
	require.ErrorIs(t, err, ErrSymbolSpaceExhausted)
	assert.Equal(t, maxCollisionChecks, calls)
	assert.Equal(t, "BAT.998", last)
}

func TestResolvePropagatesLookupErrors(t *testing.T) {
	boom := errors.New("db down")
	_, err := Resolve(context.Background(), "BAT", func(context.Context, string) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Resolve(ctx, "BAT", func(context.Context, string) (bool, error) { return false, nil })
	assert.ErrorIs(t, err, context.Canceled)
}
