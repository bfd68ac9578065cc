package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nyse() MarketSession {
	return MarketSession{
		Code:            "NYSE",
		Name:            "New York Stock Exchange",
		Timezone:        "America/New_York",
		RegularOpen:     "09:30",
		RegularClose:    "16:00",
		PreMarketOpen:   "04:00",
		AfterHoursClose: "20:00",
		Active:          true,
		Holidays:        []string{"2024-07-04"},
		EarlyCloseDates: []string{"2024-07-03"},
		LeadMarket:      true,
	}
}

func nyTime(t *testing.T, year int, month time.Month, day, hour, min int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return time.Date(year, month, day, hour, min, 0, 0, loc)
}

func TestIsMarketOpen(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"tuesday mid-morning", nyTime(t, 2024, time.March, 12, 10, 0), true},
		{"saturday", nyTime(t, 2024, time.March, 16, 10, 0), false},
		{"sunday", nyTime(t, 2024, time.March, 17, 10, 0), false},
		{"before open", nyTime(t, 2024, time.March, 12, 9, 29), false},
		{"at open", nyTime(t, 2024, time.March, 12, 9, 30), true},
		{"at close", nyTime(t, 2024, time.March, 12, 16, 0), true},
		{"after close", nyTime(t, 2024, time.March, 12, 16, 1), false},
		{"holiday", nyTime(t, 2024, time.July, 4, 11, 0), false},
		{"early close morning", nyTime(t, 2024, time.July, 3, 12, 0), true},
		{"early close afternoon", nyTime(t, 2024, time.July, 3, 14, 0), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := IsMarketOpen(nyse(), tc.at)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestIsMarketOpenConvertsToSessionTimezone(t *testing.T) {
	// 15:00 UTC on a Tuesday is 10:00 or 11:00 in New York.
	at := time.Date(2024, time.March, 12, 15, 0, 0, 0, time.UTC)
	got, err := IsMarketOpen(nyse(), at)
	require.NoError(t, err)
	assert.True(t, got)

	s := nyse()
	s.Timezone = "Asia/Tokyo"
	got, err = IsMarketOpen(s, at)
	require.NoError(t, err)
	assert.False(t, got, "00:00 in Tokyo")
}

func TestIsMarketOpenInactiveSession(t *testing.T) {
	s := nyse()
	s.Active = false
	got, err := IsMarketOpen(s, nyTime(t, 2024, time.March, 12, 10, 0))
	require.NoError(t, err)
	assert.False(t, got)
}

func TestIsMarketOpenBadSession(t *testing.T) {
	s := nyse()
	s.Timezone = "Mars/Olympus_Mons"
	_, err := IsMarketOpen(s, time.Now())
	require.ErrorIs(t, err, ErrInvalidSession)

	s = nyse()
	s.RegularOpen = "9h30"
	_, err = IsMarketOpen(s, nyTime(t, 2024, time.March, 12, 10, 0))
	require.ErrorIs(t, err, ErrInvalidSession)
}

func TestNextMarketOpen(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want time.Time
	}{
		{"before open same day", nyTime(t, 2024, time.March, 12, 8, 0), nyTime(t, 2024, time.March, 12, 9, 30)},
		{"after open rolls to tomorrow", nyTime(t, 2024, time.March, 12, 10, 0), nyTime(t, 2024, time.March, 13, 9, 30)},
		{"friday evening skips weekend", nyTime(t, 2024, time.March, 15, 17, 0), nyTime(t, 2024, time.March, 18, 9, 30)},
		{"saturday", nyTime(t, 2024, time.March, 16, 8, 0), nyTime(t, 2024, time.March, 18, 9, 30)},
		// Holidays are not skipped.
		{"day before holiday", nyTime(t, 2024, time.July, 3, 17, 0), nyTime(t, 2024, time.July, 4, 9, 30)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NextMarketOpen(nyse(), tc.at)
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got), "got %s want %s", got, tc.want)
		})
	}
}

func TestCrossMarketAdjustment(t *testing.T) {
	at := nyTime(t, 2024, time.March, 12, 10, 0)
	open := nyse()
	closed := nyse()
	closed.Active = false

	tests := []struct {
		name             string
		primary, trading MarketSession
		want             float64
	}{
		{"both open", open, open, 1.0},
		{"primary closed", closed, open, 0.8},
		{"trading closed", open, closed, 1.2},
		{"both closed", closed, closed, 0.6},
	}
	for _, tc := range tests {
		got, err := CrossMarketAdjustment(tc.primary, tc.trading, at)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, tc.name)
	}
}

func TestCurrentPhase(t *testing.T) {
	tests := []struct {
		at   time.Time
		want SessionPhase
	}{
		{nyTime(t, 2024, time.March, 12, 3, 0), PhaseClosed},
		{nyTime(t, 2024, time.March, 12, 5, 0), PhasePreMarket},
		{nyTime(t, 2024, time.March, 12, 12, 0), PhaseRegular},
		{nyTime(t, 2024, time.March, 12, 18, 0), PhaseAfterHours},
		{nyTime(t, 2024, time.March, 12, 21, 0), PhaseClosed},
		{nyTime(t, 2024, time.March, 16, 12, 0), PhaseClosed},
	}
	for _, tc := range tests {
		got, err := CurrentPhase(nyse(), tc.at)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, tc.at.String())
	}
}

func TestMarketSessionValidate(t *testing.T) {
	require.NoError(t, nyse().Validate())

	s := nyse()
	s.Code = ""
	require.ErrorIs(t, s.Validate(), ErrInvalidSession)

	s = nyse()
	s.AfterHoursClose = "25:00"
	require.ErrorIs(t, s.Validate(), ErrInvalidSession)
}
