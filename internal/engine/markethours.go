package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

var ErrInvalidSession = errors.New("invalid market session")

const defaultEarlyClose = "13:00"

// MarketSession is read-only reference data describing one exchange's trading day.
// Times are wall-clock "HH:MM" in Timezone; dates are "YYYY-MM-DD" in Timezone.
type MarketSession struct {
	Code            string   `json:"code" yaml:"code"`
	Name            string   `json:"name" yaml:"name"`
	Timezone        string   `json:"timezone" yaml:"timezone"`
	RegularOpen     string   `json:"regular_open" yaml:"regular_open"`
	RegularClose    string   `json:"regular_close" yaml:"regular_close"`
	PreMarketOpen   string   `json:"pre_market_open,omitempty" yaml:"pre_market_open"`
	AfterHoursClose string   `json:"after_hours_close,omitempty" yaml:"after_hours_close"`
	EarlyClose      string   `json:"early_close,omitempty" yaml:"early_close"`
	Active          bool     `json:"active" yaml:"active"`
	Holidays        []string `json:"holidays,omitempty" yaml:"holidays"`
	EarlyCloseDates []string `json:"early_close_dates,omitempty" yaml:"early_close_dates"`
	CrossTradingFee float64  `json:"cross_trading_fee" yaml:"cross_trading_fee"`
	AvgDailyVolume  float64  `json:"avg_daily_volume" yaml:"avg_daily_volume"`
	InfluenceWeight float64  `json:"influence_weight" yaml:"influence_weight"`
	LeadMarket      bool     `json:"lead_market" yaml:"lead_market"`
}

type SessionPhase string

const (
	PhaseClosed     SessionPhase = "closed"
	PhasePreMarket  SessionPhase = "pre_market"
	PhaseRegular    SessionPhase = "regular"
	PhaseAfterHours SessionPhase = "after_hours"
)

func (s MarketSession) Validate() error {
	if strings.TrimSpace(s.Code) == "" {
		return fmt.Errorf("%w: code is required", ErrInvalidSession)
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil || s.Timezone == "" {
		return fmt.Errorf("%w: %s: unknown timezone %q", ErrInvalidSession, s.Code, s.Timezone)
	}
	for _, hm := range []string{s.RegularOpen, s.RegularClose} {
		if _, _, err := parseClock(hm); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidSession, s.Code, err)
		}
	}
	for _, hm := range []string{s.PreMarketOpen, s.AfterHoursClose, s.EarlyClose} {
		if hm == "" {
			continue
		}
		if _, _, err := parseClock(hm); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidSession, s.Code, err)
		}
	}
	return nil
}

// IsMarketOpen reports whether the session's regular hours include now.
// Weekends, inactive sessions and listed holidays are closed; early-close
// dates end the day at EarlyClose (13:00 when unset).
func IsMarketOpen(s MarketSession, now time.Time) (bool, error) {
	loc, err := sessionLocation(s)
	if err != nil {
		return false, err
	}
	if !s.Active {
		return false, nil
	}
	local := now.In(loc)
	if isWeekend(local) || s.isHoliday(local) {
		return false, nil
	}
	open, err := atClock(local, s.RegularOpen)
	if err != nil {
		return false, err
	}
	closeAt, err := atClock(local, s.closeFor(local))
	if err != nil {
		return false, err
	}
	return !local.Before(open) && !local.After(closeAt), nil
}

// NextMarketOpen returns the next regular open at or after now, skipping weekends.
// Holidays are not skipped.
func NextMarketOpen(s MarketSession, now time.Time) (time.Time, error) {
	loc, err := sessionLocation(s)
	if err != nil {
		return time.Time{}, err
	}
	local := now.In(loc)
	next, err := atClock(local, s.RegularOpen)
	if err != nil {
		return time.Time{}, err
	}
	if !next.After(local) {
		next, err = atClock(local.AddDate(0, 0, 1), s.RegularOpen)
		if err != nil {
			return time.Time{}, err
		}
	}
	for isWeekend(next) {
		next, err = atClock(next.AddDate(0, 0, 1), s.RegularOpen)
		if err != nil {
			return time.Time{}, err
		}
	}
	return next, nil
}

// CrossMarketAdjustment returns the liquidity multiplier for trading an asset
// listed on primary through the trading market.
func CrossMarketAdjustment(primary, trading MarketSession, now time.Time) (float64, error) {
	primaryOpen, err := IsMarketOpen(primary, now)
	if err != nil {
		return 0, err
	}
	tradingOpen, err := IsMarketOpen(trading, now)
	if err != nil {
		return 0, err
	}
	switch {
	case primaryOpen && tradingOpen:
		return 1.0, nil
	case !primaryOpen && tradingOpen:
		return 0.8, nil
	case primaryOpen && !tradingOpen:
		return 1.2, nil
	default:
		return 0.6, nil
	}
}

// CurrentPhase classifies now against the extended-hours bounds of the session.
func CurrentPhase(s MarketSession, now time.Time) (SessionPhase, error) {
	open, err := IsMarketOpen(s, now)
	if err != nil {
		return PhaseClosed, err
	}
	if open {
		return PhaseRegular, nil
	}
	loc, _ := sessionLocation(s)
	local := now.In(loc)
	if !s.Active || isWeekend(local) || s.isHoliday(local) {
		return PhaseClosed, nil
	}
	regularOpen, err := atClock(local, s.RegularOpen)
	if err != nil {
		return PhaseClosed, err
	}
	if s.PreMarketOpen != "" {
		pre, err := atClock(local, s.PreMarketOpen)
		if err != nil {
			return PhaseClosed, err
		}
		if !local.Before(pre) && local.Before(regularOpen) {
			return PhasePreMarket, nil
		}
	}
	if s.AfterHoursClose != "" {
		regularClose, err := atClock(local, s.closeFor(local))
		if err != nil {
			return PhaseClosed, err
		}
		after, err := atClock(local, s.AfterHoursClose)
		if err != nil {
			return PhaseClosed, err
		}
		if local.After(regularClose) && !local.After(after) {
			return PhaseAfterHours, nil
		}
	}
	return PhaseClosed, nil
}

func (s MarketSession) isHoliday(local time.Time) bool {
	return containsDate(s.Holidays, local)
}

func (s MarketSession) closeFor(local time.Time) string {
	if containsDate(s.EarlyCloseDates, local) {
		if s.EarlyClose != "" {
			return s.EarlyClose
		}
		return defaultEarlyClose
	}
	return s.RegularClose
}

func containsDate(dates []string, local time.Time) bool {
	today := local.Format(time.DateOnly)
	for _, d := range dates {
		if strings.TrimSpace(d) == today {
			return true
		}
	}
	return false
}

func sessionLocation(s MarketSession) (*time.Location, error) {
	if s.Timezone == "" {
		return nil, fmt.Errorf("%w: %s: timezone is required", ErrInvalidSession, s.Code)
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSession, s.Code, err)
	}
	return loc, nil
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func atClock(day time.Time, hm string) (time.Time, error) {
	h, m, err := parseClock(hm)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	y, mo, d := day.Date()
	return time.Date(y, mo, d, h, m, 0, 0, day.Location()), nil
}

func parseClock(hm string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(hm), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("time %q must be HH:MM", hm)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("time %q has invalid hour", hm)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("time %q has invalid minute", hm)
	}
	return h, m, nil
}
