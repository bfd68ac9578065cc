package engine

import (
	"errors"
	"fmt"
	"math"
)

type OptionType string

const (
	OptionCall OptionType = "call"
	OptionPut  OptionType = "put"
)

const DefaultRiskFreeRate = 0.05

var ErrInvalidOptionInput = errors.New("invalid option input")

// OptionContract is the input to a single Black-Scholes evaluation.
// Years is time to expiration in years; Rate and Volatility are annualized decimals.
type OptionContract struct {
	Underlying float64    `json:"underlying"`
	Strike     float64    `json:"strike"`
	Years      float64    `json:"years"`
	Rate       float64    `json:"rate"`
	Volatility float64    `json:"volatility"`
	Type       OptionType `json:"type"`
}

// Greeks holds the fair value and sensitivities of an option.
// Theta is per calendar day, Vega per 1 vol point, Rho per 1 rate point.
type Greeks struct {
	Price          float64 `json:"price"`
	Delta          float64 `json:"delta"`
	Gamma          float64 `json:"gamma"`
	Theta          float64 `json:"theta"`
	Vega           float64 `json:"vega"`
	Rho            float64 `json:"rho"`
	IntrinsicValue float64 `json:"intrinsic_value"`
	TimeValue      float64 `json:"time_value"`
}

func (c OptionContract) Validate() error {
	switch {
	case c.Type != OptionCall && c.Type != OptionPut:
		return fmt.Errorf("%w: type must be call or put", ErrInvalidOptionInput)
	case !positiveFinite(c.Underlying):
		return fmt.Errorf("%w: underlying price must be > 0", ErrInvalidOptionInput)
	case !positiveFinite(c.Strike):
		return fmt.Errorf("%w: strike price must be > 0", ErrInvalidOptionInput)
	case !positiveFinite(c.Years):
		return fmt.Errorf("%w: time to expiration must be > 0", ErrInvalidOptionInput)
	case !positiveFinite(c.Volatility):
		return fmt.Errorf("%w: volatility must be > 0", ErrInvalidOptionInput)
	case math.IsNaN(c.Rate) || math.IsInf(c.Rate, 0):
		return fmt.Errorf("%w: rate must be finite", ErrInvalidOptionInput)
	}
	return nil
}

// PriceOption evaluates Black-Scholes for c. Degenerate contracts (zero time or
// volatility, non-positive prices) are rejected rather than producing NaN.
func PriceOption(c OptionContract) (Greeks, error) {
	if err := c.Validate(); err != nil {
		return Greeks{}, err
	}
	return priceOption(c), nil
}

func priceOption(c OptionContract) Greeks {
	s, k, t, r, sigma := c.Underlying, c.Strike, c.Years, c.Rate, c.Volatility
	sqrtT := math.Sqrt(t)
	d1 := (math.Log(s/k) + (r+0.5*sigma*sigma)*t) / (sigma * sqrtT)
	d2 := d1 - sigma*sqrtT
	discount := k * math.Exp(-r*t)
	pdf := normPDF(d1)

	var out Greeks
	var theta float64
	decay := -(s * pdf * sigma) / (2 * sqrtT)
	if c.Type == OptionCall {
		nd2 := normCDF(d2)
		out.Price = s*normCDF(d1) - discount*nd2
		out.Delta = normCDF(d1)
		out.Rho = t * discount * nd2 / 100
		out.IntrinsicValue = math.Max(s-k, 0)
		theta = decay - r*discount*nd2
	} else {
		nMinusD2 := normCDF(-d2)
		out.Price = discount*nMinusD2 - s*normCDF(-d1)
		out.Delta = -normCDF(-d1)
		out.Rho = -t * discount * nMinusD2 / 100
		out.IntrinsicValue = math.Max(k-s, 0)
		theta = decay + r*discount*nMinusD2
	}
	out.Gamma = pdf / (s * sigma * sqrtT)
	out.Theta = theta / 365
	out.Vega = s * sqrtT * pdf / 100

	out.TimeValue = math.Max(out.Price-out.IntrinsicValue, 0)
	out.Price = math.Max(out.Price, 0)
	return out
}

type ivConfig struct {
	tolerance     float64
	maxIterations int
}

type IVOption func(*ivConfig)

func WithTolerance(tol float64) IVOption {
	return func(c *ivConfig) {
		if tol > 0 {
			c.tolerance = tol
		}
	}
}

func WithMaxIterations(n int) IVOption {
	return func(c *ivConfig) {
		if n > 0 {
			c.maxIterations = n
		}
	}
}

const (
	minImpliedVol = 0.001
	maxImpliedVol = 5.0
	ivStartGuess  = 0.3
)

// ImpliedVolatility solves for the volatility that reproduces marketPrice using
// Newton-Raphson from 30%. If vega underflows to zero the last estimate is returned.
func ImpliedVolatility(marketPrice, underlying, strike, years, rate float64, typ OptionType, opts ...IVOption) (float64, error) {
	cfg := ivConfig{tolerance: 1e-4, maxIterations: 100}
	for _, opt := range opts {
		opt(&cfg)
	}
	if !positiveFinite(marketPrice) {
		return 0, fmt.Errorf("%w: market price must be > 0", ErrInvalidOptionInput)
	}
	contract := OptionContract{
		Underlying: underlying,
		Strike:     strike,
		Years:      years,
		Rate:       rate,
		Volatility: ivStartGuess,
		Type:       typ,
	}
	if err := contract.Validate(); err != nil {
		return 0, err
	}

	sigma := ivStartGuess
	for i := 0; i < cfg.maxIterations; i++ {
		contract.Volatility = sigma
		g := priceOption(contract)
		diff := g.Price - marketPrice
		if math.Abs(diff) < cfg.tolerance {
			return sigma, nil
		}
		vega := g.Vega * 100
		if vega == 0 {
			break
		}
		sigma -= diff / vega
		sigma = math.Max(minImpliedVol, math.Min(sigma, maxImpliedVol))
	}
	return sigma, nil
}

// normCDF is the Abramowitz-Stegun 7.1.26 approximation (|error| < 1.5e-7).
func normCDF(x float64) float64 {
	const (
		a1 = 0.254829592
		a2 = -0.284496736
		a3 = 1.421413741
		a4 = -1.453152027
		a5 = 1.061405429
		p  = 0.3275911
	)
	sign := 1.0
	if x < 0 {
		sign = -1.0
	}
	x = math.Abs(x) / math.Sqrt2
	t := 1.0 / (1.0 + p*x)
	y := 1.0 - (((((a5*t+a4)*t)+a3)*t+a2)*t+a1)*t*math.Exp(-x*x)
	return 0.5 * (1.0 + sign*y)
}

func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
