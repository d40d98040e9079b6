// Package pricing implements a closed-form Black-Scholes pricer for
// European options: theoretical price, the standard Greeks, and the
// expected-move statistic derived from implied volatility.
package pricing

import (
	"math"
	"regexp"
)

// Input bounds. Expiry is capped at five years; volatility is an annualized
// decimal fraction (0.25 = 25%).
const (
	MaxDaysToExpiry = 1825
	MaxVolatility   = 5.0

	DefaultVolatility  = 0.25
	DefaultRiskFreeRate = 0.05

	daysPerYear = 365.0
)

// OptionType is the contract right: call or put.
type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

var symbolPattern = regexp.MustCompile(`^[A-Z]{1,6}([.\-][A-Z]{1,2})?$`)

// QuoteRequest holds the five pricing inputs plus the contract identity.
// Volatility and RiskFreeRate are optional; nil means "use the default",
// so a deliberate zero is never silently replaced.
type QuoteRequest struct {
	Symbol       string     `json:"symbol"`
	SpotPrice    float64    `json:"spotPrice"`
	StrikePrice  float64    `json:"strikePrice"`
	DaysToExpiry int        `json:"daysToExpiry"`
	Volatility   *float64   `json:"volatility,omitempty"`
	RiskFreeRate *float64   `json:"riskFreeRate,omitempty"`
	OptionType   OptionType `json:"optionType"`
}

// Greeks is the pricer output. Price, theta, vega and rho are rounded to
// 2 decimals, delta to 3, gamma to 4. Vega is per one volatility point,
// theta per calendar day, rho per one rate point.
type Greeks struct {
	Price float64 `json:"price"`
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
	Rho   float64 `json:"rho"`
}

// Validate checks every field and returns a ValidationError naming the
// first one that fails. Zero days to expiry is rejected: with T=0 the
// Black-Scholes denominator collapses, and an expired contract is worth
// only its intrinsic value, which is not a quote this pricer produces.
func (r *QuoteRequest) Validate() error {
	if !symbolPattern.MatchString(r.Symbol) {
		return invalidField("symbol", KindInvalidSymbol, "%q is not a valid ticker", r.Symbol)
	}
	if r.SpotPrice <= 0 || math.IsNaN(r.SpotPrice) || math.IsInf(r.SpotPrice, 0) {
		return invalidField("spotPrice", KindInvalidPrice, "must be a positive number, got %v", r.SpotPrice)
	}
	if r.StrikePrice <= 0 || math.IsNaN(r.StrikePrice) || math.IsInf(r.StrikePrice, 0) {
		return invalidField("strikePrice", KindInvalidPrice, "must be a positive number, got %v", r.StrikePrice)
	}
	if r.DaysToExpiry <= 0 || r.DaysToExpiry > MaxDaysToExpiry {
		return invalidField("daysToExpiry", KindInvalidExpiry, "must be in [1, %d], got %d", MaxDaysToExpiry, r.DaysToExpiry)
	}
	if r.Volatility != nil {
		if v := *r.Volatility; v <= 0 || v > MaxVolatility || math.IsNaN(v) {
			return invalidField("volatility", KindInvalidVolatility, "must be in (0, %g], got %v", MaxVolatility, v)
		}
	}
	if r.RiskFreeRate != nil {
		if v := *r.RiskFreeRate; math.IsNaN(v) || math.IsInf(v, 0) {
			return invalidField("riskFreeRate", KindInvalidPrice, "must be a finite number, got %v", v)
		}
	}
	if r.OptionType != Call && r.OptionType != Put {
		return invalidField("optionType", KindInvalidOptionType, "must be %q or %q, got %q", Call, Put, r.OptionType)
	}
	return nil
}

func (r *QuoteRequest) volatility() float64 {
	if r.Volatility == nil {
		return DefaultVolatility
	}
	return *r.Volatility
}

func (r *QuoteRequest) riskFreeRate() float64 {
	if r.RiskFreeRate == nil {
		return DefaultRiskFreeRate
	}
	return *r.RiskFreeRate
}

// Price computes the theoretical value and Greeks for the request.
// It is a pure function; the only failure mode is input validation.
func Price(req *QuoteRequest) (*Greeks, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		s     = req.SpotPrice
		k     = req.StrikePrice
		v     = req.volatility()
		r     = req.riskFreeRate()
		t     = float64(req.DaysToExpiry) / daysPerYear
		sqrtT = math.Sqrt(t)
	)

	d1 := (math.Log(s/k) + (r+0.5*v*v)*t) / (v * sqrtT)
	d2 := d1 - v*sqrtT
	discount := math.Exp(-r * t)

	var price, delta, theta, rho float64
	switch req.OptionType {
	case Call:
		price = s*normCDF(d1) - k*discount*normCDF(d2)
		delta = normCDF(d1)
		theta = -(s*normPDF(d1)*v)/(2*sqrtT) - r*k*discount*normCDF(d2)
		rho = k * t * discount * normCDF(d2)
	case Put:
		price = k*discount*normCDF(-d2) - s*normCDF(-d1)
		delta = normCDF(d1) - 1
		theta = -(s*normPDF(d1)*v)/(2*sqrtT) + r*k*discount*normCDF(-d2)
		rho = -k * t * discount * normCDF(-d2)
	}

	gamma := normPDF(d1) / (s * v * sqrtT)
	vega := s * normPDF(d1) * sqrtT

	g := &Greeks{
		Price: round2(price),
		Delta: round3(delta),
		Gamma: round4(gamma),
		Theta: round2(theta / daysPerYear),
		Vega:  round2(vega / 100),
		Rho:   round2(rho / 100),
	}

	// The closed form keeps delta in range analytically, but rounding on
	// extreme inputs can drift a hair past the bound. Clamp after rounding.
	switch req.OptionType {
	case Call:
		g.Delta = clamp(g.Delta, 0, 1)
	case Put:
		g.Delta = clamp(g.Delta, -1, 0)
	}

	return g, nil
}

// normCDF is the standard normal cumulative distribution function. The
// erf form is exact to machine precision, well past the four significant
// digits a rational-polynomial approximation would give.
func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// normPDF is the standard normal density.
func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }
func round3(x float64) float64 { return math.Round(x*1000) / 1000 }
func round4(x float64) float64 { return math.Round(x*10000) / 10000 }

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
