package screener

import (
	"time"

	"github.com/traderlab/optionscan/internal/pricing"
)

// Candidate is one contract instance under evaluation: the raw inputs
// before metrics are computed.
type Candidate struct {
	Symbol            string
	StockPrice        float64
	StrikePrice       float64
	ExpirationDate    string // YYYY-MM-DD
	DaysToExpiry      int
	OptionType        pricing.OptionType
	Premium           float64
	ImpliedVolatility float64
	OpenInterest      int
}

// Result is a Candidate enriched with the computed risk and return
// metrics. PremiumPercent, AnnualizedReturn and DownsideProtection are
// percentages; MaxProfit and Breakeven are per-share dollar figures.
type Result struct {
	Symbol             string             `json:"symbol"`
	StockPrice         float64            `json:"stockPrice"`
	StrikePrice        float64            `json:"strikePrice"`
	ExpirationDate     string             `json:"expirationDate"`
	DaysToExpiry       int                `json:"daysToExpiry"`
	OptionType         pricing.OptionType `json:"optionType"`
	Premium            float64            `json:"premium"`
	ImpliedVolatility  float64            `json:"impliedVolatility"`
	OpenInterest       int                `json:"openInterest,omitempty"`
	Delta              float64            `json:"delta"`
	PremiumPercent     float64            `json:"premiumPercent"`
	AnnualizedReturn   float64            `json:"annualizedReturn"`
	DownsideProtection float64            `json:"downsideProtection"`
	MaxProfit          float64            `json:"maxProfit"`
	Breakeven          float64            `json:"breakeven"`
}

// Report is the envelope for one scan. Synthetic is true when the whole
// universe yielded no usable data and the results are generated samples
// rather than live quotes.
type Report struct {
	ScanID    string        `json:"scanId"`
	Mode      Mode          `json:"mode"`
	Synthetic bool          `json:"synthetic"`
	Universe  int           `json:"universe"`
	Skipped   []string      `json:"skipped,omitempty"`
	Results   []Result      `json:"results"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
}
