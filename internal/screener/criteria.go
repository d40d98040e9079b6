package screener

import (
	"errors"
	"fmt"
)

// Mode selects the screening strategy.
type Mode string

const (
	ModeCoveredCalls Mode = "covered_calls"
	ModeLEAPS        Mode = "leaps"
)

var ErrInvalidCriteria = errors.New("invalid screener criteria")

// ParseMode converts a wire string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeCoveredCalls, ModeLEAPS:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidCriteria, s)
}

// Criteria are the caller-supplied thresholds applied to every candidate.
// MaxDelta caps the absolute delta, MinPremium is in dollars per share,
// MinAnnualizedReturn is a percentage.
type Criteria struct {
	MaxDelta            float64  `json:"maxDelta"`
	MinPremium          float64  `json:"minPremium"`
	MinAnnualizedReturn float64  `json:"minAnnualizedReturn"`
	Symbols             []string `json:"symbols"`
}

func (c *Criteria) Validate() error {
	if c.MaxDelta <= 0 || c.MaxDelta > 1 {
		return fmt.Errorf("%w: maxDelta must be in (0, 1], got %v", ErrInvalidCriteria, c.MaxDelta)
	}
	if c.MinPremium < 0 {
		return fmt.Errorf("%w: minPremium must be >= 0, got %v", ErrInvalidCriteria, c.MinPremium)
	}
	if c.MinAnnualizedReturn < 0 {
		return fmt.Errorf("%w: minAnnualizedReturn must be >= 0, got %v", ErrInvalidCriteria, c.MinAnnualizedReturn)
	}
	if len(c.Symbols) == 0 {
		return fmt.Errorf("%w: at least one symbol is required", ErrInvalidCriteria)
	}
	return nil
}
