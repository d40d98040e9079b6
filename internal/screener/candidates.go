package screener

import (
	"math"
	"time"

	"github.com/traderlab/optionscan/internal/marketdata"
	"github.com/traderlab/optionscan/internal/pricing"
)

// Near-the-money strike offsets and expiry ladders used when deriving a
// grid from the quote alone.
var (
	callStrikeMultipliers = []float64{1.02, 1.05, 1.08, 1.10}
	putStrikeMultipliers  = []float64{0.98, 0.95, 0.92, 0.90}

	nearTermExpiryDays  = []int{14, 21, 30, 45}
	longDatedExpiryDays = []int{270, 365, 545, 730}
)

const dateLayout = "2006-01-02"

// chainCandidates enumerates the listed chain, keeping only contracts
// inside the mode's expiry band. Covered-call mode takes out-of-the-money
// calls; LEAPS mode takes both sides.
func (s *Scanner) chainCandidates(mode Mode, symbol string, spot float64, chain *marketdata.OptionChain) []Candidate {
	var candidates []Candidate

	for _, exp := range chain.Expirations {
		dte := s.daysUntil(exp.Date)
		if !s.inBand(mode, dte) {
			continue
		}

		switch mode {
		case ModeCoveredCalls:
			for _, contract := range exp.Calls {
				if contract.Strike <= spot {
					continue
				}
				candidates = append(candidates, newCandidate(symbol, spot, exp.Date, dte, pricing.Call, contract))
			}
		case ModeLEAPS:
			for _, contract := range exp.Calls {
				candidates = append(candidates, newCandidate(symbol, spot, exp.Date, dte, pricing.Call, contract))
			}
			for _, contract := range exp.Puts {
				candidates = append(candidates, newCandidate(symbol, spot, exp.Date, dte, pricing.Put, contract))
			}
		}
	}

	return candidates
}

// gridCandidates derives strike/expiry pairs from the quote when the
// provider lists no chain. Premium and IV stay zero so evaluation falls
// back to the volatility-scaled estimate.
func (s *Scanner) gridCandidates(mode Mode, symbol string, spot float64) []Candidate {
	var candidates []Candidate

	offsets := nearTermExpiryDays
	if mode == ModeLEAPS {
		offsets = longDatedExpiryDays
	}

	for _, offset := range offsets {
		date, dte := s.expiryFor(offset)
		if !s.inBand(mode, dte) {
			continue
		}

		for _, mult := range callStrikeMultipliers {
			candidates = append(candidates, Candidate{
				Symbol:         symbol,
				StockPrice:     spot,
				StrikePrice:    roundStrike(spot * mult),
				ExpirationDate: date,
				DaysToExpiry:   dte,
				OptionType:     pricing.Call,
			})
		}
		if mode == ModeLEAPS {
			for _, mult := range putStrikeMultipliers {
				candidates = append(candidates, Candidate{
					Symbol:         symbol,
					StockPrice:     spot,
					StrikePrice:    roundStrike(spot * mult),
					ExpirationDate: date,
					DaysToExpiry:   dte,
					OptionType:     pricing.Put,
				})
			}
		}
	}

	return candidates
}

func (s *Scanner) inBand(mode Mode, dte int) bool {
	switch mode {
	case ModeCoveredCalls:
		return dte >= s.cfg.NearTermMinDays && dte <= s.cfg.NearTermMaxDays
	case ModeLEAPS:
		return dte >= s.cfg.LongDatedMinDays && dte <= pricing.MaxDaysToExpiry
	}
	return false
}

// expiryFor turns a day offset into a concrete expiration date, rolled
// back to the nearest NYSE business day.
func (s *Scanner) expiryFor(offsetDays int) (string, int) {
	target := s.now().AddDate(0, 0, offsetDays)
	for i := 0; i < 7 && !s.nyse.IsBusinessDay(target); i++ {
		target = target.AddDate(0, 0, -1)
	}
	dte := int(math.Round(target.Sub(s.now()).Hours() / 24))
	if dte < 1 {
		dte = 1
	}
	return target.Format(dateLayout), dte
}

// daysUntil parses a chain expiration date and returns whole days from
// now, zero for unparseable or past dates.
func (s *Scanner) daysUntil(date string) int {
	expiry, err := time.Parse(dateLayout, date)
	if err != nil {
		return 0
	}
	// Expiration is taken at the 16:00 ET close.
	expiry = time.Date(expiry.Year(), expiry.Month(), expiry.Day(), 16, 0, 0, 0, time.FixedZone("ET", -5*3600))
	days := int(math.Round(expiry.Sub(s.now()).Hours() / 24))
	if days < 0 {
		return 0
	}
	return days
}

func newCandidate(symbol string, spot float64, date string, dte int, typ pricing.OptionType, c marketdata.Contract) Candidate {
	return Candidate{
		Symbol:            symbol,
		StockPrice:        spot,
		StrikePrice:       c.Strike,
		ExpirationDate:    date,
		DaysToExpiry:      dte,
		OptionType:        typ,
		Premium:           c.Mid(),
		ImpliedVolatility: c.ImpliedVolatility,
		OpenInterest:      c.OpenInterest,
	}
}

// roundStrike snaps a derived strike to the nearest half dollar.
func roundStrike(strike float64) float64 {
	return math.Round(strike*2) / 2
}
