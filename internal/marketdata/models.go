package marketdata

// Quote is a delayed snapshot of the underlying.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	PreviousClose float64 `json:"previousClose"`
	ChangePercent float64 `json:"changePercent"`
}

// Contract is one listed option at a single strike.
type Contract struct {
	Strike            float64 `json:"strike"`
	Bid               float64 `json:"bid"`
	Ask               float64 `json:"ask"`
	Last              float64 `json:"last"`
	ImpliedVolatility float64 `json:"impliedVolatility"`
	OpenInterest      int     `json:"openInterest"`
}

// Expiration groups the call and put sides listed for one expiry date.
type Expiration struct {
	Date  string     `json:"expirationDate"` // YYYY-MM-DD
	Calls []Contract `json:"calls"`
	Puts  []Contract `json:"puts"`
}

// OptionChain is the full listed chain for one underlying.
type OptionChain struct {
	Symbol      string       `json:"symbol"`
	Expirations []Expiration `json:"expirations"`
}

// Mid returns the bid/ask midpoint, falling back to whichever side is
// quoted, then to the last trade. Zero means the contract has no usable
// price.
func (c *Contract) Mid() float64 {
	switch {
	case c.Bid > 0 && c.Ask > 0:
		return (c.Bid + c.Ask) / 2
	case c.Bid > 0:
		return c.Bid
	case c.Ask > 0:
		return c.Ask
	default:
		return c.Last
	}
}
