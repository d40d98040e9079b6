package pricing

import "math"

// ExpectedMove is the one-standard-deviation price band implied by
// volatility over the life of the contract.
type ExpectedMove struct {
	Move       float64 `json:"expectedMove"`
	Percent    float64 `json:"expectedMovePercent"`
	UpperBound float64 `json:"upperBound"`
	LowerBound float64 `json:"lowerBound"`
}

// ComputeExpectedMove returns S·v·√T and the bounds around spot.
// Zero days is allowed here: an expired horizon has no expected move.
func ComputeExpectedMove(spot, volatility float64, daysToExpiry int) (*ExpectedMove, error) {
	if spot <= 0 || math.IsNaN(spot) || math.IsInf(spot, 0) {
		return nil, invalidField("spotPrice", KindInvalidPrice, "must be a positive number, got %v", spot)
	}
	if volatility <= 0 || volatility > MaxVolatility || math.IsNaN(volatility) {
		return nil, invalidField("volatility", KindInvalidVolatility, "must be in (0, %g], got %v", MaxVolatility, volatility)
	}
	if daysToExpiry < 0 || daysToExpiry > MaxDaysToExpiry {
		return nil, invalidField("daysToExpiry", KindInvalidExpiry, "must be in [0, %d], got %d", MaxDaysToExpiry, daysToExpiry)
	}

	move := spot * volatility * math.Sqrt(float64(daysToExpiry)/daysPerYear)

	return &ExpectedMove{
		Move:       round2(move),
		Percent:    round2(move / spot * 100),
		UpperBound: round2(spot + move),
		LowerBound: round2(spot - move),
	}, nil
}
