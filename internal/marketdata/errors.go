package marketdata

import "errors"

var (
	ErrNotFound      = errors.New("no market data for this symbol")
	ErrRateLimited   = errors.New("rate limited by data provider")
	ErrQuotaExceeded = errors.New("data provider quota exceeded")
	ErrAuthFailed    = errors.New("data provider authentication failed")
)
