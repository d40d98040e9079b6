// Package screener enumerates option contracts across a symbol universe,
// prices them, and filters and ranks the survivors by annualized return.
package screener

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/scmhub/calendar"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/traderlab/optionscan/internal/marketdata"
	"github.com/traderlab/optionscan/internal/pricing"
)

// Config carries the screening bands and floors. The zero PriceCeiling
// means the covered-call mode accepts any underlying price.
type Config struct {
	ResultCap        int
	PriceCeiling     float64
	PremiumFloor     float64
	NearTermMinDays  int
	NearTermMaxDays  int
	LongDatedMinDays int
	RiskFreeRate     float64
}

func DefaultConfig() Config {
	return Config{
		ResultCap:        20,
		PriceCeiling:     0,
		PremiumFloor:     0.05,
		NearTermMinDays:  14,
		NearTermMaxDays:  45,
		LongDatedMinDays: 270,
		RiskFreeRate:     pricing.DefaultRiskFreeRate,
	}
}

// Scanner runs single-pass scans over a symbol universe. The rate
// limiter paces provider calls; the rand source feeds only the
// synthetic fallback, so a seeded source makes degraded output
// reproducible.
type Scanner struct {
	provider marketdata.Provider
	limiter  *rate.Limiter
	cfg      Config
	rng      *rand.Rand
	nyse     *calendar.Calendar
	now      func() time.Time
	logger   *zap.Logger
}

func New(provider marketdata.Provider, limiter *rate.Limiter, cfg Config, rng *rand.Rand, logger *zap.Logger) *Scanner {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Limit(10), 10)
	}
	if cfg.ResultCap <= 0 {
		cfg.ResultCap = DefaultConfig().ResultCap
	}
	return &Scanner{
		provider: provider,
		limiter:  limiter,
		cfg:      cfg,
		rng:      rng,
		nyse:     calendar.XNYS(),
		now:      time.Now,
		logger:   logger,
	}
}

// Scan evaluates the universe for one mode and returns the ranked
// report. Per-symbol provider failures skip the symbol; only context
// cancellation or invalid criteria fail the call. A universe with no
// usable data at all degrades to a synthetic sample report.
func (s *Scanner) Scan(ctx context.Context, mode Mode, criteria *Criteria) (*Report, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	if err := criteria.Validate(); err != nil {
		return nil, err
	}

	started := s.now()
	report := &Report{
		ScanID:    uuid.New().String(),
		Mode:      mode,
		Universe:  len(criteria.Symbols),
		StartedAt: started,
	}

	var results []Result
	liveSymbols := 0

	for _, symbol := range criteria.Symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		quote, err := s.provider.GetQuote(ctx, symbol)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Debug("quote unavailable, skipping symbol",
				zap.String("symbol", symbol),
				zap.Error(err),
			)
			report.Skipped = append(report.Skipped, symbol)
			continue
		}
		if quote.Price <= 0 {
			report.Skipped = append(report.Skipped, symbol)
			continue
		}

		if mode == ModeCoveredCalls && s.cfg.PriceCeiling > 0 && quote.Price > s.cfg.PriceCeiling {
			liveSymbols++
			continue
		}

		candidates, err := s.symbolCandidates(ctx, mode, symbol, quote.Price)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Debug("chain unavailable, skipping symbol",
				zap.String("symbol", symbol),
				zap.Error(err),
			)
			report.Skipped = append(report.Skipped, symbol)
			continue
		}
		liveSymbols++

		for _, c := range candidates {
			if result, ok := s.evaluate(mode, c, criteria); ok {
				results = append(results, result)
			}
		}
	}

	if liveSymbols == 0 {
		s.logger.Warn("no usable market data across universe, returning synthetic sample",
			zap.String("mode", string(mode)),
			zap.Int("universe", len(criteria.Symbols)),
		)
		report.Synthetic = true
		results = s.syntheticResults(mode, criteria)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].AnnualizedReturn > results[j].AnnualizedReturn
	})
	if len(results) > s.cfg.ResultCap {
		results = results[:s.cfg.ResultCap]
	}
	if results == nil {
		results = []Result{}
	}

	report.Results = results
	report.Duration = s.now().Sub(started)

	s.logger.Info("scan complete",
		zap.String("scanId", report.ScanID),
		zap.String("mode", string(mode)),
		zap.Int("results", len(report.Results)),
		zap.Int("skipped", len(report.Skipped)),
		zap.Bool("synthetic", report.Synthetic),
		zap.Duration("duration", report.Duration),
	)

	return report, nil
}

// symbolCandidates prefers the real listed chain; when the provider has
// no chain for the symbol it derives a near-the-money grid from the
// quote instead.
func (s *Scanner) symbolCandidates(ctx context.Context, mode Mode, symbol string, spot float64) ([]Candidate, error) {
	chain, err := s.provider.GetOptionChain(ctx, symbol)
	if err != nil {
		if errors.Is(err, marketdata.ErrNotFound) {
			return s.gridCandidates(mode, symbol, spot), nil
		}
		return nil, err
	}
	if len(chain.Expirations) == 0 {
		return s.gridCandidates(mode, symbol, spot), nil
	}
	return s.chainCandidates(mode, symbol, spot, chain), nil
}

// evaluate computes the metrics for one candidate and applies the
// threshold filters. ok=false means the candidate was rejected.
func (s *Scanner) evaluate(mode Mode, c Candidate, criteria *Criteria) (Result, bool) {
	if c.DaysToExpiry <= 0 || c.StrikePrice <= 0 || c.StockPrice <= 0 {
		return Result{}, false
	}

	iv := c.ImpliedVolatility
	if iv <= 0 || iv > pricing.MaxVolatility {
		iv = pricing.DefaultVolatility
	}

	premium := c.Premium
	if premium <= 0 {
		premium = s.estimatePremium(c, iv)
	}
	if mode == ModeCoveredCalls && premium <= s.cfg.PremiumFloor {
		return Result{}, false
	}

	delta, ok := s.delta(c, iv)
	if !ok {
		return Result{}, false
	}

	dte := float64(c.DaysToExpiry)
	premiumPercent := premium / c.StockPrice * 100

	var annualized, maxProfit, breakeven float64
	switch mode {
	case ModeCoveredCalls:
		annualized = premiumPercent / dte * 365
		maxProfit = (c.StrikePrice - c.StockPrice) + premium
		breakeven = c.StockPrice - premium
	case ModeLEAPS:
		if c.OptionType == pricing.Call {
			breakeven = c.StrikePrice + premium
			annualized = (breakeven/c.StockPrice - 1) / (dte / 365) * 100
		} else {
			breakeven = c.StrikePrice - premium
			annualized = (1 - breakeven/c.StockPrice) / (dte / 365) * 100
		}
		maxProfit = premium
	}

	if math.Abs(delta) > criteria.MaxDelta {
		return Result{}, false
	}
	if premium < criteria.MinPremium {
		return Result{}, false
	}
	if annualized < criteria.MinAnnualizedReturn {
		return Result{}, false
	}

	return Result{
		Symbol:             c.Symbol,
		StockPrice:         c.StockPrice,
		StrikePrice:        c.StrikePrice,
		ExpirationDate:     c.ExpirationDate,
		DaysToExpiry:       c.DaysToExpiry,
		OptionType:         c.OptionType,
		Premium:            round2(premium),
		ImpliedVolatility:  iv,
		OpenInterest:       c.OpenInterest,
		Delta:              delta,
		PremiumPercent:     round2(premiumPercent),
		AnnualizedReturn:   round2(annualized),
		DownsideProtection: round2(premiumPercent),
		MaxProfit:          round2(maxProfit),
		Breakeven:          round2(breakeven),
	}, true
}

// estimatePremium falls back to the theoretical Black-Scholes value when
// the chain carries no usable bid, ask or last price.
func (s *Scanner) estimatePremium(c Candidate, iv float64) float64 {
	greeks, err := pricing.Price(&pricing.QuoteRequest{
		Symbol:       c.Symbol,
		SpotPrice:    c.StockPrice,
		StrikePrice:  c.StrikePrice,
		DaysToExpiry: c.DaysToExpiry,
		Volatility:   &iv,
		RiskFreeRate: &s.cfg.RiskFreeRate,
		OptionType:   c.OptionType,
	})
	if err != nil {
		return 0
	}
	return greeks.Price
}

func (s *Scanner) delta(c Candidate, iv float64) (float64, bool) {
	greeks, err := pricing.Price(&pricing.QuoteRequest{
		Symbol:       c.Symbol,
		SpotPrice:    c.StockPrice,
		StrikePrice:  c.StrikePrice,
		DaysToExpiry: c.DaysToExpiry,
		Volatility:   &iv,
		RiskFreeRate: &s.cfg.RiskFreeRate,
		OptionType:   c.OptionType,
	})
	if err != nil {
		return 0, false
	}
	return greeks.Delta, true
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }
