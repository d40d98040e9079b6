package screener

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/traderlab/optionscan/internal/marketdata"
	"github.com/traderlab/optionscan/internal/pricing"
)

var fixedNow = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

type mockProvider struct {
	quotes    map[string]*marketdata.Quote
	chains    map[string]*marketdata.OptionChain
	quoteErrs map[string]error
	chainErrs map[string]error
}

func (m *mockProvider) GetQuote(ctx context.Context, symbol string) (*marketdata.Quote, error) {
	if err, ok := m.quoteErrs[symbol]; ok {
		return nil, err
	}
	if q, ok := m.quotes[symbol]; ok {
		return q, nil
	}
	return nil, marketdata.ErrNotFound
}

func (m *mockProvider) GetOptionChain(ctx context.Context, symbol string) (*marketdata.OptionChain, error) {
	if err, ok := m.chainErrs[symbol]; ok {
		return nil, err
	}
	if c, ok := m.chains[symbol]; ok {
		return c, nil
	}
	return nil, marketdata.ErrNotFound
}

func newTestScanner(t *testing.T, provider marketdata.Provider, cfg Config) *Scanner {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	s := New(provider, nil, cfg, rand.New(rand.NewSource(42)), logger)
	s.now = func() time.Time { return fixedNow }
	return s
}

func coveredCallUniverse() *mockProvider {
	return &mockProvider{
		quotes: map[string]*marketdata.Quote{
			"AAPL": {Symbol: "AAPL", Price: 100},
			"MSFT": {Symbol: "MSFT", Price: 400},
		},
		chains: map[string]*marketdata.OptionChain{
			"AAPL": {
				Symbol: "AAPL",
				Expirations: []marketdata.Expiration{
					{
						// ~30 days out, inside the near-term band.
						Date: "2026-04-01",
						Calls: []marketdata.Contract{
							{Strike: 95, Bid: 7.80, Ask: 8.10, ImpliedVolatility: 0.30},  // ITM, excluded
							{Strike: 102, Bid: 2.40, Ask: 2.60, ImpliedVolatility: 0.30}, // delta too high
							{Strike: 108, Bid: 2.20, Ask: 2.40, ImpliedVolatility: 0.30}, // passes
							{Strike: 120, Bid: 0.30, Ask: 0.50, ImpliedVolatility: 0.30}, // premium too low
						},
					},
					{
						// ~91 days out, outside the band regardless of quality.
						Date: "2026-06-01",
						Calls: []marketdata.Contract{
							{Strike: 110, Bid: 6.00, Ask: 6.40, ImpliedVolatility: 0.30},
						},
					},
				},
			},
			"MSFT": {
				Symbol: "MSFT",
				Expirations: []marketdata.Expiration{
					{
						Date: "2026-04-01",
						Calls: []marketdata.Contract{
							{Strike: 420, Bid: 6.00, Ask: 6.40, ImpliedVolatility: 0.25}, // passes
						},
					},
				},
			},
		},
	}
}

func TestScanCoveredCallsAppliesFilters(t *testing.T) {
	s := newTestScanner(t, coveredCallUniverse(), DefaultConfig())

	criteria := &Criteria{
		MaxDelta:            0.30,
		MinPremium:          2,
		MinAnnualizedReturn: 15,
		Symbols:             []string{"AAPL", "MSFT"},
	}

	report, err := s.Scan(context.Background(), ModeCoveredCalls, criteria)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Synthetic {
		t.Error("live scan must not be flagged synthetic")
	}
	if len(report.Results) == 0 {
		t.Fatal("expected passing candidates")
	}

	for _, res := range report.Results {
		if res.StrikePrice <= res.StockPrice {
			t.Errorf("covered-call result must be OTM: strike %v, stock %v", res.StrikePrice, res.StockPrice)
		}
		if res.DaysToExpiry < 14 || res.DaysToExpiry > 45 {
			t.Errorf("expiry outside band: %d days", res.DaysToExpiry)
		}
		if res.Delta > criteria.MaxDelta {
			t.Errorf("delta %v exceeds max %v", res.Delta, criteria.MaxDelta)
		}
		if res.Premium < criteria.MinPremium {
			t.Errorf("premium %v below min %v", res.Premium, criteria.MinPremium)
		}
		if res.AnnualizedReturn < criteria.MinAnnualizedReturn {
			t.Errorf("annualized return %v below min %v", res.AnnualizedReturn, criteria.MinAnnualizedReturn)
		}
	}

	// The ITM 95 strike and the out-of-band June expiry must never appear.
	for _, res := range report.Results {
		if res.StrikePrice == 95 {
			t.Error("ITM strike leaked through the OTM restriction")
		}
		if res.ExpirationDate == "2026-06-01" {
			t.Error("out-of-band expiry leaked through")
		}
	}
}

func TestScanRankingAndCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ResultCap = 2

	s := newTestScanner(t, coveredCallUniverse(), cfg)

	report, err := s.Scan(context.Background(), ModeCoveredCalls, &Criteria{
		MaxDelta:            1,
		MinPremium:          0.10,
		MinAnnualizedReturn: 0,
		Symbols:             []string{"AAPL", "MSFT"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.Results) > cfg.ResultCap {
		t.Errorf("result count %d exceeds cap %d", len(report.Results), cfg.ResultCap)
	}
	for i := 1; i < len(report.Results); i++ {
		if report.Results[i].AnnualizedReturn > report.Results[i-1].AnnualizedReturn {
			t.Errorf("results not sorted descending at %d: %v > %v",
				i, report.Results[i].AnnualizedReturn, report.Results[i-1].AnnualizedReturn)
		}
	}
}

func TestScanPartialFailureTolerance(t *testing.T) {
	provider := coveredCallUniverse()
	provider.quotes["GOOG"] = &marketdata.Quote{Symbol: "GOOG", Price: 150}
	provider.chains["GOOG"] = &marketdata.OptionChain{
		Symbol: "GOOG",
		Expirations: []marketdata.Expiration{
			{
				Date:  "2026-04-01",
				Calls: []marketdata.Contract{{Strike: 160, Bid: 2.80, Ask: 3.00, ImpliedVolatility: 0.28}},
			},
		},
	}
	provider.quoteErrs = map[string]error{
		"FAIL": errors.New("connection reset"),
		"ZERO": marketdata.ErrNotFound,
	}

	s := newTestScanner(t, provider, DefaultConfig())

	report, err := s.Scan(context.Background(), ModeCoveredCalls, &Criteria{
		MaxDelta:            1,
		MinPremium:          0.10,
		MinAnnualizedReturn: 0,
		Symbols:             []string{"AAPL", "FAIL", "MSFT", "ZERO", "GOOG"},
	})
	if err != nil {
		t.Fatalf("scan must tolerate per-symbol failures, got: %v", err)
	}

	if report.Synthetic {
		t.Error("three live symbols remain, fallback must not trigger")
	}
	if len(report.Skipped) != 2 {
		t.Errorf("expected 2 skipped symbols, got %v", report.Skipped)
	}
	for _, res := range report.Results {
		if res.Symbol == "FAIL" || res.Symbol == "ZERO" {
			t.Errorf("failed symbol %s produced a result", res.Symbol)
		}
	}
	if len(report.Results) == 0 {
		t.Error("expected results from the healthy symbols")
	}
}

func TestScanSyntheticFallback(t *testing.T) {
	provider := &mockProvider{
		quoteErrs: map[string]error{
			"AAPL": errors.New("upstream down"),
			"MSFT": errors.New("upstream down"),
		},
	}

	criteria := &Criteria{
		MaxDelta:            1,
		MinPremium:          0,
		MinAnnualizedReturn: 0,
		Symbols:             []string{"AAPL", "MSFT"},
	}

	s := newTestScanner(t, provider, DefaultConfig())
	report, err := s.Scan(context.Background(), ModeCoveredCalls, criteria)
	if err != nil {
		t.Fatalf("whole-universe failure must degrade, not error: %v", err)
	}

	if !report.Synthetic {
		t.Fatal("degraded scan must be flagged synthetic")
	}
	if len(report.Results) == 0 {
		t.Fatal("synthetic fallback must demonstrate the output shape")
	}
	if len(report.Skipped) != 2 {
		t.Errorf("expected both symbols skipped, got %v", report.Skipped)
	}

	// Synthetic rows still honor the filter contract.
	for _, res := range report.Results {
		if res.Delta > criteria.MaxDelta || res.Premium < criteria.MinPremium {
			t.Errorf("synthetic result violates criteria: %+v", res)
		}
	}
}

func TestScanSyntheticFallbackIsSeedable(t *testing.T) {
	provider := &mockProvider{
		quoteErrs: map[string]error{"AAPL": errors.New("down")},
	}
	criteria := &Criteria{MaxDelta: 1, MinPremium: 0, MinAnnualizedReturn: 0, Symbols: []string{"AAPL"}}
	logger, _ := zap.NewDevelopment()

	run := func(seed int64) []Result {
		s := New(provider, nil, DefaultConfig(), rand.New(rand.NewSource(seed)), logger)
		s.now = func() time.Time { return fixedNow }
		report, err := s.Scan(context.Background(), ModeCoveredCalls, criteria)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return report.Results
	}

	first := run(7)
	second := run(7)
	if !reflect.DeepEqual(first, second) {
		t.Error("same seed must reproduce identical synthetic output")
	}
}

func TestScanLEAPSMode(t *testing.T) {
	provider := &mockProvider{
		quotes: map[string]*marketdata.Quote{
			"AAPL": {Symbol: "AAPL", Price: 100},
		},
		chains: map[string]*marketdata.OptionChain{
			"AAPL": {
				Symbol: "AAPL",
				Expirations: []marketdata.Expiration{
					{
						// ~30 days: below the long-dated threshold.
						Date:  "2026-04-01",
						Calls: []marketdata.Contract{{Strike: 105, Bid: 2.00, Ask: 2.20, ImpliedVolatility: 0.30}},
					},
					{
						// ~365 days: long-dated, both sides eligible.
						Date:  "2027-03-02",
						Calls: []marketdata.Contract{{Strike: 110, Bid: 9.00, Ask: 9.60, ImpliedVolatility: 0.30}},
						Puts:  []marketdata.Contract{{Strike: 90, Bid: 5.40, Ask: 5.80, ImpliedVolatility: 0.32}},
					},
				},
			},
		},
	}

	s := newTestScanner(t, provider, DefaultConfig())

	report, err := s.Scan(context.Background(), ModeLEAPS, &Criteria{
		MaxDelta:            1,
		MinPremium:          0,
		MinAnnualizedReturn: 0,
		Symbols:             []string{"AAPL"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var sawCall, sawPut bool
	for _, res := range report.Results {
		if res.DaysToExpiry < 270 {
			t.Errorf("near-term expiry leaked into LEAPS scan: %d days", res.DaysToExpiry)
		}
		switch res.OptionType {
		case pricing.Call:
			sawCall = true
			if math.Abs(res.Breakeven-(res.StrikePrice+res.Premium)) > 0.01 {
				t.Errorf("call breakeven: got %v, want %v", res.Breakeven, res.StrikePrice+res.Premium)
			}
		case pricing.Put:
			sawPut = true
			if math.Abs(res.Breakeven-(res.StrikePrice-res.Premium)) > 0.01 {
				t.Errorf("put breakeven: got %v, want %v", res.Breakeven, res.StrikePrice-res.Premium)
			}
		}
	}
	if !sawCall || !sawPut {
		t.Errorf("LEAPS scan must evaluate both sides: call=%v put=%v", sawCall, sawPut)
	}
}

func TestScanPriceCeiling(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PriceCeiling = 20

	provider := &mockProvider{
		quotes: map[string]*marketdata.Quote{
			"AAPL": {Symbol: "AAPL", Price: 100}, // above ceiling
			"F":    {Symbol: "F", Price: 12},
		},
		chains: map[string]*marketdata.OptionChain{
			"F": {
				Symbol: "F",
				Expirations: []marketdata.Expiration{
					{
						Date:  "2026-04-01",
						Calls: []marketdata.Contract{{Strike: 13, Bid: 0.35, Ask: 0.45, ImpliedVolatility: 0.35}},
					},
				},
			},
		},
	}

	s := newTestScanner(t, provider, cfg)

	report, err := s.Scan(context.Background(), ModeCoveredCalls, &Criteria{
		MaxDelta:            1,
		MinPremium:          0,
		MinAnnualizedReturn: 0,
		Symbols:             []string{"AAPL", "F"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, res := range report.Results {
		if res.Symbol == "AAPL" {
			t.Error("symbol above the price ceiling produced a result")
		}
	}
}

func TestScanCancellation(t *testing.T) {
	s := newTestScanner(t, coveredCallUniverse(), DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Scan(ctx, ModeCoveredCalls, &Criteria{
		MaxDelta: 0.5, MinPremium: 0, MinAnnualizedReturn: 0, Symbols: []string{"AAPL"},
	})
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestScanRejectsInvalidCriteria(t *testing.T) {
	s := newTestScanner(t, coveredCallUniverse(), DefaultConfig())

	cases := []Criteria{
		{MaxDelta: 0, Symbols: []string{"AAPL"}},
		{MaxDelta: 1.5, Symbols: []string{"AAPL"}},
		{MaxDelta: 0.3, MinPremium: -1, Symbols: []string{"AAPL"}},
		{MaxDelta: 0.3, MinAnnualizedReturn: -5, Symbols: []string{"AAPL"}},
		{MaxDelta: 0.3},
	}

	for _, criteria := range cases {
		c := criteria
		if _, err := s.Scan(context.Background(), ModeCoveredCalls, &c); !errors.Is(err, ErrInvalidCriteria) {
			t.Errorf("criteria %+v: expected ErrInvalidCriteria, got %v", c, err)
		}
	}

	if _, err := s.Scan(context.Background(), "condors", &Criteria{MaxDelta: 0.3, Symbols: []string{"AAPL"}}); !errors.Is(err, ErrInvalidCriteria) {
		t.Errorf("expected ErrInvalidCriteria for unknown mode, got %v", err)
	}
}

func TestGridFallbackWhenChainMissing(t *testing.T) {
	// Quote exists but the provider lists no chain: the scan derives a
	// near-the-money grid and prices it theoretically.
	provider := &mockProvider{
		quotes: map[string]*marketdata.Quote{
			"AAPL": {Symbol: "AAPL", Price: 100},
		},
	}

	s := newTestScanner(t, provider, DefaultConfig())

	report, err := s.Scan(context.Background(), ModeCoveredCalls, &Criteria{
		MaxDelta:            1,
		MinPremium:          0,
		MinAnnualizedReturn: 0,
		Symbols:             []string{"AAPL"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Synthetic {
		t.Error("a live quote means the scan is not synthetic")
	}
	if len(report.Results) == 0 {
		t.Fatal("expected grid-derived results")
	}
	for _, res := range report.Results {
		if res.StrikePrice <= res.StockPrice {
			t.Errorf("grid strike must be OTM: %v vs %v", res.StrikePrice, res.StockPrice)
		}
		if res.Premium <= 0 {
			t.Errorf("estimated premium must be positive, got %v", res.Premium)
		}
	}
}
