package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestGetQuote_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth != "Bearer test-key" {
			t.Errorf("expected Bearer test-key, got %s", auth)
		}

		if r.URL.Path != "/v1/quote/AAPL" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Quote{
			Symbol:        "AAPL",
			Price:         187.42,
			High:          189.10,
			Low:           186.05,
			PreviousClose: 186.90,
			ChangePercent: 0.28,
		})
	}))
	defer server.Close()

	logger, _ := zap.NewDevelopment()
	client := NewClient(server.URL, "test-key", 10, 30*time.Second, time.Second, 3, logger)

	quote, err := client.GetQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if quote.Price != 187.42 {
		t.Errorf("unexpected price: %v", quote.Price)
	}
}

func TestGetQuote_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	logger, _ := zap.NewDevelopment()
	client := NewClient(server.URL, "test-key", 10, 30*time.Second, time.Second, 0, logger)

	_, err := client.GetQuote(context.Background(), "ZZZZ")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetQuote_RateLimitedRetries(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	logger, _ := zap.NewDevelopment()
	client := NewClient(server.URL, "test-key", 10, 30*time.Second, 10*time.Millisecond, 2, logger)

	_, err := client.GetQuote(context.Background(), "SPY")
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited in chain, got %v", err)
	}

	// Initial attempt plus two retries.
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestGetQuote_QuotaExceededNotRetried(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	logger, _ := zap.NewDevelopment()
	client := NewClient(server.URL, "test-key", 10, 30*time.Second, 10*time.Millisecond, 3, logger)

	_, err := client.GetQuote(context.Background(), "SPY")
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("expected ErrQuotaExceeded, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("quota errors must not be retried, got %d attempts", attempts)
	}
}

func TestGetOptionChain_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chain/MSFT" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(OptionChain{
			Symbol: "MSFT",
			Expirations: []Expiration{
				{
					Date:  "2026-10-16",
					Calls: []Contract{{Strike: 430, Bid: 5.10, Ask: 5.40, ImpliedVolatility: 0.24}},
					Puts:  []Contract{{Strike: 400, Bid: 3.20, Ask: 3.45, ImpliedVolatility: 0.27}},
				},
			},
		})
	}))
	defer server.Close()

	logger, _ := zap.NewDevelopment()
	client := NewClient(server.URL, "test-key", 10, 30*time.Second, time.Second, 0, logger)

	chain, err := client.GetOptionChain(context.Background(), "MSFT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chain.Expirations) != 1 || len(chain.Expirations[0].Calls) != 1 {
		t.Fatalf("unexpected chain shape: %+v", chain)
	}
}

func TestContractMid(t *testing.T) {
	cases := []struct {
		name     string
		contract Contract
		want     float64
	}{
		{"bid and ask", Contract{Bid: 2.00, Ask: 2.50}, 2.25},
		{"bid only", Contract{Bid: 2.00}, 2.00},
		{"ask only", Contract{Ask: 2.50}, 2.50},
		{"last trade fallback", Contract{Last: 1.80}, 1.80},
		{"no price", Contract{}, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.contract.Mid(); got != tc.want {
				t.Errorf("Mid() = %v, want %v", got, tc.want)
			}
		})
	}
}
