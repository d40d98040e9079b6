// Package marketdata talks to the external quote and option-chain
// provider. The HTTP client rate-limits itself and retries transient
// failures with exponential backoff; callers see sentinel errors for
// the conditions they need to distinguish.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Provider is the market-data collaborator the screener depends on.
type Provider interface {
	GetQuote(ctx context.Context, symbol string) (*Quote, error)
	GetOptionChain(ctx context.Context, symbol string) (*OptionChain, error)
}

type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	retryCount int
	retryDelay time.Duration
	logger     *zap.Logger
}

var _ Provider = (*HTTPClient)(nil)

func NewClient(baseURL, apiKey string, ratePerSec int, timeout, retryDelay time.Duration, retryCount int, logger *zap.Logger) *HTTPClient {
	transport := &http.Transport{
		MaxIdleConns:    100,
		MaxConnsPerHost: 10,
		IdleConnTimeout: 90 * time.Second,
	}

	return &HTTPClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		baseURL:    baseURL,
		apiKey:     apiKey,
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec*2),
		retryCount: retryCount,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

// GetQuote fetches the current quote for a symbol.
func (c *HTTPClient) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	var quote Quote
	url := fmt.Sprintf("%s/v1/quote/%s", c.baseURL, symbol)
	if err := c.getJSON(ctx, url, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

// GetOptionChain fetches the listed option chain for a symbol.
func (c *HTTPClient) GetOptionChain(ctx context.Context, symbol string) (*OptionChain, error) {
	var chain OptionChain
	url := fmt.Sprintf("%s/v1/chain/%s", c.baseURL, symbol)
	if err := c.getJSON(ctx, url, &chain); err != nil {
		return nil, err
	}
	return &chain, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, url string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	c.logger.Debug("requesting", zap.String("url", url))

	var lastErr error
	for attempt := 0; attempt <= c.retryCount; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<(attempt-1)) // exponential backoff
			c.logger.Debug("retrying request", zap.Int("attempt", attempt), zap.Duration("delay", delay))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		done, err := c.handleResponse(resp, out)
		if done {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// handleResponse decodes the body or maps the status to an error.
// done=false means the attempt may be retried.
func (c *HTTPClient) handleResponse(resp *http.Response, out interface{}) (done bool, err error) {
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return true, ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized:
		return true, ErrAuthFailed
	case resp.StatusCode == http.StatusPaymentRequired || resp.StatusCode == http.StatusForbidden:
		return true, ErrQuotaExceeded
	case resp.StatusCode == http.StatusTooManyRequests:
		return false, ErrRateLimited
	case resp.StatusCode >= 500:
		return false, fmt.Errorf("server error: %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return true, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return true, fmt.Errorf("decoding response: %w", err)
	}
	return true, nil
}
