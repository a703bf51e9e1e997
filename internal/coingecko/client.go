// Package coingecko is a minimal client for the CoinGecko v3 market-data API.
package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/mtlprog/coinfolio/internal/domain"
	"github.com/mtlprog/coinfolio/internal/metrics"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 512
)

// ErrRateLimited is returned when CoinGecko answers HTTP 429.
var ErrRateLimited = errors.New("coingecko rate limited")

// Client is an HTTP client for the CoinGecko API. Every call is bounded by
// the configured timeout and passes through a token-bucket limiter.
// Failed calls are not retried; the caller decides what to serve instead.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	timeout    time.Duration
	limiter    *rate.Limiter
}

// NewClient creates a CoinGecko client. ratePerMinute <= 0 disables throttling.
func NewClient(baseURL, apiKey string, timeout time.Duration, ratePerMinute int) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if ratePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(ratePerMinute)), max(1, ratePerMinute/10))
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{},
		timeout:    timeout,
		limiter:    limiter,
	}
}

// get performs a single GET request bounded by the client timeout.
// Transport failures, timeouts, 429 and 5xx are wrapped as ErrUpstreamUnavailable.
func (c *Client) get(ctx context.Context, endpoint, path string) ([]byte, error) {
	url := c.baseURL + path

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	status := "error"
	defer func() { metrics.RecordUpstream(endpoint, status, time.Since(start)) }()

	if err := c.limiter.Wait(ctx); err != nil {
		status = "throttled"
		return nil, fmt.Errorf("%w: waiting for rate limiter: %v", domain.ErrUpstreamUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: executing request: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", domain.ErrUpstreamUnavailable, err)
	}
	status = fmt.Sprintf("%dxx", resp.StatusCode/100)

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %w at %s", domain.ErrUpstreamUnavailable, ErrRateLimited, path)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: HTTP 404 from %s", domain.ErrNotFound, path)
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: HTTP %d from %s", domain.ErrUpstreamUnavailable, resp.StatusCode, path)
	default:
		return nil, fmt.Errorf("%w: HTTP %d from %s: %s", domain.ErrUpstreamUnavailable, resp.StatusCode, path, truncate(body))
	}
}

// getJSON performs a GET request and unmarshals the JSON response.
func (c *Client) getJSON(ctx context.Context, endpoint, path string, dest any) error {
	body, err := c.get(ctx, endpoint, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("%w: parsing JSON from %s: %v", domain.ErrUpstreamUnavailable, path, err)
	}
	return nil
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "..."
	}
	return string(body)
}
