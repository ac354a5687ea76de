package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/uxmeas/kollects-io/internal/types"
)

// EvaluateClient fetches moment listings from the Evaluate Market API.
// Evaluate is the preferred price source: it returns individual asks, from
// which we take the lowest positive one.
type EvaluateClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

// evaluateListing represents a single ask in the Evaluate API response.
// Prices come over the wire as decimal strings.
type evaluateListing struct {
	Price  string `json:"price"`
	Serial uint32 `json:"serial"`
}

// evaluateResponse represents the Evaluate listings API response
type evaluateResponse struct {
	Success  bool              `json:"success"`
	Message  string            `json:"message"`
	Listings []evaluateListing `json:"listings"`
}

// NewEvaluateClient creates a new Evaluate Market client. requestsPerSecond
// throttles outbound calls to stay inside the API's rate limits.
func NewEvaluateClient(baseURL, apiKey string, requestsPerSecond float64) *EvaluateClient {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 10
	}
	return &EvaluateClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(requestsPerSecond)),
	}
}

// Name returns the price source identifier
func (c *EvaluateClient) Name() types.PriceSource {
	return types.SourceEvaluate
}

// TryFetch returns the lowest positive ask for the moment, or nil when the
// moment has no active listings
func (c *EvaluateClient) TryFetch(ctx context.Context, itemID string) (*decimal.Decimal, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v2/moments/%s/listings", c.baseURL, url.PathEscape(itemID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	// Unknown moment means no listings, not an upstream failure
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d - %s", resp.StatusCode, string(body))
	}

	var parsed evaluateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if !parsed.Success {
		return nil, fmt.Errorf("evaluate API error: %s", parsed.Message)
	}

	prices := make([]decimal.Decimal, 0, len(parsed.Listings))
	for _, l := range parsed.Listings {
		p, err := decimal.NewFromString(l.Price)
		if err != nil {
			// Skip malformed listings rather than failing the whole call
			continue
		}
		prices = append(prices, p)
	}

	return LowestAsk(prices), nil
}
