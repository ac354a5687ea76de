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

	"github.com/uxmeas/kollects-io/internal/types"
)

// OTMClient fetches moment asks from the OTM NFT marketplace API. OTM is the
// last resort in the provider chain.
type OTMClient struct {
	baseURL string
	client  *http.Client
}

// otmResponse represents the OTM asks API response
type otmResponse struct {
	Data struct {
		Asks []struct {
			USDPrice float64 `json:"usd_price"`
		} `json:"asks"`
	} `json:"data"`
}

// NewOTMClient creates a new OTM NFT client
func NewOTMClient(baseURL string) *OTMClient {
	return &OTMClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Name returns the price source identifier
func (c *OTMClient) Name() types.PriceSource {
	return types.SourceOTM
}

// TryFetch returns the lowest positive ask, or nil when OTM has no asks for
// the moment
func (c *OTMClient) TryFetch(ctx context.Context, itemID string) (*decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/api/asks?moment_id=%s", c.baseURL, url.QueryEscape(itemID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
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

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d - %s", resp.StatusCode, string(body))
	}

	var parsed otmResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	prices := make([]decimal.Decimal, 0, len(parsed.Data.Asks))
	for _, ask := range parsed.Data.Asks {
		prices = append(prices, decimal.NewFromFloat(ask.USDPrice))
	}

	return LowestAsk(prices), nil
}
