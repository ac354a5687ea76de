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

// MomentRanksClient fetches moment prices from the MomentRanks API.
// MomentRanks exposes a precomputed lowest ask per moment rather than raw
// listings.
type MomentRanksClient struct {
	baseURL string
	client  *http.Client
}

// momentRanksResponse represents the MomentRanks moment API response
type momentRanksResponse struct {
	ID        string  `json:"id"`
	LowestAsk float64 `json:"lowestAsk"`
}

// NewMomentRanksClient creates a new MomentRanks client
func NewMomentRanksClient(baseURL string) *MomentRanksClient {
	return &MomentRanksClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Name returns the price source identifier
func (c *MomentRanksClient) Name() types.PriceSource {
	return types.SourceMomentRanks
}

// TryFetch returns the moment's lowest ask, or nil when MomentRanks has no
// positive ask on record
func (c *MomentRanksClient) TryFetch(ctx context.Context, itemID string) (*decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/moments/%s", c.baseURL, url.PathEscape(itemID))

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

	var parsed momentRanksResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if parsed.LowestAsk <= 0 {
		return nil, nil
	}

	price := decimal.NewFromFloat(parsed.LowestAsk)
	return &price, nil
}
