package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/uxmeas/kollects-io/internal/types"
)

// FlowLookupClient fetches owned moment IDs from the Flow collection lookup
// service. This is the secondary ownership source: it returns only IDs and
// serial numbers with no play metadata, so it is used only when the primary
// source has failed.
type FlowLookupClient struct {
	baseURL string
	client  *http.Client
}

// flowLookupResponse mirrors the lookup service's response shape
type flowLookupResponse struct {
	Address   string `json:"address"`
	MomentIDs []struct {
		ID           string `json:"id"`
		SerialNumber uint32 `json:"serialNumber"`
	} `json:"momentIds"`
}

// NewFlowLookupClient creates a new Flow lookup client
func NewFlowLookupClient(baseURL string) *FlowLookupClient {
	return &FlowLookupClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Name returns the source name for logging
func (c *FlowLookupClient) Name() string {
	return "flowlookup"
}

// FetchMoments returns the moments held by the address. Only ID and
// SerialNumber are populated; descriptive metadata is left empty.
func (c *FlowLookupClient) FetchMoments(ctx context.Context, address string) ([]types.Moment, error) {
	endpoint := fmt.Sprintf("%s/v1/accounts/%s/moment-ids", c.baseURL, url.PathEscape(address))

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

	// An account without a Top Shot collection is an empty wallet, not a failure
	if resp.StatusCode == http.StatusNotFound {
		return []types.Moment{}, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d - %s", resp.StatusCode, string(body))
	}

	var parsed flowLookupResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	moments := make([]types.Moment, 0, len(parsed.MomentIDs))
	for _, m := range parsed.MomentIDs {
		if m.ID == "" {
			continue
		}
		moments = append(moments, types.Moment{
			ID:           m.ID,
			SerialNumber: m.SerialNumber,
		})
	}

	return moments, nil
}
