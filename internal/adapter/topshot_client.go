package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/uxmeas/kollects-io/internal/types"
)

// TopShotClient fetches owned moments with full play metadata from the
// Top Shot public GraphQL API. This is the primary ownership source.
type TopShotClient struct {
	baseURL string
	client  *http.Client
}

// mintedMomentsQuery lists every minted moment held by an address,
// including the play metadata needed to describe it.
const mintedMomentsQuery = `query GetMintedMoments($address: String!) {
  getMintedMoments(input: {flowAddress: $address}) {
    data {
      size
      moments {
        id
        flowSerialNumber
        set { id flowName }
        play { id stats { playerName teamAtMoment playCategory } }
      }
    }
  }
}`

// topShotMoment mirrors the provider's moment shape
type topShotMoment struct {
	ID               string `json:"id"`
	FlowSerialNumber string `json:"flowSerialNumber"`
	Set              struct {
		ID       string `json:"id"`
		FlowName string `json:"flowName"`
	} `json:"set"`
	Play struct {
		ID    string `json:"id"`
		Stats struct {
			PlayerName   string `json:"playerName"`
			TeamAtMoment string `json:"teamAtMoment"`
			PlayCategory string `json:"playCategory"`
		} `json:"stats"`
	} `json:"play"`
}

// topShotResponse mirrors the provider's GraphQL envelope
type topShotResponse struct {
	Data struct {
		GetMintedMoments struct {
			Data struct {
				Size    int             `json:"size"`
				Moments []topShotMoment `json:"moments"`
			} `json:"data"`
		} `json:"getMintedMoments"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// NewTopShotClient creates a new Top Shot API client
func NewTopShotClient(baseURL string) *TopShotClient {
	return &TopShotClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Name returns the source name for logging
func (c *TopShotClient) Name() string {
	return "topshot"
}

// FetchMoments returns all moments held by the address
func (c *TopShotClient) FetchMoments(ctx context.Context, address string) ([]types.Moment, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"query":     mintedMomentsQuery,
		"variables": map[string]string{"address": address},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d - %s", resp.StatusCode, string(body))
	}

	var parsed topShotResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(parsed.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %s", parsed.Errors[0].Message)
	}

	raw := parsed.Data.GetMintedMoments.Data.Moments
	moments := make([]types.Moment, 0, len(raw))
	for _, m := range raw {
		converted := c.convertMoment(m)
		if converted != nil {
			moments = append(moments, *converted)
		}
	}

	return moments, nil
}

// convertMoment normalizes a provider moment into the internal shape
func (c *TopShotClient) convertMoment(m topShotMoment) *types.Moment {
	if m.ID == "" {
		return nil
	}

	// Serial numbers arrive as decimal strings
	serial, _ := strconv.ParseUint(m.FlowSerialNumber, 10, 32)

	return &types.Moment{
		ID:           m.ID,
		EditionID:    fmt.Sprintf("%s:%s", m.Set.ID, m.Play.ID),
		SerialNumber: uint32(serial),
		PlayerName:   m.Play.Stats.PlayerName,
		Team:         m.Play.Stats.TeamAtMoment,
		PlayType:     m.Play.Stats.PlayCategory,
	}
}
