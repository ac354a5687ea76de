package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopShotClientFetchMoments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"data": {
				"getMintedMoments": {
					"data": {
						"size": 2,
						"moments": [
							{
								"id": "moment-1",
								"flowSerialNumber": "4021",
								"set": {"id": "set-9", "flowName": "Base Set"},
								"play": {"id": "play-3", "stats": {"playerName": "Stephen Curry", "teamAtMoment": "Golden State Warriors", "playCategory": "3 Pointer"}}
							},
							{
								"id": "",
								"flowSerialNumber": "1",
								"set": {"id": "set-1"},
								"play": {"id": "play-1", "stats": {}}
							}
						]
					}
				}
			}
		}`))
	}))
	defer server.Close()

	client := NewTopShotClient(server.URL)
	moments, err := client.FetchMoments(context.Background(), "0x1d4b4b0d7f8e9c2a")
	require.NoError(t, err)

	// The entry without an ID is dropped
	require.Len(t, moments, 1)
	assert.Equal(t, "moment-1", moments[0].ID)
	assert.Equal(t, "set-9:play-3", moments[0].EditionID)
	assert.Equal(t, uint32(4021), moments[0].SerialNumber)
	assert.Equal(t, "Stephen Curry", moments[0].PlayerName)
	assert.Equal(t, "Golden State Warriors", moments[0].Team)
	assert.Equal(t, "3 Pointer", moments[0].PlayType)
}

func TestTopShotClientGraphQLError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors": [{"message": "rate limited"}]}`))
	}))
	defer server.Close()

	client := NewTopShotClient(server.URL)
	_, err := client.FetchMoments(context.Background(), "0x1d4b4b0d7f8e9c2a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestFlowLookupClientFetchMoments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/accounts/0x1d4b4b0d7f8e9c2a/moment-ids", r.URL.Path)
		w.Write([]byte(`{"address": "0x1d4b4b0d7f8e9c2a", "momentIds": [{"id": "m1", "serialNumber": 7}, {"id": "m2", "serialNumber": 3000}]}`))
	}))
	defer server.Close()

	client := NewFlowLookupClient(server.URL)
	moments, err := client.FetchMoments(context.Background(), "0x1d4b4b0d7f8e9c2a")
	require.NoError(t, err)

	require.Len(t, moments, 2)
	assert.Equal(t, "m1", moments[0].ID)
	assert.Equal(t, uint32(7), moments[0].SerialNumber)
	assert.Empty(t, moments[0].PlayerName, "fallback source carries no play metadata")
}

func TestFlowLookupClientMissingCollection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewFlowLookupClient(server.URL)
	moments, err := client.FetchMoments(context.Background(), "0x1d4b4b0d7f8e9c2a")
	require.NoError(t, err)
	assert.Empty(t, moments)
}

func TestEvaluateClientLowestAsk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/moments/m1/listings", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		w.Write([]byte(`{"success": true, "listings": [{"price": "19.99", "serial": 12}, {"price": "12.00", "serial": 88}, {"price": "bogus", "serial": 1}]}`))
	}))
	defer server.Close()

	client := NewEvaluateClient(server.URL, "secret", 100)
	price, err := client.TryFetch(context.Background(), "m1")
	require.NoError(t, err)
	require.NotNil(t, price)
	assert.True(t, price.Equal(decimal.RequireFromString("12.00")))
}

func TestEvaluateClientNoListings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": true, "listings": []}`))
	}))
	defer server.Close()

	client := NewEvaluateClient(server.URL, "", 100)
	price, err := client.TryFetch(context.Background(), "m1")
	require.NoError(t, err)
	assert.Nil(t, price)
}

func TestEvaluateClientUnknownMoment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewEvaluateClient(server.URL, "", 100)
	price, err := client.TryFetch(context.Background(), "m1")
	require.NoError(t, err)
	assert.Nil(t, price)
}

func TestMomentRanksClientTryFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/moments/m1", r.URL.Path)
		w.Write([]byte(`{"id": "m1", "lowestAsk": 25.5}`))
	}))
	defer server.Close()

	client := NewMomentRanksClient(server.URL)
	price, err := client.TryFetch(context.Background(), "m1")
	require.NoError(t, err)
	require.NotNil(t, price)
	assert.True(t, price.Equal(decimal.NewFromFloat(25.5)))
}

func TestMomentRanksClientNoAsk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "m1", "lowestAsk": 0}`))
	}))
	defer server.Close()

	client := NewMomentRanksClient(server.URL)
	price, err := client.TryFetch(context.Background(), "m1")
	require.NoError(t, err)
	assert.Nil(t, price)
}

func TestOTMClientTryFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "m1", r.URL.Query().Get("moment_id"))
		w.Write([]byte(`{"data": {"asks": [{"usd_price": 31.0}, {"usd_price": 15.0}, {"usd_price": 0}]}}`))
	}))
	defer server.Close()

	client := NewOTMClient(server.URL)
	price, err := client.TryFetch(context.Background(), "m1")
	require.NoError(t, err)
	require.NotNil(t, price)
	assert.True(t, price.Equal(decimal.NewFromFloat(15.0)))
}

func TestOTMClientUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewOTMClient(server.URL)
	_, err := client.TryFetch(context.Background(), "m1")
	assert.Error(t, err)
}
