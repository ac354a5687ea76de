package adapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uxmeas/kollects-io/internal/types"
)

// fakeProvider is a scripted price provider for chain tests
type fakeProvider struct {
	name  types.PriceSource
	price *decimal.Decimal
	err   error
	calls int
}

func (f *fakeProvider) Name() types.PriceSource { return f.name }

func (f *fakeProvider) TryFetch(ctx context.Context, itemID string) (*decimal.Decimal, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.price, nil
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestResolvePriceFirstPositiveWins(t *testing.T) {
	a := &fakeProvider{name: types.SourceEvaluate}                       // no listings
	b := &fakeProvider{name: types.SourceMomentRanks, price: dec("42")} // should win
	c := &fakeProvider{name: types.SourceOTM, price: dec("10")}         // cheaper but lower priority

	chain := NewProviderChain(time.Second, a, b, c)
	quote := chain.ResolvePrice(context.Background(), "m1")

	require.NotNil(t, quote.Price)
	assert.True(t, quote.Price.Equal(decimal.NewFromInt(42)))
	assert.Equal(t, types.SourceMomentRanks, quote.Source)
	assert.Equal(t, "USD", quote.Currency)
	assert.Zero(t, c.calls, "lower-priority providers must not be consulted after a hit")
}

func TestResolvePriceSkipsFailingProvider(t *testing.T) {
	a := &fakeProvider{name: types.SourceEvaluate, err: errors.New("502")}
	b := &fakeProvider{name: types.SourceMomentRanks, price: dec("7.50")}

	chain := NewProviderChain(time.Second, a, b)
	quote := chain.ResolvePrice(context.Background(), "m1")

	require.NotNil(t, quote.Price)
	assert.Equal(t, types.SourceMomentRanks, quote.Source)
}

func TestResolvePriceIgnoresNonPositivePrices(t *testing.T) {
	a := &fakeProvider{name: types.SourceEvaluate, price: dec("0")}
	b := &fakeProvider{name: types.SourceMomentRanks, price: dec("-3")}

	chain := NewProviderChain(time.Second, a, b)
	quote := chain.ResolvePrice(context.Background(), "m1")

	assert.Nil(t, quote.Price)
	assert.Equal(t, types.SourceNone, quote.Source)
}

func TestResolvePriceAllExhausted(t *testing.T) {
	a := &fakeProvider{name: types.SourceEvaluate, err: errors.New("down")}
	b := &fakeProvider{name: types.SourceMomentRanks}

	chain := NewProviderChain(time.Second, a, b)
	quote := chain.ResolvePrice(context.Background(), "m1")

	assert.Nil(t, quote.Price)
	assert.Equal(t, types.SourceNone, quote.Source)
	assert.Equal(t, "m1", quote.ItemID)
}

func TestResolvePriceCircuitOpensAfterRepeatedFailures(t *testing.T) {
	a := &fakeProvider{name: types.SourceEvaluate, err: errors.New("down")}
	chain := NewProviderChain(time.Second, a)

	// Enough calls to trip the breaker, then one more that should be
	// short-circuited without reaching the provider
	for i := 0; i < 5; i++ {
		chain.ResolvePrice(context.Background(), "m1")
	}
	callsWhenOpen := a.calls
	chain.ResolvePrice(context.Background(), "m1")

	assert.Equal(t, callsWhenOpen, a.calls, "open circuit must skip the provider")
}

func TestLowestAsk(t *testing.T) {
	tests := []struct {
		name   string
		prices []string
		want   string
	}{
		{"picks minimum", []string{"15", "3", "9"}, "3"},
		{"ignores non-positive", []string{"15", "-5", "0", "3"}, "3"},
		{"single listing", []string{"12.34"}, "12.34"},
		{"all junk", []string{"0", "-1"}, ""},
		{"empty", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prices := make([]decimal.Decimal, len(tt.prices))
			for i, s := range tt.prices {
				prices[i] = decimal.RequireFromString(s)
			}

			got := LowestAsk(prices)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)))
		})
	}
}
