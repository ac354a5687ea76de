package adapter

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/uxmeas/kollects-io/internal/circuitbreaker"
	"github.com/uxmeas/kollects-io/internal/logging"
	"github.com/uxmeas/kollects-io/internal/types"
)

// quoteCurrency is the currency all providers quote in
const quoteCurrency = "USD"

// PriceProvider fetches a market price for a single moment from one upstream
// marketplace. A (nil, nil) return means the provider answered but has no
// listings for the item.
type PriceProvider interface {
	// Name identifies the provider as a price source
	Name() types.PriceSource
	// TryFetch returns the lowest ask for the item, or nil if none is listed
	TryFetch(ctx context.Context, itemID string) (*decimal.Decimal, error)
}

// ProviderChain resolves prices by consulting providers in a fixed order and
// taking the first positive answer. Each provider is wrapped in its own
// circuit breaker so a dead upstream stops being consulted after repeated
// failures.
type ProviderChain struct {
	providers []PriceProvider
	breakers  []*circuitbreaker.CircuitBreaker
	timeout   time.Duration
}

// NewProviderChain creates a chain over the given providers, preserving order
func NewProviderChain(timeout time.Duration, providers ...PriceProvider) *ProviderChain {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	breakers := make([]*circuitbreaker.CircuitBreaker, len(providers))
	for i, p := range providers {
		breakers[i] = circuitbreaker.New(circuitbreaker.DefaultConfig("pricing." + string(p.Name())))
	}

	return &ProviderChain{
		providers: providers,
		breakers:  breakers,
		timeout:   timeout,
	}
}

// ResolvePrice walks the chain in order and returns the first positive price.
// Provider errors, timeouts, open circuits, and empty answers all mean "move
// on to the next provider"; when every provider is exhausted the quote carries
// a nil price and SourceNone. ResolvePrice never returns an error: a moment
// with no resolvable price is a valid portfolio state.
func (c *ProviderChain) ResolvePrice(ctx context.Context, itemID string) types.PriceQuote {
	logger := logging.FromContext(ctx).WithField("item_id", itemID)

	for i, provider := range c.providers {
		name := provider.Name()

		var price *decimal.Decimal
		err := c.breakers[i].Execute(ctx, func() error {
			callCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			p, err := provider.TryFetch(callCtx, itemID)
			if err != nil {
				return err
			}
			price = p
			return nil
		})

		if err != nil {
			logger.WithError(err).WithField("provider", string(name)).
				Warn("Price provider failed, trying next")
			continue
		}

		if price == nil || !price.IsPositive() {
			logger.WithField("provider", string(name)).Debug("No listings from provider")
			continue
		}

		return types.PriceQuote{
			ItemID:   itemID,
			Price:    price,
			Source:   name,
			Currency: quoteCurrency,
		}
	}

	return types.PriceQuote{
		ItemID:   itemID,
		Source:   types.SourceNone,
		Currency: quoteCurrency,
	}
}

// LowestAsk returns the smallest positive price in the list, or nil when no
// listing is positive. Zero and negative asks are junk data and are ignored.
func LowestAsk(prices []decimal.Decimal) *decimal.Decimal {
	var lowest *decimal.Decimal
	for i := range prices {
		p := prices[i]
		if !p.IsPositive() {
			continue
		}
		if lowest == nil || p.LessThan(*lowest) {
			lowest = &p
		}
	}
	return lowest
}
