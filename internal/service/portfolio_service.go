// Package service contains the portfolio aggregation logic. It composes the
// ownership resolver, the pricing chain, and the purchase record store into
// point-in-time portfolio snapshots.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/uxmeas/kollects-io/internal/logging"
	"github.com/uxmeas/kollects-io/internal/types"
)

// OwnershipResolver resolves the moments currently held by a wallet
type OwnershipResolver interface {
	Resolve(ctx context.Context, address string) ([]types.Moment, error)
}

// PriceResolver resolves a market quote for a single moment
type PriceResolver interface {
	ResolvePrice(ctx context.Context, itemID string) types.PriceQuote
}

// PurchaseRecordStore persists user-entered cost basis per (wallet, item)
type PurchaseRecordStore interface {
	Get(ctx context.Context, wallet, itemID string) (*types.PurchaseRecord, error)
	GetAll(ctx context.Context, wallet string) (map[string]*types.PurchaseRecord, error)
	Put(ctx context.Context, wallet, itemID string, patch types.PurchasePatch) (*types.PurchaseRecord, error)
	Delete(ctx context.Context, wallet, itemID string) error
}

// PortfolioService builds portfolio snapshots
type PortfolioService struct {
	ownership OwnershipResolver
	pricing   PriceResolver
	purchases PurchaseRecordStore
	workers   int
}

// NewPortfolioService creates a new portfolio service. workers bounds the
// number of concurrent price lookups per snapshot.
func NewPortfolioService(ownership OwnershipResolver, pricing PriceResolver, purchases PurchaseRecordStore, workers int) *PortfolioService {
	if workers < 1 {
		workers = 8
	}
	return &PortfolioService{
		ownership: ownership,
		pricing:   pricing,
		purchases: purchases,
		workers:   workers,
	}
}

// BuildSnapshot computes a point-in-time portfolio view for the wallet.
// overrides supply request-scoped cost basis for items that have no stored
// purchase record; they are never persisted.
//
// Totals cover only items with a known purchase price. Within that subset a
// moment with no market quote contributes its cost and zero value, so
// ProfitLoss always equals TotalMarketValue minus TotalCost.
func (s *PortfolioService) BuildSnapshot(ctx context.Context, address string, overrides map[string]types.PurchasePatch) (*types.PortfolioSnapshot, error) {
	logger := logging.FromContext(ctx).WithField("address", address)

	moments, err := s.ownership.Resolve(ctx, address)
	if err != nil {
		return nil, err
	}

	quotes := s.fetchQuotes(ctx, moments)

	// A failed read degrades to "no records" rather than failing the whole
	// snapshot; ownership and pricing are still worth showing
	records, err := s.purchases.GetAll(ctx, address)
	if err != nil {
		logger.WithError(err).Warn("Failed to load purchase records, continuing without them")
		records = map[string]*types.PurchaseRecord{}
	}

	items := make([]types.PortfolioItem, len(moments))
	for i, moment := range moments {
		item := types.PortfolioItem{
			Moment:      moment,
			MarketPrice: quotes[i].Price,
			PriceSource: quotes[i].Source,
		}

		if record, ok := records[moment.ID]; ok {
			item.PurchasePrice = record.PurchasePrice
			item.PurchaseDate = record.PurchaseDate
			item.Notes = record.Notes
		} else if override, ok := overrides[moment.ID]; ok {
			item.PurchasePrice = override.PurchasePrice
			item.PurchaseDate = override.PurchaseDate
			item.Notes = override.Notes
		}

		items[i] = item
	}

	totalCost, totalValue := computeTotals(items)

	return &types.PortfolioSnapshot{
		Address:          types.NormalizeAddress(address),
		Items:            items,
		TotalCost:        totalCost,
		TotalMarketValue: totalValue,
		ProfitLoss:       totalValue.Sub(totalCost),
		GeneratedAt:      time.Now().UTC(),
	}, nil
}

// fetchQuotes resolves prices for all moments with a bounded worker pool,
// preserving moment order in the result
func (s *PortfolioService) fetchQuotes(ctx context.Context, moments []types.Moment) []types.PriceQuote {
	quotes := make([]types.PriceQuote, len(moments))
	if len(moments) == 0 {
		return quotes
	}

	workers := s.workers
	if workers > len(moments) {
		workers = len(moments)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				quotes[i] = s.pricing.ResolvePrice(ctx, moments[i].ID)
			}
		}()
	}

	for i := range moments {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return quotes
}

// computeTotals sums cost and market value over items with a known purchase
// price. Items without a purchase price are excluded from both sides.
func computeTotals(items []types.PortfolioItem) (cost, value decimal.Decimal) {
	for _, item := range items {
		if item.PurchasePrice == nil {
			continue
		}
		cost = cost.Add(*item.PurchasePrice)
		if item.MarketPrice != nil {
			value = value.Add(*item.MarketPrice)
		}
	}
	return cost, value
}
