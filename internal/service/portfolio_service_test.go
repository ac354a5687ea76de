package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uxmeas/kollects-io/internal/types"
)

// stubOwnership returns a fixed set of moments or an error
type stubOwnership struct {
	moments []types.Moment
	err     error
}

func (s *stubOwnership) Resolve(ctx context.Context, address string) ([]types.Moment, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.moments, nil
}

// stubPricing maps item IDs to prices; unmapped items resolve to no price
type stubPricing struct {
	mu     sync.Mutex
	prices map[string]string
	calls  int
}

func (s *stubPricing) ResolvePrice(ctx context.Context, itemID string) types.PriceQuote {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if raw, ok := s.prices[itemID]; ok {
		price := decimal.RequireFromString(raw)
		return types.PriceQuote{ItemID: itemID, Price: &price, Source: types.SourceEvaluate, Currency: "USD"}
	}
	return types.PriceQuote{ItemID: itemID, Source: types.SourceNone, Currency: "USD"}
}

// stubStore is an in-memory purchase record store
type stubStore struct {
	records map[string]*types.PurchaseRecord
	getErr  error
	puts    int
}

func (s *stubStore) Get(ctx context.Context, wallet, itemID string) (*types.PurchaseRecord, error) {
	return s.records[itemID], nil
}

func (s *stubStore) GetAll(ctx context.Context, wallet string) (map[string]*types.PurchaseRecord, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.records, nil
}

func (s *stubStore) Put(ctx context.Context, wallet, itemID string, patch types.PurchasePatch) (*types.PurchaseRecord, error) {
	s.puts++
	return nil, nil
}

func (s *stubStore) Delete(ctx context.Context, wallet, itemID string) error {
	return nil
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func moments(ids ...string) []types.Moment {
	out := make([]types.Moment, len(ids))
	for i, id := range ids {
		out[i] = types.Moment{ID: id}
	}
	return out
}

func TestBuildSnapshotEmptyWallet(t *testing.T) {
	svc := NewPortfolioService(
		&stubOwnership{moments: []types.Moment{}},
		&stubPricing{},
		&stubStore{records: map[string]*types.PurchaseRecord{}},
		4,
	)

	snapshot, err := svc.BuildSnapshot(context.Background(), "0x1d4b4b0d7f8e9c2a", nil)
	require.NoError(t, err)

	assert.Empty(t, snapshot.Items)
	assert.True(t, snapshot.TotalCost.IsZero())
	assert.True(t, snapshot.TotalMarketValue.IsZero())
	assert.True(t, snapshot.ProfitLoss.IsZero())
	assert.False(t, snapshot.GeneratedAt.IsZero())
}

func TestBuildSnapshotMatchedPairTotals(t *testing.T) {
	ownership := &stubOwnership{moments: moments("m1", "m2", "m3")}
	pricing := &stubPricing{prices: map[string]string{
		"m1": "50", // has record: counted in both totals
		"m3": "70", // no record: excluded from totals entirely
	}}
	store := &stubStore{records: map[string]*types.PurchaseRecord{
		"m1": {ItemID: "m1", PurchasePrice: decPtr("30")},
		"m2": {ItemID: "m2", PurchasePrice: decPtr("10")}, // no market price: cost counted, value zero
	}}

	svc := NewPortfolioService(ownership, pricing, store, 4)
	snapshot, err := svc.BuildSnapshot(context.Background(), "0x1d4b4b0d7f8e9c2a", nil)
	require.NoError(t, err)

	assert.True(t, snapshot.TotalCost.Equal(decimal.NewFromInt(40)), "cost = 30 + 10")
	assert.True(t, snapshot.TotalMarketValue.Equal(decimal.NewFromInt(50)), "value counts only priced items with a record")
	assert.True(t, snapshot.ProfitLoss.Equal(decimal.NewFromInt(10)))
}

func TestBuildSnapshotPreservesMomentOrder(t *testing.T) {
	ids := []string{"m5", "m1", "m9", "m3", "m7", "m2", "m8", "m4", "m6", "m0"}
	ownership := &stubOwnership{moments: moments(ids...)}
	pricing := &stubPricing{prices: map[string]string{}}
	store := &stubStore{records: map[string]*types.PurchaseRecord{}}

	svc := NewPortfolioService(ownership, pricing, store, 3)
	snapshot, err := svc.BuildSnapshot(context.Background(), "0x1d4b4b0d7f8e9c2a", nil)
	require.NoError(t, err)

	require.Len(t, snapshot.Items, len(ids))
	for i, id := range ids {
		assert.Equal(t, id, snapshot.Items[i].ID)
	}
}

func TestBuildSnapshotOwnershipErrorPropagates(t *testing.T) {
	svcErr := &types.ServiceError{Code: "SOURCE_UNAVAILABLE", Message: "all sources down"}
	svc := NewPortfolioService(&stubOwnership{err: svcErr}, &stubPricing{}, &stubStore{}, 4)

	_, err := svc.BuildSnapshot(context.Background(), "0x1d4b4b0d7f8e9c2a", nil)
	require.Error(t, err)
	assert.Equal(t, svcErr, err)
}

func TestBuildSnapshotStoreReadFailureDegrades(t *testing.T) {
	ownership := &stubOwnership{moments: moments("m1")}
	pricing := &stubPricing{prices: map[string]string{"m1": "12"}}
	store := &stubStore{getErr: errors.New("redis down")}

	svc := NewPortfolioService(ownership, pricing, store, 4)
	snapshot, err := svc.BuildSnapshot(context.Background(), "0x1d4b4b0d7f8e9c2a", nil)
	require.NoError(t, err, "a store read failure must not fail the snapshot")

	require.Len(t, snapshot.Items, 1)
	assert.Nil(t, snapshot.Items[0].PurchasePrice)
	assert.True(t, snapshot.TotalCost.IsZero())
}

func TestBuildSnapshotOverrides(t *testing.T) {
	ownership := &stubOwnership{moments: moments("m1", "m2")}
	pricing := &stubPricing{prices: map[string]string{"m1": "20", "m2": "20"}}
	store := &stubStore{records: map[string]*types.PurchaseRecord{
		"m1": {ItemID: "m1", PurchasePrice: decPtr("5")},
	}}

	overrides := map[string]types.PurchasePatch{
		"m1": {PurchasePrice: decPtr("100")}, // stored record wins, override ignored
		"m2": {PurchasePrice: decPtr("15")},  // no record, override applies
	}

	svc := NewPortfolioService(ownership, pricing, store, 4)
	snapshot, err := svc.BuildSnapshot(context.Background(), "0x1d4b4b0d7f8e9c2a", overrides)
	require.NoError(t, err)

	assert.True(t, snapshot.Items[0].PurchasePrice.Equal(decimal.NewFromInt(5)))
	assert.True(t, snapshot.Items[1].PurchasePrice.Equal(decimal.NewFromInt(15)))
	assert.True(t, snapshot.TotalCost.Equal(decimal.NewFromInt(20)))

	// Overrides are request-scoped and never written back
	assert.Zero(t, store.puts)
}

func TestBuildSnapshotPricesEveryItemOnce(t *testing.T) {
	ownership := &stubOwnership{moments: moments("m1", "m2", "m3", "m4", "m5")}
	pricing := &stubPricing{prices: map[string]string{}}
	store := &stubStore{records: map[string]*types.PurchaseRecord{}}

	svc := NewPortfolioService(ownership, pricing, store, 2)
	_, err := svc.BuildSnapshot(context.Background(), "0x1d4b4b0d7f8e9c2a", nil)
	require.NoError(t, err)

	assert.Equal(t, 5, pricing.calls)
}
