package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/uxmeas/kollects-io/internal/types"
)

// RedisPurchaseRepository stores purchase records in Redis hashes, one hash
// per wallet keyed by item ID
type RedisPurchaseRepository struct {
	store *RedisStore
}

// NewRedisPurchaseRepository creates a Redis-backed purchase record repository
func NewRedisPurchaseRepository(store *RedisStore) *RedisPurchaseRepository {
	return &RedisPurchaseRepository{store: store}
}

// walletKey returns the hash key holding all records for a wallet. Addresses
// are normalized so differently-cased requests hit the same hash.
func walletKey(wallet string) string {
	return "purchases:" + types.NormalizeAddress(wallet)
}

// Get retrieves a single purchase record, or nil when none is stored
func (r *RedisPurchaseRepository) Get(ctx context.Context, wallet, itemID string) (*types.PurchaseRecord, error) {
	data, err := r.store.Client().HGet(ctx, walletKey(wallet), itemID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get purchase record: %w", err)
	}

	var record types.PurchaseRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal purchase record: %w", err)
	}

	return &record, nil
}

// GetAll retrieves every purchase record for a wallet, keyed by item ID
func (r *RedisPurchaseRepository) GetAll(ctx context.Context, wallet string) (map[string]*types.PurchaseRecord, error) {
	entries, err := r.store.Client().HGetAll(ctx, walletKey(wallet)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list purchase records: %w", err)
	}

	records := make(map[string]*types.PurchaseRecord, len(entries))
	for itemID, data := range entries {
		var record types.PurchaseRecord
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal purchase record for %s: %w", itemID, err)
		}
		records[itemID] = &record
	}

	return records, nil
}

// Put merges a patch into the stored record for (wallet, itemID), creating
// the record if absent, and returns the merged result
func (r *RedisPurchaseRepository) Put(ctx context.Context, wallet, itemID string, patch types.PurchasePatch) (*types.PurchaseRecord, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	existing, err := r.Get(ctx, wallet, itemID)
	if err != nil {
		return nil, err
	}

	record := mergeRecord(existing, types.NormalizeAddress(wallet), itemID, patch, time.Now().UTC())

	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal purchase record: %w", err)
	}

	if err := r.store.Client().HSet(ctx, walletKey(wallet), itemID, data).Err(); err != nil {
		return nil, fmt.Errorf("failed to store purchase record: %w", err)
	}

	return record, nil
}

// Delete removes a purchase record. Deleting an absent record is not an error.
func (r *RedisPurchaseRepository) Delete(ctx context.Context, wallet, itemID string) error {
	if err := r.store.Client().HDel(ctx, walletKey(wallet), itemID).Err(); err != nil {
		return fmt.Errorf("failed to delete purchase record: %w", err)
	}
	return nil
}
