package storage

import (
	"time"

	"github.com/uxmeas/kollects-io/internal/types"
)

// mergeRecord applies a patch on top of an existing record, producing the
// record to persist. Nil patch fields keep the stored value; set fields
// replace it. existing may be nil when no record is stored yet.
func mergeRecord(existing *types.PurchaseRecord, wallet, itemID string, patch types.PurchasePatch, now time.Time) *types.PurchaseRecord {
	record := &types.PurchaseRecord{
		WalletAddress: wallet,
		ItemID:        itemID,
		UpdatedAt:     now,
	}

	if existing != nil {
		record.PurchasePrice = existing.PurchasePrice
		record.PurchaseDate = existing.PurchaseDate
		record.Notes = existing.Notes
	}

	if patch.PurchasePrice != nil {
		record.PurchasePrice = patch.PurchasePrice
	}
	if patch.PurchaseDate != nil {
		record.PurchaseDate = patch.PurchaseDate
	}
	if patch.Notes != nil {
		record.Notes = patch.Notes
	}

	return record
}
