package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/uxmeas/kollects-io/internal/types"
)

// PostgresPurchaseRepository stores purchase records in the purchase_records
// table, one row per (wallet, item)
type PostgresPurchaseRepository struct {
	db *PostgresDB
}

// NewPostgresPurchaseRepository creates a Postgres-backed purchase record repository
func NewPostgresPurchaseRepository(db *PostgresDB) *PostgresPurchaseRepository {
	return &PostgresPurchaseRepository{db: db}
}

// purchaseRow holds the raw column values of a purchase_records row before
// conversion into the domain record
type purchaseRow struct {
	walletAddress string
	itemID        string
	purchasePrice *string
	purchaseDate  *time.Time
	notes         *string
	updatedAt     time.Time
}

// toRecord converts a scanned row into a domain record
func (row *purchaseRow) toRecord() (*types.PurchaseRecord, error) {
	record := &types.PurchaseRecord{
		WalletAddress: row.walletAddress,
		ItemID:        row.itemID,
		Notes:         row.notes,
		UpdatedAt:     row.updatedAt,
	}

	if row.purchasePrice != nil {
		price, err := decimal.NewFromString(*row.purchasePrice)
		if err != nil {
			return nil, fmt.Errorf("invalid stored price %q: %w", *row.purchasePrice, err)
		}
		record.PurchasePrice = &price
	}

	if row.purchaseDate != nil {
		d := types.DateOf(*row.purchaseDate)
		record.PurchaseDate = &d
	}

	return record, nil
}

// priceArg converts an optional decimal into a nullable text query argument
func priceArg(price *decimal.Decimal) *string {
	if price == nil {
		return nil
	}
	s := price.String()
	return &s
}

// dateArg converts an optional calendar date into a nullable timestamp argument
func dateArg(date *types.Date) *time.Time {
	if date == nil {
		return nil
	}
	t := date.Time()
	return &t
}

// Get retrieves a single purchase record, or nil when none is stored
func (r *PostgresPurchaseRepository) Get(ctx context.Context, wallet, itemID string) (*types.PurchaseRecord, error) {
	query := `
		SELECT wallet_address, item_id, purchase_price::text, purchase_date, notes, updated_at
		FROM purchase_records
		WHERE wallet_address = $1 AND item_id = $2`

	var row purchaseRow
	err := r.db.Pool().QueryRow(ctx, query, types.NormalizeAddress(wallet), itemID).Scan(
		&row.walletAddress,
		&row.itemID,
		&row.purchasePrice,
		&row.purchaseDate,
		&row.notes,
		&row.updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get purchase record: %w", err)
	}

	return row.toRecord()
}

// GetAll retrieves every purchase record for a wallet, keyed by item ID
func (r *PostgresPurchaseRepository) GetAll(ctx context.Context, wallet string) (map[string]*types.PurchaseRecord, error) {
	query := `
		SELECT wallet_address, item_id, purchase_price::text, purchase_date, notes, updated_at
		FROM purchase_records
		WHERE wallet_address = $1`

	rows, err := r.db.Pool().Query(ctx, query, types.NormalizeAddress(wallet))
	if err != nil {
		return nil, fmt.Errorf("failed to list purchase records: %w", err)
	}
	defer rows.Close()

	records := make(map[string]*types.PurchaseRecord)
	for rows.Next() {
		var row purchaseRow
		if err := rows.Scan(
			&row.walletAddress,
			&row.itemID,
			&row.purchasePrice,
			&row.purchaseDate,
			&row.notes,
			&row.updatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan purchase record: %w", err)
		}

		record, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		records[record.ItemID] = record
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate purchase records: %w", err)
	}

	return records, nil
}

// Put merges a patch into the stored record for (wallet, itemID) with a
// single upsert. COALESCE keeps the stored value wherever the patch leaves a
// field unset.
func (r *PostgresPurchaseRepository) Put(ctx context.Context, wallet, itemID string, patch types.PurchasePatch) (*types.PurchaseRecord, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO purchase_records (wallet_address, item_id, purchase_price, purchase_date, notes, updated_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6)
		ON CONFLICT (wallet_address, item_id) DO UPDATE SET
			purchase_price = COALESCE(EXCLUDED.purchase_price, purchase_records.purchase_price),
			purchase_date  = COALESCE(EXCLUDED.purchase_date, purchase_records.purchase_date),
			notes          = COALESCE(EXCLUDED.notes, purchase_records.notes),
			updated_at     = EXCLUDED.updated_at
		RETURNING wallet_address, item_id, purchase_price::text, purchase_date, notes, updated_at`

	var row purchaseRow
	err := r.db.Pool().QueryRow(ctx, query,
		types.NormalizeAddress(wallet),
		itemID,
		priceArg(patch.PurchasePrice),
		dateArg(patch.PurchaseDate),
		patch.Notes,
		time.Now().UTC(),
	).Scan(
		&row.walletAddress,
		&row.itemID,
		&row.purchasePrice,
		&row.purchaseDate,
		&row.notes,
		&row.updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to store purchase record: %w", err)
	}

	return row.toRecord()
}

// Delete removes a purchase record. Deleting an absent record is not an error.
func (r *PostgresPurchaseRepository) Delete(ctx context.Context, wallet, itemID string) error {
	query := `DELETE FROM purchase_records WHERE wallet_address = $1 AND item_id = $2`

	if _, err := r.db.Pool().Exec(ctx, query, types.NormalizeAddress(wallet), itemID); err != nil {
		return fmt.Errorf("failed to delete purchase record: %w", err)
	}
	return nil
}
