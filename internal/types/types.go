// Package types provides common type definitions for the kollects portfolio engine.
package types

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PriceSource identifies which pricing provider produced a quote
type PriceSource string

const (
	// SourceEvaluate represents the Evaluate.market listings API
	SourceEvaluate PriceSource = "evaluate"
	// SourceMomentRanks represents the MomentRanks valuation API
	SourceMomentRanks PriceSource = "momentranks"
	// SourceOTM represents the OTM NFT marketplace API
	SourceOTM PriceSource = "otmnft"
	// SourceNone represents a quote for which no provider answered
	SourceNone PriceSource = "none"
)

// Moment represents a single collectible moment owned by a wallet.
// All fields are set at mint time and read-only to this engine.
type Moment struct {
	ID           string `json:"id"`
	EditionID    string `json:"editionId"`
	SerialNumber uint32 `json:"serialNumber"`
	PlayerName   string `json:"playerName"`
	Team         string `json:"team"`
	PlayType     string `json:"playType"`
}

// PriceQuote represents the current market price for a moment.
// Price is nil when no provider returned a usable price; it is never
// zero or negative.
type PriceQuote struct {
	ItemID   string           `json:"itemId"`
	Price    *decimal.Decimal `json:"price"`
	Source   PriceSource      `json:"source"`
	Currency string           `json:"currency"`
}

// PurchaseRecord represents user-entered cost basis for a moment,
// keyed by (wallet, item) with at most one record per key.
type PurchaseRecord struct {
	WalletAddress string           `json:"walletAddress"`
	ItemID        string           `json:"itemId"`
	PurchasePrice *decimal.Decimal `json:"purchasePrice,omitempty"`
	PurchaseDate  *Date            `json:"purchaseDate,omitempty"`
	Notes         *string          `json:"notes,omitempty"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// PurchasePatch represents a partial purchase record for merge-put:
// fields present overwrite, fields absent are preserved.
type PurchasePatch struct {
	PurchasePrice *decimal.Decimal `json:"purchasePrice,omitempty"`
	PurchaseDate  *Date            `json:"purchaseDate,omitempty"`
	Notes         *string          `json:"notes,omitempty"`
}

// IsEmpty reports whether the patch carries no fields at all
func (p *PurchasePatch) IsEmpty() bool {
	return p.PurchasePrice == nil && p.PurchaseDate == nil && p.Notes == nil
}

// Validate checks patch field constraints
func (p *PurchasePatch) Validate() error {
	if p.PurchasePrice != nil && p.PurchasePrice.IsNegative() {
		return &ServiceError{
			Code:    "INVALID_INPUT",
			Message: "purchasePrice must be non-negative",
		}
	}
	return nil
}

// PortfolioItem represents one moment enriched with its market quote
// and purchase record, as it appears in a snapshot.
type PortfolioItem struct {
	Moment
	MarketPrice   *decimal.Decimal `json:"marketPrice"`
	PriceSource   PriceSource      `json:"priceSource"`
	PurchasePrice *decimal.Decimal `json:"purchasePrice"`
	PurchaseDate  *Date            `json:"purchaseDate"`
	Notes         *string          `json:"notes"`
}

// PortfolioSnapshot represents one point-in-time computed view of a
// wallet's holdings plus valuation. Totals are computed strictly over
// the subset of items with a known purchase price, so that
// ProfitLoss = TotalMarketValue - TotalCost is meaningful.
type PortfolioSnapshot struct {
	Address          string          `json:"address"`
	Items            []PortfolioItem `json:"items"`
	TotalCost        decimal.Decimal `json:"totalCost"`
	TotalMarketValue decimal.Decimal `json:"totalMarketValue"`
	ProfitLoss       decimal.Decimal `json:"profitLoss"`
	GeneratedAt      time.Time       `json:"generatedAt"`
}

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// flowAddressPattern matches a Flow account address: 0x followed by 16 hex characters
var flowAddressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{16}$`)

// IsValidFlowAddress reports whether addr is a well-formed Flow account address
func IsValidFlowAddress(addr string) bool {
	return flowAddressPattern.MatchString(addr)
}

// NormalizeAddress lowercases an address for use as a storage key
func NormalizeAddress(addr string) string {
	return strings.ToLower(addr)
}
