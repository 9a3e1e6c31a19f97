package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// InventorySnapshot is a physical stock count compared with the book quantity for one SKU
// on one date.
type InventorySnapshot struct {
	ID            int             `json:"id"`
	CompanyID     int             `json:"company_id"`
	SKUCode       string          `json:"sku_code"`
	SKUName       string          `json:"sku_name,omitempty"`
	AsOf          time.Time       `json:"as_of"`
	BookQty       decimal.Decimal `json:"book_qty"`
	PhysicalQty   decimal.Decimal `json:"physical_qty"`
	VarianceQty   decimal.Decimal `json:"variance_qty"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	VarianceValue decimal.Decimal `json:"variance_value"`
	CreatedAt     time.Time       `json:"created_at"`
}

// SnapshotInput is a stock count to record.
type SnapshotInput struct {
	SKUCode     string          `json:"sku_code"`
	AsOf        time.Time       `json:"as_of"`
	BookQty     decimal.Decimal `json:"book_qty"`
	PhysicalQty decimal.Decimal `json:"physical_qty"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
}

// Validate checks the count is complete.
func (in SnapshotInput) Validate() error {
	ve := NewValidationErrors()
	if in.SKUCode == "" {
		ve.Add("sku_code", "cannot be empty")
	}
	if in.AsOf.IsZero() {
		ve.Add("as_of", "is required")
	}
	if in.BookQty.IsNegative() {
		ve.Add("book_qty", "cannot be negative")
	}
	if in.PhysicalQty.IsNegative() {
		ve.Add("physical_qty", "cannot be negative")
	}
	if in.UnitCost.IsNegative() {
		ve.Add("unit_cost", "cannot be negative")
	}
	return ve.Err()
}

// StockVariance returns physical minus book quantity and its value at unitCost.
// A negative variance is a shortage.
func StockVariance(book, physical, unitCost decimal.Decimal) (qty, value decimal.Decimal) {
	qty = physical.Sub(book)
	return qty, round2(qty.Mul(unitCost))
}

// SnapshotFilter narrows a listing.
type SnapshotFilter struct {
	SKUCode string
	AsOf    *time.Time
	// VarianceOnly drops counts that agree with the books.
	VarianceOnly bool
}

// InventoryService records stock counts against book quantities.
type InventoryService interface {
	RecordSnapshot(ctx context.Context, companyID int, input SnapshotInput) (*InventorySnapshot, error)
	ListSnapshots(ctx context.Context, companyID int, filter SnapshotFilter) ([]InventorySnapshot, error)
}
