package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// POInvoiceMatch is a purchase order compared with the vendor's invoice against it.
type POInvoiceMatch struct {
	ID            int             `json:"id"`
	CompanyID     int             `json:"company_id"`
	PONumber      string          `json:"po_number"`
	InvoiceNumber string          `json:"invoice_number"`
	VendorCode    string          `json:"vendor_code"`
	PO            MatchAmounts    `json:"po"`
	Invoice       MatchAmounts    `json:"invoice"`
	QtyOK         bool            `json:"qty_ok"`
	ValueOK       bool            `json:"value_ok"`
	GSTOK         bool            `json:"gst_ok"`
	Status        string          `json:"status"`
	ReviewNote    string          `json:"review_note"`
	CreatedAt     time.Time       `json:"created_at"`
	ValueVariance decimal.Decimal `json:"value_variance"`
}

// POInvoiceInput carries both sides of a comparison.
type POInvoiceInput struct {
	PONumber      string       `json:"po_number"`
	InvoiceNumber string       `json:"invoice_number"`
	VendorCode    string       `json:"vendor_code"`
	PO            MatchAmounts `json:"po"`
	Invoice       MatchAmounts `json:"invoice"`
}

// Validate checks references are present and amounts are not negative.
func (in POInvoiceInput) Validate() error {
	ve := NewValidationErrors()
	if in.PONumber == "" {
		ve.Add("po_number", "cannot be empty")
	}
	if in.InvoiceNumber == "" {
		ve.Add("invoice_number", "cannot be empty")
	}
	if in.VendorCode == "" {
		ve.Add("vendor_code", "cannot be empty")
	}
	for prefix, a := range map[string]MatchAmounts{"po": in.PO, "invoice": in.Invoice} {
		if a.Qty.IsNegative() {
			ve.Add(prefix+".qty", "cannot be negative")
		}
		if a.Value.IsNegative() {
			ve.Add(prefix+".value", "cannot be negative")
		}
		if a.GST.IsNegative() {
			ve.Add(prefix+".gst", "cannot be negative")
		}
	}
	return ve.Err()
}

// POMatchFilter narrows a listing.
type POMatchFilter struct {
	Status     string
	VendorCode string
}

// POMatchService records PO-invoice comparisons and their review.
type POMatchService interface {
	Record(ctx context.Context, companyID int, input POInvoiceInput) (*POInvoiceMatch, error)
	List(ctx context.Context, companyID int, filter POMatchFilter) ([]POInvoiceMatch, error)
	Get(ctx context.Context, companyID, id int) (*POInvoiceMatch, error)
	Review(ctx context.Context, companyID, id int, approve bool, note string) (*POInvoiceMatch, error)
}
