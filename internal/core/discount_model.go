package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Discount term types.
const (
	DiscountTermCash   = "cash"
	DiscountTermTrade  = "trade"
	DiscountTermVolume = "volume"
)

// DiscountTerm is a discount a vendor has agreed to give.
type DiscountTerm struct {
	ID         int             `json:"id"`
	CompanyID  int             `json:"company_id"`
	VendorCode string          `json:"vendor_code"`
	TermType   string          `json:"term_type"`
	Percent    decimal.Decimal `json:"percent"`
	WithinDays int             `json:"within_days"`
	ValidFrom  time.Time       `json:"valid_from"`
	ValidTo    *time.Time      `json:"valid_to,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ActiveOn reports whether the term applies on day.
func (t DiscountTerm) ActiveOn(day time.Time) bool {
	if day.Before(t.ValidFrom) {
		return false
	}
	return t.ValidTo == nil || !day.After(*t.ValidTo)
}

// DiscountTermInput creates a term.
type DiscountTermInput struct {
	VendorCode string          `json:"vendor_code"`
	TermType   string          `json:"term_type"`
	Percent    decimal.Decimal `json:"percent"`
	WithinDays int             `json:"within_days"`
	ValidFrom  time.Time       `json:"valid_from"`
	ValidTo    *time.Time      `json:"valid_to,omitempty"`
}

// Validate checks the term is usable.
func (in DiscountTermInput) Validate() error {
	ve := NewValidationErrors()
	if in.VendorCode == "" {
		ve.Add("vendor_code", "cannot be empty")
	}
	switch in.TermType {
	case DiscountTermCash, DiscountTermTrade, DiscountTermVolume:
	default:
		ve.Add("term_type", "must be cash, trade or volume")
	}
	if !in.Percent.IsPositive() || in.Percent.GreaterThan(hundred) {
		ve.Add("percent", "must be greater than 0 and at most 100")
	}
	if in.WithinDays < 0 {
		ve.Add("within_days", "cannot be negative")
	}
	if in.TermType == DiscountTermCash && in.WithinDays == 0 {
		ve.Add("within_days", "is required for cash discounts")
	}
	if in.ValidFrom.IsZero() {
		ve.Add("valid_from", "is required")
	}
	if in.ValidTo != nil && in.ValidTo.Before(in.ValidFrom) {
		ve.Add("valid_to", "cannot be before valid_from")
	}
	return ve.Err()
}

// DiscountAudit checks the discount taken on one invoice.
type DiscountAudit struct {
	ID               int             `json:"id"`
	CompanyID        int             `json:"company_id"`
	VendorCode       string          `json:"vendor_code"`
	InvoiceNumber    string          `json:"invoice_number"`
	InvoiceAmount    decimal.Decimal `json:"invoice_amount"`
	ExpectedDiscount decimal.Decimal `json:"expected_discount"`
	AppliedDiscount  decimal.Decimal `json:"applied_discount"`
	Variance         decimal.Decimal `json:"variance"`
	Status           string          `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
}

// DiscountAuditInput records an audit. Status and variance are derived.
type DiscountAuditInput struct {
	VendorCode       string          `json:"vendor_code"`
	InvoiceNumber    string          `json:"invoice_number"`
	InvoiceAmount    decimal.Decimal `json:"invoice_amount"`
	ExpectedDiscount decimal.Decimal `json:"expected_discount"`
	AppliedDiscount  decimal.Decimal `json:"applied_discount"`
}

// Validate checks amounts.
func (in DiscountAuditInput) Validate() error {
	ve := NewValidationErrors()
	if in.VendorCode == "" {
		ve.Add("vendor_code", "cannot be empty")
	}
	if in.InvoiceNumber == "" {
		ve.Add("invoice_number", "cannot be empty")
	}
	if !in.InvoiceAmount.IsPositive() {
		ve.Add("invoice_amount", "must be positive")
	}
	if in.ExpectedDiscount.IsNegative() {
		ve.Add("expected_discount", "cannot be negative")
	}
	if in.AppliedDiscount.IsNegative() {
		ve.Add("applied_discount", "cannot be negative")
	}
	return ve.Err()
}

// DiscountService manages vendor discount terms and the audit of discounts taken.
type DiscountService interface {
	CreateTerm(ctx context.Context, companyID int, input DiscountTermInput) (*DiscountTerm, error)
	ListTerms(ctx context.Context, companyID int, vendorCode string) ([]DiscountTerm, error)
	RecordAudit(ctx context.Context, companyID int, input DiscountAuditInput) (*DiscountAudit, error)
	ListAudits(ctx context.Context, companyID int, status string) ([]DiscountAudit, error)
}
