package core

import (
	"context"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// GST match statuses, as produced by the GSTR-2A/2B reconciliation engine.
const (
	GSTMatchMatched         = "matched"
	GSTMatchMismatch        = "mismatch"
	GSTMatchMissingInBooks  = "missing_in_books"
	GSTMatchMissingInPortal = "missing_in_portal"
)

// ITC eligibility.
const (
	ITCEligible   = "eligible"
	ITCIneligible = "ineligible"
	ITCBlocked    = "blocked"
	ITCPending    = "pending"
)

// Return types a GST match can be drawn from.
const (
	ReturnGSTR2A = "GSTR-2A"
	ReturnGSTR2B = "GSTR-2B"
)

var returnPeriodRe = regexp.MustCompile(`^(0[1-9]|1[0-2])[0-9]{4}$`)

// ValidReturnPeriod reports whether p is a GST return period in MMYYYY form.
func ValidReturnPeriod(p string) bool {
	return returnPeriodRe.MatchString(p)
}

// GSTMatch pairs a purchase invoice in the books with the supplier's filing on the portal.
// Either side may be absent.
type GSTMatch struct {
	ID            int              `json:"id"`
	CompanyID     int              `json:"company_id"`
	ReturnPeriod  string           `json:"return_period"`
	ReturnType    string           `json:"return_type"`
	SupplierGSTIN string           `json:"supplier_gstin"`
	InvoiceNumber string           `json:"invoice_number"`
	InvoiceDate   *time.Time       `json:"invoice_date,omitempty"`
	BookTaxable   *decimal.Decimal `json:"book_taxable,omitempty"`
	BookTax       *decimal.Decimal `json:"book_tax,omitempty"`
	PortalTaxable *decimal.Decimal `json:"portal_taxable,omitempty"`
	PortalTax     *decimal.Decimal `json:"portal_tax,omitempty"`
	Status        string           `json:"status"`
	ITCStatus     string           `json:"itc_status"`
	Remarks       string           `json:"remarks"`
	CreatedAt     time.Time        `json:"created_at"`
}

// TaxDifference is portal tax minus book tax, treating a missing side as zero.
func (m GSTMatch) TaxDifference() decimal.Decimal {
	var book, portal decimal.Decimal
	if m.BookTax != nil {
		book = *m.BookTax
	}
	if m.PortalTax != nil {
		portal = *m.PortalTax
	}
	return portal.Sub(book)
}

// GSTMatchInput records one reconciliation result.
type GSTMatchInput struct {
	ReturnPeriod  string           `json:"return_period"`
	ReturnType    string           `json:"return_type"`
	SupplierGSTIN string           `json:"supplier_gstin"`
	InvoiceNumber string           `json:"invoice_number"`
	InvoiceDate   *time.Time       `json:"invoice_date,omitempty"`
	BookTaxable   *decimal.Decimal `json:"book_taxable,omitempty"`
	BookTax       *decimal.Decimal `json:"book_tax,omitempty"`
	PortalTaxable *decimal.Decimal `json:"portal_taxable,omitempty"`
	PortalTax     *decimal.Decimal `json:"portal_tax,omitempty"`
	Status        string           `json:"status"`
}

// Validate checks identifiers and enums.
func (in GSTMatchInput) Validate() error {
	ve := NewValidationErrors()
	if !ValidReturnPeriod(in.ReturnPeriod) {
		ve.Add("return_period", "must be MMYYYY")
	}
	if in.ReturnType != ReturnGSTR2A && in.ReturnType != ReturnGSTR2B {
		ve.Add("return_type", "must be GSTR-2A or GSTR-2B")
	}
	if !ValidateGSTIN(in.SupplierGSTIN) {
		ve.Add("supplier_gstin", "invalid GSTIN")
	}
	if in.InvoiceNumber == "" {
		ve.Add("invoice_number", "cannot be empty")
	}
	switch in.Status {
	case GSTMatchMatched, GSTMatchMismatch, GSTMatchMissingInBooks, GSTMatchMissingInPortal:
	default:
		ve.Add("status", "unknown GST match status")
	}
	return ve.Err()
}

// GSTReviewInput is an accountant's ITC decision on a match.
type GSTReviewInput struct {
	ITCStatus string `json:"itc_status"`
	Remarks   string `json:"remarks"`
}

// Validate rejects a review that leaves the decision pending.
func (in GSTReviewInput) Validate() error {
	ve := NewValidationErrors()
	switch in.ITCStatus {
	case ITCEligible, ITCIneligible, ITCBlocked:
	default:
		ve.Add("itc_status", "must be eligible, ineligible or blocked")
	}
	return ve.Err()
}

// GSTMatchFilter narrows a listing. Empty fields match everything.
type GSTMatchFilter struct {
	ReturnPeriod string
	Status       string
}

// GSTStatusSummary aggregates matches sharing a status.
type GSTStatusSummary struct {
	Status     string          `json:"status"`
	Count      int             `json:"count"`
	BookTax    decimal.Decimal `json:"book_tax"`
	PortalTax  decimal.Decimal `json:"portal_tax"`
	Difference decimal.Decimal `json:"difference"`
}

// GSTMatchService stores GST reconciliation results and the ITC review on each.
type GSTMatchService interface {
	Record(ctx context.Context, companyID int, input GSTMatchInput) (*GSTMatch, error)
	List(ctx context.Context, companyID int, filter GSTMatchFilter) ([]GSTMatch, error)
	Summary(ctx context.Context, companyID int, returnPeriod string) ([]GSTStatusSummary, error)
	Review(ctx context.Context, companyID, matchID int, input GSTReviewInput) (*GSTMatch, error)
}
