package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Note types.
const (
	NoteCredit = "credit"
	NoteDebit  = "debit"
)

// CreditDebitNote adjusts an issued invoice. Tax is split the same way as on the invoice.
type CreditDebitNote struct {
	ID             int             `json:"id"`
	CompanyID      int             `json:"company_id"`
	NoteType       string          `json:"note_type"`
	NoteNumber     string          `json:"note_number"`
	PartyCode      string          `json:"party_code"`
	AgainstInvoice string          `json:"against_invoice"`
	NoteDate       time.Time       `json:"note_date"`
	Taxable        decimal.Decimal `json:"taxable"`
	GSTRate        decimal.Decimal `json:"gst_rate"`
	CGST           decimal.Decimal `json:"cgst"`
	SGST           decimal.Decimal `json:"sgst"`
	IGST           decimal.Decimal `json:"igst"`
	TotalTax       decimal.Decimal `json:"total_tax"`
	Reason         string          `json:"reason"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Total is the note amount including tax.
func (n CreditDebitNote) Total() decimal.Decimal {
	return n.Taxable.Add(n.TotalTax)
}

// NoteInput issues a note. IntraState selects CGST+SGST over IGST.
type NoteInput struct {
	NoteType       string          `json:"note_type"`
	NoteNumber     string          `json:"note_number"`
	PartyCode      string          `json:"party_code"`
	AgainstInvoice string          `json:"against_invoice"`
	NoteDate       time.Time       `json:"note_date"`
	Taxable        decimal.Decimal `json:"taxable"`
	GSTRate        decimal.Decimal `json:"gst_rate"`
	IntraState     bool            `json:"intra_state"`
	Reason         string          `json:"reason"`
}

// Validate checks the note can be issued.
func (in NoteInput) Validate() error {
	ve := NewValidationErrors()
	if in.NoteType != NoteCredit && in.NoteType != NoteDebit {
		ve.Add("note_type", "must be credit or debit")
	}
	if in.NoteNumber == "" {
		ve.Add("note_number", "cannot be empty")
	}
	if in.PartyCode == "" {
		ve.Add("party_code", "cannot be empty")
	}
	if in.AgainstInvoice == "" {
		ve.Add("against_invoice", "cannot be empty")
	}
	if in.NoteDate.IsZero() {
		ve.Add("note_date", "is required")
	}
	if !in.Taxable.IsPositive() {
		ve.Add("taxable", "must be positive")
	}
	if !IsValidGSTRate(in.GSTRate) {
		ve.Add("gst_rate", "must be a GST slab rate")
	}
	return ve.Err()
}

// NoteFilter narrows a listing.
type NoteFilter struct {
	NoteType  string
	PartyCode string
}

// NoteService issues and lists credit and debit notes.
type NoteService interface {
	Create(ctx context.Context, companyID int, input NoteInput) (*CreditDebitNote, error)
	List(ctx context.Context, companyID int, filter NoteFilter) ([]CreditDebitNote, error)
}
