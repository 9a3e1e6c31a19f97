package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Vendor balance confirmation statuses.
const (
	ConfirmationPending   = "pending"
	ConfirmationSent      = "sent"
	ConfirmationConfirmed = "confirmed"
	ConfirmationDisputed  = "disputed"
)

// confirmationTolerance is the largest difference still treated as agreement.
var confirmationTolerance = decimal.NewFromInt(1)

// VendorConfirmation asks a vendor to confirm the balance our books show at a period end.
type VendorConfirmation struct {
	ID               int              `json:"id"`
	CompanyID        int              `json:"company_id"`
	VendorCode       string           `json:"vendor_code"`
	VendorName       string           `json:"vendor_name,omitempty"`
	PeriodEnd        time.Time        `json:"period_end"`
	BookBalance      decimal.Decimal  `json:"book_balance"`
	ConfirmedBalance *decimal.Decimal `json:"confirmed_balance,omitempty"`
	Difference       *decimal.Decimal `json:"difference,omitempty"`
	Status           string           `json:"status"`
	Remarks          string           `json:"remarks"`
	RespondedAt      *time.Time       `json:"responded_at,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
}

// ConfirmationInput opens a confirmation request.
type ConfirmationInput struct {
	VendorCode  string          `json:"vendor_code"`
	PeriodEnd   time.Time       `json:"period_end"`
	BookBalance decimal.Decimal `json:"book_balance"`
}

// Validate checks the request is complete.
func (in ConfirmationInput) Validate() error {
	ve := NewValidationErrors()
	if in.VendorCode == "" {
		ve.Add("vendor_code", "cannot be empty")
	}
	if in.PeriodEnd.IsZero() {
		ve.Add("period_end", "is required")
	}
	return ve.Err()
}

// ConfirmationResponse is the balance the vendor reports back.
type ConfirmationResponse struct {
	ConfirmedBalance decimal.Decimal `json:"confirmed_balance"`
	Remarks          string          `json:"remarks"`
}

// ResolveConfirmation returns the book-to-vendor difference and the resulting status.
// Balances within a rupee are confirmed; anything else is disputed.
func ResolveConfirmation(book, confirmed decimal.Decimal) (decimal.Decimal, string) {
	diff := confirmed.Sub(book)
	if IsWithinTolerance(book, confirmed, confirmationTolerance) {
		return diff, ConfirmationConfirmed
	}
	return diff, ConfirmationDisputed
}

// ConfirmationService manages vendor ledger balance confirmations.
type ConfirmationService interface {
	Create(ctx context.Context, companyID int, input ConfirmationInput) (*VendorConfirmation, error)
	List(ctx context.Context, companyID int, status string) ([]VendorConfirmation, error)
	MarkSent(ctx context.Context, companyID, id int) (*VendorConfirmation, error)
	Respond(ctx context.Context, companyID, id int, resp ConfirmationResponse) (*VendorConfirmation, error)
}
