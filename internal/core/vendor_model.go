package core

import (
	"context"
	"net/mail"
	"strings"
	"time"
)

// Party is a vendor or customer master record. Both live in tables of identical shape.
type Party struct {
	ID               int       `json:"id"`
	CompanyID        int       `json:"company_id"`
	Code             string    `json:"code"`
	Name             string    `json:"name"`
	GSTIN            *string   `json:"gstin,omitempty"`
	PAN              *string   `json:"pan,omitempty"`
	ContactPerson    *string   `json:"contact_person,omitempty"`
	Email            *string   `json:"email,omitempty"`
	Phone            *string   `json:"phone,omitempty"`
	Address          *string   `json:"address,omitempty"`
	City             *string   `json:"city,omitempty"`
	StateCode        *string   `json:"state_code,omitempty"`
	Pincode          *string   `json:"pincode,omitempty"`
	PaymentTermsDays int       `json:"payment_terms_days"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
}

// Vendor is a supplier in the accounts payable master.
type Vendor = Party

// Customer is a buyer in the accounts receivable master.
type Customer = Party

// PartyInput holds the fields accepted when creating or updating a vendor or customer.
type PartyInput struct {
	Code             string `json:"code"`
	Name             string `json:"name"`
	GSTIN            string `json:"gstin"`
	PAN              string `json:"pan"`
	ContactPerson    string `json:"contact_person"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	Address          string `json:"address"`
	City             string `json:"city"`
	StateCode        string `json:"state_code"`
	Pincode          string `json:"pincode"`
	PaymentTermsDays int    `json:"payment_terms_days"`
}

// Normalize trims fields, upper-cases tax identifiers, and fills PAN, state code and
// payment terms from their defaults.
func (in *PartyInput) Normalize() {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	in.GSTIN = NormalizeIdentifier(in.GSTIN)
	in.PAN = NormalizeIdentifier(in.PAN)
	in.Email = strings.TrimSpace(in.Email)
	in.Pincode = strings.TrimSpace(in.Pincode)
	in.StateCode = strings.TrimSpace(in.StateCode)
	if in.PaymentTermsDays == 0 {
		in.PaymentTermsDays = 30
	}
	if ValidateGSTIN(in.GSTIN) {
		if in.PAN == "" {
			in.PAN = PANFromGSTIN(in.GSTIN)
		}
		if in.StateCode == "" {
			in.StateCode = StateCodeFromGSTIN(in.GSTIN)
		}
	}
}

// Validate checks required fields and identifier shapes. Call Normalize first.
func (in PartyInput) Validate() error {
	ve := NewValidationErrors()
	if in.Code == "" {
		ve.Add("code", "cannot be empty")
	}
	if in.Name == "" {
		ve.Add("name", "cannot be empty")
	}
	if in.GSTIN != "" && !ValidateGSTIN(in.GSTIN) {
		ve.Add("gstin", "must be a 15-character GSTIN, e.g. 29ABCDE1234F1Z5")
	}
	if in.PAN != "" && !ValidatePAN(in.PAN) {
		ve.Add("pan", "must be a 10-character PAN, e.g. ABCDE1234F")
	}
	if ValidateGSTIN(in.GSTIN) && in.PAN != "" && in.PAN != PANFromGSTIN(in.GSTIN) {
		ve.Add("pan", "does not match the PAN embedded in the GSTIN")
	}
	if ValidateGSTIN(in.GSTIN) && in.StateCode != "" && in.StateCode != StateCodeFromGSTIN(in.GSTIN) {
		ve.Add("state_code", "does not match the GSTIN state code")
	}
	if in.StateCode != "" {
		if _, ok := StateName(in.StateCode); !ok {
			ve.Add("state_code", "unknown GST state code")
		}
	}
	if in.Pincode != "" && !ValidatePincode(in.Pincode) {
		ve.Add("pincode", "must be 6 digits and cannot start with 0")
	}
	if in.Email != "" {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			ve.Add("email", "invalid email address")
		}
	}
	if in.PaymentTermsDays < 0 {
		ve.Add("payment_terms_days", "cannot be negative")
	}
	return ve.Err()
}

// PartyFilter narrows a party listing. Search matches code, name or GSTIN, case-insensitively.
type PartyFilter struct {
	Search          string
	IncludeInactive bool
}

// PartyService provides vendor or customer master data operations. Each instance is bound
// to one of the two tables.
type PartyService interface {
	Create(ctx context.Context, companyID int, input PartyInput) (*Party, error)
	List(ctx context.Context, companyID int, filter PartyFilter) ([]Party, error)
	GetByCode(ctx context.Context, companyID int, code string) (*Party, error)
	Update(ctx context.Context, companyID int, code string, input PartyInput) (*Party, error)
	Deactivate(ctx context.Context, companyID int, code string) error
}
