package core

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SKU is a stock-keeping unit in the item master.
type SKU struct {
	ID           int             `json:"id"`
	CompanyID    int             `json:"company_id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	HSNCode      *string         `json:"hsn_code,omitempty"`
	Unit         string          `json:"unit"`
	GSTRate      decimal.Decimal `json:"gst_rate"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
}

// SKUInput holds the fields accepted when creating a SKU.
type SKUInput struct {
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	HSNCode      string          `json:"hsn_code"`
	Unit         string          `json:"unit"`
	GSTRate      decimal.Decimal `json:"gst_rate"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
}

// Normalize trims fields and defaults the unit to "nos".
func (in *SKUInput) Normalize() {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	in.HSNCode = strings.TrimSpace(in.HSNCode)
	in.Unit = strings.ToLower(strings.TrimSpace(in.Unit))
	if in.Unit == "" {
		in.Unit = "nos"
	}
}

// Validate checks required fields, HSN shape and the GST slab.
func (in SKUInput) Validate() error {
	ve := NewValidationErrors()
	if in.Code == "" {
		ve.Add("code", "cannot be empty")
	}
	if in.Name == "" {
		ve.Add("name", "cannot be empty")
	}
	if in.HSNCode != "" && !ValidateHSN(in.HSNCode) {
		ve.Add("hsn_code", "must be 4 to 8 digits")
	}
	if !IsValidGSTRate(in.GSTRate) {
		ve.Add("gst_rate", "must be one of 0, 0.25, 3, 5, 12, 18, 28")
	}
	if in.ReorderLevel.IsNegative() {
		ve.Add("reorder_level", "cannot be negative")
	}
	return ve.Err()
}

// SKUService provides item master operations.
type SKUService interface {
	Create(ctx context.Context, companyID int, input SKUInput) (*SKU, error)
	List(ctx context.Context, companyID int, search string) ([]SKU, error)
	GetByCode(ctx context.Context, companyID int, code string) (*SKU, error)
}
