package core

import "time"

// Company is the tenant every record is scoped to.
type Company struct {
	ID          int       `json:"id"`
	CompanyCode string    `json:"company_code"`
	Name        string    `json:"name"`
	GSTIN       *string   `json:"gstin,omitempty"`
	StateCode   *string   `json:"state_code,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
