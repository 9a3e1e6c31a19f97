package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type partyService struct {
	pool   *pgxpool.Pool
	table  string
	entity string
}

// NewVendorService constructs a PartyService over the vendors table.
func NewVendorService(pool *pgxpool.Pool) PartyService {
	return &partyService{pool: pool, table: "vendors", entity: "vendor"}
}

// NewCustomerService constructs a PartyService over the customers table.
func NewCustomerService(pool *pgxpool.Pool) PartyService {
	return &partyService{pool: pool, table: "customers", entity: "customer"}
}

const partyColumns = `id, company_id, code, name, gstin, pan, contact_person, email, phone, address,
	city, state_code, pincode, payment_terms_days, is_active, created_at`

func scanParty(row pgx.Row) (*Party, error) {
	p := &Party{}
	err := row.Scan(
		&p.ID, &p.CompanyID, &p.Code, &p.Name, &p.GSTIN, &p.PAN,
		&p.ContactPerson, &p.Email, &p.Phone, &p.Address,
		&p.City, &p.StateCode, &p.Pincode, &p.PaymentTermsDays, &p.IsActive, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func toPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Create inserts a new party after normalizing and validating the input.
func (s *partyService) Create(ctx context.Context, companyID int, input PartyInput) (*Party, error) {
	input.Normalize()
	if err := input.Validate(); err != nil {
		return nil, err
	}

	p, err := scanParty(s.pool.QueryRow(ctx, `
		INSERT INTO `+s.table+` (company_id, code, name, gstin, pan, contact_person, email, phone,
		                         address, city, state_code, pincode, payment_terms_days)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+partyColumns,
		companyID, input.Code, input.Name, toPtr(input.GSTIN), toPtr(input.PAN),
		toPtr(input.ContactPerson), toPtr(input.Email), toPtr(input.Phone), toPtr(input.Address),
		toPtr(input.City), toPtr(input.StateCode), toPtr(input.Pincode), input.PaymentTermsDays,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%s %q: %w", s.entity, input.Code, ErrConflict)
		}
		return nil, fmt.Errorf("create %s %q: %w", s.entity, input.Code, err)
	}
	return p, nil
}

// List returns parties for a company ordered by code.
func (s *partyService) List(ctx context.Context, companyID int, filter PartyFilter) ([]Party, error) {
	query := `SELECT ` + partyColumns + ` FROM ` + s.table + ` WHERE company_id = $1`
	args := []any{companyID}
	if !filter.IncludeInactive {
		query += ` AND is_active = true`
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		args = append(args, "%"+strings.ToLower(q)+"%")
		query += fmt.Sprintf(` AND (LOWER(code) LIKE $%d OR LOWER(name) LIKE $%d OR LOWER(COALESCE(gstin, '')) LIKE $%d)`,
			len(args), len(args), len(args))
	}
	query += ` ORDER BY code`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %ss: %w", s.entity, err)
	}
	defer rows.Close()

	var parties []Party
	for rows.Next() {
		p, err := scanParty(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.entity, err)
		}
		parties = append(parties, *p)
	}
	return parties, rows.Err()
}

// GetByCode returns a party by code, scoped to the company.
func (s *partyService) GetByCode(ctx context.Context, companyID int, code string) (*Party, error) {
	p, err := scanParty(s.pool.QueryRow(ctx,
		`SELECT `+partyColumns+` FROM `+s.table+` WHERE company_id = $1 AND code = $2`,
		companyID, code,
	))
	if err != nil {
		return nil, lookupErr(s.entity, code, err)
	}
	return p, nil
}

// Update replaces the editable fields of a party. The code in the path wins over input.Code.
func (s *partyService) Update(ctx context.Context, companyID int, code string, input PartyInput) (*Party, error) {
	input.Code = code
	input.Normalize()
	if err := input.Validate(); err != nil {
		return nil, err
	}

	p, err := scanParty(s.pool.QueryRow(ctx, `
		UPDATE `+s.table+`
		SET name = $3, gstin = $4, pan = $5, contact_person = $6, email = $7, phone = $8,
		    address = $9, city = $10, state_code = $11, pincode = $12, payment_terms_days = $13
		WHERE company_id = $1 AND code = $2
		RETURNING `+partyColumns,
		companyID, code, input.Name, toPtr(input.GSTIN), toPtr(input.PAN),
		toPtr(input.ContactPerson), toPtr(input.Email), toPtr(input.Phone), toPtr(input.Address),
		toPtr(input.City), toPtr(input.StateCode), toPtr(input.Pincode), input.PaymentTermsDays,
	))
	if err != nil {
		return nil, lookupErr(s.entity, code, err)
	}
	return p, nil
}

// Deactivate hides a party from default listings without deleting its history.
func (s *partyService) Deactivate(ctx context.Context, companyID int, code string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE `+s.table+` SET is_active = false WHERE company_id = $1 AND code = $2`,
		companyID, code,
	)
	if err != nil {
		return fmt.Errorf("deactivate %s %q: %w", s.entity, code, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(s.entity, code)
	}
	return nil
}
