package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type skuService struct {
	pool *pgxpool.Pool
}

// NewSKUService constructs a SKUService backed by PostgreSQL.
func NewSKUService(pool *pgxpool.Pool) SKUService {
	return &skuService{pool: pool}
}

const skuColumns = `id, company_id, code, name, hsn_code, unit, gst_rate, reorder_level, is_active, created_at`

func scanSKU(row pgx.Row) (*SKU, error) {
	k := &SKU{}
	if err := row.Scan(&k.ID, &k.CompanyID, &k.Code, &k.Name, &k.HSNCode, &k.Unit,
		&k.GSTRate, &k.ReorderLevel, &k.IsActive, &k.CreatedAt); err != nil {
		return nil, err
	}
	return k, nil
}

// Create inserts a SKU after validation.
func (s *skuService) Create(ctx context.Context, companyID int, input SKUInput) (*SKU, error) {
	input.Normalize()
	if err := input.Validate(); err != nil {
		return nil, err
	}
	k, err := scanSKU(s.pool.QueryRow(ctx, `
		INSERT INTO skus (company_id, code, name, hsn_code, unit, gst_rate, reorder_level)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+skuColumns,
		companyID, input.Code, input.Name, toPtr(input.HSNCode), input.Unit, input.GSTRate, input.ReorderLevel,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("sku %q: %w", input.Code, ErrConflict)
		}
		return nil, fmt.Errorf("create sku %q: %w", input.Code, err)
	}
	return k, nil
}

// List returns active SKUs ordered by code, optionally filtered by code/name/HSN substring.
func (s *skuService) List(ctx context.Context, companyID int, search string) ([]SKU, error) {
	query := `SELECT ` + skuColumns + ` FROM skus WHERE company_id = $1 AND is_active = true`
	args := []any{companyID}
	if q := strings.TrimSpace(search); q != "" {
		args = append(args, "%"+strings.ToLower(q)+"%")
		query += ` AND (LOWER(code) LIKE $2 OR LOWER(name) LIKE $2 OR COALESCE(hsn_code, '') LIKE $2)`
	}
	query += ` ORDER BY code`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list skus: %w", err)
	}
	defer rows.Close()

	var skus []SKU
	for rows.Next() {
		k, err := scanSKU(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sku: %w", err)
		}
		skus = append(skus, *k)
	}
	return skus, rows.Err()
}

// GetByCode returns a SKU by code, scoped to the company.
func (s *skuService) GetByCode(ctx context.Context, companyID int, code string) (*SKU, error) {
	k, err := scanSKU(s.pool.QueryRow(ctx,
		`SELECT `+skuColumns+` FROM skus WHERE company_id = $1 AND code = $2`, companyID, code))
	if err != nil {
		return nil, lookupErr("sku", code, err)
	}
	return k, nil
}
