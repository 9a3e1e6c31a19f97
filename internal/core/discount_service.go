package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type discountService struct {
	pool *pgxpool.Pool
}

// NewDiscountService constructs a DiscountService backed by PostgreSQL.
func NewDiscountService(pool *pgxpool.Pool) DiscountService {
	return &discountService{pool: pool}
}

const discountTermColumns = `id, company_id, vendor_code, term_type, percent, within_days, valid_from, valid_to, created_at`

func scanDiscountTerm(row pgx.Row) (*DiscountTerm, error) {
	t := &DiscountTerm{}
	if err := row.Scan(&t.ID, &t.CompanyID, &t.VendorCode, &t.TermType, &t.Percent, &t.WithinDays,
		&t.ValidFrom, &t.ValidTo, &t.CreatedAt); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *discountService) CreateTerm(ctx context.Context, companyID int, input DiscountTermInput) (*DiscountTerm, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	t, err := scanDiscountTerm(s.pool.QueryRow(ctx, `
		INSERT INTO discount_terms (company_id, vendor_code, term_type, percent, within_days, valid_from, valid_to)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+discountTermColumns,
		companyID, input.VendorCode, input.TermType, input.Percent, input.WithinDays, input.ValidFrom, input.ValidTo,
	))
	if err != nil {
		return nil, fmt.Errorf("create discount term for %s: %w", input.VendorCode, err)
	}
	return t, nil
}

func (s *discountService) ListTerms(ctx context.Context, companyID int, vendorCode string) ([]DiscountTerm, error) {
	query := `SELECT ` + discountTermColumns + ` FROM discount_terms WHERE company_id = $1`
	args := []any{companyID}
	if vendorCode != "" {
		args = append(args, vendorCode)
		query += " AND vendor_code = $2"
	}
	query += " ORDER BY vendor_code, valid_from DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list discount terms: %w", err)
	}
	defer rows.Close()

	var out []DiscountTerm
	for rows.Next() {
		t, err := scanDiscountTerm(rows)
		if err != nil {
			return nil, fmt.Errorf("scan discount term: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

const discountAuditColumns = `id, company_id, vendor_code, invoice_number, invoice_amount,
	expected_discount, applied_discount, variance, status, created_at`

func scanDiscountAudit(row pgx.Row) (*DiscountAudit, error) {
	a := &DiscountAudit{}
	if err := row.Scan(&a.ID, &a.CompanyID, &a.VendorCode, &a.InvoiceNumber, &a.InvoiceAmount,
		&a.ExpectedDiscount, &a.AppliedDiscount, &a.Variance, &a.Status, &a.CreatedAt); err != nil {
		return nil, err
	}
	return a, nil
}

// RecordAudit derives the status from expected and applied discount and stores the result.
// Variance is applied minus expected.
func (s *discountService) RecordAudit(ctx context.Context, companyID int, input DiscountAuditInput) (*DiscountAudit, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	status := ClassifyDiscount(input.ExpectedDiscount, input.AppliedDiscount)
	variance := input.AppliedDiscount.Sub(input.ExpectedDiscount)

	a, err := scanDiscountAudit(s.pool.QueryRow(ctx, `
		INSERT INTO discount_audits (company_id, vendor_code, invoice_number, invoice_amount,
		                             expected_discount, applied_discount, variance, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+discountAuditColumns,
		companyID, input.VendorCode, input.InvoiceNumber, input.InvoiceAmount,
		input.ExpectedDiscount, input.AppliedDiscount, variance, status,
	))
	if err != nil {
		return nil, fmt.Errorf("record discount audit for %s: %w", input.InvoiceNumber, err)
	}
	return a, nil
}

func (s *discountService) ListAudits(ctx context.Context, companyID int, status string) ([]DiscountAudit, error) {
	query := `SELECT ` + discountAuditColumns + ` FROM discount_audits WHERE company_id = $1`
	args := []any{companyID}
	if status != "" {
		args = append(args, status)
		query += " AND status = $2"
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list discount audits: %w", err)
	}
	defer rows.Close()

	var out []DiscountAudit
	for rows.Next() {
		a, err := scanDiscountAudit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan discount audit: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
