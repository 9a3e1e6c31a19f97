package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type gstMatchService struct {
	pool *pgxpool.Pool
}

// NewGSTMatchService constructs a GSTMatchService backed by PostgreSQL.
func NewGSTMatchService(pool *pgxpool.Pool) GSTMatchService {
	return &gstMatchService{pool: pool}
}

const gstMatchColumns = `id, company_id, return_period, return_type, supplier_gstin, invoice_number,
	invoice_date, book_taxable, book_tax, portal_taxable, portal_tax, status, itc_status, remarks, created_at`

func scanGSTMatch(row pgx.Row) (*GSTMatch, error) {
	m := &GSTMatch{}
	if err := row.Scan(&m.ID, &m.CompanyID, &m.ReturnPeriod, &m.ReturnType, &m.SupplierGSTIN,
		&m.InvoiceNumber, &m.InvoiceDate, &m.BookTaxable, &m.BookTax, &m.PortalTaxable, &m.PortalTax,
		&m.Status, &m.ITCStatus, &m.Remarks, &m.CreatedAt); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *gstMatchService) Record(ctx context.Context, companyID int, input GSTMatchInput) (*GSTMatch, error) {
	input.SupplierGSTIN = NormalizeIdentifier(input.SupplierGSTIN)
	if err := input.Validate(); err != nil {
		return nil, err
	}
	m, err := scanGSTMatch(s.pool.QueryRow(ctx, `
		INSERT INTO gst_matches (company_id, return_period, return_type, supplier_gstin, invoice_number,
		                         invoice_date, book_taxable, book_tax, portal_taxable, portal_tax, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+gstMatchColumns,
		companyID, input.ReturnPeriod, input.ReturnType, input.SupplierGSTIN, input.InvoiceNumber,
		input.InvoiceDate, input.BookTaxable, input.BookTax, input.PortalTaxable, input.PortalTax, input.Status,
	))
	if err != nil {
		return nil, fmt.Errorf("insert gst match: %w", err)
	}
	return m, nil
}

func (s *gstMatchService) List(ctx context.Context, companyID int, filter GSTMatchFilter) ([]GSTMatch, error) {
	query := `SELECT ` + gstMatchColumns + ` FROM gst_matches WHERE company_id = $1`
	args := []any{companyID}
	if filter.ReturnPeriod != "" {
		args = append(args, filter.ReturnPeriod)
		query += fmt.Sprintf(" AND return_period = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY supplier_gstin, invoice_number"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list gst matches: %w", err)
	}
	defer rows.Close()

	var out []GSTMatch
	for rows.Next() {
		m, err := scanGSTMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan gst match: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// Summary totals book and portal tax per status for a return period, or all periods when empty.
func (s *gstMatchService) Summary(ctx context.Context, companyID int, returnPeriod string) ([]GSTStatusSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(book_tax), 0), COALESCE(SUM(portal_tax), 0)
		FROM gst_matches
		WHERE company_id = $1 AND ($2::text = '' OR return_period = $2::text)
		GROUP BY status
		ORDER BY status`,
		companyID, returnPeriod,
	)
	if err != nil {
		return nil, fmt.Errorf("summarize gst matches: %w", err)
	}
	defer rows.Close()

	var out []GSTStatusSummary
	for rows.Next() {
		var sum GSTStatusSummary
		if err := rows.Scan(&sum.Status, &sum.Count, &sum.BookTax, &sum.PortalTax); err != nil {
			return nil, fmt.Errorf("scan gst summary: %w", err)
		}
		sum.Difference = sum.PortalTax.Sub(sum.BookTax)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Review records the ITC decision. A match can be re-reviewed; the last decision stands.
func (s *gstMatchService) Review(ctx context.Context, companyID, matchID int, input GSTReviewInput) (*GSTMatch, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	m, err := scanGSTMatch(s.pool.QueryRow(ctx, `
		UPDATE gst_matches SET itc_status = $3, remarks = $4
		WHERE company_id = $1 AND id = $2
		RETURNING `+gstMatchColumns,
		companyID, matchID, input.ITCStatus, input.Remarks,
	))
	if err != nil {
		return nil, lookupErr("gst match", matchID, err)
	}
	return m, nil
}
