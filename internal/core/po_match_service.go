package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type poMatchService struct {
	pool *pgxpool.Pool
	tol  MatchTolerances
}

// NewPOMatchService constructs a POMatchService that evaluates new records with tol.
func NewPOMatchService(pool *pgxpool.Pool, tol MatchTolerances) POMatchService {
	return &poMatchService{pool: pool, tol: tol}
}

const poMatchColumns = `id, company_id, po_number, invoice_number, vendor_code,
	po_qty, po_value, po_gst, invoice_qty, invoice_value, invoice_gst,
	qty_ok, value_ok, gst_ok, status, review_note, created_at`

func scanPOMatch(row pgx.Row) (*POInvoiceMatch, error) {
	m := &POInvoiceMatch{}
	if err := row.Scan(&m.ID, &m.CompanyID, &m.PONumber, &m.InvoiceNumber, &m.VendorCode,
		&m.PO.Qty, &m.PO.Value, &m.PO.GST, &m.Invoice.Qty, &m.Invoice.Value, &m.Invoice.GST,
		&m.QtyOK, &m.ValueOK, &m.GSTOK, &m.Status, &m.ReviewNote, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.ValueVariance = m.Invoice.Value.Sub(m.PO.Value)
	return m, nil
}

// Record evaluates the pair against the configured tolerances and stores the outcome.
// Recording the same PO and invoice again re-evaluates and resets any earlier review.
func (s *poMatchService) Record(ctx context.Context, companyID int, input POInvoiceInput) (*POInvoiceMatch, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	ev := EvaluatePOInvoice(input.PO, input.Invoice, s.tol)

	m, err := scanPOMatch(s.pool.QueryRow(ctx, `
		INSERT INTO po_invoice_matches (company_id, po_number, invoice_number, vendor_code,
		                                po_qty, po_value, po_gst, invoice_qty, invoice_value, invoice_gst,
		                                qty_ok, value_ok, gst_ok, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (company_id, po_number, invoice_number) DO UPDATE
		SET vendor_code = EXCLUDED.vendor_code,
		    po_qty = EXCLUDED.po_qty, po_value = EXCLUDED.po_value, po_gst = EXCLUDED.po_gst,
		    invoice_qty = EXCLUDED.invoice_qty, invoice_value = EXCLUDED.invoice_value,
		    invoice_gst = EXCLUDED.invoice_gst,
		    qty_ok = EXCLUDED.qty_ok, value_ok = EXCLUDED.value_ok, gst_ok = EXCLUDED.gst_ok,
		    status = EXCLUDED.status, review_note = ''
		RETURNING `+poMatchColumns,
		companyID, input.PONumber, input.InvoiceNumber, input.VendorCode,
		input.PO.Qty, input.PO.Value, input.PO.GST,
		input.Invoice.Qty, input.Invoice.Value, input.Invoice.GST,
		ev.QtyOK, ev.ValueOK, ev.GSTOK, ev.Status,
	))
	if err != nil {
		return nil, fmt.Errorf("record po-invoice match %s/%s: %w", input.PONumber, input.InvoiceNumber, err)
	}
	return m, nil
}

func (s *poMatchService) List(ctx context.Context, companyID int, filter POMatchFilter) ([]POInvoiceMatch, error) {
	query := `SELECT ` + poMatchColumns + ` FROM po_invoice_matches WHERE company_id = $1`
	args := []any{companyID}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.VendorCode != "" {
		args = append(args, filter.VendorCode)
		query += fmt.Sprintf(" AND vendor_code = $%d", len(args))
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list po-invoice matches: %w", err)
	}
	defer rows.Close()

	var out []POInvoiceMatch
	for rows.Next() {
		m, err := scanPOMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan po-invoice match: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (s *poMatchService) Get(ctx context.Context, companyID, id int) (*POInvoiceMatch, error) {
	m, err := scanPOMatch(s.pool.QueryRow(ctx,
		`SELECT `+poMatchColumns+` FROM po_invoice_matches WHERE company_id = $1 AND id = $2`,
		companyID, id,
	))
	if err != nil {
		return nil, lookupErr("po-invoice match", id, err)
	}
	return m, nil
}

// Review approves or rejects a match that failed automatic evaluation.
func (s *poMatchService) Review(ctx context.Context, companyID, id int, approve bool, note string) (*POInvoiceMatch, error) {
	next := POMatchRejected
	if approve {
		next = POMatchApproved
	}
	m, err := scanPOMatch(s.pool.QueryRow(ctx, `
		UPDATE po_invoice_matches SET status = $3, review_note = $4
		WHERE company_id = $1 AND id = $2 AND status IN ($5, $6)
		RETURNING `+poMatchColumns,
		companyID, id, next, note, POMatchMismatch, POMatchNeedsReview,
	))
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("review po-invoice match %d: %w", id, err)
	}
	// Nothing updated: either the row is missing or its status does not allow review.
	cur, err := s.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("po-invoice match %d is %s: %w", id, cur.Status, ErrInvalidTransition)
}
