package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type noteService struct {
	pool *pgxpool.Pool
}

// NewNoteService constructs a NoteService backed by PostgreSQL.
func NewNoteService(pool *pgxpool.Pool) NoteService {
	return &noteService{pool: pool}
}

const noteColumns = `id, company_id, note_type, note_number, party_code, against_invoice, note_date,
	taxable, gst_rate, cgst, sgst, igst, total_tax, reason, created_at`

func scanNote(row pgx.Row) (*CreditDebitNote, error) {
	n := &CreditDebitNote{}
	if err := row.Scan(&n.ID, &n.CompanyID, &n.NoteType, &n.NoteNumber, &n.PartyCode, &n.AgainstInvoice,
		&n.NoteDate, &n.Taxable, &n.GSTRate, &n.CGST, &n.SGST, &n.IGST, &n.TotalTax, &n.Reason, &n.CreatedAt); err != nil {
		return nil, err
	}
	return n, nil
}

// Create computes the tax breakup and stores the note. Note numbers are unique per type.
func (s *noteService) Create(ctx context.Context, companyID int, input NoteInput) (*CreditDebitNote, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	tax := CalculateGST(input.Taxable, input.GSTRate, input.IntraState)

	n, err := scanNote(s.pool.QueryRow(ctx, `
		INSERT INTO credit_debit_notes (company_id, note_type, note_number, party_code, against_invoice,
		                                note_date, taxable, gst_rate, cgst, sgst, igst, total_tax, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+noteColumns,
		companyID, input.NoteType, input.NoteNumber, input.PartyCode, input.AgainstInvoice,
		input.NoteDate, tax.Taxable, tax.Rate, tax.CGST, tax.SGST, tax.IGST, tax.Total, input.Reason,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%s note %q: %w", input.NoteType, input.NoteNumber, ErrConflict)
		}
		return nil, fmt.Errorf("create %s note %q: %w", input.NoteType, input.NoteNumber, err)
	}
	return n, nil
}

func (s *noteService) List(ctx context.Context, companyID int, filter NoteFilter) ([]CreditDebitNote, error) {
	query := `SELECT ` + noteColumns + ` FROM credit_debit_notes WHERE company_id = $1`
	args := []any{companyID}
	if filter.NoteType != "" {
		args = append(args, filter.NoteType)
		query += fmt.Sprintf(" AND note_type = $%d", len(args))
	}
	if filter.PartyCode != "" {
		args = append(args, filter.PartyCode)
		query += fmt.Sprintf(" AND party_code = $%d", len(args))
	}
	query += " ORDER BY note_date DESC, id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list credit/debit notes: %w", err)
	}
	defer rows.Close()

	var out []CreditDebitNote
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credit/debit note: %w", err)
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}
