package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type confirmationService struct {
	pool *pgxpool.Pool
}

// NewConfirmationService constructs a ConfirmationService backed by PostgreSQL.
func NewConfirmationService(pool *pgxpool.Pool) ConfirmationService {
	return &confirmationService{pool: pool}
}

const confirmationSelect = `
	SELECT vc.id, vc.company_id, vc.vendor_code, COALESCE(v.name, ''), vc.period_end, vc.book_balance,
	       vc.confirmed_balance, vc.difference, vc.status, vc.remarks, vc.responded_at, vc.created_at
	FROM vendor_confirmations vc
	LEFT JOIN vendors v ON v.company_id = vc.company_id AND v.code = vc.vendor_code`

func scanConfirmation(row pgx.Row) (*VendorConfirmation, error) {
	c := &VendorConfirmation{}
	if err := row.Scan(&c.ID, &c.CompanyID, &c.VendorCode, &c.VendorName, &c.PeriodEnd, &c.BookBalance,
		&c.ConfirmedBalance, &c.Difference, &c.Status, &c.Remarks, &c.RespondedAt, &c.CreatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *confirmationService) get(ctx context.Context, q queryRower, companyID, id int) (*VendorConfirmation, error) {
	c, err := scanConfirmation(q.QueryRow(ctx, confirmationSelect+" WHERE vc.company_id = $1 AND vc.id = $2", companyID, id))
	if err != nil {
		return nil, lookupErr("vendor confirmation", id, err)
	}
	return c, nil
}

// Create opens a request. Only one request may exist per vendor and period end.
func (s *confirmationService) Create(ctx context.Context, companyID int, input ConfirmationInput) (*VendorConfirmation, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	var id int
	err := s.pool.QueryRow(ctx, `
		INSERT INTO vendor_confirmations (company_id, vendor_code, period_end, book_balance)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		companyID, input.VendorCode, input.PeriodEnd, input.BookBalance,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("confirmation for %s at %s: %w", input.VendorCode, input.PeriodEnd.Format("2006-01-02"), ErrConflict)
		}
		return nil, fmt.Errorf("create vendor confirmation: %w", err)
	}
	return s.get(ctx, s.pool, companyID, id)
}

func (s *confirmationService) List(ctx context.Context, companyID int, status string) ([]VendorConfirmation, error) {
	query := confirmationSelect + " WHERE vc.company_id = $1"
	args := []any{companyID}
	if status != "" {
		args = append(args, status)
		query += " AND vc.status = $2"
	}
	query += " ORDER BY vc.period_end DESC, vc.vendor_code"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list vendor confirmations: %w", err)
	}
	defer rows.Close()

	var out []VendorConfirmation
	for rows.Next() {
		c, err := scanConfirmation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vendor confirmation: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// MarkSent moves a pending request to sent.
func (s *confirmationService) MarkSent(ctx context.Context, companyID, id int) (*VendorConfirmation, error) {
	tag, err := s.pool.Exec(ctx,
		"UPDATE vendor_confirmations SET status = $3 WHERE company_id = $1 AND id = $2 AND status = $4",
		companyID, id, ConfirmationSent, ConfirmationPending,
	)
	if err != nil {
		return nil, fmt.Errorf("mark confirmation %d sent: %w", id, err)
	}
	c, err := s.get(ctx, s.pool, companyID, id)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("vendor confirmation %d is %s: %w", id, c.Status, ErrInvalidTransition)
	}
	return c, nil
}

// Respond records the vendor's balance. A request that is already confirmed cannot be reopened;
// a disputed one can be answered again after the vendor revises its figure.
func (s *confirmationService) Respond(ctx context.Context, companyID, id int, resp ConfirmationResponse) (*VendorConfirmation, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status string
	var book decimal.Decimal
	err = tx.QueryRow(ctx,
		"SELECT status, book_balance FROM vendor_confirmations WHERE company_id = $1 AND id = $2 FOR UPDATE",
		companyID, id,
	).Scan(&status, &book)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("vendor confirmation", id)
		}
		return nil, fmt.Errorf("lock vendor confirmation %d: %w", id, err)
	}
	if status == ConfirmationConfirmed {
		return nil, fmt.Errorf("vendor confirmation %d is %s: %w", id, status, ErrInvalidTransition)
	}

	diff, next := ResolveConfirmation(book, resp.ConfirmedBalance)
	if _, err := tx.Exec(ctx, `
		UPDATE vendor_confirmations
		SET confirmed_balance = $3, difference = $4, status = $5, remarks = $6, responded_at = NOW()
		WHERE id = $1 AND company_id = $2`,
		id, companyID, resp.ConfirmedBalance, diff, next, resp.Remarks,
	); err != nil {
		return nil, fmt.Errorf("record confirmation response %d: %w", id, err)
	}

	c, err := s.get(ctx, tx, companyID, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit confirmation response: %w", err)
	}
	return c, nil
}
