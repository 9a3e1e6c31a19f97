package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type bankService struct {
	pool *pgxpool.Pool
}

// NewBankService constructs a BankService backed by PostgreSQL.
func NewBankService(pool *pgxpool.Pool) BankService {
	return &bankService{pool: pool}
}

// ImportStatement inserts parsed statement rows in a single transaction.
func (s *bankService) ImportStatement(ctx context.Context, companyID int, account string, documentID *int, rows []StatementRow) (int, error) {
	if account == "" {
		return 0, fmt.Errorf("bank account is required")
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO bank_transactions (company_id, account, value_date, narration, reference,
			                               debit, credit, balance, document_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			companyID, account, r.ValueDate, r.Narration, r.Reference, r.Debit, r.Credit, r.Balance, documentID,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("insert statement rows: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit statement import: %w", err)
	}
	return len(rows), nil
}

// ListTransactions returns bank lines newest first.
func (s *bankService) ListTransactions(ctx context.Context, companyID int, filter BankTxnFilter) ([]BankTransaction, error) {
	query := `
		SELECT id, company_id, account, value_date, narration, reference, debit, credit, balance,
		       status, document_id, created_at
		FROM bank_transactions
		WHERE company_id = $1`
	args := []any{companyID}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Account != "" {
		args = append(args, filter.Account)
		query += fmt.Sprintf(" AND account = $%d", len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(" AND value_date >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(" AND value_date <= $%d", len(args))
	}
	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY value_date DESC, id DESC LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bank transactions: %w", err)
	}
	defer rows.Close()

	var out []BankTransaction
	for rows.Next() {
		var t BankTransaction
		if err := rows.Scan(&t.ID, &t.CompanyID, &t.Account, &t.ValueDate, &t.Narration, &t.Reference,
			&t.Debit, &t.Credit, &t.Balance, &t.Status, &t.DocumentID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan bank transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SetTransactionStatus marks a bank line as matched, ignored, etc.
func (s *bankService) SetTransactionStatus(ctx context.Context, companyID, txnID int, status string) error {
	switch status {
	case BankTxnUnmatched, BankTxnMatched, BankTxnPartiallyMatched, BankTxnIgnored:
	default:
		ve := NewValidationErrors()
		ve.Add("status", fmt.Sprintf("unknown bank transaction status %q", status))
		return ve.Err()
	}
	tag, err := s.pool.Exec(ctx,
		"UPDATE bank_transactions SET status = $3 WHERE company_id = $1 AND id = $2",
		companyID, txnID, status)
	if err != nil {
		return fmt.Errorf("update bank transaction %d: %w", txnID, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("bank transaction", txnID)
	}
	return nil
}

const paymentMatchSelect = `
	SELECT m.id, m.company_id, m.bank_transaction_id, m.invoice_number, m.party_code,
	       m.matched_amount, m.confidence, m.status, m.reviewed_by, m.reviewed_at, m.created_at,
	       b.value_date, b.narration
	FROM payment_matches m
	JOIN bank_transactions b ON b.id = m.bank_transaction_id`

func scanPaymentMatch(row pgx.Row) (*PaymentMatch, error) {
	m := &PaymentMatch{}
	if err := row.Scan(&m.ID, &m.CompanyID, &m.BankTransactionID, &m.InvoiceNumber, &m.PartyCode,
		&m.MatchedAmount, &m.Confidence, &m.Status, &m.ReviewedBy, &m.ReviewedAt, &m.CreatedAt,
		&m.ValueDate, &m.Narration); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordMatch stores a suggested match for a bank line owned by the company.
func (s *bankService) RecordMatch(ctx context.Context, companyID int, input PaymentMatchInput) (*PaymentMatch, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	var exists bool
	if err := s.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM bank_transactions WHERE id = $1 AND company_id = $2)",
		input.BankTransactionID, companyID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("validate bank transaction: %w", err)
	}
	if !exists {
		return nil, notFound("bank transaction", input.BankTransactionID)
	}

	var id int
	if err := s.pool.QueryRow(ctx, `
		INSERT INTO payment_matches (company_id, bank_transaction_id, invoice_number, party_code,
		                             matched_amount, confidence)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		companyID, input.BankTransactionID, input.InvoiceNumber, input.PartyCode,
		input.MatchedAmount, input.Confidence,
	).Scan(&id); err != nil {
		return nil, fmt.Errorf("insert payment match: %w", err)
	}
	return s.getMatch(ctx, s.pool, companyID, id)
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *bankService) getMatch(ctx context.Context, q queryRower, companyID, id int) (*PaymentMatch, error) {
	m, err := scanPaymentMatch(q.QueryRow(ctx, paymentMatchSelect+" WHERE m.company_id = $1 AND m.id = $2", companyID, id))
	if err != nil {
		return nil, lookupErr("payment match", id, err)
	}
	return m, nil
}

// ListMatches returns matches, highest confidence first, optionally filtered by status.
func (s *bankService) ListMatches(ctx context.Context, companyID int, status string) ([]PaymentMatch, error) {
	query := paymentMatchSelect + " WHERE m.company_id = $1"
	args := []any{companyID}
	if status != "" {
		args = append(args, status)
		query += " AND m.status = $2"
	}
	query += " ORDER BY m.confidence DESC, m.id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list payment matches: %w", err)
	}
	defer rows.Close()

	var out []PaymentMatch
	for rows.Next() {
		m, err := scanPaymentMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment match: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// ReviewMatch confirms or rejects a suggested match. Confirming marks the bank line matched.
func (s *bankService) ReviewMatch(ctx context.Context, companyID, matchID, userID int, confirm bool) (*PaymentMatch, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status string
	var bankTxnID int
	err = tx.QueryRow(ctx,
		"SELECT status, bank_transaction_id FROM payment_matches WHERE company_id = $1 AND id = $2 FOR UPDATE",
		companyID, matchID,
	).Scan(&status, &bankTxnID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("payment match", matchID)
		}
		return nil, fmt.Errorf("lock payment match %d: %w", matchID, err)
	}
	if status != PaymentMatchSuggested {
		return nil, fmt.Errorf("payment match %d is %s: %w", matchID, status, ErrInvalidTransition)
	}

	next := PaymentMatchRejected
	if confirm {
		next = PaymentMatchConfirmed
	}
	if _, err := tx.Exec(ctx,
		"UPDATE payment_matches SET status = $2, reviewed_by = $3, reviewed_at = NOW() WHERE id = $1",
		matchID, next, userID,
	); err != nil {
		return nil, fmt.Errorf("update payment match %d: %w", matchID, err)
	}
	if confirm {
		if _, err := tx.Exec(ctx,
			"UPDATE bank_transactions SET status = $2 WHERE id = $1", bankTxnID, BankTxnMatched,
		); err != nil {
			return nil, fmt.Errorf("mark bank transaction %d matched: %w", bankTxnID, err)
		}
	}

	m, err := s.getMatch(ctx, tx, companyID, matchID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit review: %w", err)
	}
	return m, nil
}
