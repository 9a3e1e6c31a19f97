package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type reminderService struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewReminderService constructs a ReminderService backed by PostgreSQL.
func NewReminderService(pool *pgxpool.Pool) ReminderService {
	return &reminderService{pool: pool, now: time.Now}
}

const reminderSelect = `
	SELECT r.id, r.company_id, r.customer_code, COALESCE(c.name, ''), r.invoice_number, r.due_date,
	       r.amount, r.status, r.reminder_count, r.last_sent_at, r.created_at
	FROM payment_reminders r
	LEFT JOIN customers c ON c.company_id = r.company_id AND c.code = r.customer_code`

func (s *reminderService) scan(row pgx.Row) (*PaymentReminder, error) {
	r := &PaymentReminder{}
	if err := row.Scan(&r.ID, &r.CompanyID, &r.CustomerCode, &r.CustomerName, &r.InvoiceNumber, &r.DueDate,
		&r.Amount, &r.Status, &r.ReminderCount, &r.LastSentAt, &r.CreatedAt); err != nil {
		return nil, err
	}
	if r.Status != ReminderPaid {
		r.DaysOverdue = DaysOverdue(r.DueDate, s.now())
	}
	r.Ageing = AgeingBucket(r.DaysOverdue)
	return r, nil
}

func (s *reminderService) get(ctx context.Context, companyID, id int) (*PaymentReminder, error) {
	r, err := s.scan(s.pool.QueryRow(ctx, reminderSelect+" WHERE r.company_id = $1 AND r.id = $2", companyID, id))
	if err != nil {
		return nil, lookupErr("payment reminder", id, err)
	}
	return r, nil
}

func (s *reminderService) Create(ctx context.Context, companyID int, input ReminderInput) (*PaymentReminder, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	var id int
	if err := s.pool.QueryRow(ctx, `
		INSERT INTO payment_reminders (company_id, customer_code, invoice_number, due_date, amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		companyID, input.CustomerCode, input.InvoiceNumber, input.DueDate, input.Amount,
	).Scan(&id); err != nil {
		return nil, fmt.Errorf("create payment reminder for %s: %w", input.InvoiceNumber, err)
	}
	return s.get(ctx, companyID, id)
}

// List returns reminders with the oldest due date first.
func (s *reminderService) List(ctx context.Context, companyID int, filter ReminderFilter) ([]PaymentReminder, error) {
	query := reminderSelect + " WHERE r.company_id = $1"
	args := []any{companyID}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND r.status = $%d", len(args))
	}
	if filter.OverdueOnly {
		args = append(args, s.now())
		query += fmt.Sprintf(" AND r.status <> 'paid' AND r.due_date < $%d::date", len(args))
	}
	query += " ORDER BY r.due_date, r.id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list payment reminders: %w", err)
	}
	defer rows.Close()

	var out []PaymentReminder
	for rows.Next() {
		r, err := s.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment reminder: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// MarkSent records that a reminder went out. Paid invoices are not chased.
func (s *reminderService) MarkSent(ctx context.Context, companyID, id int) (*PaymentReminder, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE payment_reminders
		SET status = $3, reminder_count = reminder_count + 1, last_sent_at = $4
		WHERE company_id = $1 AND id = $2 AND status <> $5`,
		companyID, id, ReminderSent, s.now(), ReminderPaid,
	)
	if err != nil {
		return nil, fmt.Errorf("mark reminder %d sent: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, s.transitionErr(ctx, companyID, id)
	}
	return s.get(ctx, companyID, id)
}

// SetStatus moves a reminder to acknowledged or paid. Paid is final.
func (s *reminderService) SetStatus(ctx context.Context, companyID, id int, status string) (*PaymentReminder, error) {
	if status != ReminderAcknowledged && status != ReminderPaid {
		ve := NewValidationErrors()
		ve.Add("status", "must be acknowledged or paid")
		return nil, ve.Err()
	}
	tag, err := s.pool.Exec(ctx,
		"UPDATE payment_reminders SET status = $3 WHERE company_id = $1 AND id = $2 AND status <> $4",
		companyID, id, status, ReminderPaid,
	)
	if err != nil {
		return nil, fmt.Errorf("update reminder %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, s.transitionErr(ctx, companyID, id)
	}
	return s.get(ctx, companyID, id)
}

// transitionErr explains why a guarded update touched no row.
func (s *reminderService) transitionErr(ctx context.Context, companyID, id int) error {
	r, err := s.get(ctx, companyID, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("payment reminder %d is %s: %w", id, r.Status, ErrInvalidTransition)
}
