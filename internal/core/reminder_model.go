package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Payment reminder statuses.
const (
	ReminderPending      = "pending"
	ReminderSent         = "sent"
	ReminderAcknowledged = "acknowledged"
	ReminderPaid         = "paid"
)

// PaymentReminder chases a customer for an unpaid invoice.
type PaymentReminder struct {
	ID            int             `json:"id"`
	CompanyID     int             `json:"company_id"`
	CustomerCode  string          `json:"customer_code"`
	CustomerName  string          `json:"customer_name,omitempty"`
	InvoiceNumber string          `json:"invoice_number"`
	DueDate       time.Time       `json:"due_date"`
	Amount        decimal.Decimal `json:"amount"`
	DaysOverdue   int             `json:"days_overdue"`
	Ageing        string          `json:"ageing"`
	Status        string          `json:"status"`
	ReminderCount int             `json:"reminder_count"`
	LastSentAt    *time.Time      `json:"last_sent_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ReminderInput creates a reminder.
type ReminderInput struct {
	CustomerCode  string          `json:"customer_code"`
	InvoiceNumber string          `json:"invoice_number"`
	DueDate       time.Time       `json:"due_date"`
	Amount        decimal.Decimal `json:"amount"`
}

// Validate checks the reminder references a real debt.
func (in ReminderInput) Validate() error {
	ve := NewValidationErrors()
	if in.CustomerCode == "" {
		ve.Add("customer_code", "cannot be empty")
	}
	if in.InvoiceNumber == "" {
		ve.Add("invoice_number", "cannot be empty")
	}
	if in.DueDate.IsZero() {
		ve.Add("due_date", "is required")
	}
	if !in.Amount.IsPositive() {
		ve.Add("amount", "must be positive")
	}
	return ve.Err()
}

// ReminderFilter narrows a listing.
type ReminderFilter struct {
	Status      string
	OverdueOnly bool
}

// ReminderService tracks payment reminders sent to customers.
type ReminderService interface {
	Create(ctx context.Context, companyID int, input ReminderInput) (*PaymentReminder, error)
	List(ctx context.Context, companyID int, filter ReminderFilter) ([]PaymentReminder, error)
	MarkSent(ctx context.Context, companyID, id int) (*PaymentReminder, error)
	SetStatus(ctx context.Context, companyID, id int, status string) (*PaymentReminder, error)
}
