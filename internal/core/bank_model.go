package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Bank transaction statuses.
const (
	BankTxnUnmatched        = "unmatched"
	BankTxnMatched          = "matched"
	BankTxnPartiallyMatched = "partially_matched"
	BankTxnIgnored          = "ignored"
)

// Payment match statuses. Only suggested matches can be reviewed.
const (
	PaymentMatchSuggested = "suggested"
	PaymentMatchConfirmed = "confirmed"
	PaymentMatchRejected  = "rejected"
)

// BankTransaction is one line of an imported bank statement.
type BankTransaction struct {
	ID         int              `json:"id"`
	CompanyID  int              `json:"company_id"`
	Account    string           `json:"account"`
	ValueDate  time.Time        `json:"value_date"`
	Narration  string           `json:"narration"`
	Reference  string           `json:"reference"`
	Debit      decimal.Decimal  `json:"debit"`
	Credit     decimal.Decimal  `json:"credit"`
	Balance    *decimal.Decimal `json:"balance,omitempty"`
	Status     string           `json:"status"`
	DocumentID *int             `json:"document_id,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// Amount returns the signed movement: credits positive, debits negative.
func (t BankTransaction) Amount() decimal.Decimal {
	return t.Credit.Sub(t.Debit)
}

// PaymentMatch links a bank transaction to an invoice, as proposed by the matching engine.
type PaymentMatch struct {
	ID                int             `json:"id"`
	CompanyID         int             `json:"company_id"`
	BankTransactionID int             `json:"bank_transaction_id"`
	InvoiceNumber     string          `json:"invoice_number"`
	PartyCode         string          `json:"party_code"`
	MatchedAmount     decimal.Decimal `json:"matched_amount"`
	Confidence        decimal.Decimal `json:"confidence"`
	Status            string          `json:"status"`
	ReviewedBy        *int            `json:"reviewed_by,omitempty"`
	ReviewedAt        *time.Time      `json:"reviewed_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	// Bank side, joined for display.
	ValueDate time.Time `json:"value_date"`
	Narration string    `json:"narration"`
}

// PaymentMatchInput records a match suggestion produced outside this service.
type PaymentMatchInput struct {
	BankTransactionID int             `json:"bank_transaction_id"`
	InvoiceNumber     string          `json:"invoice_number"`
	PartyCode         string          `json:"party_code"`
	MatchedAmount     decimal.Decimal `json:"matched_amount"`
	Confidence        decimal.Decimal `json:"confidence"`
}

// Validate checks the suggestion is well formed.
func (in PaymentMatchInput) Validate() error {
	ve := NewValidationErrors()
	if in.BankTransactionID <= 0 {
		ve.Add("bank_transaction_id", "is required")
	}
	if in.InvoiceNumber == "" {
		ve.Add("invoice_number", "cannot be empty")
	}
	if !in.MatchedAmount.IsPositive() {
		ve.Add("matched_amount", "must be positive")
	}
	if in.Confidence.IsNegative() || in.Confidence.GreaterThan(decimal.NewFromInt(1)) {
		ve.Add("confidence", "must be between 0 and 1")
	}
	return ve.Err()
}

// BankTxnFilter narrows a bank transaction listing.
type BankTxnFilter struct {
	Status  string
	Account string
	From    *time.Time
	To      *time.Time
	Limit   int
}

// ImportResult summarizes a statement import.
type ImportResult struct {
	Imported int        `json:"imported"`
	Skipped  int        `json:"skipped"`
	Errors   []RowError `json:"errors,omitempty"`
}

// BankService manages bank statement lines and the payment matches proposed against them.
type BankService interface {
	ImportStatement(ctx context.Context, companyID int, account string, documentID *int, rows []StatementRow) (int, error)
	ListTransactions(ctx context.Context, companyID int, filter BankTxnFilter) ([]BankTransaction, error)
	SetTransactionStatus(ctx context.Context, companyID, txnID int, status string) error
	RecordMatch(ctx context.Context, companyID int, input PaymentMatchInput) (*PaymentMatch, error)
	ListMatches(ctx context.Context, companyID int, status string) ([]PaymentMatch, error)
	ReviewMatch(ctx context.Context, companyID, matchID, userID int, confirm bool) (*PaymentMatch, error)
}
