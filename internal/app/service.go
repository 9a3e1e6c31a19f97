// Package app wires the domain services together for the adapters: the REST handlers,
// the chat stream and the assistant's tools all go through it.
package app

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"smeaudit/internal/core"
)

// Services bundles every domain service. Adapters hold one Services value and never
// construct core services themselves.
type Services struct {
	pool *pgxpool.Pool

	Users         core.UserService
	Vendors       core.PartyService
	Customers     core.PartyService
	SKUs          core.SKUService
	Bank          core.BankService
	GST           core.GSTMatchService
	POMatches     core.POMatchService
	Discounts     core.DiscountService
	Inventory     core.InventoryService
	Reminders     core.ReminderService
	Confirmations core.ConfirmationService
	Notes         core.NoteService
	Documents     core.DocumentService
	Conversations core.ConversationService
}

// NewServices constructs all services over one pool. tol configures PO-invoice matching.
func NewServices(pool *pgxpool.Pool, tol core.MatchTolerances) *Services {
	return &Services{
		pool:          pool,
		Users:         core.NewUserService(pool),
		Vendors:       core.NewVendorService(pool),
		Customers:     core.NewCustomerService(pool),
		SKUs:          core.NewSKUService(pool),
		Bank:          core.NewBankService(pool),
		GST:           core.NewGSTMatchService(pool),
		POMatches:     core.NewPOMatchService(pool, tol),
		Discounts:     core.NewDiscountService(pool),
		Inventory:     core.NewInventoryService(pool),
		Reminders:     core.NewReminderService(pool),
		Confirmations: core.NewConfirmationService(pool),
		Notes:         core.NewNoteService(pool),
		Documents:     core.NewDocumentService(pool),
		Conversations: core.NewConversationService(pool),
	}
}

// Ping checks the database connection.
func (s *Services) Ping(ctx context.Context) error {
	if s.pool == nil {
		return errors.New("database is not configured")
	}
	return s.pool.Ping(ctx)
}
