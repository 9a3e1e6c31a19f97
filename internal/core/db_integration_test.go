package core_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"smeaudit/migrations"
)

// setupTestDB connects to TEST_DATABASE_URL, applies the schema and resets it to one company
// (id 1) with one user (id 1). Identities restart, so both get id 1.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := migrations.Apply(ctx, pool, zap.NewNop()); err != nil {
		pool.Close()
		t.Fatalf("Failed to apply migrations: %v", err)
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE chat_messages, conversations, documents, credit_debit_notes, vendor_confirmations,
		               payment_reminders, inventory_snapshots, discount_audits, discount_terms,
		               po_invoice_matches, gst_matches, payment_matches, bank_transactions,
		               skus, customers, vendors, users, companies RESTART IDENTITY CASCADE;

		INSERT INTO companies (company_code, name, gstin, state_code)
		VALUES ('ACME', 'Acme Components Pvt Ltd', '29AACCA1234B1Z5', '29');

		INSERT INTO users (company_id, username, email, password_hash, role)
		VALUES (1, 'auditor', 'auditor@acme.test', 'x', 'accountant');
	`)
	if err != nil {
		pool.Close()
		t.Fatalf("Failed to seed test database: %v", err)
	}
	return pool
}
