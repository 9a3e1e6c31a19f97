package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// dashboardCounts lists one COUNT query per statistic. Each takes the company id as $1.
var dashboardCounts = []struct {
	name  string
	query string
	dest  func(*DashboardStats) *int
}{
	{"vendors", `SELECT COUNT(*) FROM vendors WHERE company_id = $1 AND is_active`,
		func(s *DashboardStats) *int { return &s.Vendors }},
	{"unmatched bank transactions", `SELECT COUNT(*) FROM bank_transactions WHERE company_id = $1 AND status = 'unmatched'`,
		func(s *DashboardStats) *int { return &s.UnmatchedBankTxns }},
	{"suggested payment matches", `SELECT COUNT(*) FROM payment_matches WHERE company_id = $1 AND status = 'suggested'`,
		func(s *DashboardStats) *int { return &s.SuggestedMatches }},
	{"gst mismatches", `SELECT COUNT(*) FROM gst_matches WHERE company_id = $1 AND status <> 'matched'`,
		func(s *DashboardStats) *int { return &s.GSTMismatches }},
	{"po mismatches", `SELECT COUNT(*) FROM po_invoice_matches WHERE company_id = $1 AND status IN ('mismatch', 'needs_review')`,
		func(s *DashboardStats) *int { return &s.POMismatches }},
	{"overdue reminders", `SELECT COUNT(*) FROM payment_reminders WHERE company_id = $1 AND status <> 'paid' AND due_date < CURRENT_DATE`,
		func(s *DashboardStats) *int { return &s.OverdueReminders }},
	{"pending confirmations", `SELECT COUNT(*) FROM vendor_confirmations WHERE company_id = $1 AND status IN ('pending', 'sent')`,
		func(s *DashboardStats) *int { return &s.PendingConfirmations }},
	{"documents in processing", `SELECT COUNT(*) FROM documents WHERE company_id = $1 AND status IN ('uploaded', 'processing')`,
		func(s *DashboardStats) *int { return &s.DocumentsInProcessing }},
}

// DashboardStats runs the count queries in parallel. Any failure fails the whole call.
func (s *Services) DashboardStats(ctx context.Context, companyID int) (*DashboardStats, error) {
	stats := &DashboardStats{}
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range dashboardCounts {
		c := c
		dest := c.dest(stats)
		g.Go(func() error {
			if err := s.pool.QueryRow(ctx, c.query, companyID).Scan(dest); err != nil {
				return fmt.Errorf("count %s: %w", c.name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}
