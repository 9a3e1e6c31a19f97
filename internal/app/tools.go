package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"smeaudit/internal/ai"
	"smeaudit/internal/chat"
	"smeaudit/internal/core"
)

// lowConfidence is the payment-match confidence below which the assistant asks for review.
var lowConfidence = decimal.RequireFromString("0.80")

// decodeArgs unmarshals tool arguments, reporting bad JSON as a validation error.
func decodeArgs[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		ve := core.NewValidationErrors()
		ve.Add("arguments", "invalid JSON: "+err.Error())
		return v, ve
	}
	return v, nil
}

func parseAmount(ve *core.ValidationErrors, field, s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		ve.Add(field, "must be a decimal number")
	}
	return d
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func moneyPtr(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return d.StringFixed(2)
}

func date(t time.Time) string { return t.Format("2006-01-02") }

// withArgs wraps a handler that only needs the decoded args.
func withArgs[T any](fn func(ctx context.Context, scope ai.Scope, args T) (*ai.ToolOutput, error)) ai.ToolHandler {
	return func(ctx context.Context, scope ai.Scope, raw json.RawMessage) (*ai.ToolOutput, error) {
		args, err := decodeArgs[T](raw)
		if err != nil {
			return nil, err
		}
		return fn(ctx, scope, args)
	}
}

// Tools builds the assistant's tool registry over s.
func (s *Services) Tools() *ai.ToolRegistry {
	r := ai.NewToolRegistry()

	// ── Read tools ────────────────────────────────────────────────────────────

	r.Register(ai.ToolDefinition{
		Name:        "list_vendors",
		Description: "List active vendors, optionally filtered by a search term.",
		InputSchema: ai.SchemaFor[searchArgs](),
		IsReadTool:  true,
		Handler: withArgs(func(ctx context.Context, scope ai.Scope, a searchArgs) (*ai.ToolOutput, error) {
			vendors, err := s.Vendors.List(ctx, scope.CompanyID, core.PartyFilter{Search: a.Search})
			if err != nil {
				return nil, err
			}
			t := &chat.DataTable{Title: "Vendors", Columns: []string{"Code", "Name", "GSTIN", "Terms (days)"}}
			for _, v := range vendors {
				t.Rows = append(t.Rows, []string{v.Code, v.Name, str(v.GSTIN), strconv.Itoa(v.PaymentTermsDays)})
			}
			return &ai.ToolOutput{Data: vendors, Table: t}, nil
		}),
	})

	r.Register(ai.ToolDefinition{
		Name:        "describe_gstin",
		Description: "Validate a GSTIN and split it into state, PAN and entity number.",
		InputSchema: ai.SchemaFor[gstinArgs](),
		IsReadTool:  true,
		Handler: withArgs(func(ctx context.Context, scope ai.Scope, a gstinArgs) (*ai.ToolOutput, error) {
			return &ai.ToolOutput{Data: core.DescribeGSTIN(core.NormalizeIdentifier(a.GSTIN))}, nil
		}),
	})

	r.Register(ai.ToolDefinition{
		Name:        "calculate_gst",
		Description: "Compute CGST/SGST or IGST on a taxable value.",
		InputSchema: ai.SchemaFor[gstCalcArgs](),
		IsReadTool:  true,
		Handler: withArgs(func(ctx context.Context, scope ai.Scope, a gstCalcArgs) (*ai.ToolOutput, error) {
			ve := core.NewValidationErrors()
			taxable := parseAmount(ve, "taxable", a.Taxable)
			rate := parseAmount(ve, "rate", a.Rate)
			if err := ve.Err(); err != nil {
				return nil, err
			}
			if !core.IsValidGSTRate(rate) {
				return nil, fmt.Errorf("%s%% is not a GST slab rate", rate)
			}
			return &ai.ToolOutput{Data: core.CalculateGST(taxable, rate, a.IntraState)}, nil
		}),
	})

	r.Register(ai.ToolDefinition{
		Name:        "dashboard_stats",
		Description: "Headline counts of open reconciliation items.",
		InputSchema: ai.SchemaFor[emptyArgs](),
		IsReadTool:  true,
		Handler: withArgs(func(ctx context.Context, scope ai.Scope, _ emptyArgs) (*ai.ToolOutput, error) {
			stats, err := s.DashboardStats(ctx, scope.CompanyID)
			if err != nil {
				return nil, err
			}
			return &ai.ToolOutput{Data: stats}, nil
		}),
	})

	r.Register(ai.ToolDefinition{
		Name:        "list_bank_transactions",
		Description: "List imported bank statement lines by reconciliation status.",
		InputSchema: ai.SchemaFor[bankTxnArgs](),
		IsReadTool:  true,
		Handler: withArgs(func(ctx context.Context, scope ai.Scope, a bankTxnArgs) (*ai.ToolOutput, error) {
			if a.Limit <= 0 {
				a.Limit = 50
			}
			txns, err := s.Bank.ListTransactions(ctx, scope.CompanyID, core.BankTxnFilter{Status: a.Status, Limit: a.Limit})
			if err != nil {
				return nil, err
			}
			t := &chat.DataTable{Title: "Bank transactions", Columns: []string{"ID", "Date", "Narration", "Debit", "Credit", "Status"}}
			for _, x := range txns {
				t.Rows = append(t.Rows, []string{strconv.Itoa(x.ID), date(x.ValueDate), x.Narration, money(x.Debit), money(x.Credit), x.Status})
			}
			return &ai.ToolOutput{Data: txns, Table: t}, nil
		}),
	})

	r.Register(ai.ToolDefinition{
		Name:        "list_payment_matches",
		Description: "List bank-to-invoice payment matches. Suggested matches await review.",
		InputSchema: ai.SchemaFor[statusArgs](),
		IsReadTool:  true,
		Handler: withArgs(func(ctx context.Context, scope ai.Scope, a statusArgs) (*ai.ToolOutput, error) {
			matches, err := s.Bank.ListMatches(ctx, scope.CompanyID, a.Status)
			if err != nil {
				return nil, err
			}
			out := &ai.ToolOutput{Data: matches}
			t := &chat.DataTable{Title: "Payment matches", Columns: []string{"ID", "Date", "Invoice", "Party", "Amount", "Confidence", "Status"}}
			for _, m := range matches {
				t.Rows = append(t.Rows, []string{strconv.Itoa(m.ID), date(m.ValueDate), m.InvoiceNumber, m.PartyCode,
					money(m.MatchedAmount), m.Confidence.StringFixed(2), m.Status})
				if m.Status == core.PaymentMatchSuggested && m.Confidence.LessThan(lowConfidence) {
					out.Reviews = append(out.Reviews, chat.ReviewRequest{Module: "payment_matches", RecordID: m.ID,
						Reason: "match confidence " + m.Confidence.StringFixed(2) + " is below " + lowConfidence.StringFixed(2)})
				}
			}
			out.Table = t
			return out, nil
		}),
	})

	r.Register(ai.ToolDefinition{
		Name:        "gst_summary",
		Description: "Totals of book and portal tax per GST match status for a return period.",
		InputSchema: ai.SchemaFor[gstListArgs](),
		IsReadTool:  true,
		Handler: withArgs(func(ctx context.Context, scope ai.Scope, a gstListArgs) (*ai.ToolOutput, error) {
			rows, err := s.GST.Summary(ctx, scope.CompanyID, a.ReturnPeriod)
			if err != nil {
				return nil, err
			}
			t := &chat.DataTable{Title: "GST reconciliation summary", Columns: []string{"Status", "Count", "Book tax", "Portal tax", "Difference"}}
			for _, x := range rows {
				t.Rows = append(t.Rows, []string{x.Status, strconv.Itoa(x.Count), money(x.BookTax), money(x.PortalTax), money(x.Difference)})
			}
			return &ai.ToolOutput{Data: rows, Table: t}, nil
		}),
	})

	r.Register(ai.ToolDefinition{
		Name:        "list_gst_matches",
		Description: "List GSTR-2A/2B reconciliation lines with their ITC decision.",
		InputSchema: ai.SchemaFor[gstListArgs](),
		IsReadTool:  true,
		Handler: withArgs(func(ctx context.Context, scope ai.Scope, a gstListArgs) (*ai.ToolOutput, error) {
			matches, err := s.GST.List(ctx, scope.CompanyID, core.GSTMatchFilter{ReturnPeriod: a.ReturnPeriod, Status: a.Status})
			if err != nil {
				return nil, err
			}
			out := &ai.ToolOutput{Data: matches}
			t := &chat.DataTable{Title: "GST matches", Columns: []string{"ID", "Supplier GSTIN", "Invoice", "Book tax", "Portal tax", "Status", "ITC"}}
			for _, m := range matches {
				t.Rows = append(t.Rows, []string{strconv.Itoa(m.ID), m.SupplierGSTIN, m.InvoiceNumber,
					moneyPtr(m.BookTax), moneyPtr(m.PortalTax), m.Status, m.ITCStatus})
				if m.Status != core.GSTMatchMatched && m.ITCStatus == core.ITCPending {
					out.Reviews = append(out.Reviews, chat.ReviewRequest{Module: "gst_matches", RecordID: m.ID,
						Reason: "ITC decision pending on a " + m.Status + " line"})
				}
			}
			out.Table = t
			return out, nil
		}),
	})

	r.Register(ai.ToolDefinition{
		Name:        "list_po_matches",
		Description: "List purchase order to invoice comparisons and their variances.",
		InputSchema: ai.SchemaFor[poListArgs](),
		IsReadTool:  true,
		Handler: withArgs(func(ctx context.Context, scope ai.Scope, a poListArgs) (*ai.ToolOutput, error) {
			matches, err := s.POMatches.List(ctx, scope.CompanyID, core.POMatchFilter{Status: a.Status, VendorCode: a.VendorCode})
			if err != nil {
				return nil, err
			}
			out := &ai.ToolOutput{Data: matches}
			t := &chat.DataTable{Title: "PO-invoice matches", Columns: []string{"ID", "PO", "Invoice", "Vendor", "PO value", "Invoice value", "Status"}}
			for _, m := range matches {
				t.Rows = append(t.Rows, []string{strconv.Itoa(m.ID), m.PONumber, m.InvoiceNumber, m.VendorCode,
					money(m.PO.Value), money(m.Invoice.Value), m.Status})
				if m.Status == core.POMatchMismatch || m.Status == core.POMatchNeedsReview {
					out.Reviews = append(out.Reviews, chat.ReviewRequest{Module: "po_invoice_matches", RecordID: m.ID,
						Reason: "invoice " + m.InvoiceNumber + " is " + m.Status})
				}
			}
			out.Table = t
			return out, nil
		}),
	})

	r.Register(ai.ToolDefinition{
		Name:        "list_payment_reminders",
		Description: "List customer payment reminders with days overdue and ageing bucket.",
		InputSchema: ai.SchemaFor[reminderListArgs](),
		IsReadTool:  true,
		Handler: withArgs(func(ctx context.Context, scope ai.Scope, a reminderListArgs) (*ai.ToolOutput, error) {
			reminders, err := s.Reminders.List(ctx, scope.CompanyID, core.ReminderFilter{Status: a.Status, OverdueOnly: a.OverdueOnly})
			if err != nil {
				return nil, err
			}
			t := &chat.DataTable{Title: "Payment reminders", Columns: []string{"ID", "Customer", "Invoice", "Due", "Amount", "Days overdue", "Status"}}
			for _, x := range reminders {
				t.Rows = append(t.Rows, []string{strconv.Itoa(x.ID), x.CustomerCode, x.InvoiceNumber, date(x.DueDate),
					money(x.Amount), strconv.Itoa(x.DaysOverdue), x.Status})
			}
			return &ai.ToolOutput{Data: reminders, Table: t}, nil
		}),
	})

	r.Register(ai.ToolDefinition{
		Name:        "list_vendor_confirmations",
		Description: "List vendor balance confirmation requests and responses.",
		InputSchema: ai.SchemaFor[statusArgs](),
		IsReadTool:  true,
		Handler: withArgs(func(ctx context.Context, scope ai.Scope, a statusArgs) (*ai.ToolOutput, error) {
			list, err := s.Confirmations.List(ctx, scope.CompanyID, a.Status)
			if err != nil {
				return nil, err
			}
			out := &ai.ToolOutput{Data: list}
			t := &chat.DataTable{Title: "Vendor confirmations", Columns: []string{"ID", "Vendor", "Period end", "Book balance", "Confirmed", "Status"}}
			for _, c := range list {
				t.Rows = append(t.Rows, []string{strconv.Itoa(c.ID), c.VendorCode, date(c.PeriodEnd),
					money(c.BookBalance), moneyPtr(c.ConfirmedBalance), c.Status})
				if c.Status == core.ConfirmationDisputed {
					out.Reviews = append(out.Reviews, chat.ReviewRequest{Module: "vendor_confirmations", RecordID: c.ID,
						Reason: "vendor disputes the balance by " + moneyPtr(c.Difference)})
				}
			}
			out.Table = t
			return out, nil
		}),
	})

	r.Register(ai.ToolDefinition{
		Name:        "list_discount_audits",
		Description: "List discount audits: compliant, violation or missed.",
		InputSchema: ai.SchemaFor[statusArgs](),
		IsReadTool:  true,
		Handler: withArgs(func(ctx context.Context, scope ai.Scope, a statusArgs) (*ai.ToolOutput, error) {
			audits, err := s.Discounts.ListAudits(ctx, scope.CompanyID, a.Status)
			if err != nil {
				return nil, err
			}
			t := &chat.DataTable{Title: "Discount audits", Columns: []string{"Vendor", "Invoice", "Expected", "Applied", "Variance", "Status"}}
			for _, x := range audits {
				t.Rows = append(t.Rows, []string{x.VendorCode, x.InvoiceNumber, money(x.ExpectedDiscount),
					money(x.AppliedDiscount), money(x.Variance), x.Status})
			}
			return &ai.ToolOutput{Data: audits, Table: t}, nil
		}),
	})

	r.Register(ai.ToolDefinition{
		Name:        "list_inventory_variances",
		Description: "List stock counts that disagree with the books.",
		InputSchema: ai.SchemaFor[inventoryArgs](),
		IsReadTool:  true,
		Handler: withArgs(func(ctx context.Context, scope ai.Scope, a inventoryArgs) (*ai.ToolOutput, error) {
			snaps, err := s.Inventory.ListSnapshots(ctx, scope.CompanyID, core.SnapshotFilter{SKUCode: a.SKUCode, VarianceOnly: true})
			if err != nil {
				return nil, err
			}
			t := &chat.DataTable{Title: "Inventory variances", Columns: []string{"SKU", "As of", "Book", "Physical", "Variance", "Value"}}
			for _, x := range snaps {
				t.Rows = append(t.Rows, []string{x.SKUCode, date(x.AsOf), x.BookQty.String(), x.PhysicalQty.String(),
					x.VarianceQty.String(), money(x.VarianceValue)})
			}
			return &ai.ToolOutput{Data: snaps, Table: t}, nil
		}),
	})

	// ── Write tools ───────────────────────────────────────────────────────────

	r.Register(ai.ToolDefinition{
		Name:        "review_payment_match",
		Description: "Confirm or reject a suggested payment match.",
		InputSchema: ai.SchemaFor[paymentReviewArgs](),
		Handler: withArgs(func(ctx context.Context, scope ai.Scope, a paymentReviewArgs) (*ai.ToolOutput, error) {
			m, err := s.Bank.ReviewMatch(ctx, scope.CompanyID, a.ID, scope.UserID, a.Confirm)
			if err != nil {
				return nil, err
			}
			return &ai.ToolOutput{Data: m}, nil
		}),
		Summary: func(raw json.RawMessage) string {
			a, _ := decodeArgs[paymentReviewArgs](raw)
			if a.Confirm {
				return fmt.Sprintf("Confirm payment match #%d", a.ID)
			}
			return fmt.Sprintf("Reject payment match #%d", a.ID)
		},
	})

	r.Register(ai.ToolDefinition{
		Name:        "review_po_match",
		Description: "Approve or reject a PO-invoice match that has variances.",
		InputSchema: ai.SchemaFor[poReviewArgs](),
		Handler: withArgs(func(ctx context.Context, scope ai.Scope, a poReviewArgs) (*ai.ToolOutput, error) {
			m, err := s.POMatches.Review(ctx, scope.CompanyID, a.ID, a.Approve, a.Note)
			if err != nil {
				return nil, err
			}
			return &ai.ToolOutput{Data: m}, nil
		}),
		Summary: func(raw json.RawMessage) string {
			a, _ := decodeArgs[poReviewArgs](raw)
			verb := "Reject"
			if a.Approve {
				verb = "Approve"
			}
			return fmt.Sprintf("%s PO-invoice match #%d", verb, a.ID)
		},
	})

	r.Register(ai.ToolDefinition{
		Name:        "review_gst_match",
		Description: "Record the ITC decision for a GST match.",
		InputSchema: ai.SchemaFor[gstReviewArgs](),
		Handler: withArgs(func(ctx context.Context, scope ai.Scope, a gstReviewArgs) (*ai.ToolOutput, error) {
			m, err := s.GST.Review(ctx, scope.CompanyID, a.ID, core.GSTReviewInput{ITCStatus: a.ITCStatus, Remarks: a.Remarks})
			if err != nil {
				return nil, err
			}
			return &ai.ToolOutput{Data: m}, nil
		}),
		Summary: func(raw json.RawMessage) string {
			a, _ := decodeArgs[gstReviewArgs](raw)
			return fmt.Sprintf("Mark ITC on GST match #%d as %s", a.ID, a.ITCStatus)
		},
	})

	r.Register(ai.ToolDefinition{
		Name:        "mark_reminder_sent",
		Description: "Record that a payment reminder was sent to the customer.",
		InputSchema: ai.SchemaFor[idArgs](),
		Handler: withArgs(func(ctx context.Context, scope ai.Scope, a idArgs) (*ai.ToolOutput, error) {
			rem, err := s.Reminders.MarkSent(ctx, scope.CompanyID, a.ID)
			if err != nil {
				return nil, err
			}
			return &ai.ToolOutput{Data: rem}, nil
		}),
		Summary: func(raw json.RawMessage) string {
			a, _ := decodeArgs[idArgs](raw)
			return fmt.Sprintf("Mark payment reminder #%d as sent", a.ID)
		},
	})

	r.Register(ai.ToolDefinition{
		Name:        "create_vendor",
		Description: "Add a vendor to the master. PAN and state are derived from the GSTIN.",
		InputSchema: ai.SchemaFor[createVendorArgs](),
		Handler: withArgs(func(ctx context.Context, scope ai.Scope, a createVendorArgs) (*ai.ToolOutput, error) {
			v, err := s.Vendors.Create(ctx, scope.CompanyID, core.PartyInput{
				Code: a.Code, Name: a.Name, GSTIN: a.GSTIN, Email: a.Email, Phone: a.Phone,
				City: a.City, Pincode: a.Pincode, PaymentTermsDays: a.PaymentTermsDays,
			})
			if err != nil {
				return nil, err
			}
			return &ai.ToolOutput{Data: v}, nil
		}),
		Summary: func(raw json.RawMessage) string {
			a, _ := decodeArgs[createVendorArgs](raw)
			return fmt.Sprintf("Create vendor %s (%s)", a.Code, a.Name)
		},
	})

	r.Register(ai.ToolDefinition{
		Name:        "create_credit_debit_note",
		Description: "Issue a credit or debit note against an invoice.",
		InputSchema: ai.SchemaFor[createNoteArgs](),
		Handler: withArgs(func(ctx context.Context, scope ai.Scope, a createNoteArgs) (*ai.ToolOutput, error) {
			in, err := a.toInput()
			if err != nil {
				return nil, err
			}
			n, err := s.Notes.Create(ctx, scope.CompanyID, in)
			if err != nil {
				return nil, err
			}
			return &ai.ToolOutput{Data: n}, nil
		}),
		Summary: func(raw json.RawMessage) string {
			a, _ := decodeArgs[createNoteArgs](raw)
			return fmt.Sprintf("Issue %s note %s for %s against invoice %s (taxable %s at %s%%)",
				a.NoteType, a.NoteNumber, a.PartyCode, a.AgainstInvoice, a.Taxable, a.GSTRate)
		},
	})

	return r
}

func (a createNoteArgs) toInput() (core.NoteInput, error) {
	ve := core.NewValidationErrors()
	in := core.NoteInput{
		NoteType:       a.NoteType,
		NoteNumber:     a.NoteNumber,
		PartyCode:      a.PartyCode,
		AgainstInvoice: a.AgainstInvoice,
		Taxable:        parseAmount(ve, "taxable", a.Taxable),
		GSTRate:        parseAmount(ve, "gst_rate", a.GSTRate),
		IntraState:     a.IntraState,
		Reason:         a.Reason,
	}
	d, err := time.Parse("2006-01-02", a.NoteDate)
	if err != nil {
		ve.Add("note_date", "must be YYYY-MM-DD")
	}
	in.NoteDate = d
	return in, ve.Err()
}
