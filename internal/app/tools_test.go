package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"smeaudit/internal/ai"
	"smeaudit/internal/core"
)

func TestTools_Registry(t *testing.T) {
	r := (&Services{}).Tools()

	writes := map[string]bool{
		"review_payment_match": true, "review_po_match": true, "review_gst_match": true,
		"mark_reminder_sent": true, "create_vendor": true, "create_credit_debit_note": true,
	}
	for _, def := range r.All() {
		if def.InputSchema["type"] != "object" {
			t.Errorf("%s: schema type = %v", def.Name, def.InputSchema["type"])
		}
		if writes[def.Name] == def.IsReadTool {
			t.Errorf("%s: IsReadTool = %v", def.Name, def.IsReadTool)
		}
		if !def.IsReadTool && def.Summary == nil {
			t.Errorf("%s: write tool without summary", def.Name)
		}
	}
	if len(r.All()) < 15 {
		t.Errorf("expected the full tool set, got %d", len(r.All()))
	}
}

func TestTools_PureReadTools(t *testing.T) {
	r := (&Services{}).Tools()
	ctx := context.Background()

	out, err := r.Execute(ctx, ai.Scope{}, "describe_gstin", json.RawMessage(`{"gstin":"27abcde1234f1z5"}`))
	if err != nil {
		t.Fatalf("describe_gstin: %v", err)
	}
	d := out.Data.(core.GSTINDetails)
	if !d.Valid || d.PAN != "ABCDE1234F" || d.StateName != "Maharashtra" {
		t.Errorf("unexpected details %+v", d)
	}

	out, err = r.Execute(ctx, ai.Scope{}, "calculate_gst", json.RawMessage(`{"taxable":"1000","rate":"18","intra_state":true}`))
	if err != nil {
		t.Fatalf("calculate_gst: %v", err)
	}
	tb := out.Data.(core.TaxBreakup)
	if tb.CGST.StringFixed(2) != "90.00" || tb.SGST.StringFixed(2) != "90.00" || !tb.IGST.IsZero() {
		t.Errorf("unexpected breakup %+v", tb)
	}

	if _, err := r.Execute(ctx, ai.Scope{}, "calculate_gst", json.RawMessage(`{"taxable":"1000","rate":"17"}`)); err == nil {
		t.Error("expected error for a non-slab rate")
	}
	var ve *core.ValidationErrors
	if _, err := r.Execute(ctx, ai.Scope{}, "calculate_gst", json.RawMessage(`{"taxable":"ten","rate":"18"}`)); !errors.As(err, &ve) {
		t.Errorf("expected validation error, got %v", err)
	}
	if _, err := r.Execute(ctx, ai.Scope{}, "calculate_gst", json.RawMessage(`{`)); !errors.As(err, &ve) {
		t.Errorf("expected validation error for bad JSON, got %v", err)
	}
}

func TestTools_Summaries(t *testing.T) {
	r := (&Services{}).Tools()
	tests := []struct {
		tool string
		args string
		want string
	}{
		{"review_payment_match", `{"id":5,"confirm":true}`, "Confirm payment match #5"},
		{"review_payment_match", `{"id":5}`, "Reject payment match #5"},
		{"review_po_match", `{"id":2,"approve":true}`, "Approve PO-invoice match #2"},
		{"review_gst_match", `{"id":8,"itc_status":"blocked"}`, "Mark ITC on GST match #8 as blocked"},
		{"create_vendor", `{"code":"V9","name":"Nine Traders"}`, "Create vendor V9 (Nine Traders)"},
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			def, _ := r.Get(tt.tool)
			if got := def.Summary(json.RawMessage(tt.args)); got != tt.want {
				t.Errorf("Summary = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCreateNoteArgs_ToInput(t *testing.T) {
	in, err := createNoteArgs{
		NoteType: "credit", NoteNumber: "CN-1", PartyCode: "C001", AgainstInvoice: "INV-9",
		NoteDate: "2024-05-10", Taxable: "500.00", GSTRate: "12", IntraState: true,
	}.toInput()
	if err != nil {
		t.Fatalf("toInput: %v", err)
	}
	if in.NoteDate.Day() != 10 || in.Taxable.StringFixed(2) != "500.00" {
		t.Errorf("unexpected input %+v", in)
	}

	_, err = createNoteArgs{NoteDate: "10/05/2024", Taxable: "x", GSTRate: "12"}.toInput()
	var ve *core.ValidationErrors
	if !errors.As(err, &ve) || ve.Fields["note_date"] == "" || ve.Fields["taxable"] == "" {
		t.Errorf("expected note_date and taxable errors, got %v", err)
	}
}
