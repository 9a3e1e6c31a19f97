package core_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"smeaudit/internal/core"
)

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	if err == nil {
		return nil
	}
	var ve *core.ValidationErrors
	if !errors.As(err, &ve) {
		t.Fatalf("expected *core.ValidationErrors, got %T: %v", err, err)
	}
	return ve.Fields
}

func TestPartyInput_NormalizeDerivesFromGSTIN(t *testing.T) {
	in := core.PartyInput{
		Code:  " V001 ",
		Name:  "Sharma Traders",
		GSTIN: " 29abcde1234f1z5",
	}
	in.Normalize()

	if in.Code != "V001" {
		t.Errorf("Code = %q", in.Code)
	}
	if in.GSTIN != "29ABCDE1234F1Z5" {
		t.Errorf("GSTIN = %q", in.GSTIN)
	}
	if in.PAN != "ABCDE1234F" {
		t.Errorf("PAN = %q, want derived from GSTIN", in.PAN)
	}
	if in.StateCode != "29" {
		t.Errorf("StateCode = %q, want 29", in.StateCode)
	}
	if in.PaymentTermsDays != 30 {
		t.Errorf("PaymentTermsDays = %d, want default 30", in.PaymentTermsDays)
	}
	if err := in.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestPartyInput_Validate(t *testing.T) {
	tests := []struct {
		name   string
		input  core.PartyInput
		fields []string
	}{
		{"missing code and name", core.PartyInput{PaymentTermsDays: 30}, []string{"code", "name"}},
		{"bad gstin", core.PartyInput{Code: "V1", Name: "A", GSTIN: "29ABCDE1234F1X5"}, []string{"gstin"}},
		{"pan disagrees", core.PartyInput{Code: "V1", Name: "A", GSTIN: "29ABCDE1234F1Z5", PAN: "ZZZZZ9999Z"}, []string{"pan"}},
		{"state disagrees", core.PartyInput{Code: "V1", Name: "A", GSTIN: "29ABCDE1234F1Z5", StateCode: "27"}, []string{"state_code"}},
		{"unknown state", core.PartyInput{Code: "V1", Name: "A", StateCode: "99"}, []string{"state_code"}},
		{"leading zero pincode", core.PartyInput{Code: "V1", Name: "A", Pincode: "012345"}, []string{"pincode"}},
		{"bad email", core.PartyInput{Code: "V1", Name: "A", Email: "not-an-email"}, []string{"email"}},
		{"negative terms", core.PartyInput{Code: "V1", Name: "A", PaymentTermsDays: -1}, []string{"payment_terms_days"}},
		{"valid minimal", core.PartyInput{Code: "V1", Name: "A", Pincode: "560001"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := fieldErrors(t, tt.input.Validate())
			if len(fields) != len(tt.fields) {
				t.Fatalf("got fields %v, want %v", fields, tt.fields)
			}
			for _, f := range tt.fields {
				if _, ok := fields[f]; !ok {
					t.Errorf("missing error for %s in %v", f, fields)
				}
			}
		})
	}
}

func TestValidationErrors_ErrorIsSorted(t *testing.T) {
	ve := core.NewValidationErrors()
	ve.Add("name", "cannot be empty")
	ve.Add("code", "cannot be empty")
	ve.Add("code", "second message ignored")

	want := "validation failed: code: cannot be empty; name: cannot be empty"
	if got := ve.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if core.NewValidationErrors().Err() != nil {
		t.Error("empty accumulator should return nil error")
	}
}

func TestSKUInput_Validate(t *testing.T) {
	in := core.SKUInput{Code: "SKU1", Name: "Steel rod", HSNCode: "7214", GSTRate: d("18")}
	in.Normalize()
	if in.Unit != "nos" {
		t.Errorf("Unit = %q, want nos", in.Unit)
	}
	if err := in.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	bad := core.SKUInput{Code: "SKU2", Name: "X", HSNCode: "72", GSTRate: d("15")}
	fields := fieldErrors(t, bad.Validate())
	for _, f := range []string{"hsn_code", "gst_rate"} {
		if _, ok := fields[f]; !ok {
			t.Errorf("expected error for %s, got %v", f, fields)
		}
	}
}

func TestGSTMatchInput_Validate(t *testing.T) {
	ok := core.GSTMatchInput{
		ReturnPeriod:  "042024",
		ReturnType:    core.ReturnGSTR2B,
		SupplierGSTIN: "29ABCDE1234F1Z5",
		InvoiceNumber: "INV-1",
		Status:        core.GSTMatchMissingInBooks,
	}
	if err := ok.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	bad := core.GSTMatchInput{ReturnPeriod: "132024", ReturnType: "GSTR-3B", Status: "unknown"}
	fields := fieldErrors(t, bad.Validate())
	for _, f := range []string{"return_period", "return_type", "supplier_gstin", "invoice_number", "status"} {
		if _, ok := fields[f]; !ok {
			t.Errorf("expected error for %s, got %v", f, fields)
		}
	}

	if err := (core.GSTReviewInput{ITCStatus: core.ITCPending}).Validate(); err == nil {
		t.Error("review leaving ITC pending should fail")
	}
}

func TestGSTMatch_TaxDifference(t *testing.T) {
	book, portal := d("1800"), d("1850.50")
	m := core.GSTMatch{BookTax: &book, PortalTax: &portal}
	if got := m.TaxDifference(); !got.Equal(d("50.50")) {
		t.Errorf("TaxDifference = %s, want 50.50", got)
	}
	missing := core.GSTMatch{PortalTax: &portal}
	if got := missing.TaxDifference(); !got.Equal(portal) {
		t.Errorf("TaxDifference with no book side = %s, want %s", got, portal)
	}
}

func TestDiscountTerm(t *testing.T) {
	from := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	term := core.DiscountTerm{ValidFrom: from, ValidTo: &to}

	if term.ActiveOn(from.AddDate(0, 0, -1)) {
		t.Error("term active before valid_from")
	}
	if !term.ActiveOn(to) {
		t.Error("term should be active on valid_to")
	}
	if term.ActiveOn(to.AddDate(0, 0, 1)) {
		t.Error("term active after valid_to")
	}

	cash := core.DiscountTermInput{VendorCode: "V1", TermType: core.DiscountTermCash, Percent: d("2"), ValidFrom: from}
	fields := fieldErrors(t, cash.Validate())
	if _, ok := fields["within_days"]; !ok {
		t.Errorf("cash discount without days should fail, got %v", fields)
	}
	cash.WithinDays = 10
	if err := cash.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestStockVariance(t *testing.T) {
	qty, value := core.StockVariance(d("100"), d("97"), d("250.50"))
	if !qty.Equal(d("-3")) {
		t.Errorf("qty = %s, want -3", qty)
	}
	if !value.Equal(d("-751.50")) {
		t.Errorf("value = %s, want -751.50", value)
	}
}

func TestResolveConfirmation(t *testing.T) {
	tests := []struct {
		book, confirmed, diff, status string
	}{
		{"125000", "125000", "0", core.ConfirmationConfirmed},
		{"125000", "125000.80", "0.80", core.ConfirmationConfirmed},
		{"125000", "120000", "-5000", core.ConfirmationDisputed},
	}
	for _, tt := range tests {
		diff, status := core.ResolveConfirmation(d(tt.book), d(tt.confirmed))
		if !diff.Equal(d(tt.diff)) || status != tt.status {
			t.Errorf("ResolveConfirmation(%s, %s) = %s, %s; want %s, %s",
				tt.book, tt.confirmed, diff, status, tt.diff, tt.status)
		}
	}
}

func TestNoteInput_Validate(t *testing.T) {
	in := core.NoteInput{
		NoteType:       core.NoteCredit,
		NoteNumber:     "CN-001",
		PartyCode:      "C001",
		AgainstInvoice: "INV-9",
		NoteDate:       time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
		Taxable:        d("1000"),
		GSTRate:        d("18"),
	}
	if err := in.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	in.GSTRate = d("17")
	in.NoteType = "refund"
	fields := fieldErrors(t, in.Validate())
	if len(fields) != 2 {
		t.Errorf("expected note_type and gst_rate errors, got %v", fields)
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{core.DocumentUploaded, core.DocumentProcessing, true},
		{core.DocumentUploaded, core.DocumentProcessed, false},
		{core.DocumentProcessing, core.DocumentProcessed, true},
		{core.DocumentProcessing, core.DocumentFailed, true},
		{core.DocumentFailed, core.DocumentProcessing, true},
		{core.DocumentProcessed, core.DocumentProcessing, false},
		{core.DocumentProcessed, core.DocumentProcessed, true},
	}
	for _, tt := range tests {
		if got := core.CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTitleFromMessage(t *testing.T) {
	if got := core.TitleFromMessage("Show unmatched bank lines\nfor April"); got != "Show unmatched bank lines" {
		t.Errorf("got %q", got)
	}
	if got := core.TitleFromMessage(""); got != core.DefaultConversationTitle {
		t.Errorf("got %q", got)
	}
	long := strings.Repeat("a", 100)
	if got := core.TitleFromMessage(long); len([]rune(got)) != 60 {
		t.Errorf("long title has %d runes, want 60", len([]rune(got)))
	}
}

func TestValidReturnPeriod(t *testing.T) {
	for p, want := range map[string]bool{"042024": true, "122023": true, "002024": false, "42024": false, "2024-04": false} {
		if got := core.ValidReturnPeriod(p); got != want {
			t.Errorf("ValidReturnPeriod(%q) = %v, want %v", p, got, want)
		}
	}
}
