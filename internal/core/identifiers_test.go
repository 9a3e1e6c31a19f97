package core_test

import (
	"testing"

	"smeaudit/internal/core"
)

func TestValidateGSTIN(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"valid", "29ABCDE1234F1Z5", true},
		{"valid alpha entity", "27AAPFU0939FAZV", true},
		{"lowercase rejected", "29abcde1234f1z5", false},
		{"empty", "", false},
		{"too short", "29ABCDE1234F1Z", false},
		{"too long", "29ABCDE1234F1Z55", false},
		{"entity digit zero", "29ABCDE1234F0Z5", false},
		{"missing literal Z", "29ABCDE1234F1X5", false},
		{"state not numeric", "AAABCDE1234F1Z5", false},
		{"surrounding space", " 29ABCDE1234F1Z5", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := core.ValidateGSTIN(tt.input); got != tt.want {
				t.Errorf("ValidateGSTIN(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidatePAN(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"ABCDE1234F", true},
		{"ABCDE12345", false},
		{"abcde1234f", false},
		{"ABCD1234F", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := core.ValidatePAN(tt.input); got != tt.want {
			t.Errorf("ValidatePAN(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestValidatePincode(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"560001", true},
		{"110011", true},
		{"012345", false}, // leading zero is not a valid Indian pincode
		{"56000", false},
		{"5600011", false},
		{"56000A", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := core.ValidatePincode(tt.input); got != tt.want {
			t.Errorf("ValidatePincode(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestValidateHSN(t *testing.T) {
	for _, ok := range []string{"8471", "847130", "84713010"} {
		if !core.ValidateHSN(ok) {
			t.Errorf("ValidateHSN(%q) = false, want true", ok)
		}
	}
	for _, bad := range []string{"847", "847130101", "84A1", ""} {
		if core.ValidateHSN(bad) {
			t.Errorf("ValidateHSN(%q) = true, want false", bad)
		}
	}
}

func TestGSTINDecomposition_RoundTrip(t *testing.T) {
	valid := []string{
		"29ABCDE1234F1Z5",
		"27AAPFU0939FAZV",
		"07AAACR5055K1ZK",
		"33AABCT1332L1ZZ",
		"99ZZZZZ9999Z9Z9",
	}
	for _, g := range valid {
		if !core.ValidateGSTIN(g) {
			t.Fatalf("fixture %q should be valid", g)
		}
		if got := core.StateCodeFromGSTIN(g); got != g[:2] {
			t.Errorf("StateCodeFromGSTIN(%q) = %q, want %q", g, got, g[:2])
		}
		pan := core.PANFromGSTIN(g)
		if pan != g[2:12] {
			t.Errorf("PANFromGSTIN(%q) = %q, want %q", g, pan, g[2:12])
		}
		if !core.ValidatePAN(pan) {
			t.Errorf("PAN %q extracted from %q should itself be a valid PAN", pan, g)
		}
	}

	if got := core.StateCodeFromGSTIN("not-a-gstin"); got != "" {
		t.Errorf("expected empty state code for invalid GSTIN, got %q", got)
	}
	if got := core.PANFromGSTIN("not-a-gstin"); got != "" {
		t.Errorf("expected empty PAN for invalid GSTIN, got %q", got)
	}
}

func TestDescribeGSTIN(t *testing.T) {
	d := core.DescribeGSTIN("29ABCDE1234F1Z5")
	if !d.Valid {
		t.Fatal("expected valid")
	}
	if d.StateCode != "29" || d.StateName != "Karnataka" {
		t.Errorf("unexpected state %s/%s", d.StateCode, d.StateName)
	}
	if d.PAN != "ABCDE1234F" || d.EntityNumber != "1" || d.CheckChar != "5" {
		t.Errorf("unexpected parts %+v", d)
	}

	unknown := core.DescribeGSTIN("99ZZZZZ9999Z9Z9")
	if !unknown.Valid || unknown.StateName != "" {
		t.Errorf("unknown state code should stay valid with empty name, got %+v", unknown)
	}

	if core.DescribeGSTIN("bad").Valid {
		t.Error("expected invalid")
	}
}

func TestIsIntraState(t *testing.T) {
	if !core.IsIntraState("29ABCDE1234F1Z5", "29AAPFU0939FAZV") {
		t.Error("same state code should be intra-state")
	}
	if core.IsIntraState("29ABCDE1234F1Z5", "27AAPFU0939FAZV") {
		t.Error("different state codes should be inter-state")
	}
	if core.IsIntraState("", "") {
		t.Error("missing GSTINs should be treated as inter-state")
	}
}

func TestValidationErrors(t *testing.T) {
	ve := core.NewValidationErrors()
	if ve.Err() != nil {
		t.Fatal("empty accumulator should yield nil error")
	}
	ve.Add("gstin", "invalid format")
	ve.Add("gstin", "second message ignored")
	ve.Add("code", "cannot be empty")

	err := ve.Err()
	if err == nil {
		t.Fatal("expected error")
	}
	want := "validation failed: code: cannot be empty; gstin: invalid format"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}
