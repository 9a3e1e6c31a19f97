package core_test

import (
	"testing"
	"time"

	"smeaudit/internal/core"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculateIntraStateGST(t *testing.T) {
	tests := []struct {
		name              string
		taxable, rate     string
		cgst, sgst, total string
	}{
		{"standard 18%", "1000", "18", "90", "90", "180"},
		{"5% slab", "2500", "5", "62.5", "62.5", "125"},
		{"zero rate", "1000", "0", "0", "0", "0"},
		// 10.10 * 2.5% = 0.2525 per half; halves round to 0.25 each, so the total is 0.50
		// even though 10.10 * 5% = 0.505 would round to 0.51 on its own.
		{"half paisa boundary", "10.10", "5", "0.25", "0.25", "0.5"},
		{"rounds each half up", "10.05", "18", "0.9", "0.9", "1.8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := core.CalculateIntraStateGST(d(tt.taxable), d(tt.rate))
			if !got.CGST.Equal(d(tt.cgst)) {
				t.Errorf("cgst = %s, want %s", got.CGST, tt.cgst)
			}
			if !got.SGST.Equal(d(tt.sgst)) {
				t.Errorf("sgst = %s, want %s", got.SGST, tt.sgst)
			}
			if !got.Total.Equal(d(tt.total)) {
				t.Errorf("total = %s, want %s", got.Total, tt.total)
			}
		})
	}
}

func TestCalculateInterStateGST(t *testing.T) {
	got := core.CalculateInterStateGST(d("1000"), d("18"))
	if !got.IGST.Equal(d("180")) || !got.Total.Equal(d("180")) {
		t.Errorf("got %+v, want igst=180 total=180", got)
	}

	got = core.CalculateInterStateGST(d("10.10"), d("5"))
	if !got.IGST.Equal(d("0.51")) {
		t.Errorf("igst = %s, want 0.51", got.IGST)
	}
}

func TestCalculateGST(t *testing.T) {
	intra := core.CalculateGST(d("1000"), d("12"), true)
	if !intra.CGST.Equal(d("60")) || !intra.SGST.Equal(d("60")) || !intra.IGST.IsZero() {
		t.Errorf("unexpected intra breakup %+v", intra)
	}
	inter := core.CalculateGST(d("1000"), d("12"), false)
	if !inter.IGST.Equal(d("120")) || !inter.CGST.IsZero() || !inter.Total.Equal(d("120")) {
		t.Errorf("unexpected inter breakup %+v", inter)
	}
}

func TestIsWithinTolerance(t *testing.T) {
	tests := []struct {
		a, b, tol string
		want      bool
	}{
		{"100", "100.5", "1", true},
		{"100", "102", "1", false},
		{"100", "101", "1", true}, // boundary is inclusive
		{"101", "100", "1", true},
		{"0", "0", "0", true},
		{"-5", "5", "9.99", false},
	}
	for _, tt := range tests {
		if got := core.IsWithinTolerance(d(tt.a), d(tt.b), d(tt.tol)); got != tt.want {
			t.Errorf("IsWithinTolerance(%s, %s, %s) = %v, want %v", tt.a, tt.b, tt.tol, got, tt.want)
		}
	}
}

func TestFinancialYear(t *testing.T) {
	tests := []struct {
		date time.Time
		want string
	}{
		{time.Date(2024, time.April, 15, 0, 0, 0, 0, time.Local), "2024-25"},
		{time.Date(2024, time.February, 15, 0, 0, 0, 0, time.Local), "2023-24"},
		{time.Date(2024, time.March, 31, 23, 59, 0, 0, time.Local), "2023-24"},
		{time.Date(2024, time.April, 1, 0, 0, 0, 0, time.Local), "2024-25"},
		{time.Date(2099, time.June, 1, 0, 0, 0, 0, time.UTC), "2099-00"},
		{time.Date(2008, time.December, 1, 0, 0, 0, 0, time.UTC), "2008-09"},
	}
	for _, tt := range tests {
		if got := core.FinancialYear(tt.date); got != tt.want {
			t.Errorf("FinancialYear(%s) = %q, want %q", tt.date.Format("2006-01-02"), got, tt.want)
		}
	}
}

func TestFinancialYearBounds(t *testing.T) {
	from, to := core.FinancialYearBounds(time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC))
	if from.Format("2006-01-02") != "2024-04-01" || to.Format("2006-01-02") != "2025-03-31" {
		t.Errorf("got %s..%s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	}
}

func TestIsValidGSTRate(t *testing.T) {
	for _, r := range []string{"0", "0.25", "3", "5", "12", "18", "28", "18.00"} {
		if !core.IsValidGSTRate(d(r)) {
			t.Errorf("rate %s should be valid", r)
		}
	}
	for _, r := range []string{"10", "15", "-5", "28.5"} {
		if core.IsValidGSTRate(d(r)) {
			t.Errorf("rate %s should be invalid", r)
		}
	}
}
