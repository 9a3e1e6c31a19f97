package core_test

import (
	"testing"
	"time"

	"smeaudit/internal/core"
)

func TestEvaluatePOInvoice(t *testing.T) {
	tol := core.DefaultMatchTolerances()
	po := core.MatchAmounts{Qty: d("100"), Value: d("50000"), GST: d("9000")}

	tests := []struct {
		name       string
		inv        core.MatchAmounts
		wantStatus string
		qtyOK      bool
		valueOK    bool
		gstOK      bool
	}{
		{"exact", core.MatchAmounts{Qty: d("100"), Value: d("50000"), GST: d("9000")}, core.POMatchMatched, true, true, true},
		{"within rupee", core.MatchAmounts{Qty: d("100"), Value: d("50000.75"), GST: d("8999.10")}, core.POMatchMatched, true, true, true},
		{"gst only off", core.MatchAmounts{Qty: d("100"), Value: d("50000"), GST: d("9050")}, core.POMatchNeedsReview, true, true, false},
		{"short shipped", core.MatchAmounts{Qty: d("95"), Value: d("47500"), GST: d("8550")}, core.POMatchMismatch, false, false, false},
		{"price variance", core.MatchAmounts{Qty: d("100"), Value: d("50500"), GST: d("9000")}, core.POMatchMismatch, true, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := core.EvaluatePOInvoice(po, tt.inv, tol)
			if ev.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", ev.Status, tt.wantStatus)
			}
			if ev.QtyOK != tt.qtyOK || ev.ValueOK != tt.valueOK || ev.GSTOK != tt.gstOK {
				t.Errorf("flags = %v/%v/%v, want %v/%v/%v", ev.QtyOK, ev.ValueOK, ev.GSTOK, tt.qtyOK, tt.valueOK, tt.gstOK)
			}
		})
	}

	ev := core.EvaluatePOInvoice(po, core.MatchAmounts{Qty: d("95"), Value: d("47500"), GST: d("8550")}, tol)
	if !ev.QtyVariance.Equal(d("-5")) || !ev.ValueVariance.Equal(d("-2500")) || !ev.GSTVariance.Equal(d("-450")) {
		t.Errorf("unexpected variances %+v", ev)
	}
}

func TestClassifyDiscount(t *testing.T) {
	tests := []struct {
		expected, applied, want string
	}{
		{"200", "200", core.DiscountCompliant},
		{"200", "199.99", core.DiscountCompliant},
		{"200", "150", core.DiscountMissed},
		{"200", "250", core.DiscountViolation},
		{"0", "0", core.DiscountCompliant},
	}
	for _, tt := range tests {
		if got := core.ClassifyDiscount(d(tt.expected), d(tt.applied)); got != tt.want {
			t.Errorf("ClassifyDiscount(%s, %s) = %s, want %s", tt.expected, tt.applied, got, tt.want)
		}
	}
}

func TestExpectedDiscount(t *testing.T) {
	if got := core.ExpectedDiscount(d("10000"), d("2")); !got.Equal(d("200")) {
		t.Errorf("got %s, want 200", got)
	}
	if got := core.ExpectedDiscount(d("333.33"), d("1.5")); !got.Equal(d("5")) {
		t.Errorf("got %s, want 5.00", got)
	}
}

func TestDaysOverdue(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	now := time.Date(2024, time.June, 30, 10, 0, 0, 0, ist)
	tests := []struct {
		due  time.Time
		want int
	}{
		{time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC), 0},
		{time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC), 29},
		{time.Date(2024, time.July, 15, 0, 0, 0, 0, time.UTC), 0},
		{time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC), 91},
	}
	for _, tt := range tests {
		if got := core.DaysOverdue(tt.due, now); got != tt.want {
			t.Errorf("DaysOverdue(%s) = %d, want %d", tt.due.Format("2006-01-02"), got, tt.want)
		}
	}
}

func TestDaysOverdue_AcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tz database not available: %v", err)
	}
	tests := []struct {
		name string
		due  time.Time
		now  time.Time
		want int
	}{
		{"spring forward", time.Date(2024, time.March, 9, 0, 0, 0, 0, ny), time.Date(2024, time.March, 11, 0, 30, 0, 0, ny), 2},
		{"fall back", time.Date(2024, time.November, 2, 0, 0, 0, 0, ny), time.Date(2024, time.November, 4, 0, 30, 0, 0, ny), 2},
		{"month after", time.Date(2024, time.March, 1, 0, 0, 0, 0, ny), time.Date(2024, time.April, 1, 9, 0, 0, 0, ny), 31},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := core.DaysOverdue(tt.due, tt.now); got != tt.want {
				t.Errorf("DaysOverdue = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAgeingBucket(t *testing.T) {
	cases := map[int]string{0: "current", 1: "1-30", 30: "1-30", 31: "31-60", 75: "61-90", 91: "90+"}
	for days, want := range cases {
		if got := core.AgeingBucket(days); got != want {
			t.Errorf("AgeingBucket(%d) = %s, want %s", days, got, want)
		}
	}
}
