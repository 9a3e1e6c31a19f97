package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// IntraStateGST is the CGST/SGST split for a supply within one state.
type IntraStateGST struct {
	CGST  decimal.Decimal `json:"cgst"`
	SGST  decimal.Decimal `json:"sgst"`
	Total decimal.Decimal `json:"total"`
}

// InterStateGST is the IGST levied on a supply across states.
type InterStateGST struct {
	IGST  decimal.Decimal `json:"igst"`
	Total decimal.Decimal `json:"total"`
}

// TaxBreakup carries all three components; the ones that do not apply are zero.
type TaxBreakup struct {
	Taxable decimal.Decimal `json:"taxable"`
	Rate    decimal.Decimal `json:"rate"`
	CGST    decimal.Decimal `json:"cgst"`
	SGST    decimal.Decimal `json:"sgst"`
	IGST    decimal.Decimal `json:"igst"`
	Total   decimal.Decimal `json:"total"`
}

// round2 rounds half away from zero at two decimals.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// CalculateIntraStateGST halves rate into CGST and SGST. Each half is rounded on its own and
// Total is the rounded sum of the rounded halves, so Total can differ by 0.01 from rounding
// the combined tax once.
func CalculateIntraStateGST(taxable, rate decimal.Decimal) IntraStateGST {
	half := rate.Div(decimal.NewFromInt(2))
	cgst := round2(taxable.Mul(half).Div(hundred))
	sgst := round2(taxable.Mul(half).Div(hundred))
	return IntraStateGST{CGST: cgst, SGST: sgst, Total: round2(cgst.Add(sgst))}
}

// CalculateInterStateGST computes IGST at the full rate.
func CalculateInterStateGST(taxable, rate decimal.Decimal) InterStateGST {
	igst := round2(taxable.Mul(rate).Div(hundred))
	return InterStateGST{IGST: igst, Total: round2(igst)}
}

// CalculateGST dispatches to the intra- or inter-state calculation.
func CalculateGST(taxable, rate decimal.Decimal, intraState bool) TaxBreakup {
	tb := TaxBreakup{Taxable: taxable, Rate: rate}
	if intraState {
		g := CalculateIntraStateGST(taxable, rate)
		tb.CGST, tb.SGST, tb.Total = g.CGST, g.SGST, g.Total
		return tb
	}
	g := CalculateInterStateGST(taxable, rate)
	tb.IGST, tb.Total = g.IGST, g.Total
	return tb
}

// IsWithinTolerance reports whether |a-b| <= tol.
func IsWithinTolerance(a, b, tol decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tol)
}

// ValidGSTRates are the notified GST slabs, in percent.
var ValidGSTRates = []decimal.Decimal{
	decimal.Zero,
	decimal.RequireFromString("0.25"),
	decimal.NewFromInt(3),
	decimal.NewFromInt(5),
	decimal.NewFromInt(12),
	decimal.NewFromInt(18),
	decimal.NewFromInt(28),
}

// IsValidGSTRate reports whether rate is one of ValidGSTRates.
func IsValidGSTRate(rate decimal.Decimal) bool {
	for _, r := range ValidGSTRates {
		if r.Equal(rate) {
			return true
		}
	}
	return false
}

// FinancialYearStart returns the calendar year in which t's April-March financial year begins.
func FinancialYearStart(t time.Time) int {
	if t.Month() >= time.April {
		return t.Year()
	}
	return t.Year() - 1
}

// FinancialYear returns the Indian financial year label for t, e.g. "2024-25".
func FinancialYear(t time.Time) string {
	start := FinancialYearStart(t)
	return fmt.Sprintf("%d-%02d", start, (start+1)%100)
}

// FinancialYearBounds returns the first and last day of the financial year containing t.
func FinancialYearBounds(t time.Time) (time.Time, time.Time) {
	start := FinancialYearStart(t)
	from := time.Date(start, time.April, 1, 0, 0, 0, 0, t.Location())
	to := time.Date(start+1, time.March, 31, 0, 0, 0, 0, t.Location())
	return from, to
}
