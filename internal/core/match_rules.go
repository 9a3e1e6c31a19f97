package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// PO-invoice match statuses.
const (
	POMatchMatched     = "matched"
	POMatchMismatch    = "mismatch"
	POMatchNeedsReview = "needs_review"
	POMatchApproved    = "approved"
	POMatchRejected    = "rejected"
)

// Discount audit statuses.
const (
	DiscountCompliant = "compliant"
	DiscountViolation = "violation"
	DiscountMissed    = "missed"
)

// MatchTolerances are the absolute differences accepted per dimension when a PO is compared
// with its invoice.
type MatchTolerances struct {
	Qty   decimal.Decimal `json:"qty"`
	Value decimal.Decimal `json:"value"`
	GST   decimal.Decimal `json:"gst"`
}

// DefaultMatchTolerances requires exact quantities and allows one rupee on value and tax.
func DefaultMatchTolerances() MatchTolerances {
	return MatchTolerances{
		Qty:   decimal.Zero,
		Value: decimal.NewFromInt(1),
		GST:   decimal.NewFromInt(1),
	}
}

// MatchAmounts is one side (PO or invoice) of a comparison.
type MatchAmounts struct {
	Qty   decimal.Decimal `json:"qty"`
	Value decimal.Decimal `json:"value"`
	GST   decimal.Decimal `json:"gst"`
}

// MatchEvaluation is the per-dimension outcome of comparing a PO with an invoice.
type MatchEvaluation struct {
	QtyOK         bool            `json:"qty_ok"`
	ValueOK       bool            `json:"value_ok"`
	GSTOK         bool            `json:"gst_ok"`
	QtyVariance   decimal.Decimal `json:"qty_variance"`
	ValueVariance decimal.Decimal `json:"value_variance"`
	GSTVariance   decimal.Decimal `json:"gst_variance"`
	Status        string          `json:"status"`
}

// EvaluatePOInvoice compares invoice against po dimension by dimension. Variances are
// invoice minus PO. A tax-only difference needs review; any quantity or value difference
// is a mismatch.
func EvaluatePOInvoice(po, inv MatchAmounts, tol MatchTolerances) MatchEvaluation {
	ev := MatchEvaluation{
		QtyOK:         IsWithinTolerance(po.Qty, inv.Qty, tol.Qty),
		ValueOK:       IsWithinTolerance(po.Value, inv.Value, tol.Value),
		GSTOK:         IsWithinTolerance(po.GST, inv.GST, tol.GST),
		QtyVariance:   inv.Qty.Sub(po.Qty),
		ValueVariance: inv.Value.Sub(po.Value),
		GSTVariance:   inv.GST.Sub(po.GST),
	}
	switch {
	case ev.QtyOK && ev.ValueOK && ev.GSTOK:
		ev.Status = POMatchMatched
	case ev.QtyOK && ev.ValueOK:
		ev.Status = POMatchNeedsReview
	default:
		ev.Status = POMatchMismatch
	}
	return ev
}

// discountTolerance absorbs paisa rounding between the expected and applied discount.
var discountTolerance = decimal.RequireFromString("0.01")

// ClassifyDiscount compares the discount a vendor should have given with what was applied.
func ClassifyDiscount(expected, applied decimal.Decimal) string {
	switch {
	case IsWithinTolerance(expected, applied, discountTolerance):
		return DiscountCompliant
	case applied.LessThan(expected):
		return DiscountMissed
	default:
		return DiscountViolation
	}
}

// ExpectedDiscount is percent of amount, rounded to paisa.
func ExpectedDiscount(amount, percent decimal.Decimal) decimal.Decimal {
	return round2(amount.Mul(percent).Div(hundred))
}

// DaysOverdue returns whole calendar days past due as of now, never negative. The due date
// is read in its own location and today in now's location.
func DaysOverdue(due, now time.Time) int {
	// Counting in UTC keeps every day 24 hours long whatever the zone's DST rules.
	dueDay := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	days := int(today.Sub(dueDay).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// AgeingBucket labels days overdue with the buckets used in receivable ageing reports.
func AgeingBucket(daysOverdue int) string {
	switch {
	case daysOverdue <= 0:
		return "current"
	case daysOverdue <= 30:
		return "1-30"
	case daysOverdue <= 60:
		return "31-60"
	case daysOverdue <= 90:
		return "61-90"
	default:
		return "90+"
	}
}
