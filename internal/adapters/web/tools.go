package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"smeaudit/internal/core"
)

// describeGSTIN handles GET /api/tools/gstin/{gstin}. An invalid GSTIN is not an error:
// the result says valid=false.
func (h *Handler) describeGSTIN(w http.ResponseWriter, r *http.Request) {
	gstin := core.NormalizeIdentifier(chi.URLParam(r, "gstin"))
	writeJSON(w, http.StatusOK, core.DescribeGSTIN(gstin))
}

type gstRequest struct {
	Taxable    decimal.Decimal `json:"taxable"`
	Rate       decimal.Decimal `json:"rate"`
	IntraState *bool           `json:"intra_state"`
	// Supplier and recipient GSTINs decide intra_state when it is not given.
	SupplierGSTIN  string `json:"supplier_gstin"`
	RecipientGSTIN string `json:"recipient_gstin"`
}

// calculateGST handles POST /api/tools/gst.
func (h *Handler) calculateGST(w http.ResponseWriter, r *http.Request) {
	var req gstRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ve := core.NewValidationErrors()
	if req.Taxable.IsNegative() {
		ve.Add("taxable", "cannot be negative")
	}
	if !core.IsValidGSTRate(req.Rate) {
		ve.Add("rate", "must be a GST slab rate")
	}
	intra := false
	switch {
	case req.IntraState != nil:
		intra = *req.IntraState
	case req.SupplierGSTIN != "" && req.RecipientGSTIN != "":
		s, p := core.NormalizeIdentifier(req.SupplierGSTIN), core.NormalizeIdentifier(req.RecipientGSTIN)
		if !core.ValidateGSTIN(s) {
			ve.Add("supplier_gstin", "is not a valid GSTIN")
		}
		if !core.ValidateGSTIN(p) {
			ve.Add("recipient_gstin", "is not a valid GSTIN")
		}
		intra = core.IsIntraState(s, p)
	default:
		ve.Add("intra_state", "is required unless both GSTINs are given")
	}
	if err := ve.Err(); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, core.CalculateGST(req.Taxable, req.Rate, intra))
}

type financialYearResponse struct {
	Date          string `json:"date"`
	FinancialYear string `json:"financial_year"`
	Start         string `json:"start"`
	End           string `json:"end"`
}

// financialYear handles GET /api/tools/financial-year?date=YYYY-MM-DD (default today).
func (h *Handler) financialYear(w http.ResponseWriter, r *http.Request) {
	d, ok := queryDate(w, r, "date")
	if !ok {
		return
	}
	t := h.now()
	if d != nil {
		t = *d
	}
	from, to := core.FinancialYearBounds(t)
	writeJSON(w, http.StatusOK, financialYearResponse{
		Date:          t.Format(time.DateOnly),
		FinancialYear: core.FinancialYear(t),
		Start:         from.Format(time.DateOnly),
		End:           to.Format(time.DateOnly),
	})
}
