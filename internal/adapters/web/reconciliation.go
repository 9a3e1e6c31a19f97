package web

import (
	"errors"
	"net/http"
	"strconv"

	"smeaudit/internal/core"
)

// ── Bank & payment reconciliation ─────────────────────────────────────────────

// listBankTransactions handles GET /api/bank-transactions?status=&account=&from=&to=&limit=.
func (h *Handler) listBankTransactions(w http.ResponseWriter, r *http.Request) {
	from, ok := queryDate(w, r, "from")
	if !ok {
		return
	}
	to, ok := queryDate(w, r, "to")
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	txns, err := h.svc.Bank.ListTransactions(r.Context(), companyID(r), core.BankTxnFilter{
		Status:  r.URL.Query().Get("status"),
		Account: r.URL.Query().Get("account"),
		From:    from,
		To:      to,
		Limit:   limit,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txns)
}

// setBankTransactionStatus lets a reviewer ignore a line or reopen it.
func (h *Handler) setBankTransactionStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.Bank.SetTransactionStatus(r.Context(), companyID(r), id, req.Status); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": req.Status})
}

// importBankStatement handles POST /api/bank-transactions/import, a multipart form with
// a CSV or XLSX "file", the "account" it belongs to and an optional "document_id".
// Unparseable lines are skipped and reported; the rest are stored.
func (h *Handler) importBankStatement(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileBytes+(1<<20))
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "statement exceeds the upload size limit", "FILE_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return
		}
		writeError(w, r, "request too large or malformed", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	account := r.FormValue("account")
	if account == "" {
		writeError(w, r, "account is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	var documentID *int
	if v := r.FormValue("document_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil || id <= 0 {
			writeError(w, r, "invalid document_id", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		documentID = &id
	}

	f, fh, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, "no file provided", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	defer f.Close()

	rows, rowErrs, err := core.ParseStatement(f, fh.Filename)
	if err != nil {
		writeError(w, r, err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	imported, err := h.svc.Bank.ImportStatement(r.Context(), companyID(r), account, documentID, rows)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, core.ImportResult{
		Imported: imported,
		Skipped:  len(rowErrs),
		Errors:   rowErrs,
	})
}

func (h *Handler) listPaymentMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := h.svc.Bank.ListMatches(r.Context(), companyID(r), r.URL.Query().Get("status"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

// recordPaymentMatch stores a suggestion produced by the external matcher.
func (h *Handler) recordPaymentMatch(w http.ResponseWriter, r *http.Request) {
	var in core.PaymentMatchInput
	if !decodeJSON(w, r, &in) {
		return
	}
	m, err := h.svc.Bank.RecordMatch(r.Context(), companyID(r), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

type reviewRequest struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note"`
}

// reviewPaymentMatch handles POST /api/payment-matches/{id}/review {approve}.
func (h *Handler) reviewPaymentMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req reviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	claims := authFromContext(r.Context())
	m, err := h.svc.Bank.ReviewMatch(r.Context(), claims.CompanyID, id, claims.UserID, req.Approve)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// ── GST reconciliation ────────────────────────────────────────────────────────

func (h *Handler) listGSTMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := h.svc.GST.List(r.Context(), companyID(r), core.GSTMatchFilter{
		ReturnPeriod: r.URL.Query().Get("return_period"),
		Status:       r.URL.Query().Get("status"),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

func (h *Handler) recordGSTMatch(w http.ResponseWriter, r *http.Request) {
	var in core.GSTMatchInput
	if !decodeJSON(w, r, &in) {
		return
	}
	m, err := h.svc.GST.Record(r.Context(), companyID(r), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *Handler) gstSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.GST.Summary(r.Context(), companyID(r), r.URL.Query().Get("return_period"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// reviewGSTMatch handles POST /api/gst-matches/{id}/review {itc_status, remarks}.
func (h *Handler) reviewGSTMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in core.GSTReviewInput
	if !decodeJSON(w, r, &in) {
		return
	}
	m, err := h.svc.GST.Review(r.Context(), companyID(r), id, in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// ── PO-invoice matching ───────────────────────────────────────────────────────

func (h *Handler) listPOMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := h.svc.POMatches.List(r.Context(), companyID(r), core.POMatchFilter{
		Status:     r.URL.Query().Get("status"),
		VendorCode: r.URL.Query().Get("vendor_code"),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

// recordPOMatch compares a PO against its invoice and stores the evaluated result.
func (h *Handler) recordPOMatch(w http.ResponseWriter, r *http.Request) {
	var in core.POInvoiceInput
	if !decodeJSON(w, r, &in) {
		return
	}
	m, err := h.svc.POMatches.Record(r.Context(), companyID(r), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *Handler) getPOMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	m, err := h.svc.POMatches.Get(r.Context(), companyID(r), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// reviewPOMatch handles POST /api/po-invoice-matches/{id}/review {approve, note}.
func (h *Handler) reviewPOMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req reviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.svc.POMatches.Review(r.Context(), companyID(r), id, req.Approve, req.Note)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// ── Discounts ─────────────────────────────────────────────────────────────────

func (h *Handler) listDiscountTerms(w http.ResponseWriter, r *http.Request) {
	terms, err := h.svc.Discounts.ListTerms(r.Context(), companyID(r), r.URL.Query().Get("vendor_code"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, terms)
}

func (h *Handler) createDiscountTerm(w http.ResponseWriter, r *http.Request) {
	var in core.DiscountTermInput
	if !decodeJSON(w, r, &in) {
		return
	}
	t, err := h.svc.Discounts.CreateTerm(r.Context(), companyID(r), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) listDiscountAudits(w http.ResponseWriter, r *http.Request) {
	audits, err := h.svc.Discounts.ListAudits(r.Context(), companyID(r), r.URL.Query().Get("status"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, audits)
}

func (h *Handler) recordDiscountAudit(w http.ResponseWriter, r *http.Request) {
	var in core.DiscountAuditInput
	if !decodeJSON(w, r, &in) {
		return
	}
	a, err := h.svc.Discounts.RecordAudit(r.Context(), companyID(r), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// ── Inventory ─────────────────────────────────────────────────────────────────

// listSnapshots handles GET /api/inventory/snapshots?sku_code=&as_of=&variance_only=.
func (h *Handler) listSnapshots(w http.ResponseWriter, r *http.Request) {
	asOf, ok := queryDate(w, r, "as_of")
	if !ok {
		return
	}
	snaps, err := h.svc.Inventory.ListSnapshots(r.Context(), companyID(r), core.SnapshotFilter{
		SKUCode:      r.URL.Query().Get("sku_code"),
		AsOf:         asOf,
		VarianceOnly: queryBool(r, "variance_only"),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snaps)
}

func (h *Handler) recordSnapshot(w http.ResponseWriter, r *http.Request) {
	var in core.SnapshotInput
	if !decodeJSON(w, r, &in) {
		return
	}
	s, err := h.svc.Inventory.RecordSnapshot(r.Context(), companyID(r), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

// ── Payment reminders ─────────────────────────────────────────────────────────

func (h *Handler) listReminders(w http.ResponseWriter, r *http.Request) {
	reminders, err := h.svc.Reminders.List(r.Context(), companyID(r), core.ReminderFilter{
		Status:      r.URL.Query().Get("status"),
		OverdueOnly: queryBool(r, "overdue_only"),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reminders)
}

func (h *Handler) createReminder(w http.ResponseWriter, r *http.Request) {
	var in core.ReminderInput
	if !decodeJSON(w, r, &in) {
		return
	}
	rem, err := h.svc.Reminders.Create(r.Context(), companyID(r), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rem)
}

func (h *Handler) markReminderSent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	rem, err := h.svc.Reminders.MarkSent(r.Context(), companyID(r), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rem)
}

// setReminderStatus records that the customer acknowledged or paid.
func (h *Handler) setReminderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	rem, err := h.svc.Reminders.SetStatus(r.Context(), companyID(r), id, req.Status)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rem)
}

// ── Vendor ledger confirmations ───────────────────────────────────────────────

func (h *Handler) listConfirmations(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Confirmations.List(r.Context(), companyID(r), r.URL.Query().Get("status"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) createConfirmation(w http.ResponseWriter, r *http.Request) {
	var in core.ConfirmationInput
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := h.svc.Confirmations.Create(r.Context(), companyID(r), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) markConfirmationSent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.svc.Confirmations.MarkSent(r.Context(), companyID(r), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// respondConfirmation records the balance the vendor confirmed.
func (h *Handler) respondConfirmation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var resp core.ConfirmationResponse
	if !decodeJSON(w, r, &resp) {
		return
	}
	c, err := h.svc.Confirmations.Respond(r.Context(), companyID(r), id, resp)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// ── Credit / debit notes ──────────────────────────────────────────────────────

func (h *Handler) listNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.svc.Notes.List(r.Context(), companyID(r), core.NoteFilter{
		NoteType:  r.URL.Query().Get("note_type"),
		PartyCode: r.URL.Query().Get("party_code"),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (h *Handler) createNote(w http.ResponseWriter, r *http.Request) {
	var in core.NoteInput
	if !decodeJSON(w, r, &in) {
		return
	}
	n, err := h.svc.Notes.Create(r.Context(), companyID(r), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}
