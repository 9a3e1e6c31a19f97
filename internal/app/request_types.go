package app

// Tool argument types. Their JSON schemas are reflected into the tool definitions, so
// amounts are strings here and parsed into decimals by the handlers.

type emptyArgs struct{}

type searchArgs struct {
	Search string `json:"search,omitempty" jsonschema:"description=Case-insensitive match on code, name or GSTIN"`
}

type gstinArgs struct {
	GSTIN string `json:"gstin" jsonschema:"required,description=15-character GSTIN"`
}

type gstCalcArgs struct {
	Taxable    string `json:"taxable" jsonschema:"required,description=Taxable value in rupees, e.g. 1000.00"`
	Rate       string `json:"rate" jsonschema:"required,description=GST slab rate in percent: 0, 0.25, 3, 5, 12, 18 or 28"`
	IntraState bool   `json:"intra_state" jsonschema:"description=True for CGST+SGST, false for IGST"`
}

type statusArgs struct {
	Status string `json:"status,omitempty" jsonschema:"description=Filter by status; empty for all"`
}

type bankTxnArgs struct {
	Status string `json:"status,omitempty" jsonschema:"enum=unmatched,enum=matched,enum=partially_matched,enum=ignored"`
	Limit  int    `json:"limit,omitempty" jsonschema:"description=Maximum rows, default 50"`
}

type gstListArgs struct {
	ReturnPeriod string `json:"return_period,omitempty" jsonschema:"description=Return period as MMYYYY"`
	Status       string `json:"status,omitempty" jsonschema:"enum=matched,enum=mismatch,enum=missing_in_books,enum=missing_in_portal"`
}

type poListArgs struct {
	Status     string `json:"status,omitempty" jsonschema:"enum=matched,enum=mismatch,enum=needs_review,enum=approved,enum=rejected"`
	VendorCode string `json:"vendor_code,omitempty"`
}

type reminderListArgs struct {
	Status      string `json:"status,omitempty" jsonschema:"enum=pending,enum=sent,enum=acknowledged,enum=paid"`
	OverdueOnly bool   `json:"overdue_only,omitempty"`
}

type inventoryArgs struct {
	SKUCode string `json:"sku_code,omitempty"`
}

type idArgs struct {
	ID int `json:"id" jsonschema:"required,description=Record id"`
}

type paymentReviewArgs struct {
	ID      int  `json:"id" jsonschema:"required,description=Payment match id"`
	Confirm bool `json:"confirm" jsonschema:"description=True to confirm the match, false to reject it"`
}

type poReviewArgs struct {
	ID      int    `json:"id" jsonschema:"required,description=PO-invoice match id"`
	Approve bool   `json:"approve" jsonschema:"description=True to approve the invoice despite variances"`
	Note    string `json:"note,omitempty"`
}

type gstReviewArgs struct {
	ID        int    `json:"id" jsonschema:"required,description=GST match id"`
	ITCStatus string `json:"itc_status" jsonschema:"required,enum=eligible,enum=ineligible,enum=blocked"`
	Remarks   string `json:"remarks,omitempty"`
}

type createVendorArgs struct {
	Code             string `json:"code" jsonschema:"required"`
	Name             string `json:"name" jsonschema:"required"`
	GSTIN            string `json:"gstin,omitempty"`
	Email            string `json:"email,omitempty"`
	Phone            string `json:"phone,omitempty"`
	City             string `json:"city,omitempty"`
	Pincode          string `json:"pincode,omitempty"`
	PaymentTermsDays int    `json:"payment_terms_days,omitempty"`
}

type createNoteArgs struct {
	NoteType       string `json:"note_type" jsonschema:"required,enum=credit,enum=debit"`
	NoteNumber     string `json:"note_number" jsonschema:"required"`
	PartyCode      string `json:"party_code" jsonschema:"required"`
	AgainstInvoice string `json:"against_invoice" jsonschema:"required"`
	NoteDate       string `json:"note_date" jsonschema:"required,description=YYYY-MM-DD"`
	Taxable        string `json:"taxable" jsonschema:"required,description=Taxable value in rupees"`
	GSTRate        string `json:"gst_rate" jsonschema:"required"`
	IntraState     bool   `json:"intra_state"`
	Reason         string `json:"reason,omitempty"`
}
