package app

// DashboardStats holds the headline counts shown on the dashboard.
type DashboardStats struct {
	Vendors               int `json:"vendors"`
	UnmatchedBankTxns     int `json:"unmatched_bank_transactions"`
	SuggestedMatches      int `json:"suggested_payment_matches"`
	GSTMismatches         int `json:"gst_mismatches"`
	POMismatches          int `json:"po_mismatches"`
	OverdueReminders      int `json:"overdue_reminders"`
	PendingConfirmations  int `json:"pending_confirmations"`
	DocumentsInProcessing int `json:"documents_in_processing"`
}

// ConfirmResult is returned when a pending chat action is confirmed or cancelled.
type ConfirmResult struct {
	Executed bool   `json:"executed"`
	ToolName string `json:"tool_name"`
	Message  string `json:"message"`
	Result   any    `json:"result,omitempty"`
}
