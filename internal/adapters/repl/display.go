package repl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"smeaudit/internal/chat"
	"smeaudit/internal/core"
)

// printEvent renders one stream event as it arrives.
func (s *Session) printEvent(ev chat.Event) {
	w := s.Out
	switch ev.Type {
	case chat.EventContent:
		fmt.Fprint(w, ev.Content)
	case chat.EventError:
		fmt.Fprintf(w, "\n[error] %s", ev.Error)
	}
	if !hasPayload(ev) {
		return
	}
	switch ev.Type {
	case chat.EventToolCall:
		fmt.Fprintf(w, "\n[tool] %s %s\n", ev.ToolCall.Name, string(ev.ToolCall.Args))
	case chat.EventToolResult:
		if ev.ToolResult.Error != "" {
			fmt.Fprintf(w, "[tool] %s failed: %s\n", ev.ToolResult.Name, ev.ToolResult.Error)
		}
	case chat.EventFileUploaded:
		fmt.Fprintf(w, "[file] #%d %s (%s, %d bytes)\n", ev.File.DocumentID, ev.File.Filename, ev.File.MimeType, ev.File.SizeBytes)
	case chat.EventProcessingStatus:
		fmt.Fprintf(w, "[file] #%d %s %s\n", ev.Processing.DocumentID, ev.Processing.Status, ev.Processing.Detail)
	case chat.EventDataTable:
		printTable(w, ev.Table)
	case chat.EventReviewRequest:
		fmt.Fprintf(w, "\n[review] %s #%d: %s\n", ev.Review.Module, ev.Review.RecordID, ev.Review.Reason)
	case chat.EventConfirmationRequest:
		c := ev.Confirmation
		fmt.Fprintf(w, "\nCONFIRM %s: %s\n", c.ToolName, c.Summary)
		fmt.Fprintf(w, "  Expires %s. Reply /confirm or /cancel.\n", c.ExpiresAt.Local().Format("15:04:05"))
	}
}

func hasPayload(ev chat.Event) bool {
	switch ev.Type {
	case chat.EventToolCall:
		return ev.ToolCall != nil
	case chat.EventToolResult:
		return ev.ToolResult != nil
	case chat.EventFileUploaded:
		return ev.File != nil
	case chat.EventProcessingStatus:
		return ev.Processing != nil
	case chat.EventDataTable:
		return ev.Table != nil
	case chat.EventReviewRequest:
		return ev.Review != nil
	case chat.EventConfirmationRequest:
		return ev.Confirmation != nil
	}
	return false
}

func printTable(w io.Writer, t *chat.DataTable) {
	widths := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		widths[i] = len(c)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}
	total := 2
	for _, wd := range widths {
		total += wd + 2
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", total))
	if t.Title != "" {
		fmt.Fprintf(w, "  %s\n", strings.ToUpper(t.Title))
		fmt.Fprintln(w, strings.Repeat("=", total))
	}
	printRow(w, widths, t.Columns)
	fmt.Fprintln(w, strings.Repeat("-", total))
	for _, row := range t.Rows {
		printRow(w, widths, row)
	}
	fmt.Fprintln(w, strings.Repeat("=", total))
}

func printRow(w io.Writer, widths []int, cells []string) {
	fmt.Fprint(w, " ")
	for i, wd := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		fmt.Fprintf(w, " %-*s ", wd, cell)
	}
	fmt.Fprintln(w)
}

// PrintVendors renders the vendor master as a fixed-width table.
func PrintVendors(w io.Writer, vendors []core.Vendor) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 78))
	fmt.Fprintf(w, "  %-76s\n", "VENDORS")
	fmt.Fprintln(w, strings.Repeat("=", 78))
	if len(vendors) == 0 {
		fmt.Fprintln(w, "  No vendors found.")
		fmt.Fprintln(w, strings.Repeat("=", 78))
		return
	}
	fmt.Fprintf(w, "  %-8s %-28s %-16s %10s  %s\n", "CODE", "NAME", "GSTIN", "TERMS", "STATUS")
	fmt.Fprintln(w, strings.Repeat("-", 78))
	for _, v := range vendors {
		status := "active"
		if !v.IsActive {
			status = "inactive"
		}
		fmt.Fprintf(w, "  %-8s %-28s %-16s %5d days  %s\n", v.Code, truncate(v.Name, 28), deref(v.GSTIN), v.PaymentTermsDays, status)
	}
	fmt.Fprintln(w, strings.Repeat("=", 78))
}

// PrintStats renders dashboard counters sorted by name.
func PrintStats(w io.Writer, stats map[string]int) {
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 44))
	fmt.Fprintf(w, "  %-42s\n", "DASHBOARD")
	fmt.Fprintln(w, strings.Repeat("=", 44))
	for _, k := range keys {
		fmt.Fprintf(w, "  %-32s %8d\n", strings.ReplaceAll(k, "_", " "), stats[k])
	}
	fmt.Fprintln(w, strings.Repeat("=", 44))
}

func printHistory(w io.Writer, messages []chat.Message) {
	if len(messages) == 0 {
		fmt.Fprintln(w, "No messages yet.")
		return
	}
	for _, m := range messages {
		fmt.Fprintf(w, "[%s] %s\n", m.Role, m.Content)
	}
}

func printJSON(w io.Writer, raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "  ", "  "); err != nil {
		fmt.Fprintf(w, "  %s\n", raw)
		return
	}
	fmt.Fprintf(w, "  %s\n", buf.String())
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, `
Commands:
  /vendors [search]        List active vendors
  /stats                   Show dashboard counters
  /attach <id> [id...]     Attach uploaded documents to the next message
  /confirm  (/y)           Approve the pending action
  /cancel   (/n)           Reject the pending action
  /new                     Start a new conversation
  /history                 Show this conversation
  /help                    Show this help
  /exit                    Quit

Anything else is sent to the assistant.`)
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "~"
}
