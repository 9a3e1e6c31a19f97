package core

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// StatementRow is one parsed bank statement line, before it is stored.
type StatementRow struct {
	Line      int
	ValueDate time.Time
	Narration string
	Reference string
	Debit     decimal.Decimal
	Credit    decimal.Decimal
	Balance   *decimal.Decimal
}

// RowError reports why a statement line was skipped. Line is the 1-based record number,
// header included.
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// ErrUnsupportedStatement is returned for files that are neither CSV nor XLSX.
var ErrUnsupportedStatement = errors.New("unsupported statement format; use .csv or .xlsx")

var statementDateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
	"02-Jan-2006",
	"02 Jan 2006",
	"02/01/06",
	"02-01-06",
}

var statementColumns = map[string][]string{
	"date":      {"date", "value date", "txn date", "transaction date", "posting date"},
	"narration": {"narration", "description", "particulars", "remarks"},
	"reference": {"reference", "ref no", "ref no.", "chq/ref no", "cheque no", "utr"},
	"debit":     {"debit", "withdrawal", "withdrawal amt", "withdrawal amount", "dr"},
	"credit":    {"credit", "deposit", "deposit amt", "deposit amount", "cr"},
	"balance":   {"balance", "closing balance", "running balance"},
}

// ParseStatement reads a CSV or XLSX bank statement, chosen by the file extension.
// The first non-empty row is the header. Unparseable lines are reported and skipped.
func ParseStatement(r io.Reader, filename string) ([]StatementRow, []RowError, error) {
	var records [][]string
	parseDate := parseStatementDate
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = true
		all, err := cr.ReadAll()
		if err != nil {
			return nil, nil, fmt.Errorf("read csv: %w", err)
		}
		records = all
	case ".xlsx":
		f, err := excelize.OpenReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("open xlsx: %w", err)
		}
		defer f.Close()
		// Raw values keep date cells as serial numbers instead of the workbook's display format.
		rows, err := f.GetRows(f.GetSheetName(0), excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, nil, fmt.Errorf("read xlsx rows: %w", err)
		}
		props, err := f.GetWorkbookProps()
		if err != nil {
			return nil, nil, fmt.Errorf("read xlsx workbook: %w", err)
		}
		date1904 := props.Date1904 != nil && *props.Date1904
		records = rows
		parseDate = func(s string) (time.Time, error) {
			return parseSerialDate(s, date1904)
		}
	default:
		return nil, nil, ErrUnsupportedStatement
	}
	return parseStatementRecords(records, parseDate)
}

func parseStatementRecords(records [][]string, parseDate func(string) (time.Time, error)) ([]StatementRow, []RowError, error) {
	headerAt := -1
	for i, rec := range records {
		if !isBlankRecord(rec) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, nil, fmt.Errorf("statement is empty")
	}

	cols, err := mapStatementHeader(records[headerAt])
	if err != nil {
		return nil, nil, err
	}

	var rows []StatementRow
	var rowErrs []RowError
	for i := headerAt + 1; i < len(records); i++ {
		rec := records[i]
		if isBlankRecord(rec) {
			continue
		}
		line := i + 1
		row, err := parseStatementRecord(rec, cols, parseDate)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Message: err.Error()})
			continue
		}
		row.Line = line
		rows = append(rows, row)
	}
	return rows, rowErrs, nil
}

func mapStatementHeader(header []string) (map[string]int, error) {
	cols := make(map[string]int)
	for idx, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		for field, aliases := range statementColumns {
			if _, seen := cols[field]; seen {
				continue
			}
			for _, a := range aliases {
				if name == a {
					cols[field] = idx
					break
				}
			}
		}
	}
	ve := NewValidationErrors()
	for _, required := range []string{"date", "debit", "credit"} {
		if _, ok := cols[required]; !ok {
			ve.Add(required, "column not found in header")
		}
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}
	return cols, nil
}

func parseStatementRecord(rec []string, cols map[string]int, parseDate func(string) (time.Time, error)) (StatementRow, error) {
	cell := func(field string) string {
		idx, ok := cols[field]
		if !ok || idx >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[idx])
	}

	var row StatementRow
	date, err := parseDate(cell("date"))
	if err != nil {
		return row, err
	}
	row.ValueDate = date
	row.Narration = cell("narration")
	row.Reference = cell("reference")

	if row.Debit, err = parseStatementAmount(cell("debit")); err != nil {
		return row, fmt.Errorf("debit: %w", err)
	}
	if row.Credit, err = parseStatementAmount(cell("credit")); err != nil {
		return row, fmt.Errorf("credit: %w", err)
	}
	if row.Debit.IsNegative() || row.Credit.IsNegative() {
		return row, fmt.Errorf("debit and credit must not be negative")
	}
	if row.Debit.IsZero() == row.Credit.IsZero() {
		return row, fmt.Errorf("exactly one of debit or credit must be set")
	}
	if b := cell("balance"); b != "" {
		bal, err := parseStatementBalance(b)
		if err != nil {
			return row, fmt.Errorf("balance: %w", err)
		}
		row.Balance = &bal
	}
	return row, nil
}

func parseStatementDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("date is empty")
	}
	for _, layout := range statementDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// parseSerialDate reads an XLSX date cell, which is a day serial unless the cell holds text.
func parseSerialDate(s string, date1904 bool) (time.Time, error) {
	serial, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return parseStatementDate(s)
	}
	t, err := excelize.ExcelDateToTime(serial, date1904)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognised date %q: %w", s, err)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// parseStatementAmount accepts Indian digit grouping ("1,23,456.50"), a trailing Dr/Cr marker
// and blank cells, which read as zero.
func parseStatementAmount(s string) (decimal.Decimal, error) {
	v, _, err := parseMarkedAmount(s)
	return v, err
}

// parseStatementBalance is parseStatementAmount for the balance column, where a trailing Dr
// marks an overdrawn account and negates the amount.
func parseStatementBalance(s string) (decimal.Decimal, error) {
	v, debit, err := parseMarkedAmount(s)
	if err != nil || !debit {
		return v, err
	}
	return v.Neg(), nil
}

func parseMarkedAmount(s string) (decimal.Decimal, bool, error) {
	s = strings.TrimSpace(s)
	debit := false
	switch lower := strings.ToLower(s); {
	case strings.HasSuffix(lower, "dr"):
		s, debit = s[:len(s)-2], true
	case strings.HasSuffix(lower, "cr"):
		s = s[:len(s)-2]
	}
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" || s == "-" {
		return decimal.Zero, false, nil
	}
	v, err := decimal.NewFromString(s)
	return v, debit, err
}

func isBlankRecord(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
