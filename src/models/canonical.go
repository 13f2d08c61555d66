// src/models/canonical.go
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CellKind tells how a spreadsheet cell was typed at ingestion.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellString
	CellNumber
	CellDate
)

// Cell is a single dynamically-typed spreadsheet value.
type Cell struct {
	Kind   CellKind
	Text   string          // Original text as found in the source
	Number decimal.Decimal // Set when Kind == CellNumber
	Time   time.Time       // Set when Kind == CellDate
}

// IsEmpty reports whether the cell carries no value.
func (c Cell) IsEmpty() bool {
	return c.Kind == CellEmpty || strings.TrimSpace(c.Text) == ""
}

// RawRecord is one spreadsheet row keyed by header name. The column order of the
// header row is preserved so records can be printed back in source order.
type RawRecord struct {
	Row     int // 1-based row number in the source sheet, header excluded
	columns []string
	cells   map[string]Cell
}

// NewRawRecord builds a record from a header and a matching slice of cells.
// Missing trailing cells are treated as empty.
func NewRawRecord(row int, header []string, cells []Cell) RawRecord {
	r := RawRecord{Row: row, columns: make([]string, 0, len(header)), cells: make(map[string]Cell, len(header))}
	for i, col := range header {
		col = strings.TrimSpace(col)
		if col == "" {
			continue
		}
		r.columns = append(r.columns, col)
		if i < len(cells) {
			r.cells[col] = cells[i]
		} else {
			r.cells[col] = Cell{}
		}
	}
	return r
}

// Columns returns the header names in source order.
func (r RawRecord) Columns() []string {
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

// Has reports whether the column exists in the source header.
func (r RawRecord) Has(col string) bool {
	_, ok := r.cells[col]
	return ok
}

// Cell returns the raw cell for a column.
func (r RawRecord) Cell(col string) (Cell, bool) {
	c, ok := r.cells[col]
	return c, ok
}

// String returns the trimmed text of a column, "" when absent.
func (r RawRecord) String(col string) string {
	return strings.TrimSpace(r.cells[col].Text)
}

// Decimal parses a monetary or numeric column without going through float64.
func (r RawRecord) Decimal(col string) (decimal.Decimal, error) {
	c, ok := r.cells[col]
	if !ok {
		return decimal.Zero, fmt.Errorf("row %d: column %q: %w", r.Row, col, ErrMissingColumn)
	}
	if c.Kind == CellNumber {
		return c.Number, nil
	}
	d, err := ParseDecimal(c.Text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("row %d: column %q: %w", r.Row, col, err)
	}
	return d, nil
}

// Time parses a date column. Date-typed cells are returned as-is, numeric cells are
// read as spreadsheet serial dates, text cells are tried against the layouts in order.
func (r RawRecord) Time(col string, layouts ...string) (time.Time, error) {
	c, ok := r.cells[col]
	if !ok {
		return time.Time{}, fmt.Errorf("row %d: column %q: %w", r.Row, col, ErrMissingColumn)
	}
	switch c.Kind {
	case CellDate:
		return c.Time, nil
	case CellNumber:
		return SerialToTime(c.Number), nil
	}
	text := strings.TrimSpace(c.Text)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("row %d: column %q: cannot parse date %q", r.Row, col, text)
}

// ParseDecimal accepts the number spellings found in broker exports:
// "1234.5", "1,234.50", "1.234,56", "12,5", "15%", "(12.00)". The separator that
// comes last is the decimal one. A lone comma between one to three leading digits
// and exactly three trailing ones ("1,000") could be either and is rejected with
// ErrAmbiguousNumber.
func ParseDecimal(s string) (decimal.Decimal, error) {
	raw := s
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\u00A0", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.TrimSuffix(s, "%")
	if s == "" || s == "-" {
		return decimal.Zero, ErrEmptyValue
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = s[1:]
	}

	plain, err := normalizeSeparators(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid number %q: %w", raw, err)
	}
	d, err := decimal.NewFromString(plain)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid number %q: %w", raw, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// normalizeSeparators rewrites an unsigned number to plain "1234.56" form.
func normalizeSeparators(s string) (string, error) {
	commas, dots := strings.Count(s, ","), strings.Count(s, ".")
	switch {
	case commas > 0 && dots > 0:
		point, group := ".", ","
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			point, group = ",", "."
		}
		if strings.Count(s, point) > 1 {
			return "", fmt.Errorf("more than one decimal separator")
		}
		whole, frac, _ := strings.Cut(s, point)
		if !groupedDigits(whole, group) {
			return "", fmt.Errorf("malformed digit grouping")
		}
		return strings.ReplaceAll(whole, group, "") + "." + frac, nil
	case commas > 1:
		if !groupedDigits(s, ",") {
			return "", fmt.Errorf("malformed digit grouping")
		}
		return strings.ReplaceAll(s, ",", ""), nil
	case commas == 1:
		whole, frac, _ := strings.Cut(s, ",")
		// "1234,567" and "0,125" can only be decimal commas
		if len(frac) == 3 && len(whole) > 0 && len(whole) <= 3 && whole[0] != '0' {
			return "", ErrAmbiguousNumber
		}
		return whole + "." + frac, nil
	case dots > 1:
		if !groupedDigits(s, ".") {
			return "", fmt.Errorf("malformed digit grouping")
		}
		return strings.ReplaceAll(s, ".", ""), nil
	}
	return s, nil
}

// groupedDigits reports whether s is digits in groups of three, e.g. "1,234,567".
func groupedDigits(s, sep string) bool {
	groups := strings.Split(s, sep)
	for i, g := range groups {
		if g == "" || len(g) > 3 || (i > 0 && len(g) != 3) {
			return false
		}
		for _, r := range g {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}

var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// SerialToTime converts a spreadsheet serial date (1900 date system) to UTC time,
// rounded to the second.
func SerialToTime(serial decimal.Decimal) time.Time {
	days := serial.Floor()
	seconds := serial.Sub(days).Mul(decimal.NewFromInt(86400)).Round(0)
	return excelEpoch.AddDate(0, 0, int(days.IntPart())).Add(time.Duration(seconds.IntPart()) * time.Second)
}

// TableSource is a collection of named sheets loaded as records.
type TableSource interface {
	// Table loads a sheet as header-keyed records, preserving row order.
	Table(sheet string) ([]RawRecord, error)
	// Sheets lists the sheet names present in the source.
	Sheets() []string
}

// FindSheet returns the first of the candidate names present in src, compared
// case-insensitively. The name is returned as spelled by the source.
func FindSheet(src TableSource, candidates ...string) (string, bool) {
	for _, candidate := range candidates {
		for _, name := range src.Sheets() {
			if strings.EqualFold(strings.TrimSpace(name), candidate) {
				return name, true
			}
		}
	}
	return "", false
}
