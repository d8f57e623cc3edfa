// Package dataset holds the tabular data model shared by ingestion, the
// persistence tiers, and the analytics engines.
package dataset

import (
	"strconv"
	"strings"
	"time"
)

// Kind identifies the scalar type of a cell value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindTime
)

// Value is a single cell: a string, a number, a parsed time, or null.
type Value struct {
	Kind Kind
	Str  string
	Num  float64
	Time time.Time
}

func Null() Value { return Value{Kind: KindNull} }

func String(s string) Value { return Value{Kind: KindString, Str: s} }

func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

func Timestamp(t time.Time) Value { return Value{Kind: KindTime, Time: t} }

func (v Value) IsNull() bool { return v.Kind == KindNull }

// AsNumber returns the numeric value, or false when the cell is not numeric.
func (v Value) AsNumber() (float64, bool) {
	if v.Kind != KindNumber {
		return 0, false
	}
	return v.Num, true
}

// Label renders the value the way it is shown as a period or category label.
func (v Value) Label() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindTime:
		return v.Time.Format("2006-01-02")
	default:
		return ""
	}
}

// Key returns a string usable for distinct-value counting and grouping.
// Times key on the instant rather than the rendered label.
func (v Value) Key() string {
	if v.Kind == KindTime {
		return strconv.FormatInt(v.Time.Unix(), 10)
	}
	return v.Label()
}

// Row maps column name to cell value.
type Row map[string]Value

// Dataset is an ordered sequence of rows with a stable column order.
type Dataset struct {
	ID         string
	Name       string
	Columns    []string
	Rows       []Row
	UploadedAt time.Time
}

// Preview is a bounded head-of-dataset view for display.
type Preview struct {
	Columns     []string
	Rows        []Row
	TotalRows   int
	PreviewRows int
}

// DeriveID derives the deterministic dataset id from an uploaded file name:
// extension stripped, spaces replaced with underscores, lower-cased.
// Re-uploads of the same file name therefore overwrite the same dataset.
func DeriveID(filename string) string {
	name := filename
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ToLower(name)
}

// Head returns a preview of at most limit rows.
func (d *Dataset) Head(limit int) *Preview {
	if limit < 0 {
		limit = 0
	}
	n := limit
	if n > len(d.Rows) {
		n = len(d.Rows)
	}
	return &Preview{
		Columns:     d.Columns,
		Rows:        d.Rows[:n],
		TotalRows:   len(d.Rows),
		PreviewRows: n,
	}
}

// ColumnValues returns the column's values in row order.
func (d *Dataset) ColumnValues(column string) []Value {
	out := make([]Value, 0, len(d.Rows))
	for _, row := range d.Rows {
		out = append(out, row[column])
	}
	return out
}

// NonNull returns the column's non-null values in row order.
func (d *Dataset) NonNull(column string) []Value {
	out := make([]Value, 0, len(d.Rows))
	for _, row := range d.Rows {
		if v := row[column]; !v.IsNull() {
			out = append(out, v)
		}
	}
	return out
}

// IsNumericColumn reports whether every non-null value in the column is
// numeric, with at least one non-null value present.
func (d *Dataset) IsNumericColumn(column string) bool {
	seen := false
	for _, row := range d.Rows {
		v := row[column]
		if v.IsNull() {
			continue
		}
		if v.Kind != KindNumber {
			return false
		}
		seen = true
	}
	return seen
}

// ParseNumber parses a raw cell as a float, tolerating surrounding space and
// thousands separators.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
