package schema

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/insightlabs/compass/pkg/dataset"
)

// genericLayouts pairs a cheap shape check with the candidate layouts for
// that shape, so the full layout list is not tried against every cell.
var genericLayouts = []struct {
	pattern *regexp.Regexp
	layouts []string
}{
	{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`),
		[]string{time.RFC3339, "2006-01-02T15:04:05"},
	},
	{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`),
		[]string{"2006-01-02 15:04:05"},
	},
	{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
		[]string{"2006-01-02"},
	},
	{
		regexp.MustCompile(`^\d{4}/\d{1,2}/\d{1,2}$`),
		[]string{"2006/1/2"},
	},
	{
		regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`),
		[]string{"1/2/2006"},
	},
	{
		regexp.MustCompile(`^\d{1,2}\.\d{1,2}\.\d{4}$`),
		[]string{"2.1.2006"},
	},
	{
		regexp.MustCompile(`^\d{4}-\d{2}$`),
		[]string{"2006-01"},
	},
	{
		regexp.MustCompile(`^[A-Za-z]{3,9} \d{4}$`),
		[]string{"Jan 2006", "January 2006"},
	},
	{
		regexp.MustCompile(`^[A-Za-z]{3}-\d{4}$`),
		[]string{"Jan-2006"},
	},
	{
		regexp.MustCompile(`^\d{4}$`),
		[]string{"2006"},
	},
}

// Year-less fallback layouts for government exports like "21-Oct" (day-month,
// current year assumed) and "Oct-24" (month with two-digit year).
const (
	dayMonthLayout       = "2-Jan-2006"
	monthShortYearLayout = "Jan-06"
)

// NormalizeTime parses the named column into timestamps, drops rows whose
// value never parses, and sorts the dataset ascending by the parsed value.
// The mutation happens exactly once, at ingestion.
//
// It returns false — leaving the dataset untouched — when not a single value
// parses, in which case the caller must not treat the column as temporal.
func NormalizeTime(ds *dataset.Dataset, column string, now time.Time) bool {
	values := ds.ColumnValues(column)

	times := make([]time.Time, len(values))
	valid := make([]bool, len(values))
	total := 0
	parsed := 0
	for i, v := range values {
		if v.IsNull() {
			continue
		}
		total++
		if t, ok := parseValue(v); ok {
			times[i], valid[i] = t, true
			parsed++
		}
	}
	if total == 0 {
		return false
	}

	// Generic inference left half or more of the column unparsed: inspect one
	// sample value and try the year-less government-export formats instead.
	if failed := total - parsed; failed*2 >= total {
		sample := firstNonNullLabel(values)
		if strings.Contains(sample, "-") {
			yearSuffix := fmt.Sprintf("-%d", now.Year())
			attempt := reparseAll(values, times, valid, func(s string) (time.Time, bool) {
				t, err := time.Parse(dayMonthLayout, s+yearSuffix)
				return t, err == nil
			})
			if failed := total - attempt; failed*2 >= total {
				attempt = reparseAll(values, times, valid, func(s string) (time.Time, bool) {
					t, err := time.Parse(monthShortYearLayout, s)
					return t, err == nil
				})
			}
			parsed = attempt
		}
	}

	if parsed == 0 {
		return false
	}

	type timedRow struct {
		row dataset.Row
		t   time.Time
	}
	kept := make([]timedRow, 0, parsed)
	for i, row := range ds.Rows {
		if !valid[i] {
			continue
		}
		row[column] = dataset.Timestamp(times[i])
		kept = append(kept, timedRow{row: row, t: times[i]})
	}
	sort.SliceStable(kept, func(a, b int) bool { return kept[a].t.Before(kept[b].t) })

	rows := make([]dataset.Row, len(kept))
	for i, kr := range kept {
		rows[i] = kr.row
	}
	ds.Rows = rows
	return true
}

// reparseAll replaces the whole parse result with one layout attempt, the way
// the fallback formats are applied: all-or-per-cell, not mixed with the
// generic pass. Returns the new success count.
func reparseAll(values []dataset.Value, times []time.Time, valid []bool, parse func(string) (time.Time, bool)) int {
	parsed := 0
	for i, v := range values {
		times[i] = time.Time{}
		valid[i] = false
		if v.IsNull() {
			continue
		}
		if t, ok := parse(v.Label()); ok {
			times[i], valid[i] = t, true
			parsed++
		}
	}
	return parsed
}

// parseValue attempts generic date inference for one cell.
func parseValue(v dataset.Value) (time.Time, bool) {
	switch v.Kind {
	case dataset.KindTime:
		return v.Time, true
	case dataset.KindNumber:
		// Whole numbers in a plausible year range are treated as years, which
		// is how annual government series are usually published.
		y := int(v.Num)
		if float64(y) == v.Num && y >= 1000 && y <= 9999 {
			return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC), true
		}
		return time.Time{}, false
	case dataset.KindString:
		return parseGeneric(v.Str)
	default:
		return time.Time{}, false
	}
}

func parseGeneric(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, candidate := range genericLayouts {
		if !candidate.pattern.MatchString(s) {
			continue
		}
		for _, layout := range candidate.layouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func firstNonNullLabel(values []dataset.Value) string {
	for _, v := range values {
		if !v.IsNull() {
			return v.Label()
		}
	}
	return ""
}
