package schema

import (
	"strings"

	"github.com/insightlabs/compass/pkg/dataset"
)

// Column-role keyword sets. Matching is order-dependent: the first column (in
// column order) satisfying the first predicate (in table order) wins.
var (
	timeKeywords = []string{"year", "month", "date", "day", "time", "period", "quarter", "fy", "fiscal"}

	regionKeywords = []string{
		"state", "region", "district", "city", "location", "area", "zone",
		"territory", "aua", "agency", "organization", "registrar", "name", "company",
	}
)

// columnPredicate is one named detection rule. Predicates are kept in an
// ordered table so the tie-break sequence is explicit and testable.
type columnPredicate struct {
	name  string
	match func(ds *dataset.Dataset, column string) bool
}

var timePredicates = []columnPredicate{
	{"keyword-name", matchesTimeKeyword},
	{"date-parseable-values", hasDateParseableValues},
}

// DetectTimeColumn returns the name of the time column, or "" when none is
// found. At most one time column is ever selected.
func DetectTimeColumn(ds *dataset.Dataset) string {
	for _, predicate := range timePredicates {
		for _, col := range ds.Columns {
			if predicate.match(ds, col) {
				return col
			}
		}
	}
	return ""
}

// DetectRegionColumn returns the first column whose lower-cased name contains
// a region keyword. Matching is by name only; values are never inspected.
func DetectRegionColumn(ds *dataset.Dataset) string {
	for _, col := range ds.Columns {
		lower := strings.ToLower(col)
		for _, kw := range regionKeywords {
			if strings.Contains(lower, kw) {
				return col
			}
		}
	}
	return ""
}

// DetectMetricColumns returns every uniformly numeric column that was not
// already claimed as the time or region column.
func DetectMetricColumns(ds *dataset.Dataset, timeCol, regionCol string) []string {
	metrics := make([]string, 0, len(ds.Columns))
	for _, col := range ds.Columns {
		if col == timeCol || col == regionCol {
			continue
		}
		if ds.IsNumericColumn(col) {
			metrics = append(metrics, col)
		}
	}
	return metrics
}

// matchesTimeKeyword matches an exact or underscore-delimited keyword in the
// column name, so "year" and "fiscal_year" match but "yearning" does not.
func matchesTimeKeyword(_ *dataset.Dataset, column string) bool {
	lower := strings.ToLower(column)
	tokens := strings.Split(lower, "_")
	for _, kw := range timeKeywords {
		if kw == lower {
			return true
		}
		for _, tok := range tokens {
			if kw == tok {
				return true
			}
		}
	}
	return false
}

// hasDateParseableValues probes a text column's first 10 non-null values and
// matches when all of them parse as dates. Numeric columns are skipped: bare
// numbers are too easily mistaken for timestamps.
func hasDateParseableValues(ds *dataset.Dataset, column string) bool {
	if ds.IsNumericColumn(column) {
		return false
	}
	probed := 0
	for _, v := range ds.NonNull(column) {
		if probed == 10 {
			break
		}
		if _, ok := parseGeneric(v.Str); !ok {
			return false
		}
		probed++
	}
	return probed > 0
}
