// Package analytics computes summary statistics, trend series, and snapshot
// rankings over a resolved dataset and its inferred schema.
package analytics

import (
	"errors"
	"math"

	"github.com/insightlabs/compass/pkg/dataset"
	"github.com/insightlabs/compass/pkg/schema"
)

// MovingAverageWindow is the trailing window for trend smoothing.
const MovingAverageWindow = 3

var (
	// ErrNoMetrics means the schema declares no numeric metric columns, so
	// there is nothing to analyze.
	ErrNoMetrics = errors.New("no metric columns available")
	// ErrNoDimensions means the dataset has neither a time column nor a
	// region column, so no trend or ranking view can be assembled.
	ErrNoDimensions = errors.New("no time or category column found")
)

// MovingAverage computes a trailing moving average. The first window-1
// positions are nil; every later position is the mean of itself and the
// previous window-1 values, rounded to 2 decimals. Output length always
// equals input length.
func MovingAverage(values []float64, window int) []*float64 {
	out := make([]*float64, len(values))
	if window <= 0 {
		return out
	}
	for i := range values {
		if i < window-1 {
			continue
		}
		sum := 0.0
		for _, v := range values[i-window+1 : i+1] {
			sum += v
		}
		out[i] = ptr(round2(sum / float64(window)))
	}
	return out
}

// GrowthRates computes period-over-period growth percentages. Position 0 is
// always nil, and a zero previous value yields nil rather than a division by
// zero. Output length always equals input length.
func GrowthRates(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			continue
		}
		rate := (values[i] - values[i-1]) / values[i-1] * 100
		out[i] = ptr(round2(rate))
	}
	return out
}

// ResolveMetric maps a requested metric to a declared one. A metric that is
// not in the schema's list silently falls back to the first declared metric
// column rather than failing.
func ResolveMetric(sc *schema.Schema, requested string) (string, error) {
	if len(sc.MetricColumns) == 0 {
		return "", ErrNoMetrics
	}
	for _, col := range sc.MetricColumns {
		if col == requested {
			return col, nil
		}
	}
	return sc.MetricColumns[0], nil
}

// SeriesPoint is one (period label, value) pair of a derived series. Derived
// series are ephemeral: produced fresh per query, never persisted.
type SeriesPoint struct {
	Period string
	Value  float64
}

// TimeSeries builds the ordered (period, value) series for a metric over the
// dataset's time column, optionally filtered to a single region. Without a
// region filter, rows sharing a period are summed per period; with one, the
// filtered rows are already one observation per row and are taken as-is.
func TimeSeries(ds *dataset.Dataset, sc *schema.Schema, metric, region string) []SeriesPoint {
	rows := ds.Rows
	if region != "" && sc.RegionColumn != "" {
		rows = filterRegion(rows, sc.RegionColumn, region)
	}
	if sc.RegionColumn != "" && region == "" {
		return sumByPeriod(rows, sc.TimeColumn, metric)
	}
	return directSeries(rows, sc.TimeColumn, metric)
}

func filterRegion(rows []dataset.Row, regionCol, region string) []dataset.Row {
	out := make([]dataset.Row, 0, len(rows))
	for _, row := range rows {
		if row[regionCol].Label() == region {
			out = append(out, row)
		}
	}
	return out
}

// sumByPeriod groups rows by time point and sums the metric, preserving
// first-seen order. Rows are already time-sorted at ingestion, so first-seen
// order is time order. Grouping keys on the underlying instant, the same key
// the schema uses for distinct-point counting, so sub-day timestamps stay
// separate points even when they share a calendar-day label.
func sumByPeriod(rows []dataset.Row, timeCol, metric string) []SeriesPoint {
	index := make(map[string]int)
	out := make([]SeriesPoint, 0, len(rows))
	for _, row := range rows {
		tv := row[timeCol]
		if tv.IsNull() {
			continue
		}
		v, ok := row[metric].AsNumber()
		if !ok {
			v = 0
		}
		key := tv.Key()
		if i, seen := index[key]; seen {
			out[i].Value += v
			continue
		}
		index[key] = len(out)
		out = append(out, SeriesPoint{Period: tv.Label(), Value: v})
	}
	return out
}

func directSeries(rows []dataset.Row, timeCol, metric string) []SeriesPoint {
	out := make([]SeriesPoint, 0, len(rows))
	for _, row := range rows {
		tv := row[timeCol]
		if tv.IsNull() {
			continue
		}
		v, ok := row[metric].AsNumber()
		if !ok {
			continue
		}
		out = append(out, SeriesPoint{Period: tv.Label(), Value: v})
	}
	return out
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }

func ptr(f float64) *float64 { return &f }
