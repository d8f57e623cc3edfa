package analytics

import (
	"math"
	"sort"

	"github.com/insightlabs/compass/pkg/dataset"
	"github.com/insightlabs/compass/pkg/schema"
)

// ColumnStats is the summary view of one metric column. All values are
// rounded to 2 decimal places.
type ColumnStats struct {
	Column     string   `json:"column"`
	Min        float64  `json:"min"`
	Max        float64  `json:"max"`
	Avg        float64  `json:"avg"`
	Median     float64  `json:"median"`
	StdDev     float64  `json:"stdDev"`
	GrowthRate *float64 `json:"growthRate"`
	DataPoints int      `json:"dataPoints"`
}

// Summarize computes summary statistics for the requested metric column, or
// for every declared metric column when none is requested.
func Summarize(ds *dataset.Dataset, sc *schema.Schema, column string) ([]ColumnStats, error) {
	var columns []string
	if column != "" {
		resolved, err := ResolveMetric(sc, column)
		if err != nil {
			return nil, err
		}
		columns = []string{resolved}
	} else {
		if len(sc.MetricColumns) == 0 {
			return nil, ErrNoMetrics
		}
		columns = sc.MetricColumns
	}

	out := make([]ColumnStats, 0, len(columns))
	for _, col := range columns {
		values := numericValues(ds, col)
		if len(values) == 0 {
			continue
		}
		out = append(out, summarizeColumn(col, values, sc.DataType))
	}
	return out, nil
}

func summarizeColumn(column string, values []float64, dataType schema.DataType) ColumnStats {
	stats := ColumnStats{
		Column:     column,
		Min:        round2(minOf(values)),
		Max:        round2(maxOf(values)),
		Avg:        round2(mean(values)),
		Median:     round2(median(values)),
		StdDev:     round2(sampleStdDev(values)),
		DataPoints: len(values),
	}

	// End-to-end growth only makes sense for an ordered series.
	if dataType == schema.TimeSeries && len(values) >= 2 {
		first, last := values[0], values[len(values)-1]
		if first != 0 {
			stats.GrowthRate = ptr(round2((last - first) / first * 100))
		}
	}
	return stats
}

func numericValues(ds *dataset.Dataset, column string) []float64 {
	out := make([]float64, 0, len(ds.Rows))
	for _, v := range ds.NonNull(column) {
		if f, ok := v.AsNumber(); ok {
			out = append(out, f)
		}
	}
	return out
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// sampleStdDev is the n-1 standard deviation; 0 for fewer than two values.
func sampleStdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(n-1))
}
