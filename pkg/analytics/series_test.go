package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/insightlabs/compass/pkg/dataset"
	"github.com/insightlabs/compass/pkg/schema"
)

func inferred(t *testing.T, raw string) (*dataset.Dataset, *schema.Schema) {
	t.Helper()
	ds, err := dataset.DecodeCSV([]byte(raw))
	require.NoError(t, err)
	now := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)
	return ds, schema.Infer(ds, now)
}

func TestCompass_Analytics_MovingAverage(t *testing.T) {
	t.Parallel()

	t.Run("trailing window", func(t *testing.T) {
		t.Parallel()
		out := MovingAverage([]float64{10, 12, 9, 15, 20}, 3)
		require.Len(t, out, 5)
		require.Nil(t, out[0])
		require.Nil(t, out[1])
		require.InDelta(t, 10.33, *out[2], 1e-9)
		require.InDelta(t, 12, *out[3], 1e-9)
		require.InDelta(t, 14.67, *out[4], 1e-9)
	})

	t.Run("series shorter than window", func(t *testing.T) {
		t.Parallel()
		out := MovingAverage([]float64{5, 7}, 3)
		require.Len(t, out, 2)
		require.Nil(t, out[0])
		require.Nil(t, out[1])
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		require.Empty(t, MovingAverage(nil, 3))
	})
}

func TestCompass_Analytics_GrowthRates(t *testing.T) {
	t.Parallel()

	t.Run("period over period", func(t *testing.T) {
		t.Parallel()
		out := GrowthRates([]float64{100, 110, 99})
		require.Len(t, out, 3)
		require.Nil(t, out[0])
		require.InDelta(t, 10, *out[1], 1e-9)
		require.InDelta(t, -10, *out[2], 1e-9)
	})

	t.Run("zero denominator yields nil", func(t *testing.T) {
		t.Parallel()
		out := GrowthRates([]float64{0, 10, 20})
		require.Nil(t, out[0])
		require.Nil(t, out[1])
		require.InDelta(t, 100, *out[2], 1e-9)
	})
}

func TestCompass_Analytics_ResolveMetric(t *testing.T) {
	t.Parallel()

	sc := &schema.Schema{MetricColumns: []string{"enrollment", "updates"}}

	t.Run("declared metric", func(t *testing.T) {
		t.Parallel()
		col, err := ResolveMetric(sc, "updates")
		require.NoError(t, err)
		require.Equal(t, "updates", col)
	})

	t.Run("unknown metric falls back to first", func(t *testing.T) {
		t.Parallel()
		col, err := ResolveMetric(sc, "nonexistent")
		require.NoError(t, err)
		require.Equal(t, "enrollment", col)
	})

	t.Run("empty request falls back to first", func(t *testing.T) {
		t.Parallel()
		col, err := ResolveMetric(sc, "")
		require.NoError(t, err)
		require.Equal(t, "enrollment", col)
	})

	t.Run("no metrics", func(t *testing.T) {
		t.Parallel()
		_, err := ResolveMetric(&schema.Schema{}, "anything")
		require.ErrorIs(t, err, ErrNoMetrics)
	})
}

func TestCompass_Analytics_TimeSeries(t *testing.T) {
	t.Parallel()

	raw := `year,state,count
2021,MH,10
2021,KA,5
2022,MH,12
2022,KA,6
2023,MH,9
`

	t.Run("sums per period without filter", func(t *testing.T) {
		t.Parallel()
		ds, sc := inferred(t, raw)
		series := TimeSeries(ds, sc, "count", "")
		require.Equal(t, []SeriesPoint{
			{Period: "2021-01-01", Value: 15},
			{Period: "2022-01-01", Value: 18},
			{Period: "2023-01-01", Value: 9},
		}, series)
	})

	t.Run("region filter takes rows as-is", func(t *testing.T) {
		t.Parallel()
		ds, sc := inferred(t, raw)
		series := TimeSeries(ds, sc, "count", "KA")
		require.Equal(t, []SeriesPoint{
			{Period: "2021-01-01", Value: 5},
			{Period: "2022-01-01", Value: 6},
		}, series)
	})

	t.Run("sub-day timestamps stay distinct", func(t *testing.T) {
		t.Parallel()
		// Two observations on the same calendar day share a label but are
		// distinct time points, and must not be merged into one period.
		ds, sc := inferred(t, "time,state,count\n2024-03-01 10:00:00,MH,5\n2024-03-01 14:00:00,KA,7\n")
		series := TimeSeries(ds, sc, "count", "")
		require.Equal(t, []SeriesPoint{
			{Period: "2024-03-01", Value: 5},
			{Period: "2024-03-01", Value: 7},
		}, series)
	})

	t.Run("no region column reads rows directly", func(t *testing.T) {
		t.Parallel()
		ds, sc := inferred(t, "year,count\n2021,10\n2022,12\n")
		series := TimeSeries(ds, sc, "count", "")
		require.Equal(t, []SeriesPoint{
			{Period: "2021-01-01", Value: 10},
			{Period: "2022-01-01", Value: 12},
		}, series)
	})
}
