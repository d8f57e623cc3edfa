package analytics

import (
	"sort"

	"github.com/insightlabs/compass/pkg/dataset"
	"github.com/insightlabs/compass/pkg/schema"
)

// SnapshotRankLimit caps the ranked snapshot view.
const SnapshotRankLimit = 20

// TrendPoint is one entry of a trend or ranking view. MovingAvg and
// GrowthRate are nil for snapshot rankings and for positions where the
// window or a zero denominator leaves them undefined.
type TrendPoint struct {
	Period     string   `json:"period"`
	Value      float64  `json:"value"`
	MovingAvg  *float64 `json:"movingAvg"`
	GrowthRate *float64 `json:"growthRate"`
}

// TrendReport is the assembled trend (or ranked snapshot) for one metric.
type TrendReport struct {
	Metric string       `json:"metric"`
	Region string       `json:"region"`
	Data   []TrendPoint `json:"data"`
}

// Trend assembles the trend view for a metric. Datasets without a time
// column fall back to a ranked snapshot grouped by region; datasets without
// either dimension cannot be analyzed.
func Trend(ds *dataset.Dataset, sc *schema.Schema, metric, region string) (*TrendReport, error) {
	target, err := ResolveMetric(sc, metric)
	if err != nil {
		return nil, err
	}

	if sc.TimeColumn == "" {
		if sc.RegionColumn == "" {
			return nil, ErrNoDimensions
		}
		return snapshotRanking(ds, sc, target, region)
	}

	series := TimeSeries(ds, sc, target, region)
	values := make([]float64, len(series))
	for i, p := range series {
		values[i] = p.Value
	}
	movingAvgs := MovingAverage(values, MovingAverageWindow)
	growthRates := GrowthRates(values)

	data := make([]TrendPoint, len(series))
	for i, p := range series {
		data[i] = TrendPoint{
			Period:     p.Period,
			Value:      round2(p.Value),
			MovingAvg:  movingAvgs[i],
			GrowthRate: growthRates[i],
		}
	}
	return &TrendReport{Metric: target, Region: region, Data: data}, nil
}

// snapshotRanking groups by the region column, sums the metric, and returns
// the top entries in descending order, labelled by region name.
func snapshotRanking(ds *dataset.Dataset, sc *schema.Schema, metric, region string) (*TrendReport, error) {
	index := make(map[string]int)
	points := make([]TrendPoint, 0, len(ds.Rows))
	for _, row := range ds.Rows {
		name := row[sc.RegionColumn]
		if name.IsNull() {
			continue
		}
		v, ok := row[metric].AsNumber()
		if !ok {
			continue
		}
		label := name.Label()
		if i, seen := index[label]; seen {
			points[i].Value += v
			continue
		}
		index[label] = len(points)
		points = append(points, TrendPoint{Period: label, Value: v})
	}

	sort.SliceStable(points, func(a, b int) bool { return points[a].Value > points[b].Value })
	if len(points) > SnapshotRankLimit {
		points = points[:SnapshotRankLimit]
	}
	for i := range points {
		points[i].Value = round2(points[i].Value)
	}

	reportRegion := region
	if reportRegion == "" {
		reportRegion = "All"
	}
	return &TrendReport{Metric: metric, Region: reportRegion, Data: points}, nil
}
