// Package schema infers column roles and dataset classification for an
// ingested dataset. Detection is heuristic and never fails: absence of a time
// or region column is a legal outcome.
package schema

import (
	"fmt"
	"time"

	"github.com/insightlabs/compass/pkg/dataset"
)

// DataType classifies a dataset as a time series or a cross-sectional
// snapshot.
type DataType string

const (
	TimeSeries DataType = "TIME_SERIES"
	Snapshot   DataType = "SNAPSHOT"
)

const (
	// MinTimeSeriesPoints is the distinct-time-point count at which a dataset
	// is classified TIME_SERIES rather than SNAPSHOT.
	MinTimeSeriesPoints = 3
	// MinForecastPoints is the distinct-time-point count required before
	// forecasting is admissible.
	MinForecastPoints = 6
)

// Schema is derived, non-authoritative metadata attached to a dataset. Field
// names match the persisted schema document in the durable store.
type Schema struct {
	TimeColumn       string   `json:"timeColumn" bson:"timeColumn"`
	RegionColumn     string   `json:"regionColumn" bson:"regionColumn"`
	MetricColumns    []string `json:"metricColumns" bson:"metricColumns"`
	DataType         DataType `json:"dataType" bson:"dataType"`
	RowCount         int      `json:"rowCount" bson:"rowCount"`
	CanPredict       bool     `json:"canPredict" bson:"canPredict"`
	PredictionReason string   `json:"predictionReason" bson:"predictionReason"`
}

// Infer derives the schema for a dataset and applies the ingestion-time time
// normalization side effects (row dropping and time-ascending sort). It is
// called exactly once per ingestion; the schema is recomputed wholesale, never
// patched.
//
// now anchors the day-month date fallback, which appends the current calendar
// year to year-less values. Uploading historical day-month data in a later
// year silently misdates it; that behavior is inherited from the source
// system and kept until the product decides otherwise.
func Infer(ds *dataset.Dataset, now time.Time) *Schema {
	timeCol := DetectTimeColumn(ds)
	if timeCol != "" && !NormalizeTime(ds, timeCol, now) {
		// The column looked temporal by name but nothing in it parses as a
		// date. It stays raw and the dataset is treated as a snapshot.
		timeCol = ""
	}

	regionCol := DetectRegionColumn(ds)
	metricCols := DetectMetricColumns(ds, timeCol, regionCol)

	distinct := 0
	if timeCol != "" {
		seen := make(map[string]struct{})
		for _, v := range ds.NonNull(timeCol) {
			seen[v.Key()] = struct{}{}
		}
		distinct = len(seen)
	}

	dataType := Snapshot
	if distinct >= MinTimeSeriesPoints {
		dataType = TimeSeries
	}
	canPredict := dataType == TimeSeries && distinct >= MinForecastPoints

	reason := "prediction enabled"
	if !canPredict {
		reason = fmt.Sprintf("requires at least %d distinct time points (found %d)", MinForecastPoints, distinct)
	}

	return &Schema{
		TimeColumn:       timeCol,
		RegionColumn:     regionCol,
		MetricColumns:    metricCols,
		DataType:         dataType,
		RowCount:         len(ds.Rows),
		CanPredict:       canPredict,
		PredictionReason: reason,
	}
}
