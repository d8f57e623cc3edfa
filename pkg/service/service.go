// Package service is the engine facade: it wires ingestion, schema
// inference, the tiered cache, and the analytics, forecasting, and
// recommendation engines behind the operations an API layer would route to.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/insightlabs/compass/pkg/analytics"
	"github.com/insightlabs/compass/pkg/chat"
	"github.com/insightlabs/compass/pkg/dataset"
	"github.com/insightlabs/compass/pkg/forecast"
	"github.com/insightlabs/compass/pkg/metrics"
	"github.com/insightlabs/compass/pkg/recommend"
	"github.com/insightlabs/compass/pkg/schema"
	"github.com/insightlabs/compass/pkg/store"
)

// DefaultPreviewRows bounds raw-data previews when no limit is requested.
const DefaultPreviewRows = 100

type Config struct {
	Logger      *slog.Logger
	Store       *store.Tiered
	Recommender *recommend.Engine
	Chat        *chat.Engine
	Clock       clockwork.Clock
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Store == nil {
		return errors.New("store is required")
	}
	if cfg.Recommender == nil {
		return errors.New("recommender is required")
	}
	if cfg.Chat == nil {
		return errors.New("chat engine is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return nil
}

type Service struct {
	log         *slog.Logger
	store       *store.Tiered
	recommender *recommend.Engine
	chat        *chat.Engine
	clock       clockwork.Clock

	// Ingestion for the same dataset id is serialized: the memory tier is a
	// plain keyed table and last-write-wins only holds if writes do not
	// interleave mid-ingestion.
	ingestMu sync.Mutex
	inFlight map[string]*sync.Mutex
}

func New(cfg Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Service{
		log:         cfg.Logger,
		store:       cfg.Store,
		recommender: cfg.Recommender,
		chat:        cfg.Chat,
		clock:       cfg.Clock,
		inFlight:    make(map[string]*sync.Mutex),
	}, nil
}

// IngestResult summarizes a successful upload.
type IngestResult struct {
	DatasetID   string   `json:"fileId"`
	RowCount    int      `json:"rowCount"`
	ColumnCount int      `json:"columnCount"`
	Columns     []string `json:"columns"`
}

// Ingest decodes an uploaded tabular file, infers its schema, and writes the
// dataset through every persistence tier. Re-ingestion under the same
// derived id overwrites the prior version in every tier.
func (s *Service) Ingest(ctx context.Context, filename string, raw []byte) (result *IngestResult, err error) {
	defer func() { metrics.RecordIngest(err) }()

	id := dataset.DeriveID(filename)
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	ds, err := dataset.DecodeCSV(raw)
	if err != nil {
		return nil, fmt.Errorf("decode upload %q: %w", filename, err)
	}
	ds.ID = id
	ds.Name = filename
	ds.UploadedAt = s.clock.Now()

	sc := schema.Infer(ds, s.clock.Now())
	s.store.Put(ctx, ds, sc)

	s.log.Info("dataset ingested",
		"dataset", id,
		"rows", sc.RowCount,
		"columns", len(ds.Columns),
		"dataType", sc.DataType,
		"timeColumn", sc.TimeColumn,
		"regionColumn", sc.RegionColumn,
	)

	return &IngestResult{
		DatasetID:   id,
		RowCount:    sc.RowCount,
		ColumnCount: len(ds.Columns),
		Columns:     ds.Columns,
	}, nil
}

func (s *Service) lockFor(id string) *sync.Mutex {
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()
	if lock, ok := s.inFlight[id]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	s.inFlight[id] = lock
	return lock
}

// Schema returns the derived schema for an ingested dataset.
func (s *Service) Schema(ctx context.Context, datasetID string) (*schema.Schema, error) {
	_, sc, err := s.store.Resolve(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	return sc, nil
}

// Stats computes summary statistics for one metric column, or for all of
// them when column is empty.
func (s *Service) Stats(ctx context.Context, datasetID, column string) ([]analytics.ColumnStats, error) {
	ds, sc, err := s.store.Resolve(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	return analytics.Summarize(ds, sc, column)
}

// Trends returns the trend view (or ranked snapshot view) for a metric.
func (s *Service) Trends(ctx context.Context, datasetID, metric, region string) (*analytics.TrendReport, error) {
	ds, sc, err := s.store.Resolve(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	return analytics.Trend(ds, sc, metric, region)
}

// HistoricalPoint is one observed period in a forecast report.
type HistoricalPoint struct {
	Period string  `json:"period"`
	Value  float64 `json:"value"`
}

// PredictReport is the forecast response. When the schema disables
// prediction, CanPredict is false, Reason carries the stored explanation,
// and the numeric fields are nil.
type PredictReport struct {
	CanPredict  bool                       `json:"canPredict"`
	Reason      string                     `json:"reason"`
	R2Score     *float64                   `json:"r2Score"`
	Slope       *float64                   `json:"slope"`
	Intercept   *float64                   `json:"intercept"`
	Historical  []HistoricalPoint          `json:"historical"`
	Predictions []forecast.PredictionPoint `json:"predictions"`
}

// Predict fits a regression over the aggregated series and projects horizon
// future periods (forecast.DefaultHorizon when horizon is zero or negative).
func (s *Service) Predict(ctx context.Context, datasetID, metric string, horizon int) (*PredictReport, error) {
	ds, sc, err := s.store.Resolve(ctx, datasetID)
	if err != nil {
		return nil, err
	}

	if !sc.CanPredict {
		return &PredictReport{
			CanPredict:  false,
			Reason:      sc.PredictionReason,
			Historical:  []HistoricalPoint{},
			Predictions: []forecast.PredictionPoint{},
		}, nil
	}

	target, err := analytics.ResolveMetric(sc, metric)
	if err != nil {
		return nil, err
	}
	if horizon <= 0 {
		horizon = forecast.DefaultHorizon
	}

	series := analytics.TimeSeries(ds, sc, target, "")
	values := make([]float64, len(series))
	historical := make([]HistoricalPoint, len(series))
	for i, p := range series {
		values[i] = p.Value
		historical[i] = HistoricalPoint{Period: p.Period, Value: round2(p.Value)}
	}

	result, err := forecast.Linear(values, horizon)
	if err != nil {
		return nil, fmt.Errorf("fit forecast for %s: %w", datasetID, err)
	}

	return &PredictReport{
		CanPredict:  true,
		Reason:      sc.PredictionReason,
		R2Score:     &result.R2,
		Slope:       &result.Slope,
		Intercept:   &result.Intercept,
		Historical:  historical,
		Predictions: result.Predictions,
	}, nil
}

// Recommendations returns policy recommendations for a dataset. AI-generated
// sets are cached in the durable store and served from that cache on repeat
// requests; rule-based fallbacks are generated fresh every time.
func (s *Service) Recommendations(ctx context.Context, datasetID string) ([]recommend.Recommendation, error) {
	if cached, err := s.store.LoadRecommendations(ctx, datasetID); err == nil && len(cached) > 0 {
		s.log.Debug("serving cached recommendations", "dataset", datasetID)
		return cached, nil
	}

	ds, sc, err := s.store.Resolve(ctx, datasetID)
	if err != nil {
		return nil, err
	}

	stats, err := analytics.Summarize(ds, sc, "")
	if err != nil && !errors.Is(err, analytics.ErrNoMetrics) {
		return nil, err
	}

	recs, aiGenerated := s.recommender.Generate(ctx, ds, sc, stats)
	if aiGenerated {
		s.store.SaveRecommendations(ctx, datasetID, recs)
	}
	return recs, nil
}

// Chat answers a natural-language question about a dataset.
func (s *Service) Chat(ctx context.Context, datasetID, message string) (string, error) {
	ds, sc, err := s.store.Resolve(ctx, datasetID)
	if err != nil {
		return "", err
	}
	stats, err := analytics.Summarize(ds, sc, "")
	if err != nil && !errors.Is(err, analytics.ErrNoMetrics) {
		return "", err
	}
	return s.chat.Respond(ctx, ds, sc, stats, message), nil
}

// History lists recently ingested datasets, newest first.
func (s *Service) History(ctx context.Context) ([]store.HistoryEntry, error) {
	return s.store.History(ctx)
}

// Regions returns the sorted distinct values of the dataset's region
// column; empty when no region column was detected.
func (s *Service) Regions(ctx context.Context, datasetID string) ([]string, error) {
	ds, sc, err := s.store.Resolve(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	if sc.RegionColumn == "" {
		return []string{}, nil
	}

	seen := make(map[string]struct{})
	regions := make([]string, 0)
	for _, v := range ds.NonNull(sc.RegionColumn) {
		label := v.Label()
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		regions = append(regions, label)
	}
	sort.Strings(regions)
	return regions, nil
}

// Preview returns the first rows of a dataset for display.
func (s *Service) Preview(ctx context.Context, datasetID string, limit int) (*dataset.Preview, error) {
	ds, _, err := s.store.Resolve(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultPreviewRows
	}
	return ds.Head(limit), nil
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }
