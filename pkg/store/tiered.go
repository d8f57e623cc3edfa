package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/insightlabs/compass/pkg/dataset"
	"github.com/insightlabs/compass/pkg/metrics"
	"github.com/insightlabs/compass/pkg/recommend"
	"github.com/insightlabs/compass/pkg/schema"
)

type TieredConfig struct {
	Logger *slog.Logger
	Memory *Memory
	// Local may be nil when no local directory is configured.
	Local LocalStore
	// Durable may be nil; nil and offline behave identically.
	Durable DurableStore
}

func (cfg *TieredConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Memory == nil {
		return errors.New("memory tier is required")
	}
	return nil
}

// Tiered coordinates the three persistence tiers behind a single resolve
// operation with an explicit tier order and back-population guarantee.
type Tiered struct {
	log     *slog.Logger
	memory  *Memory
	local   LocalStore
	durable DurableStore
}

func NewTiered(cfg TieredConfig) (*Tiered, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Tiered{
		log:     cfg.Logger,
		memory:  cfg.Memory,
		local:   cfg.Local,
		durable: cfg.Durable,
	}, nil
}

// Put writes the entry through all tiers. The memory tier is written
// synchronously and is sufficient for the ingestion to succeed; local and
// durable writes fan out concurrently, best-effort, with failures logged
// and absorbed.
func (t *Tiered) Put(ctx context.Context, ds *dataset.Dataset, sc *schema.Schema) {
	t.memory.Put(ds.ID, Entry{Dataset: ds, Schema: sc})

	var g errgroup.Group
	if t.local != nil {
		g.Go(func() error {
			if err := t.local.Save(ds.ID, ds, sc); err != nil {
				t.log.Warn("local tier write failed", "dataset", ds.ID, "error", err)
			}
			return nil
		})
	}
	if t.durable != nil {
		g.Go(func() error {
			if err := t.durable.SaveDataset(ctx, ds, sc); err != nil && !errors.Is(err, ErrUnavailable) {
				t.log.Warn("durable tier write failed", "dataset", ds.ID, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Resolve returns the dataset and schema for an id, trying memory, then the
// local store, then the durable store. A hit in a slower tier re-populates
// the faster tiers before returning, so the same id is never fetched twice
// from a slower tier within one process lifetime.
func (t *Tiered) Resolve(ctx context.Context, id string) (*dataset.Dataset, *schema.Schema, error) {
	if entry, ok := t.memory.Get(id); ok {
		metrics.RecordTierResolve("memory", true)
		return entry.Dataset, entry.Schema, nil
	}
	metrics.RecordTierResolve("memory", false)

	if t.local != nil {
		ds, sc, err := t.local.Load(id)
		switch {
		case err == nil:
			metrics.RecordTierResolve("local", true)
			t.memory.Put(id, Entry{Dataset: ds, Schema: sc})
			return ds, sc, nil
		case errors.Is(err, ErrNotFound):
			metrics.RecordTierResolve("local", false)
		default:
			metrics.RecordTierResolve("local", false)
			t.log.Warn("local tier read failed", "dataset", id, "error", err)
		}
	}

	if t.durable != nil {
		ds, sc, err := t.durable.LoadDataset(ctx, id)
		switch {
		case err == nil:
			metrics.RecordTierResolve("durable", true)
			t.memory.Put(id, Entry{Dataset: ds, Schema: sc})
			if t.local != nil {
				if err := t.local.Save(id, ds, sc); err != nil {
					t.log.Warn("local tier back-population failed", "dataset", id, "error", err)
				}
			}
			return ds, sc, nil
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrUnavailable):
			metrics.RecordTierResolve("durable", false)
		default:
			metrics.RecordTierResolve("durable", false)
			t.log.Warn("durable tier read failed", "dataset", id, "error", err)
		}
	}

	return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// History lists recent ingestions from the durable store; empty without one.
func (t *Tiered) History(ctx context.Context) ([]HistoryEntry, error) {
	if t.durable == nil {
		return nil, nil
	}
	return t.durable.History(ctx)
}

// LoadRecommendations returns the durable store's cached recommendation set
// for the id. ErrNotFound covers both "nothing cached" and "no store".
func (t *Tiered) LoadRecommendations(ctx context.Context, id string) ([]recommend.Recommendation, error) {
	if t.durable == nil {
		return nil, ErrNotFound
	}
	recs, err := t.durable.LoadRecommendations(ctx, id)
	if errors.Is(err, ErrUnavailable) {
		return nil, ErrNotFound
	}
	return recs, err
}

// SaveRecommendations caches an AI-generated recommendation set, best-effort.
func (t *Tiered) SaveRecommendations(ctx context.Context, id string, recs []recommend.Recommendation) {
	if t.durable == nil {
		return
	}
	if err := t.durable.SaveRecommendations(ctx, id, recs); err != nil && !errors.Is(err, ErrUnavailable) {
		t.log.Warn("recommendation cache write failed", "dataset", id, "error", err)
	}
}
