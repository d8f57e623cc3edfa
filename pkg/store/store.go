// Package store implements the three-tier persistence cache for datasets and
// their derived schemas: a process-lifetime memory tier, a local fast-reload
// tier, and a durable remote document store.
//
// Writes go through all tiers at ingestion (memory synchronously, the rest
// best-effort); reads resolve memory → local → durable and back-populate the
// faster tiers, so a dataset is fetched from a slower tier at most once per
// process lifetime.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/insightlabs/compass/pkg/dataset"
	"github.com/insightlabs/compass/pkg/recommend"
	"github.com/insightlabs/compass/pkg/schema"
)

var (
	// ErrNotFound means the dataset exists in none of the tiers.
	ErrNotFound = errors.New("dataset not found")
	// ErrUnavailable means the durable store is offline. Tier logic absorbs
	// it; it never reaches a caller as a user-facing failure.
	ErrUnavailable = errors.New("durable store unavailable")
)

// Entry is one cached dataset with its derived schema. The two are created
// together at ingestion and only ever replaced wholesale.
type Entry struct {
	Dataset *dataset.Dataset
	Schema  *schema.Schema
}

// HistoryEntry summarizes one previously ingested dataset.
type HistoryEntry struct {
	FileID          string    `json:"fileId" bson:"file_id"`
	Filename        string    `json:"filename" bson:"filename"`
	UploadTimestamp time.Time `json:"uploadTimestamp" bson:"upload_timestamp"`
	RowCount        int       `json:"rowCount" bson:"row_count"`
	ColumnCount     int       `json:"columnCount" bson:"column_count"`
}

// LocalStore is the tier-2 contract: one file per dataset on fast local
// storage.
type LocalStore interface {
	Save(id string, ds *dataset.Dataset, sc *schema.Schema) error
	// Load returns ErrNotFound when the dataset has no local file.
	Load(id string) (*dataset.Dataset, *schema.Schema, error)
}

// DurableStore is the tier-3 contract: a keyed remote document store with
// blob support. Implementations must be safe to call in offline mode,
// reporting ErrUnavailable rather than blocking or panicking.
type DurableStore interface {
	Available() bool
	SaveDataset(ctx context.Context, ds *dataset.Dataset, sc *schema.Schema) error
	// LoadDataset returns ErrNotFound when no document exists for the id.
	LoadDataset(ctx context.Context, id string) (*dataset.Dataset, *schema.Schema, error)
	History(ctx context.Context) ([]HistoryEntry, error)
	// LoadRecommendations returns ErrNotFound when no cached set exists.
	LoadRecommendations(ctx context.Context, id string) ([]recommend.Recommendation, error)
	SaveRecommendations(ctx context.Context, id string, recs []recommend.Recommendation) error
}
