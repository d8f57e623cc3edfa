package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/klauspost/compress/zstd"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/insightlabs/compass/pkg/dataset"
	"github.com/insightlabs/compass/pkg/metrics"
	"github.com/insightlabs/compass/pkg/recommend"
	"github.com/insightlabs/compass/pkg/retry"
	"github.com/insightlabs/compass/pkg/schema"
)

const (
	DefaultDatabase = "insight_compass"

	collDatasets        = "datasets"
	collFileStorage     = "file_storage"
	collRecommendations = "policies"

	dialTimeout  = 5 * time.Second
	historyLimit = 20

	// After idle periods a free-tier document store can take several seconds
	// to wake; the history query polls at a fixed cadence before giving up.
	// History may therefore be briefly incomplete after idle periods.
	historyRetryAttempts = 15
	historyRetryInterval = time.Second
)

// Dial connects to the durable store. On failure it logs and returns nil so
// the system starts in offline mode on tiers 1-2 only; durable-store
// unreachability is a degraded dependency, never a startup failure.
func Dial(ctx context.Context, log *slog.Logger, uri string) *mongo.Client {
	if uri == "" {
		log.Warn("durable store URI not set, continuing in offline mode")
		return nil
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(dialTimeout))
	if err == nil {
		err = client.Ping(ctx, readpref.Primary())
	}
	if err != nil {
		log.Warn("durable store unreachable, continuing in offline mode", "error", err)
		return nil
	}
	log.Info("durable store connected")
	return client
}

type DurableConfig struct {
	Logger *slog.Logger
	// Client may be nil, which yields an offline store whose operations all
	// report ErrUnavailable.
	Client   *mongo.Client
	Database string
	Clock    clockwork.Clock
}

func (cfg *DurableConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return nil
}

// Durable is the tier-3 store backed by a remote document database. Dataset
// bodies are stored zstd-compressed as opaque blobs keyed by dataset id;
// schema and upload metadata live in a separate structured document under
// the same key. Both are upserted, so re-ingestion overwrites in place.
type Durable struct {
	log     *slog.Logger
	client  *mongo.Client
	dbName  string
	clock   clockwork.Clock
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func NewDurable(cfg DurableConfig) (*Durable, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &Durable{
		log:     cfg.Logger,
		client:  cfg.Client,
		dbName:  cfg.Database,
		clock:   cfg.Clock,
		encoder: encoder,
		decoder: decoder,
	}, nil
}

// Available reports whether the store was dialed successfully at startup.
func (d *Durable) Available() bool { return d.client != nil }

// datasetDoc is the structured metadata document, one per dataset id.
type datasetDoc struct {
	FileID          string         `bson:"file_id"`
	Filename        string         `bson:"filename"`
	UploadTimestamp time.Time      `bson:"upload_timestamp"`
	RowCount        int            `bson:"row_count"`
	ColumnCount     int            `bson:"column_count"`
	Columns         []string       `bson:"columns"`
	Schema          *schema.Schema `bson:"schema"`
}

// blobDoc is the compressed dataset body, one per dataset id.
type blobDoc struct {
	FileID    string           `bson:"file_id"`
	Data      primitive.Binary `bson:"data"`
	UpdatedAt time.Time        `bson:"updated_at"`
}

type recommendationDoc struct {
	FileID          string                     `bson:"file_id"`
	CreatedAt       time.Time                  `bson:"created_at"`
	Recommendations []recommend.Recommendation `bson:"recommendations"`
	IsAIGenerated   bool                       `bson:"is_ai_generated"`
}

func (d *Durable) collection(name string) *mongo.Collection {
	return d.client.Database(d.dbName).Collection(name)
}

func (d *Durable) SaveDataset(ctx context.Context, ds *dataset.Dataset, sc *schema.Schema) (err error) {
	if !d.Available() {
		return ErrUnavailable
	}
	start := d.clock.Now()
	defer func() { metrics.RecordDurableOp("save_dataset", d.clock.Since(start), err) }()

	body, err := encodeCSV(ds)
	if err != nil {
		return err
	}
	compressed := d.encoder.EncodeAll(body, nil)

	upsert := options.Update().SetUpsert(true)
	meta := datasetDoc{
		FileID:          ds.ID,
		Filename:        ds.Name,
		UploadTimestamp: ds.UploadedAt,
		RowCount:        len(ds.Rows),
		ColumnCount:     len(ds.Columns),
		Columns:         ds.Columns,
		Schema:          sc,
	}
	if _, err = d.collection(collDatasets).UpdateOne(ctx,
		bson.M{"file_id": ds.ID}, bson.M{"$set": meta}, upsert); err != nil {
		return fmt.Errorf("upsert dataset metadata: %w", err)
	}

	blob := blobDoc{
		FileID:    ds.ID,
		Data:      primitive.Binary{Data: compressed},
		UpdatedAt: d.clock.Now(),
	}
	if _, err = d.collection(collFileStorage).UpdateOne(ctx,
		bson.M{"file_id": ds.ID}, bson.M{"$set": blob}, upsert); err != nil {
		return fmt.Errorf("upsert dataset blob: %w", err)
	}

	d.log.Debug("dataset persisted to durable store", "dataset", ds.ID, "compressedBytes", len(compressed))
	return nil
}

func (d *Durable) LoadDataset(ctx context.Context, id string) (_ *dataset.Dataset, _ *schema.Schema, err error) {
	if !d.Available() {
		return nil, nil, ErrUnavailable
	}
	start := d.clock.Now()
	defer func() { metrics.RecordDurableOp("load_dataset", d.clock.Since(start), err) }()

	var blob blobDoc
	if err = d.collection(collFileStorage).FindOne(ctx, bson.M{"file_id": id}).Decode(&blob); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			err = ErrNotFound
		}
		return nil, nil, err
	}

	var meta datasetDoc
	if err = d.collection(collDatasets).FindOne(ctx, bson.M{"file_id": id}).Decode(&meta); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			err = fmt.Errorf("dataset %s has a body but no metadata document", id)
		}
		return nil, nil, err
	}
	if meta.Schema == nil {
		return nil, nil, fmt.Errorf("dataset %s metadata has no schema", id)
	}

	body, err := d.decoder.DecodeAll(blob.Data.Data, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("decompress dataset %s: %w", id, err)
	}
	ds, err := decodeCSV(id, meta.Filename, body)
	if err != nil {
		return nil, nil, err
	}
	ds.UploadedAt = meta.UploadTimestamp

	d.log.Debug("dataset restored from durable store", "dataset", id, "rows", len(ds.Rows))
	return ds, meta.Schema, nil
}

// History lists the most recent ingestions, newest first. The query is
// retried at a fixed interval while a cold-started store wakes up; if every
// attempt fails the result is empty rather than an error.
func (d *Durable) History(ctx context.Context) ([]HistoryEntry, error) {
	if !d.Available() {
		return nil, nil
	}
	return d.historyWithRetry(ctx, d.fetchHistory)
}

func (d *Durable) historyWithRetry(ctx context.Context, fetch func(context.Context, *[]HistoryEntry) error) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	err := retry.Do(ctx, retry.Config{
		Attempts: historyRetryAttempts,
		Interval: historyRetryInterval,
		Clock:    d.clock,
	}, func() error {
		start := d.clock.Now()
		attemptErr := fetch(ctx, &entries)
		metrics.RecordDurableOp("history", d.clock.Since(start), attemptErr)
		return attemptErr
	})
	if err != nil {
		d.log.Warn("history fetch gave up, returning empty result", "attempts", historyRetryAttempts, "error", err)
		return nil, nil
	}
	return entries, nil
}

func (d *Durable) fetchHistory(ctx context.Context, out *[]HistoryEntry) error {
	opts := options.Find().
		SetSort(bson.D{{Key: "upload_timestamp", Value: -1}}).
		SetLimit(historyLimit).
		SetProjection(bson.M{
			"_id": 0, "file_id": 1, "filename": 1,
			"upload_timestamp": 1, "row_count": 1, "column_count": 1,
		})
	cursor, err := d.collection(collDatasets).Find(ctx, bson.M{}, opts)
	if err != nil {
		return fmt.Errorf("find history: %w", err)
	}
	entries := make([]HistoryEntry, 0, historyLimit)
	if err := cursor.All(ctx, &entries); err != nil {
		return fmt.Errorf("decode history: %w", err)
	}
	*out = entries
	return nil
}

func (d *Durable) LoadRecommendations(ctx context.Context, id string) (_ []recommend.Recommendation, err error) {
	if !d.Available() {
		return nil, ErrUnavailable
	}
	start := d.clock.Now()
	defer func() { metrics.RecordDurableOp("load_recommendations", d.clock.Since(start), err) }()

	var doc recommendationDoc
	if err = d.collection(collRecommendations).FindOne(ctx, bson.M{"file_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			err = ErrNotFound
		}
		return nil, err
	}
	return doc.Recommendations, nil
}

func (d *Durable) SaveRecommendations(ctx context.Context, id string, recs []recommend.Recommendation) (err error) {
	if !d.Available() {
		return ErrUnavailable
	}
	start := d.clock.Now()
	defer func() { metrics.RecordDurableOp("save_recommendations", d.clock.Since(start), err) }()

	doc := recommendationDoc{
		FileID:          id,
		CreatedAt:       d.clock.Now(),
		Recommendations: recs,
		IsAIGenerated:   true,
	}
	_, err = d.collection(collRecommendations).UpdateOne(ctx,
		bson.M{"file_id": id}, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert recommendations: %w", err)
	}
	return nil
}
