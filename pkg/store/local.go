package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/insightlabs/compass/pkg/dataset"
	"github.com/insightlabs/compass/pkg/schema"
)

// localMeta is the sidecar document written next to each dataset file so a
// read-through restores the schema without re-running inference.
type localMeta struct {
	Name       string         `json:"name"`
	UploadedAt time.Time      `json:"uploadedAt"`
	Schema     *schema.Schema `json:"schema"`
}

type LocalConfig struct {
	Logger *slog.Logger
	// Dir is the directory holding one CSV plus one sidecar per dataset.
	Dir string
}

func (cfg *LocalConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Dir == "" {
		return errors.New("dir is required")
	}
	return nil
}

// Local is the tier-2 store: one CSV file plus one schema sidecar per
// dataset under a local directory.
type Local struct {
	log *slog.Logger
	dir string
}

func NewLocal(cfg LocalConfig) (*Local, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create local store dir: %w", err)
	}
	return &Local{log: cfg.Logger, dir: cfg.Dir}, nil
}

func (l *Local) Save(id string, ds *dataset.Dataset, sc *schema.Schema) error {
	body, err := encodeCSV(ds)
	if err != nil {
		return fmt.Errorf("encode dataset %s: %w", id, err)
	}
	meta, err := json.MarshalIndent(localMeta{Name: ds.Name, UploadedAt: ds.UploadedAt, Schema: sc}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode sidecar %s: %w", id, err)
	}

	if err := os.WriteFile(l.dataPath(id), body, 0o644); err != nil {
		return fmt.Errorf("write dataset file: %w", err)
	}
	if err := os.WriteFile(l.metaPath(id), meta, 0o644); err != nil {
		return fmt.Errorf("write sidecar file: %w", err)
	}
	return nil
}

func (l *Local) Load(id string) (*dataset.Dataset, *schema.Schema, error) {
	body, err := os.ReadFile(l.dataPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read dataset file: %w", err)
	}

	metaBody, err := os.ReadFile(l.metaPath(id))
	if err != nil {
		return nil, nil, fmt.Errorf("read sidecar file: %w", err)
	}
	var meta localMeta
	if err := json.Unmarshal(metaBody, &meta); err != nil {
		return nil, nil, fmt.Errorf("decode sidecar %s: %w", id, err)
	}
	if meta.Schema == nil {
		return nil, nil, fmt.Errorf("sidecar %s has no schema", id)
	}

	ds, err := decodeCSV(id, meta.Name, body)
	if err != nil {
		return nil, nil, err
	}
	ds.UploadedAt = meta.UploadedAt
	return ds, meta.Schema, nil
}

func (l *Local) dataPath(id string) string { return filepath.Join(l.dir, id+".csv") }
func (l *Local) metaPath(id string) string { return filepath.Join(l.dir, id+".schema.json") }
