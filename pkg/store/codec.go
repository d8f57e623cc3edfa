package store

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/insightlabs/compass/pkg/dataset"
)

// encodeCSV renders a dataset back to CSV for the local and durable tiers.
// Cells round-trip through the same typed decode used at upload, so a
// restored dataset carries the same column types and labels.
func encodeCSV(ds *dataset.Dataset) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(ds.Columns); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	record := make([]string, len(ds.Columns))
	for _, row := range ds.Rows {
		for i, col := range ds.Columns {
			record[i] = row[col].Label()
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeCSV restores a persisted dataset body.
func decodeCSV(id, name string, body []byte) (*dataset.Dataset, error) {
	ds, err := dataset.DecodeCSV(body)
	if err != nil {
		return nil, fmt.Errorf("decode persisted dataset %s: %w", id, err)
	}
	ds.ID = id
	ds.Name = name
	return ds, nil
}
