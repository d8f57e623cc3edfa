package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

var (
	// ErrEmptyDataset is returned for uploads with a header but no data rows,
	// or no content at all.
	ErrEmptyDataset = errors.New("dataset is empty")
	// ErrNotTabular is returned when the upload cannot be read as CSV.
	ErrNotTabular = errors.New("upload is not tabular data")
)

// uploadDecoders are tried in order. The charmap decoders substitute a
// replacement rune for undefined bytes rather than failing, so decoding as a
// whole never rejects an upload on encoding grounds alone.
var uploadDecoders = []struct {
	name   string
	decode func([]byte) (string, error)
}{
	{"utf-8", func(b []byte) (string, error) {
		if !utf8.Valid(b) {
			return "", errors.New("invalid utf-8")
		}
		return string(b), nil
	}},
	{"iso-8859-1", decoderFor(charmap.ISO8859_1)},
	{"windows-1252", decoderFor(charmap.Windows1252)},
}

func decoderFor(enc encoding.Encoding) func([]byte) (string, error) {
	return func(b []byte) (string, error) {
		out, err := enc.NewDecoder().Bytes(b)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
}

// DecodeCSV parses an uploaded CSV body into a typed Dataset. Column typing
// is uniform: a column whose every non-empty cell parses as a number becomes
// numeric, everything else stays text. Empty cells become nulls.
func DecodeCSV(raw []byte) (*Dataset, error) {
	text, err := decodeText(raw)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotTabular, err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyDataset
	}

	header := records[0]
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	body := records[1:]
	if len(body) == 0 {
		return nil, ErrEmptyDataset
	}

	numeric := make([]bool, len(columns))
	for i := range columns {
		numeric[i] = columnIsNumeric(body, i)
	}

	rows := make([]Row, 0, len(body))
	for _, record := range body {
		row := make(Row, len(columns))
		for i, col := range columns {
			var cell string
			if i < len(record) {
				cell = strings.TrimSpace(record[i])
			}
			switch {
			case cell == "":
				row[col] = Null()
			case numeric[i]:
				f, _ := ParseNumber(cell)
				row[col] = Number(f)
			default:
				row[col] = String(cell)
			}
		}
		rows = append(rows, row)
	}

	return &Dataset{Columns: columns, Rows: rows}, nil
}

// decodeText attempts each upload encoding in order and returns the first
// clean decode.
func decodeText(raw []byte) (string, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", ErrEmptyDataset
	}
	for _, candidate := range uploadDecoders {
		if text, err := candidate.decode(raw); err == nil {
			return text, nil
		}
	}
	return "", ErrNotTabular
}

func columnIsNumeric(records [][]string, idx int) bool {
	seen := false
	for _, record := range records {
		if idx >= len(record) {
			continue
		}
		cell := strings.TrimSpace(record[idx])
		if cell == "" {
			continue
		}
		if _, ok := ParseNumber(cell); !ok {
			return false
		}
		seen = true
	}
	return seen
}
