package writers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/TFMV/reconcile/pkg/core"
)

// JSONWriter writes records as a JSON array of row objects.
type JSONWriter struct {
	file     *os.File
	encoder  *json.Encoder
	firstRow bool
}

// NewJSONWriter creates a new JSON writer.
func NewJSONWriter(config core.WriterConfig) (core.DatasetWriter, error) {
	if config.Path == "" {
		return nil, errors.New("path is required for JSON writer")
	}

	file, err := os.Create(config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create JSON file: %w", err)
	}
	if _, err := file.WriteString("[\n"); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write opening bracket: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("  ", "  ")
	return &JSONWriter{file: file, encoder: encoder, firstRow: true}, nil
}

// RecordRows converts every row of record into a column name to value map. Values
// use the same representation Arrow uses for JSON, nulls become nil.
func RecordRows(record arrow.Record) []map[string]any {
	rows := make([]map[string]any, record.NumRows())
	for i := range rows {
		row := make(map[string]any, record.NumCols())
		for j, col := range record.Columns() {
			row[record.Schema().Field(j).Name] = col.GetOneForMarshal(i)
		}
		rows[i] = row
	}
	return rows
}

// Write appends every row of record to the array.
func (w *JSONWriter) Write(ctx context.Context, record arrow.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, row := range RecordRows(record) {
		if !w.firstRow {
			if _, err := w.file.WriteString(",\n"); err != nil {
				return fmt.Errorf("failed to write comma: %w", err)
			}
		}
		w.firstRow = false

		if err := w.encoder.Encode(row); err != nil {
			return fmt.Errorf("failed to encode row: %w", err)
		}
	}
	return nil
}

// Close closes the array and the file.
func (w *JSONWriter) Close() error {
	if w.file == nil {
		return nil
	}
	_, err := w.file.WriteString("\n]")
	err = closeFile(w.file, err)
	w.file = nil
	return err
}
