// Package core provides the reader and writer contracts shared by the loaders and
// exporters around the reconcile engine.
package core

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
)

// DatasetReader reads a dataset as a sequence of record batches.
type DatasetReader interface {
	// Read returns the next batch. The caller owns the record and must release it.
	// Returns io.EOF when there are no more batches.
	Read(ctx context.Context) (arrow.Record, error)

	// Schema returns the schema of the dataset.
	Schema() *arrow.Schema

	// Close closes the reader and releases resources.
	Close() error
}

// DatasetWriter writes record batches to a destination.
type DatasetWriter interface {
	// Write writes a record to the destination.
	Write(ctx context.Context, record arrow.Record) error

	// Close closes the writer and flushes any pending data.
	Close() error
}

// ReaderConfig provides configuration for creating a reader.
type ReaderConfig struct {
	// Type is the source type: csv, parquet, arrow, duckdb, postgres or mysql.
	Type string `mapstructure:"type" json:"type"`

	// Path is the path to a file, or to a DuckDB database.
	Path string `mapstructure:"path" json:"path,omitempty"`

	// ConnectionString is the DSN for a database source.
	ConnectionString string `mapstructure:"connection_string" json:"connection_string,omitempty"`

	// Table is the table to read from a database source.
	Table string `mapstructure:"table" json:"table,omitempty"`

	// Query overrides Table with an arbitrary query.
	Query string `mapstructure:"query" json:"query,omitempty"`

	// BatchSize is the number of rows per batch.
	BatchSize int64 `mapstructure:"batch_size" json:"batch_size,omitempty"`
}

// WriterConfig provides configuration for creating a writer.
type WriterConfig struct {
	// Type is the output format: parquet, arrow or json.
	Type string

	// Path is the output file.
	Path string
}
