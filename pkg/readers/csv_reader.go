package readers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/TFMV/reconcile/pkg/core"
)

// CSVReader reads a CSV file with a header row, inferring column types.
type CSVReader struct {
	file   *os.File
	reader *csv.Reader
	// first holds the batch read early to resolve the schema.
	first arrow.Record
}

// NewCSVReader creates a new CSV reader. Empty fields are read as nulls.
func NewCSVReader(config core.ReaderConfig) (core.DatasetReader, error) {
	if config.Path == "" {
		return nil, errors.New("path is required for CSV reader")
	}

	file, err := os.Open(config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}

	reader := csv.NewInferringReader(
		file,
		csv.WithChunk(int(batchSize(config))),
		csv.WithHeader(true),
		csv.WithNullReader(true, ""),
		csv.WithAllocator(memory.NewGoAllocator()),
	)

	return &CSVReader{file: file, reader: reader}, nil
}

// Read returns the next batch of records.
func (r *CSVReader) Read(ctx context.Context) (arrow.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if r.first != nil {
		rec := r.first
		r.first = nil
		return rec, nil
	}

	if !r.reader.Next() {
		if err := r.reader.Err(); err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		return nil, io.EOF
	}

	rec := r.reader.Record()
	rec.Retain()
	return rec, nil
}

// Schema returns the inferred schema, reading the first batch if needed. It is nil
// for an empty file.
func (r *CSVReader) Schema() *arrow.Schema {
	if s := r.reader.Schema(); s != nil {
		return s
	}
	if r.reader.Next() {
		r.first = r.reader.Record()
		r.first.Retain()
	}
	return r.reader.Schema()
}

// Close closes the reader and releases resources.
func (r *CSVReader) Close() error {
	if r.first != nil {
		r.first.Release()
		r.first = nil
	}
	if r.reader != nil {
		r.reader.Release()
		r.reader = nil
	}
	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		return err
	}
	return nil
}
