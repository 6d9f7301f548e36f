package readers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/TFMV/reconcile/pkg/core"
)

// ParquetReader reads a Parquet file batch by batch.
type ParquetReader struct {
	schema      *arrow.Schema
	fileReader  *file.Reader
	arrowReader *pqarrow.FileReader
	records     pqarrow.RecordReader
	file        *os.File
}

// NewParquetReader creates a new Parquet reader.
func NewParquetReader(config core.ReaderConfig) (core.DatasetReader, error) {
	if config.Path == "" {
		return nil, errors.New("path is required for Parquet reader")
	}

	f, err := os.Open(config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Parquet file: %w", err)
	}

	parquetReader, err := file.NewParquetReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create Parquet file reader: %w", err)
	}

	arrowProps := pqarrow.ArrowReadProperties{
		Parallel:  true,
		BatchSize: batchSize(config),
	}
	arrowReader, err := pqarrow.NewFileReader(parquetReader, arrowProps, memory.NewGoAllocator())
	if err != nil {
		parquetReader.Close()
		f.Close()
		return nil, fmt.Errorf("failed to create Arrow reader: %w", err)
	}

	schema, err := arrowReader.Schema()
	if err != nil {
		parquetReader.Close()
		f.Close()
		return nil, fmt.Errorf("failed to get schema: %w", err)
	}

	return &ParquetReader{
		schema:      schema,
		fileReader:  parquetReader,
		arrowReader: arrowReader,
		file:        f,
	}, nil
}

// Read returns the next batch of records.
func (r *ParquetReader) Read(ctx context.Context) (arrow.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if r.records == nil {
		rr, err := r.arrowReader.GetRecordReader(ctx, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create record reader: %w", err)
		}
		r.records = rr
	}

	if !r.records.Next() {
		if err := r.records.Err(); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read Parquet batch: %w", err)
		}
		return nil, io.EOF
	}
	rec := r.records.Record()
	rec.Retain()
	return rec, nil
}

// Schema returns the schema of the dataset.
func (r *ParquetReader) Schema() *arrow.Schema {
	return r.schema
}

// Close closes the reader and releases resources.
func (r *ParquetReader) Close() error {
	if r.records != nil {
		r.records.Release()
		r.records = nil
	}

	var err error
	if r.fileReader != nil {
		err = r.fileReader.Close()
		r.fileReader = nil
	}
	if r.file != nil {
		if cerr := r.file.Close(); cerr != nil && err == nil {
			err = cerr
		}
		r.file = nil
	}
	return err
}
