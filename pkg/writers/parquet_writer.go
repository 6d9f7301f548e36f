package writers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/TFMV/reconcile/pkg/core"
)

// ParquetWriter writes record batches to a Snappy-compressed Parquet file.
type ParquetWriter struct {
	writer *pqarrow.FileWriter
	file   *os.File
}

// NewParquetWriter creates a new Parquet writer. The schema is taken from the first record.
func NewParquetWriter(config core.WriterConfig) (core.DatasetWriter, error) {
	if config.Path == "" {
		return nil, errors.New("path is required for Parquet writer")
	}

	file, err := os.Create(config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create Parquet file: %w", err)
	}
	return &ParquetWriter{file: file}, nil
}

// Write writes a record to the file.
func (w *ParquetWriter) Write(ctx context.Context, record arrow.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if w.writer == nil {
		writeProps := parquet.NewWriterProperties(
			parquet.WithCompression(compress.Codecs.Snappy),
			parquet.WithDictionaryDefault(false),
		)
		writer, err := pqarrow.NewFileWriter(record.Schema(), w.file, writeProps, pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()))
		if err != nil {
			return fmt.Errorf("failed to create Parquet writer: %w", err)
		}
		w.writer = writer
	}

	if err := w.writer.Write(record); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

// Close flushes the footer and closes the file.
func (w *ParquetWriter) Close() error {
	var err error
	if w.writer != nil {
		err = w.writer.Close()
		w.writer = nil
	}
	if w.file != nil {
		err = closeFile(w.file, err)
		w.file = nil
	}
	return err
}
