package writers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"

	"github.com/TFMV/reconcile/pkg/core"
)

// ArrowWriter writes record batches to an Arrow IPC file.
type ArrowWriter struct {
	writer *ipc.FileWriter
	file   *os.File
}

// NewArrowWriter creates a new Arrow IPC writer. The schema is taken from the first record.
func NewArrowWriter(config core.WriterConfig) (core.DatasetWriter, error) {
	if config.Path == "" {
		return nil, errors.New("path is required for Arrow writer")
	}

	file, err := os.Create(config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create Arrow file: %w", err)
	}
	return &ArrowWriter{file: file}, nil
}

// Write writes a record to the file.
func (w *ArrowWriter) Write(ctx context.Context, record arrow.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if w.writer == nil {
		writer, err := ipc.NewFileWriter(w.file, ipc.WithSchema(record.Schema()))
		if err != nil {
			return fmt.Errorf("failed to create Arrow writer: %w", err)
		}
		w.writer = writer
	}

	if err := w.writer.Write(record); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

// Close finalizes the file footer and closes the file.
func (w *ArrowWriter) Close() error {
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
