package readers

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/TFMV/reconcile/pkg/core"
	"github.com/TFMV/reconcile/pkg/table"
)

// LoadTable creates a reader for config with the default factory and materializes
// the whole dataset as one table.
func LoadTable(ctx context.Context, config core.ReaderConfig) (*table.Table, error) {
	reader, err := DefaultFactory.Create(config)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	t, err := ReadTable(ctx, reader)
	if err != nil {
		return nil, fmt.Errorf("load %s source: %w", config.Type, err)
	}
	return t, nil
}

// ReadTable drains reader and concatenates its batches into one table.
func ReadTable(ctx context.Context, reader core.DatasetReader) (*table.Table, error) {
	var batches []arrow.Record
	defer func() {
		for _, b := range batches {
			b.Release()
		}
	}()

	for {
		rec, err := reader.Read(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		batches = append(batches, rec)
	}

	schema := reader.Schema()
	if len(batches) > 0 {
		schema = batches[0].Schema()
	}
	if schema == nil {
		return nil, errors.New("source has no schema")
	}

	rec, err := concatRecords(memory.DefaultAllocator, schema, batches)
	if err != nil {
		return nil, err
	}
	defer rec.Release()
	return table.New(rec)
}

func concatRecords(mem memory.Allocator, schema *arrow.Schema, batches []arrow.Record) (arrow.Record, error) {
	if len(batches) == 1 {
		batches[0].Retain()
		return batches[0], nil
	}

	cols := make([]arrow.Array, schema.NumFields())
	defer func() {
		for _, c := range cols {
			if c != nil {
				c.Release()
			}
		}
	}()

	var rows int64
	for _, b := range batches {
		rows += b.NumRows()
	}
	for i, f := range schema.Fields() {
		if len(batches) == 0 {
			cols[i] = array.MakeArrayOfNull(mem, f.Type, 0)
			continue
		}
		parts := make([]arrow.Array, len(batches))
		for j, b := range batches {
			parts[j] = b.Column(i)
		}
		col, err := array.Concatenate(parts, mem)
		if err != nil {
			return nil, fmt.Errorf("concatenate column %q: %w", f.Name, err)
		}
		cols[i] = col
	}
	return array.NewRecord(schema, cols, rows), nil
}
