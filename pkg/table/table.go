// Package table provides the in-memory columnar table the reconciliation engine works on.
// A Table is a thin, read-only view over a single Apache Arrow record plus the few
// relational primitives the engine needs: row selection, a full outer join that tags
// every output row with its provenance, and a stable duplicate scan.
package table

import (
	"context"
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/compute"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// ErrMalformed is returned when a record cannot back a Table.
var ErrMalformed = errors.New("malformed table")

// Side identifies which input dataset a column or row came from.
type Side int

const (
	Legacy Side = iota
	Cloud
)

func (s Side) String() string {
	switch s {
	case Legacy:
		return "legacy"
	case Cloud:
		return "cloud"
	default:
		return fmt.Sprintf("side(%d)", int(s))
	}
}

// Table is an immutable columnar table with named, typed columns and ordered rows.
type Table struct {
	rec   arrow.Record
	index map[string]int
}

// New wraps rec in a Table. The record is retained; call Release when done.
func New(rec arrow.Record) (*Table, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: nil record", ErrMalformed)
	}
	if rec.Schema() == nil {
		return nil, fmt.Errorf("%w: record has no schema", ErrMalformed)
	}
	if int(rec.NumCols()) != rec.Schema().NumFields() {
		return nil, fmt.Errorf("%w: %d columns for %d schema fields", ErrMalformed, rec.NumCols(), rec.Schema().NumFields())
	}

	index := make(map[string]int, rec.NumCols())
	for i, field := range rec.Schema().Fields() {
		col := rec.Column(i)
		if int64(col.Len()) != rec.NumRows() {
			return nil, fmt.Errorf("%w: column %q has %d rows, expected %d", ErrMalformed, field.Name, col.Len(), rec.NumRows())
		}
		if _, dup := index[field.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate column name %q", ErrMalformed, field.Name)
		}
		index[field.Name] = i
	}

	rec.Retain()
	return &Table{rec: rec, index: index}, nil
}

// Record returns the backing record. It is owned by the table.
func (t *Table) Record() arrow.Record {
	return t.rec
}

// Schema returns the Arrow schema of the table.
func (t *Table) Schema() *arrow.Schema {
	return t.rec.Schema()
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	return int(t.rec.NumRows())
}

// ColumnNames returns column names in schema order.
func (t *Table) ColumnNames() []string {
	names := make([]string, 0, t.rec.NumCols())
	for _, field := range t.rec.Schema().Fields() {
		names = append(names, field.Name)
	}
	return names
}

// HasColumn reports whether the table has a column called name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the column called name.
func (t *Table) Column(name string) (arrow.Array, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.rec.Column(i), true
}

// DataType returns the declared element type of the column called name.
func (t *Table) DataType(name string) (arrow.DataType, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.rec.Schema().Field(i).Type, true
}

// Release releases the backing record.
func (t *Table) Release() {
	if t != nil && t.rec != nil {
		t.rec.Release()
		t.rec = nil
	}
}

// Take returns a new table holding the given rows in the given order.
// An index of -1 produces an all-null row.
func (t *Table) Take(ctx context.Context, indices []int) (*Table, error) {
	mem := compute.GetAllocator(ctx)
	cols := make([]arrow.Array, t.rec.NumCols())
	defer func() {
		for _, c := range cols {
			if c != nil {
				c.Release()
			}
		}
	}()

	for i, col := range t.rec.Columns() {
		taken, err := takeColumn(ctx, mem, col, indices)
		if err != nil {
			return nil, fmt.Errorf("take column %q: %w", t.rec.ColumnName(i), err)
		}
		cols[i] = taken
	}

	rec := array.NewRecord(t.rec.Schema(), cols, int64(len(indices)))
	defer rec.Release()
	return New(rec)
}

// takeColumn selects rows of col by position. Missing rows (-1) are served from a
// single null slot appended to the values, so every index handed to the kernel is valid.
func takeColumn(ctx context.Context, mem memory.Allocator, col arrow.Array, indices []int) (arrow.Array, error) {
	values := col
	values.Retain()
	nullSlot := int64(col.Len())

	for _, idx := range indices {
		if idx < 0 {
			nulls := array.MakeArrayOfNull(mem, col.DataType(), 1)
			joined, err := array.Concatenate([]arrow.Array{col, nulls}, mem)
			nulls.Release()
			if err != nil {
				values.Release()
				return nil, err
			}
			values.Release()
			values = joined
			break
		}
	}
	defer values.Release()

	positions := make([]int64, len(indices))
	for i, idx := range indices {
		if idx < 0 {
			positions[i] = nullSlot
		} else {
			positions[i] = int64(idx)
		}
	}
	return takePositions(ctx, mem, values, positions)
}

func takePositions(ctx context.Context, mem memory.Allocator, values arrow.Array, positions []int64) (arrow.Array, error) {
	b := array.NewInt64Builder(mem)
	defer b.Release()
	b.AppendValues(positions, nil)
	idx := b.NewArray()
	defer idx.Release()

	return compute.TakeArray(compute.WithAllocator(ctx, mem), values, idx)
}
