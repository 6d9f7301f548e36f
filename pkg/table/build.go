package table

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Build creates a table from row literals. A nil cell is a null. Supported column
// types are int32, int64, float64, string, bool, date32 and timestamp; integer cells
// may be any Go integer, date and timestamp cells are time.Time.
func Build(mem memory.Allocator, schema *arrow.Schema, rows [][]any) (*Table, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	rb := array.NewRecordBuilder(mem, schema)
	defer rb.Release()

	for r, row := range rows {
		if len(row) != schema.NumFields() {
			return nil, fmt.Errorf("row %d has %d cells, schema has %d fields", r, len(row), schema.NumFields())
		}
		for c, cell := range row {
			if err := appendValue(rb.Field(c), schema.Field(c).Type, cell); err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", r, schema.Field(c).Name, err)
			}
		}
	}

	rec := rb.NewRecord()
	defer rec.Release()
	return New(rec)
}

// MustBuild is like Build but panics on error. It is meant for fixtures.
func MustBuild(mem memory.Allocator, schema *arrow.Schema, rows [][]any) *Table {
	t, err := Build(mem, schema, rows)
	if err != nil {
		panic(err)
	}
	return t
}

func appendValue(b array.Builder, dt arrow.DataType, v any) error {
	if v == nil {
		b.AppendNull()
		return nil
	}

	switch b := b.(type) {
	case *array.Int64Builder:
		n, err := toInt64(v)
		if err != nil {
			return err
		}
		b.Append(n)
	case *array.Int32Builder:
		n, err := toInt64(v)
		if err != nil {
			return err
		}
		b.Append(int32(n))
	case *array.Float64Builder:
		switch f := v.(type) {
		case float64:
			b.Append(f)
		case float32:
			b.Append(float64(f))
		default:
			n, err := toInt64(v)
			if err != nil {
				return err
			}
			b.Append(float64(n))
		}
	case *array.StringBuilder:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
		b.Append(s)
	case *array.BooleanBuilder:
		x, ok := v.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", v)
		}
		b.Append(x)
	case *array.Date32Builder:
		t, ok := v.(time.Time)
		if !ok {
			return fmt.Errorf("expected time.Time, got %T", v)
		}
		b.Append(arrow.Date32FromTime(t))
	case *array.TimestampBuilder:
		t, ok := v.(time.Time)
		if !ok {
			return fmt.Errorf("expected time.Time, got %T", v)
		}
		ts, err := arrow.TimestampFromTime(t, dt.(*arrow.TimestampType).Unit)
		if err != nil {
			return err
		}
		b.Append(ts)
	default:
		return fmt.Errorf("unsupported column type %s", dt)
	}
	return nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}
