package readers

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/TFMV/reconcile/pkg/core"
)

// SQLReader streams the result of a query through database/sql as Arrow batches.
type SQLReader struct {
	db        *sql.DB
	ownsDB    bool
	query     string
	batchSize int64
	alloc     memory.Allocator
	rows      *sql.Rows
	schema    *arrow.Schema
	done      bool
}

var sqlDrivers = map[string]string{
	"postgres": "postgres",
	"mysql":    "mysql",
}

// NewSQLReader opens config.ConnectionString with the driver named by config.Type.
func NewSQLReader(config core.ReaderConfig) (core.DatasetReader, error) {
	driver, ok := sqlDrivers[config.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported SQL source type: %s", config.Type)
	}
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required for %s reader", config.Type)
	}
	query, err := sourceQuery(config)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", config.Type, err)
	}
	r := NewSQLReaderFromDB(db, query, config.BatchSize)
	r.ownsDB = true
	return r, nil
}

// NewSQLReaderFromDB reads query from an existing handle. Close leaves db open.
func NewSQLReaderFromDB(db *sql.DB, query string, batch int64) *SQLReader {
	return &SQLReader{
		db:        db,
		query:     query,
		batchSize: batchSize(core.ReaderConfig{BatchSize: batch}),
		alloc:     memory.NewGoAllocator(),
	}
}

func (r *SQLReader) open(ctx context.Context) error {
	rows, err := r.db.QueryContext(ctx, r.query)
	if err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		rows.Close()
		return fmt.Errorf("failed to get column types: %w", err)
	}

	fields := make([]arrow.Field, len(types))
	for i, ct := range types {
		fields[i] = arrow.Field{Name: ct.Name(), Type: sqlTypeToArrowType(ct.DatabaseTypeName()), Nullable: true}
	}
	r.rows = rows
	r.schema = arrow.NewSchema(fields, nil)
	return nil
}

// sqlTypeToArrowType maps Postgres and MySQL column type names to Arrow types.
// Unknown types are read as strings.
func sqlTypeToArrowType(name string) arrow.DataType {
	switch strings.ToUpper(name) {
	case "INT8", "BIGINT", "INT4", "INT", "INTEGER", "MEDIUMINT", "INT2", "SMALLINT", "TINYINT", "SERIAL", "BIGSERIAL":
		return arrow.PrimitiveTypes.Int64
	case "FLOAT4", "REAL", "FLOAT", "FLOAT8", "DOUBLE", "NUMERIC", "DECIMAL":
		return arrow.PrimitiveTypes.Float64
	case "BOOL", "BOOLEAN":
		return arrow.FixedWidthTypes.Boolean
	case "DATE":
		return arrow.FixedWidthTypes.Date32
	case "TIMESTAMP", "TIMESTAMPTZ", "DATETIME":
		return arrow.FixedWidthTypes.Timestamp_us
	default:
		return arrow.BinaryTypes.String
	}
}

// Read returns the next batch of up to the configured batch size rows.
func (r *SQLReader) Read(ctx context.Context) (arrow.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.done {
		return nil, io.EOF
	}
	if r.rows == nil {
		if err := r.open(ctx); err != nil {
			return nil, err
		}
	}

	rb := array.NewRecordBuilder(r.alloc, r.schema)
	defer rb.Release()

	values := make([]any, len(r.schema.Fields()))
	scan := make([]any, len(values))
	for i := range values {
		scan[i] = &values[i]
	}

	var n int64
	for n < r.batchSize && r.rows.Next() {
		if err := r.rows.Scan(scan...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			if err := appendSQLValue(rb.Field(i), v); err != nil {
				return nil, fmt.Errorf("column %q: %w", r.schema.Field(i).Name, err)
			}
		}
		n++
	}
	if n < r.batchSize {
		r.done = true
		if err := r.rows.Err(); err != nil {
			return nil, fmt.Errorf("error iterating rows: %w", err)
		}
	}
	if n == 0 {
		return nil, io.EOF
	}
	return rb.NewRecord(), nil
}

func appendSQLValue(b array.Builder, v any) error {
	if v == nil {
		b.AppendNull()
		return nil
	}
	if raw, ok := v.([]byte); ok {
		v = string(raw)
	}

	switch b := b.(type) {
	case *array.Int64Builder:
		switch x := v.(type) {
		case int64:
			b.Append(x)
		case string:
			n, err := strconv.ParseInt(x, 10, 64)
			if err != nil {
				return err
			}
			b.Append(n)
		default:
			return fmt.Errorf("unexpected %T for integer column", v)
		}
	case *array.Float64Builder:
		switch x := v.(type) {
		case float64:
			b.Append(x)
		case float32:
			b.Append(float64(x))
		case int64:
			b.Append(float64(x))
		case string:
			f, err := strconv.ParseFloat(x, 64)
			if err != nil {
				return err
			}
			b.Append(f)
		default:
			return fmt.Errorf("unexpected %T for float column", v)
		}
	case *array.BooleanBuilder:
		switch x := v.(type) {
		case bool:
			b.Append(x)
		case int64:
			b.Append(x != 0)
		case string:
			p, err := strconv.ParseBool(x)
			if err != nil {
				return err
			}
			b.Append(p)
		default:
			return fmt.Errorf("unexpected %T for boolean column", v)
		}
	case *array.Date32Builder:
		t, ok := v.(time.Time)
		if !ok {
			return fmt.Errorf("unexpected %T for date column", v)
		}
		b.Append(arrow.Date32FromTime(t))
	case *array.TimestampBuilder:
		t, ok := v.(time.Time)
		if !ok {
			return fmt.Errorf("unexpected %T for timestamp column", v)
		}
		ts, err := arrow.TimestampFromTime(t, arrow.Microsecond)
		if err != nil {
			return err
		}
		b.Append(ts)
	case *array.StringBuilder:
		switch x := v.(type) {
		case string:
			b.Append(x)
		case time.Time:
			b.Append(x.Format(time.RFC3339Nano))
		default:
			b.Append(fmt.Sprint(x))
		}
	default:
		return fmt.Errorf("unsupported builder %T", b)
	}
	return nil
}

// Schema returns the result schema, running the query if it has not run yet.
func (r *SQLReader) Schema() *arrow.Schema {
	if r.schema == nil && !r.done {
		if err := r.open(context.Background()); err != nil {
			return nil
		}
	}
	return r.schema
}

// Close closes the result set and, when the reader opened it, the database.
func (r *SQLReader) Close() error {
	var err error
	if r.rows != nil {
		err = r.rows.Close()
		r.rows = nil
	}
	if r.ownsDB && r.db != nil {
		if cerr := r.db.Close(); cerr != nil && err == nil {
			err = cerr
		}
		r.db = nil
	}
	r.done = true
	return err
}
