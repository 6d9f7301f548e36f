package readers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/apache/arrow-adbc/go/adbc"
	"github.com/apache/arrow-adbc/go/adbc/drivermgr"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/TFMV/reconcile/pkg/core"
)

// DuckDBDriverEnv names the environment variable that overrides the location of the
// DuckDB shared library.
const DuckDBDriverEnv = "RECONCILE_DUCKDB_DRIVER"

// DuckDBReader runs a query against DuckDB through the ADBC driver manager and
// streams the Arrow result.
type DuckDBReader struct {
	db     adbc.Database
	conn   adbc.Connection
	stmt   adbc.Statement
	result array.RecordReader
	query  string
}

// DuckDBDriverPath returns the DuckDB shared library to load.
func DuckDBDriverPath() string {
	if p := os.Getenv(DuckDBDriverEnv); p != "" {
		return p
	}
	switch runtime.GOOS {
	case "darwin":
		return "/usr/local/lib/libduckdb.dylib"
	case "windows":
		return "duckdb.dll"
	default:
		return "/usr/local/lib/libduckdb.so"
	}
}

// NewDuckDBReader opens the database at config.Path (in-memory when empty) and
// prepares config.Query, or a full scan of config.Table.
func NewDuckDBReader(config core.ReaderConfig) (core.DatasetReader, error) {
	query, err := sourceQuery(config)
	if err != nil {
		return nil, err
	}

	opts := map[string]string{
		"driver":     DuckDBDriverPath(),
		"entrypoint": "duckdb_adbc_init",
	}
	if config.Path != "" {
		opts["path"] = config.Path
	}

	var drv drivermgr.Driver
	db, err := drv.NewDatabase(opts)
	if err != nil {
		return nil, fmt.Errorf("error creating DuckDB database: %w", err)
	}

	return &DuckDBReader{db: db, query: query}, nil
}

func sourceQuery(config core.ReaderConfig) (string, error) {
	switch {
	case config.Query != "":
		return config.Query, nil
	case config.Table != "":
		return fmt.Sprintf("SELECT * FROM %s", config.Table), nil
	default:
		return "", errors.New("either query or table is required for a database source")
	}
}

func (r *DuckDBReader) execute(ctx context.Context) error {
	conn, err := r.db.Open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open connection: %w", err)
	}
	r.conn = conn

	stmt, err := conn.NewStatement()
	if err != nil {
		return fmt.Errorf("failed to create statement: %w", err)
	}
	r.stmt = stmt

	if err := stmt.SetSqlQuery(r.query); err != nil {
		return fmt.Errorf("failed to set SQL query: %w", err)
	}
	rr, _, err := stmt.ExecuteQuery(ctx)
	if err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}
	r.result = rr
	return nil
}

// Read returns the next batch of records.
func (r *DuckDBReader) Read(ctx context.Context) (arrow.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.result == nil {
		if err := r.execute(ctx); err != nil {
			return nil, err
		}
	}
	if !r.result.Next() {
		if err := r.result.Err(); err != nil {
			return nil, fmt.Errorf("failed to read DuckDB result: %w", err)
		}
		return nil, io.EOF
	}
	rec := r.result.Record()
	rec.Retain()
	return rec, nil
}

// Schema returns the result schema, running the query if it has not run yet.
func (r *DuckDBReader) Schema() *arrow.Schema {
	if r.result == nil {
		if err := r.execute(context.Background()); err != nil {
			return nil
		}
	}
	return r.result.Schema()
}

// Close closes the reader and releases resources.
func (r *DuckDBReader) Close() error {
	if r.result != nil {
		r.result.Release()
		r.result = nil
	}
	var errs []error
	if r.stmt != nil {
		errs = append(errs, r.stmt.Close())
		r.stmt = nil
	}
	if r.conn != nil {
		errs = append(errs, r.conn.Close())
		r.conn = nil
	}
	if r.db != nil {
		errs = append(errs, r.db.Close())
		r.db = nil
	}
	return errors.Join(errs...)
}
