// Package readers provides dataset readers for the sources a reconciliation job can
// load: CSV, Parquet and Arrow IPC files, DuckDB through ADBC, and Postgres or MySQL
// through database/sql.
package readers

import (
	"fmt"
	"sort"

	"github.com/TFMV/reconcile/pkg/core"
)

// Factory creates a reader based on the given configuration.
type Factory struct {
	readers map[string]Creator
}

// Creator is a function that creates a reader from a configuration.
type Creator func(config core.ReaderConfig) (core.DatasetReader, error)

// NewFactory creates a new reader factory.
func NewFactory() *Factory {
	return &Factory{
		readers: make(map[string]Creator),
	}
}

// Register registers a creator for a reader type.
func (f *Factory) Register(typ string, creator Creator) {
	f.readers[typ] = creator
}

// Create creates a reader based on the given configuration.
func (f *Factory) Create(config core.ReaderConfig) (core.DatasetReader, error) {
	creator, ok := f.readers[config.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported reader type: %s", config.Type)
	}
	return creator(config)
}

// Types returns the registered reader types.
func (f *Factory) Types() []string {
	types := make([]string, 0, len(f.readers))
	for t := range f.readers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// DefaultFactory is the default reader factory with built-in reader types.
var DefaultFactory = NewFactory()

func init() {
	DefaultFactory.Register("csv", NewCSVReader)
	DefaultFactory.Register("parquet", NewParquetReader)
	DefaultFactory.Register("arrow", NewArrowReader)
	DefaultFactory.Register("duckdb", NewDuckDBReader)
	DefaultFactory.Register("postgres", NewSQLReader)
	DefaultFactory.Register("mysql", NewSQLReader)
}

func batchSize(config core.ReaderConfig) int64 {
	if config.BatchSize <= 0 {
		return 10000
	}
	return config.BatchSize
}
