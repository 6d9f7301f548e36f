// Package writers exports Arrow record batches to Parquet, Arrow IPC and JSON files.
package writers

import (
	"errors"
	"fmt"
	"os"

	"github.com/TFMV/reconcile/pkg/core"
)

// Factory creates a writer based on the given configuration.
type Factory struct {
	writers map[string]Creator
}

// Creator is a function that creates a writer from a configuration.
type Creator func(config core.WriterConfig) (core.DatasetWriter, error)

// NewFactory creates a new writer factory.
func NewFactory() *Factory {
	return &Factory{
		writers: make(map[string]Creator),
	}
}

// Register registers a creator for a writer type.
func (f *Factory) Register(typ string, creator Creator) {
	f.writers[typ] = creator
}

// Create creates a writer based on the given configuration.
func (f *Factory) Create(config core.WriterConfig) (core.DatasetWriter, error) {
	creator, ok := f.writers[config.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported writer type: %s", config.Type)
	}
	return creator(config)
}

// DefaultFactory is the default writer factory with built-in writer types.
var DefaultFactory = NewFactory()

func init() {
	DefaultFactory.Register("parquet", NewParquetWriter)
	DefaultFactory.Register("arrow", NewArrowWriter)
	DefaultFactory.Register("json", NewJSONWriter)
}

// closeFile closes f, tolerating a file the format writer already closed.
func closeFile(f *os.File, err error) error {
	if cerr := f.Close(); cerr != nil && !errors.Is(cerr, os.ErrClosed) && err == nil {
		return cerr
	}
	return err
}
