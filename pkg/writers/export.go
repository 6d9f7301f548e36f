package writers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/TFMV/reconcile/pkg/core"
	"github.com/TFMV/reconcile/pkg/reconcile"
	"github.com/TFMV/reconcile/pkg/table"
)

var extensions = map[string]string{
	"parquet": ".parquet",
	"arrow":   ".arrow",
	"json":    ".json",
}

// Export writes the non-empty row sets of f to dir in the given format: legacy_only,
// cloud_only, mismatches and duplicates. It returns the written paths.
func Export(ctx context.Context, f *reconcile.Findings, dir, format string) ([]string, error) {
	ext, ok := extensions[format]
	if !ok {
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}

	type part struct {
		name string
		rows *table.Table
	}
	var parts []part
	if m, ok := f.Match(); ok {
		parts = append(parts, part{"legacy_only", m.LegacyOnly}, part{"cloud_only", m.CloudOnly})
	}
	parts = append(parts,
		part{"mismatches", f.Mismatches().Mismatched},
		part{"duplicates", f.Duplicates().Rows},
	)

	var written []string
	for _, p := range parts {
		if p.rows == nil || p.rows.NumRows() == 0 {
			continue
		}
		path := filepath.Join(dir, p.name+ext)
		if err := WriteTable(ctx, core.WriterConfig{Type: format, Path: path}, p.rows); err != nil {
			return written, fmt.Errorf("export %s: %w", p.name, err)
		}
		written = append(written, path)
	}
	return written, nil
}

// WriteTable writes t to a single file described by config.
func WriteTable(ctx context.Context, config core.WriterConfig, t *table.Table) error {
	w, err := DefaultFactory.Create(config)
	if err != nil {
		return err
	}
	if err := w.Write(ctx, t.Record()); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
