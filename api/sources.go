package api

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/TFMV/reconcile/integrations"
	"github.com/TFMV/reconcile/pkg/core"
)

// ErrSourceNotAllowed is returned when a request names a source the server does not
// expose.
var ErrSourceNotAllowed = errors.New("source not allowed")

// DuckDB is listed with the network databases: its queries can read any local file.
var databaseTypes = map[string]bool{
	"duckdb":   true,
	"postgres": true,
	"mysql":    true,
}

var fileTypes = map[string]bool{
	"csv":     true,
	"parquet": true,
	"arrow":   true,
}

// sourcePolicy decides which request sources the server will open. Samples are
// always allowed. Files must resolve inside one of the roots. Databases need
// allowDatabases.
type sourcePolicy struct {
	roots          []string
	allowDatabases bool
}

func newSourcePolicy(roots []string, allowDatabases bool) sourcePolicy {
	p := sourcePolicy{allowDatabases: allowDatabases}
	for _, root := range roots {
		if root == "" {
			continue
		}
		p.roots = append(p.roots, resolvePath(root))
	}
	return p
}

// check returns ErrSourceNotAllowed for the first source of job outside the policy.
func (p sourcePolicy) check(job integrations.Job) error {
	if job.Sample != "" {
		return nil
	}
	if err := p.checkSource("legacy", job.Legacy); err != nil {
		return err
	}
	return p.checkSource("cloud", job.Cloud)
}

func (p sourcePolicy) checkSource(side string, src core.ReaderConfig) error {
	switch {
	case databaseTypes[src.Type]:
		if !p.allowDatabases {
			return fmt.Errorf("%w: %s %s sources are disabled on this server", ErrSourceNotAllowed, side, src.Type)
		}
		return nil
	case fileTypes[src.Type]:
		if src.Path == "" {
			// Rejected by source validation.
			return nil
		}
		path := resolvePath(src.Path)
		for _, root := range p.roots {
			if within(root, path) {
				return nil
			}
		}
		return fmt.Errorf("%w: %s path %q is outside the allowed roots", ErrSourceNotAllowed, side, src.Path)
	default:
		// Unknown types are rejected by source validation.
		return nil
	}
}

// resolvePath returns the absolute, symlink-free form of path when it exists and
// the cleaned absolute form otherwise.
func resolvePath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
