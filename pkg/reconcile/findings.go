package reconcile

import (
	"sync/atomic"

	"github.com/TFMV/reconcile/pkg/table"
)

// RowCounts holds both tables' row counts and their signed differences.
type RowCounts struct {
	Legacy int `json:"legacy"`
	Cloud  int `json:"cloud"`
	// LegacyDifference is Legacy - Cloud.
	LegacyDifference int `json:"legacy_difference"`
	// CloudDifference is Cloud - Legacy.
	CloudDifference int `json:"cloud_difference"`
}

// CountRows returns the row counts of both tables.
func CountRows(legacy, cloud *table.Table) RowCounts {
	l, c := legacy.NumRows(), cloud.NumRows()
	return RowCounts{
		Legacy:           l,
		Cloud:            c,
		LegacyDifference: l - c,
		CloudDifference:  c - l,
	}
}

// Findings is the immutable result of one comparison. It is reference counted like
// Arrow arrays: every holder calls Release once, and the row data is freed when the
// last reference is released.
type Findings struct {
	refs atomic.Int64

	keys       KeySpec
	schema     SchemaDiff
	rows       RowCounts
	match      *MatchResult
	mismatches MismatchReport
	duplicates DuplicateReport
	warnings   []Warning
}

// Keys returns the key specification the comparison ran with.
func (f *Findings) Keys() KeySpec { return f.keys }

// Schema returns the schema diff. Its maps and slices must not be modified.
func (f *Findings) Schema() SchemaDiff { return f.schema }

// RowCounts returns both row counts and their differences.
func (f *Findings) RowCounts() RowCounts { return f.rows }

// Match returns the row partitions, or false when rows were not matched
// because the join keys have different types.
func (f *Findings) Match() (*MatchResult, bool) { return f.match, f.match != nil }

// Mismatches returns the value mismatch report.
func (f *Findings) Mismatches() MismatchReport { return f.mismatches }

// Duplicates returns the duplicate report.
func (f *Findings) Duplicates() DuplicateReport { return f.duplicates }

// Warnings returns the non-fatal conditions recorded during the comparison.
func (f *Findings) Warnings() []Warning {
	return append([]Warning(nil), f.warnings...)
}

// HasWarning reports whether a warning of the given kind was recorded.
func (f *Findings) HasWarning(kind WarningKind) bool {
	for _, w := range f.warnings {
		if w.Kind == kind {
			return true
		}
	}
	return false
}

func newFindings(keys KeySpec) *Findings {
	f := &Findings{keys: keys}
	f.refs.Store(1)
	return f
}

// Retain adds a reference to the findings.
func (f *Findings) Retain() {
	f.refs.Add(1)
}

// Release drops a reference and frees the Arrow memory held by the findings when
// no references remain.
func (f *Findings) Release() {
	if f == nil || f.refs.Add(-1) != 0 {
		return
	}
	f.match.Release()
	f.mismatches.Release()
	f.duplicates.Release()
}

// DuplicateSummary is the count-only view of a DuplicateReport.
type DuplicateSummary struct {
	Matched int             `json:"matched"`
	Legacy  int             `json:"legacy"`
	Cloud   int             `json:"cloud"`
	Source  DuplicateSource `json:"source"`
}

// Summary is a plain, serializable snapshot of Findings without row data.
type Summary struct {
	Keys             string           `json:"keys"`
	Schema           SchemaDiff       `json:"schema"`
	RowCounts        RowCounts        `json:"row_counts"`
	RowsMatched      bool             `json:"rows_matched"`
	LegacyOnlyRows   int              `json:"legacy_only_rows"`
	CloudOnlyRows    int              `json:"cloud_only_rows"`
	MatchedRows      int              `json:"matched_rows"`
	ComparedColumns  []string         `json:"compared_columns"`
	ColumnMismatches map[string]int   `json:"column_mismatches"`
	MismatchedValues int              `json:"mismatched_values"`
	MismatchedRows   int              `json:"mismatched_rows"`
	Duplicates       DuplicateSummary `json:"duplicates"`
	Warnings         []Warning        `json:"warnings"`
}

// Summary returns a snapshot of the findings.
func (f *Findings) Summary() Summary {
	s := Summary{
		Keys:             f.keys.String(),
		Schema:           f.schema,
		RowCounts:        f.rows,
		RowsMatched:      f.match != nil,
		ComparedColumns:  f.mismatches.Columns,
		ColumnMismatches: f.mismatches.ColumnCounts,
		MismatchedValues: f.mismatches.Total,
		MismatchedRows:   len(f.mismatches.MismatchedRows),
		Duplicates: DuplicateSummary{
			Matched: f.duplicates.MatchedCount,
			Legacy:  f.duplicates.LegacyCount,
			Cloud:   f.duplicates.CloudCount,
			Source:  f.duplicates.Source,
		},
		Warnings: f.Warnings(),
	}
	if f.match != nil {
		s.LegacyOnlyRows = f.match.LegacyOnly.NumRows()
		s.CloudOnlyRows = f.match.CloudOnly.NumRows()
		s.MatchedRows = f.match.Matched.NumRows()
	}
	if s.ComparedColumns == nil {
		s.ComparedColumns = []string{}
	}
	if s.Warnings == nil {
		s.Warnings = []Warning{}
	}
	return s
}
