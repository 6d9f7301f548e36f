package reconcile

import (
	"context"
	"fmt"

	"github.com/TFMV/reconcile/pkg/table"
)

// DuplicateSource attributes duplicates for reporting. It never changes the counts.
type DuplicateSource string

const (
	DuplicatesNone    DuplicateSource = "none"
	DuplicatesLegacy  DuplicateSource = "legacy"
	DuplicatesCloud   DuplicateSource = "cloud"
	DuplicatesBoth    DuplicateSource = "both"
	DuplicatesMatched DuplicateSource = "matched-data"
)

// DuplicateReport flags rows that repeat an earlier row in the same scope.
type DuplicateReport struct {
	// Matched is over the matched partition; nil when rows were not matched.
	Matched []bool
	Legacy  []bool
	Cloud   []bool

	MatchedCount int
	LegacyCount  int
	CloudCount   int

	Source DuplicateSource
	// Rows holds the duplicate rows of the matched partition, nil when there are none.
	Rows *table.Table
}

// Release releases the duplicate rows table.
func (d DuplicateReport) Release() {
	d.Rows.Release()
}

// DetectDuplicates scans the matched partition and both source tables for rows that
// repeat an earlier row across all of their columns.
func DetectDuplicates(ctx context.Context, match *MatchResult, legacy, cloud *table.Table) (DuplicateReport, error) {
	var (
		report DuplicateReport
		err    error
	)

	if report.Legacy, err = table.Duplicated(legacy); err != nil {
		return report, fmt.Errorf("legacy duplicates: %w", err)
	}
	if report.Cloud, err = table.Duplicated(cloud); err != nil {
		return report, fmt.Errorf("cloud duplicates: %w", err)
	}
	report.LegacyCount = table.CountTrue(report.Legacy)
	report.CloudCount = table.CountTrue(report.Cloud)

	if match != nil && match.Matched != nil {
		// Provenance lives outside the table, so the scan sees only data columns.
		if report.Matched, err = table.Duplicated(match.Matched); err != nil {
			return report, fmt.Errorf("matched duplicates: %w", err)
		}
		report.MatchedCount = table.CountTrue(report.Matched)
	}

	if report.MatchedCount > 0 {
		var rows []int
		for i, dup := range report.Matched {
			if dup {
				rows = append(rows, i)
			}
		}
		if report.Rows, err = match.Matched.Take(ctx, rows); err != nil {
			return report, fmt.Errorf("duplicate rows: %w", err)
		}
	}

	report.Source = classifyDuplicates(report)
	return report, nil
}

func classifyDuplicates(r DuplicateReport) DuplicateSource {
	switch {
	case r.LegacyCount > 0 && r.CloudCount > 0:
		return DuplicatesBoth
	case r.LegacyCount > 0:
		return DuplicatesLegacy
	case r.CloudCount > 0:
		return DuplicatesCloud
	case r.MatchedCount > 0:
		return DuplicatesMatched
	default:
		return DuplicatesNone
	}
}
