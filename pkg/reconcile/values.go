package reconcile

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/compute"
	"golang.org/x/sync/errgroup"

	"github.com/TFMV/reconcile/pkg/table"
)

// MismatchSuffix names the per-column flag columns of the mismatch table.
const MismatchSuffix = "_mismatch"

// MismatchSumColumn names the per-row total column of the mismatch table.
const MismatchSumColumn = "mismatch_sum"

// MismatchReport holds value-level differences over the matched partition.
type MismatchReport struct {
	// Columns lists the compared columns: common, non-key, sorted.
	Columns []string
	// Flags[c][r] is set when column c differs on matched row r.
	Flags map[string][]bool
	// ColumnCounts[c] is the number of rows where column c differs.
	ColumnCounts map[string]int
	// RowTotals[r] is the number of differing columns on matched row r.
	RowTotals []int
	// Total is the number of mismatched cells.
	Total int
	// MismatchedRows lists matched rows with at least one differing column.
	MismatchedRows []int
	// Mismatched holds those rows plus one flag column per compared column and the
	// per-row total. It is nil when there is nothing to show.
	Mismatched *table.Table
}

// HasComparedColumns reports whether any column qualified for comparison.
func (m MismatchReport) HasComparedColumns() bool {
	return len(m.Columns) > 0
}

// Release releases the mismatch table.
func (m MismatchReport) Release() {
	m.Mismatched.Release()
}

// ValueOptions tunes CompareValues.
type ValueOptions struct {
	// Tolerance is the relative tolerance for floating point values. Zero means exact.
	Tolerance float64
	// Workers bounds how many columns are compared at once. Zero means no bound.
	Workers int
}

// comparedColumns returns the common columns that are not key columns on either side.
func comparedColumns(schema SchemaDiff, keys KeySpec) []string {
	skip := keyNames(keys)
	var cols []string
	for _, c := range schema.Common {
		if !skip[c] {
			cols = append(cols, c)
		}
	}
	sort.Strings(cols)
	return cols
}

// CompareValues compares the legacy and cloud value of every compared column on every
// matched row. Both-null is equal, null against a value is a mismatch. When a column
// pair has incomparable types the report is empty and a ValueComparisonFailure warning
// is returned.
func CompareValues(ctx context.Context, match *MatchResult, schema SchemaDiff, keys KeySpec, opts ValueOptions) (MismatchReport, *Warning, error) {
	report := MismatchReport{
		Columns:      comparedColumns(schema, keys),
		Flags:        make(map[string][]bool),
		ColumnCounts: make(map[string]int),
	}
	if match == nil || match.Matched == nil {
		return report, nil, nil
	}
	rows := match.Matched.NumRows()
	report.RowTotals = make([]int, rows)
	if len(report.Columns) == 0 || rows == 0 {
		return report, nil, nil
	}

	type pair struct{ legacy, cloud arrow.Array }
	pairs := make([]pair, len(report.Columns))
	var incomparable []string
	for i, c := range report.Columns {
		lname, lok := match.ColumnFor(table.Legacy, c)
		cname, cok := match.ColumnFor(table.Cloud, c)
		if !lok || !cok || lname == cname {
			return report, nil, fmt.Errorf("matched partition has no paired columns for %q", c)
		}
		pairs[i].legacy, _ = match.Matched.Column(lname)
		pairs[i].cloud, _ = match.Matched.Column(cname)
		if !table.Comparable(pairs[i].legacy.DataType(), pairs[i].cloud.DataType()) {
			incomparable = append(incomparable, fmt.Sprintf("%s (%s vs %s)", c, pairs[i].legacy.DataType(), pairs[i].cloud.DataType()))
		}
	}
	if len(incomparable) > 0 {
		w := &Warning{
			Kind:    ValueComparisonFailure,
			Message: "incomparable column types, no value mismatches reported: " + strings.Join(incomparable, "; "),
			Columns: report.Columns,
		}
		return report, w, nil
	}

	// Columns are independent; each worker owns its flag slice.
	flags := make([][]bool, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}
	for i := range pairs {
		g.Go(func() error {
			out := make([]bool, rows)
			for r := 0; r < rows; r++ {
				if r%4096 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				out[r] = !table.CellsEqual(pairs[i].legacy, r, pairs[i].cloud, r, opts.Tolerance)
			}
			flags[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, nil, err
	}

	for i, c := range report.Columns {
		report.Flags[c] = flags[i]
		for r, bad := range flags[i] {
			if bad {
				report.ColumnCounts[c]++
				report.RowTotals[r]++
				report.Total++
			}
		}
	}
	for r, n := range report.RowTotals {
		if n > 0 {
			report.MismatchedRows = append(report.MismatchedRows, r)
		}
	}

	if len(report.MismatchedRows) > 0 {
		tbl, err := mismatchTable(ctx, match.Matched, report)
		if err != nil {
			return report, nil, fmt.Errorf("build mismatch table: %w", err)
		}
		report.Mismatched = tbl
	}
	return report, nil, nil
}

// mismatchTable selects the mismatched rows and appends a flag column per compared
// column and the per-row total.
func mismatchTable(ctx context.Context, matched *table.Table, report MismatchReport) (*table.Table, error) {
	rows, err := matched.Take(ctx, report.MismatchedRows)
	if err != nil {
		return nil, err
	}
	defer rows.Release()

	mem := compute.GetAllocator(ctx)
	rec := rows.Record()
	fields := append([]arrow.Field(nil), rec.Schema().Fields()...)
	cols := append([]arrow.Array(nil), rec.Columns()...)
	taken := make(map[string]bool, len(fields))
	for _, f := range fields {
		taken[f.Name] = true
	}
	var extra []arrow.Array
	defer func() {
		for _, a := range extra {
			a.Release()
		}
	}()

	for _, c := range report.Columns {
		b := array.NewBooleanBuilder(mem)
		for _, r := range report.MismatchedRows {
			b.Append(report.Flags[c][r])
		}
		arr := b.NewArray()
		b.Release()
		extra = append(extra, arr)
		cols = append(cols, arr)
		fields = append(fields, arrow.Field{Name: table.UniqueName(taken, c+MismatchSuffix), Type: arrow.FixedWidthTypes.Boolean})
	}

	sb := array.NewInt64Builder(mem)
	for _, r := range report.MismatchedRows {
		sb.Append(int64(report.RowTotals[r]))
	}
	sum := sb.NewArray()
	sb.Release()
	extra = append(extra, sum)
	cols = append(cols, sum)
	fields = append(fields, arrow.Field{Name: table.UniqueName(taken, MismatchSumColumn), Type: arrow.PrimitiveTypes.Int64})

	out := array.NewRecord(arrow.NewSchema(fields, nil), cols, int64(len(report.MismatchedRows)))
	defer out.Release()
	return table.New(out)
}
