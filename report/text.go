package report

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/TFMV/reconcile/pkg/reconcile"
	"github.com/TFMV/reconcile/pkg/table"
)

const rule = "--------------------------------------------------------"

// TextReportGenerator renders the plain text report printed by the CLI.
type TextReportGenerator struct {
	// MaxRows caps the rows printed per table. Zero prints every row.
	MaxRows int
}

// GenerateReport renders the findings as text.
func (g *TextReportGenerator) GenerateReport(f *reconcile.Findings) ([]byte, error) {
	if f == nil {
		return nil, ErrCompareFirst
	}
	var b strings.Builder
	b.WriteString("Report\n" + rule + "\n")
	b.WriteString("Comparison of two tables\n\n")
	b.WriteString("Comparison performed on tables: Legacy and Cloud\n" + rule + "\n\n")

	section(&b, "Schema differences:", g.schemaSummary(f))
	b.WriteString("\n==================\n\n")
	section(&b, "Row count differences:", rowCountSummary(f.RowCounts()))
	b.WriteString("\n==================\n\n")
	section(&b, "Value mismatches:", g.valueSummary(f))

	if ws := f.Warnings(); len(ws) > 0 {
		b.WriteString("\n==================\n\n")
		lines := make([]string, len(ws))
		for i, w := range ws {
			lines[i] = w.String()
		}
		section(&b, "Warnings:", strings.Join(lines, "\n"))
	}
	return []byte(b.String()), nil
}

// SaveReportToFile saves the text report to a file.
func (g *TextReportGenerator) SaveReportToFile(f *reconcile.Findings, filePath string) error {
	return saveToFile(g, f, filePath)
}

func section(b *strings.Builder, title, body string) {
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("-", len(title)) + "\n")
	b.WriteString(strings.TrimRight(body, "\n") + "\n")
}

func listOr(items []string, none string) string {
	if len(items) == 0 {
		return none
	}
	return strings.Join(items, ", ")
}

func (g *TextReportGenerator) schemaSummary(f *reconcile.Findings) string {
	s := f.Schema()
	var b strings.Builder
	fmt.Fprintf(&b, "Missing columns for Legacy: %s\n", listOr(s.MissingFromLegacy, "No missing columns"))
	fmt.Fprintf(&b, "Missing columns for Cloud: %s\n", listOr(s.MissingFromCloud, "No missing columns"))
	fmt.Fprintf(&b, "Common columns: %s\n", listOr(s.Common, "No common columns"))
	fmt.Fprintf(&b, "Join columns: %s\n", f.Keys())
	if n := s.MismatchedTypeCount(); n > 0 {
		fmt.Fprintf(&b, "Mismatching datatypes on %d columns\n", n)
		rows := make([][]string, 0, n)
		for _, col := range sortedKeys(s.TypeMismatches) {
			pair := s.TypeMismatches[col]
			rows = append(rows, []string{col, pair.Legacy, pair.Cloud})
		}
		b.WriteString(formatGrid([]string{"column", "legacy", "cloud"}, rows, false))
	}
	return b.String()
}

func rowCountSummary(rc reconcile.RowCounts) string {
	return fmt.Sprintf(`Row count Legacy: %d rows
Row count Cloud : %d rows
Row count difference for legacy: %d
Row count difference for cloud: %d`, rc.Legacy, rc.Cloud, rc.LegacyDifference, rc.CloudDifference)
}

func (g *TextReportGenerator) valueSummary(f *reconcile.Findings) string {
	m, ok := f.Match()
	if !ok {
		return "Unmatched datatypes of the keys. Value matching cannot be performed!"
	}
	var b strings.Builder
	if n := m.LegacyOnly.NumRows(); n > 0 {
		fmt.Fprintf(&b, "%d unique for Legacy:\n%s", n, g.formatTable(m.LegacyOnly))
	}
	if n := m.CloudOnly.NumRows(); n > 0 {
		fmt.Fprintf(&b, "%d unique for Cloud:\n%s", n, g.formatTable(m.CloudOnly))
	}
	if mm := f.Mismatches(); mm.HasComparedColumns() {
		fmt.Fprintf(&b, "There are %d mismatched values\n", mm.Total)
		if mm.Mismatched != nil {
			b.WriteString(g.formatTable(mm.Mismatched))
		}
	}
	if d := f.Duplicates(); d.MatchedCount > 0 {
		fmt.Fprintf(&b, "Duplicates detected in %s: %d\n", detectedIn(d.Source), d.MatchedCount)
		if d.Rows != nil {
			b.WriteString(g.formatTable(d.Rows))
		}
	}
	if b.Len() == 0 {
		return "No columns have been checked for mismatching values!"
	}
	return b.String()
}

func detectedIn(src reconcile.DuplicateSource) string {
	switch src {
	case reconcile.DuplicatesBoth:
		return "both tables"
	case reconcile.DuplicatesLegacy:
		return "legacy table"
	case reconcile.DuplicatesCloud:
		return "cloud table"
	default:
		return "merged data"
	}
}

// formatTable prints t as an aligned grid with a leading row index column.
func (g *TextReportGenerator) formatTable(t *table.Table) string {
	n := t.NumRows()
	shown := n
	if g.MaxRows > 0 && shown > g.MaxRows {
		shown = g.MaxRows
	}
	rows := make([][]string, shown)
	for i := range rows {
		rows[i] = rowStrings(t, i)
	}
	out := formatGrid(t.ColumnNames(), rows, true)
	if shown < n {
		out += fmt.Sprintf("... %d more rows\n", n-shown)
	}
	return out
}

func formatGrid(header []string, rows [][]string, index bool) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	if index {
		fmt.Fprint(w, "\t")
	}
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for i, row := range rows {
		if index {
			fmt.Fprintf(w, "%d\t", i)
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()
	return b.String()
}

func rowStrings(t *table.Table, row int) []string {
	rec := t.Record()
	out := make([]string, rec.NumCols())
	for j, col := range rec.Columns() {
		if col.IsNull(row) {
			out[j] = "null"
			continue
		}
		out[j] = col.ValueStr(row)
	}
	return out
}
