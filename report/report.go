// Package report renders comparison findings as text, JSON or HTML.
package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"os"
	"sort"
	"time"

	"github.com/TFMV/reconcile/pkg/reconcile"
	"github.com/TFMV/reconcile/pkg/table"
	"github.com/TFMV/reconcile/pkg/writers"
)

// ErrCompareFirst is returned when a report is requested before any comparison ran.
var ErrCompareFirst = errors.New("call compare first")

// -----------------------------
// Report Generator Interfaces
// -----------------------------

// ReportGenerator renders findings in one output format.
type ReportGenerator interface {
	GenerateReport(f *reconcile.Findings) ([]byte, error)
	SaveReportToFile(f *reconcile.Findings, filePath string) error
}

// NewGenerator returns the generator for format: text, json or html.
func NewGenerator(format string) (ReportGenerator, error) {
	switch format {
	case "", "text":
		return &TextReportGenerator{}, nil
	case "json":
		return &JSONReportGenerator{}, nil
	case "html":
		return &HTMLReportGenerator{}, nil
	default:
		return nil, fmt.Errorf("unsupported report format: %s", format)
	}
}

// FromComparer renders the findings of the last comparison c ran.
func FromComparer(c *reconcile.Comparer, g ReportGenerator) ([]byte, error) {
	f, err := c.Findings()
	if err != nil {
		return nil, findingsError(err)
	}
	return g.GenerateReport(f)
}

func findingsError(err error) error {
	if errors.Is(err, reconcile.ErrNotYetComputed) {
		return fmt.Errorf("%w: %w", ErrCompareFirst, err)
	}
	return err
}

func saveToFile(g ReportGenerator, f *reconcile.Findings, filePath string) error {
	data, err := g.GenerateReport(f)
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0644)
}

// -----------------------------
// Report Document
// -----------------------------

// Document is the serializable form of a report: the summary plus the rows behind it.
type Document struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Summary     reconcile.Summary `json:"summary"`
	LegacyOnly  []map[string]any  `json:"legacy_only"`
	CloudOnly   []map[string]any  `json:"cloud_only"`
	Mismatched  []map[string]any  `json:"mismatched"`
	Duplicates  []map[string]any  `json:"duplicates"`
}

// NewDocument snapshots f.
func NewDocument(f *reconcile.Findings) (*Document, error) {
	if f == nil {
		return nil, ErrCompareFirst
	}
	doc := &Document{
		GeneratedAt: time.Now().UTC(),
		Summary:     f.Summary(),
		LegacyOnly:  tableRows(nil),
		CloudOnly:   tableRows(nil),
		Mismatched:  tableRows(f.Mismatches().Mismatched),
		Duplicates:  tableRows(f.Duplicates().Rows),
	}
	if m, ok := f.Match(); ok {
		doc.LegacyOnly = tableRows(m.LegacyOnly)
		doc.CloudOnly = tableRows(m.CloudOnly)
	}
	return doc, nil
}

func tableRows(t *table.Table) []map[string]any {
	if t == nil || t.Record() == nil {
		return []map[string]any{}
	}
	return writers.RecordRows(t.Record())
}

// -----------------------------
// JSON Report Generator
// -----------------------------

// JSONReportGenerator generates JSON reports.
type JSONReportGenerator struct{}

// GenerateReport serializes the report document to JSON.
func (j *JSONReportGenerator) GenerateReport(f *reconcile.Findings) ([]byte, error) {
	doc, err := NewDocument(f)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(doc, "", "  ")
}

// SaveReportToFile saves the JSON report to a file.
func (j *JSONReportGenerator) SaveReportToFile(f *reconcile.Findings, filePath string) error {
	return saveToFile(j, f, filePath)
}

// ReportFromFilePath loads a JSON report saved by JSONReportGenerator.
func ReportFromFilePath(filePath string) (*Document, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", filePath, err)
	}
	return &doc, nil
}

// -----------------------------
// HTML Report Generator
// -----------------------------

// HTMLReportGenerator generates HTML reports.
type HTMLReportGenerator struct{}

type htmlTable struct {
	Columns []string
	Rows    [][]string
}

type htmlTypeRow struct {
	Column, Legacy, Cloud string
}

type htmlView struct {
	reconcile.Summary
	GeneratedAt   string
	TypeRows      []htmlTypeRow
	LegacyOnly    htmlTable
	CloudOnly     htmlTable
	Mismatched    htmlTable
	DuplicateRows htmlTable
	DetectedIn    string
}

var htmlReport = template.Must(template.New("report").Parse(htmlTemplate))

// HTML template for the report.
const htmlTemplate = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Reconciliation Report</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        table { width: 100%; border-collapse: collapse; margin-top: 20px; }
        th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
        th { background-color: #f4f4f4; }
        .status-pass { color: green; }
        .status-fail { color: red; }
        .warning { color: #b36b00; }
    </style>
</head>
<body>
    <h1>Reconciliation Report</h1>
    <p><strong>Compared:</strong> Legacy and Cloud</p>
    <p><strong>Join columns:</strong> {{.Keys}}</p>

    {{if .Warnings}}
    <h2>Warnings</h2>
    <ul>
        {{range .Warnings}}<li class="warning"><strong>{{.Kind}}</strong>: {{.Message}}</li>{{end}}
    </ul>
    {{end}}

    <h2>Schema Differences</h2>
    <h3>Missing in Legacy:</h3>
    <ul>
        {{range .Schema.MissingFromLegacy}}<li>{{.}}</li>{{else}}<li>None</li>{{end}}
    </ul>
    <h3>Missing in Cloud:</h3>
    <ul>
        {{range .Schema.MissingFromCloud}}<li>{{.}}</li>{{else}}<li>None</li>{{end}}
    </ul>
    <h3>Common Columns:</h3>
    <ul>
        {{range .Schema.Common}}<li>{{.}}</li>{{else}}<li>None</li>{{end}}
    </ul>
    {{if .TypeRows}}
    <h3>Mismatching Datatypes</h3>
    <table>
        <tr><th>Column</th><th>Legacy</th><th>Cloud</th></tr>
        {{range .TypeRows}}<tr><td>{{.Column}}</td><td>{{.Legacy}}</td><td>{{.Cloud}}</td></tr>{{end}}
    </table>
    {{end}}

    <h2>Row Counts</h2>
    <table>
        <tr>
            <th>Legacy Count</th>
            <th>Cloud Count</th>
            <th>Difference</th>
            <th>Status</th>
        </tr>
        <tr>
            <td>{{.RowCounts.Legacy}}</td>
            <td>{{.RowCounts.Cloud}}</td>
            <td>{{.RowCounts.LegacyDifference}}</td>
            <td class="{{if eq .RowCounts.LegacyDifference 0}}status-pass{{else}}status-fail{{end}}">
                {{if eq .RowCounts.LegacyDifference 0}}PASS{{else}}FAIL{{end}}
            </td>
        </tr>
    </table>

    <h2>Value Mismatches</h2>
    {{if not .RowsMatched}}
    <p class="status-fail">Unmatched datatypes of the keys. Value matching cannot be performed!</p>
    {{else}}
    <p><strong>Matched rows:</strong> {{.MatchedRows}}</p>
    <p><strong>Mismatched values:</strong>
        <span class="{{if eq .MismatchedValues 0}}status-pass{{else}}status-fail{{end}}">{{.MismatchedValues}}</span>
        in {{.MismatchedRows}} rows</p>
    {{template "rows" (print "Unique for Legacy (" .LegacyOnlyRows ")")}}{{template "grid" .LegacyOnly}}
    {{template "rows" (print "Unique for Cloud (" .CloudOnlyRows ")")}}{{template "grid" .CloudOnly}}
    {{template "rows" "Mismatched rows"}}{{template "grid" .Mismatched}}
    {{end}}

    {{if .DetectedIn}}
    <h2>Duplicates</h2>
    <p>Duplicates detected in {{.DetectedIn}}: {{.Duplicates.Matched}}</p>
    {{template "grid" .DuplicateRows}}
    {{end}}

    <footer>
        <p>Generated on {{.GeneratedAt}}</p>
    </footer>
</body>
</html>
{{define "rows"}}<h3>{{.}}</h3>{{end}}
{{define "grid"}}{{if .Rows}}
    <table>
        <tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr>
        {{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
        {{end}}
    </table>{{else}}<p>None</p>{{end}}{{end}}
`

// GenerateReport renders the findings as an HTML page.
func (h *HTMLReportGenerator) GenerateReport(f *reconcile.Findings) ([]byte, error) {
	if f == nil {
		return nil, ErrCompareFirst
	}
	view := htmlView{
		Summary:       f.Summary(),
		GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
		Mismatched:    gridOf(f.Mismatches().Mismatched),
		DuplicateRows: gridOf(f.Duplicates().Rows),
	}
	if m, ok := f.Match(); ok {
		view.LegacyOnly = gridOf(m.LegacyOnly)
		view.CloudOnly = gridOf(m.CloudOnly)
	}
	if view.Duplicates.Matched > 0 {
		view.DetectedIn = detectedIn(view.Duplicates.Source)
	}
	for _, col := range sortedKeys(view.Schema.TypeMismatches) {
		pair := view.Schema.TypeMismatches[col]
		view.TypeRows = append(view.TypeRows, htmlTypeRow{Column: col, Legacy: pair.Legacy, Cloud: pair.Cloud})
	}

	var buf bytes.Buffer
	if err := htmlReport.Execute(&buf, view); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveReportToFile saves the HTML report to a file.
func (h *HTMLReportGenerator) SaveReportToFile(f *reconcile.Findings, filePath string) error {
	return saveToFile(h, f, filePath)
}

func gridOf(t *table.Table) htmlTable {
	if t == nil || t.Record() == nil {
		return htmlTable{}
	}
	grid := htmlTable{Columns: t.ColumnNames()}
	for i := 0; i < t.NumRows(); i++ {
		grid.Rows = append(grid.Rows, rowStrings(t, i))
	}
	return grid
}

// SaveReports saves both JSON and HTML reports.
func SaveReports(f *reconcile.Findings, jsonPath, htmlPath string) error {
	jsonGen := JSONReportGenerator{}
	htmlGen := HTMLReportGenerator{}

	if err := jsonGen.SaveReportToFile(f, jsonPath); err != nil {
		return err
	}
	return htmlGen.SaveReportToFile(f, htmlPath)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
