package reconcile

import (
	"sort"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/TFMV/reconcile/pkg/table"
)

// TypePair holds both sides' declared types for a column whose types differ.
type TypePair struct {
	Legacy string `json:"legacy"`
	Cloud  string `json:"cloud"`
}

// SchemaDiff describes how the column sets and types of the two tables differ.
// The three column lists are disjoint and sorted; together they cover every column.
type SchemaDiff struct {
	// MissingFromLegacy holds columns present only in the cloud table.
	MissingFromLegacy []string `json:"missing_from_legacy"`
	// MissingFromCloud holds columns present only in the legacy table.
	MissingFromCloud []string `json:"missing_from_cloud"`
	// Common holds columns present in both tables.
	Common []string `json:"common_columns"`
	// TypeMismatches maps each common column whose types differ to both types.
	TypeMismatches map[string]TypePair `json:"type_mismatches"`
}

// MismatchedTypeCount returns the number of common columns whose types differ.
func (d SchemaDiff) MismatchedTypeCount() int {
	return len(d.TypeMismatches)
}

// IsCommon reports whether name is present in both tables.
func (d SchemaDiff) IsCommon(name string) bool {
	i := sort.SearchStrings(d.Common, name)
	return i < len(d.Common) && d.Common[i] == name
}

// DiffSchemas compares the column sets and declared column types of both tables.
func DiffSchemas(legacy, cloud *table.Table) SchemaDiff {
	legacyCols := make(map[string]bool)
	for _, name := range legacy.ColumnNames() {
		legacyCols[name] = true
	}
	cloudCols := make(map[string]bool)
	for _, name := range cloud.ColumnNames() {
		cloudCols[name] = true
	}

	diff := SchemaDiff{
		MissingFromLegacy: []string{},
		MissingFromCloud:  []string{},
		Common:            []string{},
		TypeMismatches:    make(map[string]TypePair),
	}
	for name := range cloudCols {
		if !legacyCols[name] {
			diff.MissingFromLegacy = append(diff.MissingFromLegacy, name)
		}
	}
	for name := range legacyCols {
		if cloudCols[name] {
			diff.Common = append(diff.Common, name)
		} else {
			diff.MissingFromCloud = append(diff.MissingFromCloud, name)
		}
	}
	sort.Strings(diff.MissingFromLegacy)
	sort.Strings(diff.MissingFromCloud)
	sort.Strings(diff.Common)

	for _, name := range diff.Common {
		lt, _ := legacy.DataType(name)
		ct, _ := cloud.DataType(name)
		if !arrow.TypeEqual(lt, ct) {
			diff.TypeMismatches[name] = TypePair{Legacy: typeName(lt), Cloud: typeName(ct)}
		}
	}
	return diff
}

func typeName(dt arrow.DataType) string {
	if dt == nil {
		return "null"
	}
	return dt.String()
}
