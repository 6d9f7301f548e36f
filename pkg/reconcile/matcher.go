package reconcile

import (
	"context"
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/TFMV/reconcile/pkg/table"
)

// MatchResult partitions the outer join of both tables by provenance.
type MatchResult struct {
	// LegacyOnly holds rows whose key exists only in the legacy table.
	LegacyOnly *table.Table
	// CloudOnly holds rows whose key exists only in the cloud table.
	CloudOnly *table.Table
	// Matched holds one row per legacy/cloud pair sharing a key.
	Matched *table.Table
	// MatchedLegacyRows and MatchedCloudRows map every matched row to its source rows.
	MatchedLegacyRows []int
	MatchedCloudRows  []int
	// Columns describes the joined columns shared by all three partitions.
	Columns []table.OutputColumn
}

// Release releases all three partitions.
func (m *MatchResult) Release() {
	if m == nil {
		return
	}
	m.LegacyOnly.Release()
	m.CloudOnly.Release()
	m.Matched.Release()
}

// ColumnFor returns the joined name of a source column from the given side.
func (m *MatchResult) ColumnFor(side table.Side, source string) (string, bool) {
	for _, c := range m.Columns {
		if c.Source == source && (c.Side == side || c.Coalesced) {
			return c.Name, true
		}
	}
	return "", false
}

// checkKeyTypes returns a KeyTypeMismatch warning when any key pair differs in type.
func checkKeyTypes(keys KeySpec, legacy, cloud *table.Table) *Warning {
	lcols, ccols := keys.LegacyColumns(), keys.CloudColumns()
	var (
		diffs   []string
		columns []string
	)
	for i := range lcols {
		lt, _ := legacy.DataType(lcols[i])
		ct, _ := cloud.DataType(ccols[i])
		if !arrow.TypeEqual(lt, ct) {
			diffs = append(diffs, fmt.Sprintf("%s (%s) vs %s (%s)", lcols[i], typeName(lt), ccols[i], typeName(ct)))
			columns = append(columns, lcols[i])
		}
	}
	if len(diffs) == 0 {
		return nil
	}
	return &Warning{
		Kind:    KeyTypeMismatch,
		Message: "join key columns have different types, value matching skipped: " + strings.Join(diffs, "; "),
		Columns: columns,
	}
}

// MatchRows full-outer-joins legacy and cloud on keys and partitions the result.
// A missing key column is an error. Keys of different types are not joined: the
// result is nil and a KeyTypeMismatch warning is returned instead.
func MatchRows(ctx context.Context, legacy, cloud *table.Table, keys KeySpec) (*MatchResult, *Warning, error) {
	if err := ValidateKeys(keys, legacy, cloud); err != nil {
		return nil, nil, err
	}
	if w := checkKeyTypes(keys, legacy, cloud); w != nil {
		return nil, w, nil
	}

	joined, err := table.OuterJoin(ctx, legacy, cloud, table.JoinSpec{
		LegacyOn: keys.LegacyColumns(),
		CloudOn:  keys.CloudColumns(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("outer join: %w", err)
	}
	defer joined.Release()

	res := &MatchResult{Columns: joined.Columns}
	for _, row := range joined.Rows(table.Both) {
		res.MatchedLegacyRows = append(res.MatchedLegacyRows, joined.LegacyRows[row])
		res.MatchedCloudRows = append(res.MatchedCloudRows, joined.CloudRows[row])
	}

	if res.LegacyOnly, err = joined.Partition(ctx, table.LegacyOnly); err != nil {
		return nil, nil, fmt.Errorf("legacy-only partition: %w", err)
	}
	if res.CloudOnly, err = joined.Partition(ctx, table.CloudOnly); err != nil {
		res.Release()
		return nil, nil, fmt.Errorf("cloud-only partition: %w", err)
	}
	if res.Matched, err = joined.Partition(ctx, table.Both); err != nil {
		res.Release()
		return nil, nil, fmt.Errorf("matched partition: %w", err)
	}
	return res, nil, nil
}
