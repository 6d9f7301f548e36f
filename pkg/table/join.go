package table

import (
	"context"
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/compute"
)

// Default suffixes appended to overlapping column names in a join.
const (
	LegacySuffix = "_legacy"
	CloudSuffix  = "_cloud"
)

// ErrKeyTypes is returned when paired join keys have different element types.
var ErrKeyTypes = errors.New("join key types differ")

// Provenance tells which side(s) contributed a joined row.
type Provenance uint8

const (
	LegacyOnly Provenance = iota + 1
	CloudOnly
	Both
)

func (p Provenance) String() string {
	switch p {
	case LegacyOnly:
		return "legacy_only"
	case CloudOnly:
		return "cloud_only"
	case Both:
		return "both"
	default:
		return "unknown"
	}
}

// JoinSpec describes a full outer join. LegacyOn[i] is joined to CloudOn[i].
type JoinSpec struct {
	LegacyOn     []string
	CloudOn      []string
	LegacySuffix string
	CloudSuffix  string
}

// OutputColumn describes one column of a join result.
type OutputColumn struct {
	Name   string
	Source string
	Side   Side
	Key    bool
	// Coalesced key columns hold the legacy value when present, else the cloud value.
	Coalesced bool
}

// JoinResult is the output of OuterJoin.
type JoinResult struct {
	Table      *Table
	Provenance []Provenance
	// LegacyRows and CloudRows map every output row to its source row, or -1.
	LegacyRows []int
	CloudRows  []int
	Columns    []OutputColumn
}

// Release releases the joined table.
func (r *JoinResult) Release() {
	if r != nil {
		r.Table.Release()
	}
}

// Rows returns the output row positions with provenance p, in output order.
func (r *JoinResult) Rows(p Provenance) []int {
	var rows []int
	for i, prov := range r.Provenance {
		if prov == p {
			rows = append(rows, i)
		}
	}
	return rows
}

// Partition returns the output rows with provenance p as a table.
func (r *JoinResult) Partition(ctx context.Context, p Provenance) (*Table, error) {
	return r.Table.Take(ctx, r.Rows(p))
}

// ColumnFor returns the output name of the source column from the given side.
func (r *JoinResult) ColumnFor(side Side, source string) (string, bool) {
	for _, c := range r.Columns {
		if c.Source == source && (c.Side == side || c.Coalesced) {
			return c.Name, true
		}
	}
	return "", false
}

// OuterJoin performs a full outer join of legacy and cloud on the key columns in spec.
// Every legacy row appears at least once, paired with each matching cloud row (so
// many-to-many keys produce their cross product) or with a null cloud side. Cloud rows
// without a legacy match follow, in cloud order. Null keys match null keys.
func OuterJoin(ctx context.Context, legacy, cloud *Table, spec JoinSpec) (*JoinResult, error) {
	if len(spec.LegacyOn) == 0 || len(spec.LegacyOn) != len(spec.CloudOn) {
		return nil, fmt.Errorf("join needs equal, non-empty key lists: %d legacy, %d cloud", len(spec.LegacyOn), len(spec.CloudOn))
	}
	if spec.LegacySuffix == "" {
		spec.LegacySuffix = LegacySuffix
	}
	if spec.CloudSuffix == "" {
		spec.CloudSuffix = CloudSuffix
	}

	legacyKeys, err := keyColumns(legacy, spec.LegacyOn, Legacy)
	if err != nil {
		return nil, err
	}
	cloudKeys, err := keyColumns(cloud, spec.CloudOn, Cloud)
	if err != nil {
		return nil, err
	}
	for i := range legacyKeys {
		if !arrow.TypeEqual(legacyKeys[i].DataType(), cloudKeys[i].DataType()) {
			return nil, fmt.Errorf("%w: %s (%s) vs %s (%s)", ErrKeyTypes,
				spec.LegacyOn[i], legacyKeys[i].DataType(), spec.CloudOn[i], cloudKeys[i].DataType())
		}
	}

	legacyRows, cloudRows, prov, err := matchRows(ctx, legacy.NumRows(), cloud.NumRows(), legacyKeys, cloudKeys)
	if err != nil {
		return nil, err
	}

	columns := joinColumns(legacy, cloud, spec)
	joined, err := buildJoined(ctx, legacy, cloud, columns, legacyRows, cloudRows)
	if err != nil {
		return nil, err
	}

	return &JoinResult{
		Table:      joined,
		Provenance: prov,
		LegacyRows: legacyRows,
		CloudRows:  cloudRows,
		Columns:    columns,
	}, nil
}

func keyColumns(t *Table, names []string, side Side) ([]arrow.Array, error) {
	cols := make([]arrow.Array, len(names))
	for i, name := range names {
		col, ok := t.Column(name)
		if !ok {
			return nil, fmt.Errorf("key column %q not found in %s table", name, side)
		}
		cols[i] = col
	}
	return cols, nil
}

// matchRows pairs legacy and cloud rows by key. Cloud rows are bucketed by key hash and
// every candidate is verified cell by cell.
func matchRows(ctx context.Context, nLegacy, nCloud int, legacyKeys, cloudKeys []arrow.Array) (legacyRows, cloudRows []int, prov []Provenance, err error) {
	buckets := make(map[rowKey][]int, nCloud)
	cloudHasher := newRowHasher(cloudKeys)
	for j := 0; j < nCloud; j++ {
		key := cloudHasher.key(j)
		buckets[key] = append(buckets[key], j)
	}

	matched := make([]bool, nCloud)
	legacyHasher := newRowHasher(legacyKeys)
	for i := 0; i < nLegacy; i++ {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, nil, err
			}
		}

		found := false
		for _, j := range buckets[legacyHasher.key(i)] {
			if !rowsEqual(legacyKeys, i, cloudKeys, j) {
				continue
			}
			legacyRows = append(legacyRows, i)
			cloudRows = append(cloudRows, j)
			prov = append(prov, Both)
			matched[j] = true
			found = true
		}
		if !found {
			legacyRows = append(legacyRows, i)
			cloudRows = append(cloudRows, -1)
			prov = append(prov, LegacyOnly)
		}
	}

	for j, ok := range matched {
		if !ok {
			legacyRows = append(legacyRows, -1)
			cloudRows = append(cloudRows, j)
			prov = append(prov, CloudOnly)
		}
	}
	return legacyRows, cloudRows, prov, nil
}

// joinColumns lays out the output: legacy columns in schema order, then cloud columns.
// Key pairs with the same name on both sides are emitted once, unsuffixed. Any other
// name present on both sides is suffixed.
func joinColumns(legacy, cloud *Table, spec JoinSpec) []OutputColumn {
	coalesced := make(map[string]bool)
	legacyKey := make(map[string]bool)
	cloudKey := make(map[string]bool)
	for i := range spec.LegacyOn {
		legacyKey[spec.LegacyOn[i]] = true
		cloudKey[spec.CloudOn[i]] = true
		if spec.LegacyOn[i] == spec.CloudOn[i] {
			coalesced[spec.LegacyOn[i]] = true
		}
	}

	inCloud := make(map[string]bool)
	for _, name := range cloud.ColumnNames() {
		if !coalesced[name] {
			inCloud[name] = true
		}
	}
	inLegacy := make(map[string]bool)
	for _, name := range legacy.ColumnNames() {
		if !coalesced[name] {
			inLegacy[name] = true
		}
	}

	var (
		out      []OutputColumn
		suffixed []bool
	)
	for _, name := range legacy.ColumnNames() {
		col := OutputColumn{Name: name, Source: name, Side: Legacy, Key: legacyKey[name]}
		switch {
		case coalesced[name]:
			col.Coalesced = true
		case inCloud[name]:
			col.Name = name + spec.LegacySuffix
		}
		out = append(out, col)
		suffixed = append(suffixed, col.Name != name)
	}
	for _, name := range cloud.ColumnNames() {
		if coalesced[name] {
			continue
		}
		col := OutputColumn{Name: name, Source: name, Side: Cloud, Key: cloudKey[name]}
		if inLegacy[name] {
			col.Name = name + spec.CloudSuffix
		}
		out = append(out, col)
		suffixed = append(suffixed, col.Name != name)
	}

	// Unsuffixed names are kept as is; a suffixed name that collides with
	// another output column gets a numeric suffix.
	taken := make(map[string]bool, len(out))
	for i, col := range out {
		if !suffixed[i] {
			taken[col.Name] = true
		}
	}
	for i := range out {
		if suffixed[i] {
			out[i].Name = UniqueName(taken, out[i].Name)
		}
	}
	return out
}

// UniqueName returns name, or name with the first free "_N" suffix when name is
// already in taken, and marks the result as taken.
func UniqueName(taken map[string]bool, name string) string {
	unique := name
	for n := 2; taken[unique]; n++ {
		unique = fmt.Sprintf("%s_%d", name, n)
	}
	taken[unique] = true
	return unique
}

func buildJoined(ctx context.Context, legacy, cloud *Table, columns []OutputColumn, legacyRows, cloudRows []int) (*Table, error) {
	mem := compute.GetAllocator(ctx)
	fields := make([]arrow.Field, len(columns))
	arrays := make([]arrow.Array, len(columns))
	defer func() {
		for _, a := range arrays {
			if a != nil {
				a.Release()
			}
		}
	}()

	for i, c := range columns {
		var (
			arr arrow.Array
			err error
		)
		switch {
		case c.Coalesced:
			lcol, _ := legacy.Column(c.Source)
			ccol, _ := cloud.Column(c.Source)
			arr, err = coalesce(ctx, lcol, ccol, legacyRows, cloudRows)
		case c.Side == Legacy:
			col, _ := legacy.Column(c.Source)
			arr, err = takeColumn(ctx, mem, col, legacyRows)
		default:
			col, _ := cloud.Column(c.Source)
			arr, err = takeColumn(ctx, mem, col, cloudRows)
		}
		if err != nil {
			return nil, fmt.Errorf("build join column %q: %w", c.Name, err)
		}
		arrays[i] = arr
		fields[i] = arrow.Field{Name: c.Name, Type: arr.DataType(), Nullable: true}
	}

	rec := array.NewRecord(arrow.NewSchema(fields, nil), arrays, int64(len(legacyRows)))
	defer rec.Release()
	return New(rec)
}

// coalesce builds a key column that carries the legacy value where the legacy row exists
// and the cloud value otherwise.
func coalesce(ctx context.Context, lcol, ccol arrow.Array, legacyRows, cloudRows []int) (arrow.Array, error) {
	mem := compute.GetAllocator(ctx)
	values, err := array.Concatenate([]arrow.Array{lcol, ccol}, mem)
	if err != nil {
		return nil, err
	}
	defer values.Release()

	positions := make([]int64, len(legacyRows))
	for i := range legacyRows {
		if legacyRows[i] >= 0 {
			positions[i] = int64(legacyRows[i])
		} else {
			positions[i] = int64(lcol.Len() + cloudRows[i])
		}
	}
	return takePositions(ctx, mem, values, positions)
}
