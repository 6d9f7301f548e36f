package reconcile

import (
	"context"
	"fmt"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/TFMV/reconcile/pkg/table"
)

var columnPool = []string{"id", "name", "amount", "status", "created_at", "region"}

func tableFromMask(mask uint8, rows int) (*table.Table, error) {
	var fs []arrow.Field
	for i, name := range columnPool {
		if mask&(1<<i) != 0 {
			fs = append(fs, arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Int64, Nullable: true})
		}
	}
	data := make([][]any, rows)
	for r := range data {
		data[r] = make([]any, len(fs))
		for c := range fs {
			data[r][c] = r
		}
	}
	return table.Build(nil, arrow.NewSchema(fs, nil), data)
}

func keyedTable(keys, values []int) (*table.Table, error) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "v", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "w", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)
	rows := make([][]any, len(keys))
	for i, k := range keys {
		v := 0
		if i < len(values) {
			v = values[i]
		}
		rows[i] = []any{k, v, fmt.Sprintf("w%d", v%2)}
	}
	return table.Build(nil, schema, rows)
}

func TestProperty_SchemaPartition(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("missing and common columns partition the union of both schemas", prop.ForAll(
		func(lmask, cmask uint8) bool {
			legacy, err := tableFromMask(lmask, 0)
			if err != nil {
				return false
			}
			defer legacy.Release()
			cloud, err := tableFromMask(cmask, 0)
			if err != nil {
				return false
			}
			defer cloud.Release()

			diff := DiffSchemas(legacy, cloud)
			seen := make(map[string]int)
			for _, set := range [][]string{diff.MissingFromLegacy, diff.MissingFromCloud, diff.Common} {
				for _, c := range set {
					seen[c]++
				}
			}
			union := make(map[string]bool)
			for _, c := range legacy.ColumnNames() {
				union[c] = true
			}
			for _, c := range cloud.ColumnNames() {
				union[c] = true
			}
			if len(seen) != len(union) {
				return false
			}
			for c, n := range seen {
				if n != 1 || !union[c] {
					return false
				}
			}
			return true
		},
		gen.UInt8Range(0, 63),
		gen.UInt8Range(0, 63),
	))

	properties.TestingRun(t)
}

func TestProperty_RowCountIdentity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("legacy difference is the negated cloud difference", prop.ForAll(
		func(l, c int) bool {
			legacy, err := tableFromMask(1, l)
			if err != nil {
				return false
			}
			defer legacy.Release()
			cloud, err := tableFromMask(1, c)
			if err != nil {
				return false
			}
			defer cloud.Release()

			rc := CountRows(legacy, cloud)
			return rc.Legacy == l && rc.Cloud == c &&
				rc.LegacyDifference == -rc.CloudDifference &&
				rc.LegacyDifference == l-c
		},
		gen.IntRange(0, 40),
		gen.IntRange(0, 40),
	))

	properties.TestingRun(t)
}

func TestProperty_JoinCoverage(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	keys := SharedKey{Columns: []string{"id"}}

	properties.Property("every source row lands in its only-partition or the matched partition", prop.ForAll(
		func(lkeys, ckeys []int) bool {
			legacy, err := keyedTable(lkeys, nil)
			if err != nil {
				return false
			}
			defer legacy.Release()
			cloud, err := keyedTable(ckeys, nil)
			if err != nil {
				return false
			}
			defer cloud.Release()

			match, w, err := MatchRows(context.Background(), legacy, cloud, keys)
			if err != nil || w != nil {
				return false
			}
			defer match.Release()

			lcount := make(map[int]int)
			for _, k := range lkeys {
				lcount[k]++
			}
			ccount := make(map[int]int)
			for _, k := range ckeys {
				ccount[k]++
			}

			legacyOnly, matched := 0, 0
			for _, k := range lkeys {
				if ccount[k] == 0 {
					legacyOnly++
				}
				matched += ccount[k]
			}
			cloudOnly := 0
			for _, k := range ckeys {
				if lcount[k] == 0 {
					cloudOnly++
				}
			}

			matchedLegacy := make(map[int]bool)
			for _, r := range match.MatchedLegacyRows {
				matchedLegacy[r] = true
			}
			matchedCloud := make(map[int]bool)
			for _, r := range match.MatchedCloudRows {
				matchedCloud[r] = true
			}

			return match.LegacyOnly.NumRows() == legacyOnly &&
				match.CloudOnly.NumRows() == cloudOnly &&
				match.Matched.NumRows() == matched &&
				len(matchedLegacy)+legacyOnly == len(lkeys) &&
				len(matchedCloud)+cloudOnly == len(ckeys)
		},
		gen.SliceOf(gen.IntRange(0, 8)),
		gen.SliceOf(gen.IntRange(0, 8)),
	))

	properties.TestingRun(t)
}

func TestProperty_MismatchTotals(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)
	keys := SharedKey{Columns: []string{"id"}}

	properties.Property("cell total equals row totals and column totals", prop.ForAll(
		func(lvals, cvals []int) bool {
			n := len(lvals)
			if len(cvals) < n {
				n = len(cvals)
			}
			ids := make([]int, n)
			for i := range ids {
				ids[i] = i
			}
			legacy, err := keyedTable(ids, lvals)
			if err != nil {
				return false
			}
			defer legacy.Release()
			cloud, err := keyedTable(ids, cvals)
			if err != nil {
				return false
			}
			defer cloud.Release()

			match, _, err := MatchRows(context.Background(), legacy, cloud, keys)
			if err != nil {
				return false
			}
			defer match.Release()

			report, w, err := CompareValues(context.Background(), match, DiffSchemas(legacy, cloud), keys, ValueOptions{Workers: 2})
			if err != nil || w != nil {
				return false
			}
			defer report.Release()

			rowSum, colSum := 0, 0
			for _, n := range report.RowTotals {
				rowSum += n
			}
			for _, n := range report.ColumnCounts {
				colSum += n
			}
			return report.Total == rowSum && rowSum == colSum
		},
		gen.SliceOf(gen.IntRange(0, 3)),
		gen.SliceOf(gen.IntRange(0, 3)),
	))

	properties.TestingRun(t)
}
