package reconcile

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/reconcile/pkg/table"
)

func fields(pairs ...any) *arrow.Schema {
	var fs []arrow.Field
	for i := 0; i < len(pairs); i += 2 {
		fs = append(fs, arrow.Field{Name: pairs[i].(string), Type: pairs[i+1].(arrow.DataType), Nullable: true})
	}
	return arrow.NewSchema(fs, nil)
}

func build(t *testing.T, schema *arrow.Schema, rows ...[]any) *table.Table {
	t.Helper()
	tbl, err := table.Build(nil, schema, rows)
	require.NoError(t, err)
	t.Cleanup(tbl.Release)
	return tbl
}

func mustShared(t *testing.T, cols ...string) KeySpec {
	t.Helper()
	k, err := NewSharedKey(cols...)
	require.NoError(t, err)
	return k
}

var (
	i64 = arrow.PrimitiveTypes.Int64
	f64 = arrow.PrimitiveTypes.Float64
	str = arrow.BinaryTypes.String

	boolType = arrow.FixedWidthTypes.Boolean
)
