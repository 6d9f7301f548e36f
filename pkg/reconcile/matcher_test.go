package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/reconcile/pkg/table"
)

func TestMatchRowsPartitions(t *testing.T) {
	schema := fields("id", i64, "name", str)
	legacy := build(t, schema, []any{1, "a"}, []any{2, "b"}, []any{3, "c"})
	cloud := build(t, schema, []any{2, "b"}, []any{3, "c"}, []any{4, "d"}, []any{5, "e"})

	res, w, err := MatchRows(context.Background(), legacy, cloud, mustShared(t, "id"))
	require.NoError(t, err)
	require.Nil(t, w)
	defer res.Release()

	assert.Equal(t, 1, res.LegacyOnly.NumRows())
	assert.Equal(t, 2, res.CloudOnly.NumRows())
	assert.Equal(t, 2, res.Matched.NumRows())
	assert.Equal(t, []int{1, 2}, res.MatchedLegacyRows)
	assert.Equal(t, []int{0, 1}, res.MatchedCloudRows)
	assert.Equal(t, []string{"id", "name_legacy", "name_cloud"}, res.Matched.ColumnNames())

	name, ok := res.ColumnFor(table.Legacy, "name")
	require.True(t, ok)
	assert.Equal(t, "name_legacy", name)
	name, ok = res.ColumnFor(table.Cloud, "id")
	require.True(t, ok)
	assert.Equal(t, "id", name)
}

func TestMatchRowsPairedKeys(t *testing.T) {
	legacy := build(t, fields("account_id", i64, "balance", f64), []any{2001, 1.5}, []any{2005, 2.5})
	cloud := build(t, fields("account_num", i64, "balance", f64), []any{2001, 1.5}, []any{2007, 3.5})

	keys, err := NewPairedKeys([]string{"account_id"}, []string{"account_num"})
	require.NoError(t, err)
	res, w, err := MatchRows(context.Background(), legacy, cloud, keys)
	require.NoError(t, err)
	require.Nil(t, w)
	defer res.Release()

	assert.Equal(t, []string{"account_id", "balance_legacy", "account_num", "balance_cloud"}, res.Matched.ColumnNames())
	assert.Equal(t, 1, res.Matched.NumRows())
	assert.Equal(t, 1, res.LegacyOnly.NumRows())
	assert.Equal(t, 1, res.CloudOnly.NumRows())
}

func TestMatchRowsManyToMany(t *testing.T) {
	schema := fields("id", i64, "v", str)
	legacy := build(t, schema, []any{4, "x"}, []any{4, "y"})
	cloud := build(t, schema, []any{4, "x"}, []any{4, "x"}, []any{4, "z"})

	res, _, err := MatchRows(context.Background(), legacy, cloud, mustShared(t, "id"))
	require.NoError(t, err)
	defer res.Release()
	assert.Equal(t, 6, res.Matched.NumRows())
	assert.Zero(t, res.LegacyOnly.NumRows())
	assert.Zero(t, res.CloudOnly.NumRows())
}

func TestMatchRowsKeyTypeMismatch(t *testing.T) {
	legacy := build(t, fields("id", i64), []any{1})
	cloud := build(t, fields("id", str), []any{"1"})

	res, w, err := MatchRows(context.Background(), legacy, cloud, mustShared(t, "id"))
	require.NoError(t, err)
	assert.Nil(t, res)
	require.NotNil(t, w)
	assert.Equal(t, KeyTypeMismatch, w.Kind)
	assert.Equal(t, []string{"id"}, w.Columns)
	assert.Contains(t, w.Message, "id (int64) vs id (utf8)")
}

func TestMatchRowsMissingKey(t *testing.T) {
	legacy := build(t, fields("id", i64), []any{1})
	cloud := build(t, fields("key", i64), []any{1})

	_, _, err := MatchRows(context.Background(), legacy, cloud, mustShared(t, "id"))
	var kerr *KeyColumnError
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, table.Cloud, kerr.Side)
}
