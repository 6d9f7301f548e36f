package reconcile

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compareFixture(t *testing.T, opts ValueOptions) MismatchReport {
	t.Helper()
	schema := fields("id", i64, "name", str, "score", f64)
	legacy := build(t, schema,
		[]any{1, "a", 1.0},
		[]any{2, "b", 2.0},
		[]any{3, nil, 3.0},
		[]any{4, nil, nil},
		[]any{5, "e", math.NaN()},
	)
	cloud := build(t, schema,
		[]any{1, "a", 1.0},
		[]any{2, "B", 2.0},
		[]any{3, "c", 3.0000001},
		[]any{4, nil, nil},
		[]any{5, "e", math.NaN()},
	)
	keys := mustShared(t, "id")

	match, w, err := MatchRows(context.Background(), legacy, cloud, keys)
	require.NoError(t, err)
	require.Nil(t, w)
	t.Cleanup(match.Release)

	report, w, err := CompareValues(context.Background(), match, DiffSchemas(legacy, cloud), keys, opts)
	require.NoError(t, err)
	require.Nil(t, w)
	t.Cleanup(report.Release)
	return report
}

func TestCompareValues(t *testing.T) {
	report := compareFixture(t, ValueOptions{Workers: 2})

	assert.Equal(t, []string{"name", "score"}, report.Columns)
	assert.True(t, report.HasComparedColumns())
	assert.Equal(t, []bool{false, true, true, false, false}, report.Flags["name"])
	assert.Equal(t, []bool{false, false, true, false, false}, report.Flags["score"])
	assert.Equal(t, 2, report.ColumnCounts["name"])
	assert.Equal(t, 1, report.ColumnCounts["score"])
	assert.Equal(t, []int{0, 1, 2, 0, 0}, report.RowTotals)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, []int{1, 2}, report.MismatchedRows)

	require.NotNil(t, report.Mismatched)
	assert.Equal(t, 2, report.Mismatched.NumRows())
	assert.Equal(t, []string{
		"id", "name_legacy", "score_legacy", "name_cloud", "score_cloud",
		"name_mismatch", "score_mismatch", MismatchSumColumn,
	}, report.Mismatched.ColumnNames())
}

func TestCompareValuesTolerance(t *testing.T) {
	report := compareFixture(t, ValueOptions{Tolerance: 1e-6})

	assert.Zero(t, report.ColumnCounts["score"])
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, []int{1, 2}, report.MismatchedRows)
}

func TestCompareValuesNoComparedColumns(t *testing.T) {
	legacy := build(t, fields("id", i64, "a", str), []any{1, "x"})
	cloud := build(t, fields("id", i64, "b", str), []any{1, "y"})
	keys := mustShared(t, "id")

	match, _, err := MatchRows(context.Background(), legacy, cloud, keys)
	require.NoError(t, err)
	defer match.Release()

	report, w, err := CompareValues(context.Background(), match, DiffSchemas(legacy, cloud), keys, ValueOptions{})
	require.NoError(t, err)
	assert.Nil(t, w)
	assert.False(t, report.HasComparedColumns())
	assert.Zero(t, report.Total)
	assert.Nil(t, report.Mismatched)
	assert.Equal(t, []int{0}, report.RowTotals)
}

func TestCompareValuesEmptyMatch(t *testing.T) {
	schema := fields("id", i64, "v", str)
	legacy := build(t, schema, []any{1, "x"})
	cloud := build(t, schema, []any{2, "x"})
	keys := mustShared(t, "id")

	match, _, err := MatchRows(context.Background(), legacy, cloud, keys)
	require.NoError(t, err)
	defer match.Release()

	report, w, err := CompareValues(context.Background(), match, DiffSchemas(legacy, cloud), keys, ValueOptions{})
	require.NoError(t, err)
	assert.Nil(t, w)
	assert.Equal(t, []string{"v"}, report.Columns)
	assert.Zero(t, report.Total)
	assert.Empty(t, report.RowTotals)

	report, w, err = CompareValues(context.Background(), nil, DiffSchemas(legacy, cloud), keys, ValueOptions{})
	require.NoError(t, err)
	assert.Nil(t, w)
	assert.Zero(t, report.Total)
}

func TestCompareValuesIncomparableTypes(t *testing.T) {
	legacy := build(t, fields("id", i64, "score", f64, "active", str), []any{1, 85.5, "Y"})
	cloud := build(t, fields("id", i64, "score", i64, "active", boolType), []any{1, 85, true})
	keys := mustShared(t, "id")

	match, _, err := MatchRows(context.Background(), legacy, cloud, keys)
	require.NoError(t, err)
	defer match.Release()

	report, w, err := CompareValues(context.Background(), match, DiffSchemas(legacy, cloud), keys, ValueOptions{})
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, ValueComparisonFailure, w.Kind)
	assert.Contains(t, w.Message, "active")
	assert.NotContains(t, w.Message, "score")
	assert.Zero(t, report.Total)
	assert.Nil(t, report.Mismatched)
	assert.Empty(t, report.MismatchedRows)
	assert.Equal(t, []int{0}, report.RowTotals)
}

func TestCompareValuesCrossNumeric(t *testing.T) {
	legacy := build(t, fields("id", i64, "score", f64), []any{1, 85.0}, []any{2, 92.3})
	cloud := build(t, fields("id", i64, "score", i64), []any{1, 85}, []any{2, 92})
	keys := mustShared(t, "id")

	match, _, err := MatchRows(context.Background(), legacy, cloud, keys)
	require.NoError(t, err)
	defer match.Release()

	report, w, err := CompareValues(context.Background(), match, DiffSchemas(legacy, cloud), keys, ValueOptions{})
	require.NoError(t, err)
	require.Nil(t, w)
	defer report.Release()
	assert.Equal(t, []bool{false, true}, report.Flags["score"])
}

func TestCompareValuesCancelled(t *testing.T) {
	schema := fields("id", i64, "v", str)
	legacy := build(t, schema, []any{1, "x"})
	cloud := build(t, schema, []any{1, "y"})
	keys := mustShared(t, "id")

	match, _, err := MatchRows(context.Background(), legacy, cloud, keys)
	require.NoError(t, err)
	defer match.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = CompareValues(ctx, match, DiffSchemas(legacy, cloud), keys, ValueOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompareValuesWithCollidingNames(t *testing.T) {
	legacy := build(t, fields("id", i64, "a", str, "a_cloud", str, "mismatch_sum", i64),
		[]any{1, "x", "old", 7},
		[]any{2, "y", "old", 7},
	)
	cloud := build(t, fields("id", i64, "a", str),
		[]any{1, "x"},
		[]any{2, "z"},
	)

	f, err := Compare(context.Background(), legacy, cloud, mustShared(t, "id"))
	require.NoError(t, err)
	defer f.Release()

	mm := f.Mismatches()
	assert.Equal(t, []string{"a"}, mm.Columns)
	assert.Equal(t, []bool{false, true}, mm.Flags["a"])
	assert.Equal(t, 1, mm.Total)
	require.NotNil(t, mm.Mismatched)
	assert.Equal(t, []string{
		"id", "a_legacy", "a_cloud", "mismatch_sum", "a_cloud_2",
		"a_mismatch", "mismatch_sum_2",
	}, mm.Mismatched.ColumnNames())
}
