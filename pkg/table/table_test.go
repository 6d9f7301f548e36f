package table

import (
	"context"
	"math"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func peopleSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "score", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	}, nil)
}

func TestNewRejectsMalformed(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestBuildAndAccessors(t *testing.T) {
	tbl, err := Build(memory.NewGoAllocator(), peopleSchema(), [][]any{
		{1, "Alice", 1.5},
		{2, nil, 2.5},
	})
	require.NoError(t, err)
	defer tbl.Release()

	assert.Equal(t, 2, tbl.NumRows())
	assert.Equal(t, []string{"id", "name", "score"}, tbl.ColumnNames())
	assert.True(t, tbl.HasColumn("name"))
	assert.False(t, tbl.HasColumn("missing"))

	dt, ok := tbl.DataType("score")
	require.True(t, ok)
	assert.True(t, arrow.TypeEqual(arrow.PrimitiveTypes.Float64, dt))

	col, ok := tbl.Column("name")
	require.True(t, ok)
	assert.True(t, col.IsNull(1))
}

func TestBuildRejectsWrongArity(t *testing.T) {
	_, err := Build(nil, peopleSchema(), [][]any{{1, "Alice"}})
	assert.Error(t, err)
}

func TestTakeWithMissingRows(t *testing.T) {
	tbl := MustBuild(nil, peopleSchema(), [][]any{
		{1, "Alice", 1.5},
		{2, "Bob", 2.5},
		{3, "Carol", 3.5},
	})
	defer tbl.Release()

	taken, err := tbl.Take(context.Background(), []int{2, -1, 0})
	require.NoError(t, err)
	defer taken.Release()

	require.Equal(t, 3, taken.NumRows())
	ids, _ := taken.Column("id")
	assert.Equal(t, int64(3), ids.(*array.Int64).Value(0))
	assert.True(t, ids.IsNull(1))
	assert.Equal(t, int64(1), ids.(*array.Int64).Value(2))

	names, _ := taken.Column("name")
	assert.Equal(t, "Carol", names.(*array.String).Value(0))
	assert.True(t, names.IsNull(1))
}

func TestTakeEmpty(t *testing.T) {
	tbl := MustBuild(nil, peopleSchema(), [][]any{{1, "Alice", 1.5}})
	defer tbl.Release()

	taken, err := tbl.Take(context.Background(), nil)
	require.NoError(t, err)
	defer taken.Release()
	assert.Equal(t, 0, taken.NumRows())
	assert.Equal(t, tbl.ColumnNames(), taken.ColumnNames())
}

func TestDuplicatedFirstOccurrence(t *testing.T) {
	tbl := MustBuild(nil, peopleSchema(), [][]any{
		{1, "Alice", 1.5},
		{2, "Bob", 2.5},
		{1, "Alice", 1.5},
		{1, "Alice", 1.5},
		{1, "Alice", 9.0},
	})
	defer tbl.Release()

	mask, err := Duplicated(tbl)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, true, true, false}, mask)
	assert.Equal(t, 2, CountTrue(mask))

	byID, err := Duplicated(tbl, "id")
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, true, true, true}, byID)

	_, err = Duplicated(tbl, "nope")
	assert.Error(t, err)
}

func TestDuplicatedNullsAreEqual(t *testing.T) {
	tbl := MustBuild(nil, peopleSchema(), [][]any{
		{nil, nil, math.NaN()},
		{nil, nil, math.NaN()},
		{nil, "x", nil},
	})
	defer tbl.Release()

	mask, err := Duplicated(tbl)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true, false}, mask)
}

func TestComparable(t *testing.T) {
	assert.True(t, Comparable(arrow.PrimitiveTypes.Int64, arrow.PrimitiveTypes.Float64))
	assert.True(t, Comparable(arrow.PrimitiveTypes.Int32, arrow.PrimitiveTypes.Uint8))
	assert.True(t, Comparable(arrow.BinaryTypes.String, arrow.BinaryTypes.LargeString))
	assert.True(t, Comparable(arrow.FixedWidthTypes.Date32, arrow.FixedWidthTypes.Date32))
	assert.False(t, Comparable(arrow.PrimitiveTypes.Int64, arrow.BinaryTypes.String))
	assert.False(t, Comparable(arrow.FixedWidthTypes.Boolean, arrow.BinaryTypes.String))
	assert.False(t, Comparable(arrow.FixedWidthTypes.Date32, arrow.BinaryTypes.String))
}

func TestCellsEqualAcrossNumericTypes(t *testing.T) {
	ints := MustBuild(nil, arrow.NewSchema([]arrow.Field{{Name: "v", Type: arrow.PrimitiveTypes.Int64}}, nil),
		[][]any{{85}, {92}, {nil}})
	defer ints.Release()
	floats := MustBuild(nil, arrow.NewSchema([]arrow.Field{{Name: "v", Type: arrow.PrimitiveTypes.Float64}}, nil),
		[][]any{{85.0}, {92.3}, {nil}})
	defer floats.Release()

	a, _ := ints.Column("v")
	b, _ := floats.Column("v")
	assert.True(t, CellsEqual(a, 0, b, 0, 0))
	assert.False(t, CellsEqual(a, 1, b, 1, 0))
	assert.True(t, CellsEqual(a, 2, b, 2, 0), "null equals null")
	assert.False(t, CellsEqual(a, 0, b, 2, 0), "value never equals null")
}

func TestFloatEqual(t *testing.T) {
	assert.True(t, FloatEqual(1.0, 1.0, 0))
	assert.True(t, FloatEqual(1.0, 1.0000001, 0.0001))
	assert.False(t, FloatEqual(1.0, 1.001, 0.0001))
	assert.True(t, FloatEqual(0.0, 0.00005, 0.0001))
	assert.True(t, FloatEqual(math.NaN(), math.NaN(), 0))
	assert.True(t, FloatEqual(math.Inf(1), math.Inf(1), 0))
	assert.False(t, FloatEqual(math.Inf(1), math.Inf(-1), 0.0001))
}

func TestSideString(t *testing.T) {
	assert.Equal(t, "legacy", Legacy.String())
	assert.Equal(t, "cloud", Cloud.String())
}
