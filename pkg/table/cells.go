package table

import (
	"encoding/binary"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// valueKind groups Arrow types into classes whose values can be compared with each other.
type valueKind uint8

const (
	kindOther valueKind = iota
	kindInt
	kindUint
	kindFloat
	kindBool
	kindString
)

func kindOf(dt arrow.DataType) valueKind {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64:
		return kindInt
	case arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return kindUint
	case arrow.FLOAT32, arrow.FLOAT64:
		return kindFloat
	case arrow.BOOL:
		return kindBool
	case arrow.STRING, arrow.LARGE_STRING:
		return kindString
	default:
		return kindOther
	}
}

func isNumeric(k valueKind) bool {
	return k == kindInt || k == kindUint || k == kindFloat
}

// Comparable reports whether values of type a can be compared for equality with values
// of type b. Numeric types compare with each other, strings with strings, and every
// other type only with an identical type.
func Comparable(a, b arrow.DataType) bool {
	ka, kb := kindOf(a), kindOf(b)
	switch {
	case isNumeric(ka) && isNumeric(kb):
		return true
	case ka == kindOther || kb == kindOther:
		return arrow.TypeEqual(a, b)
	default:
		return ka == kb
	}
}

// CellsEqual compares a[i] with b[j]. Two nulls are equal, a null never equals a value.
// Floats are compared with a relative tolerance; NaN equals NaN. The column types must
// satisfy Comparable.
func CellsEqual(a arrow.Array, i int, b arrow.Array, j int, tolerance float64) bool {
	an, bn := a.IsNull(i), b.IsNull(j)
	if an || bn {
		return an && bn
	}

	ka, kb := kindOf(a.DataType()), kindOf(b.DataType())
	switch {
	case ka == kindInt && kb == kindInt:
		return intValue(a, i) == intValue(b, j)
	case ka == kindUint && kb == kindUint:
		return uintValue(a, i) == uintValue(b, j)
	case ka == kindInt && kb == kindUint:
		v := intValue(a, i)
		return v >= 0 && uint64(v) == uintValue(b, j)
	case ka == kindUint && kb == kindInt:
		v := intValue(b, j)
		return v >= 0 && uint64(v) == uintValue(a, i)
	case isNumeric(ka) && isNumeric(kb):
		return FloatEqual(floatValue(a, i), floatValue(b, j), tolerance)
	case ka == kindBool && kb == kindBool:
		return a.(*array.Boolean).Value(i) == b.(*array.Boolean).Value(j)
	case ka == kindString && kb == kindString:
		return stringValue(a, i) == stringValue(b, j)
	default:
		return a.ValueStr(i) == b.ValueStr(j)
	}
}

// FloatEqual compares two floats with a relative tolerance.
func FloatEqual(a, b, tolerance float64) bool {
	if a == b {
		return true
	}
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return false
	}

	diff := math.Abs(a - b)
	if a == 0 || b == 0 {
		return diff < tolerance
	}
	return diff/math.Max(math.Abs(a), math.Abs(b)) < tolerance
}

func intValue(arr arrow.Array, i int) int64 {
	switch c := arr.(type) {
	case *array.Int8:
		return int64(c.Value(i))
	case *array.Int16:
		return int64(c.Value(i))
	case *array.Int32:
		return int64(c.Value(i))
	case *array.Int64:
		return c.Value(i)
	}
	return 0
}

func uintValue(arr arrow.Array, i int) uint64 {
	switch c := arr.(type) {
	case *array.Uint8:
		return uint64(c.Value(i))
	case *array.Uint16:
		return uint64(c.Value(i))
	case *array.Uint32:
		return uint64(c.Value(i))
	case *array.Uint64:
		return c.Value(i)
	}
	return 0
}

func floatValue(arr arrow.Array, i int) float64 {
	switch c := arr.(type) {
	case *array.Float32:
		return float64(c.Value(i))
	case *array.Float64:
		return c.Value(i)
	}
	switch kindOf(arr.DataType()) {
	case kindInt:
		return float64(intValue(arr, i))
	case kindUint:
		return float64(uintValue(arr, i))
	}
	return math.NaN()
}

func stringValue(arr arrow.Array, i int) string {
	switch c := arr.(type) {
	case *array.String:
		return c.Value(i)
	case *array.LargeString:
		return c.Value(i)
	}
	return arr.ValueStr(i)
}

// appendCell appends a canonical encoding of arr[i] to buf. Cells that CellsEqual
// (with zero tolerance) considers equal encode identically.
func appendCell(buf []byte, arr arrow.Array, i int) []byte {
	if arr.IsNull(i) {
		return append(buf, 0)
	}

	switch k := kindOf(arr.DataType()); k {
	case kindInt:
		v := intValue(arr, i)
		if v >= 0 {
			return binary.LittleEndian.AppendUint64(append(buf, byte(kindUint)), uint64(v))
		}
		return binary.LittleEndian.AppendUint64(append(buf, byte(kindInt)), uint64(v))
	case kindUint:
		return binary.LittleEndian.AppendUint64(append(buf, byte(kindUint)), uintValue(arr, i))
	case kindFloat:
		f := floatValue(arr, i)
		switch {
		case math.IsNaN(f):
			f = math.NaN()
		case f == 0:
			f = 0
		}
		return binary.LittleEndian.AppendUint64(append(buf, byte(kindFloat)), math.Float64bits(f))
	case kindBool:
		if arr.(*array.Boolean).Value(i) {
			return append(buf, byte(kindBool), 1)
		}
		return append(buf, byte(kindBool), 0)
	default:
		s := stringValue(arr, i)
		buf = append(buf, byte(k))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s)))
		return append(buf, s...)
	}
}
