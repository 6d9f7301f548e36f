package table

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/spaolacci/murmur3"
)

// rowKey is the 128-bit murmur3 digest of a row's cells.
type rowKey [2]uint64

// rowHasher hashes selected cells of a row. It is not safe for concurrent use.
type rowHasher struct {
	cols []arrow.Array
	buf  []byte
	h    murmur3.Hash128
}

func newRowHasher(cols []arrow.Array) *rowHasher {
	return &rowHasher{
		cols: cols,
		buf:  make([]byte, 0, 64),
		h:    murmur3.New128(),
	}
}

func (r *rowHasher) key(row int) rowKey {
	r.buf = r.buf[:0]
	for _, col := range r.cols {
		r.buf = appendCell(r.buf, col, row)
	}
	r.h.Reset()
	_, _ = r.h.Write(r.buf)
	h1, h2 := r.h.Sum128()
	return rowKey{h1, h2}
}

// rowsEqual compares row i of a with row j of b cell by cell.
func rowsEqual(a []arrow.Array, i int, b []arrow.Array, j int) bool {
	for c := range a {
		if !CellsEqual(a[c], i, b[c], j, 0) {
			return false
		}
	}
	return true
}
