package table

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
)

// Duplicated marks every row that repeats an earlier row across the given columns.
// The first occurrence is never marked. With no columns every column is compared.
func Duplicated(t *Table, columns ...string) ([]bool, error) {
	if len(columns) == 0 {
		columns = t.ColumnNames()
	}

	cols := make([]arrow.Array, 0, len(columns))
	for _, name := range columns {
		col, ok := t.Column(name)
		if !ok {
			return nil, fmt.Errorf("column %q not found", name)
		}
		cols = append(cols, col)
	}

	mask := make([]bool, t.NumRows())
	if len(cols) == 0 {
		// A table without columns has nothing to tell rows apart.
		for i := 1; i < len(mask); i++ {
			mask[i] = true
		}
		return mask, nil
	}

	hasher := newRowHasher(cols)
	seen := make(map[rowKey][]int)
	for row := range mask {
		key := hasher.key(row)
		for _, earlier := range seen[key] {
			if rowsEqual(cols, earlier, cols, row) {
				mask[row] = true
				break
			}
		}
		if !mask[row] {
			seen[key] = append(seen[key], row)
		}
	}
	return mask, nil
}

// CountTrue returns the number of set flags.
func CountTrue(mask []bool) int {
	n := 0
	for _, v := range mask {
		if v {
			n++
		}
	}
	return n
}
