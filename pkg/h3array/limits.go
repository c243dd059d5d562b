package h3array

import (
	"fmt"
	"math"

	h3 "github.com/uber/h3-go/v4"
)

// maxK keeps diskSize from overflowing; any disk this wide is over every
// sensible limit anyway.
const maxK = 1 << 24

// CheckCells fails with ErrInvalidArgument when n exceeds the engine limit.
// what names the output in the error.
func (e *Engine) CheckCells(n int64, what string) error {
	if n < 0 || n > e.maxCells {
		return fmt.Errorf("%w: %s would produce %s cells, limit is %d", ErrInvalidArgument, what, countString(n), e.maxCells)
	}
	return nil
}

func countString(n int64) string {
	if n < 0 || n == math.MaxInt64 {
		return "too many"
	}
	return fmt.Sprintf("%d", n)
}

// MulSat multiplies non-negative a and b, saturating at math.MaxInt64.
func MulSat(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxInt64/b {
		return math.MaxInt64
	}
	return a * b
}

func addSat(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

// diskSize is the number of cells within distance k of a hexagon.
func diskSize(k int) int64 {
	if k > maxK {
		return math.MaxInt64
	}
	kk := int64(k)
	return 3*kk*(kk+1) + 1
}

func (e *Engine) checkDisks(cells CellArray, k int) error {
	rows := int64(cells.Len() - cells.NullN())
	return e.CheckCells(MulSat(max(rows, 1), diskSize(k)), fmt.Sprintf("grid disk of k=%d", k))
}

// checkExpansion bounds moving cells to a finer res; every resolution step
// multiplies a hexagon by seven.
func (e *Engine) checkExpansion(cells []h3.Cell, res int) error {
	var total int64
	for _, c := range cells {
		total = addSat(total, childCount(c.Resolution(), res))
	}
	return e.CheckCells(total, fmt.Sprintf("moving to resolution %d", res))
}

func childCount(from, to int) int64 {
	if to <= from {
		return 1
	}
	return int64(math.Pow(7, float64(to-from)))
}
