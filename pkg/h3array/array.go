package h3array

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	h3 "github.com/uber/h3-go/v4"
)

type indexArray struct {
	arr *array.Uint64
}

func (a indexArray) Len() int {
	if a.arr == nil {
		return 0
	}
	return a.arr.Len()
}

// Array returns the underlying uint64 column. The caller does not own it.
func (a indexArray) Array() *array.Uint64 { return a.arr }

func (a indexArray) IsNull(i int) bool { return a.arr.IsNull(i) }

func (a indexArray) NullN() int {
	if a.arr == nil {
		return 0
	}
	return a.arr.NullN()
}

func (a indexArray) Release() {
	if a.arr != nil {
		a.arr.Release()
	}
}

func (a indexArray) value(i int) (uint64, bool) {
	if a.arr.IsNull(i) {
		return 0, false
	}
	return a.arr.Value(i), true
}

// CellArray is a nullable column of H3 cells. Every non-null value is a valid
// cell index.
type CellArray struct{ indexArray }

func (a CellArray) Cell(i int) (h3.Cell, bool) {
	v, ok := a.value(i)
	return h3.Cell(v), ok
}

// Cells returns the non-null cells in column order.
func (a CellArray) Cells() []h3.Cell {
	out := make([]h3.Cell, 0, a.Len()-a.NullN())
	for i := 0; i < a.Len(); i++ {
		if c, ok := a.Cell(i); ok {
			out = append(out, c)
		}
	}
	return out
}

type VertexArray struct{ indexArray }

func (a VertexArray) Vertex(i int) (h3.Vertex, bool) {
	v, ok := a.value(i)
	return h3.Vertex(v), ok
}

type DirectedEdgeArray struct{ indexArray }

func (a DirectedEdgeArray) DirectedEdge(i int) (h3.DirectedEdge, bool) {
	v, ok := a.value(i)
	return h3.DirectedEdge(v), ok
}

func isValidCell(v uint64) bool   { return h3.Cell(v).IsValid() }
func isValidVertex(v uint64) bool { return h3.Vertex(v).IsValid() }
func isValidEdge(v uint64) bool   { return h3.DirectedEdge(v).IsValid() }

func checkIndexes(arr *array.Uint64, valid func(uint64) bool, kind error) error {
	for i := 0; i < arr.Len(); i++ {
		if arr.IsNull(i) {
			continue
		}
		if v := arr.Value(i); !valid(v) {
			return fmt.Errorf("%w at position %d: %x", kind, i, v)
		}
	}
	return nil
}

// NewCellArray wraps arr after checking every non-null value is a valid cell.
// The returned array holds its own reference to arr.
func NewCellArray(arr *array.Uint64) (CellArray, error) {
	if err := checkIndexes(arr, isValidCell, ErrInvalidCell); err != nil {
		return CellArray{}, err
	}
	arr.Retain()
	return CellArray{indexArray{arr}}, nil
}

func NewVertexArray(arr *array.Uint64) (VertexArray, error) {
	if err := checkIndexes(arr, isValidVertex, ErrInvalidVertex); err != nil {
		return VertexArray{}, err
	}
	arr.Retain()
	return VertexArray{indexArray{arr}}, nil
}

func NewDirectedEdgeArray(arr *array.Uint64) (DirectedEdgeArray, error) {
	if err := checkIndexes(arr, isValidEdge, ErrInvalidDirectedEdge); err != nil {
		return DirectedEdgeArray{}, err
	}
	arr.Retain()
	return DirectedEdgeArray{indexArray{arr}}, nil
}

// AsCellArray converts an arbitrary arrow column into a CellArray. Only uint64
// and int64 columns are accepted.
func (e *Engine) AsCellArray(col arrow.Array) (CellArray, error) {
	switch a := col.(type) {
	case *array.Uint64:
		return NewCellArray(a)
	case *array.Int64:
		b := array.NewUint64Builder(e.mem)
		defer b.Release()
		b.Reserve(a.Len())
		for i := 0; i < a.Len(); i++ {
			if a.IsNull(i) {
				b.AppendNull()
				continue
			}
			b.Append(uint64(a.Value(i)))
		}
		u := b.NewUint64Array()
		defer u.Release()
		return NewCellArray(u)
	default:
		return CellArray{}, fmt.Errorf("%w: cell column must be uint64, got %s", ErrInvalidArgument, col.DataType())
	}
}

// CellsFromSlice builds a CellArray without nulls.
func (e *Engine) CellsFromSlice(cells []h3.Cell) CellArray {
	b := array.NewUint64Builder(e.mem)
	defer b.Release()
	b.Reserve(len(cells))
	for _, c := range cells {
		b.Append(uint64(c))
	}
	return CellArray{indexArray{b.NewUint64Array()}}
}

// NewUint64 builds a column from parallel value and validity slices. A nil
// validity slice means all values are set.
func (e *Engine) NewUint64(vals []uint64, valid []bool) *array.Uint64 {
	b := array.NewUint64Builder(e.mem)
	defer b.Release()
	b.AppendValues(vals, valid)
	return b.NewUint64Array()
}

func (e *Engine) newCells(vals []uint64, valid []bool) CellArray {
	return CellArray{indexArray{e.NewUint64(vals, valid)}}
}

// CellsValid returns a copy of arr where every value that is not a valid cell
// is null.
func (e *Engine) CellsValid(arr *array.Uint64) CellArray {
	return CellArray{indexArray{e.lenient(arr, isValidCell)}}
}

func (e *Engine) VertexesValid(arr *array.Uint64) VertexArray {
	return VertexArray{indexArray{e.lenient(arr, isValidVertex)}}
}

func (e *Engine) DirectedEdgesValid(arr *array.Uint64) DirectedEdgeArray {
	return DirectedEdgeArray{indexArray{e.lenient(arr, isValidEdge)}}
}

// CellsValidMask reports per position whether arr holds a valid cell. The
// mask itself has no nulls.
func (e *Engine) CellsValidMask(arr *array.Uint64) *array.Boolean {
	return e.validMask(arr, isValidCell)
}

func (e *Engine) VertexesValidMask(arr *array.Uint64) *array.Boolean {
	return e.validMask(arr, isValidVertex)
}

func (e *Engine) DirectedEdgesValidMask(arr *array.Uint64) *array.Boolean {
	return e.validMask(arr, isValidEdge)
}

func (e *Engine) lenient(arr *array.Uint64, valid func(uint64) bool) *array.Uint64 {
	n := arr.Len()
	vals := make([]uint64, n)
	ok := make([]bool, n)
	for i := 0; i < n; i++ {
		if arr.IsNull(i) {
			continue
		}
		v := arr.Value(i)
		if valid(v) {
			vals[i], ok[i] = v, true
		}
	}
	return e.NewUint64(vals, ok)
}

func (e *Engine) validMask(arr *array.Uint64, valid func(uint64) bool) *array.Boolean {
	b := array.NewBooleanBuilder(e.mem)
	defer b.Release()
	b.Reserve(arr.Len())
	for i := 0; i < arr.Len(); i++ {
		b.Append(!arr.IsNull(i) && valid(arr.Value(i)))
	}
	return b.NewBooleanArray()
}
