package h3array

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	h3 "github.com/uber/h3-go/v4"
)

// CellsToLocalIJ converts every cell to IJ coordinates relative to the anchor
// at the same position. The result has anchor, i and j columns.
func (e *Engine) CellsToLocalIJ(ctx context.Context, cells, anchors CellArray, setFailingToInvalid bool) (arrow.Record, error) {
	if cells.Len() != anchors.Len() {
		return nil, fmt.Errorf("%w: %d cells, %d anchors", ErrLengthMismatch, cells.Len(), anchors.Len())
	}
	return e.cellsToLocalIJ(ctx, cells, anchors.Cell, setFailingToInvalid)
}

// CellsToLocalIJAnchor is CellsToLocalIJ with a single anchor for all cells.
func (e *Engine) CellsToLocalIJAnchor(ctx context.Context, cells CellArray, anchor h3.Cell, setFailingToInvalid bool) (arrow.Record, error) {
	if !anchor.IsValid() {
		return nil, fmt.Errorf("%w: anchor %x", ErrInvalidCell, uint64(anchor))
	}
	return e.cellsToLocalIJ(ctx, cells, func(int) (h3.Cell, bool) { return anchor, true }, setFailingToInvalid)
}

func (e *Engine) cellsToLocalIJ(ctx context.Context, cells CellArray, anchorAt func(int) (h3.Cell, bool), setFailingToInvalid bool) (arrow.Record, error) {
	n := cells.Len()
	anchorVals := make([]uint64, n)
	anchorOK := make([]bool, n)
	is := make([]int32, n)
	js := make([]int32, n)
	ok := make([]bool, n)
	err := e.ForChunks(ctx, n, func(lo, hi int) error {
		for p := lo; p < hi; p++ {
			anchor, aok := anchorAt(p)
			if !aok {
				continue
			}
			anchorVals[p], anchorOK[p] = uint64(anchor), true
			c, cok := cells.Cell(p)
			if !cok {
				continue
			}
			ij, err := h3.CellToLocalIJ(anchor, c)
			if err != nil {
				if setFailingToInvalid {
					continue
				}
				return fmt.Errorf("%w: cell %s from anchor %s: %w", ErrLocalIJ, c, anchor, err)
			}
			is[p], js[p], ok[p] = int32(ij.I), int32(ij.J), true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tableOwning([]string{ColAnchor, ColI, ColJ},
		e.NewUint64(anchorVals, anchorOK), e.newInt32(is, ok), e.newInt32(js, ok)), nil
}

// LocalIJToCells is the inverse of CellsToLocalIJ. A null anchor, i or j
// gives a null cell.
func (e *Engine) LocalIJToCells(ctx context.Context, anchors CellArray, i, j *array.Int32, setFailingToInvalid bool) (CellArray, error) {
	n := anchors.Len()
	if i.Len() != n || j.Len() != n {
		return CellArray{}, fmt.Errorf("%w: %d anchors, %d i, %d j", ErrLengthMismatch, n, i.Len(), j.Len())
	}
	vals := make([]uint64, n)
	ok := make([]bool, n)
	err := e.ForChunks(ctx, n, func(lo, hi int) error {
		for p := lo; p < hi; p++ {
			anchor, aok := anchors.Cell(p)
			if !aok || i.IsNull(p) || j.IsNull(p) {
				continue
			}
			ij := h3.CoordIJ{I: int(i.Value(p)), J: int(j.Value(p))}
			c, err := h3.LocalIJToCell(anchor, ij)
			if err != nil {
				if setFailingToInvalid {
					continue
				}
				return fmt.Errorf("%w: (%d,%d) from anchor %s: %w", ErrLocalIJ, ij.I, ij.J, anchor, err)
			}
			vals[p], ok[p] = uint64(c), true
		}
		return nil
	})
	if err != nil {
		return CellArray{}, err
	}
	return e.newCells(vals, ok), nil
}
