package h3array

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	h3 "github.com/uber/h3-go/v4"
)

// CellsResolution returns the resolution of every cell; nulls stay null.
func (e *Engine) CellsResolution(cells CellArray) *array.Uint8 {
	b := array.NewUint8Builder(e.mem)
	defer b.Release()
	b.Reserve(cells.Len())
	for i := 0; i < cells.Len(); i++ {
		c, ok := cells.Cell(i)
		if !ok {
			b.AppendNull()
			continue
		}
		b.Append(uint8(c.Resolution()))
	}
	return b.NewUint8Array()
}

// toResolution maps one cell to res: children when res is finer, the parent
// when it is coarser.
func toResolution(c h3.Cell, res int) ([]uint64, error) {
	cr := c.Resolution()
	switch {
	case cr < res:
		children, err := c.Children(res)
		if err != nil {
			return nil, fmt.Errorf("children of %s at %d: %w", c, res, err)
		}
		out := make([]uint64, len(children))
		for i, ch := range children {
			out[i] = uint64(ch)
		}
		return out, nil
	case cr > res:
		p, err := c.Parent(res)
		if err != nil {
			return nil, fmt.Errorf("parent of %s at %d: %w", c, res, err)
		}
		return []uint64{uint64(p)}, nil
	default:
		return []uint64{uint64(c)}, nil
	}
}

func (e *Engine) changeResolution(ctx context.Context, cells CellArray, res int) ([][]uint64, []bool, error) {
	if err := validateRes(res); err != nil {
		return nil, nil, err
	}
	if err := e.checkExpansion(cells.Cells(), res); err != nil {
		return nil, nil, err
	}
	n := cells.Len()
	lists := make([][]uint64, n)
	valid := make([]bool, n)
	err := e.ForChunks(ctx, n, func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			c, ok := cells.Cell(i)
			if !ok {
				continue
			}
			out, err := toResolution(c, res)
			if err != nil {
				return err
			}
			lists[i], valid[i] = out, true
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return lists, valid, nil
}

// ChangeResolution returns all cells moved to res. The output may be longer
// than the input; nulls are dropped.
func (e *Engine) ChangeResolution(ctx context.Context, cells CellArray, res int) (CellArray, error) {
	lists, _, err := e.changeResolution(ctx, cells, res)
	if err != nil {
		return CellArray{}, err
	}
	return e.newCells(flatten64(lists), nil), nil
}

// ChangeResolutionList keeps input positions: one list per input cell and a
// null list for every null.
func (e *Engine) ChangeResolutionList(ctx context.Context, cells CellArray, res int) (*array.List, error) {
	lists, valid, err := e.changeResolution(ctx, cells, res)
	if err != nil {
		return nil, err
	}
	return e.NewUint64List(lists, valid), nil
}

// ChangeResolutionPaired returns a cell_before/cell_after table where every
// input cell is repeated once per resulting cell.
func (e *Engine) ChangeResolutionPaired(ctx context.Context, cells CellArray, res int) (arrow.Record, error) {
	lists, _, err := e.changeResolution(ctx, cells, res)
	if err != nil {
		return nil, err
	}
	var before, after []uint64
	for i, l := range lists {
		if len(l) == 0 {
			continue
		}
		c, _ := cells.Cell(i)
		for range l {
			before = append(before, uint64(c))
		}
		after = append(after, l...)
	}
	return tableOwning([]string{ColCellBefore, ColCellAfter},
		e.NewUint64(before, nil), e.NewUint64(after, nil)), nil
}
