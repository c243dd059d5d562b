package h3array

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/paulmach/orb"
	h3 "github.com/uber/h3-go/v4"
)

// CellBound returns the lng/lat envelope of a cell boundary in degrees.
func CellBound(c h3.Cell) (orb.Bound, error) {
	boundary, err := h3.CellToBoundary(c)
	if err != nil {
		return orb.Bound{}, fmt.Errorf("boundary of %s: %w", c, err)
	}
	if len(boundary) == 0 {
		return orb.Bound{}, fmt.Errorf("%w: %s has an empty boundary", ErrInvalidCell, c)
	}
	b := orb.Bound{
		Min: orb.Point{boundary[0].Lng, boundary[0].Lat},
		Max: orb.Point{boundary[0].Lng, boundary[0].Lat},
	}
	for _, ll := range boundary[1:] {
		b = b.Extend(orb.Point{ll.Lng, ll.Lat})
	}
	return b, nil
}

// CellsBounds returns the envelope of all cells. ok is false when the array
// holds no cell.
func (e *Engine) CellsBounds(cells CellArray) (bound orb.Bound, ok bool, err error) {
	for i := 0; i < cells.Len(); i++ {
		c, cok := cells.Cell(i)
		if !cok {
			continue
		}
		b, err := CellBound(c)
		if err != nil {
			return orb.Bound{}, false, err
		}
		if !ok {
			bound, ok = b, true
			continue
		}
		bound = bound.Union(b)
	}
	return bound, ok, nil
}

// CellsBoundsArrays returns minx, miny, maxx and maxy columns per cell.
func (e *Engine) CellsBoundsArrays(ctx context.Context, cells CellArray) (arrow.Record, error) {
	n := cells.Len()
	minx := make([]float64, n)
	miny := make([]float64, n)
	maxx := make([]float64, n)
	maxy := make([]float64, n)
	ok := make([]bool, n)
	err := e.ForChunks(ctx, n, func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			c, cok := cells.Cell(i)
			if !cok {
				continue
			}
			b, err := CellBound(c)
			if err != nil {
				return err
			}
			minx[i], miny[i], maxx[i], maxy[i] = b.Min.X(), b.Min.Y(), b.Max.X(), b.Max.Y()
			ok[i] = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tableOwning([]string{ColMinX, ColMinY, ColMaxX, ColMaxY},
		e.NewFloat64(minx, ok), e.NewFloat64(miny, ok), e.NewFloat64(maxx, ok), e.NewFloat64(maxy, ok)), nil
}
