package h3array

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/array"
	h3 "github.com/uber/h3-go/v4"
)

func (e *Engine) CellsAreaM2(ctx context.Context, cells CellArray) (*array.Float64, error) {
	return e.cellsFloat(ctx, cells, h3.CellAreaM2)
}

func (e *Engine) CellsAreaKm2(ctx context.Context, cells CellArray) (*array.Float64, error) {
	return e.cellsFloat(ctx, cells, h3.CellAreaKm2)
}

func (e *Engine) CellsAreaRads2(ctx context.Context, cells CellArray) (*array.Float64, error) {
	return e.cellsFloat(ctx, cells, h3.CellAreaRads2)
}

func (e *Engine) DirectedEdgesLengthM(ctx context.Context, edges DirectedEdgeArray) (*array.Float64, error) {
	return e.edgesFloat(ctx, edges, h3.EdgeLengthM)
}

func (e *Engine) DirectedEdgesLengthKm(ctx context.Context, edges DirectedEdgeArray) (*array.Float64, error) {
	return e.edgesFloat(ctx, edges, h3.EdgeLengthKm)
}

func (e *Engine) DirectedEdgesLengthRads(ctx context.Context, edges DirectedEdgeArray) (*array.Float64, error) {
	return e.edgesFloat(ctx, edges, h3.EdgeLengthRads)
}

func (e *Engine) cellsFloat(ctx context.Context, cells CellArray, f func(h3.Cell) (float64, error)) (*array.Float64, error) {
	return e.mapFloat(ctx, cells.indexArray, func(v uint64) (float64, error) {
		out, err := f(h3.Cell(v))
		if err != nil {
			return 0, fmt.Errorf("cell %x: %w", v, err)
		}
		return out, nil
	})
}

func (e *Engine) edgesFloat(ctx context.Context, edges DirectedEdgeArray, f func(h3.DirectedEdge) (float64, error)) (*array.Float64, error) {
	return e.mapFloat(ctx, edges.indexArray, func(v uint64) (float64, error) {
		out, err := f(h3.DirectedEdge(v))
		if err != nil {
			return 0, fmt.Errorf("directed edge %x: %w", v, err)
		}
		return out, nil
	})
}

func (e *Engine) mapFloat(ctx context.Context, a indexArray, f func(uint64) (float64, error)) (*array.Float64, error) {
	n := a.Len()
	vals := make([]float64, n)
	valid := make([]bool, n)
	err := e.ForChunks(ctx, n, func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			v, ok := a.value(i)
			if !ok {
				continue
			}
			out, err := f(v)
			if err != nil {
				return err
			}
			vals[i], valid[i] = out, true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e.NewFloat64(vals, valid), nil
}
