package ops

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/mohammed-shakir/h3-columnar/pkg/h3array"
)

func init() {
	Register(Op{
		Name: "cells_area", Inputs: []string{h3array.ColCell}, Cacheable: true,
		Doc:     "exact cell area; unit=m2 (default), km2 or rads2",
		Handler: cellsArea,
	})
	Register(Op{
		Name: "directed_edges_length", Inputs: []string{h3array.ColEdge}, Cacheable: true,
		Doc:     "exact edge length; unit=m (default), km or rads",
		Handler: edgesLength,
	})
	Register(Op{
		Name: "cells_to_localij", Inputs: []string{h3array.ColCell, h3array.ColAnchor}, Cacheable: true,
		Doc:     "anchor, i and j per cell; the anchor comes from the anchor param or column",
		Handler: cellsToLocalIJ,
	})
	Register(Op{
		Name: "localij_to_cells", Inputs: []string{h3array.ColAnchor, h3array.ColI, h3array.ColJ}, Cacheable: true,
		Doc:     "cells from anchor, i and j columns",
		Handler: localIJToCells,
	})
	Register(Op{
		Name: "cells_to_coordinates", Inputs: []string{h3array.ColCell}, Cacheable: true,
		Doc:     "lat and lng of every cell centroid; radians=true for radians",
		Handler: cellsToCoordinates,
	})
	Register(Op{
		Name: "coordinates_to_cells", Inputs: []string{h3array.ColLat, h3array.ColLng, h3array.ColResolution}, Cacheable: true,
		Doc:     "cells at res, or at the resolution column when res is not given",
		Handler: coordinatesToCells,
	})
	Register(Op{
		Name: "cells_bounds", Inputs: []string{h3array.ColCell}, Cacheable: true,
		Doc:     "one row with the envelope of all cells; no rows when there is no cell",
		Handler: cellsBounds,
	})
	Register(Op{
		Name: "cells_bounds_arrays", Inputs: []string{h3array.ColCell}, Cacheable: true,
		Doc:     "minx, miny, maxx and maxy per cell",
		Handler: cellsBoundsArrays,
	})
}

func cellsArea(ctx context.Context, e *h3array.Engine, in arrow.Record, p Params) (arrow.Record, error) {
	c, err := cells(e, in, h3array.ColCell)
	if err != nil {
		return nil, err
	}
	defer c.Release()

	var out *array.Float64
	switch unit := p.String("unit", "m2"); unit {
	case "m2":
		out, err = e.CellsAreaM2(ctx, c)
	case "km2":
		out, err = e.CellsAreaKm2(ctx, c)
	case "rads2":
		out, err = e.CellsAreaRads2(ctx, c)
	default:
		return nil, fmt.Errorf("%w unit=%q: want m2, km2 or rads2", ErrBadParam, unit)
	}
	if err != nil {
		return nil, err
	}
	return single(h3array.ColValue, out), nil
}

func edgesLength(ctx context.Context, e *h3array.Engine, in arrow.Record, p Params) (arrow.Record, error) {
	d, err := directedEdges(in)
	if err != nil {
		return nil, err
	}
	defer d.Release()

	var out *array.Float64
	switch unit := p.String("unit", "m"); unit {
	case "m":
		out, err = e.DirectedEdgesLengthM(ctx, d)
	case "km":
		out, err = e.DirectedEdgesLengthKm(ctx, d)
	case "rads":
		out, err = e.DirectedEdgesLengthRads(ctx, d)
	default:
		return nil, fmt.Errorf("%w unit=%q: want m, km or rads", ErrBadParam, unit)
	}
	if err != nil {
		return nil, err
	}
	return single(h3array.ColValue, out), nil
}

func cellsToLocalIJ(ctx context.Context, e *h3array.Engine, in arrow.Record, p Params) (arrow.Record, error) {
	lenient, err := p.Bool("set_failing_to_invalid", false)
	if err != nil {
		return nil, err
	}
	c, err := cells(e, in, h3array.ColCell)
	if err != nil {
		return nil, err
	}
	defer c.Release()

	if p.Has("anchor") {
		anchor, err := h3array.ParseCell(p.String("anchor", ""))
		if err != nil {
			return nil, fmt.Errorf("%w anchor: %w", ErrBadParam, err)
		}
		return e.CellsToLocalIJAnchor(ctx, c, anchor, lenient)
	}
	anchors, err := cells(e, in, h3array.ColAnchor)
	if err != nil {
		return nil, err
	}
	defer anchors.Release()
	return e.CellsToLocalIJ(ctx, c, anchors, lenient)
}

func localIJToCells(ctx context.Context, e *h3array.Engine, in arrow.Record, p Params) (arrow.Record, error) {
	lenient, err := p.Bool("set_failing_to_invalid", false)
	if err != nil {
		return nil, err
	}
	anchors, err := cells(e, in, h3array.ColAnchor)
	if err != nil {
		return nil, err
	}
	defer anchors.Release()
	i, err := typed[*array.Int32](in, h3array.ColI)
	if err != nil {
		return nil, err
	}
	j, err := typed[*array.Int32](in, h3array.ColJ)
	if err != nil {
		return nil, err
	}
	out, err := e.LocalIJToCells(ctx, anchors, i, j, lenient)
	if err != nil {
		return nil, err
	}
	return single(h3array.ColCell, out.Array()), nil
}

func cellsToCoordinates(ctx context.Context, e *h3array.Engine, in arrow.Record, p Params) (arrow.Record, error) {
	radians, err := p.Bool("radians", false)
	if err != nil {
		return nil, err
	}
	c, err := cells(e, in, h3array.ColCell)
	if err != nil {
		return nil, err
	}
	defer c.Release()
	return e.CellsToCoordinates(ctx, c, radians)
}

func coordinatesToCells(ctx context.Context, e *h3array.Engine, in arrow.Record, p Params) (arrow.Record, error) {
	radians, err := p.Bool("radians", false)
	if err != nil {
		return nil, err
	}
	lat, err := typed[*array.Float64](in, h3array.ColLat)
	if err != nil {
		return nil, err
	}
	lng, err := typed[*array.Float64](in, h3array.ColLng)
	if err != nil {
		return nil, err
	}

	var out h3array.CellArray
	if p.Has("res") {
		res, err := p.Resolution()
		if err != nil {
			return nil, err
		}
		out, err = e.CoordinatesToCells(ctx, lat, lng, res, radians)
		if err != nil {
			return nil, err
		}
	} else {
		res, err := typed[*array.Uint8](in, h3array.ColResolution)
		if err != nil {
			return nil, fmt.Errorf("%w: res param or resolution column required", err)
		}
		out, err = e.CoordinatesToCellsRes(ctx, lat, lng, res, radians)
		if err != nil {
			return nil, err
		}
	}
	return single(h3array.ColCell, out.Array()), nil
}

func cellsBounds(_ context.Context, e *h3array.Engine, in arrow.Record, _ Params) (arrow.Record, error) {
	c, err := cells(e, in, h3array.ColCell)
	if err != nil {
		return nil, err
	}
	defer c.Release()
	b, ok, err := e.CellsBounds(c)
	if err != nil {
		return nil, err
	}
	var vals [4][]float64
	if ok {
		vals = [4][]float64{{b.Min[0]}, {b.Min[1]}, {b.Max[0]}, {b.Max[1]}}
	}
	cols := make([]arrow.Array, 4)
	for i := range cols {
		cols[i] = e.NewFloat64(vals[i], nil)
		defer cols[i].Release()
	}
	return h3array.NewTable([]string{h3array.ColMinX, h3array.ColMinY, h3array.ColMaxX, h3array.ColMaxY}, cols), nil
}

func cellsBoundsArrays(ctx context.Context, e *h3array.Engine, in arrow.Record, _ Params) (arrow.Record, error) {
	c, err := cells(e, in, h3array.ColCell)
	if err != nil {
		return nil, err
	}
	defer c.Release()
	return e.CellsBoundsArrays(ctx, c)
}
