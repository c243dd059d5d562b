package raster

import (
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/h3-columnar/pkg/h3array"
	"github.com/mohammed-shakir/h3-columnar/pkg/h3array/vector"
)

// Rasterize renders cells into a width x height YX grid covering their
// bounds. A height <= 0 is derived from the aspect ratio of the bounds.
// Pixels whose centre lies in no cell are set to nodata. Without any cell the
// grid is empty and the transform zero.
func Rasterize[T Number](e *h3array.Engine, cells h3array.CellArray, values []T, width, height int, nodata T) (Grid[T], Transform, error) {
	if cells.Len() != len(values) {
		return Grid[T]{}, Transform{}, fmt.Errorf("%w: %d cells, %d values", h3array.ErrLengthMismatch, cells.Len(), len(values))
	}
	if width <= 0 {
		return Grid[T]{}, Transform{}, fmt.Errorf("%w: width must be positive (got %d)", h3array.ErrInvalidArgument, width)
	}
	bounds, ok, err := e.CellsBounds(cells)
	if err != nil {
		return Grid[T]{}, Transform{}, err
	}
	if !ok {
		return Grid[T]{}, Transform{}, nil
	}
	bw, bh := bounds.Max[0]-bounds.Min[0], bounds.Max[1]-bounds.Min[1]
	if height <= 0 {
		derived := math.Ceil(float64(width) * bh / bw)
		if derived > float64(e.MaxCells()) {
			return Grid[T]{}, Transform{}, e.CheckCells(math.MaxInt64, "rasterizing")
		}
		height = max(1, int(derived))
	}
	if err := e.CheckCells(h3array.MulSat(int64(width), int64(height)), fmt.Sprintf("a %dx%d raster", width, height)); err != nil {
		return Grid[T]{}, Transform{}, err
	}
	t := Transform{
		A: bw / float64(width), C: bounds.Min[0],
		E: -bh / float64(height), F: bounds.Max[1],
	}
	inv, err := t.Invert()
	if err != nil {
		return Grid[T]{}, Transform{}, err
	}

	g := Grid[T]{Shape: [2]int{height, width}, Order: YX, Values: make([]T, width*height)}
	for i := range g.Values {
		g.Values[i] = nodata
	}
	for i := 0; i < cells.Len(); i++ {
		c, ok := cells.Cell(i)
		if !ok {
			continue
		}
		if err := burn(g, inv, t, c, values[i]); err != nil {
			return Grid[T]{}, Transform{}, err
		}
	}
	return g, t, nil
}

// burn sets every pixel whose centre lies inside c.
func burn[T Number](g Grid[T], inv, t Transform, c h3.Cell, v T) error {
	poly, err := vector.CellPolygon(c)
	if err != nil {
		return err
	}
	b := poly.Bound()
	c0, r0 := inv.Apply(b.Min[0], b.Max[1])
	c1, r1 := inv.Apply(b.Max[0], b.Min[1])
	colLo, colHi := clamp(math.Min(c0, c1), g.Width()), clamp(math.Max(c0, c1)+1, g.Width())
	rowLo, rowHi := clamp(math.Min(r0, r1), g.Height()), clamp(math.Max(r0, r1)+1, g.Height())
	for row := rowLo; row < rowHi; row++ {
		for col := colLo; col < colHi; col++ {
			x, y := t.Apply(float64(col)+0.5, float64(row)+0.5)
			if planar.PolygonContains(poly, orb.Point{x, y}) {
				g.set(col, row, v)
			}
		}
	}
	return nil
}

func clamp(f float64, n int) int {
	return min(max(int(math.Floor(f)), 0), n)
}

// Metadata keys of a record produced by GridRecord.
const (
	MetaTransform = "transform"
	MetaShape     = "shape"
	MetaAxisOrder = "axis_order"
)

// GridRecord stores g as a single value column. The transform (rasterio
// order), shape and axis order go into the schema metadata.
func GridRecord[T Number](mem memory.Allocator, g Grid[T], t Transform) (arrow.Record, error) {
	vals, err := valueArray(mem, g.Values)
	if err != nil {
		return nil, err
	}
	defer vals.Release()
	md := arrow.NewMetadata(
		[]string{MetaTransform, MetaShape, MetaAxisOrder},
		[]string{
			fmt.Sprintf("%g,%g,%g,%g,%g,%g", t.A, t.B, t.C, t.D, t.E, t.F),
			fmt.Sprintf("%d,%d", g.Shape[0], g.Shape[1]),
			g.Order.String(),
		},
	)
	schema := arrow.NewSchema([]arrow.Field{{Name: h3array.ColValue, Type: vals.DataType(), Nullable: true}}, &md)
	return array.NewRecord(schema, []arrow.Array{vals}, int64(vals.Len())), nil
}
