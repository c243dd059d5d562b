package ops

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/mohammed-shakir/h3-columnar/pkg/h3array"
	"github.com/mohammed-shakir/h3-columnar/pkg/h3array/raster"
)

func init() {
	Register(Op{
		Name: "raster_to_cells", Inputs: []string{h3array.ColValue}, Cacheable: true,
		Doc:     "value and cell columns from a row-major raster; needs shape and transform, res or search_mode",
		Handler: rasterToCells,
	})
	Register(Op{
		Name: "rasterize_cells", Inputs: []string{h3array.ColCell, h3array.ColValue}, Cacheable: true,
		Doc:     "burn cell values into a width x height raster; transform and shape go to schema metadata",
		Handler: rasterizeCells,
	})
}

type rasterParams struct {
	shape   [2]int
	t       raster.Transform
	order   raster.AxisOrder
	res     int
	compact bool
	nodata  *float64
}

func readRasterParams(p Params) (rasterParams, error) {
	var rp rasterParams
	shape, err := p.Floats("shape", 2)
	if err != nil {
		return rp, err
	}
	rp.shape = [2]int{int(shape[0]), int(shape[1])}

	coeffs, err := p.Floats("transform", 6)
	if err != nil {
		return rp, err
	}
	var c [6]float64
	copy(c[:], coeffs)
	switch format := p.String("transform_format", "rasterio"); format {
	case "rasterio":
		rp.t = raster.FromRasterio(c)
	case "gdal":
		rp.t = raster.FromGDAL(c)
	default:
		return rp, fmt.Errorf("%w transform_format=%q: want rasterio or gdal", ErrBadParam, format)
	}

	if rp.order, err = raster.ParseAxisOrder(p.String("axis_order", "yx")); err != nil {
		return rp, err
	}
	if rp.compact, err = p.Bool("compact", false); err != nil {
		return rp, err
	}
	if p.Has("nodata") {
		v, err := p.Float("nodata", 0)
		if err != nil {
			return rp, err
		}
		rp.nodata = &v
	}

	if p.Has("res") {
		rp.res, err = p.Resolution()
		return rp, err
	}
	mode, err := raster.ParseResolutionSearchMode(p.String("search_mode", "min_diff"))
	if err != nil {
		return rp, err
	}
	rp.res, err = raster.NearestH3Resolution(rp.shape, rp.t, rp.order, mode)
	return rp, err
}

func rasterToCells(ctx context.Context, e *h3array.Engine, in arrow.Record, p Params) (arrow.Record, error) {
	col, err := column(in, h3array.ColValue)
	if err != nil {
		return nil, err
	}
	if col.NullN() > 0 {
		return nil, fmt.Errorf("%w: raster values must not be null, use nodata", ErrBadParam)
	}
	rp, err := readRasterParams(p)
	if err != nil {
		return nil, err
	}
	switch a := col.(type) {
	case *array.Uint8:
		return rasterToCellsOf(ctx, e, a.Uint8Values(), rp)
	case *array.Int8:
		return rasterToCellsOf(ctx, e, a.Int8Values(), rp)
	case *array.Uint16:
		return rasterToCellsOf(ctx, e, a.Uint16Values(), rp)
	case *array.Int16:
		return rasterToCellsOf(ctx, e, a.Int16Values(), rp)
	case *array.Uint32:
		return rasterToCellsOf(ctx, e, a.Uint32Values(), rp)
	case *array.Int32:
		return rasterToCellsOf(ctx, e, a.Int32Values(), rp)
	case *array.Uint64:
		return rasterToCellsOf(ctx, e, a.Uint64Values(), rp)
	case *array.Int64:
		return rasterToCellsOf(ctx, e, a.Int64Values(), rp)
	case *array.Float32:
		return rasterToCellsOf(ctx, e, a.Float32Values(), rp)
	case *array.Float64:
		return rasterToCellsOf(ctx, e, a.Float64Values(), rp)
	default:
		return nil, fmt.Errorf("%w: %s", h3array.ErrUnsupportedValueType, col.DataType())
	}
}

func rasterToCellsOf[T raster.Number](ctx context.Context, e *h3array.Engine, vals []T, rp rasterParams) (arrow.Record, error) {
	g, err := raster.NewGrid(rp.shape, rp.order, vals)
	if err != nil {
		return nil, err
	}
	var nodata *T
	if rp.nodata != nil {
		v := T(*rp.nodata)
		nodata = &v
	}
	return raster.ToCells(ctx, e, g, rp.t, rp.res, nodata, rp.compact)
}

func rasterizeCells(_ context.Context, e *h3array.Engine, in arrow.Record, p Params) (arrow.Record, error) {
	width, err := p.Int("width", 0)
	if err != nil {
		return nil, err
	}
	height, err := p.Int("height", 0)
	if err != nil {
		return nil, err
	}
	nodata, err := p.Float("nodata", 0)
	if err != nil {
		return nil, err
	}
	c, err := cells(e, in, h3array.ColCell)
	if err != nil {
		return nil, err
	}
	defer c.Release()
	col, err := column(in, h3array.ColValue)
	if err != nil {
		return nil, err
	}
	if col.NullN() > 0 {
		return nil, fmt.Errorf("%w: values must not be null", ErrBadParam)
	}

	switch a := col.(type) {
	case *array.Uint8:
		return rasterizeOf(e, c, a.Uint8Values(), width, height, nodata)
	case *array.Int8:
		return rasterizeOf(e, c, a.Int8Values(), width, height, nodata)
	case *array.Uint16:
		return rasterizeOf(e, c, a.Uint16Values(), width, height, nodata)
	case *array.Int16:
		return rasterizeOf(e, c, a.Int16Values(), width, height, nodata)
	case *array.Uint32:
		return rasterizeOf(e, c, a.Uint32Values(), width, height, nodata)
	case *array.Int32:
		return rasterizeOf(e, c, a.Int32Values(), width, height, nodata)
	case *array.Uint64:
		return rasterizeOf(e, c, a.Uint64Values(), width, height, nodata)
	case *array.Int64:
		return rasterizeOf(e, c, a.Int64Values(), width, height, nodata)
	case *array.Float32:
		return rasterizeOf(e, c, a.Float32Values(), width, height, nodata)
	case *array.Float64:
		return rasterizeOf(e, c, a.Float64Values(), width, height, nodata)
	default:
		return nil, fmt.Errorf("%w: %s", h3array.ErrUnsupportedValueType, col.DataType())
	}
}

func rasterizeOf[T raster.Number](e *h3array.Engine, c h3array.CellArray, vals []T, width, height int, nodata float64) (arrow.Record, error) {
	g, t, err := raster.Rasterize(e, c, vals, width, height, T(nodata))
	if err != nil {
		return nil, err
	}
	return raster.GridRecord(e.Allocator(), g, t)
}
