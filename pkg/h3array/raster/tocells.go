package raster

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/h3-columnar/pkg/h3array"
)

// ToCells converts a raster to cells by centroid sampling: every cell at res
// whose centroid falls on a pixel takes that pixel's value. Pixels equal to
// nodata produce nothing. The result has a value column typed after T and a
// cell column; with compact the cells of every value are compacted.
func ToCells[T Number](ctx context.Context, e *h3array.Engine, g Grid[T], t Transform, res int, nodata *T, compact bool) (arrow.Record, error) {
	if res < 0 || res > h3array.MaxResolution {
		return nil, fmt.Errorf("%w %d (must be 0..15)", h3array.ErrInvalidResolution, res)
	}
	w, h := g.Width(), g.Height()
	if w*h != len(g.Values) {
		return nil, fmt.Errorf("%w: shape %v does not fit %d values", h3array.ErrLengthMismatch, g.Shape, len(g.Values))
	}
	if w == 0 || h == 0 {
		return valueTable[T](e.Allocator(), nil, nil)
	}
	if err := checkWGS84(t, w, h); err != nil {
		return nil, err
	}
	inv, err := t.Invert()
	if err != nil {
		return nil, err
	}

	if err := checkCandidates(e, t, w, h, res); err != nil {
		return nil, err
	}
	candidates, err := h3.PolygonToCells(extent(t, w, h), res)
	if err != nil {
		return nil, fmt.Errorf("h3 polyfill of raster extent: %w", err)
	}

	var mu sync.Mutex
	byValue := make(map[T][]h3.Cell)
	err = e.ForChunks(ctx, len(candidates), func(lo, hi int) error {
		local := make(map[T][]h3.Cell)
		for _, c := range candidates[lo:hi] {
			ll, err := h3.CellToLatLng(c)
			if err != nil {
				return fmt.Errorf("centroid of %s: %w", c, err)
			}
			col, row := inv.Apply(ll.Lng, ll.Lat)
			ci, ri := int(math.Floor(col)), int(math.Floor(row))
			if ci < 0 || ri < 0 || ci >= w || ri >= h {
				continue
			}
			v := g.At(ci, ri)
			if isNodata(v, nodata) {
				continue
			}
			local[v] = append(local[v], c)
		}
		mu.Lock()
		for v, cells := range local {
			byValue[v] = append(byValue[v], cells...)
		}
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	keys := make([]T, 0, len(byValue))
	for v := range byValue {
		keys = append(keys, v)
	}
	slices.Sort(keys)

	var values []T
	var cells []uint64
	for _, v := range keys {
		set := h3array.NewCellSet()
		set.Insert(byValue[v]...)
		if err := set.Finalize(compact); err != nil {
			return nil, err
		}
		for _, c := range set.Cells() {
			values = append(values, v)
			cells = append(cells, uint64(c))
		}
	}
	return valueTable(e.Allocator(), values, cells)
}

// isNodata also reports NaN pixels, which never carry a value.
func isNodata[T Number](v T, nodata *T) bool {
	if v != v {
		return true
	}
	return nodata != nil && v == *nodata
}

// checkCandidates bounds the polyfill of the raster extent by its area over
// the average cell area at res.
func checkCandidates(e *h3array.Engine, t Transform, w, h, res int) error {
	ring := orb.Ring{
		t.point(0, 0),
		t.point(float64(w), 0),
		t.point(float64(w), float64(h)),
		t.point(0, float64(h)),
		t.point(0, 0),
	}
	avg, err := h3.HexagonAreaAvgM2(res)
	if err != nil {
		return fmt.Errorf("average cell area at %d: %w", res, err)
	}
	what := fmt.Sprintf("sampling a %dx%d raster at resolution %d", w, h, res)
	n := math.Abs(geo.Area(orb.Polygon{ring})) / avg
	if n >= float64(e.MaxCells()) {
		return e.CheckCells(math.MaxInt64, what)
	}
	return e.CheckCells(int64(n)+1, what)
}

func extent(t Transform, w, h int) h3.GeoPolygon {
	corners := []orb.Point{
		t.point(0, 0),
		t.point(float64(w), 0),
		t.point(float64(w), float64(h)),
		t.point(0, float64(h)),
	}
	loop := make(h3.GeoLoop, len(corners))
	for i, p := range corners {
		loop[i] = h3.NewLatLng(p.Lat(), p.Lon())
	}
	return h3.GeoPolygon{GeoLoop: loop}
}

func valueTable[T Number](mem memory.Allocator, values []T, cells []uint64) (arrow.Record, error) {
	vals, err := valueArray(mem, values)
	if err != nil {
		return nil, err
	}
	defer vals.Release()
	cb := array.NewUint64Builder(mem)
	defer cb.Release()
	cb.AppendValues(cells, nil)
	cellArr := cb.NewUint64Array()
	defer cellArr.Release()
	return h3array.NewTable([]string{h3array.ColValue, h3array.ColCell}, []arrow.Array{vals, cellArr}), nil
}

// valueArray builds an arrow column for the concrete pixel type. Named types
// over the supported kinds are rejected.
func valueArray[T Number](mem memory.Allocator, values []T) (arrow.Array, error) {
	var zero T
	switch any(zero).(type) {
	case uint8:
		b := array.NewUint8Builder(mem)
		defer b.Release()
		b.AppendValues(any(values).([]uint8), nil)
		return b.NewArray(), nil
	case int8:
		b := array.NewInt8Builder(mem)
		defer b.Release()
		b.AppendValues(any(values).([]int8), nil)
		return b.NewArray(), nil
	case uint16:
		b := array.NewUint16Builder(mem)
		defer b.Release()
		b.AppendValues(any(values).([]uint16), nil)
		return b.NewArray(), nil
	case int16:
		b := array.NewInt16Builder(mem)
		defer b.Release()
		b.AppendValues(any(values).([]int16), nil)
		return b.NewArray(), nil
	case uint32:
		b := array.NewUint32Builder(mem)
		defer b.Release()
		b.AppendValues(any(values).([]uint32), nil)
		return b.NewArray(), nil
	case int32:
		b := array.NewInt32Builder(mem)
		defer b.Release()
		b.AppendValues(any(values).([]int32), nil)
		return b.NewArray(), nil
	case uint64:
		b := array.NewUint64Builder(mem)
		defer b.Release()
		b.AppendValues(any(values).([]uint64), nil)
		return b.NewArray(), nil
	case int64:
		b := array.NewInt64Builder(mem)
		defer b.Release()
		b.AppendValues(any(values).([]int64), nil)
		return b.NewArray(), nil
	case float32:
		b := array.NewFloat32Builder(mem)
		defer b.Release()
		b.AppendValues(any(values).([]float32), nil)
		return b.NewArray(), nil
	case float64:
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		b.AppendValues(any(values).([]float64), nil)
		return b.NewArray(), nil
	default:
		return nil, fmt.Errorf("%w: %T", h3array.ErrUnsupportedValueType, zero)
	}
}
