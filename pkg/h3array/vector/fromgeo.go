package vector

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/geo"
	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/h3-columnar/pkg/h3array"
)

type ToCellsOptions struct {
	Mode    ContainmentMode
	Compact bool
	// MaxCells bounds the cells a single geometry may produce; zero means
	// h3array.DefaultMaxCells.
	MaxCells int64
}

func (o ToCellsOptions) limit() int64 {
	if o.MaxCells > 0 {
		return o.MaxCells
	}
	return h3array.DefaultMaxCells
}

// GeometryToCells converts g to the sorted, deduplicated set of cells at res.
// An empty geometry gives an empty result.
func GeometryToCells(g orb.Geometry, res int, opts ToCellsOptions) ([]h3.Cell, error) {
	if res < 0 || res > h3array.MaxResolution {
		return nil, fmt.Errorf("%w %d (must be 0..15)", h3array.ErrInvalidResolution, res)
	}
	set := h3array.NewCellSet()
	if err := collect(set, g, res, opts); err != nil {
		return nil, err
	}
	if err := set.Finalize(opts.Compact); err != nil {
		return nil, err
	}
	return set.Cells(), nil
}

func collect(set *h3array.CellSet, g orb.Geometry, res int, opts ToCellsOptions) error {
	switch g := g.(type) {
	case nil:
		return nil
	case orb.Point:
		c, err := pointCell(g, res)
		if err != nil {
			return err
		}
		set.Insert(c)
	case orb.MultiPoint:
		for _, p := range g {
			if err := collect(set, p, res, opts); err != nil {
				return err
			}
		}
	case orb.LineString:
		cells, err := lineCells(g, res, opts.limit())
		if err != nil {
			return err
		}
		set.Insert(cells...)
	case orb.MultiLineString:
		for _, ls := range g {
			if err := collect(set, ls, res, opts); err != nil {
				return err
			}
		}
	case orb.Ring:
		return collect(set, orb.Polygon{g}, res, opts)
	case orb.Polygon:
		cells, err := polygonCells(g, res, opts.Mode, opts.limit())
		if err != nil {
			return err
		}
		set.Insert(cells...)
	case orb.MultiPolygon:
		for _, p := range g {
			if err := collect(set, p, res, opts); err != nil {
				return err
			}
		}
	case orb.Collection:
		for _, m := range g {
			if err := collect(set, m, res, opts); err != nil {
				return err
			}
		}
	case orb.Bound:
		if g.IsEmpty() {
			return collect(set, g.Min, res, opts)
		}
		return collect(set, g.ToPolygon(), res, opts)
	default:
		return fmt.Errorf("%w: unsupported geometry type %s", h3array.ErrInvalidGeometry, g.GeoJSONType())
	}
	return nil
}

func pointCell(p orb.Point, res int) (h3.Cell, error) {
	c, err := h3.LatLngToCell(h3.NewLatLng(p.Lat(), p.Lon()), res)
	if err != nil {
		return 0, fmt.Errorf("%w: point %v: %w", h3array.ErrInvalidGeometry, p, err)
	}
	return c, nil
}

// lineCells returns the cells a line passes through. Segments are densified to
// half the average edge length and consecutive cells joined by a grid path.
func lineCells(ls orb.LineString, res int, limit int64) ([]h3.Cell, error) {
	if len(ls) == 0 {
		return nil, nil
	}
	edge, err := h3.HexagonEdgeLengthAvgM(res)
	if err != nil {
		return nil, fmt.Errorf("edge length at %d: %w", res, err)
	}
	if steps := geo.Length(ls) / (edge / 2); steps >= float64(limit) {
		return nil, fmt.Errorf("%w: line at resolution %d would produce about %.0f cells, limit is %d",
			h3array.ErrInvalidArgument, res, steps, limit)
	}
	pts := densify(ls, edge/2)

	var out []h3.Cell
	var prev h3.Cell
	for _, p := range pts {
		c, err := pointCell(p, res)
		if err != nil {
			return nil, err
		}
		if c == prev {
			continue
		}
		if prev != 0 {
			// pentagon distortion makes grid paths fail occasionally; the
			// densified points still cover the line
			if path, err := h3.GridPath(prev, c); err == nil {
				out = append(out, path...)
			}
		}
		out = append(out, c)
		prev = c
	}
	return out, nil
}

func densify(ls orb.LineString, stepM float64) []orb.Point {
	out := make([]orb.Point, 0, len(ls))
	for i := 0; i+1 < len(ls); i++ {
		a, b := ls[i], ls[i+1]
		out = append(out, a)
		n := int(math.Ceil(geo.Distance(a, b) / stepM))
		for s := 1; s < n; s++ {
			f := float64(s) / float64(n)
			out = append(out, orb.Point{a[0] + (b[0]-a[0])*f, a[1] + (b[1]-a[1])*f})
		}
	}
	return append(out, ls[len(ls)-1])
}

// toLoop converts a ring to an h3 loop, dropping an explicit closing vertex.
func toLoop(r orb.Ring) h3.GeoLoop {
	loop := make(h3.GeoLoop, 0, len(r))
	for _, p := range r {
		loop = append(loop, h3.NewLatLng(p.Lat(), p.Lon()))
	}
	if n := len(loop); n > 1 && loop[0] == loop[n-1] {
		loop = loop[:n-1]
	}
	return loop
}

func polygonCells(poly orb.Polygon, res int, mode ContainmentMode, limit int64) ([]h3.Cell, error) {
	if len(poly) == 0 || len(poly[0]) == 0 {
		return nil, nil
	}
	outer := toLoop(poly[0])
	if len(outer) < 3 {
		return nil, fmt.Errorf("%w: outer ring has %d vertices", h3array.ErrInvalidGeometry, len(outer))
	}
	gp := h3.GeoPolygon{GeoLoop: outer}
	for i, r := range poly[1:] {
		hole := toLoop(r)
		if len(hole) < 3 {
			return nil, fmt.Errorf("%w: hole %d has %d vertices", h3array.ErrInvalidGeometry, i, len(hole))
		}
		gp.Holes = append(gp.Holes, hole)
	}
	if err := checkFill(poly, res, limit); err != nil {
		return nil, err
	}

	if mode == ContainsCentroid {
		cells, err := h3.PolygonToCells(gp, res)
		if err != nil {
			return nil, fmt.Errorf("h3 polyfill: %w", err)
		}
		return cells, nil
	}
	cells, err := h3.PolygonToCellsExperimental(gp, res, mode.h3Mode())
	if err != nil {
		return nil, fmt.Errorf("h3 polyfill (%s): %w", mode, err)
	}
	// h3's overlapping mode keeps the cell enclosing a polygon smaller than
	// one cell; only Covers wants it.
	if mode == IntersectsBoundary && len(cells) == 1 {
		cp, err := CellPolygon(cells[0])
		if err != nil {
			return nil, err
		}
		if enclosedBy(poly, cp[0]) {
			return nil, nil
		}
	}
	return cells, nil
}

// checkFill bounds a polyfill by the area of the polygon's bounding box over
// the average cell area at res.
func checkFill(poly orb.Polygon, res int, limit int64) error {
	avg, err := h3.HexagonAreaAvgM2(res)
	if err != nil {
		return fmt.Errorf("average cell area at %d: %w", res, err)
	}
	n := math.Abs(geo.Area(poly.Bound().ToPolygon())) / avg
	if n >= float64(limit) {
		return fmt.Errorf("%w: polygon at resolution %d would produce about %.0f cells, limit is %d",
			h3array.ErrInvalidArgument, res, n, limit)
	}
	return nil
}

// WKBToCells converts every WKB geometry. Null or empty values give a null
// list; with flatten all cells are concatenated.
func WKBToCells(ctx context.Context, e *h3array.Engine, geoms *array.Binary, res int, opts ToCellsOptions, flatten bool) (arrow.Array, error) {
	if opts.MaxCells == 0 {
		opts.MaxCells = e.MaxCells()
	}
	n := geoms.Len()
	lists := make([][]uint64, n)
	valid := make([]bool, n)
	err := e.ForChunks(ctx, n, func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			if geoms.IsNull(i) || len(geoms.Value(i)) == 0 {
				continue
			}
			g, err := wkb.Unmarshal(geoms.Value(i))
			if err != nil {
				return fmt.Errorf("%w: position %d: %w", h3array.ErrInvalidGeometry, i, err)
			}
			cells, err := GeometryToCells(g, res, opts)
			if err != nil {
				return fmt.Errorf("position %d: %w", i, err)
			}
			l := make([]uint64, len(cells))
			for j, c := range cells {
				l[j] = uint64(c)
			}
			lists[i], valid[i] = l, true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if flatten {
		var flat []uint64
		for _, l := range lists {
			flat = append(flat, l...)
		}
		return e.NewUint64(flat, nil), nil
	}
	return e.NewUint64List(lists, valid), nil
}

var errEmptyGeoJSON = errors.New("empty geojson document")
