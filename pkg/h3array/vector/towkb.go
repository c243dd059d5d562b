// Package vector converts between H3 index arrays and WKB geometries.
package vector

import (
	"context"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/h3-columnar/pkg/h3array"
)

// CellsToWKBPolygons returns one polygon per cell. With linkCells adjacent
// cells are dissolved and the result has one element per resulting polygon;
// repeated cells are linked once and all cells must share one resolution.
func CellsToWKBPolygons(ctx context.Context, e *h3array.Engine, cells h3array.CellArray, radians, linkCells bool) (*array.Binary, error) {
	if linkCells {
		return linkedPolygons(e.Allocator(), cells.Cells(), radians)
	}
	return encodeEach(ctx, e, cells.Len(), func(i int) (orb.Geometry, bool, error) {
		c, ok := cells.Cell(i)
		if !ok {
			return nil, false, nil
		}
		poly, err := CellPolygon(c)
		if err != nil {
			return nil, false, err
		}
		return toRadians(poly, radians), true, nil
	})
}

// CellsToWKBPoints returns the centroid of every cell.
func CellsToWKBPoints(ctx context.Context, e *h3array.Engine, cells h3array.CellArray, radians bool) (*array.Binary, error) {
	return encodeEach(ctx, e, cells.Len(), func(i int) (orb.Geometry, bool, error) {
		c, ok := cells.Cell(i)
		if !ok {
			return nil, false, nil
		}
		ll, err := h3.CellToLatLng(c)
		if err != nil {
			return nil, false, fmt.Errorf("centroid of %s: %w", c, err)
		}
		return toRadians(point(ll), radians), true, nil
	})
}

func VertexesToWKBPoints(ctx context.Context, e *h3array.Engine, vertexes h3array.VertexArray, radians bool) (*array.Binary, error) {
	return encodeEach(ctx, e, vertexes.Len(), func(i int) (orb.Geometry, bool, error) {
		v, ok := vertexes.Vertex(i)
		if !ok {
			return nil, false, nil
		}
		ll, err := h3.VertexToLatLng(v)
		if err != nil {
			return nil, false, fmt.Errorf("vertex %x: %w", uint64(v), err)
		}
		return toRadians(point(ll), radians), true, nil
	})
}

func DirectedEdgesToWKBLineStrings(ctx context.Context, e *h3array.Engine, edges h3array.DirectedEdgeArray, radians bool) (*array.Binary, error) {
	return encodeEach(ctx, e, edges.Len(), func(i int) (orb.Geometry, bool, error) {
		d, ok := edges.DirectedEdge(i)
		if !ok {
			return nil, false, nil
		}
		boundary, err := d.Boundary()
		if err != nil {
			return nil, false, fmt.Errorf("directed edge %x: %w", uint64(d), err)
		}
		ls := make(orb.LineString, len(boundary))
		for j, ll := range boundary {
			ls[j] = point(ll)
		}
		return toRadians(ls, radians), true, nil
	})
}

// CellPolygon returns the closed boundary ring of c in degrees, x=lng.
func CellPolygon(c h3.Cell) (orb.Polygon, error) {
	boundary, err := h3.CellToBoundary(c)
	if err != nil {
		return nil, fmt.Errorf("boundary of %s: %w", c, err)
	}
	return orb.Polygon{closedRing(boundary)}, nil
}

func linkedPolygons(mem memory.Allocator, cells []h3.Cell, radians bool) (*array.Binary, error) {
	b := array.NewBinaryBuilder(mem, binaryType)
	defer b.Release()
	cells, err := linkable(cells)
	if err != nil {
		return nil, err
	}
	if len(cells) == 0 {
		return b.NewBinaryArray(), nil
	}
	polys, err := h3.CellsToMultiPolygon(cells)
	if err != nil {
		return nil, fmt.Errorf("link %d cells: %w", len(cells), err)
	}
	for _, gp := range polys {
		poly := orb.Polygon{closedRing(gp.GeoLoop)}
		for _, hole := range gp.Holes {
			poly = append(poly, closedRing(hole))
		}
		raw, err := wkb.Marshal(toRadians(poly, radians))
		if err != nil {
			return nil, fmt.Errorf("encode linked polygon: %w", err)
		}
		b.Append(raw)
	}
	return b.NewBinaryArray(), nil
}

// linkable dedups cells in index order. CellsToMultiPolygon treats a repeated
// cell as a separate shape.
func linkable(cells []h3.Cell) ([]h3.Cell, error) {
	set := roaring64.New()
	res := -1
	for _, c := range cells {
		switch r := c.Resolution(); {
		case res < 0:
			res = r
		case r != res:
			return nil, fmt.Errorf("%w: found resolutions %d and %d", h3array.ErrMixedResolutions, res, r)
		}
		set.Add(uint64(c))
	}
	out := make([]h3.Cell, 0, set.GetCardinality())
	it := set.Iterator()
	for it.HasNext() {
		out = append(out, h3.Cell(it.Next()))
	}
	return out, nil
}

// encodeEach marshals one geometry per position; build reports false for a
// null output.
func encodeEach(ctx context.Context, e *h3array.Engine, n int, build func(i int) (orb.Geometry, bool, error)) (*array.Binary, error) {
	out := make([][]byte, n)
	err := e.ForChunks(ctx, n, func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			g, ok, err := build(i)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			raw, err := wkb.Marshal(g)
			if err != nil {
				return fmt.Errorf("encode position %d: %w", i, err)
			}
			out[i] = raw
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	b := array.NewBinaryBuilder(e.Allocator(), binaryType)
	defer b.Release()
	b.Reserve(n)
	for _, raw := range out {
		if raw == nil {
			b.AppendNull()
			continue
		}
		b.Append(raw)
	}
	return b.NewBinaryArray(), nil
}

func point(ll h3.LatLng) orb.Point { return orb.Point{ll.Lng, ll.Lat} }

func closedRing(loop []h3.LatLng) orb.Ring {
	ring := make(orb.Ring, 0, len(loop)+1)
	for _, ll := range loop {
		ring = append(ring, point(ll))
	}
	if len(ring) > 0 && !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return ring
}
