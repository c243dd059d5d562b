package vector

import (
	"context"
	"math"
	"slices"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/h3-columnar/pkg/h3array"
)

const sf = h3.Cell(0x85283473fffffff)

func cells(t *testing.T, e *h3array.Engine, cs ...h3.Cell) h3array.CellArray {
	t.Helper()
	vals := make([]uint64, len(cs))
	valid := make([]bool, len(cs))
	for i, c := range cs {
		vals[i], valid[i] = uint64(c), c != 0
	}
	arr := e.NewUint64(vals, valid)
	defer arr.Release()
	out, err := h3array.NewCellArray(arr)
	require.NoError(t, err)
	t.Cleanup(out.Release)
	return out
}

func centroid(t *testing.T, c h3.Cell) orb.Point {
	t.Helper()
	ll, err := h3.CellToLatLng(c)
	require.NoError(t, err)
	return orb.Point{ll.Lng, ll.Lat}
}

func TestCellsToWKBPolygons(t *testing.T) {
	e := h3array.New()
	out, err := CellsToWKBPolygons(context.Background(), e, cells(t, e, sf, 0), false, false)
	require.NoError(t, err)
	defer out.Release()

	require.Equal(t, 2, out.Len())
	assert.True(t, out.IsNull(1))
	g, err := wkb.Unmarshal(out.Value(0))
	require.NoError(t, err)
	poly, ok := g.(orb.Polygon)
	require.True(t, ok)
	assert.Len(t, poly[0], 7)
	assert.True(t, poly[0].Closed())
}

func TestCellsToWKBPolygonsLinked(t *testing.T) {
	e := h3array.New()
	disk, err := h3.GridDisk(sf, 1)
	require.NoError(t, err)

	out, err := CellsToWKBPolygons(context.Background(), e, cells(t, e, disk...), false, true)
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, 1, out.Len())
}

func TestCellsToWKBPolygonsLinkedRepeatedCells(t *testing.T) {
	e := h3array.New()
	disk, err := h3.GridDisk(sf, 1)
	require.NoError(t, err)
	withDup := append(slices.Clone(disk), disk[0], disk[3])

	out, err := CellsToWKBPolygons(context.Background(), e, cells(t, e, withDup...), false, true)
	require.NoError(t, err)
	defer out.Release()
	require.Equal(t, 1, out.Len())

	g, err := wkb.Unmarshal(out.Value(0))
	require.NoError(t, err)
	poly, ok := g.(orb.Polygon)
	require.True(t, ok)
	assert.Len(t, poly, 1, "a dissolved disk has no holes")
}

func TestCellsToWKBPolygonsLinkedMixedResolutions(t *testing.T) {
	e := h3array.New()
	parent, err := sf.Parent(4)
	require.NoError(t, err)

	_, err = CellsToWKBPolygons(context.Background(), e, cells(t, e, sf, parent), false, true)
	assert.ErrorIs(t, err, h3array.ErrMixedResolutions)
}

func TestVertexesToWKBPoints(t *testing.T) {
	e := h3array.New()
	v, err := sf.Vertex(0)
	require.NoError(t, err)
	want, err := h3.VertexToLatLng(v)
	require.NoError(t, err)

	arr := e.NewUint64([]uint64{uint64(v), 0}, []bool{true, false})
	defer arr.Release()
	vs, err := h3array.NewVertexArray(arr)
	require.NoError(t, err)
	defer vs.Release()

	out, err := VertexesToWKBPoints(context.Background(), e, vs, false)
	require.NoError(t, err)
	defer out.Release()
	require.Equal(t, 2, out.Len())
	assert.True(t, out.IsNull(1))

	g, err := wkb.Unmarshal(out.Value(0))
	require.NoError(t, err)
	p := g.(orb.Point)
	assert.InDelta(t, want.Lng, p.X(), 1e-9)
	assert.InDelta(t, want.Lat, p.Y(), 1e-9)
}

func TestDirectedEdgesToWKBLineStrings(t *testing.T) {
	e := h3array.New()
	edges, err := sf.DirectedEdges()
	require.NoError(t, err)
	require.NotEmpty(t, edges)

	arr := e.NewUint64([]uint64{uint64(edges[0]), 0}, []bool{true, false})
	defer arr.Release()
	es, err := h3array.NewDirectedEdgeArray(arr)
	require.NoError(t, err)
	defer es.Release()

	for _, tc := range []struct {
		name    string
		radians bool
		maxAbs  float64
	}{
		{"degrees", false, 180},
		{"radians", true, 3.2},
	} {
		t.Run(tc.name, func(t *testing.T) {
			out, err := DirectedEdgesToWKBLineStrings(context.Background(), e, es, tc.radians)
			require.NoError(t, err)
			defer out.Release()
			assert.True(t, out.IsNull(1))

			g, err := wkb.Unmarshal(out.Value(0))
			require.NoError(t, err)
			ls, ok := g.(orb.LineString)
			require.True(t, ok)
			require.Len(t, ls, 2)
			for _, p := range ls {
				assert.LessOrEqual(t, math.Abs(p.X()), tc.maxAbs)
			}
		})
	}
}

func TestCellsToWKBPointsRadians(t *testing.T) {
	e := h3array.New()
	out, err := CellsToWKBPoints(context.Background(), e, cells(t, e, sf), true)
	require.NoError(t, err)
	defer out.Release()

	g, err := wkb.Unmarshal(out.Value(0))
	require.NoError(t, err)
	p := g.(orb.Point)
	assert.InDelta(t, -2.13, p.X(), 0.01)
	assert.InDelta(t, 0.65, p.Y(), 0.01)
}

func TestGeometryToCellsPoint(t *testing.T) {
	got, err := GeometryToCells(orb.Point{-122.0553238, 37.3615593}, 5, ToCellsOptions{})
	require.NoError(t, err)
	assert.Equal(t, []h3.Cell{sf}, got)

	_, err = GeometryToCells(orb.Point{0, 0}, 16, ToCellsOptions{})
	assert.ErrorIs(t, err, h3array.ErrInvalidResolution)
}

func TestGeometryToCellsContainmentModes(t *testing.T) {
	box := orb.Bound{Min: orb.Point{-122.5, 37.2}, Max: orb.Point{-121.8, 37.6}}
	byMode := map[ContainmentMode][]h3.Cell{}
	for _, m := range []ContainmentMode{ContainsCentroid, ContainsBoundary, IntersectsBoundary, Covers} {
		got, err := GeometryToCells(box, 6, ToCellsOptions{Mode: m})
		require.NoError(t, err, m.String())
		require.True(t, slices.IsSorted(got))
		byMode[m] = got
	}

	centroidCells := byMode[ContainsCentroid]
	require.NotEmpty(t, centroidCells)
	assert.Less(t, len(byMode[ContainsBoundary]), len(centroidCells))
	assert.Greater(t, len(byMode[IntersectsBoundary]), len(centroidCells))
	for _, c := range byMode[ContainsBoundary] {
		assert.Contains(t, centroidCells, c)
	}
	for _, c := range centroidCells {
		assert.Contains(t, byMode[IntersectsBoundary], c)
	}
	assert.Equal(t, byMode[IntersectsBoundary], byMode[Covers])
}

func TestGeometryToCellsPolygonSmallerThanCell(t *testing.T) {
	c := centroid(t, sf)
	// a few hundred metres off the centroid, far from the cell boundary
	tiny := orb.Polygon{{
		{c[0] + 0.003, c[1] + 0.003},
		{c[0] + 0.0031, c[1] + 0.003},
		{c[0] + 0.0031, c[1] + 0.0031},
		{c[0] + 0.003, c[1] + 0.003},
	}}

	for _, tc := range []struct {
		mode ContainmentMode
		want []h3.Cell
	}{
		{ContainsCentroid, nil},
		{IntersectsBoundary, nil},
		{Covers, []h3.Cell{sf}},
	} {
		got, err := GeometryToCells(tiny, 5, ToCellsOptions{Mode: tc.mode})
		require.NoError(t, err)
		if tc.want == nil {
			assert.Empty(t, got, tc.mode.String())
			continue
		}
		assert.Equal(t, tc.want, got, tc.mode.String())
	}
}

func TestGeometryToCellsLine(t *testing.T) {
	disk, err := h3.GridDiskDistances(sf, 3)
	require.NoError(t, err)
	far := disk[3][0]
	line := orb.LineString{centroid(t, sf), centroid(t, far)}

	got, err := GeometryToCells(line, 5, ToCellsOptions{})
	require.NoError(t, err)
	assert.Contains(t, got, sf)
	assert.Contains(t, got, far)
	assert.GreaterOrEqual(t, len(got), 4)
}

func TestGeometryToCellsCompact(t *testing.T) {
	children, err := sf.Children(6)
	require.NoError(t, err)
	var mp orb.MultiPoint
	for _, c := range children {
		mp = append(mp, centroid(t, c))
	}

	got, err := GeometryToCells(mp, 6, ToCellsOptions{Compact: true})
	require.NoError(t, err)
	assert.Equal(t, []h3.Cell{sf}, got)
}

func TestGeometryToCellsFullyContainedCells(t *testing.T) {
	box := orb.Bound{Min: orb.Point{-122.5, 37.2}, Max: orb.Point{-121.8, 37.6}}
	got, err := GeometryToCells(box, 6, ToCellsOptions{Mode: ContainsBoundary})
	require.NoError(t, err)
	require.NotEmpty(t, got)
	for _, c := range got {
		poly, err := CellPolygon(c)
		require.NoError(t, err)
		for _, v := range poly[0] {
			assert.True(t, box.Contains(v), "vertex %v of %s outside the box", v, c)
		}
	}
}

func TestGeometryToCellsLimits(t *testing.T) {
	world := orb.Bound{Min: orb.Point{-170, -80}, Max: orb.Point{170, 80}}
	for _, tc := range []struct {
		name string
		g    orb.Geometry
		opts ToCellsOptions
	}{
		{"polygon at finest resolution", world, ToCellsOptions{}},
		{"polygon overlapping", world, ToCellsOptions{Mode: Covers}},
		{"line at finest resolution", orb.LineString{{-170, 0}, {170, 0}}, ToCellsOptions{}},
		{"small explicit limit", orb.Bound{Min: orb.Point{-122.5, 37.2}, Max: orb.Point{-121.8, 37.6}}, ToCellsOptions{MaxCells: 10}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			res := 15
			if tc.opts.MaxCells > 0 {
				res = 6
			}
			_, err := GeometryToCells(tc.g, res, tc.opts)
			assert.ErrorIs(t, err, h3array.ErrInvalidArgument)
		})
	}
}

func TestWKBToCellsEngineLimit(t *testing.T) {
	e := h3array.New(h3array.WithMaxCells(10))
	raw, err := wkb.Marshal(orb.Bound{Min: orb.Point{-122.5, 37.2}, Max: orb.Point{-121.8, 37.6}}.ToPolygon())
	require.NoError(t, err)
	b := array.NewBinaryBuilder(e.Allocator(), binaryType)
	defer b.Release()
	b.Append(raw)
	geoms := b.NewBinaryArray()
	defer geoms.Release()

	_, err = WKBToCells(context.Background(), e, geoms, 6, ToCellsOptions{}, false)
	assert.ErrorIs(t, err, h3array.ErrInvalidArgument)
}

func TestWKBToCells(t *testing.T) {
	e := h3array.New()
	raw, err := wkb.Marshal(orb.Point{-122.0553238, 37.3615593})
	require.NoError(t, err)

	b := array.NewBinaryBuilder(e.Allocator(), binaryType)
	defer b.Release()
	b.Append(raw)
	b.AppendNull()
	b.Append(nil)
	geoms := b.NewBinaryArray()
	defer geoms.Release()

	out, err := WKBToCells(context.Background(), e, geoms, 5, ToCellsOptions{}, false)
	require.NoError(t, err)
	defer out.Release()
	l := out.(*array.List)
	assert.Equal(t, []uint64{uint64(sf)}, h3array.ListValues(l, 0))
	assert.True(t, l.IsNull(1))
	assert.True(t, l.IsNull(2))

	flat, err := WKBToCells(context.Background(), e, geoms, 5, ToCellsOptions{}, true)
	require.NoError(t, err)
	defer flat.Release()
	assert.Equal(t, 1, flat.Len())
}

func TestWKBToCellsRejectsGarbage(t *testing.T) {
	e := h3array.New()
	b := array.NewBinaryBuilder(e.Allocator(), binaryType)
	defer b.Release()
	b.Append([]byte{0x01, 0x02, 0x03})
	geoms := b.NewBinaryArray()
	defer geoms.Release()

	_, err := WKBToCells(context.Background(), e, geoms, 5, ToCellsOptions{}, false)
	assert.ErrorIs(t, err, h3array.ErrInvalidGeometry)
}

func TestGeoJSONToCells(t *testing.T) {
	doc := []byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[-122.0553238,37.3615593]}},
		{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[-122.0553238,37.3615593]}}
	]}`)
	got, err := GeoJSONToCells(doc, 5, ToCellsOptions{})
	require.NoError(t, err)
	assert.Equal(t, []h3.Cell{sf}, got)

	_, err = GeoJSONToCells([]byte(`{}`), 5, ToCellsOptions{})
	assert.ErrorIs(t, err, h3array.ErrInvalidGeometry)
}

func TestParseContainmentMode(t *testing.T) {
	for in, want := range map[string]ContainmentMode{
		"":                    ContainsCentroid,
		"contains_centroid":   ContainsCentroid,
		"ContainsBoundary":    ContainsBoundary,
		"intersects_boundary": IntersectsBoundary,
		"COVERS":              Covers,
	} {
		got, err := ParseContainmentMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseContainmentMode("touches")
	assert.ErrorIs(t, err, h3array.ErrInvalidArgument)
}

func TestRingsIntersect(t *testing.T) {
	square := orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}
	for _, tc := range []struct {
		name string
		r    orb.Ring
		want bool
	}{
		{"crossing", orb.Ring{{0.5, 0.5}, {2, 0.5}, {2, 2}, {0.5, 2}, {0.5, 0.5}}, true},
		{"shared corner", orb.Ring{{1, 1}, {2, 1}, {2, 2}, {1, 2}, {1, 1}}, true},
		{"collinear edge", orb.Ring{{1, 0.2}, {2, 0.2}, {2, 0.8}, {1, 0.8}, {1, 0.2}}, true},
		{"disjoint", orb.Ring{{3, 3}, {4, 3}, {4, 4}, {3, 4}, {3, 3}}, false},
		{"strictly inside", orb.Ring{{0.2, 0.2}, {0.8, 0.2}, {0.8, 0.8}, {0.2, 0.8}, {0.2, 0.2}}, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RingsIntersect(square, tc.r))
			assert.Equal(t, tc.want, RingsIntersect(tc.r, square))
		})
	}
}
