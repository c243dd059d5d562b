package ops

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/h3-columnar/pkg/h3array"
	"github.com/mohammed-shakir/h3-columnar/pkg/h3array/spatialindex"
)

func init() {
	Register(Op{
		Name: "cells_intersect_bbox", Inputs: []string{h3array.ColCell}, Cacheable: true,
		Doc:     "mask of cells whose envelope intersects bbox=minx,miny,maxx,maxy",
		Handler: cellsIntersectBBox,
	})
	Register(Op{
		Name: "cells_intersect_geometry", Inputs: []string{h3array.ColCell}, Cacheable: true,
		Doc:     "mask of cells intersecting the GeoJSON polygon or multipolygon in geometry",
		Handler: cellsIntersectGeometry,
	})
	Register(Op{
		Name: "cells_within_distance", Inputs: []string{h3array.ColCell}, Cacheable: true,
		Doc:     "mask of cells whose envelope lies within distance degrees of point=x,y",
		Handler: cellsWithinDistance,
	})
}

func spatialIndex(e *h3array.Engine, in arrow.Record) (*spatialindex.Index, error) {
	c, err := cells(e, in, h3array.ColCell)
	if err != nil {
		return nil, err
	}
	defer c.Release()
	return spatialindex.New(e, c)
}

func cellsIntersectBBox(_ context.Context, e *h3array.Engine, in arrow.Record, p Params) (arrow.Record, error) {
	bb, err := p.Floats("bbox", 4)
	if err != nil {
		return nil, err
	}
	b := orb.Bound{Min: orb.Point{bb[0], bb[1]}, Max: orb.Point{bb[2], bb[3]}}
	if b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] {
		return nil, fmt.Errorf("%w bbox: min exceeds max", ErrBadParam)
	}
	idx, err := spatialIndex(e, in)
	if err != nil {
		return nil, err
	}
	return single(h3array.ColMask, idx.IntersectEnvelopes(b)), nil
}

func cellsIntersectGeometry(_ context.Context, e *h3array.Engine, in arrow.Record, p Params) (arrow.Record, error) {
	if !p.Has("geometry") {
		return nil, fmt.Errorf("%w: geometry is required", ErrBadParam)
	}
	g, err := geojson.UnmarshalGeometry([]byte(p["geometry"]))
	if err != nil {
		return nil, fmt.Errorf("%w geometry: %w", ErrBadParam, err)
	}
	var mp orb.MultiPolygon
	switch geom := g.Geometry().(type) {
	case orb.Polygon:
		mp = orb.MultiPolygon{geom}
	case orb.MultiPolygon:
		mp = geom
	case orb.Bound:
		mp = orb.MultiPolygon{geom.ToPolygon()}
	default:
		return nil, fmt.Errorf("%w geometry: %s is not a polygon", ErrBadParam, geom.GeoJSONType())
	}
	idx, err := spatialIndex(e, in)
	if err != nil {
		return nil, err
	}
	return single(h3array.ColMask, idx.IntersectMultiPolygon(mp)), nil
}

func cellsWithinDistance(_ context.Context, e *h3array.Engine, in arrow.Record, p Params) (arrow.Record, error) {
	pt, err := p.Floats("point", 2)
	if err != nil {
		return nil, err
	}
	d, err := p.Float("distance", -1)
	if err != nil {
		return nil, err
	}
	if d < 0 {
		return nil, fmt.Errorf("%w: distance must be given and non-negative", ErrBadParam)
	}
	idx, err := spatialIndex(e, in)
	if err != nil {
		return nil, err
	}
	return single(h3array.ColMask, idx.EnvelopesWithinDistance(orb.Point{pt[0], pt[1]}, d)), nil
}
