package ops

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/mohammed-shakir/h3-columnar/pkg/h3array"
	"github.com/mohammed-shakir/h3-columnar/pkg/h3array/vector"
)

func init() {
	Register(Op{
		Name: "cells_to_wkb_polygons", Inputs: []string{h3array.ColCell}, Cacheable: true,
		Doc:     "cell boundaries as WKB polygons; link_cells=true merges neighbours into multipolygons",
		Handler: cellsToWKBPolygons,
	})
	Register(Op{
		Name: "cells_to_wkb_points", Inputs: []string{h3array.ColCell}, Cacheable: true,
		Doc:     "cell centroids as WKB points",
		Handler: cellsToWKBPoints,
	})
	Register(Op{
		Name: "vertexes_to_wkb_points", Inputs: []string{h3array.ColVertex}, Cacheable: true,
		Doc:     "vertexes as WKB points",
		Handler: vertexesToWKBPoints,
	})
	Register(Op{
		Name: "directed_edges_to_wkb_linestrings", Inputs: []string{h3array.ColEdge}, Cacheable: true,
		Doc:     "directed edges as WKB linestrings",
		Handler: edgesToWKBLineStrings,
	})
	Register(Op{
		Name: "wkb_to_cells", Inputs: []string{h3array.ColWKB}, Cacheable: true,
		Doc:     "cells of every WKB geometry at res; containment_mode, compact and flatten are optional",
		Handler: wkbToCells,
	})
	Register(Op{
		Name: "geojson_to_cells", Inputs: []string{h3array.ColGeoJSON}, Cacheable: true,
		Doc:     "cells of every GeoJSON geometry, feature or feature collection at res",
		Handler: geoJSONToCells,
	})
}

func cellsToWKBPolygons(ctx context.Context, e *h3array.Engine, in arrow.Record, p Params) (arrow.Record, error) {
	radians, err := p.Bool("radians", false)
	if err != nil {
		return nil, err
	}
	link, err := p.Bool("link_cells", false)
	if err != nil {
		return nil, err
	}
	c, err := cells(e, in, h3array.ColCell)
	if err != nil {
		return nil, err
	}
	defer c.Release()
	out, err := vector.CellsToWKBPolygons(ctx, e, c, radians, link)
	if err != nil {
		return nil, err
	}
	return single(h3array.ColWKB, out), nil
}

func cellsToWKBPoints(ctx context.Context, e *h3array.Engine, in arrow.Record, p Params) (arrow.Record, error) {
	radians, err := p.Bool("radians", false)
	if err != nil {
		return nil, err
	}
	c, err := cells(e, in, h3array.ColCell)
	if err != nil {
		return nil, err
	}
	defer c.Release()
	out, err := vector.CellsToWKBPoints(ctx, e, c, radians)
	if err != nil {
		return nil, err
	}
	return single(h3array.ColWKB, out), nil
}

func vertexesToWKBPoints(ctx context.Context, e *h3array.Engine, in arrow.Record, p Params) (arrow.Record, error) {
	radians, err := p.Bool("radians", false)
	if err != nil {
		return nil, err
	}
	v, err := vertexes(in)
	if err != nil {
		return nil, err
	}
	defer v.Release()
	out, err := vector.VertexesToWKBPoints(ctx, e, v, radians)
	if err != nil {
		return nil, err
	}
	return single(h3array.ColWKB, out), nil
}

func edgesToWKBLineStrings(ctx context.Context, e *h3array.Engine, in arrow.Record, p Params) (arrow.Record, error) {
	radians, err := p.Bool("radians", false)
	if err != nil {
		return nil, err
	}
	d, err := directedEdges(in)
	if err != nil {
		return nil, err
	}
	defer d.Release()
	out, err := vector.DirectedEdgesToWKBLineStrings(ctx, e, d, radians)
	if err != nil {
		return nil, err
	}
	return single(h3array.ColWKB, out), nil
}

func toCellsOptions(e *h3array.Engine, p Params) (vector.ToCellsOptions, error) {
	mode, err := vector.ParseContainmentMode(p.String("containment_mode", "contains_centroid"))
	if err != nil {
		return vector.ToCellsOptions{}, err
	}
	compact, err := p.Bool("compact", false)
	if err != nil {
		return vector.ToCellsOptions{}, err
	}
	return vector.ToCellsOptions{Mode: mode, Compact: compact, MaxCells: e.MaxCells()}, nil
}

func wkbToCells(ctx context.Context, e *h3array.Engine, in arrow.Record, p Params) (arrow.Record, error) {
	res, err := p.Resolution()
	if err != nil {
		return nil, err
	}
	opts, err := toCellsOptions(e, p)
	if err != nil {
		return nil, err
	}
	flatten, err := p.Bool("flatten", false)
	if err != nil {
		return nil, err
	}
	geoms, err := typed[*array.Binary](in, h3array.ColWKB)
	if err != nil {
		return nil, err
	}
	out, err := vector.WKBToCells(ctx, e, geoms, res, opts, flatten)
	if err != nil {
		return nil, err
	}
	return single(h3array.ColCell, out), nil
}

func geoJSONToCells(ctx context.Context, e *h3array.Engine, in arrow.Record, p Params) (arrow.Record, error) {
	res, err := p.Resolution()
	if err != nil {
		return nil, err
	}
	opts, err := toCellsOptions(e, p)
	if err != nil {
		return nil, err
	}
	docs, err := typed[*array.String](in, h3array.ColGeoJSON)
	if err != nil {
		return nil, err
	}

	n := docs.Len()
	lists := make([][]uint64, n)
	valid := make([]bool, n)
	err = e.ForChunks(ctx, n, func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			if docs.IsNull(i) || docs.Value(i) == "" {
				continue
			}
			found, err := vector.GeoJSONToCells([]byte(docs.Value(i)), res, opts)
			if err != nil {
				return fmt.Errorf("position %d: %w", i, err)
			}
			l := make([]uint64, len(found))
			for j, c := range found {
				l[j] = uint64(c)
			}
			lists[i], valid[i] = l, true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return single(h3array.ColCell, e.NewUint64List(lists, valid)), nil
}
