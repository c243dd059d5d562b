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
		Name: "cells_parse", Inputs: []string{h3array.ColString}, Cacheable: true,
		Doc:     "parse hex, decimal or lng,lat,res strings; set_failing_to_invalid nulls failures",
		Handler: parseOp(h3array.ColCell, (*h3array.Engine).ParseCells),
	})
	Register(Op{
		Name: "vertexes_parse", Inputs: []string{h3array.ColString}, Cacheable: true,
		Doc:     "parse hex or decimal vertex strings",
		Handler: parseOp(h3array.ColVertex, (*h3array.Engine).ParseVertexes),
	})
	Register(Op{
		Name: "directed_edges_parse", Inputs: []string{h3array.ColString}, Cacheable: true,
		Doc:     "parse hex or decimal directed edge strings",
		Handler: parseOp(h3array.ColEdge, (*h3array.Engine).ParseDirectedEdges),
	})
	Register(Op{
		Name: "cells_to_string", Inputs: []string{h3array.ColCell}, Cacheable: true,
		Doc: "format cells as lowercase hex",
		Handler: func(_ context.Context, e *h3array.Engine, in arrow.Record, _ Params) (arrow.Record, error) {
			c, err := cells(e, in, h3array.ColCell)
			if err != nil {
				return nil, err
			}
			defer c.Release()
			return single(h3array.ColString, e.CellsToString(c)), nil
		},
	})
	Register(Op{
		Name: "vertexes_to_string", Inputs: []string{h3array.ColVertex}, Cacheable: true,
		Doc: "format vertexes as lowercase hex",
		Handler: func(_ context.Context, e *h3array.Engine, in arrow.Record, _ Params) (arrow.Record, error) {
			v, err := vertexes(in)
			if err != nil {
				return nil, err
			}
			defer v.Release()
			return single(h3array.ColString, e.VertexesToString(v)), nil
		},
	})
	Register(Op{
		Name: "directed_edges_to_string", Inputs: []string{h3array.ColEdge}, Cacheable: true,
		Doc: "format directed edges as lowercase hex",
		Handler: func(_ context.Context, e *h3array.Engine, in arrow.Record, _ Params) (arrow.Record, error) {
			d, err := directedEdges(in)
			if err != nil {
				return nil, err
			}
			defer d.Release()
			return single(h3array.ColString, e.DirectedEdgesToString(d)), nil
		},
	})
	Register(Op{
		Name: "cells_valid", Inputs: []string{h3array.ColCell}, Cacheable: true,
		Doc:     "null invalid cells; boolean_array=true returns an is_valid mask",
		Handler: validOp(h3array.ColCell, (*h3array.Engine).CellsValidMask, func(e *h3array.Engine, a *array.Uint64) arrow.Array { return e.CellsValid(a).Array() }),
	})
	Register(Op{
		Name: "vertexes_valid", Inputs: []string{h3array.ColVertex}, Cacheable: true,
		Doc:     "null invalid vertexes; boolean_array=true returns an is_valid mask",
		Handler: validOp(h3array.ColVertex, (*h3array.Engine).VertexesValidMask, func(e *h3array.Engine, a *array.Uint64) arrow.Array { return e.VertexesValid(a).Array() }),
	})
	Register(Op{
		Name: "directed_edges_valid", Inputs: []string{h3array.ColEdge}, Cacheable: true,
		Doc:     "null invalid directed edges; boolean_array=true returns an is_valid mask",
		Handler: validOp(h3array.ColEdge, (*h3array.Engine).DirectedEdgesValidMask, func(e *h3array.Engine, a *array.Uint64) arrow.Array { return e.DirectedEdgesValid(a).Array() }),
	})
	Register(Op{
		Name: "cells_resolution", Inputs: []string{h3array.ColCell}, Cacheable: true,
		Doc: "resolution of every cell",
		Handler: func(_ context.Context, e *h3array.Engine, in arrow.Record, _ Params) (arrow.Record, error) {
			c, err := cells(e, in, h3array.ColCell)
			if err != nil {
				return nil, err
			}
			defer c.Release()
			return single(h3array.ColResolution, e.CellsResolution(c)), nil
		},
	})
	Register(Op{
		Name: "change_resolution", Inputs: []string{h3array.ColCell}, Cacheable: true,
		Doc:     "move cells to res; mode is flat (default), list or paired",
		Handler: changeResolution,
	})
	Register(Op{
		Name: "compact", Inputs: []string{h3array.ColCell}, Cacheable: true,
		Doc: "compact cells; mixed_resolutions=true accepts several resolutions",
		Handler: func(_ context.Context, e *h3array.Engine, in arrow.Record, p Params) (arrow.Record, error) {
			mixed, err := p.Bool("mixed_resolutions", false)
			if err != nil {
				return nil, err
			}
			c, err := cells(e, in, h3array.ColCell)
			if err != nil {
				return nil, err
			}
			defer c.Release()
			out, err := e.Compact(c, mixed)
			if err != nil {
				return nil, err
			}
			return single(h3array.ColCell, out.Array()), nil
		},
	})
	Register(Op{
		Name: "uncompact", Inputs: []string{h3array.ColCell}, Cacheable: true,
		Doc: "expand cells to res",
		Handler: func(_ context.Context, e *h3array.Engine, in arrow.Record, p Params) (arrow.Record, error) {
			res, err := p.Resolution()
			if err != nil {
				return nil, err
			}
			c, err := cells(e, in, h3array.ColCell)
			if err != nil {
				return nil, err
			}
			defer c.Release()
			out, err := e.Uncompact(c, res)
			if err != nil {
				return nil, err
			}
			return single(h3array.ColCell, out.Array()), nil
		},
	})
}

func parseOp[T interface{ Array() *array.Uint64 }](out string, parse func(*h3array.Engine, context.Context, *array.String, bool) (T, error)) Handler {
	return func(ctx context.Context, e *h3array.Engine, in arrow.Record, p Params) (arrow.Record, error) {
		lenient, err := p.Bool("set_failing_to_invalid", false)
		if err != nil {
			return nil, err
		}
		strs, err := typed[*array.String](in, h3array.ColString)
		if err != nil {
			return nil, err
		}
		parsed, err := parse(e, ctx, strs, lenient)
		if err != nil {
			return nil, err
		}
		return single(out, parsed.Array()), nil
	}
}

func validOp(col string, mask func(*h3array.Engine, *array.Uint64) *array.Boolean, lenient func(*h3array.Engine, *array.Uint64) arrow.Array) Handler {
	return func(_ context.Context, e *h3array.Engine, in arrow.Record, p Params) (arrow.Record, error) {
		asMask, err := p.Bool("boolean_array", false)
		if err != nil {
			return nil, err
		}
		arr, err := typed[*array.Uint64](in, col)
		if err != nil {
			return nil, err
		}
		if asMask {
			return single(h3array.ColIsValid, mask(e, arr)), nil
		}
		return single(col, lenient(e, arr)), nil
	}
}

func changeResolution(ctx context.Context, e *h3array.Engine, in arrow.Record, p Params) (arrow.Record, error) {
	res, err := p.Resolution()
	if err != nil {
		return nil, err
	}
	c, err := cells(e, in, h3array.ColCell)
	if err != nil {
		return nil, err
	}
	defer c.Release()

	switch mode := p.String("mode", "flat"); mode {
	case "flat":
		out, err := e.ChangeResolution(ctx, c, res)
		if err != nil {
			return nil, err
		}
		return single(h3array.ColCell, out.Array()), nil
	case "list":
		out, err := e.ChangeResolutionList(ctx, c, res)
		if err != nil {
			return nil, err
		}
		return single(h3array.ColCell, out), nil
	case "paired":
		return e.ChangeResolutionPaired(ctx, c, res)
	default:
		return nil, fmt.Errorf("%w mode=%q: want flat, list or paired", ErrBadParam, mode)
	}
}
