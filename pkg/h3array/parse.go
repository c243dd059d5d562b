package h3array

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/array"
	h3 "github.com/uber/h3-go/v4"
)

// ParseCell accepts a hex index ("89283080ddbffff", optional 0x prefix), a
// decimal index, or "lng,lat,res" / "lng;lat;res".
func ParseCell(s string) (h3.Cell, error) {
	if v, ok := parseIndex(s, isValidCell); ok {
		return h3.Cell(v), nil
	}
	if lng, lat, res, ok := parseCoordRes(s); ok {
		c, err := h3.LatLngToCell(h3.NewLatLng(lat, lng), res)
		if err != nil {
			return 0, fmt.Errorf("%w: cell %q: %w", ErrNotParsable, s, err)
		}
		return c, nil
	}
	return 0, fmt.Errorf("%w: cell %q", ErrNotParsable, s)
}

func ParseVertex(s string) (h3.Vertex, error) {
	if v, ok := parseIndex(s, isValidVertex); ok {
		return h3.Vertex(v), nil
	}
	return 0, fmt.Errorf("%w: vertex %q", ErrNotParsable, s)
}

func ParseDirectedEdge(s string) (h3.DirectedEdge, error) {
	if v, ok := parseIndex(s, isValidEdge); ok {
		return h3.DirectedEdge(v), nil
	}
	return 0, fmt.Errorf("%w: directed edge %q", ErrNotParsable, s)
}

// hex first, decimal second
func parseIndex(s string, valid func(uint64) bool) (uint64, bool) {
	s = strings.TrimSpace(s)
	hex := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if v, err := strconv.ParseUint(hex, 16, 64); err == nil && valid(v) {
		return v, true
	}
	if v, err := strconv.ParseUint(s, 10, 64); err == nil && valid(v) {
		return v, true
	}
	return 0, false
}

func parseCoordRes(s string) (lng, lat float64, res int, ok bool) {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })
	if len(parts) != 3 {
		return 0, 0, 0, false
	}
	var err error
	if lng, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64); err != nil {
		return 0, 0, 0, false
	}
	if lat, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err != nil {
		return 0, 0, 0, false
	}
	r := strings.TrimSpace(parts[2])
	if len(r) == 0 || len(r) > 2 {
		return 0, 0, 0, false
	}
	if res, err = strconv.Atoi(r); err != nil || validateRes(res) != nil {
		return 0, 0, 0, false
	}
	return lng, lat, res, true
}

// ParseCells parses a string column. With setFailingToInvalid an unparsable
// value becomes null instead of failing the call.
func (e *Engine) ParseCells(ctx context.Context, strs *array.String, setFailingToInvalid bool) (CellArray, error) {
	arr, err := e.parseStrings(ctx, strs, setFailingToInvalid, func(s string) (uint64, error) {
		c, err := ParseCell(s)
		return uint64(c), err
	})
	if err != nil {
		return CellArray{}, err
	}
	return CellArray{indexArray{arr}}, nil
}

func (e *Engine) ParseVertexes(ctx context.Context, strs *array.String, setFailingToInvalid bool) (VertexArray, error) {
	arr, err := e.parseStrings(ctx, strs, setFailingToInvalid, func(s string) (uint64, error) {
		v, err := ParseVertex(s)
		return uint64(v), err
	})
	if err != nil {
		return VertexArray{}, err
	}
	return VertexArray{indexArray{arr}}, nil
}

func (e *Engine) ParseDirectedEdges(ctx context.Context, strs *array.String, setFailingToInvalid bool) (DirectedEdgeArray, error) {
	arr, err := e.parseStrings(ctx, strs, setFailingToInvalid, func(s string) (uint64, error) {
		d, err := ParseDirectedEdge(s)
		return uint64(d), err
	})
	if err != nil {
		return DirectedEdgeArray{}, err
	}
	return DirectedEdgeArray{indexArray{arr}}, nil
}

func (e *Engine) parseStrings(ctx context.Context, strs *array.String, setFailingToInvalid bool, parse func(string) (uint64, error)) (*array.Uint64, error) {
	n := strs.Len()
	vals := make([]uint64, n)
	valid := make([]bool, n)
	err := e.ForChunks(ctx, n, func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			if strs.IsNull(i) {
				continue
			}
			v, err := parse(strs.Value(i))
			if err != nil {
				if setFailingToInvalid {
					continue
				}
				return fmt.Errorf("position %d: %w", i, err)
			}
			vals[i], valid[i] = v, true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e.NewUint64(vals, valid), nil
}

// CellsToString formats cells as lowercase hex; nulls stay null.
func (e *Engine) CellsToString(cells CellArray) *array.String {
	return e.indexesToString(cells.indexArray)
}

func (e *Engine) VertexesToString(vertexes VertexArray) *array.String {
	return e.indexesToString(vertexes.indexArray)
}

func (e *Engine) DirectedEdgesToString(edges DirectedEdgeArray) *array.String {
	return e.indexesToString(edges.indexArray)
}

func (e *Engine) indexesToString(a indexArray) *array.String {
	b := array.NewStringBuilder(e.mem)
	defer b.Release()
	b.Reserve(a.Len())
	for i := 0; i < a.Len(); i++ {
		v, ok := a.value(i)
		if !ok {
			b.AppendNull()
			continue
		}
		b.Append(strconv.FormatUint(v, 16))
	}
	return b.NewStringArray()
}
