package ops

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/mohammed-shakir/h3-columnar/pkg/h3array"
)

func column(in arrow.Record, name string) (arrow.Array, error) {
	if in == nil {
		return nil, fmt.Errorf("%w %q: empty input", ErrMissingColumn, name)
	}
	idx := in.Schema().FieldIndices(name)
	if len(idx) == 0 {
		return nil, fmt.Errorf("%w %q", ErrMissingColumn, name)
	}
	return in.Column(idx[0]), nil
}

func typed[T arrow.Array](in arrow.Record, name string) (T, error) {
	var zero T
	col, err := column(in, name)
	if err != nil {
		return zero, err
	}
	out, ok := col.(T)
	if !ok {
		return zero, fmt.Errorf("%w: column %q has type %s", ErrBadParam, name, col.DataType())
	}
	return out, nil
}

// cells reads a strictly validated cell column. The caller releases it.
func cells(e *h3array.Engine, in arrow.Record, name string) (h3array.CellArray, error) {
	col, err := column(in, name)
	if err != nil {
		return h3array.CellArray{}, err
	}
	return e.AsCellArray(col)
}

func vertexes(in arrow.Record) (h3array.VertexArray, error) {
	col, err := typed[*array.Uint64](in, h3array.ColVertex)
	if err != nil {
		return h3array.VertexArray{}, err
	}
	return h3array.NewVertexArray(col)
}

func directedEdges(in arrow.Record) (h3array.DirectedEdgeArray, error) {
	col, err := typed[*array.Uint64](in, h3array.ColEdge)
	if err != nil {
		return h3array.DirectedEdgeArray{}, err
	}
	return h3array.NewDirectedEdgeArray(col)
}

// single wraps arr into a one column record and hands arr's reference to it.
func single(name string, arr arrow.Array) arrow.Record {
	defer arr.Release()
	return h3array.NewTable([]string{name}, []arrow.Array{arr})
}
