package h3array

import (
	"context"
	"strconv"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	h3 "github.com/uber/h3-go/v4"
)

func TestParseCellForms(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"hex", "85283473fffffff"},
		{"hex with prefix", "0x85283473fffffff"},
		{"decimal", dec(sfRes5)},
		{"coordinates", "-122.0553238,37.3615593,5"},
		{"coordinates with spaces", "-122.0553238 , 37.3615593 , 5"},
		{"coordinates semicolon", "-122.0553238;37.3615593;5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := ParseCell(tc.in)
			require.NoError(t, err)
			assert.Equal(t, sfRes5, c)
		})
	}
}

func TestParseCellRejects(t *testing.T) {
	for _, in := range []string{"", "not a cell", "ffffffffffffffff", "1.0,2.0,123", "1.0,2.0"} {
		_, err := ParseCell(in)
		assert.ErrorIs(t, err, ErrNotParsable, in)
	}
}

func TestParseCellsFailurePolicy(t *testing.T) {
	e := New()
	strs := stringsOf(t, ptr("85283473fffffff"), nil, ptr("garbage"))

	_, err := e.ParseCells(context.Background(), strs, false)
	require.ErrorIs(t, err, ErrNotParsable)
	assert.Contains(t, err.Error(), "position 2")

	cells, err := e.ParseCells(context.Background(), strs, true)
	require.NoError(t, err)
	defer cells.Release()
	require.Equal(t, 3, cells.Len())
	c, ok := cells.Cell(0)
	assert.True(t, ok)
	assert.Equal(t, sfRes5, c)
	assert.True(t, cells.IsNull(1))
	assert.True(t, cells.IsNull(2))
}

func TestCellsToStringRoundTrip(t *testing.T) {
	e := New()
	cells := cellsOf(t, sfRes5, 0, sfRes5Near)
	strs := e.CellsToString(cells)
	defer strs.Release()

	assert.Equal(t, "85283473fffffff", strs.Value(0))
	assert.True(t, strs.IsNull(1))

	back, err := e.ParseCells(context.Background(), strs, false)
	require.NoError(t, err)
	defer back.Release()
	assert.Equal(t, cells.Array().Uint64Values(), back.Array().Uint64Values())
	assert.Equal(t, 1, back.NullN())
}

func TestNewCellArrayStrict(t *testing.T) {
	e := New()
	arr := e.NewUint64([]uint64{uint64(sfRes5), 42}, nil)
	defer arr.Release()

	_, err := NewCellArray(arr)
	require.ErrorIs(t, err, ErrInvalidCell)
	assert.Contains(t, err.Error(), "position 1")

	lenient := e.CellsValid(arr)
	defer lenient.Release()
	assert.False(t, lenient.IsNull(0))
	assert.True(t, lenient.IsNull(1))

	mask := e.CellsValidMask(arr)
	defer mask.Release()
	assert.Equal(t, 0, mask.NullN())
	assert.True(t, mask.Value(0))
	assert.False(t, mask.Value(1))
}

func firstEdge(t *testing.T, c h3.Cell) h3.DirectedEdge {
	t.Helper()
	edges, err := c.DirectedEdges()
	require.NoError(t, err)
	require.NotEmpty(t, edges)
	return edges[0]
}

func TestParseVertexesAndEdges(t *testing.T) {
	e := New()
	v, err := sfRes5.Vertex(0)
	require.NoError(t, err)
	edge := firstEdge(t, sfRes5)
	vHex := strconv.FormatUint(uint64(v), 16)
	edgeHex := strconv.FormatUint(uint64(edge), 16)

	cases := []struct {
		name string
		edge bool
		in   *array.String
		want uint64
	}{
		{"vertex hex", false, stringsOf(t, ptr(vHex), nil, ptr("85283473fffffff")), uint64(v)},
		{"vertex decimal", false, stringsOf(t, ptr(strconv.FormatUint(uint64(v), 10)), nil, ptr("nope")), uint64(v)},
		{"edge hex with prefix", true, stringsOf(t, ptr("0x"+edgeHex), nil, ptr(vHex)), uint64(edge)},
		{"edge decimal", true, stringsOf(t, ptr(strconv.FormatUint(uint64(edge), 10)), nil, ptr("85283473fffffff")), uint64(edge)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			parse := func(lenient bool) (indexArray, error) {
				if tc.edge {
					es, err := e.ParseDirectedEdges(context.Background(), tc.in, lenient)
					return es.indexArray, err
				}
				vs, err := e.ParseVertexes(context.Background(), tc.in, lenient)
				return vs.indexArray, err
			}

			_, err := parse(false)
			require.ErrorIs(t, err, ErrNotParsable, "the third value has another index mode")

			got, err := parse(true)
			require.NoError(t, err)
			defer got.Release()
			val, ok := got.value(0)
			require.True(t, ok)
			assert.Equal(t, tc.want, val)
			assert.True(t, got.IsNull(1))
			assert.True(t, got.IsNull(2))
		})
	}
}

func TestVertexesAndEdgesToString(t *testing.T) {
	e := New()
	v, err := sfRes5.Vertex(2)
	require.NoError(t, err)
	edge := firstEdge(t, sfRes5)

	varr := e.NewUint64([]uint64{uint64(v), 0}, []bool{true, false})
	defer varr.Release()
	vs, err := NewVertexArray(varr)
	require.NoError(t, err)
	defer vs.Release()
	vstr := e.VertexesToString(vs)
	defer vstr.Release()
	assert.Equal(t, strconv.FormatUint(uint64(v), 16), vstr.Value(0))
	assert.True(t, vstr.IsNull(1))

	earr := e.NewUint64([]uint64{uint64(edge)}, nil)
	defer earr.Release()
	es, err := NewDirectedEdgeArray(earr)
	require.NoError(t, err)
	defer es.Release()
	estr := e.DirectedEdgesToString(es)
	defer estr.Release()
	back, err := ParseDirectedEdge(estr.Value(0))
	require.NoError(t, err)
	assert.Equal(t, edge, back)

	_, err = NewVertexArray(earr)
	assert.ErrorIs(t, err, ErrInvalidVertex)
}
