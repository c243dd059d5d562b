package h3array

import (
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	h3 "github.com/uber/h3-go/v4"
)

const earthRadiusKm = 6371.007180918475

func TestDirectedEdgesLength(t *testing.T) {
	e := New()
	ctx := context.Background()
	edge := firstEdge(t, sfRes5)
	arr := e.NewUint64([]uint64{uint64(edge), 0}, []bool{true, false})
	defer arr.Release()
	edges, err := NewDirectedEdgeArray(arr)
	require.NoError(t, err)
	defer edges.Release()

	avgKm, err := h3.HexagonEdgeLengthAvgKm(5)
	require.NoError(t, err)

	cases := []struct {
		name string
		fn   func(context.Context, DirectedEdgeArray) (*array.Float64, error)
		toKm float64
	}{
		{"m", e.DirectedEdgesLengthM, 1e-3},
		{"km", e.DirectedEdgesLengthKm, 1},
		{"rads", e.DirectedEdgesLengthRads, earthRadiusKm},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := tc.fn(ctx, edges)
			require.NoError(t, err)
			defer out.Release()
			require.Equal(t, 2, out.Len())
			assert.True(t, out.IsNull(1))

			km := out.Value(0) * tc.toKm
			assert.InDelta(t, avgKm, km, avgKm*0.25, "edge length near the resolution average")
		})
	}
}

func TestCellsAreaUnits(t *testing.T) {
	e := New()
	ctx := context.Background()
	cells := cellsOf(t, sfRes5, 0)

	m2, err := e.CellsAreaM2(ctx, cells)
	require.NoError(t, err)
	defer m2.Release()
	km2, err := e.CellsAreaKm2(ctx, cells)
	require.NoError(t, err)
	defer km2.Release()

	assert.True(t, m2.IsNull(1))
	assert.InEpsilon(t, m2.Value(0)/1e6, km2.Value(0), 1e-9)
}
