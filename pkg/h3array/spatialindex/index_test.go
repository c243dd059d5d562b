package spatialindex

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/h3-columnar/pkg/h3array"
)

const sf = h3.Cell(0x85283473fffffff)

func testIndex(t *testing.T) (*Index, orb.Point) {
	t.Helper()
	e := h3array.New()
	other, err := h3array.ParseCell("10.0,50.0,5")
	require.NoError(t, err)

	arr := e.NewUint64([]uint64{uint64(sf), 0, uint64(other)}, []bool{true, false, true})
	defer arr.Release()
	cells, err := h3array.NewCellArray(arr)
	require.NoError(t, err)
	defer cells.Release()

	idx, err := New(e, cells)
	require.NoError(t, err)
	ll, err := h3.CellToLatLng(sf)
	require.NoError(t, err)
	return idx, orb.Point{ll.Lng, ll.Lat}
}

func values(m *array.Boolean) []bool {
	out := make([]bool, m.Len())
	for i := range out {
		out[i] = m.IsValid(i) && m.Value(i)
	}
	return out
}

func TestIntersectEnvelopes(t *testing.T) {
	idx, c := testIndex(t)
	m := idx.IntersectEnvelopes(orb.Bound{Min: c, Max: c}.Pad(0.01))
	defer m.Release()

	require.Equal(t, 3, m.Len())
	assert.True(t, m.IsNull(1))
	assert.Equal(t, []bool{true, false, false}, values(m))
}

func TestIntersectPolygon(t *testing.T) {
	idx, c := testIndex(t)
	tiny := orb.Bound{Min: c, Max: c}.Pad(0.001).ToPolygon()
	m := idx.IntersectPolygon(tiny)
	defer m.Release()
	assert.Equal(t, []bool{true, false, false}, values(m))

	// overlaps the envelope corner but not the hexagon
	b, err := h3array.CellBound(sf)
	require.NoError(t, err)
	corner := orb.Bound{Min: orb.Point{b.Max[0] - 1e-4, b.Max[1] - 1e-4}, Max: orb.Point{b.Max[0] + 1, b.Max[1] + 1}}
	env := idx.IntersectEnvelopes(corner)
	defer env.Release()
	poly := idx.IntersectPolygon(corner.ToPolygon())
	defer poly.Release()
	assert.True(t, values(env)[0])
	assert.False(t, values(poly)[0])
}

func TestEnvelopesWithinDistance(t *testing.T) {
	idx, c := testIndex(t)
	far := orb.Point{c[0] + 1, c[1]}

	near := idx.EnvelopesWithinDistance(far, 0.5)
	defer near.Release()
	assert.Equal(t, []bool{false, false, false}, values(near))

	wide := idx.EnvelopesWithinDistance(far, 1.0)
	defer wide.Release()
	assert.Equal(t, []bool{true, false, false}, values(wide))
	assert.True(t, wide.IsNull(1))
}

func TestIntersectPolygonEdgesOnly(t *testing.T) {
	idx, c := testIndex(t)
	b, err := h3array.CellBound(sf)
	require.NoError(t, err)
	// a thin strip through the hexagon; no vertex of either lies inside the other
	strip := orb.Bound{
		Min: orb.Point{b.Min[0] - 0.5, c[1] + 0.001},
		Max: orb.Point{b.Max[0] + 0.5, c[1] + 0.0011},
	}.ToPolygon()
	m := idx.IntersectPolygon(strip)
	defer m.Release()
	assert.Equal(t, []bool{true, false, false}, values(m))
}
