package h3array

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	h3 "github.com/uber/h3-go/v4"
)

func TestUncompactCompactRoundTrip(t *testing.T) {
	e := New()
	children, err := e.Uncompact(cellsOf(t, sfRes5), 7)
	require.NoError(t, err)
	defer children.Release()
	assert.Equal(t, 49, children.Len())

	compacted, err := e.Compact(children, false)
	require.NoError(t, err)
	defer compacted.Release()
	assert.Equal(t, []h3.Cell{sfRes5}, compacted.Cells())
}

func TestUncompactOneLevel(t *testing.T) {
	e := New()
	c := mustParse(t, "-122.0553238,37.3615593,8")
	out, err := e.Uncompact(cellsOf(t, c), 9)
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, 7, out.Len())
}

func TestUncompactRejectsFinerCells(t *testing.T) {
	e := New()
	_, err := e.Uncompact(cellsOf(t, sfRes5), 4)
	assert.ErrorIs(t, err, ErrInvalidResolution)
}

func TestCompactRejectsMixedResolutions(t *testing.T) {
	e := New()
	parent, err := sfRes5.Parent(4)
	require.NoError(t, err)
	_, err = e.Compact(cellsOf(t, sfRes5, parent), false)
	require.ErrorIs(t, err, ErrMixedResolutions)
	assert.Contains(t, err.Error(), "heterogeneous resolutions")
}

func TestCompactToleratesDuplicates(t *testing.T) {
	e := New()
	out, err := e.Compact(cellsOf(t, sfRes5, sfRes5, 0), false)
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, []h3.Cell{sfRes5}, out.Cells())
}

func TestCompactMixedResolutions(t *testing.T) {
	e := New()
	res6, err := sfRes5.Children(6)
	require.NoError(t, err)
	grandchild, err := res6[0].Children(7)
	require.NoError(t, err)

	// one res 6 child replaced by its res 7 children, plus a duplicate and an
	// already covered res 8 cell
	in := append([]h3.Cell{}, res6[1:]...)
	in = append(in, grandchild...)
	in = append(in, res6[2])
	covered, err := res6[3].Children(8)
	require.NoError(t, err)
	in = append(in, covered[0])

	out, err := e.Compact(cellsOf(t, in...), true)
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, []h3.Cell{sfRes5}, out.Cells())
}

func TestCellSetOrdering(t *testing.T) {
	other := mustParse(t, "10.0,50.0,3")
	children, err := sfRes5.Children(7)
	require.NoError(t, err)
	fine := children[0]

	s := NewCellSet()
	s.Insert(fine, other, sfRes5)
	require.NoError(t, s.Finalize(false))

	// fine lies inside sfRes5 and is dropped
	assert.Equal(t, []h3.Cell{other, sfRes5}, s.Cells())
}
