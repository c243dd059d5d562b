package h3array

import (
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	h3 "github.com/uber/h3-go/v4"
)

func TestChangeResolution(t *testing.T) {
	ctx := context.Background()
	e := New()
	cells := cellsOf(t, sfRes5, 0)

	finer, err := e.ChangeResolution(ctx, cells, 6)
	require.NoError(t, err)
	defer finer.Release()
	assert.Equal(t, 7, finer.Len())
	for _, c := range finer.Cells() {
		p, err := c.Parent(5)
		require.NoError(t, err)
		assert.Equal(t, sfRes5, p)
	}

	coarser, err := e.ChangeResolution(ctx, cells, 4)
	require.NoError(t, err)
	defer coarser.Release()
	require.Equal(t, 1, coarser.Len())
	want, err := sfRes5.Parent(4)
	require.NoError(t, err)
	got, _ := coarser.Cell(0)
	assert.Equal(t, want, got)

	same, err := e.ChangeResolution(ctx, cells, 5)
	require.NoError(t, err)
	defer same.Release()
	assert.Equal(t, []h3.Cell{sfRes5}, same.Cells())

	_, err = e.ChangeResolution(ctx, cells, 16)
	assert.ErrorIs(t, err, ErrInvalidResolution)
}

func TestChangeResolutionList(t *testing.T) {
	e := New()
	l, err := e.ChangeResolutionList(context.Background(), cellsOf(t, sfRes5, 0, sfRes5Near), 6)
	require.NoError(t, err)
	defer l.Release()

	require.Equal(t, 3, l.Len())
	assert.Len(t, ListValues(l, 0), 7)
	assert.True(t, l.IsNull(1))
	assert.Len(t, ListValues(l, 2), 7)
}

func TestChangeResolutionPaired(t *testing.T) {
	e := New()
	rec, err := e.ChangeResolutionPaired(context.Background(), cellsOf(t, sfRes5, 0), 6)
	require.NoError(t, err)
	defer rec.Release()

	require.Equal(t, int64(7), rec.NumRows())
	assert.Equal(t, ColCellBefore, rec.ColumnName(0))
	assert.Equal(t, ColCellAfter, rec.ColumnName(1))
	before := rec.Column(0).(*array.Uint64)
	for i := 0; i < before.Len(); i++ {
		assert.Equal(t, uint64(sfRes5), before.Value(i))
	}
}

func TestCellsResolution(t *testing.T) {
	e := New()
	res := e.CellsResolution(cellsOf(t, sfRes5, 0))
	defer res.Release()
	assert.Equal(t, uint8(5), res.Value(0))
	assert.True(t, res.IsNull(1))
}
