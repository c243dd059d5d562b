package h3array

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputLimits(t *testing.T) {
	ctx := context.Background()
	cells := cellsOf(t, sfRes5, 0)

	cases := []struct {
		name string
		e    *Engine
		run  func(e *Engine) error
	}{
		{"wide grid disk", New(), func(e *Engine) error {
			_, err := e.GridDisk(ctx, cells, 100000, false)
			return err
		}},
		{"k beyond any disk", New(), func(e *Engine) error {
			_, err := e.GridDisk(ctx, cells, math.MaxInt32, true)
			return err
		}},
		{"disk over a small limit", New(WithMaxCells(6)), func(e *Engine) error {
			_, err := e.GridDisk(ctx, cells, 1, false)
			return err
		}},
		{"distances over a small limit", New(WithMaxCells(6)), func(e *Engine) error {
			_, err := e.GridDiskDistances(ctx, cells, 1, false)
			return err
		}},
		{"children ten levels down", New(), func(e *Engine) error {
			_, err := e.ChangeResolution(ctx, cells, 15)
			return err
		}},
		{"uncompact ten levels down", New(), func(e *Engine) error {
			_, err := e.Uncompact(cells, 15)
			return err
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.run(tc.e)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidArgument)
			assert.True(t, IsUserError(err))
		})
	}
}

func TestOutputLimitsAllowSmallRequests(t *testing.T) {
	ctx := context.Background()
	e := New(WithMaxCells(7))
	cells := cellsOf(t, sfRes5)

	out, err := e.GridDisk(ctx, cells, 1, true)
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, 7, out.Len())

	children, err := e.ChangeResolution(ctx, cells, 6)
	require.NoError(t, err)
	defer children.Release()
	assert.Equal(t, 7, children.Len())
}

func TestCheckCells(t *testing.T) {
	e := New(WithMaxCells(100))
	assert.NoError(t, e.CheckCells(100, "exact"))
	assert.ErrorIs(t, e.CheckCells(101, "over"), ErrInvalidArgument)
	assert.ErrorIs(t, e.CheckCells(-1, "overflowed"), ErrInvalidArgument)
	assert.Equal(t, int64(100), e.MaxCells())
	assert.Equal(t, DefaultMaxCells, New(WithMaxCells(0)).MaxCells())
}

func TestMulSat(t *testing.T) {
	assert.Equal(t, int64(0), MulSat(0, math.MaxInt64))
	assert.Equal(t, int64(12), MulSat(3, 4))
	assert.Equal(t, int64(math.MaxInt64), MulSat(3_000_000_000, 3_000_000_000*2))
	assert.Equal(t, int64(math.MaxInt64), diskSize(maxK+1))
	assert.Equal(t, int64(7), diskSize(1))
}

func TestForChunksRecoversPanics(t *testing.T) {
	for _, tc := range []struct {
		name string
		e    *Engine
		n    int
	}{
		{"inline", New(), 10},
		{"parallel", New(WithChunkSize(2), WithParallelism(4)), 10},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.e.ForChunks(context.Background(), tc.n, func(lo, hi int) error {
				if lo == 0 {
					var m map[string]int
					m["boom"]++
				}
				return nil
			})
			require.ErrorIs(t, err, ErrPanic)
			assert.False(t, IsUserError(err))
		})
	}
}
