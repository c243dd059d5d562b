package h3array

import (
	"strconv"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/stretchr/testify/require"
	h3 "github.com/uber/h3-go/v4"
)

const (
	sfRes5     = h3.Cell(0x85283473fffffff)
	sfRes5Near = h3.Cell(0x8528342bfffffff)
)

func mustParse(t *testing.T, s string) h3.Cell {
	t.Helper()
	c, err := ParseCell(s)
	require.NoError(t, err)
	return c
}

// cellsOf builds a CellArray where a zero value stands for null.
func cellsOf(t *testing.T, cells ...h3.Cell) CellArray {
	t.Helper()
	e := New()
	vals := make([]uint64, len(cells))
	valid := make([]bool, len(cells))
	for i, c := range cells {
		vals[i], valid[i] = uint64(c), c != 0
	}
	arr := e.NewUint64(vals, valid)
	defer arr.Release()
	out, err := NewCellArray(arr)
	require.NoError(t, err)
	t.Cleanup(out.Release)
	return out
}

func stringsOf(t *testing.T, vals ...*string) *array.String {
	t.Helper()
	b := array.NewStringBuilder(New().Allocator())
	defer b.Release()
	for _, v := range vals {
		if v == nil {
			b.AppendNull()
			continue
		}
		b.Append(*v)
	}
	arr := b.NewStringArray()
	t.Cleanup(arr.Release)
	return arr
}

func ptr(s string) *string { return &s }

func dec(c h3.Cell) string { return strconv.FormatUint(uint64(c), 10) }
