// Package raster converts between gridded rasters and H3 cells.
//
// Rasters are plain row-major slices described by an affine Transform. File
// I/O is left to the caller.
package raster

import (
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/h3-columnar/pkg/h3array"
)

// Transform maps pixel (col,row) to (x,y) in rasterio order:
//
//	x = A*col + B*row + C
//	y = D*col + E*row + F
type Transform struct {
	A, B, C, D, E, F float64
}

// FromGDAL reads a GDAL geotransform (c, a, b, f, d, e).
func FromGDAL(gt [6]float64) Transform {
	return Transform{A: gt[1], B: gt[2], C: gt[0], D: gt[4], E: gt[5], F: gt[3]}
}

// FromRasterio reads the first six coefficients of a rasterio Affine.
func FromRasterio(a [6]float64) Transform {
	return Transform{A: a[0], B: a[1], C: a[2], D: a[3], E: a[4], F: a[5]}
}

func (t Transform) GDAL() [6]float64 {
	return [6]float64{t.C, t.A, t.B, t.F, t.D, t.E}
}

func (t Transform) Apply(col, row float64) (x, y float64) {
	return t.A*col + t.B*row + t.C, t.D*col + t.E*row + t.F
}

func (t Transform) point(col, row float64) orb.Point {
	x, y := t.Apply(col, row)
	return orb.Point{x, y}
}

// Invert returns the transform mapping (x,y) back to (col,row).
func (t Transform) Invert() (Transform, error) {
	det := t.A*t.E - t.B*t.D
	if det == 0 || math.IsNaN(det) {
		return Transform{}, fmt.Errorf("%w: transform is not invertible", h3array.ErrInvalidArgument)
	}
	ia, ib := t.E/det, -t.B/det
	id, ie := -t.D/det, t.A/det
	return Transform{
		A: ia, B: ib, C: -(ia*t.C + ib*t.F),
		D: id, E: ie, F: -(id*t.C + ie*t.F),
	}, nil
}

func (t Transform) String() string {
	return fmt.Sprintf("Transform(%g, %g, %g, %g, %g, %g)", t.A, t.B, t.C, t.D, t.E, t.F)
}

// AxisOrder names the dimension order of the raster array.
type AxisOrder int

const (
	// YX arrays are indexed [row][col].
	YX AxisOrder = iota
	// XY arrays are indexed [col][row].
	XY
)

func ParseAxisOrder(s string) (AxisOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "yx":
		return YX, nil
	case "xy":
		return XY, nil
	default:
		return 0, fmt.Errorf("%w: unknown axis order %q", h3array.ErrInvalidArgument, s)
	}
}

func (o AxisOrder) String() string {
	if o == XY {
		return "xy"
	}
	return "yx"
}

// Number is the set of supported pixel value types.
type Number interface {
	~uint8 | ~int8 | ~uint16 | ~int16 | ~uint32 | ~int32 | ~uint64 | ~int64 | ~float32 | ~float64
}

// Grid is a dense 2-D raster. Shape holds the array dimensions in axis order,
// Values the cells in row-major order of those dimensions.
type Grid[T Number] struct {
	Shape  [2]int
	Order  AxisOrder
	Values []T
}

func NewGrid[T Number](shape [2]int, order AxisOrder, values []T) (Grid[T], error) {
	if shape[0] < 0 || shape[1] < 0 || shape[0]*shape[1] != len(values) {
		return Grid[T]{}, fmt.Errorf("%w: shape %v does not fit %d values", h3array.ErrLengthMismatch, shape, len(values))
	}
	return Grid[T]{Shape: shape, Order: order, Values: values}, nil
}

// Width is the number of pixel columns.
func (g Grid[T]) Width() int {
	if g.Order == XY {
		return g.Shape[0]
	}
	return g.Shape[1]
}

// Height is the number of pixel rows.
func (g Grid[T]) Height() int {
	if g.Order == XY {
		return g.Shape[1]
	}
	return g.Shape[0]
}

func (g Grid[T]) index(col, row int) int {
	if g.Order == XY {
		return col*g.Shape[1] + row
	}
	return row*g.Shape[1] + col
}

// At returns the pixel at (col,row).
func (g Grid[T]) At(col, row int) T { return g.Values[g.index(col, row)] }

func (g Grid[T]) set(col, row int, v T) { g.Values[g.index(col, row)] = v }

// widthHeight converts an array shape to pixel columns and rows.
func widthHeight(shape [2]int, order AxisOrder) (w, h int) {
	if order == XY {
		return shape[0], shape[1]
	}
	return shape[1], shape[0]
}

// checkWGS84 rejects rasters whose transformed extent is clearly not in
// degrees.
func checkWGS84(t Transform, width, height int) error {
	b := orb.Bound{Min: t.point(0, 0), Max: t.point(0, 0)}
	for _, p := range []orb.Point{
		t.point(float64(width), 0),
		t.point(0, float64(height)),
		t.point(float64(width), float64(height)),
	} {
		b = b.Extend(p)
	}
	if b.Max[0]-b.Min[0] > 361 || b.Max[1]-b.Min[1] > 181 {
		return fmt.Errorf("%w: extent %v", h3array.ErrNotWGS84, b)
	}
	return nil
}
