package h3array

import (
	"context"
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	h3 "github.com/uber/h3-go/v4"
)

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }
func toDegrees(rad float64) float64 { return rad * 180 / math.Pi }

// CellsToCoordinates returns the centroid of every cell as lat/lng columns.
func (e *Engine) CellsToCoordinates(ctx context.Context, cells CellArray, radians bool) (arrow.Record, error) {
	n := cells.Len()
	lat := make([]float64, n)
	lng := make([]float64, n)
	ok := make([]bool, n)
	err := e.ForChunks(ctx, n, func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			c, cok := cells.Cell(i)
			if !cok {
				continue
			}
			ll, err := h3.CellToLatLng(c)
			if err != nil {
				return fmt.Errorf("centroid of %s: %w", c, err)
			}
			if radians {
				ll.Lat, ll.Lng = toRadians(ll.Lat), toRadians(ll.Lng)
			}
			lat[i], lng[i], ok[i] = ll.Lat, ll.Lng, true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tableOwning([]string{ColLat, ColLng}, e.NewFloat64(lat, ok), e.NewFloat64(lng, ok)), nil
}

// CoordinatesToCells indexes every coordinate pair at res.
func (e *Engine) CoordinatesToCells(ctx context.Context, lat, lng *array.Float64, res int, radians bool) (CellArray, error) {
	if err := validateRes(res); err != nil {
		return CellArray{}, err
	}
	if lat.Len() != lng.Len() {
		return CellArray{}, fmt.Errorf("%w: %d lat, %d lng", ErrLengthMismatch, lat.Len(), lng.Len())
	}
	return e.coordinatesToCells(ctx, lat, lng, func(int) (int, bool) { return res, true }, radians)
}

// CoordinatesToCellsRes is CoordinatesToCells with a resolution per position.
func (e *Engine) CoordinatesToCellsRes(ctx context.Context, lat, lng *array.Float64, res *array.Uint8, radians bool) (CellArray, error) {
	if lat.Len() != lng.Len() || lat.Len() != res.Len() {
		return CellArray{}, fmt.Errorf("%w: %d lat, %d lng, %d resolutions", ErrLengthMismatch, lat.Len(), lng.Len(), res.Len())
	}
	for i := 0; i < res.Len(); i++ {
		if res.IsValid(i) {
			if err := validateRes(int(res.Value(i))); err != nil {
				return CellArray{}, fmt.Errorf("position %d: %w", i, err)
			}
		}
	}
	return e.coordinatesToCells(ctx, lat, lng, func(i int) (int, bool) {
		if res.IsNull(i) {
			return 0, false
		}
		return int(res.Value(i)), true
	}, radians)
}

func (e *Engine) coordinatesToCells(ctx context.Context, lat, lng *array.Float64, resAt func(int) (int, bool), radians bool) (CellArray, error) {
	n := lat.Len()
	vals := make([]uint64, n)
	ok := make([]bool, n)
	err := e.ForChunks(ctx, n, func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			res, rok := resAt(i)
			if !rok || lat.IsNull(i) || lng.IsNull(i) {
				continue
			}
			la, ln := lat.Value(i), lng.Value(i)
			if radians {
				la, ln = toDegrees(la), toDegrees(ln)
			}
			c, err := h3.LatLngToCell(h3.NewLatLng(la, ln), res)
			if err != nil {
				return fmt.Errorf("%w: position %d (%g,%g): %w", ErrInvalidArgument, i, la, ln, err)
			}
			vals[i], ok[i] = uint64(c), true
		}
		return nil
	})
	if err != nil {
		return CellArray{}, err
	}
	return e.newCells(vals, ok), nil
}
