package raster

import (
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb/geo"
	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/h3-columnar/pkg/h3array"
)

type ResolutionSearchMode int

const (
	// MinDiff picks the resolution whose average cell area is closest to the
	// pixel area.
	MinDiff ResolutionSearchMode = iota
	// SmallerThanPixel picks the coarsest resolution whose cells are smaller
	// than a pixel.
	SmallerThanPixel
)

func ParseResolutionSearchMode(s string) (ResolutionSearchMode, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_") {
	case "", "min_diff":
		return MinDiff, nil
	case "smaller_than_pixel":
		return SmallerThanPixel, nil
	default:
		return 0, fmt.Errorf("%w: unknown resolution search mode %q", h3array.ErrInvalidArgument, s)
	}
}

func (m ResolutionSearchMode) String() string {
	if m == SmallerThanPixel {
		return "smaller_than_pixel"
	}
	return "min_diff"
}

// NearestH3Resolution picks a resolution matching the pixel size at the centre
// of the raster.
func NearestH3Resolution(shape [2]int, t Transform, order AxisOrder, mode ResolutionSearchMode) (int, error) {
	w, h := widthHeight(shape, order)
	if w <= 0 || h <= 0 {
		return 0, fmt.Errorf("%w: empty raster shape %v", h3array.ErrInvalidArgument, shape)
	}
	if err := checkWGS84(t, w, h); err != nil {
		return 0, err
	}
	pixelArea := pixelAreaM2(t, float64(w/2), float64(h/2))

	best, bestDiff := -1, math.Inf(1)
	for res := 0; res <= h3array.MaxResolution; res++ {
		area, err := h3.HexagonAreaAvgM2(res)
		if err != nil {
			return 0, fmt.Errorf("average area at %d: %w", res, err)
		}
		switch mode {
		case SmallerThanPixel:
			if area < pixelArea {
				return res, nil
			}
		default:
			if d := math.Abs(area - pixelArea); d < bestDiff {
				best, bestDiff = res, d
			}
		}
	}
	if best < 0 {
		return h3array.MaxResolution, nil
	}
	return best, nil
}

func pixelAreaM2(t Transform, col, row float64) float64 {
	origin := t.point(col, row)
	dx := geo.Distance(origin, t.point(col+1, row))
	dy := geo.Distance(origin, t.point(col, row+1))
	return dx * dy
}
