package vector

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/h3-columnar/pkg/h3array"
)

// ContainmentMode selects which cells a polygon is converted to.
type ContainmentMode int

const (
	// ContainsCentroid keeps cells whose centroid lies in the polygon.
	ContainsCentroid ContainmentMode = iota
	// ContainsBoundary keeps cells lying completely inside the polygon.
	ContainsBoundary
	// IntersectsBoundary keeps cells whose boundary intersects the polygon.
	IntersectsBoundary
	// Covers is IntersectsBoundary plus the cell enclosing a polygon smaller
	// than one cell.
	Covers
)

func (m ContainmentMode) String() string {
	switch m {
	case ContainsBoundary:
		return "contains_boundary"
	case IntersectsBoundary:
		return "intersects_boundary"
	case Covers:
		return "covers"
	default:
		return "contains_centroid"
	}
}

func ParseContainmentMode(s string) (ContainmentMode, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", "")) {
	case "", "containscentroid":
		return ContainsCentroid, nil
	case "containsboundary":
		return ContainsBoundary, nil
	case "intersectsboundary":
		return IntersectsBoundary, nil
	case "covers":
		return Covers, nil
	default:
		return 0, fmt.Errorf("%w: unknown containment mode %q", h3array.ErrInvalidArgument, s)
	}
}

func (m ContainmentMode) h3Mode() h3.ContainmentMode {
	switch m {
	case ContainsBoundary:
		return h3.ContainmentFull
	case IntersectsBoundary, Covers:
		return h3.ContainmentOverlapping
	default:
		return h3.ContainmentCenter
	}
}

// enclosedBy reports whether poly lies inside cell without touching its edges.
func enclosedBy(poly orb.Polygon, cell orb.Ring) bool {
	if len(poly) == 0 || len(poly[0]) == 0 {
		return false
	}
	return planar.RingContains(cell, poly[0][0]) && !polygonRingsIntersect(poly, cell)
}
