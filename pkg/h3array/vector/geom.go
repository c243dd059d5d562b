package vector

import (
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

var binaryType = arrow.BinaryTypes.Binary

var degToRad orb.Projection = func(p orb.Point) orb.Point {
	return orb.Point{p[0] * math.Pi / 180, p[1] * math.Pi / 180}
}

// toRadians projects g in place when radians is set.
func toRadians(g orb.Geometry, radians bool) orb.Geometry {
	if !radians {
		return g
	}
	return project.Geometry(g, degToRad)
}

// segmentsIntersect reports whether segment ab touches or crosses cd.
func segmentsIntersect(a, b, c, d orb.Point) bool {
	o1 := orient(a, b, c)
	o2 := orient(a, b, d)
	o3 := orient(c, d, a)
	o4 := orient(c, d, b)
	if o1 != o2 && o3 != o4 {
		return true
	}
	switch {
	case o1 == 0 && onSegment(a, c, b):
		return true
	case o2 == 0 && onSegment(a, d, b):
		return true
	case o3 == 0 && onSegment(c, a, d):
		return true
	case o4 == 0 && onSegment(c, b, d):
		return true
	}
	return false
}

func orient(a, b, c orb.Point) int {
	v := (b[1]-a[1])*(c[0]-b[0]) - (b[0]-a[0])*(c[1]-b[1])
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// onSegment reports whether q lies inside the bounding box of pr; callers
// check collinearity first.
func onSegment(p, q, r orb.Point) bool {
	return q[0] <= math.Max(p[0], r[0]) && q[0] >= math.Min(p[0], r[0]) &&
		q[1] <= math.Max(p[1], r[1]) && q[1] >= math.Min(p[1], r[1])
}

// RingsIntersect reports whether any edge of a touches or crosses any edge
// of b.
func RingsIntersect(a, b orb.Ring) bool {
	if !a.Bound().Intersects(b.Bound()) {
		return false
	}
	for i := 0; i+1 < len(a); i++ {
		for j := 0; j+1 < len(b); j++ {
			if segmentsIntersect(a[i], a[i+1], b[j], b[j+1]) {
				return true
			}
		}
	}
	return false
}

func polygonRingsIntersect(p orb.Polygon, r orb.Ring) bool {
	for _, pr := range p {
		if RingsIntersect(pr, r) {
			return true
		}
	}
	return false
}
