// Package spatialindex answers envelope and polygon queries over the cells
// of a CellArray, returning one boolean per input position.
package spatialindex

import (
	"sort"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/mohammed-shakir/h3-columnar/pkg/h3array"
	"github.com/mohammed-shakir/h3-columnar/pkg/h3array/vector"
)

type entry struct {
	pos   int
	bound orb.Bound
	poly  orb.Polygon
}

// Index holds cell envelopes in degrees sorted by their minimum x.
type Index struct {
	mem     memory.Allocator
	n       int
	nulls   []bool
	entries []entry
	maxW    float64
}

// New builds an index over cells. Null cells stay null in every mask.
func New(e *h3array.Engine, cells h3array.CellArray) (*Index, error) {
	idx := &Index{mem: e.Allocator(), n: cells.Len(), nulls: make([]bool, cells.Len())}
	for i := 0; i < cells.Len(); i++ {
		c, ok := cells.Cell(i)
		if !ok {
			idx.nulls[i] = true
			continue
		}
		poly, err := vector.CellPolygon(c)
		if err != nil {
			return nil, err
		}
		b := poly.Bound()
		idx.entries = append(idx.entries, entry{pos: i, bound: b, poly: poly})
		idx.maxW = max(idx.maxW, b.Max[0]-b.Min[0])
	}
	sort.Slice(idx.entries, func(a, b int) bool {
		return idx.entries[a].bound.Min[0] < idx.entries[b].bound.Min[0]
	})
	return idx, nil
}

func (idx *Index) Len() int { return idx.n }

// candidates calls fn for every entry whose envelope intersects b.
func (idx *Index) candidates(b orb.Bound, fn func(entry)) {
	lo := sort.Search(len(idx.entries), func(i int) bool {
		return idx.entries[i].bound.Min[0] >= b.Min[0]-idx.maxW
	})
	for _, en := range idx.entries[lo:] {
		if en.bound.Min[0] > b.Max[0] {
			break
		}
		if en.bound.Intersects(b) {
			fn(en)
		}
	}
}

func (idx *Index) mask(match func(hit []bool)) *array.Boolean {
	hit := make([]bool, idx.n)
	match(hit)
	bld := array.NewBooleanBuilder(idx.mem)
	defer bld.Release()
	bld.Reserve(idx.n)
	for i := 0; i < idx.n; i++ {
		if idx.nulls[i] {
			bld.AppendNull()
			continue
		}
		bld.Append(hit[i])
	}
	return bld.NewBooleanArray()
}

// IntersectEnvelopes reports whether each cell envelope intersects b.
func (idx *Index) IntersectEnvelopes(b orb.Bound) *array.Boolean {
	return idx.mask(func(hit []bool) {
		idx.candidates(b, func(en entry) { hit[en.pos] = true })
	})
}

// IntersectPolygon reports whether each cell intersects poly.
func (idx *Index) IntersectPolygon(poly orb.Polygon) *array.Boolean {
	return idx.IntersectMultiPolygon(orb.MultiPolygon{poly})
}

func (idx *Index) IntersectMultiPolygon(mp orb.MultiPolygon) *array.Boolean {
	return idx.mask(func(hit []bool) {
		for _, poly := range mp {
			if len(poly) == 0 {
				continue
			}
			idx.candidates(poly.Bound(), func(en entry) {
				if !hit[en.pos] && polygonsIntersect(poly, en.poly) {
					hit[en.pos] = true
				}
			})
		}
	})
}

// EnvelopesWithinDistance reports whether each cell envelope lies within d
// of p. Distances are planar, in degrees.
func (idx *Index) EnvelopesWithinDistance(p orb.Point, d float64) *array.Boolean {
	return idx.mask(func(hit []bool) {
		idx.candidates(orb.Bound{Min: p, Max: p}.Pad(d), func(en entry) {
			if envelopeDistance(en.bound, p) <= d {
				hit[en.pos] = true
			}
		})
	})
}

func envelopeDistance(b orb.Bound, p orb.Point) float64 {
	if b.Contains(p) {
		return 0
	}
	return planar.DistanceFrom(b.ToRing(), p)
}

func polygonsIntersect(a, b orb.Polygon) bool {
	for _, v := range b[0] {
		if planar.PolygonContains(a, v) {
			return true
		}
	}
	for _, v := range a[0] {
		if planar.PolygonContains(b, v) {
			return true
		}
	}
	for _, ra := range a {
		for _, rb := range b {
			if vector.RingsIntersect(ra, rb) {
				return true
			}
		}
	}
	return false
}
