package h3array

import (
	"fmt"
	"slices"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	h3 "github.com/uber/h3-go/v4"
)

// Compact replaces complete sets of siblings by their parent. Without
// mixedResolutions all cells must share one resolution.
func (e *Engine) Compact(cells CellArray, mixedResolutions bool) (CellArray, error) {
	in := cells.Cells()
	var (
		out []h3.Cell
		err error
	)
	if mixedResolutions {
		set := NewCellSet()
		set.Insert(in...)
		if err = set.Compact(); err != nil {
			return CellArray{}, err
		}
		out = set.Cells()
	} else {
		out, err = compactUniform(in)
		if err != nil {
			return CellArray{}, err
		}
	}
	return e.CellsFromSlice(out), nil
}

func compactUniform(in []h3.Cell) ([]h3.Cell, error) {
	if len(in) == 0 {
		return nil, nil
	}
	res := in[0].Resolution()
	for _, c := range in[1:] {
		if c.Resolution() != res {
			return nil, fmt.Errorf("%w: found resolutions %d and %d", ErrMixedResolutions, res, c.Resolution())
		}
	}
	uniq := sortedUnique(in)
	out, err := h3.CompactCells(uniq)
	if err != nil {
		return nil, fmt.Errorf("compact %d cells: %w", len(uniq), err)
	}
	return out, nil
}

// Uncompact expands every cell to targetRes. Cells finer than targetRes are an
// error.
func (e *Engine) Uncompact(cells CellArray, targetRes int) (CellArray, error) {
	if err := validateRes(targetRes); err != nil {
		return CellArray{}, err
	}
	in := cells.Cells()
	for _, c := range in {
		if c.Resolution() > targetRes {
			return CellArray{}, fmt.Errorf("%w: cell %s is finer than %d", ErrInvalidResolution, c, targetRes)
		}
	}
	if err := e.checkExpansion(in, targetRes); err != nil {
		return CellArray{}, err
	}
	out, err := h3.UncompactCells(in, targetRes)
	if err != nil {
		return CellArray{}, fmt.Errorf("uncompact %d cells: %w", len(in), err)
	}
	return e.CellsFromSlice(out), nil
}

func sortedUnique(in []h3.Cell) []h3.Cell {
	out := slices.Clone(in)
	slices.Sort(out)
	return slices.Compact(out)
}

// CellSet collects cells of mixed resolutions and compacts them across
// resolutions.
type CellSet struct {
	byRes    [MaxResolution + 1][]h3.Cell
	modified [MaxResolution + 1]bool
}

func NewCellSet() *CellSet { return &CellSet{} }

func (s *CellSet) Insert(cells ...h3.Cell) {
	for _, c := range cells {
		r := c.Resolution()
		s.byRes[r] = append(s.byRes[r], c)
		s.modified[r] = true
	}
}

func (s *CellSet) Len() int {
	n := 0
	for _, v := range s.byRes {
		n += len(v)
	}
	return n
}

// Compact compacts from the finest modified resolution down to 0, feeding
// parents into the next coarser bucket, then drops cells already covered by an
// ancestor.
func (s *CellSet) Compact() error {
	s.dedup(false)
	finest := -1
	for r := MaxResolution; r >= 0; r-- {
		if s.modified[r] {
			finest = r
			break
		}
	}
	for r := finest; r >= 0; r-- {
		in := sortedUnique(s.byRes[r])
		s.byRes[r] = nil
		if len(in) == 0 {
			continue
		}
		out, err := h3.CompactCells(in)
		if err != nil {
			return fmt.Errorf("compact resolution %d: %w", r, err)
		}
		s.Insert(out...)
	}
	s.modified = [MaxResolution + 1]bool{}
	s.dedup(true)
	return nil
}

// Finalize dedups, compacting first when compact is set.
func (s *CellSet) Finalize(compact bool) error {
	if compact {
		return s.Compact()
	}
	s.dedup(true)
	return nil
}

func (s *CellSet) dedup(parents bool) {
	used := 0
	for r := range s.byRes {
		s.byRes[r] = sortedUnique(s.byRes[r])
		if len(s.byRes[r]) > 0 {
			used++
		}
	}
	if !parents || used < 2 {
		return
	}
	seen := roaring64.New()
	for r := range s.byRes {
		if !seen.IsEmpty() {
			s.byRes[r] = slices.DeleteFunc(s.byRes[r], func(c h3.Cell) bool {
				return hasAncestorIn(c, seen)
			})
		}
		for _, c := range s.byRes[r] {
			seen.Add(uint64(c))
		}
	}
}

func hasAncestorIn(c h3.Cell, seen *roaring64.Bitmap) bool {
	for r := c.Resolution() - 1; r >= 0; r-- {
		p, err := c.Parent(r)
		if err != nil {
			return false
		}
		if seen.Contains(uint64(p)) {
			return true
		}
	}
	return false
}

// Cells returns the set ordered by resolution, then index.
func (s *CellSet) Cells() []h3.Cell {
	out := make([]h3.Cell, 0, s.Len())
	for _, v := range s.byRes {
		out = append(out, v...)
	}
	return out
}
