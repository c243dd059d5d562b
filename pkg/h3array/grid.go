package h3array

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	h3 "github.com/uber/h3-go/v4"
)

type KAggregation int

const (
	KAggregationMin KAggregation = iota
	KAggregationMax
)

func ParseKAggregation(s string) (KAggregation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "min":
		return KAggregationMin, nil
	case "max":
		return KAggregationMax, nil
	default:
		return 0, fmt.Errorf("%w: unknown way to aggregate k: %q", ErrInvalidArgument, s)
	}
}

func (a KAggregation) String() string {
	if a == KAggregationMax {
		return "max"
	}
	return "min"
}

func validateK(k int) error {
	if k < 0 {
		return fmt.Errorf("%w: k must not be negative (got %d)", ErrInvalidArgument, k)
	}
	return nil
}

// GridDisk returns the cells within distance k of every input cell. The list
// form keeps positions; flatten concatenates.
func (e *Engine) GridDisk(ctx context.Context, cells CellArray, k int, flatten bool) (arrow.Array, error) {
	if err := validateK(k); err != nil {
		return nil, err
	}
	if err := e.checkDisks(cells, k); err != nil {
		return nil, err
	}
	n := cells.Len()
	lists := make([][]uint64, n)
	valid := make([]bool, n)
	err := e.ForChunks(ctx, n, func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			c, ok := cells.Cell(i)
			if !ok {
				continue
			}
			disk, err := h3.GridDisk(c, k)
			if err != nil {
				return fmt.Errorf("grid disk of %s: %w", c, err)
			}
			l := make([]uint64, len(disk))
			for j, d := range disk {
				l[j] = uint64(d)
			}
			lists[i], valid[i] = l, true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if flatten {
		return e.NewUint64(flatten64(lists), nil), nil
	}
	return e.NewUint64List(lists, valid), nil
}

// GridDiskDistances returns a cell/k table for the disks of radius k.
func (e *Engine) GridDiskDistances(ctx context.Context, cells CellArray, k int, flatten bool) (arrow.Record, error) {
	if err := validateK(k); err != nil {
		return nil, err
	}
	return e.gridDistances(ctx, cells, 0, k, flatten)
}

// GridRingDistances is GridDiskDistances limited to kMin <= distance <= kMax.
func (e *Engine) GridRingDistances(ctx context.Context, cells CellArray, kMin, kMax int, flatten bool) (arrow.Record, error) {
	if kMin >= kMax {
		return nil, fmt.Errorf("%w: k_min must be less than k_max", ErrInvalidArgument)
	}
	if err := validateK(kMin); err != nil {
		return nil, err
	}
	return e.gridDistances(ctx, cells, kMin, kMax, flatten)
}

func (e *Engine) gridDistances(ctx context.Context, cells CellArray, kMin, kMax int, flatten bool) (arrow.Record, error) {
	if err := e.checkDisks(cells, kMax); err != nil {
		return nil, err
	}
	n := cells.Len()
	cellLists := make([][]uint64, n)
	kLists := make([][]uint32, n)
	valid := make([]bool, n)
	err := e.ForChunks(ctx, n, func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			c, ok := cells.Cell(i)
			if !ok {
				continue
			}
			rings, err := h3.GridDiskDistances(c, kMax)
			if err != nil {
				return fmt.Errorf("grid disk distances of %s: %w", c, err)
			}
			var cl []uint64
			var kl []uint32
			for dist, ring := range rings {
				if dist < kMin {
					continue
				}
				for _, rc := range ring {
					cl = append(cl, uint64(rc))
					kl = append(kl, uint32(dist))
				}
			}
			cellLists[i], kLists[i], valid[i] = cl, kl, true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if flatten {
		return tableOwning([]string{ColCell, ColK},
			e.NewUint64(flatten64(cellLists), nil), e.NewUint32(flatten32(kLists))), nil
	}
	return tableOwning([]string{ColCell, ColK},
		e.NewUint64List(cellLists, valid), e.newUint32List(kLists, valid)), nil
}

// GridDiskAggregateK merges the disks of all input cells. Every reached cell
// appears once with the min or max distance over all origins reaching it.
func (e *Engine) GridDiskAggregateK(ctx context.Context, cells CellArray, k int, agg KAggregation) (arrow.Record, error) {
	if err := validateK(k); err != nil {
		return nil, err
	}
	if err := e.checkDisks(cells, k); err != nil {
		return nil, err
	}
	var mu sync.Mutex
	merged := make(map[h3.Cell]uint32, cells.Len())
	merge := func(local map[h3.Cell]uint32) {
		mu.Lock()
		defer mu.Unlock()
		for c, d := range local {
			cur, ok := merged[c]
			switch {
			case !ok:
				merged[c] = d
			case agg == KAggregationMin && d < cur:
				merged[c] = d
			case agg == KAggregationMax && d > cur:
				merged[c] = d
			}
		}
	}
	err := e.ForChunks(ctx, cells.Len(), func(lo, hi int) error {
		local := make(map[h3.Cell]uint32)
		for i := lo; i < hi; i++ {
			c, ok := cells.Cell(i)
			if !ok {
				continue
			}
			rings, err := h3.GridDiskDistances(c, k)
			if err != nil {
				return fmt.Errorf("grid disk distances of %s: %w", c, err)
			}
			for dist, ring := range rings {
				d := uint32(dist)
				for _, rc := range ring {
					cur, seen := local[rc]
					if !seen || (agg == KAggregationMin && d < cur) || (agg == KAggregationMax && d > cur) {
						local[rc] = d
					}
				}
			}
		}
		merge(local)
		return nil
	})
	if err != nil {
		return nil, err
	}

	keys := make([]h3.Cell, 0, len(merged))
	for c := range merged {
		keys = append(keys, c)
	}
	slices.Sort(keys)
	out := make([]uint64, len(keys))
	dist := make([]uint32, len(keys))
	for i, c := range keys {
		out[i], dist[i] = uint64(c), merged[c]
	}
	return tableOwning([]string{ColCell, ColK}, e.NewUint64(out, nil), e.NewUint32(dist)), nil
}

// list helpers exported for callers assembling their own tables

// ListValues returns the uint64 values of list element i, or nil when the
// element is null.
func ListValues(l *array.List, i int) []uint64 {
	if l.IsNull(i) {
		return nil
	}
	start, end := l.ValueOffsets(i)
	vals := l.ListValues().(*array.Uint64)
	return vals.Uint64Values()[start:end]
}
