package ops

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/mohammed-shakir/h3-columnar/pkg/h3array"
)

func init() {
	Register(Op{
		Name: "grid_disk", Inputs: []string{h3array.ColCell}, Cacheable: true,
		Doc:     "cells within k of every cell, one list per cell unless flatten=true",
		Handler: gridDisk,
	})
	Register(Op{
		Name: "grid_disk_distances", Inputs: []string{h3array.ColCell}, Cacheable: true,
		Doc:     "cell and k columns for the disk of radius k",
		Handler: gridDiskDistances,
	})
	Register(Op{
		Name: "grid_ring_distances", Inputs: []string{h3array.ColCell}, Cacheable: true,
		Doc:     "cell and k columns for k_min <= k <= k_max",
		Handler: gridRingDistances,
	})
	Register(Op{
		Name: "grid_disk_aggregate_k", Inputs: []string{h3array.ColCell}, Cacheable: true,
		Doc:     "union of all disks with the min or max k per cell (method=min|max)",
		Handler: gridDiskAggregateK,
	})
}

func gridDisk(ctx context.Context, e *h3array.Engine, in arrow.Record, p Params) (arrow.Record, error) {
	k, err := p.Int("k", 1)
	if err != nil {
		return nil, err
	}
	flatten, err := p.Bool("flatten", false)
	if err != nil {
		return nil, err
	}
	c, err := cells(e, in, h3array.ColCell)
	if err != nil {
		return nil, err
	}
	defer c.Release()
	out, err := e.GridDisk(ctx, c, k, flatten)
	if err != nil {
		return nil, err
	}
	return single(h3array.ColDisk, out), nil
}

func gridDiskDistances(ctx context.Context, e *h3array.Engine, in arrow.Record, p Params) (arrow.Record, error) {
	k, err := p.Int("k", 1)
	if err != nil {
		return nil, err
	}
	flatten, err := p.Bool("flatten", false)
	if err != nil {
		return nil, err
	}
	c, err := cells(e, in, h3array.ColCell)
	if err != nil {
		return nil, err
	}
	defer c.Release()
	return e.GridDiskDistances(ctx, c, k, flatten)
}

func gridRingDistances(ctx context.Context, e *h3array.Engine, in arrow.Record, p Params) (arrow.Record, error) {
	kMin, err := p.Int("k_min", 0)
	if err != nil {
		return nil, err
	}
	kMax, err := p.Int("k_max", 1)
	if err != nil {
		return nil, err
	}
	flatten, err := p.Bool("flatten", false)
	if err != nil {
		return nil, err
	}
	c, err := cells(e, in, h3array.ColCell)
	if err != nil {
		return nil, err
	}
	defer c.Release()
	return e.GridRingDistances(ctx, c, kMin, kMax, flatten)
}

func gridDiskAggregateK(ctx context.Context, e *h3array.Engine, in arrow.Record, p Params) (arrow.Record, error) {
	k, err := p.Int("k", 1)
	if err != nil {
		return nil, err
	}
	agg, err := h3array.ParseKAggregation(p.String("method", "min"))
	if err != nil {
		return nil, err
	}
	c, err := cells(e, in, h3array.ColCell)
	if err != nil {
		return nil, err
	}
	defer c.Release()
	return e.GridDiskAggregateK(ctx, c, k, agg)
}
