// Package h3array implements H3 grid operations over arrow columnar arrays.
//
// Index columns are uint64 arrays whose validity bitmap marks missing or
// invalid positions. Element-wise operations keep positions aligned with
// their input; set-like operations (compact, change_resolution) do not.
package h3array

import (
	"context"
	"fmt"
	"runtime"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"golang.org/x/sync/errgroup"
)

const (
	MaxResolution = 15

	// DefaultMaxCells bounds the cells a single call may produce.
	DefaultMaxCells int64 = 1 << 26

	defaultChunkSize = 4096
)

type Option func(*Engine)

func WithAllocator(mem memory.Allocator) Option {
	return func(e *Engine) {
		if mem != nil {
			e.mem = mem
		}
	}
}

// WithParallelism bounds the number of chunks processed concurrently.
func WithParallelism(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.parallelism = n
		}
	}
}

func WithChunkSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.chunkSize = n
		}
	}
}

// WithMaxCells sets the largest output, in cells or pixels, a call may
// produce. Larger requests fail with ErrInvalidArgument before allocating.
func WithMaxCells(n int64) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxCells = n
		}
	}
}

type Engine struct {
	mem         memory.Allocator
	parallelism int
	chunkSize   int
	maxCells    int64
}

func New(opts ...Option) *Engine {
	e := &Engine{
		mem:         memory.DefaultAllocator,
		parallelism: runtime.GOMAXPROCS(0),
		chunkSize:   defaultChunkSize,
		maxCells:    DefaultMaxCells,
	}
	for _, f := range opts {
		f(e)
	}
	return e
}

func (e *Engine) Allocator() memory.Allocator { return e.mem }

func (e *Engine) MaxCells() int64 { return e.maxCells }

// ForChunks calls fn for consecutive [lo,hi) ranges covering n rows. Small
// inputs run inline, larger ones on a bounded errgroup. fn must only write to
// positions inside its own range.
func (e *Engine) ForChunks(ctx context.Context, n int, fn func(lo, hi int) error) error {
	if n == 0 {
		return nil
	}
	if n <= e.chunkSize || e.parallelism <= 1 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("chunk: %w", err)
		}
		return guard(0, n, fn)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for lo := 0; lo < n; lo += e.chunkSize {
		hi := min(lo+e.chunkSize, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("chunk %d..%d: %w", lo, hi, err)
			}
			return guard(lo, hi, fn)
		})
	}
	return g.Wait()
}

// guard runs fn and turns a panic into ErrPanic so a worker goroutine cannot
// take the process down.
func guard(lo, hi int, fn func(lo, hi int) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: chunk %d..%d: %v", ErrPanic, lo, hi, rec)
		}
	}()
	return fn(lo, hi)
}

func validateRes(res int) error {
	if res < 0 || res > MaxResolution {
		return fmt.Errorf("%w %d (must be 0..15)", ErrInvalidResolution, res)
	}
	return nil
}
