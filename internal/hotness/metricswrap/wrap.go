// Package metricswrap reports hotness tracking through Prometheus and the
// logger.
package metricswrap

import (
	"context"
	"fmt"
	"log/slog"

	xx "github.com/cespare/xxhash/v2"

	"github.com/mohammed-shakir/h3-columnar/internal/core/observability"
	"github.com/mohammed-shakir/h3-columnar/internal/hotness"
	mylog "github.com/mohammed-shakir/h3-columnar/internal/logger"
)

type Sizer interface{ Size() int }

type WithMetrics struct {
	inner     hotness.Interface
	threshold float64
	logSample float64
	log       *slog.Logger
}

// New wraps inner. Keys crossing threshold are logged for a logSample share
// of keys (0.01 logs one key in a hundred).
func New(inner hotness.Interface, threshold, logSample float64, log *slog.Logger) *WithMetrics {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &WithMetrics{inner: inner, threshold: threshold, logSample: logSample, log: log}
}

func (w *WithMetrics) Inc(key string) float64 {
	score := w.inner.Inc(key)
	// the pre-increment score decayed by at most the elapsed time, so a
	// crossing is when the increment itself lifted the score over threshold
	if w.threshold > 0 && score >= w.threshold && score-1 < w.threshold && shouldLog(w.logSample, key) {
		ctx := mylog.WithComponent(context.Background(), "hotness")
		w.log.DebugContext(ctx, "key became hot",
			"score", score,
			"key_hash", fmt.Sprintf("%016x", xx.Sum64String(key)),
		)
	}
	w.report()
	return score
}

func (w *WithMetrics) Score(key string) float64 {
	return w.inner.Score(key)
}

func (w *WithMetrics) Reset(keys ...string) {
	w.inner.Reset(keys...)
	w.report()
}

func (w *WithMetrics) report() {
	if s, ok := w.inner.(Sizer); ok {
		observability.SetHotKeys(s.Size())
	}
}

func shouldLog(sample float64, key string) bool {
	if sample <= 0 {
		return false
	}
	if sample >= 1 {
		return true
	}
	const denom = 10000 // 0.01 => 100/10000
	threshold := uint64(sample*denom + 0.5)
	if threshold == 0 {
		return false
	}
	h := xx.Sum64String(key)
	return (h % denom) < threshold
}

type pruner interface{ Prune(min float64) int }

// Prune forwards to the wrapped tracker when it supports pruning.
func (w *WithMetrics) Prune(min float64) int {
	p, ok := w.inner.(pruner)
	if !ok {
		return 0
	}
	n := p.Prune(min)
	w.report()
	return n
}
