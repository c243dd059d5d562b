// Package app wires the shared runtime of the h3columnar binaries: logging,
// the metrics registry, the compute engine and the result cache.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/mohammed-shakir/h3-columnar/internal/cache/compress"
	"github.com/mohammed-shakir/h3-columnar/internal/cache/redisstore"
	"github.com/mohammed-shakir/h3-columnar/internal/cache/resultcache"
	"github.com/mohammed-shakir/h3-columnar/internal/core/config"
	"github.com/mohammed-shakir/h3-columnar/internal/core/observability"
	"github.com/mohammed-shakir/h3-columnar/internal/hotness/expdecay"
	"github.com/mohammed-shakir/h3-columnar/internal/hotness/metricswrap"
	"github.com/mohammed-shakir/h3-columnar/internal/logger"
	"github.com/mohammed-shakir/h3-columnar/internal/metrics"
	"github.com/mohammed-shakir/h3-columnar/pkg/h3array"
)

type App struct {
	Log     *slog.Logger
	Metrics *metrics.Provider
	Engine  *h3array.Engine
	// Cache is nil when caching is disabled.
	Cache *resultcache.Cache

	store *redisstore.Client
}

// New builds the runtime for component. out receives log lines.
func New(ctx context.Context, cfg config.Config, component string, build metrics.BuildInfo, out io.Writer) (*App, error) {
	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Component: component,
	}, out)
	a := &App{Log: logger.NewSlog(&zl)}

	a.Metrics = metrics.Init(metrics.Config{Component: component, Build: build, Parallelism: cfg.Parallelism})
	if err := observability.Init(a.Metrics.Registerer()); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	a.Engine = h3array.New(h3array.WithParallelism(cfg.Parallelism), h3array.WithMaxCells(cfg.MaxCells))

	if !cfg.Cache.Enabled {
		a.Log.Info("result cache disabled")
		return a, nil
	}
	codec, err := compress.ParseCodec(cfg.Cache.Compression)
	if err != nil {
		return nil, err
	}
	var store resultcache.Store
	if cfg.RedisAddr != "" {
		c, err := redisstore.New(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		a.store = c
		store = c
	}
	tracker := expdecay.New(cfg.Cache.HotHalfLife, expdecay.WithMaxKeys(max(16*cfg.Cache.LRUSize, 4096)))
	hot := metricswrap.New(tracker, cfg.Cache.HotThreshold, 0.01, a.Log)
	a.Cache = resultcache.New(resultcache.Config{
		LRUSize:      cfg.Cache.LRUSize,
		TTL:          cfg.Cache.TTL,
		Codec:        codec,
		HotThreshold: cfg.Cache.HotThreshold,
		HotTTL:       cfg.Cache.HotTTL,
		OpTimeout:    cfg.Cache.OpTimeout,
	}, store, hot, a.Log)
	a.Log.Info("result cache ready",
		"lru_size", cfg.Cache.LRUSize, "codec", codec.String(), "redis", cfg.RedisAddr != "")
	return a, nil
}

func (a *App) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}
