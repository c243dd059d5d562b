package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mohammed-shakir/h3-columnar/internal/app"
	"github.com/mohammed-shakir/h3-columnar/internal/core/config"
	"github.com/mohammed-shakir/h3-columnar/internal/core/server"
	"github.com/mohammed-shakir/h3-columnar/internal/metrics"
	"github.com/mohammed-shakir/h3-columnar/pkg/jobs/kafka"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, "h3columnar", buildInfo(), os.Stdout)
	if err != nil {
		os.Stderr.WriteString("startup: " + err.Error() + "\n")
		return 1
	}
	defer a.Close()

	a.Log.Info("starting h3columnar",
		"addr", cfg.Addr,
		"version", Version,
		"parallelism", cfg.Parallelism,
		"worker", cfg.Worker.Enabled)

	deps := server.Deps{Engine: a.Engine, Cache: a.Cache, Metrics: a.Metrics.Handler()}

	// the embedded worker shares the engine, cache and registry
	if cfg.Worker.Enabled {
		w := kafka.New(kafka.FromConfig(cfg), a.Engine, kafka.Options{
			Logger:   a.Log,
			Register: a.Metrics.Registerer(),
			Cache:    a.Cache,
		})
		if err := w.Start(ctx); err != nil {
			a.Log.Error("job worker start failed", "err", err)
			return 1
		}
		defer w.Stop()
		deps.Ready = w
	}

	if err := server.Run(ctx, cfg, a.Log, deps); err != nil {
		a.Log.Error("server exited with error", "err", err)
		return 1
	}
	a.Log.Info("server stopped")
	return 0
}

func buildInfo() metrics.BuildInfo {
	v := os.Getenv("BUILD_VERSION")
	if v == "" {
		v = Version
	}
	return metrics.BuildInfo{
		Version:   v,
		Revision:  os.Getenv("BUILD_REVISION"),
		Branch:    os.Getenv("BUILD_BRANCH"),
		BuildDate: os.Getenv("BUILD_DATE"),
	}
}
