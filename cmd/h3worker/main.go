package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/h3-columnar/internal/app"
	"github.com/mohammed-shakir/h3-columnar/internal/core/config"
	"github.com/mohammed-shakir/h3-columnar/internal/core/health"
	"github.com/mohammed-shakir/h3-columnar/internal/metrics"
	"github.com/mohammed-shakir/h3-columnar/pkg/jobs/kafka"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

// run consumes op jobs from Kafka and serves health and metrics on ADDR.
func run() int {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		return 1
	}
	cfg.Worker.Enabled = true

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, "h3worker", metrics.BuildInfo{Version: Version}, os.Stdout)
	if err != nil {
		os.Stderr.WriteString("startup: " + err.Error() + "\n")
		return 1
	}
	defer a.Close()

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

	r := chi.NewRouter()
	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(w))
	r.Method(http.MethodGet, "/metrics", a.Metrics.Handler())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	a.Log.Info("h3worker listening", "addr", cfg.Addr, "version", Version)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.Log.Error("http server exited", "err", err)
		return 1
	}
	return 0
}
