package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-shakir/h3-columnar/internal/cache/resultcache"
	"github.com/mohammed-shakir/h3-columnar/internal/core/config"
	"github.com/mohammed-shakir/h3-columnar/internal/core/health"
	middleware "github.com/mohammed-shakir/h3-columnar/internal/core/middleware"
	"github.com/mohammed-shakir/h3-columnar/internal/core/router"
	"github.com/mohammed-shakir/h3-columnar/pkg/h3array"
)

type Deps struct {
	Engine *h3array.Engine
	// Cache may be nil to disable result caching.
	Cache   *resultcache.Cache
	Metrics http.Handler
	Ready   health.ReadinessReporter
}

// NewHandler builds the route tree.
func NewHandler(cfg config.Config, logger *slog.Logger, d Deps) http.Handler {
	if d.Metrics == nil {
		d.Metrics = promhttp.Handler()
	}
	if d.Ready == nil {
		d.Ready = health.AlwaysReady{}
	}

	r := chi.NewRouter()
	r.Use(middleware.Recover())
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(d.Ready))
	r.Method(http.MethodGet, "/metrics", d.Metrics)

	r.Route("/v1/ops", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
		r.Get("/", router.ListOps())
		r.With(middleware.BodyLimit(cfg.MaxBodyBytes)).
			Post("/{op}", router.HandleOp(logger, cfg, d.Engine, d.Cache))
	})
	return r
}

// sets up http and starts serving
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, d Deps) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(cfg, logger, d),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      cfg.OpTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
