package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/h3-columnar/internal/cache/keys"
	"github.com/mohammed-shakir/h3-columnar/internal/cache/resultcache"
	"github.com/mohammed-shakir/h3-columnar/internal/core/arrowipc"
	"github.com/mohammed-shakir/h3-columnar/internal/core/config"
	"github.com/mohammed-shakir/h3-columnar/internal/core/observability"
	mylog "github.com/mohammed-shakir/h3-columnar/internal/logger"
	"github.com/mohammed-shakir/h3-columnar/internal/ops"
	"github.com/mohammed-shakir/h3-columnar/pkg/h3array"
)

const opRoute = "/v1/ops/{op}"

type opInfo struct {
	Name      string   `json:"name"`
	Doc       string   `json:"doc"`
	Inputs    []string `json:"inputs"`
	Cacheable bool     `json:"cacheable"`
}

// ListOps serves the registered ops as JSON.
func ListOps() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		all := ops.List()
		out := make([]opInfo, len(all))
		for i, op := range all {
			out[i] = opInfo{Name: op.Name, Doc: op.Doc, Inputs: op.Inputs, Cacheable: op.Cacheable}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
		observability.ObserveHTTP(r.Method, "/v1/ops", http.StatusOK, time.Since(start).Seconds())
	}
}

// HandleOp runs the op named in the path over the Arrow IPC request body.
// Query parameters become op params. cache may be nil.
func HandleOp(logger *slog.Logger, cfg config.Config, e *h3array.Engine, cache *resultcache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		defer func() {
			observability.ObserveHTTP(r.Method, opRoute, sw.code, time.Since(start).Seconds())
		}()

		name := chi.URLParam(r, "op")
		op, err := ops.Lookup(name)
		if err != nil {
			http.Error(sw, err.Error(), http.StatusNotFound)
			return
		}
		ctx := mylog.WithOp(r.Context(), op.Name)

		body, err := io.ReadAll(r.Body)
		if err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				http.Error(sw, "request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(sw, "read body: "+err.Error(), http.StatusBadRequest)
			return
		}

		params := ops.ParamsFromQuery(r.URL.Query())
		var key string
		if op.Cacheable && cache != nil {
			key = keys.Key(op.Name, params.Canonical(), body)
			if payload, tier, ok := cache.Get(ctx, key); ok {
				logger.DebugContext(mylog.WithCacheTier(ctx, tier), "served from cache")
				writeArrow(sw, payload, tier)
				return
			}
		}

		in, err := arrowipc.Decode(body, e.Allocator())
		if err != nil {
			http.Error(sw, err.Error(), http.StatusBadRequest)
			return
		}
		if in != nil {
			defer in.Release()
		}

		var rows int64
		if in != nil {
			rows = in.NumRows()
		}
		runCtx, cancel := context.WithTimeout(ctx, cfg.OpTimeout)
		defer cancel()
		opStart := time.Now()
		out, err := ops.Run(runCtx, e, op.Name, in, params)
		if err != nil {
			code, outcome := classify(err)
			observability.ObserveOp(op.Name, outcome, rows, time.Since(opStart).Seconds())
			if code >= http.StatusInternalServerError {
				logger.ErrorContext(ctx, "op failed", "err", err)
			} else {
				logger.DebugContext(ctx, "op rejected", "err", err)
			}
			http.Error(sw, err.Error(), code)
			return
		}
		defer out.Release()
		observability.ObserveOp(op.Name, "ok", rows, time.Since(opStart).Seconds())

		payload, err := arrowipc.Encode(out, e.Allocator())
		if err != nil {
			logger.ErrorContext(ctx, "encode result", "err", err)
			http.Error(sw, "encode result", http.StatusInternalServerError)
			return
		}
		if key != "" {
			cache.Put(ctx, key, payload)
		}
		writeArrow(sw, payload, "miss")
	}
}

func classify(err error) (int, string) {
	switch {
	case ops.IsUserError(err):
		return http.StatusBadRequest, "user_error"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled):
		return 499, "canceled"
	default:
		return http.StatusInternalServerError, "error"
	}
}

func writeArrow(w http.ResponseWriter, payload []byte, cacheStatus string) {
	w.Header().Set("Content-Type", arrowipc.StreamContentType)
	w.Header().Set("X-Cache", cacheStatus)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
