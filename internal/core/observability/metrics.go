package observability

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	opCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "op_calls_total",
			Help: "Operation calls by op and outcome (ok, user_error, error).",
		},
		[]string{"op", "outcome"},
	)

	opDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "op_duration_seconds",
			Help:    "Duration of operation calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 16),
		},
		[]string{"op"},
	)

	opInputRows = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "op_input_rows",
			Help:    "Rows per operation input.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 12),
		},
		[]string{"op"},
	)

	cacheResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_results_total",
			Help: "Result cache lookups by outcome and tier.",
		},
		[]string{"outcome", "tier"},
	)

	cacheOpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cache_op_duration_seconds",
			Help:    "Duration of result cache operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		},
		[]string{"op", "tier"},
	)

	cacheErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_errors_total",
			Help: "Result cache failures by op and tier.",
		},
		[]string{"op", "tier"},
	)

	cacheHotKeys = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cache_hot_keys",
			Help: "Result keys currently tracked by the admission hotness model.",
		},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal, httpRequestDurationSeconds,
		opCallsTotal, opDurationSeconds, opInputRows,
		cacheResults, cacheOpDurationSeconds, cacheErrors, cacheHotKeys,
	}
}

// Init registers the service metrics on reg, usually the metrics.Provider
// registry. Registering twice on the same
// registry is a no-op.
func Init(reg prometheus.Registerer) error {
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

// ObserveOp records one op call. outcome is "ok", "user_error" or "error".
func ObserveOp(op, outcome string, rows int64, durationSeconds float64) {
	opCallsTotal.WithLabelValues(op, outcome).Inc()
	opDurationSeconds.WithLabelValues(op).Observe(durationSeconds)
	opInputRows.WithLabelValues(op).Observe(float64(rows))
}

func IncCacheHit(tier string) {
	cacheResults.WithLabelValues("hit", tier).Inc()
}

func IncCacheMiss() {
	cacheResults.WithLabelValues("miss", "none").Inc()
}

func ObserveCacheOp(op, tier string, durationSeconds float64) {
	cacheOpDurationSeconds.WithLabelValues(op, tier).Observe(durationSeconds)
}

func IncCacheError(op, tier string) {
	cacheErrors.WithLabelValues(op, tier).Inc()
}

func SetHotKeys(n int) {
	cacheHotKeys.Set(float64(n))
}
