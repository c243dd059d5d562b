package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metricSet struct {
	msgs     *prometheus.CounterVec
	results  *prometheus.CounterVec
	proc     *prometheus.HistogramVec
	lagGauge prometheus.Gauge
}

func newMetricSet(r prometheus.Registerer) *metricSet {
	m := &metricSet{
		msgs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobs_msgs_total",
				Help: "Job messages consumed by result (ok, duplicate, malformed, publish_error).",
			},
			[]string{"result"},
		),
		results: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobs_results_total",
				Help: "Published job results by op and status.",
			},
			[]string{"op", "status"},
		),
		proc: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jobs_processing_seconds",
				Help:    "End-to-end processing time for one job.",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
			},
			[]string{"op"},
		),
		lagGauge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "jobs_lag_seconds",
				Help: "Approximate lag: now - message.timestamp.",
			},
		),
	}
	if r != nil {
		r.MustRegister(m.msgs, m.results, m.proc, m.lagGauge)
	}
	return m
}
