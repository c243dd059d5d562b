// Package metrics owns the Prometheus registry shared by the HTTP service and
// the Kafka worker.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type BuildInfo struct {
	Version   string
	Revision  string
	Branch    string
	BuildDate string
}

type Config struct {
	// Component labels app_build_info, e.g. "h3columnar" or "h3worker".
	Component string
	Build     BuildInfo
	// Parallelism is exported as engine_parallelism when positive.
	Parallelism int
}

type Provider struct {
	reg *prometheus.Registry
}

func Init(cfg Config) *Provider {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	build := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build info for this binary (value is always 1).",
		},
		[]string{"component", "version", "revision", "branch", "build_date"},
	)
	reg.MustRegister(build)
	v := cfg.Build
	if v.Version == "" {
		v.Version = "dev"
	}
	if cfg.Component == "" {
		cfg.Component = "h3columnar"
	}
	build.WithLabelValues(cfg.Component, v.Version, v.Revision, v.Branch, v.BuildDate).Set(1)

	if cfg.Parallelism > 0 {
		par := prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "engine_parallelism",
			Help: "Worker goroutines used per array operation.",
		})
		par.Set(float64(cfg.Parallelism))
		reg.MustRegister(par)
	}

	return &Provider{reg: reg}
}

// Handler serves the registry and counts its own scrapes.
func (p *Provider) Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(p.reg,
		promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{Registry: p.reg, EnableOpenMetrics: true}))
}

func (p *Provider) Register(cs ...prometheus.Collector) {
	for _, c := range cs {
		p.reg.MustRegister(c)
	}
}

func (p *Provider) Registerer() prometheus.Registerer { return p.reg }

func (p *Provider) Gatherer() prometheus.Gatherer { return p.reg }
