package metrics

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	promNamespace       = "featureroute"
	promRouteSubsystem  = "route"
	promServeSubsystem  = "serve"
	promCustomSubsystem = "custom"
)

// Prometheus implements the prometheus metrics backend.
type Prometheus struct {
	routeLookupM     *prometheus.HistogramVec
	routeErrorsM     *prometheus.CounterVec
	variantM         *prometheus.CounterVec
	serveRouteM      *prometheus.HistogramVec
	customHistogramM *prometheus.HistogramVec
	customCounterM   *prometheus.CounterVec
	customGaugeM     *prometheus.GaugeVec

	opts     Options
	registry *prometheus.Registry
	handler  http.Handler
}

// NewPrometheus returns a new Prometheus metric backend.
func NewPrometheus(opts Options) *Prometheus {
	opts = applyCompatibilityDefaults(opts)

	namespace := promNamespace
	if opts.Prefix != "" {
		namespace = strings.TrimSuffix(opts.Prefix, ".")
	}

	p := &Prometheus{
		routeLookupM: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: promRouteSubsystem,
			Name:      "lookup_duration_seconds",
			Help:      "Duration in seconds of a route lookup.",
			Buckets:   opts.HistogramBuckets,
		}, nil),
		routeErrorsM: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: promRouteSubsystem,
			Name:      "error_total",
			Help:      "The total of requests matching no route.",
		}, nil),
		variantM: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: promRouteSubsystem,
			Name:      "variant_total",
			Help:      "The total of variant selections per route.",
		}, []string{"route", "variant"}),
		serveRouteM: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: promServeSubsystem,
			Name:      "route_duration_seconds",
			Help:      "Duration in seconds of serving a route.",
			Buckets:   opts.HistogramBuckets,
		}, []string{"code", "method", "route"}),
		customHistogramM: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: promCustomSubsystem,
			Name:      "duration_seconds",
			Help:      "Duration in seconds of custom metrics.",
			Buckets:   opts.HistogramBuckets,
		}, []string{"key"}),
		customCounterM: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: promCustomSubsystem,
			Name:      "total",
			Help:      "Total number of custom metrics.",
		}, []string{"key"}),
		customGaugeM: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: promCustomSubsystem,
			Name:      "gauges",
			Help:      "Gauges number of custom metrics.",
		}, []string{"key"}),

		registry: opts.PrometheusRegistry,
		opts:     opts,
	}

	if p.registry == nil {
		p.registry = prometheus.NewRegistry()
	}

	p.registerMetrics()
	return p
}

// sinceS returns the seconds passed since the start time until now.
func (p *Prometheus) sinceS(start time.Time) float64 {
	return time.Since(start).Seconds()
}

func (p *Prometheus) registerMetrics() {
	p.registry.MustRegister(p.routeLookupM)
	p.registry.MustRegister(p.routeErrorsM)
	p.registry.MustRegister(p.variantM)
	p.registry.MustRegister(p.serveRouteM)
	p.registry.MustRegister(p.customHistogramM)
	p.registry.MustRegister(p.customCounterM)
	p.registry.MustRegister(p.customGaugeM)

	if p.opts.EnableRuntimeMetrics {
		p.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		p.registry.MustRegister(collectors.NewGoCollector())
	}
}

func (p *Prometheus) CreateHandler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Prometheus) getHandler() http.Handler {
	if p.handler != nil {
		return p.handler
	}

	p.handler = p.CreateHandler()
	return p.handler
}

// RegisterHandler satisfies Metrics interface.
func (p *Prometheus) RegisterHandler(path string, mux *http.ServeMux) {
	mux.Handle(path, p.getHandler())
}

// MeasureSince satisfies Metrics interface.
func (p *Prometheus) MeasureSince(key string, start time.Time) {
	p.customHistogramM.WithLabelValues(key).Observe(p.sinceS(start))
}

// IncCounter satisfies Metrics interface.
func (p *Prometheus) IncCounter(key string) {
	p.customCounterM.WithLabelValues(key).Inc()
}

// IncCounterBy satisfies Metrics interface.
func (p *Prometheus) IncCounterBy(key string, value int64) {
	p.customCounterM.WithLabelValues(key).Add(float64(value))
}

// UpdateGauge satisfies Metrics interface.
func (p *Prometheus) UpdateGauge(key string, v float64) {
	p.customGaugeM.WithLabelValues(key).Set(v)
}

// MeasureRouteLookup satisfies Metrics interface.
func (p *Prometheus) MeasureRouteLookup(start time.Time) {
	p.routeLookupM.WithLabelValues().Observe(p.sinceS(start))
}

// IncRoutingFailures satisfies Metrics interface.
func (p *Prometheus) IncRoutingFailures() {
	p.routeErrorsM.WithLabelValues().Inc()
}

// IncVariant satisfies Metrics interface.
func (p *Prometheus) IncVariant(routeName, variant string) {
	if p.opts.EnableVariantMetrics {
		p.variantM.WithLabelValues(routeName, variant).Inc()
	}
}

// MeasureServe satisfies Metrics interface.
func (p *Prometheus) MeasureServe(routeName, method string, code int, start time.Time) {
	if p.opts.EnableServeRouteMetrics {
		p.serveRouteM.WithLabelValues(fmt.Sprint(code), measuredMethod(method), routeName).Observe(p.sinceS(start))
	}
}

func (p *Prometheus) Close() {}
