package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Kind selects the metrics backend.
type Kind int

const (
	UnknownKind Kind = 0
	CodaHaleKind Kind = 1 << iota
	PrometheusKind
	AllKind = CodaHaleKind | PrometheusKind
)

func (k Kind) String() string {
	switch k {
	case AllKind:
		return "all"
	case CodaHaleKind:
		return "codahale"
	case PrometheusKind:
		return "prometheus"
	default:
		return "unknown"
	}
}

// ParseMetricsKind parses the name of a metrics backend. The empty string
// selects CodaHale.
func ParseMetricsKind(t string) Kind {
	switch strings.ToLower(t) {
	case "codahale", "":
		return CodaHaleKind
	case "prometheus":
		return PrometheusKind
	case "all":
		return AllKind
	default:
		return UnknownKind
	}
}

// Metrics is the generic interface of the metrics backends collecting the
// route lookup, variant selection and serve measurements.
type Metrics interface {
	MeasureSince(key string, start time.Time)
	IncCounter(key string)
	IncCounterBy(key string, value int64)
	UpdateGauge(key string, value float64)

	// MeasureRouteLookup measures the time of finding the route of a request.
	MeasureRouteLookup(start time.Time)

	// IncRoutingFailures counts the requests matching no route.
	IncRoutingFailures()

	// IncVariant counts the selection of a route variant.
	IncVariant(routeName, variant string)

	// MeasureServe measures the time of serving a request by a route.
	MeasureServe(routeName, method string, code int, start time.Time)

	RegisterHandler(path string, mux *http.ServeMux)
	Close()
}

// Options for initializing metrics collection.
type Options struct {

	// Format selects the backend, defaults to CodaHale.
	Format Kind

	// Common prefix for the keys of the different
	// collected metrics.
	Prefix string

	// If set, garbage collector metrics are collected
	// in addition to the http traffic metrics.
	EnableDebugGcMetrics bool

	// If set, Go runtime metrics are collected in
	// addition to the http traffic metrics.
	EnableRuntimeMetrics bool

	// If set, the time of serving requests is measured per route.
	EnableServeRouteMetrics bool

	// If set, the selected variants are counted per route.
	EnableVariantMetrics bool

	// The following options, for backwards compatibility, are true
	// by default: EnableServeRouteMetrics, EnableVariantMetrics.
	// With this compatibility flag, the default for these options
	// can be set to false.
	DisableCompatibilityDefaults bool

	// UseExpDecaySample, when set, makes the histograms use an exponentially
	// decaying sample instead of the default uniform one.
	UseExpDecaySample bool

	// HistogramBuckets defines buckets into which the observations are
	// counted for histogram metrics. Only used by the Prometheus backend.
	HistogramBuckets []float64

	// PrometheusRegistry is used to register the metrics. When not set, a
	// new registry is created.
	PrometheusRegistry *prometheus.Registry
}

var (
	// Void discards all measurements.
	Void = NewVoid()

	// Default is used by the components when no metrics backend was
	// configured.
	Default Metrics = Void
)

// NewDefault creates the backend selected by the format option.
func NewDefault(o Options) Metrics {
	switch o.Format {
	case AllKind:
		return NewAll(o)
	case PrometheusKind:
		return NewPrometheus(o)
	default:
		return NewCodaHale(o)
	}
}

// Init creates the metrics backend and makes it the package default.
func Init(o Options) Metrics {
	Default = NewDefault(o)
	return Default
}
