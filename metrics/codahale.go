package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/rcrowley/go-metrics"
)

const (
	KeyRouteLookup  = "routelookup"
	KeyRouteFailure = "routefailure"
	KeyVariant      = "variant.%s.%s"
	KeyServeRoute   = "serveroute.%s.%s.%d"

	statsRefreshDuration = time.Duration(5 * time.Second)

	defaultUniformReservoirSize  = 1024
	defaultExpDecayReservoirSize = 1028
	defaultExpDecayAlpha         = 0.015
)

// CodaHale is the CodaHale format backend, implements Metrics interface in DropWizard's CodaHale metrics format.
type CodaHale struct {
	reg           metrics.Registry
	createTimer   func() metrics.Timer
	createCounter func() metrics.Counter
	createGauge   func() metrics.GaugeFloat64
	options       Options
	handler       http.Handler
	quit          chan struct{}
	closeOnce     sync.Once
}

// NewCodaHale returns a new CodaHale backend of metrics.
func NewCodaHale(o Options) *CodaHale {
	o = applyCompatibilityDefaults(o)

	c := &CodaHale{quit: make(chan struct{})}
	c.reg = metrics.NewRegistry()

	c.createTimer = timerFactory(o.UseExpDecaySample)
	c.createCounter = metrics.NewCounter
	c.createGauge = metrics.NewGaugeFloat64
	c.options = o

	if o.EnableDebugGcMetrics {
		metrics.RegisterDebugGCStats(c.reg)
		go c.capture(func() { metrics.CaptureDebugGCStatsOnce(c.reg) })
	}

	if o.EnableRuntimeMetrics {
		metrics.RegisterRuntimeMemStats(c.reg)
		go c.capture(func() { metrics.CaptureRuntimeMemStatsOnce(c.reg) })
	}

	return c
}

// NewVoid returns a backend discarding every measurement.
func NewVoid() *CodaHale {
	c := &CodaHale{quit: make(chan struct{})}
	c.reg = metrics.NewRegistry()
	c.createTimer = func() metrics.Timer { return metrics.NilTimer{} }
	c.createCounter = func() metrics.Counter { return metrics.NilCounter{} }
	c.createGauge = func() metrics.GaugeFloat64 { return metrics.NilGaugeFloat64{} }
	return c
}

func (c *CodaHale) capture(f func()) {
	t := time.NewTicker(statsRefreshDuration)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			f()
		case <-c.quit:
			return
		}
	}
}

func (c *CodaHale) getTimer(key string) metrics.Timer {
	return c.reg.GetOrRegister(key, c.createTimer).(metrics.Timer)
}

func (c *CodaHale) updateTimer(key string, d time.Duration) {
	if t := c.getTimer(key); t != nil {
		t.Update(d)
	}
}

func (c *CodaHale) MeasureSince(key string, start time.Time) {
	c.measureSince(key, start)
}

func (c *CodaHale) getGauge(key string) metrics.GaugeFloat64 {
	return c.reg.GetOrRegister(key, c.createGauge).(metrics.GaugeFloat64)
}

func (c *CodaHale) UpdateGauge(key string, v float64) {
	if t := c.getGauge(key); t != nil {
		t.Update(v)
	}
}

func (c *CodaHale) IncCounter(key string) {
	c.incCounter(key, 1)
}

func (c *CodaHale) IncCounterBy(key string, value int64) {
	c.incCounter(key, value)
}

func (c *CodaHale) measureSince(key string, start time.Time) {
	c.updateTimer(key, time.Since(start))
}

func (c *CodaHale) MeasureRouteLookup(start time.Time) {
	c.measureSince(KeyRouteLookup, start)
}

func (c *CodaHale) MeasureServe(routeName, method string, code int, start time.Time) {
	if c.options.EnableServeRouteMetrics {
		c.measureSince(fmt.Sprintf(KeyServeRoute, routeName, measuredMethod(method), code), start)
	}
}

func (c *CodaHale) getCounter(key string) metrics.Counter {
	return c.reg.GetOrRegister(key, c.createCounter).(metrics.Counter)
}

func (c *CodaHale) incCounter(key string, value int64) {
	if c := c.getCounter(key); c != nil {
		c.Inc(value)
	}
}

func (c *CodaHale) IncRoutingFailures() {
	c.incCounter(KeyRouteFailure, 1)
}

func (c *CodaHale) IncVariant(routeName, variant string) {
	if c.options.EnableVariantMetrics {
		c.incCounter(fmt.Sprintf(KeyVariant, routeName, variant), 1)
	}
}

func (c *CodaHale) Close() {
	c.closeOnce.Do(func() { close(c.quit) })
}

func (c *CodaHale) RegisterHandler(path string, mux *http.ServeMux) {
	h := c.getHandler(path)
	mux.Handle(path, h)
}

func (c *CodaHale) CreateHandler(path string) http.Handler {
	return &codaHaleMetricsHandler{path: path, registry: c.reg, options: c.options}
}

func (c *CodaHale) getHandler(path string) http.Handler {
	if c.handler != nil {
		return c.handler
	}

	c.handler = c.CreateHandler(path)
	return c.handler
}

type codaHaleMetricsHandler struct {
	path     string
	registry metrics.Registry
	options  Options
}

func (c *codaHaleMetricsHandler) sendMetrics(w http.ResponseWriter, p string) {
	_, k := path.Split(p)

	metrics := filterMetrics(c.registry, c.options.Prefix, k)

	if len(metrics) > 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(metrics)
	} else {
		http.NotFound(w, nil)
	}
}

// This listener is only used to expose the metrics
func (c *codaHaleMetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	c.sendMetrics(w, strings.TrimPrefix(r.URL.Path, c.path))
}

func filterMetrics(reg metrics.Registry, prefix, key string) routerMetrics {
	metrics := make(routerMetrics)

	canonicalKey := strings.TrimPrefix(key, prefix)
	m := reg.Get(canonicalKey)
	if m != nil {
		metrics[key] = m
	} else {
		reg.Each(func(name string, i any) {
			if key == "" || (strings.HasPrefix(name, canonicalKey)) {
				metrics[prefix+name] = i
			}
		})
	}
	return metrics
}

type routerMetrics map[string]any

func timerValues(t metrics.Timer) map[string]any {
	s := t.Snapshot()
	ps := s.Percentiles([]float64{0.5, 0.75, 0.95, 0.99, 0.999})
	return map[string]any{
		"count":     s.Count(),
		"min":       s.Min(),
		"max":       s.Max(),
		"mean":      s.Mean(),
		"stddev":    s.StdDev(),
		"median":    ps[0],
		"75%":       ps[1],
		"95%":       ps[2],
		"99%":       ps[3],
		"99.9%":     ps[4],
		"1m.rate":   s.Rate1(),
		"5m.rate":   s.Rate5(),
		"15m.rate":  s.Rate15(),
		"mean.rate": s.RateMean(),
	}
}

// MarshalJSON groups the metrics by family: gauges, timers, counters.
func (sm routerMetrics) MarshalJSON() ([]byte, error) {
	data := make(map[string]map[string]any)
	for name, metric := range sm {
		var (
			family string
			values map[string]any
		)

		switch m := metric.(type) {
		case metrics.Gauge:
			family = "gauges"
			values = map[string]any{"value": m.Value()}
		case metrics.GaugeFloat64:
			family = "gauges"
			values = map[string]any{"value": m.Snapshot().Value()}
		case metrics.Timer:
			family = "timers"
			values = timerValues(m)
		case metrics.Counter:
			family = "counters"
			values = map[string]any{"count": m.Snapshot().Count()}
		default:
			family = "unknown"
			values = map[string]any{"error": fmt.Sprintf("unknown metrics type %T", m)}
		}

		if data[family] == nil {
			data[family] = make(map[string]any)
		}

		data[family][name] = values
	}

	return json.Marshal(data)
}
