package metrics

import (
	"net/http"
	"time"
)

// All collects every measurement with both the Prometheus and the CodaHale
// backend. The handler serves the CodaHale JSON format when it is accepted
// explicitly, and the Prometheus text format otherwise.
type All struct {
	prometheus *Prometheus
	codaHale   *CodaHale
	backends   []Metrics
}

func NewAll(o Options) *All {
	a := &All{
		prometheus: NewPrometheus(o),
		codaHale:   NewCodaHale(o),
	}

	a.backends = []Metrics{a.prometheus, a.codaHale}
	return a
}

func (a *All) each(f func(Metrics)) {
	for _, b := range a.backends {
		f(b)
	}
}

func (a *All) MeasureSince(key string, start time.Time) {
	a.each(func(m Metrics) { m.MeasureSince(key, start) })
}

func (a *All) IncCounter(key string) {
	a.each(func(m Metrics) { m.IncCounter(key) })
}

func (a *All) IncCounterBy(key string, value int64) {
	a.each(func(m Metrics) { m.IncCounterBy(key, value) })
}

func (a *All) UpdateGauge(key string, v float64) {
	a.each(func(m Metrics) { m.UpdateGauge(key, v) })
}

func (a *All) MeasureRouteLookup(start time.Time) {
	a.each(func(m Metrics) { m.MeasureRouteLookup(start) })
}

func (a *All) IncRoutingFailures() {
	a.each(Metrics.IncRoutingFailures)
}

func (a *All) IncVariant(routeName, variant string) {
	a.each(func(m Metrics) { m.IncVariant(routeName, variant) })
}

func (a *All) MeasureServe(routeName, method string, code int, start time.Time) {
	a.each(func(m Metrics) { m.MeasureServe(routeName, method, code, start) })
}

func (a *All) Close() {
	a.each(Metrics.Close)
}

func (a *All) RegisterHandler(path string, mux *http.ServeMux) {
	promHandler := a.prometheus.getHandler()
	codaHaleHandler := a.codaHale.getHandler(path)
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") == "application/codahale+json" {
			codaHaleHandler.ServeHTTP(w, r)
			return
		}

		promHandler.ServeHTTP(w, r)
	})
}
