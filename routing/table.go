package routing

import (
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/zalando/featureroute/metrics"
)

const tracerName = "github.com/zalando/featureroute/routing"

// TableOptions are used to initialize a route table.
type TableOptions struct {

	// IgnoreTrailingSlash makes /foo/ match the same routes as /foo.
	IgnoreTrailingSlash bool

	// Metrics receives route lookup, variant selection and serve
	// measurements. Optional.
	Metrics metrics.Metrics

	// Tracer creates the spans around serving a request. Defaults to the
	// tracer of the global provider.
	Tracer trace.Tracer

	// NotFound serves requests that match no route. Defaults to
	// http.NotFound.
	NotFound http.Handler
}

type entry struct {
	name  string
	route Route
}

// immutable, replaced as a whole on every change
type snapshot struct {
	entries []entry
}

func (s *snapshot) find(name string) int {
	return slices.IndexFunc(s.entries, func(e entry) bool { return e.name == name })
}

// Table is an ordered set of named routes. Lookups are lock free and can
// run concurrently with changes: every change replaces the whole set.
type Table struct {
	options TableOptions
	tracer  trace.Tracer

	mu      sync.Mutex
	current atomic.Pointer[snapshot]
}

// NewTable creates an empty route table.
func NewTable(o TableOptions) *Table {
	t := &Table{options: o, tracer: o.Tracer}
	if t.tracer == nil {
		t.tracer = otel.Tracer(tracerName)
	}

	t.current.Store(&snapshot{})
	return t
}

// Add registers a route under a unique name. Routes are matched in the
// order of their registration.
func (t *Table) Add(name string, r Route) error {
	if name == "" {
		return invalidConfiguration("route name cannot be empty")
	}

	if r == nil {
		return invalidConfiguration("route %s: missing route", name)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.current.Load()
	if s.find(name) >= 0 {
		return invalidConfiguration("duplicate route name: %s", name)
	}

	entries := make([]entry, len(s.entries), len(s.entries)+1)
	copy(entries, s.entries)
	entries = append(entries, entry{name: name, route: r})
	t.current.Store(&snapshot{entries: entries})

	log.Debugf("route added: %s", name)
	return nil
}

// Remove deletes a route by name, and tells whether it was found.
func (t *Table) Remove(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.current.Load()
	i := s.find(name)
	if i < 0 {
		return false
	}

	t.current.Store(&snapshot{entries: slices.Delete(slices.Clone(s.entries), i, i+1)})
	log.Debugf("route removed: %s", name)
	return true
}

// NamedRoute is a route with its name in a table.
type NamedRoute struct {
	Name  string
	Route Route
}

// Update applies a batch of changes at once. The deleted routes are
// removed first. Then the upserted routes replace the routes with the same
// name, keeping their position, or they are appended in order. Lookups
// observe either none or all of the changes.
func (t *Table) Update(upsert []NamedRoute, deleted []string) error {
	seen := make(map[string]bool, len(upsert))
	for _, nr := range upsert {
		switch {
		case nr.Name == "":
			return invalidConfiguration("route name cannot be empty")
		case nr.Route == nil:
			return invalidConfiguration("route %s: missing route", nr.Name)
		case seen[nr.Name]:
			return invalidConfiguration("duplicate route name: %s", nr.Name)
		}

		seen[nr.Name] = true
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	entries := slices.DeleteFunc(slices.Clone(t.current.Load().entries), func(e entry) bool {
		return slices.Contains(deleted, e.name)
	})

	s := &snapshot{entries: entries}
	for _, nr := range upsert {
		if i := s.find(nr.Name); i >= 0 {
			s.entries[i].route = nr.Route
			continue
		}

		s.entries = append(s.entries, entry{name: nr.Name, route: nr.Route})
	}

	t.current.Store(s)
	log.Debugf("routes updated: %d upserted, %d deleted", len(upsert), len(deleted))
	return nil
}

// Names returns the route names in the order of registration.
func (t *Table) Names() []string {
	s := t.current.Load()
	names := make([]string, len(s.entries))
	for i, e := range s.entries {
		names[i] = e.name
	}

	return names
}

// Get returns a route by name.
func (t *Table) Get(name string) (Route, bool) {
	s := t.current.Load()
	if i := s.find(name); i >= 0 {
		return s.entries[i].route, true
	}

	return nil, false
}

func (t *Table) normalize(r *http.Request) *http.Request {
	if !t.options.IgnoreTrailingSlash || r.URL.Path == "/" || !strings.HasSuffix(r.URL.Path, "/") {
		return r
	}

	rr := r.Clone(r.Context())
	rr.URL.Path = strings.TrimSuffix(r.URL.Path, "/")
	if rr.URL.RawPath != "" {
		rr.URL.RawPath = strings.TrimSuffix(r.URL.RawPath, "/")
	}

	return rr
}

// lookup returns the request used for matching too, with the trailing
// slash trimmed when it is ignored.
func (t *Table) lookup(r *http.Request) (string, *RouteData, *http.Request) {
	start := time.Now()
	r = t.normalize(r)
	for _, e := range t.current.Load().entries {
		if rd := e.route.Match(r); rd != nil {
			if m := t.options.Metrics; m != nil {
				m.MeasureRouteLookup(start)
				if rd.Variant != "" {
					m.IncVariant(e.name, rd.Variant)
				}
			}

			return e.name, rd, r
		}
	}

	if m := t.options.Metrics; m != nil {
		m.MeasureRouteLookup(start)
		m.IncRoutingFailures()
	}

	return "", nil, r
}

// Lookup returns the route data of the first route matching the request,
// or nil.
func (t *Table) Lookup(r *http.Request) *RouteData {
	_, rd, _ := t.lookup(r)
	return rd
}

// URL generates a URL with the named route. When the name is empty, the
// first route that can generate a URL from the values is used. It returns
// nil when no URL can be generated.
func (t *Table) URL(r *http.Request, name string, values Values) *VirtualPathData {
	s := t.current.Load()
	if name != "" {
		i := s.find(name)
		if i < 0 {
			return nil
		}

		return s.entries[i].route.GenerateURL(r, values)
	}

	for _, e := range s.entries {
		if vpd := e.route.GenerateURL(r, values); vpd != nil {
			return vpd
		}
	}

	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.code == 0 {
		sr.code = code
	}

	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.code == 0 {
		sr.code = http.StatusOK
	}

	return sr.ResponseWriter.Write(b)
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter { return sr.ResponseWriter }

// ServeHTTP looks up the route for the request and dispatches it. The
// route data is available to the handler through the request context.
// With IgnoreTrailingSlash, the handler receives the request with the
// trimmed path.
// The trace context and the baggage of the request are extracted with the
// global propagator, before the lookup, so toggle predicates can use them.
func (t *Table) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := t.tracer.Start(ctx, "route", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	r = r.WithContext(ctx)
	name, rd, r := t.lookup(r)
	if rd == nil {
		span.SetAttributes(attribute.Bool("route.matched", false))
		if t.options.NotFound != nil {
			t.options.NotFound.ServeHTTP(w, r)
		} else {
			http.NotFound(w, r)
		}

		return
	}

	span.SetAttributes(
		attribute.Bool("route.matched", true),
		attribute.String("route.name", name),
	)

	if rd.Variant != "" {
		span.SetAttributes(attribute.String("route.variant", rd.Variant))
	}

	if si := serveInfoFromContext(ctx); si != nil {
		si.RouteName = name
		si.Variant = rd.Variant
	}

	rec := &statusRecorder{ResponseWriter: w}
	r = r.WithContext(NewContext(ctx, rd))
	rd.Route.Dispatch(rec, r, rd)

	if rec.code == 0 {
		rec.code = http.StatusOK
	}

	if m := t.options.Metrics; m != nil {
		m.MeasureServe(name, r.Method, rec.code, start)
	}
}
