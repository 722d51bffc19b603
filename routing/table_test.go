package routing_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zalando/featureroute/metrics"
	"github.com/zalando/featureroute/metrics/metricstest"
	"github.com/zalando/featureroute/routing"
)

func staticRoute(t *testing.T, url, text string) *routing.StaticRoute {
	t.Helper()
	r, err := routing.NewStaticRoute(url, nil, nil, nil, routing.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request, rd *routing.RouteData) {
			id, _ := routing.ValuesFromContext(r.Context()).String("id")
			fmt.Fprintf(w, "%s:%s", text, id)
		},
	))

	require.NoError(t, err)
	return r
}

type variantRoute struct {
	*routing.StaticRoute
	variant string
}

func (vr variantRoute) Match(r *http.Request) *routing.RouteData {
	rd := vr.StaticRoute.Match(r)
	if rd != nil {
		rd.Route = vr
		rd.Variant = vr.variant
	}

	return rd
}

func TestTableAdd(t *testing.T) {
	tbl := routing.NewTable(routing.TableOptions{})

	require.NoError(t, tbl.Add("a", staticRoute(t, "a", "a")))
	require.NoError(t, tbl.Add("b", staticRoute(t, "b", "b")))

	err := tbl.Add("a", staticRoute(t, "a", "a"))
	assert.True(t, errors.Is(err, routing.ErrInvalidConfiguration))

	err = tbl.Add("", staticRoute(t, "c", "c"))
	assert.True(t, errors.Is(err, routing.ErrInvalidConfiguration))

	err = tbl.Add("c", nil)
	assert.True(t, errors.Is(err, routing.ErrInvalidConfiguration))

	assert.Equal(t, []string{"a", "b"}, tbl.Names())

	_, ok := tbl.Get("b")
	assert.True(t, ok)
	_, ok = tbl.Get("c")
	assert.False(t, ok)
}

func TestTableRemove(t *testing.T) {
	tbl := routing.NewTable(routing.TableOptions{})
	require.NoError(t, tbl.Add("a", staticRoute(t, "a", "a")))
	require.NoError(t, tbl.Add("b", staticRoute(t, "b", "b")))
	require.NoError(t, tbl.Add("c", staticRoute(t, "c", "c")))

	assert.True(t, tbl.Remove("b"))
	assert.False(t, tbl.Remove("b"))
	assert.Equal(t, []string{"a", "c"}, tbl.Names())
	assert.Nil(t, tbl.Lookup(httptest.NewRequest("GET", "/b", nil)))
}

func TestTableUpdate(t *testing.T) {
	tbl := routing.NewTable(routing.TableOptions{})
	require.NoError(t, tbl.Add("a", staticRoute(t, "a", "a")))
	require.NoError(t, tbl.Add("b", staticRoute(t, "b", "b")))
	require.NoError(t, tbl.Add("c", staticRoute(t, "c", "c")))

	b2 := staticRoute(t, "b2", "b2")
	err := tbl.Update([]routing.NamedRoute{
		{Name: "d", Route: staticRoute(t, "d", "d")},
		{Name: "b", Route: b2},
	}, []string{"a", "missing"})
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "c", "d"}, tbl.Names())
	r, ok := tbl.Get("b")
	require.True(t, ok)
	assert.Same(t, b2, r)

	for _, upsert := range [][]routing.NamedRoute{
		{{Name: "", Route: b2}},
		{{Name: "e"}},
		{{Name: "e", Route: b2}, {Name: "e", Route: b2}},
	} {
		err := tbl.Update(upsert, []string{"b"})
		assert.True(t, errors.Is(err, routing.ErrInvalidConfiguration))
	}

	assert.Equal(t, []string{"b", "c", "d"}, tbl.Names(), "failed updates leave the table unchanged")
}

func TestTableLookupOrder(t *testing.T) {
	tbl := routing.NewTable(routing.TableOptions{})
	first := staticRoute(t, "jobs/{id}", "first")
	require.NoError(t, tbl.Add("first", first))
	require.NoError(t, tbl.Add("second", staticRoute(t, "jobs/{id}", "second")))

	rd := tbl.Lookup(httptest.NewRequest("GET", "/jobs/42", nil))
	require.NotNil(t, rd)
	assert.Same(t, first, rd.Route)
}

func TestTableURL(t *testing.T) {
	tbl := routing.NewTable(routing.TableOptions{})
	require.NoError(t, tbl.Add("docs", staticRoute(t, "docs/{page}", "docs")))
	require.NoError(t, tbl.Add("jobs", staticRoute(t, "jobs/job-{title}_{id}", "jobs")))

	r := httptest.NewRequest("GET", "/", nil)
	values := routing.Values{"title": "project-manager", "id": 1554}

	vpd := tbl.URL(r, "jobs", values)
	require.NotNil(t, vpd)
	assert.Equal(t, "/jobs/job-project-manager_1554", vpd.Path)

	vpd = tbl.URL(r, "", values)
	require.NotNil(t, vpd)
	assert.Equal(t, "/jobs/job-project-manager_1554", vpd.Path)

	assert.Nil(t, tbl.URL(r, "docs", values))
	assert.Nil(t, tbl.URL(r, "missing", values))
	assert.Nil(t, tbl.URL(r, "", routing.Values{"foo": "bar"}))
}

func TestTableServeHTTP(t *testing.T) {
	m := &metricstest.MockMetrics{}
	tbl := routing.NewTable(routing.TableOptions{Metrics: m})
	require.NoError(t, tbl.Add("jobs", variantRoute{staticRoute(t, "jobs/{id}", "jobs"), "experimental"}))

	for _, ti := range []struct {
		path string
		code int
		body string
	}{
		{"/jobs/42", http.StatusOK, "jobs:42"},
		{"/jobs/42/", http.StatusNotFound, ""},
		{"/docs", http.StatusNotFound, ""},
	} {
		t.Run(ti.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			tbl.ServeHTTP(w, httptest.NewRequest("GET", ti.path, nil))
			assert.Equal(t, ti.code, w.Code)
			if ti.body != "" {
				assert.Equal(t, ti.body, w.Body.String())
			}
		})
	}

	v, _ := m.Counter(fmt.Sprintf(metrics.KeyVariant, "jobs", "experimental"))
	assert.Equal(t, int64(1), v)

	v, _ = m.Counter(metrics.KeyRouteFailure)
	assert.Equal(t, int64(2), v)

	d, _ := m.Measure(metrics.KeyRouteLookup)
	assert.Len(t, d, 3)

	d, _ = m.Measure(fmt.Sprintf(metrics.KeyServeRoute, "jobs", "GET", http.StatusOK))
	assert.Len(t, d, 1)
}

func TestTableServeInfo(t *testing.T) {
	tbl := routing.NewTable(routing.TableOptions{})
	require.NoError(t, tbl.Add("jobs", variantRoute{staticRoute(t, "jobs/{id}", "jobs"), "experimental"}))

	r := httptest.NewRequest("GET", "/jobs/42", nil)
	ctx, si := routing.NewServeInfoContext(r.Context())
	tbl.ServeHTTP(httptest.NewRecorder(), r.WithContext(ctx))
	assert.Equal(t, routing.ServeInfo{RouteName: "jobs", Variant: "experimental"}, *si)

	r = httptest.NewRequest("GET", "/docs", nil)
	ctx, si = routing.NewServeInfoContext(r.Context())
	tbl.ServeHTTP(httptest.NewRecorder(), r.WithContext(ctx))
	assert.Empty(t, si.RouteName)
}

func TestTableIgnoreTrailingSlash(t *testing.T) {
	tbl := routing.NewTable(routing.TableOptions{IgnoreTrailingSlash: true})
	require.NoError(t, tbl.Add("jobs", staticRoute(t, "jobs/{id}", "jobs")))

	rd := tbl.Lookup(httptest.NewRequest("GET", "/jobs/42/", nil))
	require.NotNil(t, rd)
	assert.Equal(t, routing.Values{"id": "42"}, rd.Values)

	var path string
	r, err := routing.NewStaticRoute("docs/{page}", nil, nil, nil, routing.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request, _ *routing.RouteData) {
			path = r.URL.Path
		},
	))
	require.NoError(t, err)
	require.NoError(t, tbl.Add("docs", r))

	req := httptest.NewRequest("GET", "/docs/intro/", nil)
	w := httptest.NewRecorder()
	tbl.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/docs/intro", path)
	assert.Equal(t, "/docs/intro/", req.URL.Path)
}

func TestTableNotFoundHandler(t *testing.T) {
	tbl := routing.NewTable(routing.TableOptions{
		NotFound: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}),
	})

	w := httptest.NewRecorder()
	tbl.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
}

func TestTableTracing(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(t.Context())

	tbl := routing.NewTable(routing.TableOptions{Tracer: tp.Tracer("test")})
	require.NoError(t, tbl.Add("jobs", variantRoute{staticRoute(t, "jobs/{id}", "jobs"), "current"}))

	tbl.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/jobs/1", nil))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	attrs := make(map[string]string)
	for _, a := range spans[0].Attributes {
		attrs[string(a.Key)] = a.Value.Emit()
	}

	assert.Equal(t, "route", spans[0].Name)
	assert.Equal(t, "jobs", attrs["route.name"])
	assert.Equal(t, "current", attrs["route.variant"])
	assert.Equal(t, "true", attrs["route.matched"])
}

func TestTableConcurrentChanges(t *testing.T) {
	tbl := routing.NewTable(routing.TableOptions{})
	require.NoError(t, tbl.Add("jobs", staticRoute(t, "jobs/{id}", "jobs")))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if tbl.Lookup(httptest.NewRequest("GET", "/jobs/1", nil)) == nil {
					t.Error("failed to lookup")
					return
				}
			}
		}()
	}

	for i := 0; i < 100; i++ {
		name := fmt.Sprintf("route%d", i)
		require.NoError(t, tbl.Add(name, staticRoute(t, name, name)))
		assert.True(t, tbl.Remove(name))
	}

	wg.Wait()
	assert.Equal(t, []string{"jobs"}, tbl.Names())
}
