package featureroute

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zalando/featureroute/handlers/controller"
	"github.com/zalando/featureroute/metrics"
	snet "github.com/zalando/featureroute/net"
	"github.com/zalando/featureroute/routing"
)

func testControllers(t *testing.T) *controller.Registry {
	t.Helper()
	r := controller.NewRegistry()
	require.NoError(t, r.RegisterNamespace("Careers", "Jobs", controller.Controller{
		"Details": func(w http.ResponseWriter, _ *http.Request, v routing.Values) {
			title, _ := v.String("title")
			id, _ := v.String("id")
			fmt.Fprintf(w, "job %s %s\n", title, id)
		},
	}))

	require.NoError(t, r.Register("Offers", controller.Controller{
		"Index": func(w http.ResponseWriter, r *http.Request, _ routing.Values) {
			fmt.Fprintf(w, "offers for %s\n", r.Header.Get("X-Forwarded-For"))
		},
	}))

	return r
}

func testOptions(t *testing.T) Options {
	return Options{
		RoutesFile:        "testdata/routes.yaml",
		PagesRoot:         "testdata/www",
		Controllers:       testControllers(t),
		AccessLogOutput:   filepath.Join(t.TempDir(), "access.log"),
		MetricsFlavours:   metrics.PrometheusKind,
		SourcePollTimeout: 10 * time.Millisecond,
	}
}

func get(t *testing.T, url string, header http.Header) (int, string) {
	t.Helper()
	req, err := http.NewRequest("GET", url, nil)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}

	rsp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer rsp.Body.Close()

	b, err := io.ReadAll(rsp.Body)
	require.NoError(t, err)
	return rsp.StatusCode, string(b)
}

func TestRouter(t *testing.T) {
	o := testOptions(t)
	o.ForwardedHeaders = snet.ForwardedHeaders{For: true}

	r, err := newRouter(o)
	require.NoError(t, err)
	defer r.close()

	s := httptest.NewServer(r.handler)
	defer s.Close()

	for _, ti := range []struct {
		msg    string
		path   string
		header http.Header
		code   int
		body   string
	}{{
		msg:  "current page",
		path: "/jobs/job-project-manager_1554",
		code: http.StatusOK,
		body: "jobs page\n",
	}, {
		msg:    "experimental controller",
		path:   "/jobs/job-project-manager_1554",
		header: http.Header{"X-Beta": []string{"on"}},
		code:   http.StatusOK,
		body:   "job project-manager 1554\n",
	}, {
		msg:    "constraint of the experimental variant",
		path:   "/jobs/job-project-manager_abc",
		header: http.Header{"X-Beta": []string{"on"}},
		code:   http.StatusNotFound,
	}, {
		msg:    "forwarded for",
		path:   "/offers",
		header: http.Header{"X-Forwarded-For": []string{"10.0.0.1"}},
		code:   http.StatusOK,
		body:   "offers for 10.0.0.1, 127.0.0.1\n",
	}, {
		msg:  "current page without forwarded",
		path: "/offers",
		code: http.StatusOK,
		body: "offers page\n",
	}, {
		msg:  "no route",
		path: "/docs",
		code: http.StatusNotFound,
	}} {
		t.Run(ti.msg, func(t *testing.T) {
			code, body := get(t, s.URL+ti.path, ti.header)
			assert.Equal(t, ti.code, code)
			if ti.body != "" {
				assert.Equal(t, ti.body, body)
			}
		})
	}

	b, err := os.ReadFile(o.AccessLogOutput)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"GET /jobs/job-project-manager_1554 HTTP/1.1" 200`)
	assert.Contains(t, string(b), "JobDetails experimental\n")
	assert.Contains(t, string(b), "Offers current\n")
}

func TestSupportListener(t *testing.T) {
	r, err := newRouter(testOptions(t))
	require.NoError(t, err)
	defer r.close()

	main := httptest.NewServer(r.handler)
	defer main.Close()

	support := httptest.NewServer(r.support)
	defer support.Close()

	code, _ := get(t, main.URL+"/jobs/job-project-manager_1554", http.Header{"X-Beta": []string{"on"}})
	require.Equal(t, http.StatusOK, code)

	code, body := get(t, support.URL+"/metrics", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, strings.Contains(body, "JobDetails"), body)
}

func TestCustomRoutes(t *testing.T) {
	route, err := routing.NewStaticRoute("health", nil, nil, nil, routing.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request, _ *routing.RouteData) {
			w.Write([]byte("ok"))
		},
	))
	require.NoError(t, err)

	r, err := newRouter(Options{
		CustomRoutes:      []routing.NamedRoute{{Name: "health", Route: route}},
		AccessLogDisabled: true,
	})
	require.NoError(t, err)
	defer r.close()

	assert.Equal(t, []string{"health"}, r.table.Names())
	assert.Nil(t, r.watch)
}

func TestCustomRouteNameReserved(t *testing.T) {
	route, err := routing.NewStaticRoute("job", nil, nil, nil, routing.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request, _ *routing.RouteData) {
			w.Write([]byte("custom"))
		},
	))
	require.NoError(t, err)

	o := testOptions(t)
	o.CustomRoutes = []routing.NamedRoute{{Name: "JobDetails", Route: route}}
	_, err = newRouter(o)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reserved name: JobDetails")
}

func TestRouterErrors(t *testing.T) {
	for _, ti := range []struct {
		msg     string
		options Options
	}{{
		msg:     "missing route file",
		options: Options{RoutesFile: "testdata/missing.yaml", AccessLogDisabled: true},
	}, {
		msg:     "invalid log level",
		options: Options{ApplicationLogLevel: "LOUD", AccessLogDisabled: true},
	}, {
		msg: "invalid custom route",
		options: Options{
			CustomRoutes:      []routing.NamedRoute{{Name: "missing"}},
			AccessLogDisabled: true,
		},
	}} {
		t.Run(ti.msg, func(t *testing.T) {
			_, err := newRouter(ti.options)
			assert.Error(t, err)
		})
	}
}

func TestRunContext(t *testing.T) {
	o := testOptions(t)
	o.Address = "127.0.0.1:0"
	o.SupportListener = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunContext(ctx, o) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("failed to shut down")
	}
}

func TestRunContextFails(t *testing.T) {
	o := testOptions(t)
	o.Address = "invalid-address"

	err := RunContext(context.Background(), o)
	assert.Error(t, err)

	o = testOptions(t)
	o.RoutesFile = "testdata/missing.yaml"
	assert.Error(t, RunContext(context.Background(), o))
}
