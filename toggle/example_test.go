package toggle_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing/fstest"

	"github.com/zalando/featureroute/handlers/controller"
	"github.com/zalando/featureroute/handlers/page"
	"github.com/zalando/featureroute/routing"
	"github.com/zalando/featureroute/toggle"
)

func Example() {
	registry := controller.NewRegistry()
	registry.Register("Jobs", controller.Controller{
		"Details": func(w http.ResponseWriter, _ *http.Request, v routing.Values) {
			title, _ := v.String("title")
			fmt.Fprintf(w, "controller: %s", title)
		},
	})

	secure := routing.PredicateFunc(func(r *http.Request) bool {
		return r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
	})

	r, err := toggle.WithURLOptions("jobs/job-{title}_{id}", toggle.BuilderOptions{
		Pages:       page.Options{Root: fstest.MapFS{"pages/jobs.html": {Data: []byte("page")}}},
		Controllers: registry,
	}).
		WithToggle(secure).
		WithCurrentPage("~/pages/jobs.html", toggle.PageOptions{
			Constraints: map[string]string{"id": `\d+`},
		}).
		WithExperimentalController(toggle.ControllerOptions{
			Defaults: map[string]string{"controller": "Jobs", "action": "Details"},
		}).
		Build()
	if err != nil {
		fmt.Println(err)
		return
	}

	tbl := routing.NewTable(routing.TableOptions{})
	if err := tbl.Add("JobDetails", r); err != nil {
		fmt.Println(err)
		return
	}

	for _, proto := range []string{"http", "https"} {
		req := httptest.NewRequest("GET", "/jobs/job-project-manager_1554", nil)
		req.Header.Set("X-Forwarded-Proto", proto)
		w := httptest.NewRecorder()
		tbl.ServeHTTP(w, req)
		fmt.Println(w.Body.String())
	}

	// Output:
	// page
	// controller: project-manager
}
