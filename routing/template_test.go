package routing

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseTemplate(t *testing.T) {
	for _, ti := range []struct {
		template string
		params   []string
		fail     bool
	}{
		{template: ""},
		{template: "/"},
		{template: "jobs"},
		{template: "/jobs/{id}", params: []string{"id"}},
		{template: "jobs/job-{title}_{id}", params: []string{"title", "id"}},
		{template: "{controller}/{action}/{id}", params: []string{"controller", "action", "id"}},
		{template: "files/{*path}", params: []string{"path"}},
		{template: "{{literal}}"},
		{template: "a{{b}}-{c}", params: []string{"c"}},
		{template: "~/jobs", fail: true},
		{template: "jobs?id={id}", fail: true},
		{template: "jobs//{id}", fail: true},
		{template: "jobs/", fail: true},
		{template: "{a}{b}", fail: true},
		{template: "{}", fail: true},
		{template: "{*}", fail: true},
		{template: "{a", fail: true},
		{template: "a}", fail: true},
		{template: "{a{b}", fail: true},
		{template: "{*path}/more", fail: true},
		{template: "x{*path}", fail: true},
		{template: "{id}/{ID}", fail: true},
	} {
		t.Run(ti.template, func(t *testing.T) {
			tpl, err := ParseTemplate(ti.template)
			if ti.fail {
				if err == nil {
					t.Fatal("failed to fail")
				}

				if !errors.Is(err, ErrInvalidConfiguration) {
					t.Fatalf("unexpected error: %v", err)
				}

				return
			}

			if err != nil {
				t.Fatal(err)
			}

			if tpl.String() != ti.template {
				t.Errorf("unexpected string: %s", tpl.String())
			}

			if d := cmp.Diff(ti.params, tpl.Params()); d != "" {
				t.Error(d)
			}
		})
	}
}

func TestMatchPath(t *testing.T) {
	for _, ti := range []struct {
		msg      string
		template string
		defaults Values
		path     string
		expected Values
	}{{
		msg:      "complex segment",
		template: "jobs/job-{title}_{id}",
		path:     "/jobs/job-project-manager_1554",
		expected: Values{"title": "project-manager", "id": "1554"},
	}, {
		msg:      "literals ignore case",
		template: "jobs/job-{title}_{id}",
		path:     "/JOBS/Job-a_1",
		expected: Values{"title": "a", "id": "1"},
	}, {
		msg:      "separator inside the earlier parameter",
		template: "jobs/job-{title}_{id}",
		path:     "/jobs/job-a_b_1",
		expected: Values{"title": "a_b", "id": "1"},
	}, {
		msg:      "empty leading parameter",
		template: "jobs/job-{title}_{id}",
		path:     "/jobs/job-_1",
	}, {
		msg:      "empty trailing parameter",
		template: "jobs/job-{title}_{id}",
		path:     "/jobs/job-a_",
	}, {
		msg:      "missing literal",
		template: "jobs/job-{title}_{id}",
		path:     "/jobs/job-a",
	}, {
		msg:      "wrong prefix",
		template: "jobs/job-{title}_{id}",
		path:     "/jobs/work-a_1",
	}, {
		msg:      "extra segment",
		template: "jobs/job-{title}_{id}",
		path:     "/jobs/job-a_1/extra",
	}, {
		msg:      "missing segment without default",
		template: "jobs/job-{title}_{id}",
		path:     "/jobs",
	}, {
		msg:      "literal suffix",
		template: "{name}.html",
		path:     "/index.html",
		expected: Values{"name": "index"},
	}, {
		msg:      "literal only",
		template: "jobs",
		path:     "/xjobs",
	}, {
		msg:      "defaults fill missing segments",
		template: "{controller}/{action}/{id}",
		defaults: Values{"controller": "Home", "action": "Index", "id": ""},
		path:     "/Products",
		expected: Values{"controller": "Products", "action": "Index", "id": ""},
	}, {
		msg:      "defaults on root",
		template: "{controller}/{action}",
		defaults: Values{"controller": "Home", "action": "Index"},
		path:     "/",
		expected: Values{"controller": "Home", "action": "Index"},
	}, {
		msg:      "missing segment with literal",
		template: "{controller}/x-{action}",
		defaults: Values{"controller": "Home", "action": "Index"},
		path:     "/Home",
	}, {
		msg:      "defaults that are not parameters",
		template: "jobs/{id}",
		defaults: Values{"controller": "Jobs"},
		path:     "/jobs/42",
		expected: Values{"id": "42", "controller": "Jobs"},
	}, {
		msg:      "captured value wins over default",
		template: "jobs/{id}",
		defaults: Values{"id": "1"},
		path:     "/jobs/42",
		expected: Values{"id": "42"},
	}, {
		msg:      "catch-all",
		template: "files/{*path}",
		path:     "/files/a/b/c.txt",
		expected: Values{"path": "a/b/c.txt"},
	}, {
		msg:      "empty catch-all",
		template: "files/{*path}",
		path:     "/files",
		expected: Values{},
	}, {
		msg:      "empty catch-all with default",
		template: "files/{*path}",
		defaults: Values{"path": "index.html"},
		path:     "/files",
		expected: Values{"path": "index.html"},
	}, {
		msg:      "escaped values",
		template: "files/{name}",
		path:     "/files/a%2Fb%20c",
		expected: Values{"name": "a/b c"},
	}, {
		msg:      "escaped braces",
		template: "{{literal}}",
		path:     "/%7Bliteral%7D",
		expected: Values{},
	}, {
		msg:      "root",
		template: "",
		path:     "/",
		expected: Values{},
	}, {
		msg:      "root does not match a segment",
		template: "",
		path:     "/jobs",
	}, {
		msg:      "cleaned path",
		template: "jobs/{id}",
		path:     "/jobs/../jobs//42",
		expected: Values{"id": "42"},
	}} {
		t.Run(ti.msg, func(t *testing.T) {
			tpl, err := ParseTemplate(ti.template)
			if err != nil {
				t.Fatal(err)
			}

			v, ok := tpl.MatchPath(ti.path, ti.defaults)
			if ti.expected == nil {
				if ok {
					t.Fatalf("unexpected match: %v", v)
				}

				return
			}

			if !ok {
				t.Fatal("failed to match")
			}

			if d := cmp.Diff(ti.expected, v); d != "" {
				t.Error(d)
			}
		})
	}
}

func TestMatchConstraints(t *testing.T) {
	tpl, err := ParseTemplate("jobs/job-{title}_{id}")
	if err != nil {
		t.Fatal(err)
	}

	c, err := CompileConstraints(Values{"id": `\d+`})
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := tpl.Match(httptest.NewRequest("GET", "/jobs/job-a_1", nil), nil, c); !ok {
		t.Error("failed to match")
	}

	if v, ok := tpl.Match(httptest.NewRequest("GET", "/jobs/job-a_x", nil), nil, c); ok {
		t.Errorf("unexpected match: %v", v)
	}
}

func TestGenerate(t *testing.T) {
	for _, ti := range []struct {
		msg         string
		template    string
		values      Values
		defaults    Values
		constraints Values
		expected    string
		fail        bool
	}{{
		msg:      "complex segment",
		template: "jobs/job-{title}_{id}",
		values:   Values{"title": "project-manager", "id": 1554},
		expected: "/jobs/job-project-manager_1554",
	}, {
		msg:      "missing parameter",
		template: "jobs/job-{title}_{id}",
		values:   Values{"title": "project-manager"},
		fail:     true,
	}, {
		msg:      "empty parameter",
		template: "jobs/job-{title}_{id}",
		values:   Values{"title": "project-manager", "id": ""},
		fail:     true,
	}, {
		msg:      "default used for missing parameter",
		template: "jobs/job-{title}_{id}",
		values:   Values{"title": "a"},
		defaults: Values{"id": "1"},
		expected: "/jobs/job-a_1",
	}, {
		msg:      "unused values in the query",
		template: "jobs/job-{title}_{id}",
		values:   Values{"title": "a", "id": 1, "sort": "asc", "page": 2, "none": nil},
		expected: "/jobs/job-a_1?page=2&sort=asc",
	}, {
		msg:      "trailing defaults omitted",
		template: "{controller}/{action}/{id}",
		defaults: Values{"controller": "Home", "action": "Index", "id": ""},
		expected: "/",
	}, {
		msg:      "trailing defaults omitted after a value",
		template: "{controller}/{action}/{id}",
		values:   Values{"controller": "Products"},
		defaults: Values{"controller": "Home", "action": "Index", "id": ""},
		expected: "/Products",
	}, {
		msg:      "defaults kept before a value",
		template: "{controller}/{action}/{id}",
		values:   Values{"id": "7"},
		defaults: Values{"controller": "Home", "action": "Index", "id": ""},
		expected: "/Home/Index/7",
	}, {
		msg:      "value equal to default ignoring case is omitted",
		template: "{controller}/{action}",
		values:   Values{"controller": "Products", "action": "index"},
		defaults: Values{"controller": "Home", "action": "Index"},
		expected: "/Products",
	}, {
		msg:      "non-parameter default matches",
		template: "jobs/{id}",
		values:   Values{"id": 1, "area": "HR"},
		defaults: Values{"area": "hr"},
		expected: "/jobs/1",
	}, {
		msg:      "non-parameter default conflicts",
		template: "jobs/{id}",
		values:   Values{"id": 1, "area": "it"},
		defaults: Values{"area": "hr"},
		fail:     true,
	}, {
		msg:         "constraint passes",
		template:    "jobs/{id}",
		values:      Values{"id": 42},
		constraints: Values{"id": `\d+`},
		expected:    "/jobs/42",
	}, {
		msg:         "constraint fails",
		template:    "jobs/{id}",
		values:      Values{"id": "abc"},
		constraints: Values{"id": `\d+`},
		fail:        true,
	}, {
		msg:         "constraint on a query value",
		template:    "jobs/{id}",
		values:      Values{"id": 1, "page": "x"},
		constraints: Values{"page": `\d+`},
		fail:        true,
	}, {
		msg:      "escaping",
		template: "files/{name}",
		values:   Values{"name": "a b/c"},
		expected: "/files/a%20b%2Fc",
	}, {
		msg:      "catch-all",
		template: "files/{*path}",
		values:   Values{"path": "a b/c.txt"},
		expected: "/files/a%20b/c.txt",
	}, {
		msg:      "empty catch-all",
		template: "files/{*path}",
		expected: "/files",
	}, {
		msg:      "empty default before a value",
		template: "{lang}/jobs/{id}",
		values:   Values{"id": "1"},
		defaults: Values{"lang": ""},
		fail:     true,
	}, {
		msg:      "empty default next to literals",
		template: "jobs/job-{title}_{id}",
		values:   Values{"id": "1"},
		defaults: Values{"title": ""},
		fail:     true,
	}, {
		msg:      "empty default at the end",
		template: "jobs/{lang}",
		defaults: Values{"lang": ""},
		expected: "/jobs",
	}, {
		msg:      "root",
		template: "",
		expected: "/",
	}} {
		t.Run(ti.msg, func(t *testing.T) {
			tpl, err := ParseTemplate(ti.template)
			if err != nil {
				t.Fatal(err)
			}

			c, err := CompileConstraints(ti.constraints)
			if err != nil {
				t.Fatal(err)
			}

			r := httptest.NewRequest("GET", "/", nil)
			p, ok := tpl.Generate(r, ti.values, ti.defaults, c)
			if ti.fail {
				if ok {
					t.Fatalf("failed to fail: %s", p)
				}

				return
			}

			if !ok {
				t.Fatal("failed to generate")
			}

			if p != ti.expected {
				t.Errorf("got %s, expected %s", p, ti.expected)
			}
		})
	}
}

func TestGenerateMatchRoundTrip(t *testing.T) {
	for _, ti := range []struct {
		template string
		values   Values
		defaults Values
		expected Values
		noURL    bool
	}{{
		template: "jobs/job-{title}_{id}",
		values:   Values{"title": "project-manager", "id": "1554"},
	}, {
		template: "jobs/job-{title}_{id}",
		values:   Values{"title": "a_b", "id": "1"},
	}, {
		template: "jobs/job-{title}_{id}",
		values:   Values{"title": "with space", "id": "2"},
	}, {
		template: "jobs/job-{title}_{id}",
		values:   Values{"title": "JOB-x", "id": "3"},
	}, {
		template: "{controller}/{action}/{id}",
		values:   Values{"controller": "Products"},
		defaults: Values{"controller": "Home", "action": "Index", "id": ""},
		expected: Values{"controller": "Products", "action": "Index", "id": ""},
	}, {
		template: "{lang}/jobs/{id}",
		values:   Values{"id": "1"},
		defaults: Values{"lang": ""},
		noURL:    true,
	}, {
		template: "jobs/job-{title}_{id}",
		values:   Values{"id": "1"},
		defaults: Values{"title": ""},
		noURL:    true,
	}} {
		tpl, err := ParseTemplate(ti.template)
		if err != nil {
			t.Fatal(err)
		}

		r := httptest.NewRequest("GET", "/", nil)
		p, ok := tpl.Generate(r, ti.values, ti.defaults, nil)
		if ti.noURL {
			if ok {
				t.Errorf("%s: generated a path that does not match: %s", ti.template, p)
			}

			continue
		}

		if !ok {
			t.Fatalf("failed to generate: %v", ti.values)
		}

		v, ok := tpl.Match(httptest.NewRequest("GET", p, nil), ti.defaults, nil)
		if !ok {
			t.Fatalf("failed to match: %s", p)
		}

		expected := ti.expected
		if expected == nil {
			expected = ti.values
		}

		if d := cmp.Diff(expected, v); d != "" {
			t.Error(d)
		}
	}
}
