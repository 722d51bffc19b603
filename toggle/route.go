package toggle

import (
	"net/http"

	"github.com/zalando/featureroute/routing"
)

// Names of the variants, as reported in routing.RouteData.Variant.
const (
	Current      = "current"
	Experimental = "experimental"
)

// Route is a feature toggle route. For every request, it evaluates the
// toggle predicate and uses either the current or the experimental
// variant: when the predicate matches, the experimental one.
//
// The selection is local to every call, so a Route can be shared by any
// number of concurrent requests. The predicate is evaluated exactly once
// by Match and GenerateURL, and never by Dispatch, which uses the handler
// selected during the match.
type Route struct {
	url          string
	template     *routing.Template
	toggle       routing.Predicate
	current      *Variant
	experimental *Variant
}

var _ routing.Route = (*Route)(nil)

// NewRoute creates a feature toggle route. It fails with
// routing.ErrInvalidConfiguration when the URL template is empty or
// invalid, or when the predicate or any of the variants is missing.
func NewRoute(url string, p routing.Predicate, current, experimental *Variant) (*Route, error) {
	if url == "" {
		return nil, routing.InvalidConfiguration("missing url template")
	}

	if p == nil {
		return nil, routing.InvalidConfiguration("route %s: missing toggle predicate", url)
	}

	if current == nil {
		return nil, routing.InvalidConfiguration("route %s: missing current variant", url)
	}

	if experimental == nil {
		return nil, routing.InvalidConfiguration("route %s: missing experimental variant", url)
	}

	t, err := routing.ParseTemplate(url)
	if err != nil {
		return nil, err
	}

	return &Route{
		url:          url,
		template:     t,
		toggle:       p,
		current:      current,
		experimental: experimental,
	}, nil
}

func (r *Route) URL() string { return r.url }

func (r *Route) Template() *routing.Template { return r.template }

func (r *Route) Toggle() routing.Predicate { return r.toggle }

func (r *Route) Current() *Variant { return r.current }

func (r *Route) Experimental() *Variant { return r.experimental }

// Select evaluates the toggle predicate and returns the variant to use for
// the request, with its name.
func (r *Route) Select(req *http.Request) (*Variant, string) {
	if r.toggle.Match(req) {
		return r.experimental, Experimental
	}

	return r.current, Current
}

// Match matches the request with the defaults and constraints of the
// selected variant. The returned route data carries the data tokens and
// the handler of the same variant. It returns nil when the request does
// not match.
func (r *Route) Match(req *http.Request) *routing.RouteData {
	if req == nil {
		panic("toggle: match with nil request")
	}

	v, name := r.Select(req)
	values, ok := r.template.Match(req, v.defaults, v.constraints)
	if !ok {
		return nil
	}

	return &routing.RouteData{
		Route:      r,
		Values:     values,
		DataTokens: v.dataTokens.Clone(),
		Handler:    v.handler,
		Variant:    name,
	}
}

// GenerateURL generates a URL from the values with the defaults and
// constraints of the selected variant. It returns nil when a parameter
// has neither a value nor a default, when a value conflicts with a
// default that is not a parameter, or when a constraint rejects a value.
func (r *Route) GenerateURL(req *http.Request, values routing.Values) *routing.VirtualPathData {
	if req == nil {
		panic("toggle: url generation with nil request")
	}

	v, _ := r.Select(req)
	p, ok := r.template.Generate(req, values, v.defaults, v.constraints)
	if !ok {
		return nil
	}

	return &routing.VirtualPathData{
		Route:      r,
		Path:       p,
		DataTokens: v.dataTokens.Clone(),
	}
}

// Dispatch serves the request with the handler selected by Match.
func (r *Route) Dispatch(w http.ResponseWriter, req *http.Request, rd *routing.RouteData) {
	if req == nil || rd == nil {
		panic("toggle: dispatch with nil request or route data")
	}

	if rd.Handler == nil {
		panic("toggle: dispatch with route data without handler")
	}

	rd.Handler.ServeRoute(w, req, rd)
}
