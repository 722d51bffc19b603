package routing

import "net/http"

// Handler serves a request that was matched by a route. It receives the
// route data produced by the match, including the resolved values and data
// tokens.
type Handler interface {
	ServeRoute(w http.ResponseWriter, r *http.Request, rd *RouteData)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(w http.ResponseWriter, r *http.Request, rd *RouteData)

func (f HandlerFunc) ServeRoute(w http.ResponseWriter, r *http.Request, rd *RouteData) {
	f(w, r, rd)
}

// RouteData is the result of a successful match. It is created per request
// and owned by the caller.
type RouteData struct {

	// Route that produced the match.
	Route Route

	// Values holds the parameters captured from the path and the defaults.
	Values Values

	// DataTokens are passed through to the handler unchanged. Nil when the
	// route has no data tokens.
	DataTokens Values

	// Handler selected during the match.
	Handler Handler

	// Variant names the configuration selected during the match. Empty
	// for routes with a single configuration.
	Variant string
}

// VirtualPathData is the result of a successful URL generation.
type VirtualPathData struct {
	Route      Route
	Path       string
	DataTokens Values
}

// Route is implemented by everything that can be registered in a Table.
//
// Match returns nil when the request does not match. GenerateURL returns nil
// when no URL can be generated from the values. Dispatch serves a request
// with the route data returned by Match.
type Route interface {
	Match(r *http.Request) *RouteData
	GenerateURL(r *http.Request, values Values) *VirtualPathData
	Dispatch(w http.ResponseWriter, r *http.Request, rd *RouteData)
}

// StaticRoute is an ordinary route with a single configuration.
type StaticRoute struct {
	template    *Template
	defaults    Values
	constraints Constraints
	dataTokens  Values
	handler     Handler
}

// NewStaticRoute creates a route with a single configuration. The defaults,
// constraints and data tokens accept every shape understood by ToValues.
func NewStaticRoute(url string, defaults, constraints, dataTokens any, h Handler) (*StaticRoute, error) {
	if h == nil {
		return nil, invalidConfiguration("route %q: missing handler", url)
	}

	t, err := ParseTemplate(url)
	if err != nil {
		return nil, err
	}

	d, err := ToValues(defaults)
	if err != nil {
		return nil, WrapInvalidConfiguration("defaults", err)
	}

	cv, err := ToValues(constraints)
	if err != nil {
		return nil, WrapInvalidConfiguration("constraints", err)
	}

	c, err := CompileConstraints(cv)
	if err != nil {
		return nil, err
	}

	dt, err := ToValues(dataTokens)
	if err != nil {
		return nil, WrapInvalidConfiguration("data tokens", err)
	}

	return &StaticRoute{
		template:    t,
		defaults:    d,
		constraints: c,
		dataTokens:  dt,
		handler:     h,
	}, nil
}

func (sr *StaticRoute) Template() *Template { return sr.template }

func (sr *StaticRoute) Match(r *http.Request) *RouteData {
	values, ok := sr.template.Match(r, sr.defaults, sr.constraints)
	if !ok {
		return nil
	}

	return &RouteData{
		Route:      sr,
		Values:     values,
		DataTokens: sr.dataTokens.Clone(),
		Handler:    sr.handler,
	}
}

func (sr *StaticRoute) GenerateURL(r *http.Request, values Values) *VirtualPathData {
	p, ok := sr.template.Generate(r, values, sr.defaults, sr.constraints)
	if !ok {
		return nil
	}

	return &VirtualPathData{Route: sr, Path: p, DataTokens: sr.dataTokens.Clone()}
}

func (sr *StaticRoute) Dispatch(w http.ResponseWriter, r *http.Request, rd *RouteData) {
	if r == nil || rd == nil {
		panic("routing: dispatch with nil request or route data")
	}

	rd.Handler.ServeRoute(w, r, rd)
}
