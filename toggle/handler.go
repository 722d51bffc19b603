package toggle

import (
	"net/http"

	"github.com/zalando/featureroute/handlers/controller"
	"github.com/zalando/featureroute/handlers/page"
	"github.com/zalando/featureroute/routing"
)

// Handler selects one of two route handlers when serving the request. It
// is used with ordinary routes, when the two variants differ only in the
// handler. Unlike Route, the predicate is evaluated during dispatch.
type Handler struct {
	toggle       routing.Predicate
	current      routing.Handler
	experimental routing.Handler
}

// NewHandler creates a toggled route handler.
func NewHandler(p routing.Predicate, current, experimental routing.Handler) (*Handler, error) {
	if p == nil {
		return nil, routing.InvalidConfiguration("toggled handler without predicate")
	}

	if current == nil || experimental == nil {
		return nil, routing.InvalidConfiguration("toggled handler requires both handlers")
	}

	return &Handler{toggle: p, current: current, experimental: experimental}, nil
}

// ServeRoute serves the request with the experimental handler when the
// predicate matches, with the current one otherwise. The handler receives a
// copy of the route data with the selected variant.
func (h *Handler) ServeRoute(w http.ResponseWriter, r *http.Request, rd *routing.RouteData) {
	sel, name := h.current, Current
	if h.toggle.Match(r) {
		sel, name = h.experimental, Experimental
	}

	rdv := *rd
	rdv.Handler = sel
	rdv.Variant = name
	sel.ServeRoute(w, r.WithContext(routing.NewContext(r.Context(), &rdv)), &rdv)
}

// MapOptions configure the routes registered by MapToggledPages and
// MapToggledController.
type MapOptions struct {
	BuilderOptions

	// CheckAccess of the page handlers. Defaults to true.
	CheckAccess *bool

	Defaults    any
	Constraints any
	DataTokens  any

	// Namespaces restrict the controller lookup of the controller
	// variant.
	Namespaces []string
}

func (o MapOptions) checkAccess() bool {
	return o.CheckAccess == nil || *o.CheckAccess
}

// MapToggledPages registers an ordinary route, serving one of two physical
// pages depending on the predicate.
func MapToggledPages(t *routing.Table, name, url string, p routing.Predicate, currentFile, experimentalFile string, o MapOptions) error {
	for _, f := range []string{currentFile, experimentalFile} {
		if !page.ValidFile(f) {
			return routing.InvalidConfiguration("route %s: invalid page: %q", name, f)
		}
	}

	h, err := NewHandler(
		p,
		page.New(currentFile, o.checkAccess(), o.Pages),
		page.New(experimentalFile, o.checkAccess(), o.Pages),
	)
	if err != nil {
		return err
	}

	r, err := routing.NewStaticRoute(url, o.Defaults, o.Constraints, o.DataTokens, h)
	if err != nil {
		return err
	}

	return t.Add(name, r)
}

// MapToggledController registers a feature toggle route, serving the
// application controllers as the current variant, and a physical page as
// the experimental one. The defaults, constraints and data tokens are
// shared by the variants. The namespaces are set only on the controller
// variant.
func MapToggledController(t *routing.Table, name, url string, p routing.Predicate, experimentalFile string, o MapOptions) error {
	dataTokens, err := routing.ToValues(o.DataTokens)
	if err != nil {
		return routing.WrapInvalidConfiguration("data tokens", err)
	}

	controllerTokens := dataTokens.Clone()
	if len(o.Namespaces) > 0 {
		if controllerTokens == nil {
			controllerTokens = make(routing.Values)
		}

		controllerTokens[controller.NamespacesToken] = append([]string(nil), o.Namespaces...)
	}

	r, err := WithURLOptions(url, o.BuilderOptions).
		WithToggle(p).
		WithCurrentController(ControllerOptions{
			Defaults:    o.Defaults,
			Constraints: o.Constraints,
			DataTokens:  controllerTokens,
		}).
		WithExperimentalPage(experimentalFile, PageOptions{
			CheckAccess: o.CheckAccess,
			Defaults:    o.Defaults,
			Constraints: o.Constraints,
			DataTokens:  dataTokens,
		}).
		Build()
	if err != nil {
		return err
	}

	return t.Add(name, r)
}
