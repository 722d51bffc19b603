package routesfile

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v2"

	"github.com/zalando/featureroute/handlers/controller"
	"github.com/zalando/featureroute/predicates"
	"github.com/zalando/featureroute/predicates/builtin"
	"github.com/zalando/featureroute/routing"
	"github.com/zalando/featureroute/toggle"
)

// Options are used to create the routes of a route file.
type Options struct {

	// Predicates used by the toggles. Defaults to the built-in
	// predicates.
	Predicates predicates.Registry

	// Builder provides the page and controller handlers.
	Builder toggle.BuilderOptions

	// Reserved route names, registered from other sources. A route file
	// using any of them is rejected.
	Reserved []string
}

type document struct {
	Routes []routeSpec `yaml:"routes"`
}

type routeSpec struct {
	Name         string                  `yaml:"name"`
	URL          string                  `yaml:"url"`
	Toggle       []predicates.Definition `yaml:"toggle"`
	Current      variantSpec             `yaml:"current"`
	Experimental variantSpec             `yaml:"experimental"`
}

type variantSpec struct {
	Page        *pageSpec         `yaml:"page"`
	Controller  *controllerSpec   `yaml:"controller"`
	Defaults    map[string]any    `yaml:"defaults"`
	Constraints map[string]string `yaml:"constraints"`
	DataTokens  map[string]any    `yaml:"dataTokens"`
}

type pageSpec struct {
	File        string `yaml:"file"`
	CheckAccess *bool  `yaml:"checkAccess"`
}

type controllerSpec struct {
	Namespaces []string `yaml:"namespaces"`
}

// Definition is a route created from a route file.
type Definition struct {
	Name  string
	Route *toggle.Route
	spec  routeSpec
}

func (o Options) registry() predicates.Registry {
	if o.Predicates == nil {
		return builtin.Registry()
	}

	return o.Predicates
}

// Load reads and parses a route file.
func Load(path string, o Options) ([]Definition, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	defs, err := Parse(b, o)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return defs, nil
}

// Parse creates the routes of a YAML route document. Every route is
// validated, so configuration errors are reported before any of the
// routes is registered.
func Parse(b []byte, o Options) ([]Definition, error) {
	var doc document
	if err := yaml.UnmarshalStrict(b, &doc); err != nil {
		return nil, routing.WrapInvalidConfiguration("failed to parse route file", err)
	}

	registry := o.registry()
	names := make(map[string]bool)
	defs := make([]Definition, 0, len(doc.Routes))
	for i, rs := range doc.Routes {
		if rs.Name == "" {
			return nil, routing.InvalidConfiguration("route %d: missing name", i)
		}

		if names[rs.Name] {
			return nil, routing.InvalidConfiguration("route %d: duplicate name: %s", i, rs.Name)
		}

		if slices.Contains(o.Reserved, rs.Name) {
			return nil, routing.InvalidConfiguration("route %d: reserved name: %s", i, rs.Name)
		}

		names[rs.Name] = true
		r, err := build(rs, registry, o.Builder)
		if err != nil {
			return nil, fmt.Errorf("route %d (%s): %w", i, rs.Name, err)
		}

		defs = append(defs, Definition{Name: rs.Name, Route: r, spec: rs})
	}

	return defs, nil
}

func build(rs routeSpec, registry predicates.Registry, o toggle.BuilderOptions) (*toggle.Route, error) {
	if len(rs.Toggle) == 0 {
		return nil, routing.InvalidConfiguration("missing toggle")
	}

	p, err := registry.CreateAll(rs.Toggle)
	if err != nil {
		return nil, err
	}

	if err := rs.Current.validate(toggle.Current); err != nil {
		return nil, err
	}

	if err := rs.Experimental.validate(toggle.Experimental); err != nil {
		return nil, err
	}

	cs := toggle.WithURLOptions(rs.URL, o).WithToggle(p)

	var es *toggle.ExperimentalStage
	if v := rs.Current; v.Page != nil {
		es = cs.WithCurrentPage(v.Page.File, v.pageOptions())
	} else {
		es = cs.WithCurrentController(v.controllerOptions())
	}

	var b *toggle.Builder
	if v := rs.Experimental; v.Page != nil {
		b = es.WithExperimentalPage(v.Page.File, v.pageOptions())
	} else {
		b = es.WithExperimentalController(v.controllerOptions())
	}

	return b.Build()
}

func (v variantSpec) validate(name string) error {
	switch {
	case v.Page == nil && v.Controller == nil:
		return routing.InvalidConfiguration("%s variant: either page or controller required", name)
	case v.Page != nil && v.Controller != nil:
		return routing.InvalidConfiguration("%s variant: page and controller are exclusive", name)
	default:
		return nil
	}
}

func (v variantSpec) pageOptions() toggle.PageOptions {
	return toggle.PageOptions{
		CheckAccess: v.Page.CheckAccess,
		Defaults:    v.Defaults,
		Constraints: v.Constraints,
		DataTokens:  v.DataTokens,
	}
}

func (v variantSpec) controllerOptions() toggle.ControllerOptions {
	dataTokens := v.DataTokens
	if len(v.Controller.Namespaces) > 0 {
		dataTokens = make(map[string]any, len(v.DataTokens)+1)
		for k, dt := range v.DataTokens {
			dataTokens[k] = dt
		}

		dataTokens[controller.NamespacesToken] = v.Controller.Namespaces
	}

	return toggle.ControllerOptions{
		Defaults:    v.Defaults,
		Constraints: v.Constraints,
		DataTokens:  dataTokens,
	}
}

func named(defs []Definition) []routing.NamedRoute {
	nr := make([]routing.NamedRoute, len(defs))
	for i, d := range defs {
		nr[i] = routing.NamedRoute{Name: d.Name, Route: d.Route}
	}

	return nr
}

// Register adds the routes to the table, in their order, as a single
// change.
func Register(t *routing.Table, defs []Definition) error {
	return t.Update(named(defs), nil)
}
