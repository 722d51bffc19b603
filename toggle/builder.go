package toggle

import (
	"fmt"
	"net/http"

	"github.com/zalando/featureroute/handlers/controller"
	"github.com/zalando/featureroute/handlers/page"
	"github.com/zalando/featureroute/routing"
)

// ErrBuilderReused is returned by Build when it is called more than once.
var ErrBuilderReused = fmt.Errorf("%w: route builder already used", routing.ErrInvalidConfiguration)

// BuilderOptions provide the dependencies of the page and controller
// variants.
type BuilderOptions struct {
	Pages       page.Options
	Controllers *controller.Registry
}

// PageOptions configure a page variant. Access checking is enabled when
// CheckAccess is not set.
type PageOptions struct {
	CheckAccess *bool
	Defaults    any
	Constraints any
	DataTokens  any
}

// ControllerOptions configure a controller variant.
type ControllerOptions struct {
	Defaults    any
	Constraints any
	DataTokens  any
}

type builder struct {
	options      BuilderOptions
	url          string
	toggle       routing.Predicate
	current      *Variant
	experimental *Variant
	err          error
	built        bool
}

func (b *builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// PredicateStage expects the toggle predicate.
type PredicateStage struct{ b *builder }

// CurrentStage expects the current variant.
type CurrentStage struct{ b *builder }

// ExperimentalStage expects the experimental variant.
type ExperimentalStage struct{ b *builder }

// Builder creates the route.
type Builder struct{ b *builder }

// WithURL starts building a feature toggle route. The stages of the
// builder have to be called in order:
//
//	secure := routing.PredicateFunc(func(r *http.Request) bool {
//		return r.TLS != nil
//	})
//
//	r, err := toggle.WithURL("jobs/job-{title}_{id}").
//		WithToggle(secure).
//		WithCurrentPage("pages/jobs.html").
//		WithExperimentalController(toggle.ControllerOptions{
//			Defaults: map[string]string{"controller": "Jobs", "action": "Details"},
//		}).
//		Build()
//
// Configuration errors are collected along the way, and reported by Build.
func WithURL(url string) *PredicateStage {
	return WithURLOptions(url, BuilderOptions{})
}

// WithURLOptions is like WithURL, using the options for the page and
// controller variants.
func WithURLOptions(url string, o BuilderOptions) *PredicateStage {
	b := &builder{options: o, url: url}
	if url == "" {
		b.fail(routing.InvalidConfiguration("missing url template"))
	}

	if b.options.Controllers == nil {
		b.options.Controllers = controller.NewRegistry()
	}

	return &PredicateStage{b}
}

// WithToggle sets the predicate selecting the experimental variant.
func (s *PredicateStage) WithToggle(p routing.Predicate) *CurrentStage {
	if p == nil {
		s.b.fail(routing.InvalidConfiguration("route %s: missing toggle predicate", s.b.url))
	}

	s.b.toggle = p
	return &CurrentStage{s.b}
}

// WithToggleFunc is like WithToggle, accepting a function.
func (s *PredicateStage) WithToggleFunc(f func(*http.Request) bool) *CurrentStage {
	if f == nil {
		return s.WithToggle(nil)
	}

	return s.WithToggle(routing.PredicateFunc(f))
}

func first[T any](opts []T) T {
	var o T
	if len(opts) > 0 {
		o = opts[0]
	}

	return o
}

func (b *builder) options1(variant string, n int) {
	if n > 1 {
		b.fail(routing.InvalidConfiguration("route %s: %s variant accepts a single options argument", b.url, variant))
	}
}

func (b *builder) pageVariant(variant, file string, opts []PageOptions) *Variant {
	b.options1(variant, len(opts))
	o := first(opts)
	if !page.ValidFile(file) {
		b.fail(routing.InvalidConfiguration("route %s: invalid page for the %s variant: %q", b.url, variant, file))
		return nil
	}

	checkAccess := true
	if o.CheckAccess != nil {
		checkAccess = *o.CheckAccess
	}

	return b.variant(variant, VariantOptions{
		Defaults:    o.Defaults,
		Constraints: o.Constraints,
		DataTokens:  o.DataTokens,
		Handler:     page.New(file, checkAccess, b.options.Pages),
	})
}

func (b *builder) controllerVariant(variant string, opts []ControllerOptions) *Variant {
	b.options1(variant, len(opts))
	o := first(opts)
	return b.variant(variant, VariantOptions{
		Defaults:    o.Defaults,
		Constraints: o.Constraints,
		DataTokens:  o.DataTokens,
		Handler:     controller.New(b.options.Controllers),
	})
}

func (b *builder) variant(variant string, o VariantOptions) *Variant {
	v, err := NewVariant(o)
	if err != nil {
		b.fail(fmt.Errorf("route %s, %s variant: %w", b.url, variant, err))
		return nil
	}

	return v
}

// WithCurrentPage uses a physical page for the current variant.
func (s *CurrentStage) WithCurrentPage(file string, opts ...PageOptions) *ExperimentalStage {
	s.b.current = s.b.pageVariant(Current, file, opts)
	return &ExperimentalStage{s.b}
}

// WithCurrentController uses the application controllers for the current
// variant.
func (s *CurrentStage) WithCurrentController(opts ...ControllerOptions) *ExperimentalStage {
	s.b.current = s.b.controllerVariant(Current, opts)
	return &ExperimentalStage{s.b}
}

// WithCurrent uses an arbitrary handler for the current variant.
func (s *CurrentStage) WithCurrent(o VariantOptions) *ExperimentalStage {
	s.b.current = s.b.variant(Current, o)
	return &ExperimentalStage{s.b}
}

// WithExperimentalPage uses a physical page for the experimental variant.
func (s *ExperimentalStage) WithExperimentalPage(file string, opts ...PageOptions) *Builder {
	s.b.experimental = s.b.pageVariant(Experimental, file, opts)
	return &Builder{s.b}
}

// WithExperimentalController uses the application controllers for the
// experimental variant.
func (s *ExperimentalStage) WithExperimentalController(opts ...ControllerOptions) *Builder {
	s.b.experimental = s.b.controllerVariant(Experimental, opts)
	return &Builder{s.b}
}

// WithExperimental uses an arbitrary handler for the experimental variant.
func (s *ExperimentalStage) WithExperimental(o VariantOptions) *Builder {
	s.b.experimental = s.b.variant(Experimental, o)
	return &Builder{s.b}
}

// Build creates the route, or returns the first configuration error. It
// can be called only once.
func (b *Builder) Build() (*Route, error) {
	if b.b.built {
		return nil, ErrBuilderReused
	}

	b.b.built = true
	if b.b.err != nil {
		return nil, b.b.err
	}

	return NewRoute(b.b.url, b.b.toggle, b.b.current, b.b.experimental)
}
