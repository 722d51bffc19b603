/*
Package toggle implements feature toggle routes.

A feature toggle route has a single URL template, and two complete
configurations, called variants: the current one and the experimental
one. Each variant has its own defaults, constraints, data tokens and
handler. A toggle predicate, evaluated for every request, decides which
variant is used: when it matches, the experimental one.

The selection happens once per operation, and it is never stored in the
route. Match evaluates the predicate, and returns the route data with the
values, data tokens and handler of the selected variant. Dispatch serves
the request with the handler found in the route data, without evaluating
the predicate again. GenerateURL evaluates the predicate, and generates a
URL with the defaults and constraints of the selected variant. This way,
a route can serve any number of concurrent requests, and the result of a
call never mixes the two variants.

Routes are created with a staged builder, accepting the steps only in
order:

	r, err := toggle.WithURL("jobs/job-{title}_{id}").
		WithToggle(predicate).
		WithCurrentPage("~/pages/jobs.html", toggle.PageOptions{
			Constraints: map[string]string{"id": `\d+`},
			DataTokens:  map[string]string{"routename": "JobsPages"},
		}).
		WithExperimentalController(toggle.ControllerOptions{
			Defaults:   map[string]string{"controller": "Jobs", "action": "Details"},
			DataTokens: map[string]string{"routename": "JobsMvc"},
		}).
		Build()

The builder collects the configuration errors, and Build returns the
first one. Every configuration error wraps routing.ErrInvalidConfiguration.

When the two variants differ only in their handler, a Handler can be used
with an ordinary route instead. It evaluates the predicate during
dispatch. MapToggledPages registers such a route serving one of two
physical pages.
*/
package toggle
