/*
Package featureroute provides an HTTP router with feature toggle routes.

A feature toggle route has a single URL template and two complete
configurations, the current and the experimental one. A toggle
predicate, evaluated for every request, decides which configuration
serves it, and which one generates the URLs of the route. This allows
to roll out a new implementation of a page, e.g. a controller replacing
a physical page, to a part of the requests only, while every other
route of the application stays the same.

# Quickstart

Define the routes in a route file:

	routes:
	- name: JobDetails
	  url: jobs/job-{title}_{id}
	  toggle:
	  - name: Header
	    args: [X-Beta, "on"]
	  current:
	    page: {file: ~/pages/jobs.html}
	    constraints: {id: '\d+'}
	  experimental:
	    controller: {namespaces: [Careers]}
	    defaults: {controller: Jobs, action: Details}

and start the router:

	featureroute -routes-file routes.yaml -pages-root ./www

The route file is polled for changes, and the changed routes replace the
previous ones without restarting the router.

# Embedding

The routes can be defined in code, too, with the builder of the toggle
package, and registered in a routing.Table. The Run function starts an
HTTP server with the routes of the options, and the application
controllers are provided by a controller.Registry:

	registry := controller.NewRegistry()
	registry.RegisterNamespace("Careers", "Jobs", controller.Controller{
		"Details": jobDetails,
	})

	log.Fatal(featureroute.Run(featureroute.Options{
		Address:     ":9090",
		RoutesFile:  "routes.yaml",
		Controllers: registry,
	}))

# Toggle Predicates

The toggle predicates are listed in the documentation of the predicates
package and its sub-packages. Custom predicates implement the
routing.PredicateSpec interface, and are passed to Run with the
CustomPredicates option.

# Observability

The router measures the route lookup, the variant selection and the
serving of the requests, with the metrics package, exposed on the
support listener at /metrics. The requests are traced with
OpenTelemetry, and logged in the access log with the name of the route
and the selected variant.
*/
package featureroute
