/*
Package metrics implements collection of the router's performance metrics.

Two backends are available, selected by Options.Format: the Go
implementation of the Coda Hale metrics library,

https://github.com/dropwizard/metrics

and Prometheus. With AllKind, both are used, and the handler serves the
Coda Hale JSON format when the request accepts application/codahale+json.

The collected metrics include the time of looking up routes, the number of
requests matching no route, the number of times each variant of a feature
toggle route was selected, and the time of serving the requests by route.

For the keys used for the different metrics, please, see the Key*
constants.
*/
package metrics
