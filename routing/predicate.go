package routing

import "net/http"

// Predicate decides on a request. Used as the toggle of feature toggle
// routes. Implementations must be safe for concurrent use.
type Predicate interface {

	// Returns true if the request matches the predicate.
	Match(*http.Request) bool
}

// PredicateFunc adapts a function to the Predicate interface.
type PredicateFunc func(*http.Request) bool

func (f PredicateFunc) Match(r *http.Request) bool { return f(r) }

// PredicateSpec instances are used to create custom predicates
// (of type Predicate) with concrete arguments during the
// construction of the routes from their definitions.
type PredicateSpec interface {

	// Name of the predicate as used in the route definitions.
	Name() string

	// Creates a predicate instance with concrete arguments.
	Create([]any) (Predicate, error)
}
