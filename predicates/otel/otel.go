/*
Package otel implements a toggle predicate matching the OpenTelemetry
baggage of the request. It allows enabling the experimental variant for
requests marked by an upstream service, propagated with the baggage
header:

	- name: OTelBaggage
	  args: [beta]

	- name: OTelBaggage
	  args: [variant, experimental]

The baggage is extracted from the request by the route table.
*/
package otel

import (
	"net/http"

	"go.opentelemetry.io/otel/baggage"

	"github.com/zalando/featureroute/predicates"
	"github.com/zalando/featureroute/routing"
)

type baggageSpec struct{}

type baggagePredicate struct {
	key      string
	value    string
	hasValue bool
}

// NewBaggage provides a predicate spec to create a Predicate instance
// that matches a baggage member by key, and optionally by value.
func NewBaggage() routing.PredicateSpec { return &baggageSpec{} }

func (*baggageSpec) Name() string {
	return predicates.OTelBaggageName
}

func (*baggageSpec) Create(args []any) (routing.Predicate, error) {
	if len(args) == 0 || len(args) > 2 {
		return nil, predicates.ErrInvalidPredicateParameters
	}

	key, ok := args[0].(string)
	if !ok {
		return nil, predicates.ErrInvalidPredicateParameters
	}

	p := &baggagePredicate{key: key}
	if len(args) == 2 {
		if p.value, ok = args[1].(string); !ok {
			return nil, predicates.ErrInvalidPredicateParameters
		}

		p.hasValue = true
	}

	return p, nil
}

func (p *baggagePredicate) Match(r *http.Request) bool {
	m := baggage.FromContext(r.Context()).Member(p.key)
	if m.Key() != p.key {
		return false
	}

	return !p.hasValue || m.Value() == p.value
}
