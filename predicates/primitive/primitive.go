/*
Package primitive provides the constant predicates True and False. They
are used to pin a feature toggle route to one of its variants, e.g. while
the experimental variant is prepared, or after it was rolled out.
*/
package primitive

import (
	"net/http"

	"github.com/zalando/featureroute/predicates"
	"github.com/zalando/featureroute/routing"
)

type spec bool

type predicate bool

// NewTrue provides a predicate spec to create a Predicate instance that evaluates to true
func NewTrue() routing.PredicateSpec { return spec(true) }

// NewFalse provides a predicate spec to create a Predicate instance that evaluates to false
func NewFalse() routing.PredicateSpec { return spec(false) }

func (s spec) Name() string {
	if s {
		return predicates.TrueName
	}

	return predicates.FalseName
}

// Create a constant predicate. Arguments are ignored.
func (s spec) Create([]any) (routing.Predicate, error) {
	return predicate(s), nil
}

func (p predicate) Match(*http.Request) bool { return bool(p) }
