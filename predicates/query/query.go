/*
Package query implements a toggle predicate matching the query parameters
of the request URL.

It supports checking the existence of a query parameter, and checking
whether any of its values match an expression:

	// matches /jobs?beta and /jobs?beta=
	- name: QueryParam
	  args: [beta]

	// matches /jobs?variant=new, and /jobs?variant=old&variant=new
	- name: QueryParam
	  args: [variant, ^new$]
*/
package query

import (
	"net/http"
	"regexp"
	"slices"

	"github.com/zalando/featureroute/predicates"
	"github.com/zalando/featureroute/routing"
)

type predicate struct {
	paramName string
	valueExp  *regexp.Regexp
}

type spec struct{}

// New creates a new QueryParam predicate specification.
func New() routing.PredicateSpec { return &spec{} }

func (s *spec) Name() string {
	return predicates.QueryParamName
}

func (s *spec) Create(args []any) (routing.Predicate, error) {
	if len(args) == 0 || len(args) > 2 {
		return nil, predicates.ErrInvalidPredicateParameters
	}

	name, ok := args[0].(string)
	if !ok {
		return nil, predicates.ErrInvalidPredicateParameters
	}

	if len(args) == 1 {
		return &predicate{paramName: name}, nil
	}

	value, ok := args[1].(string)
	if !ok {
		return nil, predicates.ErrInvalidPredicateParameters
	}

	valueExp, err := regexp.Compile(value)
	if err != nil {
		return nil, err
	}

	return &predicate{name, valueExp}, nil
}

func (p *predicate) Match(r *http.Request) bool {
	vals, ok := r.URL.Query()[p.paramName]
	if !ok {
		return false
	}

	if p.valueExp == nil {
		return true
	}

	return slices.ContainsFunc(vals, p.valueExp.MatchString)
}
