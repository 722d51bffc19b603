/*
Package header implements toggle predicates matching request headers.

Header matches when the request has a header with the exact value.
HeaderRegexp matches when any value of the header matches the
expression:

	- name: Header
	  args: [X-Beta, "on"]

	- name: HeaderRegexp
	  args: [User-Agent, Mobile]
*/
package header

import (
	"net/http"
	"regexp"
	"slices"

	"github.com/zalando/featureroute/predicates"
	"github.com/zalando/featureroute/routing"
)

type specType int

const (
	exact specType = iota
	rx
)

type spec struct {
	typ specType
}

type exactPredicate struct {
	name, value string
}

type rxPredicate struct {
	name string
	exp  *regexp.Regexp
}

func NewHeader() routing.PredicateSpec       { return &spec{exact} }
func NewHeaderRegexp() routing.PredicateSpec { return &spec{rx} }

func (s *spec) Name() string {
	if s.typ == rx {
		return predicates.HeaderRegexpName
	}

	return predicates.HeaderName
}

func (s *spec) Create(args []any) (routing.Predicate, error) {
	if len(args) != 2 {
		return nil, predicates.ErrInvalidPredicateParameters
	}

	name, ok := args[0].(string)
	if !ok || name == "" {
		return nil, predicates.ErrInvalidPredicateParameters
	}

	value, ok := args[1].(string)
	if !ok {
		return nil, predicates.ErrInvalidPredicateParameters
	}

	name = http.CanonicalHeaderKey(name)
	if s.typ == exact {
		return &exactPredicate{name, value}, nil
	}

	exp, err := regexp.Compile(value)
	if err != nil {
		return nil, err
	}

	return &rxPredicate{name, exp}, nil
}

func (p *exactPredicate) Match(r *http.Request) bool {
	return slices.Contains(r.Header[p.name], p.value)
}

func (p *rxPredicate) Match(r *http.Request) bool {
	return slices.ContainsFunc(r.Header[p.name], p.exp.MatchString)
}
