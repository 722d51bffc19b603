/*
Package cookie implements a toggle predicate checking a request cookie.

The predicate accepts the cookie name, and optionally an expression that
the cookie value needs to match. Without the expression, the existence
of the cookie is enough:

	toggle:
	- name: Cookie
	  args: [beta, ^enabled$]
*/
package cookie

import (
	"net/http"
	"regexp"

	"github.com/zalando/featureroute/predicates"
	"github.com/zalando/featureroute/routing"
)

type (
	spec struct{}

	predicate struct {
		name     string
		valueExp *regexp.Regexp
	}
)

// New creates a predicate specification, whose instances can be used to
// match parsed request cookies.
func New() routing.PredicateSpec { return &spec{} }

func (s *spec) Name() string { return predicates.CookieName }

func (s *spec) Create(args []any) (routing.Predicate, error) {
	if len(args) == 0 || len(args) > 2 {
		return nil, predicates.ErrInvalidPredicateParameters
	}

	name, ok := args[0].(string)
	if !ok || name == "" {
		return nil, predicates.ErrInvalidPredicateParameters
	}

	if len(args) == 1 {
		return &predicate{name: name}, nil
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
	c, err := r.Cookie(p.name)
	if err != nil {
		return false
	}

	return p.valueExp == nil || p.valueExp.MatchString(c.Value)
}
