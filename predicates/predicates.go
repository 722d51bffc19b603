/*
Package predicates contains the library of toggle predicates, and the
registry creating them from their definitions.

Every predicate is provided by a routing.PredicateSpec, identified by its
name, and created from a list of arguments, the way the route file lists
them:

	toggle:
	- name: Secure
	- name: Header
	  args: [X-Beta, "on"]

The listed predicates are combined with And.
*/
package predicates

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/zalando/featureroute/routing"
)

// ErrInvalidPredicateParameters is used in case of invalid predicate parameters.
var ErrInvalidPredicateParameters = errors.New("invalid predicate parameters")

// Names of the built-in predicates.
const (
	TrueName              = "True"
	FalseName             = "False"
	HeaderName            = "Header"
	HeaderRegexpName      = "HeaderRegexp"
	CookieName            = "Cookie"
	QueryParamName        = "QueryParam"
	ForwardedHostName     = "ForwardedHost"
	ForwardedProtocolName = "ForwardedProtocol"
	SecureName            = "Secure"
	SourceName            = "Source"
	SourceFromLastName    = "SourceFromLast"
	ClientIPName          = "ClientIP"
	CronName              = "Cron"
	BetweenName           = "Between"
	BeforeName            = "Before"
	AfterName             = "After"
	OTelBaggageName       = "OTelBaggage"
)

type and []routing.Predicate

type or []routing.Predicate

type not struct{ p routing.Predicate }

// And matches when all the predicates match. Without predicates it
// matches every request.
func And(p ...routing.Predicate) routing.Predicate { return and(p) }

// Or matches when any of the predicates matches. Without predicates it
// matches no request.
func Or(p ...routing.Predicate) routing.Predicate { return or(p) }

// Not inverts a predicate.
func Not(p routing.Predicate) routing.Predicate { return not{p} }

func (a and) Match(r *http.Request) bool {
	for _, p := range a {
		if !p.Match(r) {
			return false
		}
	}

	return true
}

func (o or) Match(r *http.Request) bool {
	for _, p := range o {
		if p.Match(r) {
			return true
		}
	}

	return false
}

func (n not) Match(r *http.Request) bool { return !n.p.Match(r) }

// Definition references a predicate spec by name, with the arguments of
// the predicate.
type Definition struct {
	Name string `yaml:"name"`
	Args []any  `yaml:"args,omitempty"`
}

func (d Definition) String() string {
	args := make([]string, len(d.Args))
	for i, a := range d.Args {
		if s, ok := a.(string); ok {
			args[i] = fmt.Sprintf("%q", s)
		} else {
			args[i] = fmt.Sprint(a)
		}
	}

	return d.Name + "(" + strings.Join(args, ", ") + ")"
}

// Registry holds predicate specs by name.
type Registry map[string]routing.PredicateSpec

// NewRegistry creates a registry with the specs. Later specs override
// earlier ones with the same name.
func NewRegistry(specs ...routing.PredicateSpec) Registry {
	r := make(Registry)
	r.Register(specs...)
	return r
}

func (r Registry) Register(specs ...routing.PredicateSpec) {
	for _, s := range specs {
		r[s.Name()] = s
	}
}

// Create creates the predicate of a single definition.
func (r Registry) Create(d Definition) (routing.Predicate, error) {
	s, ok := r[d.Name]
	if !ok {
		return nil, routing.InvalidConfiguration("unknown predicate: %s", d.Name)
	}

	p, err := s.Create(d.Args)
	if err != nil {
		return nil, routing.WrapInvalidConfiguration(d.String(), err)
	}

	return p, nil
}

// CreateAll creates the predicates of the definitions, combined with
// And. At least one definition is required.
func (r Registry) CreateAll(defs []Definition) (routing.Predicate, error) {
	if len(defs) == 0 {
		return nil, routing.InvalidConfiguration("missing predicate definitions")
	}

	ps := make([]routing.Predicate, len(defs))
	for i, d := range defs {
		p, err := r.Create(d)
		if err != nil {
			return nil, err
		}

		ps[i] = p
	}

	if len(ps) == 1 {
		return ps[0], nil
	}

	return And(ps...), nil
}
