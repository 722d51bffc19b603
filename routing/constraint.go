package routing

import (
	"net/http"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Direction tells a constraint whether it is evaluated while matching an
// incoming request or while generating a URL.
type Direction int

const (
	IncomingRequest Direction = iota
	URLGeneration
)

func (d Direction) String() string {
	switch d {
	case IncomingRequest:
		return "incoming-request"
	case URLGeneration:
		return "url-generation"
	default:
		return "unknown"
	}
}

// Constraint validates a single route parameter. Implementations receive the
// values resolved so far, including defaults.
type Constraint interface {
	Match(r *http.Request, param string, values Values, d Direction) bool
}

// ConstraintFunc adapts a function to the Constraint interface.
type ConstraintFunc func(r *http.Request, param string, values Values, d Direction) bool

func (f ConstraintFunc) Match(r *http.Request, param string, values Values, d Direction) bool {
	return f(r, param, values, d)
}

type regexpConstraint struct {
	pattern string
	rx      *regexp.Regexp
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)^(?:" + pattern + ")$")
}

// Regexp creates a constraint from a pattern. The pattern has to match the
// whole parameter value, ignoring case, the same way as string entries in a
// constraints map.
func Regexp(pattern string) (Constraint, error) {
	rx, err := compilePattern(pattern)
	if err != nil {
		return nil, WrapInvalidConfiguration("invalid constraint pattern", err)
	}

	return &regexpConstraint{pattern: pattern, rx: rx}, nil
}

func (c *regexpConstraint) Match(_ *http.Request, param string, values Values, _ Direction) bool {
	s, _ := values.String(param)
	return c.rx.MatchString(s)
}

func (c *regexpConstraint) String() string { return c.pattern }

// Int accepts base 10 integers.
func Int() Constraint {
	return ConstraintFunc(func(_ *http.Request, param string, values Values, _ Direction) bool {
		s, ok := values.String(param)
		if !ok {
			return false
		}

		_, err := strconv.ParseInt(s, 10, 64)
		return err == nil
	})
}

// UUID accepts the textual forms of UUIDs understood by github.com/google/uuid.
func UUID() Constraint {
	return ConstraintFunc(func(_ *http.Request, param string, values Values, _ Direction) bool {
		s, ok := values.String(param)
		if !ok {
			return false
		}

		return uuid.Validate(s) == nil
	})
}

// OneOf accepts any of the listed values, ignoring case.
func OneOf(allowed ...string) Constraint {
	return ConstraintFunc(func(_ *http.Request, param string, values Values, _ Direction) bool {
		s, ok := values.String(param)
		if !ok {
			return false
		}

		return slices.ContainsFunc(allowed, func(a string) bool { return strings.EqualFold(a, s) })
	})
}

// Methods restricts the HTTP method of incoming requests. During URL
// generation, the value of the constrained parameter is checked instead,
// when it was provided.
func Methods(methods ...string) Constraint {
	allowed := make([]string, len(methods))
	for i, m := range methods {
		allowed[i] = strings.ToUpper(m)
	}

	return ConstraintFunc(func(r *http.Request, param string, values Values, d Direction) bool {
		if d == URLGeneration {
			s, ok := values.String(param)
			return !ok || slices.Contains(allowed, strings.ToUpper(s))
		}

		return slices.Contains(allowed, r.Method)
	})
}

// Constraints holds the validated and compiled form of a constraints map.
type Constraints map[string]Constraint

// CompileConstraints validates a constraints map. Every entry needs to be a
// string pattern or implement Constraint, otherwise the whole map is rejected
// with ErrInvalidConfiguration. A nil map compiles to nil.
func CompileConstraints(v Values) (Constraints, error) {
	if v == nil {
		return nil, nil
	}

	c := make(Constraints, len(v))
	for _, k := range v.Keys() {
		switch cv := v[k].(type) {
		case string:
			rx, err := compilePattern(cv)
			if err != nil {
				return nil, invalidConfiguration("constraint entry %q has an invalid pattern %q: %v", k, cv, err)
			}

			c[k] = &regexpConstraint{pattern: cv, rx: rx}
		case Constraint:
			c[k] = cv
		default:
			return nil, invalidConfiguration(
				"constraint entry %q must have a string value or implement routing.Constraint, got %T",
				k, v[k],
			)
		}
	}

	return c, nil
}

// Match tells whether all constraints accept the values.
func (c Constraints) Match(r *http.Request, values Values, d Direction) bool {
	for param, constraint := range c {
		if !constraint.Match(r, param, values, d) {
			return false
		}
	}

	return true
}
