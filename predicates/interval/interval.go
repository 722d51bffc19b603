/*
Package interval implements toggle predicates enabling the experimental
variant only during some period of time. Package includes three
predicates: Between, Before and After. All predicates can be created
using the date represented as a string in RFC3339 format, or as unix
seconds.

Between matches only if the current date is inside the specified range
of dates. The range is closed, so boundaries are included. The upper
boundary must be after the lower boundary.

Before matches only if the current date is before the specified date, and
After only if it is after the specified date. The boundary is not
included.

Examples:

	- name: Between
	  args: ["2026-01-01T12:00:00+02:00", "2026-02-01T12:00:00+02:00"]

	- name: After
	  args: [1767225600]
*/
package interval

import (
	"net/http"
	"time"

	"github.com/zalando/featureroute/predicates"
	"github.com/zalando/featureroute/routing"
)

type intervalType int

const (
	between intervalType = iota
	before
	after
)

type spec struct {
	typ intervalType
	now func() time.Time
}

type predicate struct {
	typ   intervalType
	begin time.Time
	end   time.Time
	now   func() time.Time
}

func NewBetween() routing.PredicateSpec { return &spec{typ: between, now: time.Now} }
func NewBefore() routing.PredicateSpec  { return &spec{typ: before, now: time.Now} }
func NewAfter() routing.PredicateSpec   { return &spec{typ: after, now: time.Now} }

func (s *spec) Name() string {
	switch s.typ {
	case between:
		return predicates.BetweenName
	case before:
		return predicates.BeforeName
	default:
		return predicates.AfterName
	}
}

func (s *spec) Create(args []any) (routing.Predicate, error) {
	n := 1
	if s.typ == between {
		n = 2
	}

	if len(args) != n {
		return nil, predicates.ErrInvalidPredicateParameters
	}

	ts := make([]time.Time, n)
	for i, a := range args {
		t, ok := parseArg(a)
		if !ok {
			return nil, predicates.ErrInvalidPredicateParameters
		}

		ts[i] = t
	}

	p := &predicate{typ: s.typ, now: s.now}
	switch s.typ {
	case between:
		if !ts[0].Before(ts[1]) {
			return nil, predicates.ErrInvalidPredicateParameters
		}

		p.begin, p.end = ts[0], ts[1]
	case before:
		p.end = ts[0]
	case after:
		p.begin = ts[0]
	}

	return p, nil
}

func parseArg(arg any) (time.Time, bool) {
	switch a := arg.(type) {
	case string:
		t, err := time.Parse(time.RFC3339, a)
		return t, err == nil
	case int:
		return time.Unix(int64(a), 0), true
	case int64:
		return time.Unix(a, 0), true
	case float64:
		return time.Unix(int64(a), 0), true
	default:
		return time.Time{}, false
	}
}

func (p *predicate) Match(*http.Request) bool {
	now := p.now()
	switch p.typ {
	case between:
		return !now.Before(p.begin) && !now.After(p.end)
	case before:
		return now.Before(p.end)
	default:
		return now.After(p.begin)
	}
}
