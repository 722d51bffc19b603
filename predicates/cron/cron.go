/*
Package cron implements a toggle predicate enabling the experimental
variant while the system time matches a cron-like expression, e.g. only
during office hours:

	- name: Cron
	  args: ["* 9-17 * * 1-5"]

For supported & unsupported features refer to the "cronmask" package
documentation (https://github.com/sarslanhan/cronmask).
*/
package cron

import (
	"net/http"
	"time"

	"github.com/sarslanhan/cronmask"

	"github.com/zalando/featureroute/predicates"
	"github.com/zalando/featureroute/routing"
)

type clock func() time.Time

type spec struct {
	now clock
}

type predicate struct {
	mask *cronmask.CronMask
	now  clock
}

func New() routing.PredicateSpec {
	return &spec{now: time.Now}
}

func (*spec) Name() string {
	return predicates.CronName
}

func (s *spec) Create(args []any) (routing.Predicate, error) {
	if len(args) != 1 {
		return nil, predicates.ErrInvalidPredicateParameters
	}

	expr, ok := args[0].(string)
	if !ok {
		return nil, predicates.ErrInvalidPredicateParameters
	}

	mask, err := cronmask.New(expr)
	if err != nil {
		return nil, err
	}

	return &predicate{mask: mask, now: s.now}, nil
}

func (p *predicate) Match(*http.Request) bool {
	return p.mask.Match(p.now())
}
