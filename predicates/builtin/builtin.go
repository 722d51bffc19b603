// Package builtin provides the registry of all the toggle predicates
// implemented in this module.
package builtin

import (
	"github.com/zalando/featureroute/predicates"
	"github.com/zalando/featureroute/predicates/cookie"
	"github.com/zalando/featureroute/predicates/cron"
	"github.com/zalando/featureroute/predicates/forwarded"
	"github.com/zalando/featureroute/predicates/header"
	"github.com/zalando/featureroute/predicates/interval"
	"github.com/zalando/featureroute/predicates/otel"
	"github.com/zalando/featureroute/predicates/primitive"
	"github.com/zalando/featureroute/predicates/query"
	"github.com/zalando/featureroute/predicates/source"
	"github.com/zalando/featureroute/routing"
)

// Specs returns the specs of the built-in predicates.
func Specs() []routing.PredicateSpec {
	return []routing.PredicateSpec{
		primitive.NewTrue(),
		primitive.NewFalse(),
		header.NewHeader(),
		header.NewHeaderRegexp(),
		cookie.New(),
		query.New(),
		forwarded.NewForwardedHost(),
		forwarded.NewForwardedProto(),
		forwarded.NewSecure(),
		source.New(),
		source.NewFromLast(),
		source.NewClientIP(),
		cron.New(),
		interval.NewBetween(),
		interval.NewBefore(),
		interval.NewAfter(),
		otel.NewBaggage(),
	}
}

// Registry returns a registry with the built-in predicates. Custom
// predicates can be added to it with Register.
func Registry() predicates.Registry {
	return predicates.NewRegistry(Specs()...)
}
