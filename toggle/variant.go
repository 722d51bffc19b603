package toggle

import (
	"reflect"

	"github.com/zalando/featureroute/routing"
)

// VariantOptions configure a variant of a feature toggle route. The
// defaults, constraints and data tokens accept every shape understood by
// routing.ToValues.
type VariantOptions struct {
	Defaults    any
	Constraints any
	DataTokens  any
	Handler     routing.Handler
}

// Variant is one of the two complete configurations of a feature toggle
// route. It does not change after construction.
type Variant struct {
	defaults    routing.Values
	constraintv routing.Values
	constraints routing.Constraints
	dataTokens  routing.Values
	handler     routing.Handler
}

// NewVariant validates and normalizes the options. It fails with
// routing.ErrInvalidConfiguration when the handler is missing, when an input
// has an unsupported shape, or when a constraint entry is neither a valid
// pattern nor a routing.Constraint.
func NewVariant(o VariantOptions) (*Variant, error) {
	if o.Handler == nil {
		return nil, routing.InvalidConfiguration("variant without handler")
	}

	d, err := routing.ToValues(o.Defaults)
	if err != nil {
		return nil, routing.WrapInvalidConfiguration("defaults", err)
	}

	cv, err := routing.ToValues(o.Constraints)
	if err != nil {
		return nil, routing.WrapInvalidConfiguration("constraints", err)
	}

	c, err := routing.CompileConstraints(cv)
	if err != nil {
		return nil, err
	}

	dt, err := routing.ToValues(o.DataTokens)
	if err != nil {
		return nil, routing.WrapInvalidConfiguration("data tokens", err)
	}

	return &Variant{
		defaults:    d,
		constraintv: cv,
		constraints: c,
		dataTokens:  dt,
		handler:     o.Handler,
	}, nil
}

// Defaults returns a copy of the defaults, nil when there are none.
func (v *Variant) Defaults() routing.Values { return v.defaults.Clone() }

// Constraints returns a copy of the constraints as they were configured,
// nil when there are none.
func (v *Variant) Constraints() routing.Values { return v.constraintv.Clone() }

// DataTokens returns a copy of the data tokens, nil when there are none.
func (v *Variant) DataTokens() routing.Values { return v.dataTokens.Clone() }

func (v *Variant) Handler() routing.Handler { return v.handler }

// Equal compares two variants by content. Handlers are equal when they
// are identical, or when they implement Equal(routing.Handler) bool and it
// reports true.
func (v *Variant) Equal(other *Variant) bool {
	if v == nil || other == nil {
		return v == other
	}

	return valuesEqual(v.defaults, other.defaults) &&
		valuesEqual(v.constraintv, other.constraintv) &&
		valuesEqual(v.dataTokens, other.dataTokens) &&
		HandlerEqual(v.handler, other.handler)
}

func valuesEqual(a, b routing.Values) bool {
	if (a == nil) != (b == nil) {
		return false
	}

	return reflect.DeepEqual(a, b)
}

// HandlerEqual compares route handlers.
func HandlerEqual(a, b routing.Handler) bool {
	if eq, ok := a.(interface{ Equal(routing.Handler) bool }); ok {
		return eq.Equal(b)
	}

	if a == nil || b == nil {
		return a == nil && b == nil
	}

	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}

	return a == b
}
