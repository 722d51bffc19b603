package routing

import (
	"fmt"
	"maps"
	"reflect"
	"sort"
)

// Values maps route parameter names to values. It is used for defaults,
// constraints, data tokens and for the values resolved by a match.
//
// A nil Values means "not specified", while an empty, non-nil Values means
// "specified as empty". The two are kept distinct throughout the package.
type Values map[string]any

// Has tells whether the key is present.
func (v Values) Has(key string) bool {
	_, ok := v[key]
	return ok
}

// String returns the value stored under key formatted as a string, and
// false when the key is missing or the value is nil.
func (v Values) String(key string) (string, bool) {
	val, ok := v[key]
	if !ok || val == nil {
		return "", false
	}

	return valueString(val), true
}

// Clone returns a shallow copy. The clone of a nil Values is nil.
func (v Values) Clone() Values {
	if v == nil {
		return nil
	}

	return maps.Clone(v)
}

// Keys returns the keys in sorted order.
func (v Values) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}

	sort.Strings(keys)
	return keys
}

func valueString(v any) string {
	switch vv := v.(type) {
	case string:
		return vv
	case fmt.Stringer:
		return vv.String()
	default:
		return fmt.Sprint(v)
	}
}

// ToValues normalizes the accepted configuration shapes into Values:
//
//   - nil, a nil map or a nil pointer results in nil
//   - Values, or any map with string keys, is copied
//   - a struct, or a pointer to a struct, is projected by its exported
//     fields, using the `route:"name"` tag when present and the field name
//     otherwise; fields tagged with `route:"-"` are skipped
//
// Any other input fails with ErrInvalidConfiguration.
func ToValues(in any) (Values, error) {
	if in == nil {
		return nil, nil
	}

	switch v := in.(type) {
	case Values:
		return v.Clone(), nil
	case map[string]any:
		return Values(v).Clone(), nil
	case map[string]string:
		if v == nil {
			return nil, nil
		}

		out := make(Values, len(v))
		for k, s := range v {
			out[k] = s
		}

		return out, nil
	}

	rv := reflect.ValueOf(in)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, nil
		}

		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, invalidConfiguration("map keys must be strings, got %s", rv.Type().Key())
		}

		if rv.IsNil() {
			return nil, nil
		}

		out := make(Values, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}

		return out, nil
	case reflect.Struct:
		return projectStruct(rv), nil
	default:
		return nil, invalidConfiguration("cannot convert %T to route values", in)
	}
}

func projectStruct(rv reflect.Value) Values {
	rt := rv.Type()
	out := make(Values, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}

		name := f.Name
		if tag, ok := f.Tag.Lookup("route"); ok {
			if tag == "-" {
				continue
			}

			if tag != "" {
				name = tag
			}
		}

		out[name] = rv.Field(i).Interface()
	}

	return out
}

// MustValues is like ToValues but panics on error. Meant for tests and
// package level variables.
func MustValues(in any) Values {
	v, err := ToValues(in)
	if err != nil {
		panic(err)
	}

	return v
}
