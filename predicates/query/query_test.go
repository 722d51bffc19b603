package query

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryArgs(t *testing.T) {
	for _, ti := range []struct {
		msg    string
		args   []any
		exists bool
		err    bool
	}{{
		"too few args",
		[]any{},
		false,
		true,
	}, {
		"too many args",
		[]any{"key", "value", "something"},
		false,
		true,
	}, {
		"exists case",
		[]any{"query"},
		true,
		false,
	}, {
		"match case",
		[]any{"key", "^value$"},
		false,
		false,
	}, {
		"invalid type key",
		[]any{5, "value"},
		false,
		true,
	}, {
		"invalid type value",
		[]any{"key", 5},
		false,
		true,
	}, {
		"invalid regexp string",
		[]any{"key", `\`},
		false,
		true,
	}} {
		t.Run(ti.msg, func(t *testing.T) {
			p, err := New().Create(ti.args)
			if ti.err {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			qp, ok := p.(*predicate)
			require.True(t, ok)
			assert.Equal(t, ti.exists, qp.valueExp == nil)
		})
	}
}

func TestMatch(t *testing.T) {
	for _, ti := range []struct {
		msg   string
		args  []any
		query string
		match bool
	}{
		{"find existing params", []any{"key"}, "key=value", true},
		{"find empty params", []any{"key"}, "key=", true},
		{"find params without value", []any{"key"}, "other=1&key", true},
		{"does not find nonexistent params", []any{"keyNot"}, "key=value", false},
		{"match value", []any{"key", "^value$"}, "key=value", true},
		{"match any value", []any{"key", "^value$"}, "key=other&key=value", true},
		{"no match", []any{"key", "^value$"}, "key=other", false},
		{"no match missing", []any{"key", ".*"}, "other=value", false},
	} {
		t.Run(ti.msg, func(t *testing.T) {
			p, err := New().Create(ti.args)
			require.NoError(t, err)
			assert.Equal(t, ti.match, p.Match(httptest.NewRequest("GET", "/?"+ti.query, nil)))
		})
	}
}
