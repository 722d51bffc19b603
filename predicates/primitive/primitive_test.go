package primitive

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zalando/featureroute/predicates"
)

func TestIgnoreArguments(t *testing.T) {
	for _, ti := range []struct {
		name string
		args []any
	}{
		{"no args", nil},
		{"number", []any{1}},
		{"string", []any{"foo"}},
		{"mixed", []any{0, "foo"}},
	} {
		t.Run(ti.name, func(t *testing.T) {
			p, err := NewTrue().Create(ti.args)
			require.NoError(t, err)
			assert.True(t, p.Match(httptest.NewRequest("GET", "/", nil)))

			p, err = NewFalse().Create(ti.args)
			require.NoError(t, err)
			assert.False(t, p.Match(nil))
		})
	}
}

func TestNames(t *testing.T) {
	assert.Equal(t, predicates.TrueName, NewTrue().Name())
	assert.Equal(t, predicates.FalseName, NewFalse().Name())
}
