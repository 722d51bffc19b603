package cookie

import (
	"bufio"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/zalando/featureroute/predicates"
)

func TestCookieArgs(t *testing.T) {
	for _, ti := range []struct {
		msg  string
		args []any
		err  bool
	}{{
		"no args",
		nil,
		true,
	}, {
		"too many args",
		[]any{"name", "value", "something"},
		true,
	}, {
		"invalid name",
		[]any{float64(1), "value"},
		true,
	}, {
		"empty name",
		[]any{""},
		true,
	}, {
		"invalid value",
		[]any{"name", `\`},
		true,
	}, {
		"name only",
		[]any{"name"},
		false,
	}, {
		"ok",
		[]any{"name", "value"},
		false,
	}} {
		t.Run(ti.msg, func(t *testing.T) {
			p, err := New().Create(ti.args)
			if ti.err && err == nil {
				t.Error("failed to fail")
			} else if !ti.err && err != nil {
				t.Error(err)
			}

			if err == nil && p == nil {
				t.Error("failed to create predicate")
			}
		})
	}
}

func TestCookieMatch(t *testing.T) {
	for _, ti := range []struct {
		msg     string
		args    []any
		cookies string
		match   bool
	}{{
		"not found",
		[]any{"beta", "^enabled$"},
		"some=value",
		false,
	}, {
		"don't match",
		[]any{"beta", "^enabled, but not working$"},
		"some=value;beta=enabled",
		false,
	}, {
		"match",
		[]any{"beta", "^enabled$"},
		"some=value;beta=enabled",
		true,
	}, {
		"exists",
		[]any{"beta"},
		"beta=",
		true,
	}} {
		t.Run(ti.msg, func(t *testing.T) {
			p, err := New().Create(ti.args)
			if err != nil {
				t.Fatal(err)
			}

			r, err := http.ReadRequest(bufio.NewReader(strings.NewReader(fmt.Sprintf(
				"GET / HTTP/1.0\r\nCookie: %s\r\n\r\n", ti.cookies))))
			if err != nil {
				t.Fatal(err)
			}

			if m := p.Match(r); m != ti.match {
				t.Error("failed to match", m, ti.match)
			}
		})
	}
}

func TestName(t *testing.T) {
	if New().Name() != predicates.CookieName {
		t.Error("invalid name")
	}
}
