/*
Package forwarded implements toggle predicates based on the protocol and
the host of the request, as seen by the client, when the application is
behind a proxy.

ForwardedHost and ForwardedProtocol use the standardized Forwarded header:

https://datatracker.ietf.org/doc/html/rfc7239

Secure matches requests received over TLS, or forwarded by a proxy that
received them over TLS, according to either the Forwarded or the
X-Forwarded-Proto header. It takes no arguments.

Examples:

	// only requests to "example.com"
	- name: ForwardedHost
	  args: [^example.com$]

	// only requests received via https
	- name: ForwardedProtocol
	  args: [https]

	// TLS, or https according to the proxy
	- name: Secure
*/
package forwarded

import (
	"net/http"
	"regexp"
	"strings"

	snet "github.com/zalando/featureroute/net"
	"github.com/zalando/featureroute/predicates"
	"github.com/zalando/featureroute/routing"
)

type hostPredicateSpec struct{}

type protoPredicateSpec struct{}

type secureSpec struct{}

type hostPredicate struct {
	host *regexp.Regexp
}

type protoPredicate struct {
	proto string
}

type securePredicate struct{}

func NewForwardedHost() routing.PredicateSpec  { return &hostPredicateSpec{} }
func NewForwardedProto() routing.PredicateSpec { return &protoPredicateSpec{} }
func NewSecure() routing.PredicateSpec         { return &secureSpec{} }

func (*hostPredicateSpec) Name() string  { return predicates.ForwardedHostName }
func (*protoPredicateSpec) Name() string { return predicates.ForwardedProtocolName }
func (*secureSpec) Name() string         { return predicates.SecureName }

func (*hostPredicateSpec) Create(args []any) (routing.Predicate, error) {
	if len(args) != 1 {
		return nil, predicates.ErrInvalidPredicateParameters
	}

	value, ok := args[0].(string)
	if !ok || value == "" {
		return nil, predicates.ErrInvalidPredicateParameters
	}

	re, err := regexp.Compile(value)
	if err != nil {
		return nil, err
	}

	return hostPredicate{host: re}, nil
}

func (*protoPredicateSpec) Create(args []any) (routing.Predicate, error) {
	if len(args) != 1 {
		return nil, predicates.ErrInvalidPredicateParameters
	}

	value, ok := args[0].(string)
	if !ok {
		return nil, predicates.ErrInvalidPredicateParameters
	}

	switch value {
	case "http", "https":
		return protoPredicate{proto: value}, nil
	default:
		return nil, predicates.ErrInvalidPredicateParameters
	}
}

func (*secureSpec) Create(args []any) (routing.Predicate, error) {
	if len(args) != 0 {
		return nil, predicates.ErrInvalidPredicateParameters
	}

	return securePredicate{}, nil
}

// New creates the predicate matching secure requests, for use in code.
func New() routing.Predicate { return securePredicate{} }

func (p hostPredicate) Match(r *http.Request) bool {
	fh := r.Header.Get("Forwarded")
	if fh == "" {
		return false
	}

	return p.host.MatchString(parseForwarded(fh).host)
}

func (p protoPredicate) Match(r *http.Request) bool {
	fh := r.Header.Get("Forwarded")
	if fh == "" {
		return false
	}

	return p.proto == parseForwarded(fh).proto
}

func (securePredicate) Match(r *http.Request) bool {
	if snet.IsSecure(r) {
		return true
	}

	fh := r.Header.Get("Forwarded")
	return fh != "" && parseForwarded(fh).proto == "https"
}

type forwarded struct {
	host  string
	proto string
}

// the last value wins, when a header lists more proxies
func parseForwarded(fh string) *forwarded {
	f := &forwarded{}
	for _, element := range strings.Split(fh, ",") {
		for _, pair := range strings.Split(element, ";") {
			token, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if !ok {
				continue
			}

			value = strings.Trim(value, `"`)
			switch strings.ToLower(token) {
			case "proto":
				f.proto = strings.ToLower(value)
			case "host":
				f.host = value
			}
		}
	}

	return f
}
