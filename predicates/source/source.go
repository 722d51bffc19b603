/*
Package source implements toggle predicates matching the network of the
client, e.g. to enable the experimental variant only for the office
network.

It is important to note, that these predicates should not be used for
access control. The headers they use can be set by any client.

There are three flavors. Source uses the first entry of the
X-Forwarded-For header, when present, SourceFromLast the last one, and
ClientIP ignores the header and uses the address of the peer connection.
All of them accept one or more IP addresses with or without a netmask:

	- name: Source
	  args: [10.0.0.0/8, 192.168.1.17]
*/
package source

import (
	"errors"
	"net/http"
	"net/netip"

	"go4.org/netipx"

	snet "github.com/zalando/featureroute/net"
	"github.com/zalando/featureroute/predicates"
	"github.com/zalando/featureroute/routing"
)

var errInvalidArgs = errors.New("invalid arguments")

type sourcePred int

const (
	source sourcePred = iota
	sourceFromLast
	clientIP
)

type spec struct {
	typ sourcePred
}

type predicate struct {
	addr func(*http.Request) netip.Addr
	nets *netipx.IPSet
}

func New() routing.PredicateSpec         { return &spec{typ: source} }
func NewFromLast() routing.PredicateSpec { return &spec{typ: sourceFromLast} }
func NewClientIP() routing.PredicateSpec { return &spec{typ: clientIP} }

func (s *spec) Name() string {
	switch s.typ {
	case sourceFromLast:
		return predicates.SourceFromLastName
	case clientIP:
		return predicates.ClientIPName
	default:
		return predicates.SourceName
	}
}

func (s *spec) Create(args []any) (routing.Predicate, error) {
	if len(args) == 0 {
		return nil, errInvalidArgs
	}

	cidrs := make([]string, len(args))
	for i := range args {
		s, ok := args[i].(string)
		if !ok {
			return nil, errInvalidArgs
		}

		cidrs[i] = s
	}

	nets, err := snet.ParseIPCIDRs(cidrs)
	if err != nil {
		return nil, err
	}

	p := &predicate{nets: nets}
	switch s.typ {
	case sourceFromLast:
		p.addr = snet.RemoteAddrFromLast
	case clientIP:
		p.addr = snet.ClientAddr
	default:
		p.addr = snet.RemoteAddr
	}

	return p, nil
}

func (p *predicate) Match(r *http.Request) bool {
	return p.nets.Contains(p.addr(r))
}
