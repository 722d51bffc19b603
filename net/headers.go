package net

import (
	"net/http"

	"go4.org/netipx"
)

// ForwardedHeaders sets the non-standard X-Forwarded-* request headers,
// when the application is exposed without a proxy in front of it.
type ForwardedHeaders struct {
	// For appends the remote IP of the request to the X-Forwarded-For
	// header.
	For bool

	// PrependFor prepends the remote IP to the X-Forwarded-For header,
	// and it overrides For.
	PrependFor bool

	// Proto sets the X-Forwarded-Proto header, based on the connection of
	// the request.
	Proto bool
}

func (h ForwardedHeaders) Enabled() bool {
	return h.For || h.PrependFor || h.Proto
}

func (h ForwardedHeaders) Set(r *http.Request) {
	if addr := ClientAddr(r); (h.For || h.PrependFor) && addr.IsValid() {
		a := addr.String()
		v := r.Header.Get("X-Forwarded-For")
		switch {
		case v == "":
			v = a
		case h.PrependFor:
			v = a + ", " + v
		default:
			v = v + ", " + a
		}

		r.Header.Set("X-Forwarded-For", v)
	}

	if h.Proto {
		proto := "http"
		if r.TLS != nil {
			proto = "https"
		}

		r.Header.Set("X-Forwarded-Proto", proto)
	}
}

// ForwardedHeadersHandler sets the forwarded headers before calling the
// wrapped handler, except for the requests coming from the excluded
// addresses, e.g. trusted proxies.
type ForwardedHeadersHandler struct {
	Headers ForwardedHeaders
	Exclude *netipx.IPSet
	Handler http.Handler
}

func (h *ForwardedHeadersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Exclude == nil || !h.Exclude.Contains(ClientAddr(r)) {
		h.Headers.Set(r)
	}

	h.Handler.ServeHTTP(w, r)
}
