package logging

import (
	"net/http"
	"time"

	"github.com/zalando/featureroute/routing"
)

// Handler writes an access log entry for every request served by the
// wrapped handler. When the wrapped handler is a routing.Table, the entry
// contains the name of the matched route and the selected variant.
type Handler struct {
	next http.Handler
}

func NewHandler(next http.Handler) *Handler {
	return &Handler{next: next}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, si := routing.NewServeInfoContext(r.Context())
	lw := &loggingWriter{writer: w}
	h.next.ServeHTTP(lw, r.WithContext(ctx))

	if lw.code == 0 {
		lw.code = http.StatusOK
	}

	LogAccess(&AccessEntry{
		Request:      r,
		StatusCode:   lw.code,
		ResponseSize: lw.bytes,
		Duration:     time.Since(start),
		RequestTime:  start,
		RouteName:    si.RouteName,
		Variant:      si.Variant,
	})
}
