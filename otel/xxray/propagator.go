// Package xxray provides an AWS X-Ray trace propagator, that accepts the
// trace header created by the AWS application load balancers, too. The
// load balancers set only the Root field of the X-Amzn-Trace-Id header,
// while the standard [xray.Propagator] requires the Parent field, as well.
//
// Select it with OTEL_PROPAGATORS=xxray.
package xxray

import (
	"context"
	"strings"

	"go.opentelemetry.io/contrib/propagators/aws/xray"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Name of the propagator in OTEL_PROPAGATORS.
const Name = "xxray"

const (
	headerKey = "X-Amzn-Trace-Id"

	// e.g. 1-5759e988-bd862e3fe1be46a994272793
	traceIDLength = 35
	epochLength   = 8
)

// Propagator extends the standard X-Ray propagator: when the header has
// no parent, a new span ID is generated for the trace ID of the root.
type Propagator struct {
	xray.Propagator
	ids *xray.IDGenerator
}

var _ propagation.TextMapPropagator = (*Propagator)(nil)

func NewPropagator() *Propagator {
	return &Propagator{ids: xray.NewIDGenerator()}
}

func (p *Propagator) Extract(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	if extracted := p.Propagator.Extract(ctx, carrier); extracted != ctx {
		return extracted
	}

	traceID, ok := rootTraceID(carrier.Get(headerKey))
	if !ok {
		return ctx
	}

	return trace.ContextWithRemoteSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  p.ids.NewSpanID(ctx, traceID),
	}))
}

func rootTraceID(header string) (trace.TraceID, bool) {
	for part := range strings.SplitSeq(header, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && k == "Root" {
			return parseTraceID(v)
		}
	}

	return trace.TraceID{}, false
}

func parseTraceID(s string) (trace.TraceID, bool) {
	if len(s) != traceIDLength {
		return trace.TraceID{}, false
	}

	version, rest, _ := strings.Cut(s, "-")
	epoch, unique, ok := strings.Cut(rest, "-")
	if version != "1" || !ok || len(epoch) != epochLength {
		return trace.TraceID{}, false
	}

	id, err := trace.TraceIDFromHex(epoch + unique)
	return id, err == nil && id.IsValid()
}
