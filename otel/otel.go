// Package otel bootstraps the [OpenTelemetry] pipeline of the router: the
// tracer provider receiving the route spans of the table, and the text map
// propagator extracting the trace context and the baggage used by the
// OTelBaggage toggle predicate.
//
// [OpenTelemetry]: https://opentelemetry.io/
package otel

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/bombsimon/logrusr/v4"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/exporters/autoexport"
	"go.opentelemetry.io/contrib/propagators/autoprop"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"

	"github.com/zalando/featureroute/otel/xxray"
)

// DebugExporter is the name of the span exporter writing the spans into
// the debug log. Select it with OTEL_TRACES_EXPORTER.
const DebugExporter = "featureroute-debug"

const defaultServiceName = "featureroute"

var (
	log          = logrus.WithField("package", "otel")
	registerOnce sync.Once
)

// Options configure OpenTelemetry pipeline.
type Options struct {

	// Initialized indicates whether the OpenTelemetry pipeline has been
	// initialized externally. If true [Init] returns immediately without
	// doing anything.
	Initialized bool `yaml:"-"`

	// ServiceName is used as the service.name resource attribute, unless
	// OTEL_SERVICE_NAME or OTEL_RESOURCE_ATTRIBUTES set it. Defaults to
	// featureroute.
	ServiceName string `yaml:"serviceName"`
}

var envNames = []string{
	"OTEL_SERVICE_NAME",
	"OTEL_TRACES_EXPORTER",
	"OTEL_EXPORTER_OTLP_PROTOCOL",
	"OTEL_EXPORTER_OTLP_ENDPOINT",
	// "OTEL_EXPORTER_OTLP_HEADERS", may contain sensitive data
	"OTEL_RESOURCE_ATTRIBUTES",
	"OTEL_PROPAGATORS",
	"OTEL_BSP_MAX_QUEUE_SIZE",
	"OTEL_BSP_MAX_EXPORT_BATCH_SIZE",
	"OTEL_BSP_SCHEDULE_DELAY",
	"OTEL_BSP_EXPORT_TIMEOUT",
}

func newResource(o *Options) (*resource.Resource, error) {
	name := o.ServiceName
	if name == "" {
		name = defaultServiceName
	}

	// later resources take precedence
	return resource.Merge(
		resource.NewSchemaless(attribute.String("service.name", name)),
		resource.Environment(),
	)
}

// Init bootstraps the OpenTelemetry pipeline using environment variables
// and the provided options. Make sure to call shutdown for proper cleanup
// if err is nil.
//
// Supported environment variables:
//
//   - OTEL_SERVICE_NAME
//   - OTEL_TRACES_EXPORTER
//   - OTEL_EXPORTER_OTLP_PROTOCOL
//   - OTEL_EXPORTER_OTLP_ENDPOINT
//   - OTEL_EXPORTER_OTLP_HEADERS
//   - OTEL_RESOURCE_ATTRIBUTES
//   - OTEL_PROPAGATORS
//   - OTEL_BSP_MAX_QUEUE_SIZE
//   - OTEL_BSP_MAX_EXPORT_BATCH_SIZE
//   - OTEL_BSP_SCHEDULE_DELAY
//   - OTEL_BSP_EXPORT_TIMEOUT
//
// See:
//   - [go.opentelemetry.io/contrib/exporters/autoexport]
//   - [go.opentelemetry.io/contrib/propagators/autoprop].
//   - https://opentelemetry.io/docs/specs/otel/configuration/sdk-environment-variables/
func Init(ctx context.Context, o *Options) (shutdown func(context.Context) error, err error) {
	if o.Initialized {
		log.Debug("OpenTelemetry pipeline initialized externally")
		return func(context.Context) error { return nil }, nil
	}

	for _, name := range envNames {
		log.Debugf("%s: %s", name, os.Getenv(name))
	}

	var shutdownFuncs []func(context.Context) error

	// Each registered cleanup is invoked once, the errors are joined.
	shutdown = func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFuncs {
			err = errors.Join(err, fn(ctx))
		}

		shutdownFuncs = nil
		return err
	}

	handleErr := func(inErr error) {
		err = errors.Join(inErr, shutdown(ctx))
	}

	registerOnce.Do(func() {
		autoexport.RegisterSpanExporter(DebugExporter, newDebugExporter)
		autoprop.RegisterTextMapPropagator(xxray.Name, xxray.NewPropagator())
	})

	spanExporter, err := autoexport.NewSpanExporter(ctx)
	if err != nil {
		handleErr(err)
		return
	}

	res, err := newResource(o)
	if err != nil {
		handleErr(err)
		return
	}

	tracerProvider := trace.NewTracerProvider(
		trace.WithBatcher(spanExporter),
		trace.WithResource(res),
	)

	shutdownFuncs = append(shutdownFuncs, tracerProvider.Shutdown)
	otel.SetTracerProvider(tracerProvider)

	// OTEL_PROPAGATORS, defaults to tracecontext and baggage, xxray is
	// available in addition to the autoprop propagators
	otel.SetTextMapPropagator(autoprop.NewTextMapPropagator())

	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) { log.Error(err) }))
	otel.SetLogger(logrusr.New(log))

	return
}

// similar to "console", but writes into the debug log. The exporter is
// shut down by the tracer provider.
func newDebugExporter(context.Context) (trace.SpanExporter, error) {
	return stdouttrace.New(stdouttrace.WithWriter(writerFunc(func(p []byte) (int, error) {
		log.Debugf("Span: %s", p)
		return len(p), nil
	})))
}

type writerFunc func([]byte) (int, error)

func (wf writerFunc) Write(p []byte) (n int, err error) {
	return wf(p)
}
