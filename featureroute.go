package featureroute

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"go4.org/netipx"
	"golang.org/x/sync/errgroup"

	"github.com/zalando/featureroute/handlers/controller"
	"github.com/zalando/featureroute/handlers/page"
	"github.com/zalando/featureroute/logging"
	"github.com/zalando/featureroute/metrics"
	snet "github.com/zalando/featureroute/net"
	"github.com/zalando/featureroute/otel"
	"github.com/zalando/featureroute/predicates/builtin"
	"github.com/zalando/featureroute/routesfile"
	"github.com/zalando/featureroute/routing"
	"github.com/zalando/featureroute/toggle"
)

const (
	defaultAddress           = ":9090"
	defaultSourcePollTimeout = 3 * time.Second
	defaultShutdownTimeout   = 10 * time.Second
)

// Options to start the router.
type Options struct {

	// Network address that the router should listen on.
	Address string

	// Network address used for exposing the /metrics endpoint. Empty
	// disables the support listener.
	SupportListener string

	// Path of the TLS certificate and key files. When both set, the
	// router listens for TLS connections.
	CertPathTLS string
	KeyPathTLS  string

	// Route file containing the toggle routes. Optional.
	RoutesFile string

	// Polling interval of the route file.
	SourcePollTimeout time.Duration

	// CustomRoutes are registered before the routes of the route file. The
	// route file cannot use their names.
	CustomRoutes []routing.NamedRoute

	// CustomPredicates are available in the route file, in addition to
	// the built-in toggle predicates.
	CustomPredicates []routing.PredicateSpec

	// Root directory of the physical pages. Defaults to the working
	// directory.
	PagesRoot string

	// PageAuthorize checks the access to the physical pages of the page
	// handlers with access checking enabled.
	PageAuthorize func(r *http.Request, file string) bool

	// Controllers used by the controller handlers. Defaults to an empty
	// registry.
	Controllers *controller.Registry

	// Flag indicating to ignore trailing slashes in paths when routing.
	IgnoreTrailingSlash bool

	// Sets the X-Forwarded-* headers of the incoming requests, except
	// when the client address is in the excluded set.
	ForwardedHeaders             snet.ForwardedHeaders
	ForwardedHeadersExcludeCIDRs *netipx.IPSet

	// Metrics flavour and options.
	MetricsFlavours             metrics.Kind
	MetricsPrefix               string
	EnableRuntimeMetrics        bool
	EnableDebugGcMetrics        bool
	EnableServeRouteMetrics     bool
	EnableVariantMetrics        bool
	DisableMetricsCompatDefault bool
	MetricsUseExpDecaySample    bool
	HistogramMetricBuckets      []float64

	// Output file for the application log. Default is /dev/stderr.
	ApplicationLogOutput string

	// Prefix for the application log entries.
	ApplicationLogPrefix string

	// Level of the application log. Empty keeps the current level.
	ApplicationLogLevel string

	// Enables logs in JSON format.
	ApplicationLogJSONEnabled bool

	// Output file for the access log. Default is /dev/stderr.
	AccessLogOutput string

	// Disables the access log.
	AccessLogDisabled bool

	// Enables the access log in JSON format.
	AccessLogJSONEnabled bool

	// OpenTelemetry pipeline options. Nil disables the initialization of
	// the pipeline.
	OpenTelemetry *otel.Options

	// Server timeouts.
	ReadTimeoutServer       time.Duration
	ReadHeaderTimeoutServer time.Duration
	WriteTimeoutServer      time.Duration
	IdleTimeoutServer       time.Duration

	// Time to wait for the active requests on shutdown.
	ShutdownTimeout time.Duration
}

type router struct {
	options Options
	table   *routing.Table
	handler http.Handler
	support http.Handler
	metrics metrics.Metrics
	watch   *routesfile.WatchClient
	closers []io.Closer
}

func openLog(name string) (*os.File, error) {
	return os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
}

func (r *router) initLog() error {
	o := r.options
	lo := logging.Options{
		ApplicationLogPrefix:      o.ApplicationLogPrefix,
		ApplicationLogJSONEnabled: o.ApplicationLogJSONEnabled,
		AccessLogDisabled:         o.AccessLogDisabled,
		AccessLogJSONEnabled:      o.AccessLogJSONEnabled,
	}

	if o.ApplicationLogOutput != "" {
		f, err := openLog(o.ApplicationLogOutput)
		if err != nil {
			return fmt.Errorf("failed to open application log: %w", err)
		}

		r.closers = append(r.closers, f)
		lo.ApplicationLogOutput = f
	}

	if o.AccessLogOutput != "" && !o.AccessLogDisabled {
		f, err := openLog(o.AccessLogOutput)
		if err != nil {
			return fmt.Errorf("failed to open access log: %w", err)
		}

		r.closers = append(r.closers, f)
		lo.AccessLogOutput = f
	}

	logging.Init(lo)

	if o.ApplicationLogLevel != "" {
		level, err := log.ParseLevel(o.ApplicationLogLevel)
		if err != nil {
			return err
		}

		log.SetLevel(level)
	}

	return nil
}

func (r *router) initMetrics() {
	o := r.options
	r.metrics = metrics.NewDefault(metrics.Options{
		Format:                       o.MetricsFlavours,
		Prefix:                       o.MetricsPrefix,
		EnableRuntimeMetrics:         o.EnableRuntimeMetrics,
		EnableDebugGcMetrics:         o.EnableDebugGcMetrics,
		EnableServeRouteMetrics:      o.EnableServeRouteMetrics,
		EnableVariantMetrics:         o.EnableVariantMetrics,
		DisableCompatibilityDefaults: o.DisableMetricsCompatDefault,
		UseExpDecaySample:            o.MetricsUseExpDecaySample,
		HistogramBuckets:             o.HistogramMetricBuckets,
	})

	mux := http.NewServeMux()
	r.metrics.RegisterHandler("/metrics", mux)
	r.support = mux
}

func customNames(routes []routing.NamedRoute) []string {
	names := make([]string, 0, len(routes))
	for _, nr := range routes {
		names = append(names, nr.Name)
	}

	return names
}

func (r *router) initRoutes() error {
	o := r.options
	if err := r.table.Update(o.CustomRoutes, nil); err != nil {
		return err
	}

	if o.RoutesFile == "" {
		if len(o.CustomRoutes) == 0 {
			log.Warn("no routes specified")
		}

		return nil
	}

	predicates := builtin.Registry()
	predicates.Register(o.CustomPredicates...)

	root := o.PagesRoot
	if root == "" {
		root = "."
	}

	r.watch = routesfile.Watch(o.RoutesFile, routesfile.Options{
		Predicates: predicates,
		Builder: toggle.BuilderOptions{
			Pages: page.Options{
				Root:      os.DirFS(root),
				Authorize: o.PageAuthorize,
			},
			Controllers: o.Controllers,
		},
		Reserved: customNames(o.CustomRoutes),
	})

	defs, err := r.watch.LoadAll()
	if err != nil {
		r.watch.Close()
		r.watch = nil
		return err
	}

	if err := routesfile.Register(r.table, defs); err != nil {
		return err
	}

	log.Infof("route file %s: %d routes registered", o.RoutesFile, len(defs))
	return nil
}

func newRouter(o Options) (*router, error) {
	r := &router{options: o}
	if err := r.initLog(); err != nil {
		r.close()
		return nil, err
	}

	r.initMetrics()
	r.table = routing.NewTable(routing.TableOptions{
		IgnoreTrailingSlash: o.IgnoreTrailingSlash,
		Metrics:             r.metrics,
	})

	if err := r.initRoutes(); err != nil {
		r.close()
		return nil, err
	}

	var h http.Handler = r.table
	if o.ForwardedHeaders.Enabled() {
		h = &snet.ForwardedHeadersHandler{
			Headers: o.ForwardedHeaders,
			Exclude: o.ForwardedHeadersExcludeCIDRs,
			Handler: h,
		}
	}

	if !o.AccessLogDisabled {
		h = logging.NewHandler(h)
	}

	r.handler = h
	return r, nil
}

func (r *router) close() {
	if r.watch != nil {
		r.watch.Close()
	}

	if r.metrics != nil {
		r.metrics.Close()
	}

	for _, c := range r.closers {
		c.Close()
	}
}

func (r *router) newServer(addr string, h http.Handler) *http.Server {
	o := r.options
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       o.ReadTimeoutServer,
		ReadHeaderTimeout: o.ReadHeaderTimeoutServer,
		WriteTimeout:      o.WriteTimeoutServer,
		IdleTimeout:       o.IdleTimeoutServer,
	}
}

func listenAndServe(s *http.Server, certFile, keyFile string) error {
	var err error
	if certFile != "" && keyFile != "" {
		err = s.ListenAndServeTLS(certFile, keyFile)
	} else {
		err = s.ListenAndServe()
	}

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

// RunContext starts the router, and serves the requests until the context
// is done or one of the listeners fails. On shutdown, it waits for the
// active requests up to the shutdown timeout.
func RunContext(ctx context.Context, o Options) error {
	if o.Address == "" {
		o.Address = defaultAddress
	}

	if o.SourcePollTimeout <= 0 {
		o.SourcePollTimeout = defaultSourcePollTimeout
	}

	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = defaultShutdownTimeout
	}

	if o.OpenTelemetry != nil {
		shutdown, err := otel.Init(ctx, o.OpenTelemetry)
		if err != nil {
			return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
		}

		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.Errorf("failed to shut down OpenTelemetry: %v", err)
			}
		}()
	}

	r, err := newRouter(o)
	if err != nil {
		return err
	}

	defer r.close()

	g, ctx := errgroup.WithContext(ctx)
	servers := []*http.Server{r.newServer(o.Address, r.handler)}
	g.Go(func() error {
		log.Infof("listening on %v", o.Address)
		return listenAndServe(servers[0], o.CertPathTLS, o.KeyPathTLS)
	})

	if o.SupportListener != "" {
		s := r.newServer(o.SupportListener, r.support)
		servers = append(servers, s)
		g.Go(func() error {
			log.Infof("support listener on %v", o.SupportListener)
			return listenAndServe(s, "", "")
		})
	}

	if r.watch != nil {
		g.Go(func() error {
			r.watch.Follow(ctx, r.table, o.SourcePollTimeout)
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), o.ShutdownTimeout)
		defer cancel()

		var err error
		for _, s := range servers {
			err = errors.Join(err, s.Shutdown(sctx))
		}

		return err
	})

	return g.Wait()
}

// Run starts the router, and serves the requests until receiving SIGTERM
// or SIGINT.
func Run(o Options) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, os.Interrupt)
	defer stop()
	return RunContext(ctx, o)
}
