package config

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"go4.org/netipx"
	"gopkg.in/yaml.v2"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/zalando/featureroute"
	"github.com/zalando/featureroute/metrics"
	snet "github.com/zalando/featureroute/net"
	"github.com/zalando/featureroute/otel"
)

type Config struct {
	ConfigFile string
	Flags      *flag.FlagSet

	// generic:
	Address             string `yaml:"address"`
	SupportListener     string `yaml:"support-listener"`
	CertPathTLS         string `yaml:"tls-cert"`
	KeyPathTLS          string `yaml:"tls-key"`
	PrintVersion        bool   `yaml:"version"`
	IgnoreTrailingSlash bool   `yaml:"ignore-trailing-slash"`

	// routes:
	RoutesFile        string `yaml:"routes-file"`
	SourcePollTimeout int64  `yaml:"source-poll-timeout"`
	PagesRoot         string `yaml:"pages-root"`

	// forwarded headers:
	ForwardedHeadersList            *listFlag             `yaml:"forwarded-headers"`
	ForwardedHeaders                snet.ForwardedHeaders `yaml:"-"`
	ForwardedHeadersExcludeCIDRList *listFlag             `yaml:"forwarded-headers-exclude-cidrs"`
	ForwardedHeadersExcludeCIDRs    *netipx.IPSet         `yaml:"-"`

	// logging, metrics, tracing:
	MetricsFlavour               *listFlag `yaml:"metrics-flavour"`
	MetricsPrefix                string    `yaml:"metrics-prefix"`
	RuntimeMetrics               bool      `yaml:"runtime-metrics"`
	DebugGcMetrics               bool      `yaml:"debug-gc-metrics"`
	ServeRouteMetrics            bool      `yaml:"serve-route-metrics"`
	VariantMetrics               bool      `yaml:"variant-metrics"`
	DisableMetricsCompat         bool      `yaml:"disable-metrics-compat"`
	MetricsUseExpDecaySample     bool      `yaml:"metrics-exp-decay-sample"`
	HistogramMetricBucketsString string    `yaml:"histogram-metric-buckets"`
	HistogramMetricBuckets       []float64 `yaml:"-"`
	ApplicationLog               string    `yaml:"application-log"`
	ApplicationLogLevel          log.Level `yaml:"-"`
	ApplicationLogLevelString    string    `yaml:"application-log-level"`
	ApplicationLogPrefix         string    `yaml:"application-log-prefix"`
	ApplicationLogJSONEnabled    bool      `yaml:"application-log-json-enabled"`
	AccessLog                    string    `yaml:"access-log"`
	AccessLogDisabled            bool      `yaml:"access-log-disabled"`
	AccessLogJSONEnabled         bool      `yaml:"access-log-json-enabled"`

	OpenTelemetry     *otel.Options           `yaml:"-"`
	OpenTelemetryFlag *yamlFlag[otel.Options] `yaml:"opentelemetry"`

	// server:
	ReadTimeoutServer       time.Duration `yaml:"read-timeout-server"`
	ReadHeaderTimeoutServer time.Duration `yaml:"read-header-timeout-server"`
	WriteTimeoutServer      time.Duration `yaml:"write-timeout-server"`
	IdleTimeoutServer       time.Duration `yaml:"idle-timeout-server"`
	ShutdownTimeout         time.Duration `yaml:"shutdown-timeout"`
}

const (
	defaultApplicationLogPrefix = "[APP]"
	defaultApplicationLogLevel  = "INFO"
	defaultSourcePollTimeout    = int64(3000)

	forwardedHeadersUsage = "comma separated list of headers to add to the incoming request before routing\n" +
		"X-Forwarded-For appends the client IP, X-Forwarded-For=prepend prepends it,\n" +
		"X-Forwarded-Proto sets http or https based on the connection"
)

func NewConfig() *Config {
	cfg := new(Config)
	cfg.MetricsFlavour = commaListFlag("codahale", "prometheus")
	cfg.ForwardedHeadersList = commaListFlag()
	cfg.ForwardedHeadersExcludeCIDRList = commaListFlag()
	cfg.OpenTelemetryFlag = newYamlFlag(&cfg.OpenTelemetry)

	flag := flag.NewFlagSet("", flag.ExitOnError)
	flag.StringVar(&cfg.ConfigFile, "config-file", "", "if provided the flags will be loaded/overwritten by the values on the file (yaml)")

	// generic:
	flag.StringVar(&cfg.Address, "address", ":9090", "network address that the router should listen on")
	flag.StringVar(&cfg.SupportListener, "support-listener", ":9911", "network address used for exposing the /metrics endpoint. An empty value disables support endpoint.")
	flag.StringVar(&cfg.CertPathTLS, "tls-cert", "", "the path on the local filesystem to the certificate file (including any intermediates)")
	flag.StringVar(&cfg.KeyPathTLS, "tls-key", "", "the path on the local filesystem to the certificate's private key file")
	flag.BoolVar(&cfg.PrintVersion, "version", false, "print the version")
	flag.BoolVar(&cfg.IgnoreTrailingSlash, "ignore-trailing-slash", false, "flag indicating to ignore trailing slashes in paths when routing")

	// routes:
	flag.StringVar(&cfg.RoutesFile, "routes-file", "", "file containing the toggle routes in YAML")
	flag.Int64Var(&cfg.SourcePollTimeout, "source-poll-timeout", defaultSourcePollTimeout, "polling timeout of the route file in milliseconds")
	flag.StringVar(&cfg.PagesRoot, "pages-root", "", "root directory of the physical pages, defaults to the working directory")

	// forwarded headers:
	flag.Var(cfg.ForwardedHeadersList, "forwarded-headers", forwardedHeadersUsage)
	flag.Var(cfg.ForwardedHeadersExcludeCIDRList, "forwarded-headers-exclude-cidrs", "disables addition of forwarded headers for the remote host IPs from the comma separated list of CIDRs")

	// logging, metrics, tracing:
	flag.Var(cfg.MetricsFlavour, "metrics-flavour", "Metrics flavour is used to change the exposed metrics format. Supported metric formats: 'codahale' and 'prometheus', you can select both of them")
	flag.StringVar(&cfg.MetricsPrefix, "metrics-prefix", "featureroute.", "allows setting a custom path prefix for metrics export")
	flag.BoolVar(&cfg.RuntimeMetrics, "runtime-metrics", true, "enables reporting the Go runtime statistics")
	flag.BoolVar(&cfg.DebugGcMetrics, "debug-gc-metrics", false, "enables reporting of the Go garbage collector statistics exported in debug.GCStats")
	flag.BoolVar(&cfg.ServeRouteMetrics, "serve-route-metrics", false, "enables reporting the time of serving requests per route")
	flag.BoolVar(&cfg.VariantMetrics, "variant-metrics", false, "enables counting the selected variants per route")
	flag.BoolVar(&cfg.DisableMetricsCompat, "disable-metrics-compat", false, "disables the default true value for serve-route-metrics and variant-metrics")
	flag.BoolVar(&cfg.MetricsUseExpDecaySample, "metrics-exp-decay-sample", false, "use exponentially-decaying sample in timers")
	flag.StringVar(&cfg.HistogramMetricBucketsString, "histogram-metric-buckets", "", "use custom buckets for prometheus histograms, must be a comma-separated list of numbers")
	flag.StringVar(&cfg.ApplicationLog, "application-log", "", "output file for the application log. When not set, /dev/stderr is used")
	flag.StringVar(&cfg.ApplicationLogLevelString, "application-log-level", defaultApplicationLogLevel, "log level for application logs, possible values: PANIC, FATAL, ERROR, WARN, INFO, DEBUG")
	flag.StringVar(&cfg.ApplicationLogPrefix, "application-log-prefix", defaultApplicationLogPrefix, "prefix for each log entry")
	flag.BoolVar(&cfg.ApplicationLogJSONEnabled, "application-log-json-enabled", false, "when this flag is set, log in JSON format is used")
	flag.StringVar(&cfg.AccessLog, "access-log", "", "output file for the access log, When not set, /dev/stderr is used")
	flag.BoolVar(&cfg.AccessLogDisabled, "access-log-disabled", false, "when this flag is set, no access log is printed")
	flag.BoolVar(&cfg.AccessLogJSONEnabled, "access-log-json-enabled", false, "when this flag is set, log in JSON format is used")
	flag.Var(cfg.OpenTelemetryFlag, "opentelemetry", "enables the OpenTelemetry pipeline with the options in YAML, e.g. {serviceName: careers}, configured further by the OTEL_* environment variables")

	// server:
	flag.DurationVar(&cfg.ReadTimeoutServer, "read-timeout-server", 5*time.Minute, "set ReadTimeout for http server connections")
	flag.DurationVar(&cfg.ReadHeaderTimeoutServer, "read-header-timeout-server", 60*time.Second, "set ReadHeaderTimeout for http server connections")
	flag.DurationVar(&cfg.WriteTimeoutServer, "write-timeout-server", 60*time.Second, "set WriteTimeout for http server connections")
	flag.DurationVar(&cfg.IdleTimeoutServer, "idle-timeout-server", 60*time.Second, "set IdleTimeout for http server connections")
	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", 10*time.Second, "time to wait for the active requests on shutdown")

	cfg.Flags = flag
	return cfg
}

func validate(c *Config) error {
	_, err := log.ParseLevel(c.ApplicationLogLevelString)
	if err != nil {
		return err
	}

	if c.SourcePollTimeout <= 0 {
		return fmt.Errorf("invalid source-poll-timeout: %d", c.SourcePollTimeout)
	}

	_, err = c.parseHistogramBuckets()
	if err != nil {
		return err
	}

	return c.parseForwardedHeaders()
}

func (c *Config) Parse() error {
	return c.ParseArgs(os.Args[0], os.Args[1:])
}

func (c *Config) ParseArgs(progname string, args []string) error {
	c.Flags.Init(progname, flag.ExitOnError)
	err := c.Flags.Parse(args)
	if err != nil {
		return err
	}

	// check if arguments were correctly parsed.
	if len(c.Flags.Args()) != 0 {
		return fmt.Errorf("invalid arguments: %s", c.Flags.Args())
	}

	if c.ConfigFile != "" {
		yamlFile, err := os.ReadFile(c.ConfigFile)
		if err != nil {
			return fmt.Errorf("invalid config file: %w", err)
		}

		err = yaml.UnmarshalStrict(yamlFile, c)
		if err != nil {
			return fmt.Errorf("unmarshalling config file error: %w", err)
		}

		err = c.Flags.Parse(args)
		if err != nil {
			return err
		}
	}

	if err := validate(c); err != nil {
		return err
	}

	c.ApplicationLogLevel, _ = log.ParseLevel(c.ApplicationLogLevelString)
	c.HistogramMetricBuckets, _ = c.parseHistogramBuckets()
	return nil
}

func (c *Config) ToOptions() featureroute.Options {
	return featureroute.Options{
		// generic:
		Address:             c.Address,
		SupportListener:     c.SupportListener,
		CertPathTLS:         c.CertPathTLS,
		KeyPathTLS:          c.KeyPathTLS,
		IgnoreTrailingSlash: c.IgnoreTrailingSlash,

		// routes:
		RoutesFile:        c.RoutesFile,
		SourcePollTimeout: time.Duration(c.SourcePollTimeout) * time.Millisecond,
		PagesRoot:         c.PagesRoot,

		// forwarded headers:
		ForwardedHeaders:             c.ForwardedHeaders,
		ForwardedHeadersExcludeCIDRs: c.ForwardedHeadersExcludeCIDRs,

		// metrics:
		MetricsFlavours:             c.metricsFlavours(),
		MetricsPrefix:               c.MetricsPrefix,
		EnableRuntimeMetrics:        c.RuntimeMetrics,
		EnableDebugGcMetrics:        c.DebugGcMetrics,
		EnableServeRouteMetrics:     c.ServeRouteMetrics,
		EnableVariantMetrics:        c.VariantMetrics,
		DisableMetricsCompatDefault: c.DisableMetricsCompat,
		MetricsUseExpDecaySample:    c.MetricsUseExpDecaySample,
		HistogramMetricBuckets:      c.HistogramMetricBuckets,

		// logging:
		ApplicationLogOutput:      c.ApplicationLog,
		ApplicationLogPrefix:      c.ApplicationLogPrefix,
		ApplicationLogLevel:       c.ApplicationLogLevel.String(),
		ApplicationLogJSONEnabled: c.ApplicationLogJSONEnabled,
		AccessLogOutput:           c.AccessLog,
		AccessLogDisabled:         c.AccessLogDisabled,
		AccessLogJSONEnabled:      c.AccessLogJSONEnabled,

		// tracing:
		OpenTelemetry: c.OpenTelemetry,

		// server:
		ReadTimeoutServer:       c.ReadTimeoutServer,
		ReadHeaderTimeoutServer: c.ReadHeaderTimeoutServer,
		WriteTimeoutServer:      c.WriteTimeoutServer,
		IdleTimeoutServer:       c.IdleTimeoutServer,
		ShutdownTimeout:         c.ShutdownTimeout,
	}
}

func (c *Config) metricsFlavours() metrics.Kind {
	var kind metrics.Kind
	for _, f := range c.MetricsFlavour.values {
		kind |= metrics.ParseMetricsKind(f)
	}

	if kind == metrics.UnknownKind {
		return metrics.CodaHaleKind
	}

	return kind
}

func (c *Config) parseHistogramBuckets() ([]float64, error) {
	if c.HistogramMetricBucketsString == "" {
		return prometheus.DefBuckets, nil
	}

	var result []float64
	thresholds := strings.Split(c.HistogramMetricBucketsString, ",")
	for _, v := range thresholds {
		bucket, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("unable to parse histogram-metric-buckets: %w", err)
		}

		result = append(result, bucket)
	}

	sort.Float64s(result)
	return result, nil
}

func (c *Config) parseForwardedHeaders() error {
	c.ForwardedHeaders = snet.ForwardedHeaders{}
	for _, header := range c.ForwardedHeadersList.values {
		switch header {
		case "X-Forwarded-For":
			c.ForwardedHeaders.For = true
		case "X-Forwarded-For=prepend":
			c.ForwardedHeaders.PrependFor = true
		case "X-Forwarded-Proto":
			c.ForwardedHeaders.Proto = true
		default:
			return fmt.Errorf("invalid forwarded header: %s", header)
		}
	}

	cidrs, err := snet.ParseIPCIDRs(c.ForwardedHeadersExcludeCIDRList.values)
	if err != nil {
		return fmt.Errorf("invalid forwarded headers exclude CIDRs: %w", err)
	}

	c.ForwardedHeadersExcludeCIDRs = cidrs
	return nil
}
