package statsig

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/statsig-io/go-core/internal/eventlogger"
	"github.com/statsig-io/go-core/internal/observability"
	"github.com/statsig-io/go-core/internal/specsadapter"
)

// Options holds every StatsigOptions field enumerated in spec.md §6.
// Zero values fall back to the documented defaults in New.
type Options struct {
	Environment   string
	SpecsURL      string
	LogEventURL   string
	SpecsSyncInterval         time.Duration
	EventLoggingMaxQueueSize  int
	EventLoggingFlushInterval time.Duration
	InitTimeout               time.Duration
	DisableAllLogging         bool
	DisableNetwork            bool

	// SpecsAdapter overrides the default HTTPPollAdapter entirely (e.g.
	// to bootstrap from a local file or a DataStore-backed adapter).
	SpecsAdapter specsadapter.SpecsAdapter
	// EventsClient overrides the default HTTP events client.
	EventsClient eventlogger.EventsClient
	// ObservabilityRegisterer registers the observability client's
	// metrics; nil uses prometheus.NewRegistry() (not the global
	// default registerer, so tests never collide).
	ObservabilityRegisterer prometheus.Registerer

	// BootstrapValues, when non-empty, seeds a BootstrapAdapter ahead of
	// whatever SpecsAdapter/network adapter is configured, per spec.md
	// §4.4's precedence rule (bootstrap seeded first).
	BootstrapValues []byte

	SDKVersion string
}

// Option configures Options at construction.
type Option func(*Options)

// WithEnvironment sets the environment tier used by environment_field
// conditions.
func WithEnvironment(env string) Option { return func(o *Options) { o.Environment = env } }

// WithSpecsURL overrides the specs-fetch base URL.
func WithSpecsURL(url string) Option { return func(o *Options) { o.SpecsURL = url } }

// WithLogEventURL overrides the events-ingestion base URL.
func WithLogEventURL(url string) Option { return func(o *Options) { o.LogEventURL = url } }

// WithSpecsSyncInterval overrides the HTTP poll cadence (default 10s).
func WithSpecsSyncInterval(d time.Duration) Option {
	return func(o *Options) { o.SpecsSyncInterval = d }
}

// WithEventLoggingMaxQueueSize overrides the event queue's bound (default 1000).
func WithEventLoggingMaxQueueSize(n int) Option {
	return func(o *Options) { o.EventLoggingMaxQueueSize = n }
}

// WithEventLoggingFlushInterval overrides the periodic flush cadence
// (default 60s).
func WithEventLoggingFlushInterval(d time.Duration) Option {
	return func(o *Options) { o.EventLoggingFlushInterval = d }
}

// WithInitTimeout bounds how long Initialize waits for the first specs
// update (default 3s).
func WithInitTimeout(d time.Duration) Option { return func(o *Options) { o.InitTimeout = d } }

// WithDisableAllLogging turns LogEvent/exposure logging into a no-op.
func WithDisableAllLogging() Option { return func(o *Options) { o.DisableAllLogging = true } }

// WithDisableNetwork skips constructing any network-backed adapter;
// BootstrapValues (or a custom SpecsAdapter) becomes the only source.
func WithDisableNetwork() Option { return func(o *Options) { o.DisableNetwork = true } }

// WithSpecsAdapter overrides the default adapter selection entirely.
func WithSpecsAdapter(a specsadapter.SpecsAdapter) Option {
	return func(o *Options) { o.SpecsAdapter = a }
}

// WithEventsClient overrides the default HTTP events client.
func WithEventsClient(c eventlogger.EventsClient) Option {
	return func(o *Options) { o.EventsClient = c }
}

// WithObservabilityRegisterer sets the prometheus.Registerer the
// observability client's metrics are registered against.
func WithObservabilityRegisterer(reg prometheus.Registerer) Option {
	return func(o *Options) { o.ObservabilityRegisterer = reg }
}

// WithBootstrapValues seeds a BootstrapAdapter from a raw specs payload,
// pushed ahead of any network adapter per spec.md §4.4's precedence rule.
func WithBootstrapValues(data []byte) Option {
	return func(o *Options) { o.BootstrapValues = data }
}

func newOptions(opts ...Option) Options {
	o := Options{
		SpecsURL:                  "https://statsigapi.net/v1/download_config_specs",
		LogEventURL:               "https://statsigapi.net/v1/log_event",
		SpecsSyncInterval:         10 * time.Second,
		EventLoggingMaxQueueSize:  1000,
		EventLoggingFlushInterval: 60 * time.Second,
		InitTimeout:               3 * time.Second,
		SDKVersion:                "0.1.0",
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o Options) observabilityClient() *observability.Client {
	reg := o.ObservabilityRegisterer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return observability.New(reg)
}
