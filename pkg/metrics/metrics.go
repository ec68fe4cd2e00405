package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/loom/pkg/fiber"
	"github.com/vango-dev/loom/pkg/vdom"
)

// Config configures a Collector.
type Config struct {
	// Namespace is the metrics namespace (default: "loom").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for commit duration.
	// Default: DefaultBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// DefaultBuckets suits commit phases, which are usually well under a frame.
var DefaultBuckets = []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1}

// Option configures a Collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the commit duration histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "loom",
		Buckets:   DefaultBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Collector records engine and session metrics. It is safe for concurrent
// use.
type Collector struct {
	registry prometheus.Registerer

	units          prometheus.Counter
	yields         prometheus.Counter
	commits        prometheus.Counter
	abandoned      prometheus.Counter
	mutations      *prometheus.CounterVec
	commitDuration prometheus.Histogram
	activeSessions prometheus.Gauge
	events         *prometheus.CounterVec
}

var _ fiber.Observer = (*Collector)(nil)

// New creates a Collector and registers its metrics. It panics if the
// metrics are already registered with the registry, like promauto.
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}
	if len(config.Buckets) == 0 {
		config.Buckets = DefaultBuckets
	}
	factory := promauto.With(config.Registry)

	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		})
	}

	return &Collector{
		registry:  config.Registry,
		units:     counter("units_total", "Total number of units of work performed"),
		yields:    counter("yields_total", "Total number of work loops that yielded to the host"),
		commits:   counter("commits_total", "Total number of committed generations"),
		abandoned: counter("abandoned_total", "Total number of work-in-progress trees abandoned before commit"),

		mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "mutations_total",
			Help:        "Total number of surface mutations by op",
			ConstLabels: config.ConstLabels,
		}, []string{"op"}),

		commitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "commit_duration_seconds",
			Help:        "Commit phase duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_sessions",
			Help:        "Number of open live sessions",
			ConstLabels: config.ConstLabels,
		}),

		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "events_total",
			Help:        "Total number of client events by status",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),
	}
}

// UnitStarted implements fiber.Observer.
func (c *Collector) UnitStarted(fiber.Handle, vdom.Type) {
	c.units.Inc()
}

// Yielded implements fiber.Observer.
func (c *Collector) Yielded() {
	c.yields.Inc()
}

// Committed implements fiber.Observer.
func (c *Collector) Committed(stats fiber.CommitStats) {
	c.commits.Inc()
	c.mutations.WithLabelValues("placement").Add(float64(stats.Placements))
	c.mutations.WithLabelValues("update").Add(float64(stats.Updates))
	c.mutations.WithLabelValues("deletion").Add(float64(stats.Deletions))
	c.commitDuration.Observe(stats.Duration.Seconds())
}

// Abandoned implements fiber.Observer.
func (c *Collector) Abandoned() {
	c.abandoned.Inc()
}

// SessionOpened records a new live session.
func (c *Collector) SessionOpened() {
	c.activeSessions.Inc()
}

// SessionClosed records the end of a live session.
func (c *Collector) SessionClosed() {
	c.activeSessions.Dec()
}

// EventHandled records a client event. status is "ok" or an error class
// such as "no_listener" or "panic".
func (c *Collector) EventHandled(status string) {
	c.events.WithLabelValues(status).Inc()
}

// Handler serves the metrics of the Collector's registry. The default
// registry is served when the registry cannot be gathered from.
func (c *Collector) Handler() http.Handler {
	if g, ok := c.registry.(prometheus.Gatherer); ok {
		return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}
