package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config holds configuration for metrics collection.
type Config struct {
	// Enabled turns collection and the /metrics endpoint on.
	Enabled bool `mapstructure:"enabled" default:"true"`
	// Namespace prefixes every metric name.
	Namespace string `mapstructure:"namespace" default:"resource_exporter"`
}

// Run outcomes.
const (
	OutcomeComplete  = "complete"
	OutcomeContinued = "continued"
	OutcomePartial   = "partial"
)

// Metrics records pipeline activity. A nil *Metrics or one built with
// Enabled=false records nothing.
type Metrics struct {
	registry *prometheus.Registry

	runs        *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	items       *prometheus.CounterVec
	retries     *prometheus.CounterVec
	cache       *prometheus.CounterVec
	pruned      *prometheus.CounterVec
}

// New creates a metrics collector on a private registry.
func New(cfg Config) *Metrics {
	if !cfg.Enabled {
		return &Metrics{}
	}
	ns := cfg.Namespace

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "runs_total",
			Help:      "Ingestion runs by kind and outcome",
		}, []string{"kind", "outcome"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "run_duration_seconds",
			Help:      "Duration of one ingestion run",
			Buckets:   []float64{1, 5, 15, 30, 60, 180, 300, 600, 900},
		}, []string{"kind"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "items_total",
			Help:      "Processed resource items by kind, action and result",
		}, []string{"kind", "action", "result"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "retries_total",
			Help:      "Caught failures that were retried, by operation",
		}, []string{"operation"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "cache_lookups_total",
			Help:      "Bulk cache lookups by kind and result",
		}, []string{"kind", "result"}),
		pruned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "pruned_entities_total",
			Help:      "Catalog entities removed by pruning, by blueprint",
		}, []string{"blueprint"}),
	}

	m.registry.MustRegister(
		m.runs, m.runDuration, m.items, m.retries, m.cache, m.pruned,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) enabled() bool {
	return m != nil && m.registry != nil
}

// Registry returns the underlying registry, or nil when disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	if !m.enabled() {
		return nil
	}
	return m.registry
}

// ObserveRun records the end of one run.
func (m *Metrics) ObserveRun(kind, outcome string, d time.Duration) {
	if !m.enabled() {
		return
	}
	m.runs.WithLabelValues(kind, outcome).Inc()
	m.runDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// ObserveItem records one processed item.
func (m *Metrics) ObserveItem(kind, action string, err error) {
	if !m.enabled() {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.items.WithLabelValues(kind, action, result).Inc()
}

// ObserveCache records a bulk cache lookup.
func (m *Metrics) ObserveCache(kind string, hit bool) {
	if !m.enabled() {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cache.WithLabelValues(kind, result).Inc()
}

// ObservePruned records entities removed from a blueprint.
func (m *Metrics) ObservePruned(blueprint string, n int) {
	if !m.enabled() {
		return
	}
	m.pruned.WithLabelValues(blueprint).Add(float64(n))
}

// RetryHook returns a function suitable for retry.Executor.OnRetry.
func (m *Metrics) RetryHook(operation string) func(int, error, time.Duration) {
	return func(int, error, time.Duration) {
		if !m.enabled() {
			return
		}
		m.retries.WithLabelValues(operation).Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if !m.enabled() {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
