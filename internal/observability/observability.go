// Package observability wraps prometheus/client_golang counters and
// gauges behind the narrow IObservabilityClient-shaped interface spec.md
// §6 names as an optional `observability_client` StatsigOptions field
// (`observability_client_adapter` in the Rust lib.rs this was ported from).
// A nil Client is always safe to call — every method degrades to a no-op
// so the EventLogger, the specs adapters and the Statsig facade never
// branch on whether one was configured.
package observability

import "github.com/prometheus/client_golang/prometheus"

// Client records the side-effect counters and gauges spec.md's component
// designs name: event-queue drops, dedup drops, sync failures, adapter
// retries, and the active-task gauge.
type Client struct {
	eventsDropped   *prometheus.CounterVec
	dedupDropped    prometheus.Counter
	syncFailures    *prometheus.CounterVec
	adapterRetries  *prometheus.CounterVec
	activeTasks     prometheus.Gauge
	eventsForwarded prometheus.Counter
}

// New builds a Client and registers its metrics with reg. Pass
// prometheus.NewRegistry() for an isolated registry (tests), or
// prometheus.DefaultRegisterer to expose metrics on the process-wide
// /metrics endpoint.
func New(reg prometheus.Registerer) *Client {
	c := &Client{
		eventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "statsig_events_dropped_total",
			Help: "Exposure/custom events dropped because the queue was full.",
		}, []string{"reason"}),
		dedupDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "statsig_events_deduped_total",
			Help: "Exposures suppressed because an identical one was logged within the dedup TTL.",
		}),
		syncFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "statsig_specs_sync_failures_total",
			Help: "Failed attempts to fetch or apply a specs update, by adapter.",
		}, []string{"adapter"}),
		adapterRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "statsig_adapter_retries_total",
			Help: "Retry attempts made by a specs adapter, by adapter.",
		}, []string{"adapter"}),
		activeTasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "statsig_runtime_active_tasks",
			Help: "Number of background tasks currently registered with the runtime supervisor.",
		}),
		eventsForwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "statsig_events_forwarded_total",
			Help: "Events successfully flushed to the ingestion endpoint.",
		}),
	}

	if reg != nil {
		reg.MustRegister(c.eventsDropped, c.dedupDropped, c.syncFailures, c.adapterRetries, c.activeTasks, c.eventsForwarded)
	}
	return c
}

// EventDropped increments the drop counter for reason (e.g. "queue_full").
func (c *Client) EventDropped(reason string) {
	if c == nil {
		return
	}
	c.eventsDropped.WithLabelValues(reason).Inc()
}

// EventDeduped increments the dedup-suppression counter.
func (c *Client) EventDeduped() {
	if c == nil {
		return
	}
	c.dedupDropped.Inc()
}

// EventsForwarded increments the successfully-flushed counter by n.
func (c *Client) EventsForwarded(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.eventsForwarded.Add(float64(n))
}

// SyncFailure increments the sync-failure counter for adapter.
func (c *Client) SyncFailure(adapter string) {
	if c == nil {
		return
	}
	c.syncFailures.WithLabelValues(adapter).Inc()
}

// AdapterRetry increments the retry counter for adapter.
func (c *Client) AdapterRetry(adapter string) {
	if c == nil {
		return
	}
	c.adapterRetries.WithLabelValues(adapter).Inc()
}

// SetActiveTasks reports the supervisor's current task count.
func (c *Client) SetActiveTasks(n int) {
	if c == nil {
		return
	}
	c.activeTasks.Set(float64(n))
}
