// Package observability holds the Prometheus instruments of the service.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	registry *prometheus.Registry

	MessagesProcessed   *prometheus.CounterVec
	QueueDepth          prometheus.Gauge
	RateLimitRejections *prometheus.CounterVec
	RetryAttempts       *prometheus.CounterVec
	CacheHits           prometheus.Counter
	ActionsMatched      *prometheus.CounterVec
	PublishLatency      *prometheus.HistogramVec
	ScheduledTaskRuns   *prometheus.CounterVec
}

// NewMetrics registers every instrument on a fresh registry, together with
// the Go runtime and process collectors.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		MessagesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_processed_total",
			Help:      "Messages drained from the queue by platform and outcome.",
		}, []string{"platform", "outcome"}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Messages waiting in the processor queue.",
		}),
		RateLimitRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_rejections_total",
			Help:      "Attempts delayed by the rate limiter, by resource.",
		}, []string{"resource"}),
		RetryAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retry_attempts_total",
			Help:      "Failed attempts that were retried or exhausted, by resource and result.",
		}, []string{"resource", "result"}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "response_cache_hits_total",
			Help:      "Messages answered from the response cache.",
		}),
		ActionsMatched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_matched_total",
			Help:      "Dispatched actions by name.",
		}, []string{"action"}),
		PublishLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "publish_latency_ms",
			Help:      "Latency of reply publication in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"platform"}),
		ScheduledTaskRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduled_task_runs_total",
			Help:      "Scheduled maintenance runs by task and result.",
		}, []string{"task", "result"}),
	}
}

// ObservePublishLatency records how long a publish took.
func (m *Metrics) ObservePublishLatency(platform string, d time.Duration) {
	m.PublishLatency.WithLabelValues(platform).Observe(float64(d.Milliseconds()))
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
