// Package metrics exposes the bridge's Prometheus collectors: HTTP request
// counts and latency, queue depth, and job outcomes per action.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/cadbridge/internal/wire"
)

const namespace = "cadbridge"

// OutcomeOK labels a job that committed.
const OutcomeOK = "ok"

// Metrics holds every collector on its own registry, so several bridges
// (and tests) can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	queueDepth      prometheus.Gauge
	jobsQueued      *prometheus.CounterVec
	jobsTotal       *prometheus.CounterVec
	jobDuration     *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry. withRuntime adds the
// Go runtime and process collectors.
func New(withRuntime bool) *Metrics {
	reg := prometheus.NewRegistry()
	if withRuntime {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "status"},
		),
		requestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		queueDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Jobs waiting for the mutation goroutine",
		}),
		jobsQueued: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_queued_total",
				Help:      "Jobs accepted into the queue",
			},
			[]string{"action"},
		),
		jobsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_total",
				Help:      "Jobs executed, by action and outcome",
			},
			[]string{"action", "outcome"},
		),
		jobDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "job_duration_seconds",
				Help:      "Time a job spent inside its transaction",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"action"},
		),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// JobQueued records an accepted job.
func (m *Metrics) JobQueued(action string, depth int) {
	m.jobsQueued.WithLabelValues(strings.ToLower(action)).Inc()
	m.queueDepth.Set(float64(depth))
}

// JobFinished records a job outcome. An empty kind means success.
func (m *Metrics) JobFinished(action string, kind wire.Kind, elapsed time.Duration, depth int) {
	action = strings.ToLower(action)
	outcome := OutcomeOK
	if kind != "" {
		outcome = string(kind)
	}
	m.jobsTotal.WithLabelValues(action, outcome).Inc()
	m.jobDuration.WithLabelValues(action).Observe(elapsed.Seconds())
	m.queueDepth.Set(float64(depth))
}

// Middleware records HTTP request metrics.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		m.requestsTotal.WithLabelValues(c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method).Observe(duration.Seconds())
	}
}
