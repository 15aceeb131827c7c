package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vidfold"

// Metrics holds the collectors for one App. Each App owns its own registry.
type Metrics struct {
	Registry *prometheus.Registry

	Submissions     *prometheus.CounterVec
	TriggerOutcomes *prometheus.CounterVec
	TriggerDuration prometheus.Histogram
	Reconciles      *prometheus.CounterVec
	StatusEvents    *prometheus.CounterVec
	Searches        *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Video submissions by result.",
		}, []string{"result"}),
		TriggerOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "processing_triggers_total",
			Help:      "Processing trigger outcomes.",
		}, []string{"outcome"}),
		TriggerDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "processing_trigger_duration_seconds",
			Help:      "Latency of processing trigger calls.",
			Buckets:   prometheus.DefBuckets,
		}),
		Reconciles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciles_total",
			Help:      "Status reconciliations by result.",
		}, []string{"result"}),
		StatusEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_events_total",
			Help:      "Processor status reports by source and result.",
		}, []string{"source", "result"}),
		Searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Search requests by backend and result.",
		}, []string{"backend", "result"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Submissions,
		m.TriggerOutcomes,
		m.TriggerDuration,
		m.Reconciles,
		m.StatusEvents,
		m.Searches,
		m.HTTPDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Middleware records request latency by route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// The helpers below accept a nil receiver so components can run without metrics.

func (m *Metrics) Submission(result string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(result).Inc()
}

func (m *Metrics) Trigger(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.TriggerOutcomes.WithLabelValues(outcome).Inc()
	m.TriggerDuration.Observe(took.Seconds())
}

func (m *Metrics) Reconcile(result string) {
	if m == nil {
		return
	}
	m.Reconciles.WithLabelValues(result).Inc()
}

func (m *Metrics) StatusEvent(source, result string) {
	if m == nil {
		return
	}
	m.StatusEvents.WithLabelValues(source, result).Inc()
}

func (m *Metrics) Search(backend, result string) {
	if m == nil {
		return
	}
	m.Searches.WithLabelValues(backend, result).Inc()
}
