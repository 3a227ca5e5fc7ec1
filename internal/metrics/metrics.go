package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission outcomes
const (
	OutcomeCreated   = "created"
	OutcomeDuplicate = "duplicate"
	OutcomeInFlight  = "in_flight"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// Collector holds the service's Prometheus metrics on its own registry.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	Submissions         *prometheus.CounterVec
	ReportDuration      *prometheus.HistogramVec
	ReportCacheHits     *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	FeedSubscribers     prometheus.Gauge
}

// New creates a collector under namespace
func New(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Survey submissions by outcome",
		}, []string{"outcome"}),
		ReportDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_duration_seconds",
			Help:      "Duration of report aggregations in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"report"}),
		ReportCacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_cache_hits_total",
			Help:      "Reports served from cache",
		}, []string{"report"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status_code"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		FeedSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_subscribers",
			Help:      "Open live feed connections",
		}),
	}

	reg.MustRegister(
		c.Submissions,
		c.ReportDuration,
		c.ReportCacheHits,
		c.HTTPRequestsTotal,
		c.HTTPRequestDuration,
		c.FeedSubscribers,
		prometheus.NewGoCollector(),
	)
	return c
}

// Handler serves the registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RecordSubmission(outcome string) {
	if c == nil {
		return
	}
	c.Submissions.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordReport(report string, duration time.Duration) {
	if c == nil {
		return
	}
	c.ReportDuration.WithLabelValues(report).Observe(duration.Seconds())
}

func (c *Collector) RecordReportCacheHit(report string) {
	if c == nil {
		return
	}
	c.ReportCacheHits.WithLabelValues(report).Inc()
}

func (c *Collector) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	c.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (c *Collector) FeedConnected() {
	if c == nil {
		return
	}
	c.FeedSubscribers.Inc()
}

func (c *Collector) FeedDisconnected() {
	if c == nil {
		return
	}
	c.FeedSubscribers.Dec()
}
