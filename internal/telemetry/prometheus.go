package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusMetrics struct {
	toolCalls     *prometheus.CounterVec
	toolDuration  *prometheus.HistogramVec
	cacheLookups  *prometheus.CounterVec
	upstream      *prometheus.HistogramVec
	retries       *prometheus.CounterVec
	rateLimitWait prometheus.Histogram
}

func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		toolCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpgate_tool_calls_total",
				Help: "Total number of tool calls by outcome",
			},
			[]string{"tool", "status"},
		),
		toolDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mcpgate_tool_call_duration_seconds",
				Help:    "Duration of tool calls in seconds, including retries and rate-limit waits",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"tool"},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpgate_cache_lookups_total",
				Help: "Cache lookups by kind and result",
			},
			[]string{"kind", "result"},
		),
		upstream: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mcpgate_upstream_request_duration_seconds",
				Help:    "Duration of individual upstream HTTP attempts in seconds",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "code"},
		),
		retries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpgate_upstream_retries_total",
				Help: "Total number of upstream retry attempts",
			},
			[]string{"method"},
		),
		rateLimitWait: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mcpgate_rate_limit_wait_seconds",
				Help:    "Time spent blocked on the upstream rate limiter",
				Buckets: []float64{.1, 1, 5, 15, 30, 60},
			},
		),
	}
}

func (p *PrometheusMetrics) ObserveToolCall(tool string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	p.toolCalls.WithLabelValues(tool, status).Inc()
	p.toolDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

func (p *PrometheusMetrics) ObserveCacheLookup(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.cacheLookups.WithLabelValues(kind, result).Inc()
}

// ObserveUpstream records one HTTP attempt. A zero status means the
// attempt failed before a response arrived.
func (p *PrometheusMetrics) ObserveUpstream(method string, status int, duration time.Duration) {
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	p.upstream.WithLabelValues(method, code).Observe(duration.Seconds())
}

func (p *PrometheusMetrics) ObserveRetry(method string) {
	p.retries.WithLabelValues(method).Inc()
}

func (p *PrometheusMetrics) ObserveRateLimitWait(wait time.Duration) {
	p.rateLimitWait.Observe(wait.Seconds())
}

var _ Metrics = (*PrometheusMetrics)(nil)
