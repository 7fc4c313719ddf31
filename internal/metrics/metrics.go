// Package metrics exposes Prometheus counters for the request pipeline.
// A nil *Metrics is valid and records nothing.
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

const (
	OutcomeCompleted = "completed"
	OutcomeAborted   = "aborted"
	OutcomeFailed    = "failed"
)

type Metrics struct {
	registry           *prometheus.Registry
	requests           *prometheus.CounterVec
	streamedBytes      *prometheus.CounterVec
	activeStreams      *prometheus.GaugeVec
	streamOutcomes     *prometheus.CounterVec
	extractionDuration *prometheus.HistogramVec
}

func New(prefix string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: prefix + "http_requests_total", Help: "Total number of HTTP requests"},
			[]string{"route", "method", "status"},
		),
		streamedBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: prefix + "streamed_bytes_total", Help: "Bytes relayed to clients"},
			[]string{"kind"},
		),
		activeStreams: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: prefix + "active_streams", Help: "Number of downloads currently streaming"},
			[]string{"kind"},
		),
		streamOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: prefix + "stream_outcomes_total", Help: "Finished downloads by outcome"},
			[]string{"kind", "outcome"},
		),
		extractionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "extraction_duration_seconds",
				Help:    "Time spent fetching video metadata",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),
	}

	m.registry.MustRegister(
		m.requests,
		m.streamedBytes,
		m.activeStreams,
		m.streamOutcomes,
		m.extractionDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware counts requests by matched route, so unknown paths share one
// label value.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if m == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

func (m *Metrics) ObserveExtraction(d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.extractionDuration.WithLabelValues(result).Observe(d.Seconds())
}

// StreamStarted marks a stream active. The returned func records the
// outcome and must be called exactly once.
func (m *Metrics) StreamStarted(kind string) func(outcome string) {
	if m == nil {
		return func(string) {}
	}
	m.activeStreams.WithLabelValues(kind).Inc()
	return func(outcome string) {
		m.activeStreams.WithLabelValues(kind).Dec()
		m.streamOutcomes.WithLabelValues(kind, outcome).Inc()
	}
}

func (m *Metrics) AddStreamedBytes(kind string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.streamedBytes.WithLabelValues(kind).Add(float64(n))
}
