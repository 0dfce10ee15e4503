package ui

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the Prometheus collectors of one API server
type Metrics struct {
	registry            *prometheus.Registry
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	experimentsAnalyzed prometheus.Counter
	narratives          *prometheus.CounterVec
}

// NewMetrics registers the API collectors on a private registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "labreport_http_requests_total",
				Help: "HTTP requests by route, method and status code",
			},
			[]string{"route", "method", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "labreport_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		experimentsAnalyzed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "labreport_experiments_analyzed_total",
			Help: "Experiments fitted successfully",
		}),
		narratives: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "labreport_narratives_generated_total",
				Help: "Report narratives by generator type",
			},
			[]string{"generator"},
		),
	}
	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.experimentsAnalyzed,
		m.narratives,
		collectors.NewGoCollector(),
	)
	return m
}

// middleware records count and latency per matched route
func (m *Metrics) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requestsTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

func (m *Metrics) addExperiments(n int) {
	m.experimentsAnalyzed.Add(float64(n))
}

func (m *Metrics) narrativeGenerated(generator string) {
	if generator == "" {
		generator = "unknown"
	}
	m.narratives.WithLabelValues(generator).Inc()
}
