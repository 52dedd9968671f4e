// Package monitoring exposes Prometheus metrics and health endpoints.
package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vdavid/vcode/internal/models"
	"github.com/vdavid/vcode/internal/search"
)

var _ search.Recorder = (*Metrics)(nil)

// Metrics holds every collector on a private registry, so tests can build as
// many instances as they like.
type Metrics struct {
	registry *prometheus.Registry

	SearchesTotal   *prometheus.CounterVec
	SearchDuration  *prometheus.HistogramVec
	ServerAttempts  *prometheus.CounterVec
	CacheLookups    *prometheus.CounterVec
	RateLimitBlocks prometheus.Counter

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		SearchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vcode_searches_total",
				Help: "Completed code searches by platform and result type",
			},
			[]string{"platform", "result"},
		),
		SearchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vcode_search_duration_seconds",
				Help:    "End-to-end duration of a code search",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40},
			},
			[]string{"platform"},
		),
		ServerAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vcode_server_attempts_total",
				Help: "Per-server search attempts by outcome",
			},
			[]string{"server", "outcome"},
		),
		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vcode_cache_lookups_total",
				Help: "Last-result cache lookups by outcome",
			},
			[]string{"outcome"},
		),
		RateLimitBlocks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "vcode_rate_limit_blocks_total",
				Help: "Search requests rejected by the per-user rate limit",
			},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vcode_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vcode_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

func (m *Metrics) SearchCompleted(platform string, result models.ResultType, elapsed time.Duration) {
	m.SearchesTotal.WithLabelValues(platform, string(result)).Inc()
	m.SearchDuration.WithLabelValues(platform).Observe(elapsed.Seconds())
}

func (m *Metrics) ServerAttempt(server, outcome string) {
	m.ServerAttempts.WithLabelValues(server, outcome).Inc()
}

// CacheLookup records a hit or a miss of the last-result cache.
func (m *Metrics) CacheLookup(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.CacheLookups.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RateLimited() {
	m.RateLimitBlocks.Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Instrument wraps a handler and records its requests under route.
func (m *Metrics) Instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
