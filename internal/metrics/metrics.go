// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Reload results.
const (
	ReloadOK     = "ok"
	ReloadFailed = "failed"
)

// Recorder is the metrics surface used by the post service and HTTP layer.
type Recorder interface {
	SetPostsLoaded(locale string, n int)
	RecordReload(result string, duration time.Duration)
	RecordHTTPStatus(statusCode int)
}

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	postsLoaded   *prometheus.GaugeVec
	reloads       *prometheus.CounterVec
	reloadLatency prometheus.Histogram
	httpStatus    *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		postsLoaded: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "quire_posts_loaded",
			Help: "Number of posts in the current corpus, per locale.",
		}, []string{"locale"}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quire_reload_total",
			Help: "Corpus reloads by result.",
		}, []string{"result"}),
		reloadLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "quire_reload_duration_seconds",
			Help:    "Time spent loading the corpus.",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quire_http_requests_total",
			Help: "HTTP responses by status code.",
		}, []string{"status_code"}),
	}

	reg.MustRegister(c.postsLoaded, c.reloads, c.reloadLatency, c.httpStatus)
	return c
}

// SetPostsLoaded sets the corpus size for locale.
func (c *Collector) SetPostsLoaded(locale string, n int) {
	c.postsLoaded.WithLabelValues(locale).Set(float64(n))
}

// RecordReload counts a reload and observes its duration.
func (c *Collector) RecordReload(result string, duration time.Duration) {
	c.reloads.WithLabelValues(result).Inc()
	c.reloadLatency.Observe(duration.Seconds())
}

// RecordHTTPStatus counts a response status code.
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Middleware records the status code of every response.
func Middleware(rec Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			rec.RecordHTTPStatus(status)
		})
	}
}

// Handler returns the HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) SetPostsLoaded(string, int)         {}
func (Nop) RecordReload(string, time.Duration) {}
func (Nop) RecordHTTPStatus(int)               {}

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = Nop{}
)
