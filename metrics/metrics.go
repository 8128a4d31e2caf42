// metrics/metrics.go

// Package metrics exposes Prometheus collectors for the HTTP layer and the
// contact form and clock components.
package metrics

import (
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	reqDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: []float64{0.01, 0.1, 0.3, 1.2, 5},
		},
		[]string{"path", "method", "status"},
	)

	contactSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_submissions_total",
			Help: "Contact form submit attempts by outcome.",
		},
		[]string{"outcome"},
	)

	contactLiveEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_live_events_total",
			Help: "Live validation events by field.",
		},
		[]string{"field"},
	)

	clockStreams = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "clock_streams_active",
			Help: "Open clock event streams.",
		},
	)
)

// RegisterDefault registers the Go runtime and process collectors and the
// service collectors. Call once at startup; repeated calls are harmless.
// It panics (or logs fatally) on any registration failure other than a
// duplicate.
func RegisterDefault(logger *zap.Logger) {
	mustRegister(logger, "Go collector", collectors.NewGoCollector())
	mustRegister(logger, "process collector", collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mustRegister(logger, "HTTP request histogram", reqDuration)
	mustRegister(logger, "contact submissions", contactSubmissions)
	mustRegister(logger, "contact live events", contactLiveEvents)
	mustRegister(logger, "clock streams", clockStreams)
}

func mustRegister(logger *zap.Logger, name string, c prometheus.Collector) {
	if err := prometheus.Register(c); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return
		}
		if logger != nil {
			logger.Fatal("failed to register "+name, zap.Error(err))
		}
		panic("metrics: failed to register " + name + ": " + err.Error())
	}
}

// ContactSubmission counts one submit attempt.
func ContactSubmission(outcome string) {
	contactSubmissions.WithLabelValues(outcome).Inc()
}

// ContactLiveEvent counts one live validation event. Callers pass only
// bound field keys so the label set stays small.
func ContactLiveEvent(field string) {
	contactLiveEvents.WithLabelValues(field).Inc()
}

// ClockStreamOpened marks a clock stream as open and returns the func
// that marks it closed.
func ClockStreamOpened() (closed func()) {
	clockStreams.Inc()
	return clockStreams.Dec
}

// maxPathLabelLength bounds the path label.
const maxPathLabelLength = 256

// HTTPMetrics records request durations. The path label is the chi route
// pattern when there is one, so "/static/*" rather than each file. Place
// it after the recoverer so panics are recorded as 500.
func HTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		protoMajor := r.ProtoMajor
		if protoMajor < 1 {
			protoMajor = 1
		}
		ww := middleware.NewWrapResponseWriter(w, protoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			// nothing written explicitly
			status = http.StatusOK
		}
		if status < 100 || status > 599 {
			status = http.StatusInternalServerError
		}

		reqDuration.WithLabelValues(
			routeLabel(r),
			r.Method,
			strconv.Itoa(status),
		).Observe(time.Since(start).Seconds())
	})
}

func routeLabel(r *http.Request) string {
	path := r.URL.Path
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			path = pattern
		}
	}
	if len(path) > maxPathLabelLength {
		path = truncateUTF8(path, maxPathLabelLength-3) + "..."
	}
	return path
}

// Handler serves the registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// truncateUTF8 cuts s to at most maxBytes without splitting a rune.
func truncateUTF8(s string, maxBytes int) string {
	if maxBytes <= 0 {
		return ""
	}
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}
