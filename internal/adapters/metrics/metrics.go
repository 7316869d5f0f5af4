// Package metrics provides Prometheus instrumentation for the ledger.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alejandrodnm/polyledger/internal/domain"
)

// Metrics holds the collectors of one registry.
type Metrics struct {
	registry *prometheus.Registry

	// EndpointAttempts counts candidate attempts by outcome (ok, skip, fail).
	EndpointAttempts *prometheus.CounterVec
	// GuardDecisions counts guard verdicts by side and result.
	GuardDecisions *prometheus.CounterVec
	// HTTPRequests counts API requests by method, route and status.
	HTTPRequests *prometheus.CounterVec
	// HTTPDuration tracks API request duration by method and route.
	HTTPDuration *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		EndpointAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_endpoint_attempts_total",
			Help: "Endpoint candidate attempts by outcome",
		}, []string{"outcome"}),
		GuardDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_guard_decisions_total",
			Help: "Order guard decisions by side and result",
		}, []string{"side", "result"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledger_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
	}
}

// ObserveAttempt implements resolver.Observer.
func (m *Metrics) ObserveAttempt(outcome string) {
	m.EndpointAttempts.WithLabelValues(outcome).Inc()
}

// ObserveDecision implements ports.DecisionObserver.
func (m *Metrics) ObserveDecision(d domain.OrderDecision) {
	result := "rejected"
	if d.Approved {
		result = "approved"
	}
	m.GuardDecisions.WithLabelValues(string(d.Intent.Side), result).Inc()
}

// Handler returns the Prometheus metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request metrics. The route pattern is used as label to
// keep cardinality low.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		m.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.status)).Inc()
		m.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
