package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polyledger/internal/adapters/metrics"
	"github.com/alejandrodnm/polyledger/internal/adapters/resolver"
	"github.com/alejandrodnm/polyledger/internal/domain"
)

func TestObserveAttempt(t *testing.T) {
	m := metrics.New()
	var obs resolver.Observer = m

	obs.ObserveAttempt(resolver.OutcomeSkip)
	obs.ObserveAttempt(resolver.OutcomeSkip)
	obs.ObserveAttempt(resolver.OutcomeOK)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EndpointAttempts.WithLabelValues("skip")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EndpointAttempts.WithLabelValues("ok")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.EndpointAttempts.WithLabelValues("fail")))
}

func TestObserveDecision(t *testing.T) {
	m := metrics.New()

	m.ObserveDecision(domain.OrderDecision{Intent: domain.OrderIntent{Side: domain.SideBuy}, Approved: true})
	m.ObserveDecision(domain.OrderDecision{Intent: domain.OrderIntent{Side: domain.SideSell}})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.GuardDecisions.WithLabelValues("BUY", "approved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GuardDecisions.WithLabelValues("SELL", "rejected")))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := metrics.New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/markets/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Handle("/metrics", m.Handler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/markets/abc", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/markets/{id}", "418")))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "ledger_http_requests_total")
}
