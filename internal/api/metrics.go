package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "memberauth_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"method", "route", "status"})

	requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "memberauth_request_duration_seconds",
		Help:    "HTTP request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	loginAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "memberauth_login_attempts_total",
		Help: "Login attempts by outcome.",
	}, []string{"outcome"})

	lockoutsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "memberauth_lockouts_total",
		Help: "Number of identities locked after reaching the failed-attempt threshold.",
	})

	revokedTokens = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "memberauth_revoked_tokens",
		Help: "Entries currently held by the token revocation store.",
	})
)

func init() {
	prometheus.MustRegister(requestsTotal, requestDuration, loginAttemptsTotal, lockoutsTotal, revokedTokens)
}

// metricsHandler refreshes gauges that are read on demand, then serves the
// Prometheus exposition.
func (s *Server) metricsHandler() http.Handler {
	h := promhttp.Handler()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		revokedTokens.Set(float64(s.auth.Revocations().Count()))
		h.ServeHTTP(w, r)
	})
}

// metricsMiddleware records request metrics labelled by chi route pattern so
// path parameters do not explode cardinality.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rr := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rr, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		dur := time.Since(start).Seconds()
		requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rr.statusCode)).Inc()
		requestDuration.WithLabelValues(r.Method, route).Observe(dur)
	})
}
