package social

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bizhub/socialauth/pkg/auth"
	"github.com/bizhub/socialauth/pkg/session"
)

// Login outcome labels.
const (
	ResultSuccess         = "success"
	ResultUnknownProvider = "unknown_provider"
	ResultDisabled        = "disabled"
	ResultStateMismatch   = "state_mismatch"
	ResultCallbackError   = "callback_error"
	ResultMissingEmail    = "missing_email"
	ResultInactive        = "inactive"
	ResultRejected        = "rejected"
	ResultError           = "error"
)

// Metrics holds the Prometheus collectors of the auth endpoints. A nil
// *Metrics records nothing.
type Metrics struct {
	LoginsTotal         *prometheus.CounterVec
	LogoutsTotal        prometheus.Counter
	UnlinksTotal        *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "socialauth_logins_total",
				Help: "Social login callbacks by provider and outcome",
			},
			[]string{"provider", "result"},
		),
		LogoutsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "socialauth_logouts_total",
				Help: "Completed logouts",
			},
		),
		UnlinksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "socialauth_unlinks_total",
				Help: "Provider unlink attempts by provider and outcome",
			},
			[]string{"provider", "result"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "socialauth_http_requests_total",
				Help: "HTTP requests served by the auth endpoints",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "socialauth_http_request_duration_seconds",
				Help:    "Latency of the auth endpoints",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
	registry.MustRegister(m.LoginsTotal, m.LogoutsTotal, m.UnlinksTotal, m.HTTPRequestsTotal, m.HTTPRequestDuration)
	return m
}

func resultLabel(err error) string {
	var (
		unknown  *auth.UnknownProviderError
		disabled *auth.ProviderDisabledError
		callback *auth.ProviderCallbackError
		noEmail  *auth.MissingIdentityEmailError
		inactive *auth.AccountInactiveError
	)
	switch {
	case err == nil:
		return ResultSuccess
	case errors.As(err, &unknown):
		return ResultUnknownProvider
	case errors.As(err, &disabled):
		return ResultDisabled
	case errors.As(err, &callback):
		if callback.StateMismatch {
			return ResultStateMismatch
		}
		return ResultCallbackError
	case errors.As(err, &noEmail):
		return ResultMissingEmail
	case errors.As(err, &inactive):
		return ResultInactive
	case errors.Is(err, auth.ErrLastProvider), errors.Is(err, auth.ErrProviderNotLinked),
		errors.Is(err, session.ErrNotAuthenticated):
		return ResultRejected
	default:
		return ResultError
	}
}

func (m *Metrics) observeLogin(provider string, err error) {
	if m == nil {
		return
	}
	result := resultLabel(err)
	m.LoginsTotal.WithLabelValues(providerLabel(provider, result), result).Inc()
}

func (m *Metrics) observeLogout() {
	if m == nil {
		return
	}
	m.LogoutsTotal.Inc()
}

func (m *Metrics) observeUnlink(provider string, err error) {
	if m == nil {
		return
	}
	result := resultLabel(err)
	m.UnlinksTotal.WithLabelValues(providerLabel(provider, result), result).Inc()
}

// providerLabel keeps arbitrary names from the URL out of the label set.
func providerLabel(provider, result string) string {
	if result == ResultUnknownProvider {
		return "unknown"
	}
	return provider
}

// Middleware counts requests by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
