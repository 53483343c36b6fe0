package metric

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "authrelay"

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	LoginsTotal      *prometheus.CounterVec
	LogoutsTotal     prometheus.Counter
	TokenValidations *prometheus.CounterVec
	SessionsSwept    prometheus.Counter
	SweepRuns        *prometheus.CounterVec
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RateLimitedTotal prometheus.Counter
}

// NewRegistry creates a registry with every AuthRelay series registered.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		LoginsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by credential source and outcome",
		}, []string{"source", "outcome"}),
		LogoutsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logouts_total",
			Help:      "Logout requests",
		}),
		TokenValidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "token",
			Name:      "validations_total",
			Help:      "Token validations by result",
		}, []string{"result"}),
		SessionsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "swept_total",
			Help:      "Sessions removed by the retention sweep",
		}),
		SweepRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "sweep_runs_total",
			Help:      "Retention sweep runs by status",
		}, []string{"status"}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code",
		}, []string{"method", "route", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"method", "route"}),
		RateLimitedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.LoginsTotal,
		r.LogoutsTotal,
		r.TokenValidations,
		r.SessionsSwept,
		r.SweepRuns,
		r.RequestsTotal,
		r.RequestDuration,
		r.RateLimitedTotal,
	)
	return r
}

var (
	globalOnce sync.Once
	global     *Registry
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() { global = NewRegistry() })
	return global
}

// Registerer lets other packages add collectors to this registry.
func (r *Registry) Registerer() prometheus.Registerer { return r.registry }

// Gatherer exposes the registry for tests and custom exporters.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Handler serves the global registry.
func Handler() http.Handler { return Global().Handler() }

// RecordLogin counts a login by source (assertion, session, none) and
// outcome (ok, rejected, error).
func (r *Registry) RecordLogin(source, outcome string) {
	r.LoginsTotal.WithLabelValues(source, outcome).Inc()
}

// RecordLogout counts a logout.
func (r *Registry) RecordLogout() { r.LogoutsTotal.Inc() }

// RecordTokenValidation counts a validation result ("valid" or a reject reason).
func (r *Registry) RecordTokenValidation(result string) {
	r.TokenValidations.WithLabelValues(result).Inc()
}

// RecordSweep counts a sweep run and the sessions it removed.
func (r *Registry) RecordSweep(deleted int, err error) {
	if err != nil {
		r.SweepRuns.WithLabelValues("error").Inc()
		return
	}
	r.SweepRuns.WithLabelValues("ok").Inc()
	r.SessionsSwept.Add(float64(deleted))
}

// ObserveRequest records an HTTP request.
func (r *Registry) ObserveRequest(method, route string, code int, seconds float64) {
	r.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	r.RequestDuration.WithLabelValues(method, route).Observe(seconds)
}

// IncRateLimited counts a request rejected by the limiter.
func (r *Registry) IncRateLimited() { r.RateLimitedTotal.Inc() }
