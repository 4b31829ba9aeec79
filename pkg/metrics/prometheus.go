package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus is the production Collector. All vectors register against
// the registerer handed to NewPrometheus, never against the package
// default, so tests can build isolated instances.
type Prometheus struct {
	registry prometheus.Registerer
	gatherer prometheus.Gatherer

	authDecisions  *prometheus.CounterVec
	loginAttempts  *prometheus.CounterVec
	tokenRotations *prometheus.CounterVec
	reuseDetected  prometheus.Counter
	crossTenant    prometheus.Counter
	storeLatency   *prometheus.HistogramVec

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewPrometheus builds and registers the collector. Passing nil uses a
// fresh private registry.
func NewPrometheus(reg *prometheus.Registry) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	p := &Prometheus{
		registry: reg,
		gatherer: reg,
		authDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_decisions_total",
			Help: "Authorization gate outcomes.",
		}, []string{"outcome"}),
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		tokenRotations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_token_rotations_total",
			Help: "Refresh token rotations by result.",
		}, []string{"result"}),
		reuseDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_token_reuse_detected_total",
			Help: "Refresh token replay detections.",
		}),
		crossTenant: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_cross_tenant_access_total",
			Help: "Superadmin accesses outside the token tenant.",
		}),
		storeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "auth_store_duration_seconds",
			Help:    "Backing store round trip latencies.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}

	collectors := []prometheus.Collector{
		p.authDecisions, p.loginAttempts, p.tokenRotations,
		p.reuseDetected, p.crossTenant, p.storeLatency,
		p.httpInFlight, p.httpRequests, p.httpDuration,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prometheus) AuthDecision(outcome string) {
	p.authDecisions.WithLabelValues(outcome).Inc()
}

func (p *Prometheus) LoginAttempt(result string) {
	p.loginAttempts.WithLabelValues(result).Inc()
}

func (p *Prometheus) TokenRotation(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	p.tokenRotations.WithLabelValues(result).Inc()
}

func (p *Prometheus) ReuseDetected() {
	p.reuseDetected.Inc()
}

func (p *Prometheus) CrossTenantAccess() {
	p.crossTenant.Inc()
}

func (p *Prometheus) StoreLatency(operation string, d time.Duration) {
	p.storeLatency.WithLabelValues(operation).Observe(d.Seconds())
}

// Handler exposes the scrape endpoint for this collector's registry.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}

// Instrument wraps an HTTP handler with request count, latency, and
// in-flight tracking.
func (p *Prometheus) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		status := strconv.Itoa(sw.code)
		p.httpDuration.WithLabelValues(r.Method, r.URL.Path, status).Observe(time.Since(start).Seconds())
		p.httpRequests.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		p.httpInFlight.Dec()
	})
}

var _ Collector = (*Prometheus)(nil)

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
