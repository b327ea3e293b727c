package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	ready = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "service_ready",
		Help: "1 when the service considers itself ready.",
	})

	auditDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_entries_dropped_total",
		Help: "Audit entries that could not be persisted.",
	})

	totalsRecalcFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payrun_totals_recalc_failures_total",
		Help: "Pay run totals recalculations that failed after an item mutation.",
	})

	hrsyncCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hrsync_api_calls_total",
			Help: "Outbound HR API calls by result.",
		},
		[]string{"endpoint", "result"},
	)
)

// Init registers metrics in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		ready, auditDropped, totalsRecalcFailures, hrsyncCalls,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetReady flips the readiness gauge.
func SetReady(ok bool) {
	if ok {
		ready.Set(1)
		return
	}
	ready.Set(0)
}

// CountAuditDrop increments the dropped-audit-entry counter.
func CountAuditDrop() { auditDropped.Inc() }

// CountTotalsRecalcFailure increments the totals recalculation failure counter.
func CountTotalsRecalcFailure() { totalsRecalcFailures.Inc() }

// CountHRSyncCall records an outbound HR API call outcome.
func CountHRSyncCall(endpoint, result string) {
	hrsyncCalls.WithLabelValues(endpoint, result).Inc()
}

// CanonicalPath collapses resource identifiers in a request path so
// metric labels stay low-cardinality.
func CanonicalPath(p string) string {
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "/"
	}
	parts := strings.Split(p, "/")
	if len(parts) < 4 || parts[1] != "v1" || parts[3] == "" {
		return p
	}
	switch parts[2] {
	case "payruns", "payitems":
		if len(parts) == 4 {
			return "/v1/" + parts[2] + "/:id"
		}
	case "users":
		if len(parts) == 4 {
			return "/v1/users/:id"
		}
		if len(parts) == 5 && parts[4] == "access" {
			return "/v1/users/:id/access"
		}
	}
	return p
}

// Instrument wraps a handler with request counting and latency measurement.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// statusWriter captures the response code for metrics.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
