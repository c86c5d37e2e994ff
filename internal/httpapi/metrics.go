package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"xlorad/internal/manager"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xlorad",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "xlorad",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)

	httpInflight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "xlorad",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "In-flight HTTP requests",
		},
		[]string{"path"},
	)

	backpressureTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xlorad",
			Subsystem: "http",
			Name:      "backpressure_total",
			Help:      "Total backpressure rejections (429)",
		},
		[]string{"reason"},
	)

	modelLoadsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xlorad",
			Subsystem: "manager",
			Name:      "model_loads_total",
			Help:      "Total model loads since start",
		},
	)

	modelEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xlorad",
			Subsystem: "manager",
			Name:      "model_evictions_total",
			Help:      "Total LRU evictions performed to stay inside the memory budget",
		},
	)

	cacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xlorad",
			Subsystem: "manager",
			Name:      "completion_cache_hits_total",
			Help:      "Completions served from the deterministic cache",
		},
	)

	completionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xlorad",
			Subsystem: "manager",
			Name:      "completions_total",
			Help:      "Finished completions by finish reason",
		},
		[]string{"finish_reason"},
	)

	generatedTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xlorad",
			Subsystem: "manager",
			Name:      "generated_tokens_total",
			Help:      "Completion tokens generated per model",
		},
		[]string{"model"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal, httpRequestDuration, httpInflight, backpressureTotal,
		modelLoadsTotal, modelEvictionsTotal, cacheHitsTotal, completionsTotal, generatedTokensTotal,
	)
}

// statusRecorder captures the status code written by downstream handlers.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// MetricsMiddleware instruments requests for Prometheus.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := routePatternOrPath(r)
		httpInflight.WithLabelValues(path).Inc()
		defer httpInflight.WithLabelValues(path).Dec()

		sr := &statusRecorder{ResponseWriter: w, status: 200}
		start := time.Now()
		next.ServeHTTP(sr, r)
		status := itoa(sr.status)
		httpRequestsTotal.WithLabelValues(path, r.Method, status).Inc()
		httpRequestDuration.WithLabelValues(path, r.Method, status).Observe(time.Since(start).Seconds())
	})
}

// routePatternOrPath labels by the chi route pattern when one is attached,
// keeping label cardinality bounded.
func routePatternOrPath(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// IncrementBackpressure records one 429 rejection.
func IncrementBackpressure(reason string) {
	if reason == "" {
		reason = "unspecified"
	}
	backpressureTotal.WithLabelValues(reason).Inc()
}

// MetricsPublisher translates manager lifecycle events into Prometheus
// counters. Install it as the manager's event publisher.
type MetricsPublisher struct{}

func (MetricsPublisher) Publish(ev manager.Event) {
	switch ev.Name {
	case "backpressure":
		reason, _ := ev.Fields["stage"].(string)
		IncrementBackpressure(reason)
	case "ensure_ready":
		modelLoadsTotal.Inc()
	case "evict":
		modelEvictionsTotal.Inc()
	case "cache_hit":
		cacheHitsTotal.Inc()
	case "completion":
		reason, _ := ev.Fields["finish_reason"].(string)
		if reason == "" {
			reason = "unknown"
		}
		completionsTotal.WithLabelValues(reason).Inc()
		if n, ok := ev.Fields["completion_tokens"].(int); ok && n > 0 {
			generatedTokensTotal.WithLabelValues(ev.ModelID).Add(float64(n))
		}
	}
}

// fast integer to ascii for the small set of status codes
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [4]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
