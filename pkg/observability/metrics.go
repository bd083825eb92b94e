package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the process-level Prometheus instruments for the pipeline.
// These are operational, per-process gauges and counters; the durable
// per-tenant time series live in the metrics store and are a separate
// concern.
type Metrics struct {
	// Control-plane HTTP
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Queue message handling (extraction/transform worker pools)
	MessagesTotal         *prometheus.CounterVec
	MessageHandleDuration *prometheus.HistogramVec
	WorkersBusy           *prometheus.GaugeVec

	// Provider client
	ProviderRequestsTotal *prometheus.CounterVec

	// Broker publishes
	PublishesTotal *prometheus.CounterVec
}

// Message outcomes recorded on MessagesTotal.
const (
	OutcomeOK          = "ok"
	OutcomeRetried     = "retried"
	OutcomeDeadLetter  = "dead_lettered"
	OutcomeRateLimited = "rate_limited"
)

var metrics *Metrics

// InitMetrics registers the pipeline's Prometheus instruments under the
// given namespace.
func InitMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "tracksync"
	}

	metrics = &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),

		MessagesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "messages_total",
				Help:      "Queue messages handled, by step, tier, and outcome",
			},
			[]string{"step", "tier", "outcome"},
		),
		MessageHandleDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "message_handle_duration_seconds",
				Help:      "Time spent handling one queue message",
				Buckets:   []float64{.05, .1, .5, 1, 2, 5, 10, 30, 60, 300},
			},
			[]string{"step", "tier"},
		),
		WorkersBusy: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "workers_busy",
				Help:      "Workers currently handling a message, by step and tier",
			},
			[]string{"step", "tier"},
		),

		ProviderRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "provider",
				Name:      "requests_total",
				Help:      "Requests to the issue-tracking provider, by outcome",
			},
			[]string{"outcome"},
		),

		PublishesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "queue",
				Name:      "publishes_total",
				Help:      "Broker publishes, by step and outcome",
			},
			[]string{"step", "outcome"},
		),
	}

	return metrics
}

// GetMetrics returns the global metrics instance.
func GetMetrics() *Metrics {
	if metrics == nil {
		return InitMetrics("")
	}
	return metrics
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// MetricsMiddleware records request count, duration, and in-flight gauge
// for every control-plane HTTP request.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := GetMetrics()
		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rw.statusCode)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}
