package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "lgcert",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lgcert",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lgcert",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lgcert",
			Subsystem: "records",
			Name:      "submissions_total",
			Help:      "Applications and digitization requests submitted.",
		},
		[]string{"record_type"},
	)

	statusChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lgcert",
			Subsystem: "records",
			Name:      "status_changes_total",
			Help:      "Administrator status changes by target status.",
		},
		[]string{"record_type", "status"},
	)

	ninChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lgcert",
			Subsystem: "identity",
			Name:      "nin_checks_total",
			Help:      "NIN verifications by outcome.",
		},
		[]string{"outcome"},
	)

	payments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lgcert",
			Subsystem: "payments",
			Name:      "events_total",
			Help:      "Payment initializations and verifications by result.",
		},
		[]string{"stage", "result"},
	)

	certificatesIssued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lgcert",
			Subsystem: "certificates",
			Name:      "issued_total",
			Help:      "Certificates issued.",
		},
	)

	jobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lgcert",
			Subsystem: "jobs",
			Name:      "runs_total",
			Help:      "Background job runs.",
		},
		[]string{"job", "success"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		submissions,
		statusChanges,
		ninChecks,
		payments,
		certificatesIssued,
		jobRuns,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request count, latency and in-flight gauge per route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func RecordSubmission(recordType string) {
	submissions.WithLabelValues(recordType).Inc()
}

func RecordStatusChange(recordType, status string) {
	statusChanges.WithLabelValues(recordType, status).Inc()
}

func RecordNINCheck(outcome string) {
	ninChecks.WithLabelValues(outcome).Inc()
}

func RecordPayment(stage string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	payments.WithLabelValues(stage, result).Inc()
}

func RecordCertificateIssued() {
	certificatesIssued.Inc()
}

func RecordJobRun(job string, success bool) {
	jobRuns.WithLabelValues(job, strconv.FormatBool(success)).Inc()
}
