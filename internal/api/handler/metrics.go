package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	cvRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "certvault_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	cvRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "certvault_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	cvIngestBatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "certvault_ingest_batches_total",
		Help: "Total ingestion batches by outcome.",
	}, []string{"status"})

	cvCertificatesIngestedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "certvault_certificates_ingested_total",
		Help: "Total certificate hashes anchored in the ledger.",
	})

	cvVerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "certvault_verifications_total",
		Help: "Total verification lookups by result.",
	}, []string{"result"})

	cvLedgerProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "certvault_ledger_probes_total",
		Help: "Total ledger connectivity probes by result.",
	}, []string{"result"})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		cvRequestsTotal.WithLabelValues(method, path, status).Inc()
		cvRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordIngest records one ingestion batch and, on success, the number of
// hashes it anchored.
func RecordIngest(success bool, hashes int) {
	if success {
		cvIngestBatchesTotal.WithLabelValues("success").Inc()
		cvCertificatesIngestedTotal.Add(float64(hashes))
	} else {
		cvIngestBatchesTotal.WithLabelValues("failure").Inc()
	}
}

// RecordVerification records one verification lookup result.
func RecordVerification(valid bool) {
	if valid {
		cvVerificationsTotal.WithLabelValues("valid").Inc()
	} else {
		cvVerificationsTotal.WithLabelValues("invalid").Inc()
	}
}

// RecordLedgerProbe records a ledger connectivity probe result.
func RecordLedgerProbe(success bool) {
	if success {
		cvLedgerProbesTotal.WithLabelValues("success").Inc()
	} else {
		cvLedgerProbesTotal.WithLabelValues("failure").Inc()
	}
}
