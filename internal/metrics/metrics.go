package metrics

import (
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docchat_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docchat_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "docchat_http_requests_in_flight",
			Help: "Current number of HTTP requests being served",
		},
	)

	// Authentication metrics
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docchat_login_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"status"},
	)

	// Upload metrics
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docchat_uploads_total",
			Help: "Total number of upload attempts by detected type and outcome",
		},
		[]string{"type", "status"},
	)

	UploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docchat_upload_bytes",
			Help:    "Size of stored uploads in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		},
	)

	// Extraction metrics
	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docchat_extractions_total",
			Help: "Total number of text extractions by kind and outcome",
		},
		[]string{"kind", "status"},
	)

	ExtractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docchat_extraction_duration_seconds",
			Help:    "Text extraction duration in seconds",
			Buckets: []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"kind"},
	)

	// Chat metrics
	ChatTurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docchat_chat_turns_total",
			Help: "Total number of chat turns by outcome",
		},
		[]string{"status"},
	)

	ModelRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docchat_model_request_duration_seconds",
			Help:    "Generative model request duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"operation", "status"},
	)

	// Database metrics
	DatabaseConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "docchat_database_connections_active",
			Help: "Current number of active database connections",
		},
	)

	DatabaseConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "docchat_database_connections_idle",
			Help: "Current number of idle database connections",
		},
	)
)

// RecordHTTPRequest records metrics for an HTTP request
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	statusStr := httpStatusToString(status)
	HTTPRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, statusStr).Observe(duration.Seconds())
}

func httpStatusToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	}
	return "unknown"
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// RecordLogin increments login attempt counter
func RecordLogin(success bool) {
	LoginAttempts.WithLabelValues(outcome(success)).Inc()
}

// RecordUpload counts an upload attempt. fileType is empty for uploads rejected
// before a type could be determined.
func RecordUpload(fileType string, success bool, size int64) {
	if fileType == "" {
		fileType = "unknown"
	}
	UploadsTotal.WithLabelValues(fileType, outcome(success)).Inc()
	if success {
		UploadBytes.Observe(float64(size))
	}
}

// RecordExtraction records the outcome and latency of one text extraction.
func RecordExtraction(kind string, success bool, duration time.Duration) {
	ExtractionsTotal.WithLabelValues(kind, outcome(success)).Inc()
	ExtractionDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordChatTurn counts a chat turn. status is one of ok, prompted,
// model_error or translation_error.
func RecordChatTurn(status string) {
	ChatTurnsTotal.WithLabelValues(status).Inc()
}

// RecordModelRequest records a call to the generative model. operation is
// "chat" or "translate".
func RecordModelRequest(operation string, success bool, duration time.Duration) {
	ModelRequestDuration.WithLabelValues(operation, outcome(success)).Observe(duration.Seconds())
}

// RecordDBStats copies connection pool statistics into the database gauges.
func RecordDBStats(stats sql.DBStats) {
	DatabaseConnectionsActive.Set(float64(stats.InUse))
	DatabaseConnectionsIdle.Set(float64(stats.Idle))
}
