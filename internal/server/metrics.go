package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codescan_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codescan_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Scan processing metrics
	scanRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codescan_scan_requests_total",
			Help: "Total number of scan requests",
		},
		[]string{"type", "status"}, // type: image, pdf, websocket; status: success, no_code, rejected, error
	)

	scanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codescan_scan_duration_seconds",
			Help:    "Scan processing duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"type"},
	)

	scanAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codescan_scan_attempts_total",
			Help: "Total number of decode attempts by pipeline stage",
		},
		[]string{"stage"}, // original, rotation, manual-rotation, enhancement, denoise
	)

	codesDecoded = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codescan_codes_decoded",
			Help:    "Number of codes decoded per successful request",
			Buckets: []float64{1, 2, 3, 5, 10},
		},
		[]string{"type"},
	)

	// Rate limiting metrics
	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codescan_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"type"},
	)

	// File upload metrics
	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "codescan_upload_size_bytes",
			Help:    "Size of uploaded files in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 5 * 1024 * 1024, 10 * 1024 * 1024},
		},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "codescan_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)
)
