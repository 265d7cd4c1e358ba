package server

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/codescan/internal/pipeline"
	"github.com/MeKo-Tech/codescan/internal/scan"
)

// scanPipeline defines the methods the server needs from a pipeline.
type scanPipeline interface {
	Scan(ctx context.Context, imagePath string) ([]scan.Result, error)
	ScanWithProgress(ctx context.Context, imagePath string, cb pipeline.ProgressCallback) ([]scan.Result, error)
	ScanPDF(ctx context.Context, filename, pageRange string) ([]pipeline.PDFPageResult, error)
	Close() error
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	pipeline    scanPipeline
	corsOrigin  string
	maxUploadMB int64
	workDir     string
	rateLimiter *RateLimiter
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
	Pipeline    pipeline.Config
	RateLimit   RateLimitConfig
}

// Response types for API endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

type StrategyInfo struct {
	Name  string `json:"name"`
	Class string `json:"class"`
}

type StrategiesResponse struct {
	Strategies []StrategyInfo `json:"strategies"`
	Count      int            `json:"count"`
}

// MultipleResponse wraps more than one decoded code from a single pass.
type MultipleResponse struct {
	Multiple []scan.Result `json:"multiple"`
}

type PDFScanResponse struct {
	Pages []pipeline.PDFPageResult `json:"pages"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// NewServer creates a new scan server instance, building the pipeline from
// the provided configuration.
func NewServer(config Config) (*Server, error) {
	pl, err := pipeline.NewBuilder().
		WithConfig(config.Pipeline).
		WithProgressCallback(func(stage, _ string) {
			scanAttemptsTotal.WithLabelValues(stage).Inc()
		}).
		Build()
	if err != nil {
		return nil, err
	}

	s := &Server{
		pipeline:    pl,
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		workDir:     config.Pipeline.WorkDir,
	}
	if config.RateLimit.Enabled {
		s.rateLimiter = NewRateLimiter(config.RateLimit)
	}
	return s, nil
}

// Close releases server resources.
func (s *Server) Close() error {
	if s.pipeline != nil {
		return s.pipeline.Close()
	}
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/strategies", s.corsMiddleware(s.strategiesHandler))
	mux.HandleFunc("/scan", s.corsMiddleware(s.rateLimitMiddleware(s.scanImageHandler)))
	mux.HandleFunc("/scan/pdf", s.corsMiddleware(s.rateLimitMiddleware(s.scanPDFHandler)))
	mux.HandleFunc("/scan/ws", s.scanWebSocketHandler)
	mux.Handle("/metrics", promhttp.Handler())
}
