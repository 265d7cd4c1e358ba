package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/codescan/internal/server"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for the scan API",
	Long: `Start an HTTP server that provides REST API endpoints for barcode scanning.

The server provides the following endpoints:
  POST /scan       - Scan an uploaded image
  POST /scan/pdf   - Scan every page of an uploaded PDF
  GET  /scan/ws    - WebSocket scanning with progress updates
  GET  /strategies - List preprocessing strategies in retry order
  GET  /health     - Health check endpoint
  GET  /metrics    - Prometheus metrics

Examples:
  codescan serve
  codescan serve --port 8080
  codescan serve --host 0.0.0.0 --port 3000`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	host := cfg.Server.Host
	if cmd.Flags().Changed("host") {
		host, _ = cmd.Flags().GetString("host")
	}
	port := cfg.Server.Port
	if cmd.Flags().Changed("port") {
		port, _ = cmd.Flags().GetInt("port")
	}
	corsOrigin := cfg.Server.CORSOrigin
	if cmd.Flags().Changed("cors-origin") {
		corsOrigin, _ = cmd.Flags().GetString("cors-origin")
	}
	maxUploadSize := cfg.Server.MaxUploadMB
	if cmd.Flags().Changed("max-upload-size") {
		maxUploadSize, _ = cmd.Flags().GetInt("max-upload-size")
	}
	timeout := cfg.Server.TimeoutSec
	if cmd.Flags().Changed("timeout") {
		timeout, _ = cmd.Flags().GetInt("timeout")
	}
	shutdownTimeout := cfg.Server.ShutdownTimeout
	if cmd.Flags().Changed("shutdown-timeout") {
		shutdownTimeout, _ = cmd.Flags().GetInt("shutdown-timeout")
	}
	if cmd.Flags().Changed("rate-limit") {
		cfg.Server.RateLimit.Enabled, _ = cmd.Flags().GetBool("rate-limit")
	}
	if cmd.Flags().Changed("backend") {
		cfg.Pipeline.Decoder.Backend, _ = cmd.Flags().GetString("backend")
	}
	if cmd.Flags().Changed("remote-url") {
		cfg.Pipeline.Decoder.RemoteURL, _ = cmd.Flags().GetString("remote-url")
	}
	if cmd.Flags().Changed("engine") {
		cfg.Pipeline.Preprocess.Engine, _ = cmd.Flags().GetString("engine")
	}

	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", port)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverConfig := cfg.ToServerConfig()
	serverConfig.Host = host
	serverConfig.Port = port
	serverConfig.CORSOrigin = corsOrigin
	serverConfig.MaxUploadMB = int64(maxUploadSize)
	serverConfig.TimeoutSec = timeout

	scanServer, err := server.NewServer(serverConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}
	defer func() { _ = scanServer.Close() }()

	mux := http.NewServeMux()
	scanServer.SetupRoutes(mux)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(timeout) * time.Second,
		WriteTimeout:      time.Duration(timeout) * time.Second,
	}

	go func() {
		slog.Info("Starting scan server", "host", host, "port", port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		slog.Info("Context cancelled, initiating shutdown")
	}

	slog.Info("Starting graceful shutdown", "timeout", fmt.Sprintf("%ds", shutdownTimeout))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
		time.Duration(shutdownTimeout)*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server shutdown completed")
	}

	if err := scanServer.Close(); err != nil {
		slog.Error("Server cleanup error", "error", err)
	}

	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "localhost", "host to bind the server to")
	serveCmd.Flags().IntP("port", "p", 8080, "port to run the server on")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origin")
	serveCmd.Flags().Int("max-upload-size", 50, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", 30, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "graceful shutdown timeout in seconds")
	serveCmd.Flags().Bool("rate-limit", false, "enable per-client rate limiting")
	serveCmd.Flags().String("backend", "", "decoder backend (zbar, gozxing, remote)")
	serveCmd.Flags().String("remote-url", "", "URL of a remote decoder service")
	serveCmd.Flags().String("engine", "", "preprocessing engine (magick, imaging)")
}
