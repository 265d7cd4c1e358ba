package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/MeKo-Tech/codescan/internal/pipeline"
	"github.com/MeKo-Tech/codescan/internal/server"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	pipelineDefaults := pipeline.DefaultConfig()

	return Config{
		WorkDir:  pipelineDefaults.WorkDir,
		LogLevel: "info",
		Verbose:  false,
		Pipeline: PipelineConfig{
			Decoder: DecoderConfig{
				Backend:  pipeline.BackendZbar,
				ZbarPath: "zbarimg",
			},
			Preprocess: PreprocessConfig{
				Enabled:    true,
				Engine:     pipeline.EngineMagick,
				MagickPath: "convert",
			},
			AttemptTimeoutSec: int(pipelineDefaults.AttemptTimeout / time.Second),
		},
		Output: OutputConfig{
			Format: "text",
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerMinute: 60,
				RequestsPerHour:   1000,
				MaxRequestsPerDay: 5000,
				MaxDataPerDayMB:   1024,
			},
		},
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)",
			c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	validFormats := []string{"text", "json"}
	if c.Output.Format != "" && !contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)",
			c.Output.Format, strings.Join(validFormats, ", "))
	}

	validBackends := []string{pipeline.BackendZbar, pipeline.BackendGozxing, pipeline.BackendRemote}
	if !contains(validBackends, c.Pipeline.Decoder.Backend) {
		return fmt.Errorf("invalid decoder backend: %s (must be one of: %s)",
			c.Pipeline.Decoder.Backend, strings.Join(validBackends, ", "))
	}
	if c.Pipeline.Decoder.Backend == pipeline.BackendRemote && c.Pipeline.Decoder.RemoteURL == "" {
		return fmt.Errorf("remote decoder backend requires a remote URL")
	}

	validEngines := []string{pipeline.EngineMagick, pipeline.EngineImaging}
	if !contains(validEngines, c.Pipeline.Preprocess.Engine) {
		return fmt.Errorf("invalid preprocessing engine: %s (must be one of: %s)",
			c.Pipeline.Preprocess.Engine, strings.Join(validEngines, ", "))
	}

	if c.Pipeline.AttemptTimeoutSec <= 0 {
		return fmt.Errorf("invalid attempt timeout: %d (must be positive)", c.Pipeline.AttemptTimeoutSec)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}

	return nil
}

// ToPipelineConfig converts the config to the internal pipeline configuration format.
func (c *Config) ToPipelineConfig() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	if c.WorkDir != "" {
		cfg.WorkDir = c.WorkDir
	}
	cfg.AttemptTimeout = time.Duration(c.Pipeline.AttemptTimeoutSec) * time.Second
	cfg.Preprocess = c.Pipeline.Preprocess.Enabled
	cfg.Decoder = pipeline.DecoderConfig{
		Backend:   c.Pipeline.Decoder.Backend,
		ZbarPath:  c.Pipeline.Decoder.ZbarPath,
		RemoteURL: c.Pipeline.Decoder.RemoteURL,
	}
	cfg.Engine = pipeline.EngineConfig{
		Backend:    c.Pipeline.Preprocess.Engine,
		MagickPath: c.Pipeline.Preprocess.MagickPath,
	}
	return cfg
}

// ToServerConfig converts the config to the internal server configuration format.
func (c *Config) ToServerConfig() server.Config {
	return server.Config{
		Host:        c.Server.Host,
		Port:        c.Server.Port,
		CORSOrigin:  c.Server.CORSOrigin,
		MaxUploadMB: int64(c.Server.MaxUploadMB),
		TimeoutSec:  c.Server.TimeoutSec,
		Pipeline:    c.ToPipelineConfig(),
		RateLimit: server.RateLimitConfig{
			Enabled:           c.Server.RateLimit.Enabled,
			RequestsPerMinute: c.Server.RateLimit.RequestsPerMinute,
			RequestsPerHour:   c.Server.RateLimit.RequestsPerHour,
			MaxRequestsPerDay: c.Server.RateLimit.MaxRequestsPerDay,
			MaxDataPerDay:     c.Server.RateLimit.MaxDataPerDayMB * 1024 * 1024,
		},
	}
}

// contains checks if a slice contains a string.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
