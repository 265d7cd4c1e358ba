package config

// Config represents the complete configuration for the codescan application.
// It includes settings for all commands (scan, serve) and supports loading
// from configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	WorkDir  string `mapstructure:"work_dir" yaml:"work_dir" json:"work_dir"`
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Pipeline configuration
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
}

// PipelineConfig contains scan pipeline settings.
type PipelineConfig struct {
	// Decoder settings
	Decoder DecoderConfig `mapstructure:"decoder" yaml:"decoder" json:"decoder"`

	// Preprocessing settings
	Preprocess PreprocessConfig `mapstructure:"preprocess" yaml:"preprocess" json:"preprocess"`

	// Per-attempt timeout in seconds
	AttemptTimeoutSec int `mapstructure:"attempt_timeout_sec" yaml:"attempt_timeout_sec" json:"attempt_timeout_sec"`
}

// DecoderConfig contains barcode decoder settings.
type DecoderConfig struct {
	Backend   string `mapstructure:"backend" yaml:"backend" json:"backend"`
	ZbarPath  string `mapstructure:"zbar_path" yaml:"zbar_path" json:"zbar_path"`
	RemoteURL string `mapstructure:"remote_url" yaml:"remote_url" json:"remote_url"`
}

// PreprocessConfig contains image preprocessing settings.
type PreprocessConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Engine     string `mapstructure:"engine" yaml:"engine" json:"engine"`
	MagickPath string `mapstructure:"magick_path" yaml:"magick_path" json:"magick_path"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	File   string `mapstructure:"file" yaml:"file" json:"file"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`

	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig contains per-client rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool  `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int   `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int   `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int   `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDayMB   int64 `mapstructure:"max_data_per_day_mb" yaml:"max_data_per_day_mb" json:"max_data_per_day_mb"`
}
