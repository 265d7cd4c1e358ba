package pipeline

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/MeKo-Tech/codescan/internal/decoder"
	"github.com/MeKo-Tech/codescan/internal/preprocess"
)

// Decoder backend names.
const (
	BackendZbar    = "zbar"
	BackendGozxing = "gozxing"
	BackendRemote  = "remote"
)

// Engine backend names.
const (
	EngineMagick  = "magick"
	EngineImaging = "imaging"
)

// DecoderConfig selects and parameterizes the decoder backend.
type DecoderConfig struct {
	Backend   string
	ZbarPath  string // zbar backend: scanner binary, default "zbarimg"
	RemoteURL string // remote backend: decode service endpoint
}

// EngineConfig selects and parameterizes the image-processing backend.
type EngineConfig struct {
	Backend    string
	MagickPath string // magick backend: binary, default "convert"
}

// Config holds configuration for the scan pipeline.
type Config struct {
	// WorkDir is where intermediate artifacts are written.
	WorkDir string

	// AttemptTimeout bounds each external invocation. Expiry fails the
	// current strategy or profile, never the whole request.
	AttemptTimeout time.Duration

	// Preprocess enables the retry strategies. The remote backend forces it
	// off: the remote service makes exactly one attempt per upload.
	Preprocess bool

	Decoder DecoderConfig
	Engine  EngineConfig
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		WorkDir:        os.TempDir(),
		AttemptTimeout: 15 * time.Second,
		Preprocess:     true,
		Decoder:        DecoderConfig{Backend: BackendZbar},
		Engine:         EngineConfig{Backend: EngineMagick},
	}
}

// Pipeline orchestrates preprocessing and decode attempts for one image.
type Pipeline struct {
	cfg      Config
	dec      decoder.Decoder
	eng      preprocess.Engine
	profiles []decoder.Profile
	progress ProgressCallback
}

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg      Config
	dec      decoder.Decoder
	eng      preprocess.Engine
	profiles []decoder.Profile
	progress ProgressCallback
}

// NewBuilder creates a new pipeline builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithWorkDir sets the artifact working directory.
func (b *Builder) WithWorkDir(dir string) *Builder {
	if dir != "" {
		b.cfg.WorkDir = dir
	}
	return b
}

// WithAttemptTimeout sets the per-invocation timeout.
func (b *Builder) WithAttemptTimeout(d time.Duration) *Builder {
	if d > 0 {
		b.cfg.AttemptTimeout = d
	}
	return b
}

// WithPreprocessing toggles the preprocessing retry strategies.
func (b *Builder) WithPreprocessing(enabled bool) *Builder {
	b.cfg.Preprocess = enabled
	return b
}

// WithDecoderBackend selects the decoder backend by name.
func (b *Builder) WithDecoderBackend(name string) *Builder {
	if name != "" {
		b.cfg.Decoder.Backend = name
	}
	return b
}

// WithZbarPath overrides the zbar scanner binary.
func (b *Builder) WithZbarPath(path string) *Builder {
	if path != "" {
		b.cfg.Decoder.ZbarPath = path
	}
	return b
}

// WithRemoteURL sets the remote decode service endpoint.
func (b *Builder) WithRemoteURL(url string) *Builder {
	if url != "" {
		b.cfg.Decoder.RemoteURL = url
	}
	return b
}

// WithEngineBackend selects the image-processing backend by name.
func (b *Builder) WithEngineBackend(name string) *Builder {
	if name != "" {
		b.cfg.Engine.Backend = name
	}
	return b
}

// WithMagickPath overrides the ImageMagick binary.
func (b *Builder) WithMagickPath(path string) *Builder {
	if path != "" {
		b.cfg.Engine.MagickPath = path
	}
	return b
}

// WithDecoder injects a decoder directly, bypassing backend selection.
// Used by tests to run the orchestrator against fakes.
func (b *Builder) WithDecoder(d decoder.Decoder) *Builder {
	b.dec = d
	return b
}

// WithEngine injects an engine directly, bypassing backend selection.
func (b *Builder) WithEngine(e preprocess.Engine) *Builder {
	b.eng = e
	return b
}

// WithProfiles overrides the decode profile list.
func (b *Builder) WithProfiles(profiles []decoder.Profile) *Builder {
	if len(profiles) > 0 {
		b.profiles = profiles
	}
	return b
}

// WithProgressCallback sets a callback invoked before every attempt.
func (b *Builder) WithProgressCallback(cb ProgressCallback) *Builder {
	b.progress = cb
	return b
}

// Build assembles the pipeline, constructing backends from configuration
// unless they were injected.
func (b *Builder) Build() (*Pipeline, error) {
	cfg := b.cfg

	dec := b.dec
	if dec == nil {
		var err error
		dec, err = buildDecoder(cfg.Decoder)
		if err != nil {
			return nil, err
		}
	}

	profiles := b.profiles
	if cfg.Decoder.Backend == BackendRemote && b.dec == nil {
		// One upload, one attempt, no local preprocessing.
		cfg.Preprocess = false
		if profiles == nil {
			profiles = decoder.SingleProfile()
		}
	}
	if profiles == nil {
		profiles = decoder.DefaultProfiles()
	}

	eng := b.eng
	if eng == nil && cfg.Preprocess {
		var err error
		eng, err = buildEngine(cfg.Engine)
		if err != nil {
			return nil, err
		}
	}

	return &Pipeline{
		cfg:      cfg,
		dec:      dec,
		eng:      eng,
		profiles: profiles,
		progress: b.progress,
	}, nil
}

func buildDecoder(cfg DecoderConfig) (decoder.Decoder, error) {
	switch cfg.Backend {
	case BackendZbar, "":
		return decoder.NewZbarDecoder(cfg.ZbarPath), nil
	case BackendGozxing:
		return decoder.NewGozxingDecoder(), nil
	case BackendRemote:
		if cfg.RemoteURL == "" {
			return nil, errors.New("remote decoder backend requires a URL")
		}
		return decoder.NewRemoteDecoder(cfg.RemoteURL, nil), nil
	default:
		return nil, fmt.Errorf("unknown decoder backend: %q", cfg.Backend)
	}
}

func buildEngine(cfg EngineConfig) (preprocess.Engine, error) {
	switch cfg.Backend {
	case EngineMagick, "":
		return preprocess.NewMagickEngine(cfg.MagickPath), nil
	case EngineImaging:
		return preprocess.NewImagingEngine(), nil
	default:
		return nil, fmt.Errorf("unknown engine backend: %q", cfg.Backend)
	}
}

// Close releases pipeline resources. Present for symmetry with callers that
// manage the pipeline lifecycle; current backends hold none.
func (p *Pipeline) Close() error { return nil }
