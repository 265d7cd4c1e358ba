package preprocess

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
)

// MagickEngine shells out to ImageMagick for pixel work.
type MagickEngine struct {
	binary string
}

// NewMagickEngine creates a subprocess engine. An empty binary falls back to
// "convert" resolved from PATH (the classic ImageMagick entrypoint; pass
// "magick" for IMv7 installs).
func NewMagickEngine(binary string) *MagickEngine {
	if binary == "" {
		binary = "convert"
	}
	return &MagickEngine{binary: binary}
}

// magickArgs is the strategy dispatch table: one fixed argument list per
// catalog entry, no captured state.
func magickArgs(s Strategy) ([]string, error) {
	switch s {
	case StrategyAutoOrient:
		return []string{"-auto-orient"}, nil
	case StrategyDeskew:
		return []string{"-deskew", "40%", "+repage"}, nil
	case StrategySharpen:
		return []string{"-sharpen", "0x3"}, nil
	case StrategyContrast:
		return []string{"-sigmoidal-contrast", "3x50%"}, nil
	case StrategyUpscaleBlur:
		return []string{"-resize", "300%", "-gaussian-blur", "0x1"}, nil
	case StrategyBlur:
		return []string{"-gaussian-blur", "0x2"}, nil
	default:
		return nil, ErrUnsupported
	}
}

func (e *MagickEngine) Apply(ctx context.Context, s Strategy, inPath, outPath string) error {
	args, err := magickArgs(s)
	if err != nil {
		return &ProcessingError{Strategy: s.String(), Err: err}
	}
	return e.run(ctx, s.String(), inPath, outPath, args)
}

func (e *MagickEngine) Rotate(ctx context.Context, angle int, inPath, outPath string) error {
	label := "rotate-" + strconv.Itoa(angle)
	return e.run(ctx, label, inPath, outPath, []string{"-rotate", strconv.Itoa(angle)})
}

func (e *MagickEngine) run(ctx context.Context, label, inPath, outPath string, args []string) error {
	argv := make([]string, 0, len(args)+2)
	argv = append(argv, inPath)
	argv = append(argv, args...)
	argv = append(argv, outPath)

	cmd := exec.CommandContext(ctx, e.binary, argv...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return &ProcessingError{Strategy: label, Err: ctxErr}
		}
		return &ProcessingError{
			Strategy: label,
			Err:      fmt.Errorf("%s: %w (stderr: %s)", e.binary, err, stderr.String()),
		}
	}
	return nil
}
