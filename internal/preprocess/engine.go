package preprocess

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnsupported is returned by engines that cannot perform a given
// strategy. The orchestrator treats it like any other processing failure and
// skips the strategy.
var ErrUnsupported = errors.New("strategy not supported by this engine")

// ProcessingError wraps a failed transform for a single strategy.
type ProcessingError struct {
	Strategy string
	Err      error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("preprocessing %q failed: %v", e.Strategy, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// Engine applies image transforms, producing new artifacts.
//
// The caller chooses outPath so artifact lifecycles stay owned by the
// orchestration run: the output is registered for cleanup before the engine
// ever touches it. Both methods fail with *ProcessingError.
type Engine interface {
	// Apply runs a catalog strategy on inPath and writes the result to outPath.
	Apply(ctx context.Context, s Strategy, inPath, outPath string) error

	// Rotate rotates the image clockwise by angle degrees.
	Rotate(ctx context.Context, angle int, inPath, outPath string) error
}
