package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/codescan/internal/preprocess"
	"github.com/MeKo-Tech/codescan/internal/scan"
)

// ErrNoCode is returned when every strategy and profile is exhausted without
// finding a code. It maps to HTTP 400, not 500.
var ErrNoCode = errors.New("no barcode or qr code detected")

// ProgressCallback is invoked before every attempt with the stage name and a
// stage-specific detail (strategy name or rotation angle).
type ProgressCallback func(stage, detail string)

// Stage names reported through ProgressCallback.
const (
	StageOriginal       = "original"
	StageRotation       = "rotation"
	StageManualRotation = "manual-rotation"
	StageEnhancement    = "enhancement"
	StageDenoise        = "denoise"
)

// Scan runs the full retry sequence against the image at imagePath and
// returns the first successful decode. The uploaded image itself belongs to
// the caller; every intermediate artifact is removed before Scan returns, on
// every path.
func (p *Pipeline) Scan(ctx context.Context, imagePath string) ([]scan.Result, error) {
	return p.ScanWithProgress(ctx, imagePath, p.progress)
}

// ScanWithProgress is Scan with a per-call progress callback.
func (p *Pipeline) ScanWithProgress(
	ctx context.Context,
	imagePath string,
	cb ProgressCallback,
) ([]scan.Result, error) {
	artifacts := preprocess.NewCleanupSet()
	defer artifacts.RemoveAll()

	emit(cb, StageOriginal, "")
	res, err := p.tryDecode(ctx, imagePath)
	if err != nil || res != nil {
		return res, err
	}

	if !p.cfg.Preprocess {
		return nil, ErrNoCode
	}

	for _, s := range preprocess.CatalogByClass(preprocess.ClassRotation) {
		emit(cb, StageRotation, s.String())
		res, err := p.tryStrategy(ctx, artifacts, imagePath, s)
		if err != nil || res != nil {
			return res, err
		}
	}

	for _, angle := range preprocess.ManualRotationAngles() {
		emit(cb, StageManualRotation, strconv.Itoa(angle))
		res, err := p.tryRotation(ctx, artifacts, imagePath, angle)
		if err != nil || res != nil {
			return res, err
		}
	}

	for _, stage := range []struct {
		name  string
		class preprocess.Class
	}{
		{StageEnhancement, preprocess.ClassEnhancement},
		{StageDenoise, preprocess.ClassDenoise},
	} {
		for _, s := range preprocess.CatalogByClass(stage.class) {
			emit(cb, stage.name, s.String())
			res, err := p.tryStrategy(ctx, artifacts, imagePath, s)
			if err != nil || res != nil {
				return res, err
			}
		}
	}

	return nil, ErrNoCode
}

// tryStrategy preprocesses with one strategy and attempts to decode the
// result. Processing failures are logged and skipped; only context
// cancellation and artifact bookkeeping failures propagate.
func (p *Pipeline) tryStrategy(
	ctx context.Context,
	artifacts *preprocess.CleanupSet,
	imagePath string,
	s preprocess.Strategy,
) ([]scan.Result, error) {
	outPath, err := preprocess.ArtifactPath(p.cfg.WorkDir, imagePath, s.String())
	if err != nil {
		return nil, err
	}
	// Track before the engine runs so partial output is removed too.
	artifacts.Add(outPath)

	attemptCtx, cancel := context.WithTimeout(ctx, p.cfg.AttemptTimeout)
	err = p.eng.Apply(attemptCtx, s, imagePath, outPath)
	cancel()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		slog.Warn("Preprocessing strategy failed, skipping", "strategy", s.String(), "error", err)
		return nil, nil
	}

	return p.tryDecode(ctx, outPath)
}

// tryRotation preprocesses with a fixed manual rotation and attempts to
// decode the result.
func (p *Pipeline) tryRotation(
	ctx context.Context,
	artifacts *preprocess.CleanupSet,
	imagePath string,
	angle int,
) ([]scan.Result, error) {
	label := "rotate" + strconv.Itoa(angle)
	outPath, err := preprocess.ArtifactPath(p.cfg.WorkDir, imagePath, label)
	if err != nil {
		return nil, err
	}
	artifacts.Add(outPath)

	attemptCtx, cancel := context.WithTimeout(ctx, p.cfg.AttemptTimeout)
	err = p.eng.Rotate(attemptCtx, angle, imagePath, outPath)
	cancel()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		slog.Warn("Manual rotation failed, skipping", "angle", angle, "error", err)
		return nil, nil
	}

	return p.tryDecode(ctx, outPath)
}

// tryDecode runs the profile list against one artifact. A profile invocation
// failure is logged and the next profile is tried; empty output after every
// profile returns (nil, nil) so the orchestrator moves to the next strategy.
func (p *Pipeline) tryDecode(ctx context.Context, imagePath string) ([]scan.Result, error) {
	for _, profile := range p.profiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		attemptCtx, cancel := context.WithTimeout(ctx, p.cfg.AttemptTimeout)
		raw, err := p.dec.Decode(attemptCtx, imagePath, profile)
		cancel()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			slog.Warn("Decode profile failed, skipping", "profile", profile.Name, "error", err)
			continue
		}
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if results := scan.ParseRawOutput(raw); len(results) > 0 {
			return results, nil
		}
	}
	return nil, nil
}

func emit(cb ProgressCallback, stage, detail string) {
	if cb != nil {
		cb(stage, detail)
	}
}
