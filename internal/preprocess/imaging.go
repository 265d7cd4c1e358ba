package preprocess

import (
	"context"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// ImagingEngine performs transforms in-process with the imaging library.
// It has no deskew; that strategy reports ErrUnsupported and the
// orchestrator moves on.
type ImagingEngine struct{}

// NewImagingEngine creates an in-process engine backend.
func NewImagingEngine() *ImagingEngine { return &ImagingEngine{} }

func (e *ImagingEngine) Apply(ctx context.Context, s Strategy, inPath, outPath string) error {
	if err := ctx.Err(); err != nil {
		return &ProcessingError{Strategy: s.String(), Err: err}
	}

	if s == StrategyAutoOrient {
		// EXIF-driven orientation happens at load time.
		img, err := imaging.Open(inPath, imaging.AutoOrientation(true))
		if err != nil {
			return &ProcessingError{Strategy: s.String(), Err: err}
		}
		return e.save(s.String(), img, outPath)
	}

	img, err := imaging.Open(inPath)
	if err != nil {
		return &ProcessingError{Strategy: s.String(), Err: err}
	}

	var out image.Image
	switch s {
	case StrategyDeskew:
		return &ProcessingError{Strategy: s.String(), Err: ErrUnsupported}
	case StrategySharpen:
		out = imaging.Sharpen(img, 2.0)
	case StrategyContrast:
		out = imaging.AdjustContrast(img, 25)
	case StrategyUpscaleBlur:
		upscaled := imaging.Resize(img, img.Bounds().Dx()*3, 0, imaging.Lanczos)
		out = imaging.Blur(upscaled, 1.0)
	case StrategyBlur:
		out = imaging.Blur(img, 2.0)
	default:
		return &ProcessingError{Strategy: s.String(), Err: ErrUnsupported}
	}

	return e.save(s.String(), out, outPath)
}

func (e *ImagingEngine) Rotate(ctx context.Context, angle int, inPath, outPath string) error {
	label := "rotate"
	if err := ctx.Err(); err != nil {
		return &ProcessingError{Strategy: label, Err: err}
	}

	img, err := imaging.Open(inPath)
	if err != nil {
		return &ProcessingError{Strategy: label, Err: err}
	}

	// imaging rotates counter-clockwise; the catalog angles are clockwise.
	var out image.Image
	switch ((angle % 360) + 360) % 360 {
	case 0:
		out = imaging.Clone(img)
	case 90:
		out = imaging.Rotate270(img)
	case 180:
		out = imaging.Rotate180(img)
	case 270:
		out = imaging.Rotate90(img)
	default:
		out = imaging.Rotate(img, -float64(angle), color.Black)
	}

	return e.save(label, out, outPath)
}

func (e *ImagingEngine) save(label string, img image.Image, outPath string) error {
	if err := imaging.Save(img, outPath); err != nil {
		return &ProcessingError{Strategy: label, Err: err}
	}
	return nil
}
