package decoder

import (
	"context"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/aztec"
	"github.com/makiuchi-d/gozxing/datamatrix"
	multiqr "github.com/makiuchi-d/gozxing/multi/qrcode"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/MeKo-Tech/codescan/internal/scan"
)

// GozxingDecoder decodes in-process using the gozxing library. It emits the
// same newline-delimited textual form as the subprocess decoder so a single
// parser covers both backends.
type GozxingDecoder struct{}

// NewGozxingDecoder creates an in-process decoder backend.
func NewGozxingDecoder() *GozxingDecoder { return &GozxingDecoder{} }

func (d *GozxingDecoder) Decode(ctx context.Context, imagePath string, profile Profile) (string, error) {
	img, err := loadImage(imagePath)
	if err != nil {
		return "", &ProfileError{Profile: profile.Name, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return "", &ProfileError{Profile: profile.Name, Err: err}
	}

	source := gozxing.NewLuminanceSourceFromImage(img)
	bitmap, err := gozxing.NewBinaryBitmap(gozxing.NewHybridBinarizer(source))
	if err != nil {
		return "", &ProfileError{Profile: profile.Name, Err: err}
	}

	hints := make(map[gozxing.DecodeHintType]interface{})
	if profile.TryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}

	var results []*gozxing.Result
	if profile.Multi {
		// The library multi-reads QR codes only; other formats fall back to
		// the single-shot readers below.
		if multiRes, merr := multiqr.NewQRCodeMultiReader().DecodeMultiple(bitmap, hints); merr == nil {
			results = multiRes
		}
	}
	if len(results) == 0 {
		if r := decodeFirst(bitmap, hints, profile.QROnly); r != nil {
			results = []*gozxing.Result{r}
		}
	}
	if len(results) == 0 {
		// gozxing reports NotFound as an error; treat it as "no result".
		return "", nil
	}

	var sb strings.Builder
	for _, r := range results {
		if r.GetBarcodeFormat() == gozxing.BarcodeFormat_QR_CODE {
			sb.WriteString(scan.QRPrefix)
		} else {
			sb.WriteString(formatLabel(r.GetBarcodeFormat()))
			sb.WriteString(":")
		}
		sb.WriteString(r.GetText())
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// decodeFirst runs the format readers in order and returns the first hit.
// There is no multi-format reader in the library, so formats are consulted
// one by one, 2D first.
func decodeFirst(
	bitmap *gozxing.BinaryBitmap,
	hints map[gozxing.DecodeHintType]interface{},
	qrOnly bool,
) *gozxing.Result {
	for _, reader := range formatReaders(qrOnly, hints) {
		var r *gozxing.Result
		var err error
		if len(hints) > 0 {
			r, err = reader.Decode(bitmap, hints)
		} else {
			r, err = reader.DecodeWithoutHints(bitmap)
		}
		if err == nil && r != nil {
			return r
		}
	}
	return nil
}

func formatReaders(qrOnly bool, hints map[gozxing.DecodeHintType]interface{}) []gozxing.Reader {
	readers := []gozxing.Reader{qrcode.NewQRCodeReader()}
	if qrOnly {
		return readers
	}
	return append(readers,
		datamatrix.NewDataMatrixReader(),
		aztec.NewAztecReader(),
		oned.NewMultiFormatUPCEANReader(hints),
		oned.NewCode128Reader(),
		oned.NewCode39Reader(),
		oned.NewCode93Reader(),
		oned.NewITFReader(),
		oned.NewCodaBarReader(),
	)
}

// formatLabel maps gozxing formats onto the zbar-style line prefix.
func formatLabel(f gozxing.BarcodeFormat) string {
	switch f {
	case gozxing.BarcodeFormat_EAN_8:
		return "EAN-8"
	case gozxing.BarcodeFormat_EAN_13:
		return "EAN-13"
	case gozxing.BarcodeFormat_UPC_A:
		return "UPC-A"
	case gozxing.BarcodeFormat_UPC_E:
		return "UPC-E"
	case gozxing.BarcodeFormat_CODE_39:
		return "CODE-39"
	case gozxing.BarcodeFormat_CODE_93:
		return "CODE-93"
	case gozxing.BarcodeFormat_CODE_128:
		return "CODE-128"
	case gozxing.BarcodeFormat_ITF:
		return "I2/5"
	case gozxing.BarcodeFormat_CODABAR:
		return "CODABAR"
	case gozxing.BarcodeFormat_DATA_MATRIX:
		return "DATA-MATRIX"
	case gozxing.BarcodeFormat_AZTEC:
		return "AZTEC"
	default:
		return "CODE"
	}
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path) //nolint:gosec // G304: decoding a caller-provided artifact path is expected
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	return img, err
}
