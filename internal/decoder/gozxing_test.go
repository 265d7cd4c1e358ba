package decoder

import (
	"context"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/codescan/internal/scan"
)

// writeBarcodePNG encodes contents in the given format and writes the
// rendered matrix as a PNG fixture.
func writeBarcodePNG(t *testing.T, w gozxing.Writer, contents string, format gozxing.BarcodeFormat, width, height int) string {
	t.Helper()

	matrix, err := w.EncodeWithoutHint(contents, format, width, height)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "code.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, matrix))
	require.NoError(t, f.Close())
	return path
}

func TestGozxingDecoder_QRCode(t *testing.T) {
	path := writeBarcodePNG(t, qrcode.NewQRCodeWriter(), "HELLO-GOZXING", gozxing.BarcodeFormat_QR_CODE, 200, 200)
	d := NewGozxingDecoder()

	raw, err := d.Decode(context.Background(), path, Profile{Name: "default"})
	require.NoError(t, err)
	assert.Equal(t, "QR-Code:HELLO-GOZXING\n", raw)

	results := scan.ParseRawOutput(raw)
	require.Len(t, results, 1)
	assert.Equal(t, scan.SymbolQRCode, results[0].Symbol)
	assert.Equal(t, "HELLO-GOZXING", results[0].Data)
}

func TestGozxingDecoder_EAN13(t *testing.T) {
	path := writeBarcodePNG(t, oned.NewEAN13Writer(), "4006381333931", gozxing.BarcodeFormat_EAN_13, 300, 100)
	d := NewGozxingDecoder()

	raw, err := d.Decode(context.Background(), path, Profile{Name: "default"})
	require.NoError(t, err)
	assert.Equal(t, "EAN-13:4006381333931\n", raw)
}

func TestGozxingDecoder_QROnlyProfileSkipsBarcodes(t *testing.T) {
	path := writeBarcodePNG(t, oned.NewEAN13Writer(), "4006381333931", gozxing.BarcodeFormat_EAN_13, 300, 100)
	d := NewGozxingDecoder()

	raw, err := d.Decode(context.Background(), path, Profile{Name: "qr-dense", QROnly: true})
	require.NoError(t, err)
	assert.Empty(t, raw, "QR-only profile must not report 1D codes")
}

func TestGozxingDecoder_BlankImageIsNoResult(t *testing.T) {
	// A uniform image carries no code; that is "nothing found", not an error.
	matrix, err := gozxing.NewBitMatrix(120, 120)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "blank.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, matrix))
	require.NoError(t, f.Close())

	d := NewGozxingDecoder()
	raw, err := d.Decode(context.Background(), path, Profile{Name: "default"})
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestGozxingDecoder_MissingFile(t *testing.T) {
	d := NewGozxingDecoder()

	_, err := d.Decode(context.Background(), "/nonexistent/code.png", Profile{Name: "default"})
	require.Error(t, err)

	var perr *ProfileError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "default", perr.Profile)
}
