package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/codescan/internal/pipeline"
	"github.com/MeKo-Tech/codescan/internal/scan"
)

// fakePipeline implements scanPipeline with canned results.
type fakePipeline struct {
	results    []scan.Result
	pages      []pipeline.PDFPageResult
	err        error
	scanned    []string
	progressed bool
}

func (f *fakePipeline) Scan(_ context.Context, imagePath string) ([]scan.Result, error) {
	f.scanned = append(f.scanned, imagePath)
	return f.results, f.err
}

func (f *fakePipeline) ScanWithProgress(
	ctx context.Context,
	imagePath string,
	cb pipeline.ProgressCallback,
) ([]scan.Result, error) {
	if cb != nil {
		f.progressed = true
		cb(pipeline.StageOriginal, "original")
	}
	return f.Scan(ctx, imagePath)
}

func (f *fakePipeline) ScanPDF(_ context.Context, filename, _ string) ([]pipeline.PDFPageResult, error) {
	f.scanned = append(f.scanned, filename)
	return f.pages, f.err
}

func (f *fakePipeline) Close() error { return nil }

func newTestServer(t *testing.T, fake *fakePipeline) *Server {
	t.Helper()
	return &Server{
		pipeline:    fake,
		corsOrigin:  "*",
		maxUploadMB: 10,
		workDir:     t.TempDir(),
	}
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.Gray{Y: uint8(x * 32)})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// multipartBody builds a multipart form with a single file part.
func multipartBody(t *testing.T, field, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func TestServer_ScanImageHandler_SingleResult(t *testing.T) {
	fake := &fakePipeline{results: []scan.Result{{Symbol: scan.SymbolQRCode, Data: "HELLO"}}}
	server := newTestServer(t, fake)

	body, contentType := multipartBody(t, "image", "code.png", "image/png", testPNG(t))
	req := httptest.NewRequest("POST", "/scan", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	server.scanImageHandler(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"symbolType":"qrcode","data":"HELLO"}`, w.Body.String())
	require.Len(t, fake.scanned, 1)

	// The spooled upload must be cleaned up once the request is served.
	_, err := os.Stat(fake.scanned[0])
	assert.True(t, os.IsNotExist(err))
}

func TestServer_ScanImageHandler_MultipleResults(t *testing.T) {
	fake := &fakePipeline{results: []scan.Result{
		{Symbol: scan.SymbolQRCode, Data: "first"},
		{Symbol: scan.SymbolBarcode, Data: "second"},
	}}
	server := newTestServer(t, fake)

	body, contentType := multipartBody(t, "image", "codes.jpg", "image/jpeg", testPNG(t))
	req := httptest.NewRequest("POST", "/scan", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	server.scanImageHandler(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response MultipleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Multiple, 2)
	assert.Equal(t, "first", response.Multiple[0].Data)
	assert.Equal(t, "second", response.Multiple[1].Data)
}

func TestServer_ScanImageHandler_NoCode(t *testing.T) {
	fake := &fakePipeline{err: pipeline.ErrNoCode}
	server := newTestServer(t, fake)

	body, contentType := multipartBody(t, "image", "blank.png", "image/png", testPNG(t))
	req := httptest.NewRequest("POST", "/scan", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	server.scanImageHandler(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Contains(t, response.Error, "no barcode or qr code")
}

func TestServer_ScanImageHandler_PipelineError(t *testing.T) {
	fake := &fakePipeline{err: errors.New("decoder binary missing")}
	server := newTestServer(t, fake)

	body, contentType := multipartBody(t, "image", "code.png", "image/png", testPNG(t))
	req := httptest.NewRequest("POST", "/scan", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	server.scanImageHandler(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	// Internal detail must not leak into the response body.
	assert.NotContains(t, w.Body.String(), "decoder binary missing")
}

func TestServer_ScanImageHandler_NoFile(t *testing.T) {
	server := newTestServer(t, &fakePipeline{})

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("note", "no file here"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/scan", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()

	server.scanImageHandler(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "No image file provided")
}

func TestServer_ScanImageHandler_UnsupportedType(t *testing.T) {
	server := newTestServer(t, &fakePipeline{})

	body, contentType := multipartBody(t, "image", "notes.txt", "text/plain", []byte("hello"))
	req := httptest.NewRequest("POST", "/scan", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	server.scanImageHandler(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Unsupported file type")
}

func TestServer_ScanImageHandler_TooLarge(t *testing.T) {
	fake := &fakePipeline{}
	server := newTestServer(t, fake)
	server.maxUploadMB = 1

	big := make([]byte, 2*megabyte)
	body, contentType := multipartBody(t, "image", "huge.png", "image/png", big)
	req := httptest.NewRequest("POST", "/scan", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	server.scanImageHandler(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Empty(t, fake.scanned)
}

func TestServer_ScanImageHandler_RejectedUploadMetric(t *testing.T) {
	server := newTestServer(t, &fakePipeline{})

	rejected := scanRequestsTotal.WithLabelValues("image", "rejected")
	errored := scanRequestsTotal.WithLabelValues("image", "error")
	rejectedBefore := testutil.ToFloat64(rejected)
	erroredBefore := testutil.ToFloat64(errored)

	body, contentType := multipartBody(t, "image", "notes.txt", "text/plain", []byte("plain text"))
	req := httptest.NewRequest("POST", "/scan", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	server.scanImageHandler(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)

	// Client-side rejections must not inflate the error count.
	assert.Equal(t, rejectedBefore+1, testutil.ToFloat64(rejected))
	assert.Equal(t, erroredBefore, testutil.ToFloat64(errored))
}

func TestServer_ScanImageHandler_MethodNotAllowed(t *testing.T) {
	server := newTestServer(t, &fakePipeline{})

	req := httptest.NewRequest("GET", "/scan", nil)
	w := httptest.NewRecorder()

	server.scanImageHandler(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestServer_ScanPDFHandler(t *testing.T) {
	fake := &fakePipeline{pages: []pipeline.PDFPageResult{
		{Page: 1, Codes: []scan.Result{{Symbol: scan.SymbolBarcode, Data: "123"}}},
	}}
	server := newTestServer(t, fake)

	body, contentType := multipartBody(t, "pdf", "doc.pdf", "application/pdf", []byte("%PDF-1.4"))
	req := httptest.NewRequest("POST", "/scan/pdf", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	server.scanPDFHandler(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response PDFScanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Pages, 1)
	assert.Equal(t, 1, response.Pages[0].Page)
	assert.Equal(t, "123", response.Pages[0].Codes[0].Data)
}

func TestServer_ScanPDFHandler_WrongType(t *testing.T) {
	server := newTestServer(t, &fakePipeline{})

	body, contentType := multipartBody(t, "pdf", "image.png", "image/png", testPNG(t))
	req := httptest.NewRequest("POST", "/scan/pdf", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	server.scanPDFHandler(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Unsupported file type")
}

func TestIsImageUpload(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		contentType string
		want        bool
	}{
		{"png content type", "a.png", "image/png", true},
		{"jpeg content type", "a.jpg", "image/jpeg", true},
		{"extension fallback", "a.png", "", true},
		{"octet stream with image extension", "a.tiff", "application/octet-stream", true},
		{"text file", "a.txt", "text/plain", false},
		{"pdf", "a.pdf", "application/pdf", false},
		{"image content type wins over extension", "a.dat", "image/webp", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := &multipart.FileHeader{Filename: tt.filename}
			header.Header = make(textproto.MIMEHeader)
			if tt.contentType != "" {
				header.Header.Set("Content-Type", tt.contentType)
			}
			assert.Equal(t, tt.want, isImageUpload(header))
		})
	}
}
