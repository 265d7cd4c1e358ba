package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/codescan/internal/pipeline"
)

const megabyte = 1024 * 1024

// scanImageHandler processes image scan requests: one multipart upload in,
// one decoded result (or error) out.
func (s *Server) scanImageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uploadPath, ok := s.receiveUpload(w, r, "image", isImageUpload)
	if !ok {
		scanRequestsTotal.WithLabelValues("image", "rejected").Inc()
		return // error already written
	}
	// The uploaded file belongs to the handler, not the pipeline.
	defer func() { _ = os.Remove(uploadPath) }()

	start := time.Now()
	results, err := s.pipeline.Scan(r.Context(), uploadPath)
	duration := time.Since(start)

	if err != nil {
		if errors.Is(err, pipeline.ErrNoCode) {
			scanRequestsTotal.WithLabelValues("image", "no_code").Inc()
			s.writeErrorResponse(w, pipeline.ErrNoCode.Error(), http.StatusBadRequest)
			return
		}
		scanRequestsTotal.WithLabelValues("image", "error").Inc()
		slog.Error("Scan failed", "error", err)
		s.writeErrorResponse(w, "scan failed", http.StatusInternalServerError)
		return
	}

	scanRequestsTotal.WithLabelValues("image", "success").Inc()
	scanDuration.WithLabelValues("image").Observe(duration.Seconds())
	codesDecoded.WithLabelValues("image").Observe(float64(len(results)))

	s.writeJSON(w, http.StatusOK, scanPayload(results))
}

// scanPDFHandler scans every page image of an uploaded PDF.
func (s *Server) scanPDFHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uploadPath, ok := s.receiveUpload(w, r, "pdf", isPDFUpload)
	if !ok {
		scanRequestsTotal.WithLabelValues("pdf", "rejected").Inc()
		return
	}
	defer func() { _ = os.Remove(uploadPath) }()

	pageRange := r.FormValue("pages")

	start := time.Now()
	pages, err := s.pipeline.ScanPDF(r.Context(), uploadPath, pageRange)
	duration := time.Since(start)

	if err != nil {
		if errors.Is(err, pipeline.ErrNoCode) {
			scanRequestsTotal.WithLabelValues("pdf", "no_code").Inc()
			s.writeErrorResponse(w, pipeline.ErrNoCode.Error(), http.StatusBadRequest)
			return
		}
		scanRequestsTotal.WithLabelValues("pdf", "error").Inc()
		slog.Error("PDF scan failed", "error", err)
		s.writeErrorResponse(w, "scan failed", http.StatusInternalServerError)
		return
	}

	scanRequestsTotal.WithLabelValues("pdf", "success").Inc()
	scanDuration.WithLabelValues("pdf").Observe(duration.Seconds())

	s.writeJSON(w, http.StatusOK, PDFScanResponse{Pages: pages})
}

// receiveUpload validates the multipart upload in field and spools it to the
// work directory. On failure the HTTP error has already been written and the
// second return is false.
func (s *Server) receiveUpload(
	w http.ResponseWriter,
	r *http.Request,
	field string,
	accept func(*multipart.FileHeader) bool,
) (string, bool) {
	limit := s.maxUploadMB * megabyte
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		} else {
			s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		}
		return "", false
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		s.writeErrorResponse(w, fmt.Sprintf("No %s file provided", field), http.StatusBadRequest)
		return "", false
	}
	defer func() { _ = file.Close() }()

	if header.Size > limit {
		s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		return "", false
	}
	if !accept(header) {
		s.writeErrorResponse(w, "Unsupported file type", http.StatusBadRequest)
		return "", false
	}

	uploadSizeBytes.Observe(float64(header.Size))

	ext := filepath.Ext(header.Filename)
	if ext == "" {
		ext = ".bin"
	}
	dst, err := os.CreateTemp(s.workDir, "upload-*"+ext)
	if err != nil {
		s.writeErrorResponse(w, "Failed to store upload", http.StatusInternalServerError)
		return "", false
	}

	_, copyErr := io.Copy(dst, file)
	closeErr := dst.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(dst.Name())
		s.writeErrorResponse(w, "Failed to store upload", http.StatusInternalServerError)
		return "", false
	}

	return dst.Name(), true
}

func isImageUpload(header *multipart.FileHeader) bool {
	contentType := header.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "image/") {
		return true
	}
	// Some clients omit the part content type; fall back to the extension.
	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return contentType == "" || contentType == "application/octet-stream"
	}
	return false
}

func isPDFUpload(header *multipart.FileHeader) bool {
	contentType := header.Header.Get("Content-Type")
	if contentType == "application/pdf" {
		return true
	}
	return strings.EqualFold(filepath.Ext(header.Filename), ".pdf") &&
		(contentType == "" || contentType == "application/octet-stream")
}
