package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/codescan/internal/pipeline"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow connections from any origin in development
		// In production, you should check against allowed origins
		return true
	},
}

// WebSocketScanRequest is a scan request sent by the client. Image carries
// the raw file bytes (base64 in the JSON encoding).
type WebSocketScanRequest struct {
	Image    []byte `json:"image"`
	Filename string `json:"filename,omitempty"`
}

// WebSocketScanResponse is streamed back to the client: one message per
// pipeline attempt, then a terminal completed/error message.
type WebSocketScanResponse struct {
	Type   string `json:"type"`
	Status string `json:"status"` // processing, completed, error
	Stage  string `json:"stage,omitempty"`
	Detail string `json:"detail,omitempty"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// scanWebSocketHandler streams pipeline progress over a WebSocket while a
// scan runs, then delivers the final result on the same connection.
func (s *Server) scanWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		s.handleWebSocketScan(r, conn, data)
	}
}

func (s *Server) handleWebSocketScan(r *http.Request, conn *websocket.Conn, data []byte) {
	var req WebSocketScanRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(conn, "invalid request: "+err.Error())
		return
	}
	if len(req.Image) == 0 {
		s.sendWebSocketError(conn, "no image data provided")
		return
	}
	if int64(len(req.Image)) > s.maxUploadMB*megabyte {
		s.sendWebSocketError(conn, "image too large")
		return
	}

	upload, err := os.CreateTemp(s.workDir, "ws-upload-*"+uploadExtension(req.Filename, req.Image))
	if err != nil {
		s.sendWebSocketError(conn, "failed to store image")
		return
	}
	uploadPath := upload.Name()
	defer func() { _ = os.Remove(uploadPath) }()

	if _, err := upload.Write(req.Image); err != nil {
		_ = upload.Close()
		s.sendWebSocketError(conn, "failed to store image")
		return
	}
	_ = upload.Close()

	results, err := s.pipeline.ScanWithProgress(r.Context(), uploadPath, func(stage, detail string) {
		scanAttemptsTotal.WithLabelValues(stage).Inc()
		s.sendWebSocketResponse(conn, WebSocketScanResponse{
			Type:   "scan_progress",
			Status: "processing",
			Stage:  stage,
			Detail: detail,
		})
	})
	if err != nil {
		if errors.Is(err, pipeline.ErrNoCode) {
			scanRequestsTotal.WithLabelValues("websocket", "no_code").Inc()
		} else {
			scanRequestsTotal.WithLabelValues("websocket", "error").Inc()
		}
		s.sendWebSocketError(conn, err.Error())
		return
	}

	scanRequestsTotal.WithLabelValues("websocket", "success").Inc()
	s.sendWebSocketResponse(conn, WebSocketScanResponse{
		Type:   "scan_result",
		Status: "completed",
		Result: scanPayload(results),
	})
}

// uploadExtension picks the spool-file extension for a WebSocket upload.
// The image readers key off the extension, so the client filename wins and
// the content type is sniffed when no filename was sent.
func uploadExtension(filename string, data []byte) string {
	if ext := filepath.Ext(filename); ext != "" {
		return ext
	}
	switch http.DetectContentType(data) {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/bmp":
		return ".bmp"
	case "image/webp":
		return ".webp"
	case "application/pdf":
		return ".pdf"
	default:
		return ".bin"
	}
}

func (s *Server) sendWebSocketResponse(conn *websocket.Conn, resp WebSocketScanResponse) {
	payload, err := json.Marshal(resp)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		slog.Error("Failed to write WebSocket message", "error", err)
	}
}

func (s *Server) sendWebSocketError(conn *websocket.Conn, message string) {
	s.sendWebSocketResponse(conn, WebSocketScanResponse{
		Type:   "scan_result",
		Status: "error",
		Error:  message,
	})
}
