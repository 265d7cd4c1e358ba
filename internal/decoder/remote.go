package decoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/codescan/internal/scan"
)

// RemoteDecoder posts the image to an external HTTP decoding service.
// The service accepts a multipart upload and answers with
// {"data":[{"symbol":[{"type":...,"data":...},...]}]}. All fields are treated
// as optional; a malformed or empty response is "no result", not a failure.
type RemoteDecoder struct {
	url    string
	client *http.Client
}

// NewRemoteDecoder creates a decoder backed by the service at url.
// A nil client uses http.DefaultClient; per-attempt deadlines come from the
// caller's context either way.
func NewRemoteDecoder(url string, client *http.Client) *RemoteDecoder {
	if client == nil {
		client = http.DefaultClient
	}
	return &RemoteDecoder{url: url, client: client}
}

type remoteSymbol struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

type remoteEntry struct {
	Symbol []remoteSymbol `json:"symbol"`
}

type remoteResponse struct {
	Data []remoteEntry `json:"data"`
}

func (d *RemoteDecoder) Decode(ctx context.Context, imagePath string, profile Profile) (string, error) {
	body, contentType, err := buildUploadBody(imagePath)
	if err != nil {
		return "", &ProfileError{Profile: profile.Name, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, body)
	if err != nil {
		return "", &ProfileError{Profile: profile.Name, Err: err}
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", &ProfileError{Profile: profile.Name, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", &ProfileError{
			Profile: profile.Name,
			Err:     fmt.Errorf("remote decoder returned status %d", resp.StatusCode),
		}
	}

	var parsed remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &ProfileError{Profile: profile.Name, Err: fmt.Errorf("malformed response: %w", err)}
	}

	return renderRemoteLines(parsed), nil
}

// renderRemoteLines flattens the provider payload into the common
// newline-delimited form. The provider's data field is the payload and is
// passed through untouched; only QR symbols gain the QR marker prefix, since
// barcode lines are kept verbatim by the parser.
func renderRemoteLines(parsed remoteResponse) string {
	var sb strings.Builder
	for _, entry := range parsed.Data {
		for _, sym := range entry.Symbol {
			if sym.Data == "" {
				continue
			}
			if strings.Contains(strings.ToUpper(sym.Type), "QR") {
				sb.WriteString(scan.QRPrefix)
			}
			sb.WriteString(sym.Data)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func buildUploadBody(imagePath string) (*bytes.Buffer, string, error) {
	f, err := os.Open(imagePath) //nolint:gosec // G304: uploading a caller-provided artifact path is expected
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = f.Close() }()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filepath.Base(imagePath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
