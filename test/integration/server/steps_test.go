package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/codescan/internal/pipeline"
	"github.com/MeKo-Tech/codescan/internal/server"
)

// stubSymbol is one code the stub decoder service reports.
type stubSymbol struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// testContext carries the state of one scenario: a stub decoder service, the
// scan API under test and the last HTTP response.
type testContext struct {
	symbols    []stubSymbol
	decoder    *httptest.Server
	api        *httptest.Server
	scanServer *server.Server
	workDir    string

	status int
	body   []byte
}

func newTestContext() *testContext {
	return &testContext{}
}

func (tc *testContext) cleanup() {
	if tc.api != nil {
		tc.api.Close()
	}
	if tc.scanServer != nil {
		_ = tc.scanServer.Close()
	}
	if tc.decoder != nil {
		tc.decoder.Close()
	}
	if tc.workDir != "" {
		_ = os.RemoveAll(tc.workDir)
	}
}

// startServer brings up a stub decoder service plus the scan API wired to it
// through the remote decoder backend.
func (tc *testContext) startServer() error {
	tc.decoder = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		type entry struct {
			Symbol []stubSymbol `json:"symbol"`
		}
		resp := struct {
			Data []entry `json:"data"`
		}{}
		if len(tc.symbols) > 0 {
			resp.Data = []entry{{Symbol: tc.symbols}}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))

	workDir, err := os.MkdirTemp("", "codescan-integration-*")
	if err != nil {
		return err
	}
	tc.workDir = workDir

	pCfg := pipeline.DefaultConfig()
	pCfg.WorkDir = workDir
	pCfg.AttemptTimeout = 5 * time.Second
	pCfg.Decoder.Backend = pipeline.BackendRemote
	pCfg.Decoder.RemoteURL = tc.decoder.URL

	tc.scanServer, err = server.NewServer(server.Config{
		Host:        "localhost",
		CORSOrigin:  "*",
		MaxUploadMB: 10,
		TimeoutSec:  10,
		Pipeline:    pCfg,
	})
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	tc.scanServer.SetupRoutes(mux)
	tc.api = httptest.NewServer(mux)
	return nil
}

func (tc *testContext) aRunningScanServer() error {
	tc.symbols = nil
	return tc.startServer()
}

func (tc *testContext) serverFindsQRCode(data string) error {
	tc.symbols = []stubSymbol{{Type: "QR-Code", Data: data}}
	return tc.startServer()
}

func (tc *testContext) serverFindsCodes(table *godog.Table) error {
	if len(table.Rows) < 2 {
		return fmt.Errorf("expected a table with a header row and at least one code")
	}
	tc.symbols = nil
	for _, row := range table.Rows[1:] {
		if len(row.Cells) != 2 {
			return fmt.Errorf("expected rows of (type, data), got %d cells", len(row.Cells))
		}
		tc.symbols = append(tc.symbols, stubSymbol{
			Type: row.Cells[0].Value,
			Data: row.Cells[1].Value,
		})
	}
	return tc.startServer()
}

func (tc *testContext) iGet(path string) error {
	resp, err := http.Get(tc.api.URL + path)
	if err != nil {
		return err
	}
	return tc.record(resp)
}

func (tc *testContext) iUploadTestImage(path string) error {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", "test.png")
	if err != nil {
		return err
	}
	if err := png.Encode(part, testImage()); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	resp, err := http.Post(tc.api.URL+path, writer.FormDataContentType(), body)
	if err != nil {
		return err
	}
	return tc.record(resp)
}

func (tc *testContext) iPostEmptyForm(path string) error {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.Close(); err != nil {
		return err
	}

	resp, err := http.Post(tc.api.URL+path, writer.FormDataContentType(), body)
	if err != nil {
		return err
	}
	return tc.record(resp)
}

func (tc *testContext) record(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	tc.status = resp.StatusCode
	tc.body = body
	return nil
}

func (tc *testContext) responseStatusShouldBe(status int) error {
	if tc.status != status {
		return fmt.Errorf("expected status %d, got %d (body: %s)", status, tc.status, tc.body)
	}
	return nil
}

func (tc *testContext) responseFieldShouldBe(field, want string) error {
	got, err := tc.stringField(field)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("expected field %q to be %q, got %q", field, want, got)
	}
	return nil
}

func (tc *testContext) responseFieldShouldContain(field, want string) error {
	got, err := tc.stringField(field)
	if err != nil {
		return err
	}
	if !strings.Contains(got, want) {
		return fmt.Errorf("expected field %q to contain %q, got %q", field, want, got)
	}
	return nil
}

func (tc *testContext) stringField(field string) (string, error) {
	var parsed map[string]any
	if err := json.Unmarshal(tc.body, &parsed); err != nil {
		return "", fmt.Errorf("response is not a JSON object: %w (body: %s)", err, tc.body)
	}
	value, ok := parsed[field]
	if !ok {
		return "", fmt.Errorf("response has no field %q (body: %s)", field, tc.body)
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("field %q is not a string (body: %s)", field, tc.body)
	}
	return s, nil
}

func (tc *testContext) responseShouldListStrategies(count int) error {
	var parsed struct {
		Strategies []any `json:"strategies"`
		Count      int   `json:"count"`
	}
	if err := json.Unmarshal(tc.body, &parsed); err != nil {
		return fmt.Errorf("response is not a strategies listing: %w", err)
	}
	if len(parsed.Strategies) != count || parsed.Count != count {
		return fmt.Errorf("expected %d strategies, got %d (count field %d)",
			count, len(parsed.Strategies), parsed.Count)
	}
	return nil
}

func (tc *testContext) responseShouldListCodes(count int) error {
	var parsed struct {
		Multiple []any `json:"multiple"`
	}
	if err := json.Unmarshal(tc.body, &parsed); err != nil {
		return fmt.Errorf("response is not a multiple-codes listing: %w", err)
	}
	if len(parsed.Multiple) != count {
		return fmt.Errorf("expected %d codes, got %d (body: %s)", count, len(parsed.Multiple), tc.body)
	}
	return nil
}

func (tc *testContext) registerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a running scan server$`, tc.aRunningScanServer)
	sc.Step(`^a running scan server whose decoder finds a QR code "([^"]*)"$`, tc.serverFindsQRCode)
	sc.Step(`^a running scan server whose decoder finds the codes:$`, tc.serverFindsCodes)
	sc.Step(`^I GET "([^"]*)"$`, tc.iGet)
	sc.Step(`^I upload a test image to "([^"]*)"$`, tc.iUploadTestImage)
	sc.Step(`^I POST an empty form to "([^"]*)"$`, tc.iPostEmptyForm)
	sc.Step(`^the response status should be (\d+)$`, tc.responseStatusShouldBe)
	sc.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, tc.responseFieldShouldBe)
	sc.Step(`^the response field "([^"]*)" should contain "([^"]*)"$`, tc.responseFieldShouldContain)
	sc.Step(`^the response should list (\d+) strategies$`, tc.responseShouldListStrategies)
	sc.Step(`^the response should list (\d+) codes$`, tc.responseShouldListCodes)
}

// testImage renders a small gradient so uploads carry a real PNG.
func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.Gray{Y: uint8((x + y) * 4)})
		}
	}
	return img
}
