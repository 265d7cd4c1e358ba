package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/codescan/internal/pipeline"
	"github.com/MeKo-Tech/codescan/internal/scan"
)

// scanCmd represents the scan command.
var scanCmd = &cobra.Command{
	Use:   "scan [flags] <file...>",
	Short: "Scan images or PDFs for barcodes and QR codes",
	Long: `Scan one or more image or PDF files for barcodes and QR codes.

Each file is decoded as-is first. If no code is found, preprocessing
strategies are applied one after another (orientation correction, manual
rotation, enhancement, denoising) until one of them yields a decodable image.

Examples:
  codescan scan label.png
  codescan scan *.jpg --format json
  codescan scan doc.pdf --pages 1,3-5
  codescan scan photo.png --backend gozxing --engine imaging`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

// fileScanResult is the JSON output shape for one scanned file.
type fileScanResult struct {
	File  string                   `json:"file"`
	Codes []scan.Result            `json:"codes,omitempty"`
	Pages []pipeline.PDFPageResult `json:"pages,omitempty"`
	Error string                   `json:"error,omitempty"`
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	backend := cfg.Pipeline.Decoder.Backend
	if cmd.Flags().Changed("backend") {
		backend, _ = cmd.Flags().GetString("backend")
	}
	engine := cfg.Pipeline.Preprocess.Engine
	if cmd.Flags().Changed("engine") {
		engine, _ = cmd.Flags().GetString("engine")
	}
	preprocess := cfg.Pipeline.Preprocess.Enabled
	if noPre, _ := cmd.Flags().GetBool("no-preprocess"); noPre {
		preprocess = false
	}
	remoteURL := cfg.Pipeline.Decoder.RemoteURL
	if cmd.Flags().Changed("remote-url") {
		remoteURL, _ = cmd.Flags().GetString("remote-url")
	}
	zbarPath := cfg.Pipeline.Decoder.ZbarPath
	if cmd.Flags().Changed("zbar-path") {
		zbarPath, _ = cmd.Flags().GetString("zbar-path")
	}
	format := cfg.Output.Format
	if cmd.Flags().Changed("format") {
		format, _ = cmd.Flags().GetString("format")
	}
	pages, _ := cmd.Flags().GetString("pages")

	pCfg := cfg.ToPipelineConfig()
	pCfg.Preprocess = preprocess
	pCfg.Decoder.Backend = backend
	pCfg.Decoder.RemoteURL = remoteURL
	pCfg.Decoder.ZbarPath = zbarPath
	pCfg.Engine.Backend = engine
	if cmd.Flags().Changed("timeout") {
		sec, _ := cmd.Flags().GetInt("timeout")
		pCfg.AttemptTimeout = time.Duration(sec) * time.Second
	}

	pl, err := pipeline.NewBuilder().WithConfig(pCfg).Build()
	if err != nil {
		return fmt.Errorf("failed to build scan pipeline: %w", err)
	}
	defer func() { _ = pl.Close() }()

	out := cmd.OutOrStdout()
	if cfg.Output.File != "" {
		f, ferr := os.Create(cfg.Output.File)
		if ferr != nil {
			return fmt.Errorf("failed to create output file: %w", ferr)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	results := make([]fileScanResult, 0, len(args))
	failed := 0
	for _, file := range args {
		results = append(results, scanFile(cmd.Context(), pl, file, pages))
		if results[len(results)-1].Error != "" {
			failed++
		}
	}

	if err := writeScanResults(out, format, results); err != nil {
		return err
	}
	if failed == len(args) {
		return fmt.Errorf("no codes found in %d file(s)", failed)
	}
	return nil
}

func scanFile(ctx context.Context, pl *pipeline.Pipeline, file, pages string) fileScanResult {
	result := fileScanResult{File: file}

	if strings.EqualFold(filepath.Ext(file), ".pdf") {
		pageResults, err := pl.ScanPDF(ctx, file, pages)
		if err != nil {
			result.Error = err.Error()
			return result
		}
		result.Pages = pageResults
		return result
	}

	codes, err := pl.Scan(ctx, file)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Codes = codes
	return result
}

func writeScanResults(out io.Writer, format string, results []fileScanResult) error {
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(out, "%s: %s\n", r.File, r.Error)
			continue
		}
		for _, c := range r.Codes {
			fmt.Fprintf(out, "%s: %s %s\n", r.File, c.Symbol, c.Data)
		}
		for _, p := range r.Pages {
			for _, c := range p.Codes {
				fmt.Fprintf(out, "%s (page %d): %s %s\n", r.File, p.Page, c.Symbol, c.Data)
			}
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().String("backend", "", "decoder backend (zbar, gozxing, remote)")
	scanCmd.Flags().String("zbar-path", "", "path to the zbarimg binary")
	scanCmd.Flags().String("remote-url", "", "URL of a remote decoder service")
	scanCmd.Flags().String("engine", "", "preprocessing engine (magick, imaging)")
	scanCmd.Flags().Bool("no-preprocess", false, "decode the image as-is without preprocessing fallbacks")
	scanCmd.Flags().String("pages", "", "page range for PDF files (e.g. 1,3-5)")
	scanCmd.Flags().Int("timeout", 0, "per-attempt decode timeout in seconds")
	scanCmd.Flags().StringP("format", "f", "", "output format (text, json)")
}
