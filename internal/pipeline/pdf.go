package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/codescan/internal/pdf"
	"github.com/MeKo-Tech/codescan/internal/preprocess"
	"github.com/MeKo-Tech/codescan/internal/scan"
)

// PDFPageResult holds the codes found on one PDF page.
type PDFPageResult struct {
	Page  int           `json:"page"`
	Codes []scan.Result `json:"codes"`
}

// ScanPDF extracts the page images of a PDF and runs the full scan sequence
// on each, in page order. Pages without a code are omitted; ErrNoCode is
// returned when no page yields anything. Page images written to the work
// directory are cleaned up like any other artifact.
func (p *Pipeline) ScanPDF(ctx context.Context, filename, pageRange string) ([]PDFPageResult, error) {
	images, err := pdf.ExtractImages(filename, pageRange)
	if err != nil {
		return nil, fmt.Errorf("extract pdf images: %w", err)
	}

	pages := make([]int, 0, len(images))
	for page := range images {
		pages = append(pages, page)
	}
	sort.Ints(pages)

	artifacts := preprocess.NewCleanupSet()
	defer artifacts.RemoveAll()

	var results []PDFPageResult
	for _, page := range pages {
		for i, img := range images[page] {
			path, err := preprocess.ArtifactPath(
				p.cfg.WorkDir,
				fmt.Sprintf("pdf-page%d.png", page),
				fmt.Sprintf("img%d", i),
			)
			if err != nil {
				return nil, err
			}
			artifacts.Add(path)
			if err := imaging.Save(img, path); err != nil {
				return nil, fmt.Errorf("write page %d image: %w", page, err)
			}

			codes, err := p.Scan(ctx, path)
			if err != nil {
				if errors.Is(err, ErrNoCode) {
					continue
				}
				return nil, err
			}
			results = append(results, PDFPageResult{Page: page, Codes: codes})
		}
	}

	if len(results) == 0 {
		return nil, ErrNoCode
	}
	return results, nil
}
