package pdf

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// ExtractImages pulls the embedded page images out of a PDF, grouped by page
// number. pageRange accepts forms like "1-5" or "1,3,5"; empty means all
// pages. Extraction goes through a throwaway directory that is removed before
// returning.
func ExtractImages(filename, pageRange string) (map[int][]image.Image, error) {
	pages, err := ParsePageRange(pageRange)
	if err != nil {
		return nil, fmt.Errorf("invalid page range %q: %w", pageRange, err)
	}

	tempDir, err := os.MkdirTemp("", "codescan-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("create extraction dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	var selected []string
	for _, p := range pages {
		selected = append(selected, strconv.Itoa(p))
	}

	if err := api.ExtractImagesFile(filename, tempDir, selected, nil); err != nil {
		return nil, fmt.Errorf("extract images: %w", err)
	}

	return collectImages(tempDir)
}

// collectImages loads pdfcpu's output files (page_<n>_image_<i>.<ext>) and
// groups them by page.
func collectImages(dir string) (map[int][]image.Image, error) {
	result := make(map[int][]image.Image)

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		page, err := pageFromFilename(info.Name())
		if err != nil {
			return nil // not a page image, skip
		}

		f, err := os.Open(path) //nolint:gosec // G304: reading files this process just extracted
		if err != nil {
			return nil
		}
		img, _, err := image.Decode(f)
		_ = f.Close()
		if err != nil {
			return nil // unreadable image, skip
		}

		result[page] = append(result[page], img)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func pageFromFilename(name string) (int, error) {
	if !strings.HasPrefix(name, "page_") {
		return 0, errors.New("not a page file")
	}
	parts := strings.Split(name, "_")
	if len(parts) < 2 {
		return 0, errors.New("unexpected filename shape")
	}
	return strconv.Atoi(parts[1])
}

// ParsePageRange parses "1-5", "3" or "1,3,5-7" into an ordered page list.
// An empty string returns nil, meaning all pages.
func ParsePageRange(pageRange string) ([]int, error) {
	if pageRange == "" {
		return nil, nil
	}

	var pages []int
	for _, token := range strings.Split(pageRange, ",") {
		token = strings.TrimSpace(token)
		expanded, err := parseToken(token)
		if err != nil {
			return nil, err
		}
		pages = append(pages, expanded...)
	}
	return pages, nil
}

func parseToken(token string) ([]int, error) {
	if start, end, ok := strings.Cut(token, "-"); ok {
		lo, err := strconv.Atoi(strings.TrimSpace(start))
		if err != nil {
			return nil, fmt.Errorf("invalid start page: %s", start)
		}
		hi, err := strconv.Atoi(strings.TrimSpace(end))
		if err != nil {
			return nil, fmt.Errorf("invalid end page: %s", end)
		}
		if lo > hi {
			return nil, fmt.Errorf("start page %d greater than end page %d", lo, hi)
		}
		out := make([]int, 0, hi-lo+1)
		for i := lo; i <= hi; i++ {
			out = append(out, i)
		}
		return out, nil
	}

	page, err := strconv.Atoi(token)
	if err != nil {
		return nil, fmt.Errorf("invalid page number: %s", token)
	}
	return []int{page}, nil
}
