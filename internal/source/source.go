// Package source resolves a document into page rasters. A PDF is counted
// with pdfcpu and rasterised by the poppler pdftoppm tool; a set of page
// images is decoded directly.
package source

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrPageOutOfRange is returned when a page outside [1, PageCount] is requested.
var ErrPageOutOfRange = errors.New("page out of range")

// Renderer supplies the page rasters of one document. RenderPage returns once
// the page is fully rendered; a scale of 1 yields the page-space raster.
type Renderer interface {
	PageCount(ctx context.Context) (int, error)
	RenderPage(ctx context.Context, page int, scale float64) (image.Image, error)
}

// Kind names a renderer implementation.
type Kind string

const (
	KindAuto     Kind = ""
	KindPDF      Kind = "pdftoppm"
	KindImages   Kind = "images"
	DefaultDPI        = 96
	defaultPdfCmd     = "pdftoppm"
)

// Options configures Open.
type Options struct {
	Kind Kind
	DPI  int
	// Command overrides the pdftoppm executable.
	Command string
}

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// Open returns a renderer for path. A directory is read as one image per page
// in name order, a .pdf file is rendered with pdftoppm and any other file is
// treated as a single page image.
func Open(path string, opts Options) (Renderer, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	kind := opts.Kind
	if kind == KindAuto {
		switch {
		case info.IsDir():
			kind = KindImages
		case strings.EqualFold(filepath.Ext(path), ".pdf"):
			kind = KindPDF
		default:
			kind = KindImages
		}
	}
	switch kind {
	case KindPDF:
		if info.IsDir() {
			return nil, fmt.Errorf("open source: %s is a directory", path)
		}
		return &PDF{Path: path, DPI: opts.DPI, Command: opts.Command}, nil
	case KindImages:
		if !info.IsDir() {
			return NewImages(path), nil
		}
		paths, err := imageFiles(path)
		if err != nil {
			return nil, err
		}
		if len(paths) == 0 {
			return nil, fmt.Errorf("open source: no page images in %s", path)
		}
		return NewImages(paths...), nil
	}
	return nil, fmt.Errorf("open source: unknown renderer %q", kind)
}

func imageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// ParseKind validates a renderer name from configuration.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindAuto, KindPDF, KindImages:
		return Kind(s), nil
	}
	if s == "pdf" {
		return KindPDF, nil
	}
	return "", fmt.Errorf("unknown renderer %q", s)
}

func checkPage(page, total int) error {
	if page < 1 || page > total {
		return fmt.Errorf("%w: %d not in [1,%d]", ErrPageOutOfRange, page, total)
	}
	return nil
}
