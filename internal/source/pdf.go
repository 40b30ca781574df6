package source

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDF renders pages of a PDF file. The page count comes from pdfcpu; pages
// are rasterised by running pdftoppm, whose exit marks render completion.
type PDF struct {
	Path    string
	DPI     int
	Command string

	once  sync.Once
	count int
	err   error
}

func (p *PDF) dpi() int {
	if p.DPI <= 0 {
		return DefaultDPI
	}
	return p.DPI
}

// PageCount returns the number of pages in the file.
func (p *PDF) PageCount(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	p.once.Do(func() {
		f, err := os.Open(p.Path)
		if err != nil {
			p.err = fmt.Errorf("open pdf: %w", err)
			return
		}
		defer f.Close()
		p.count, p.err = api.PageCount(f, model.NewDefaultConfiguration())
		if p.err != nil {
			p.err = fmt.Errorf("pdf page count: %w", p.err)
		}
	})
	return p.count, p.err
}

// RenderPage rasterises page at DPI*scale.
func (p *PDF) RenderPage(ctx context.Context, page int, scale float64) (image.Image, error) {
	total, err := p.PageCount(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkPage(page, total); err != nil {
		return nil, err
	}
	if scale <= 0 {
		scale = 1
	}
	exe := p.Command
	if exe == "" {
		exe = defaultPdfCmd
	}
	res := int(math.Round(float64(p.dpi()) * scale))
	n := strconv.Itoa(page)
	cmd := exec.CommandContext(ctx, exe, "-png", "-r", strconv.Itoa(res), "-f", n, "-l", n, "-singlefile", p.Path, "-")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("render page %d: %w: %s", page, err, msg)
		}
		return nil, fmt.Errorf("render page %d: %w", page, err)
	}
	img, err := png.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("render page %d: decode: %w", page, err)
	}
	return img, nil
}
