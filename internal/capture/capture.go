// Package capture produces the raster of the export region: the rendered
// document page with the live annotation overlay composed on top.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log"
	"sync"

	"github.com/example/possemark/internal/appstate"
	"github.com/example/possemark/internal/render"
	"github.com/example/possemark/internal/source"
	"github.com/example/possemark/internal/surface"
)

// ErrRegionNotReady is returned when the page raster or the surface is not
// available for capture.
var ErrRegionNotReady = errors.New("capture region not ready")

// Capturer grabs the currently displayed region as a raster.
type Capturer interface {
	Capture(ctx context.Context) (*image.RGBA, error)
}

// Region composes the current page of a document with its annotation layer.
type Region struct {
	mu       sync.RWMutex
	renderer source.Renderer
	surface  *surface.Surface
	state    *appstate.State

	// Scale multiplies page space. Exports use at least 2.
	Scale float64
	// Background fills transparent areas of the page raster.
	Background color.Color
}

// NewRegion returns a capturer for the page shown by s.
func NewRegion(r source.Renderer, s *surface.Surface, scale float64) *Region {
	return &Region{renderer: r, surface: s, state: s.State(), Scale: scale, Background: color.White}
}

// SetRenderer swaps the document renderer, for example after the source file
// changed on disk.
func (r *Region) SetRenderer(rr source.Renderer) {
	r.mu.Lock()
	r.renderer = rr
	r.mu.Unlock()
}

// Capture renders the current page at Scale and flattens the overlay onto it.
// A hidden overlay is left out. Nothing is returned unless both layers are
// available.
func (r *Region) Capture(ctx context.Context) (*image.RGBA, error) {
	return r.CaptureAt(ctx, r.Scale)
}

// CaptureAt is Capture with an explicit scale.
func (r *Region) CaptureAt(ctx context.Context, scale float64) (*image.RGBA, error) {
	if scale <= 0 {
		scale = 1
	}
	r.mu.RLock()
	renderer := r.renderer
	r.mu.RUnlock()
	page := r.state.Page()
	if renderer == nil || page < 1 || !r.surface.Attached() {
		return nil, fmt.Errorf("%w: no page mounted", ErrRegionNotReady)
	}
	raster, err := renderer.RenderPage(ctx, page, scale)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: page %d: %w", ErrRegionNotReady, page, err)
	}
	b := raster.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: page %d rendered empty", ErrRegionNotReady, page)
	}
	if r.state.Page() != page {
		log.Printf("capture: page changed from %d to %d during render", page, r.state.Page())
		return nil, fmt.Errorf("%w: page changed during capture", ErrRegionNotReady)
	}
	var overlay image.Image
	if !r.state.Hidden() {
		overlay = r.surface.Overlay(b.Dx(), b.Dy(), scale)
	}
	return render.Flatten(raster, overlay, r.Background), nil
}
