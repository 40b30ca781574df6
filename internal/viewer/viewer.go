// Package viewer is the interactive window of a markup session. It draws the
// flattened current page with the selection on top and feeds window input to
// the toolbar and the drawing surface.
package viewer

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"log"
	"sync"
	"time"

	"golang.org/x/exp/shiny/driver"
	"golang.org/x/exp/shiny/screen"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/mouse"
	"golang.org/x/mobile/event/paint"
	"golang.org/x/mobile/event/size"

	"github.com/example/possemark/internal/appstate"
	"github.com/example/possemark/internal/capture"
	"github.com/example/possemark/internal/render"
	"github.com/example/possemark/internal/surface"
	"github.com/example/possemark/internal/toolbar"
)

const (
	defaultWidth  = 900
	defaultHeight = 1100
	messageTime   = 3 * time.Second
	statusText    = 13
)

var (
	backdropColor = color.RGBA{90, 90, 90, 255}
	statusColor   = color.RGBA{220, 220, 220, 255}
)

// Viewer owns the window of one session.
type Viewer struct {
	Title string

	state   *appstate.State
	surface *surface.Surface
	toolbar *toolbar.Toolbar
	region  *capture.Region

	updates chan struct{}

	mu           sync.Mutex
	layout       layout
	pageSize     image.Point
	message      string
	messageUntil time.Time
}

// New creates a viewer. The surface and state trigger repaints on change.
func New(state *appstate.State, s *surface.Surface, tb *toolbar.Toolbar, region *capture.Region) *Viewer {
	v := &Viewer{
		Title:   "possemark",
		state:   state,
		surface: s,
		toolbar: tb,
		region:  region,
		updates: make(chan struct{}, 1),
	}
	s.OnChange(v.Refresh)
	state.OnSettingsChange(func(appstate.Settings) { v.Refresh() })
	return v
}

// Refresh requests a repaint. It never blocks.
func (v *Viewer) Refresh() {
	select {
	case v.updates <- struct{}{}:
	default:
	}
}

// Reload forgets the cached page size, e.g. after the document changed.
func (v *Viewer) Reload() {
	v.mu.Lock()
	v.pageSize = image.Point{}
	v.mu.Unlock()
	v.Refresh()
}

// Flash shows msg in the status bar for a few seconds.
func (v *Viewer) Flash(msg string) {
	v.mu.Lock()
	v.message = msg
	v.messageUntil = time.Now().Add(messageTime)
	v.mu.Unlock()
	v.Refresh()
}

func (v *Viewer) currentMessage() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.message != "" && time.Now().Before(v.messageUntil) {
		return v.message
	}
	return ""
}

func (v *Viewer) currentLayout() layout {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.layout
}

// Run executes the UI loop using shiny's driver.
func (v *Viewer) Run() { driver.Main(v.Main) }

// Main runs the event loop on an existing screen.
func (v *Viewer) Main(s screen.Screen) {
	width, height := defaultWidth, defaultHeight
	w, err := s.NewWindow(&screen.NewWindowOptions{Width: width, Height: height, Title: v.Title})
	if err != nil {
		log.Fatalf("new window: %v", err)
	}
	defer w.Release()

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-v.updates:
				w.Send(paint.Event{})
			case <-done:
				return
			}
		}
	}()
	defer close(done)

	var paintMu sync.Mutex
	var paintCancel context.CancelFunc
	paintCh := make(chan image.Point, 1)
	go func() {
		for sz := range paintCh {
			ctx, cancel := context.WithCancel(context.Background())
			paintMu.Lock()
			paintCancel = cancel
			paintMu.Unlock()
			v.drawFrame(ctx, s, w, sz)
			paintMu.Lock()
			paintCancel = nil
			paintMu.Unlock()
			cancel()
		}
	}()
	defer close(paintCh)

	ctx := context.Background()
	for {
		switch e := w.NextEvent().(type) {
		case lifecycle.Event:
			if e.To == lifecycle.StageDead {
				paintMu.Lock()
				if paintCancel != nil {
					paintCancel()
				}
				paintMu.Unlock()
				return
			}
		case size.Event:
			width, height = e.WidthPx, e.HeightPx
			w.Send(paint.Event{})
		case paint.Event:
			sz := image.Pt(width, height)
			select {
			case paintCh <- sz:
			default:
				<-paintCh
				paintCh <- sz
			}
		case mouse.Event:
			if int(e.Y) >= height-statusHeight && e.Direction == mouse.DirPress {
				continue
			}
			v.surface.HandleMouse(e, v.currentLayout().ToPage)
			if e.Direction == mouse.DirNone && len(v.surface.PendingStroke()) > 0 {
				w.Send(paint.Event{})
			}
		case key.Event:
			if e.Direction == key.DirPress && e.Code == key.CodeQ && e.Modifiers&key.ModControl != 0 {
				return
			}
			handled, err := v.toolbar.HandleKey(ctx, e)
			if err != nil {
				v.Flash(err.Error())
			}
			if !handled {
				v.surface.HandleKey(e)
			}
			w.Send(paint.Event{})
		case error:
			log.Print(e)
		}
	}
}

func (v *Viewer) drawFrame(ctx context.Context, s screen.Screen, w screen.Window, sz image.Point) {
	if sz.X <= 0 || sz.Y <= 0 {
		return
	}
	b, err := s.NewBuffer(sz)
	if err != nil {
		log.Printf("new buffer: %v", err)
		return
	}
	defer b.Release()

	if err := v.compose(ctx, b.RGBA()); err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Printf("draw frame: %v", err)
		}
		return
	}
	if ctx.Err() != nil {
		return
	}
	w.Upload(image.Point{}, b, b.Bounds())
	w.Publish()
}

// compose draws one frame into dst: the flattened page fitted to the window,
// the selection and any stroke in progress, and the status bar.
func (v *Viewer) compose(ctx context.Context, dst *image.RGBA) error {
	bounds := dst.Bounds()
	draw.Draw(dst, bounds, &image.Uniform{backdropColor}, image.Point{}, draw.Src)

	v.mu.Lock()
	known := v.pageSize
	v.mu.Unlock()
	if known == (image.Point{}) {
		img, err := v.region.CaptureAt(ctx, 1)
		switch {
		case err == nil:
			known = img.Bounds().Size()
		case !errors.Is(err, capture.ErrRegionNotReady):
			return err
		}
	}

	if known != (image.Point{}) {
		zoom := fitZoom(float64(known.X), float64(known.Y), bounds.Dx(), bounds.Dy())
		page, err := v.region.CaptureAt(ctx, zoom)
		switch {
		case err == nil:
			v.drawPage(dst, page, zoom)
			v.mu.Lock()
			v.pageSize = known
			v.mu.Unlock()
		case !errors.Is(err, capture.ErrRegionNotReady):
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	bar := image.Rect(bounds.Min.X, bounds.Max.Y-statusHeight, bounds.Max.X, bounds.Max.Y)
	draw.Draw(dst, bar, &image.Uniform{statusColor}, image.Point{}, draw.Src)
	line := statusLine(v.state.Page(), v.state.TotalPages(), v.state.Settings(), v.state.Exporting(), v.currentMessage())
	return render.Text(dst, bar.Min.X+6, bar.Min.Y+4, line, color.Black, statusText)
}

func (v *Viewer) drawPage(dst *image.RGBA, page *image.RGBA, zoom float64) {
	r := pageRect(page.Bounds().Size(), dst.Bounds().Dx(), dst.Bounds().Dy())
	draw.Draw(dst, r, page, page.Bounds().Min, draw.Src)
	v.mu.Lock()
	v.layout = layout{Origin: r.Min, Zoom: zoom}
	v.mu.Unlock()
	if v.state.Hidden() {
		return
	}

	top := render.Blank(r.Dx(), r.Dy())
	v.surface.RenderSelection(top, zoom)
	if pts := v.surface.PendingStroke(); len(pts) > 0 {
		st := v.state.Settings()
		px := make([]image.Point, len(pts))
		for i, p := range pts {
			px[i] = image.Pt(int(p.X*zoom+0.5), int(p.Y*zoom+0.5))
		}
		thick := int(float64(st.StrokeWidth)*zoom + 0.5)
		if thick < 1 {
			thick = 1
		}
		render.Polyline(top, px, st.Stroke, thick)
	}
	draw.Draw(dst, r, top, image.Point{}, draw.Over)
}
