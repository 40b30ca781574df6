// Package surface is the live annotation layer of the page on screen. It
// owns insertion, selection, styling and deletion of annotations and can be
// dumped to and restored from an editstore snapshot.
package surface

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"log"
	"sync"

	"github.com/example/possemark/internal/annotation"
	"github.com/example/possemark/internal/appstate"
	"github.com/example/possemark/internal/editstore"
	"github.com/example/possemark/internal/render"
)

var (
	// ErrNoSurface is returned when no document page is attached.
	ErrNoSurface = errors.New("no surface attached")
	// ErrToolInactive is returned by tool-specific operations when another
	// tool is active.
	ErrToolInactive = errors.New("tool not active")
)

// Options configures default placement of new annotations.
type Options struct {
	// Origin is where shapes, text and images are inserted.
	Origin           annotation.Point
	HighlightColor   annotation.Color
	HighlightOpacity float64
	HighlightWidth   float64
	HighlightHeight  float64
	ImageWidth       float64
	TextSize         float64
}

// DefaultOptions returns the built-in placement defaults.
func DefaultOptions() Options {
	return Options{
		Origin:           annotation.Point{X: 10, Y: 10},
		HighlightColor:   annotation.MustColor("yellow"),
		HighlightOpacity: 0.4,
		HighlightWidth:   120,
		HighlightHeight:  24,
		ImageWidth:       200,
		TextSize:         render.DefaultTextSize,
	}
}

const (
	defaultShapeSize = 50
	defaultText      = "Text"
)

// Surface is the live annotation layer. It is safe for concurrent use.
type Surface struct {
	state *appstate.State
	opts  Options

	mu       sync.RWMutex
	attached bool
	items    []annotation.Annotation
	selected map[string]bool
	drag     dragState

	listenerMu sync.Mutex
	listeners  []func()
}

// New returns an attached, empty surface bound to state.
func New(state *appstate.State, opts Options) *Surface {
	return &Surface{state: state, opts: opts, attached: true, selected: map[string]bool{}}
}

// State returns the session the surface reads defaults from.
func (s *Surface) State() *appstate.State { return s.state }

// Options returns the placement defaults.
func (s *Surface) Options() Options { return s.opts }

// OnChange registers fn to run after every mutation, typically to repaint.
func (s *Surface) OnChange(fn func()) {
	s.listenerMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenerMu.Unlock()
}

func (s *Surface) changed() {
	s.listenerMu.Lock()
	fns := append([]func(){}, s.listeners...)
	s.listenerMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Attached reports whether a page is attached.
func (s *Surface) Attached() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attached
}

// Detach drops the live layer. Every mutating call fails with ErrNoSurface
// until the next Load.
func (s *Surface) Detach() {
	s.mu.Lock()
	s.attached = false
	s.items = nil
	s.selected = map[string]bool{}
	s.drag = dragState{}
	s.mu.Unlock()
	s.changed()
}

// Load replaces the live layer with the contents of snap and attaches the
// surface. An empty snapshot yields an empty layer.
func (s *Surface) Load(snap editstore.Snapshot) error {
	list, err := snap.Annotations()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.attached = true
	s.items = list
	s.selected = map[string]bool{}
	s.drag = dragState{}
	s.mu.Unlock()
	s.changed()
	return nil
}

// Dump serialises the live layer as a snapshot of the current page.
func (s *Surface) Dump() (editstore.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.attached {
		return editstore.Snapshot{}, ErrNoSurface
	}
	return editstore.Take(s.state.Page(), s.items)
}

// Annotations returns copies of the live annotations in paint order.
func (s *Surface) Annotations() []annotation.Annotation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]annotation.Annotation, len(s.items))
	for i, a := range s.items {
		out[i] = annotation.Clone(a)
	}
	return out
}

// Len returns the number of live annotations.
func (s *Surface) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Add validates a and appends it on top of the layer. The annotation gets an
// identifier if it has none.
func (s *Surface) Add(a annotation.Annotation) (string, error) {
	if err := a.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	if !s.attached {
		s.mu.Unlock()
		return "", ErrNoSurface
	}
	id := annotation.EnsureID(a)
	s.items = append(s.items, a)
	s.mu.Unlock()
	s.changed()
	return id, nil
}

// AddShape inserts a rectangle, circle, text box or highlight at the default
// origin, styled with the session defaults.
func (s *Surface) AddShape(kind annotation.Kind) (string, error) {
	st := s.state.Settings()
	o := s.opts.Origin
	var a annotation.Annotation
	switch kind {
	case annotation.KindRectangle:
		a = annotation.NewRectangle(o.X, o.Y, defaultShapeSize, defaultShapeSize, st.Style())
	case annotation.KindCircle:
		a = annotation.NewCircle(o.X, o.Y, defaultShapeSize/2, st.Style())
	case annotation.KindText:
		a = annotation.NewTextBox(o.X, o.Y, defaultText, textColor(st), annotation.Font{Size: s.opts.TextSize})
	case annotation.KindHighlight:
		a = s.newHighlight(o)
	default:
		return "", fmt.Errorf("add shape: %w: %s", annotation.ErrUnknownKind, kind)
	}
	return s.Add(a)
}

// AddText inserts a text box with the given content at p.
func (s *Surface) AddText(p annotation.Point, text string) (string, error) {
	st := s.state.Settings()
	return s.Add(annotation.NewTextBox(p.X, p.Y, text, textColor(st), annotation.Font{Size: s.opts.TextSize}))
}

// text uses the fill colour unless it is fully transparent, in which case
// the stroke colour keeps it visible.
func textColor(st appstate.Settings) annotation.Color {
	if st.Fill.A == 0 {
		return st.Stroke
	}
	return st.Fill
}

func (s *Surface) newHighlight(p annotation.Point) *annotation.Highlight {
	return annotation.NewHighlight(p.X, p.Y, s.opts.HighlightWidth, s.opts.HighlightHeight, s.opts.HighlightColor, s.opts.HighlightOpacity)
}

// AddFreehandStroke records one finished pointer drag as a stroke. It is
// only allowed while the freehand tool is active.
func (s *Surface) AddFreehandStroke(points []annotation.Point) (string, error) {
	if s.state.Tool() != appstate.ToolFreehand {
		return "", fmt.Errorf("freehand stroke: %w", ErrToolInactive)
	}
	if len(points) == 0 {
		return "", fmt.Errorf("freehand stroke: %w: no points", annotation.ErrInvalidGeometry)
	}
	st := s.state.Settings()
	return s.Add(annotation.NewStroke(points, st.Stroke, st.StrokeWidth))
}

// PlaceHighlightAt inserts a highlight with its top-left corner at p and
// switches the tool back to none. Placement is one-shot.
func (s *Surface) PlaceHighlightAt(p annotation.Point) (string, error) {
	if s.state.Tool() != appstate.ToolHighlight {
		return "", fmt.Errorf("place highlight: %w", ErrToolInactive)
	}
	id, err := s.Add(s.newHighlight(p))
	if err != nil {
		return "", err
	}
	s.state.SetTool(appstate.ToolNone)
	return id, nil
}

// InsertImage decodes r and places it at the default origin scaled to the
// configured width. Nothing is inserted when the image cannot be decoded.
func (s *Surface) InsertImage(r io.Reader) (string, error) {
	im, err := annotation.NewImage(r, s.opts.Origin.X, s.opts.Origin.Y, s.opts.ImageWidth)
	if err != nil {
		log.Printf("insert image: %v", err)
		return "", err
	}
	return s.Add(im)
}

// ApplyStyle changes the selected annotations live. With nothing selected
// the patch updates the defaults used for new shapes and strokes.
func (s *Surface) ApplyStyle(p annotation.StylePatch) {
	if p.Empty() {
		return
	}
	s.mu.Lock()
	n := 0
	for _, a := range s.items {
		if s.selected[a.ID()] {
			a.ApplyStyle(p)
			n++
		}
	}
	s.mu.Unlock()
	if n == 0 {
		s.state.ApplyStyle(p)
		return
	}
	s.changed()
}

// DeleteSelected removes every selected annotation and returns how many were
// removed. Deleting an empty selection is a no-op.
func (s *Surface) DeleteSelected() int {
	s.mu.Lock()
	if len(s.selected) == 0 {
		s.mu.Unlock()
		return 0
	}
	kept := s.items[:0]
	removed := 0
	for _, a := range s.items {
		if s.selected[a.ID()] {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	for i := len(kept); i < len(s.items); i++ {
		s.items[i] = nil
	}
	s.items = kept
	s.selected = map[string]bool{}
	s.mu.Unlock()
	if removed > 0 {
		s.changed()
	}
	return removed
}

// Delete removes the annotation with the given id and reports whether it
// existed.
func (s *Surface) Delete(id string) bool {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	delete(s.selected, id)
	s.mu.Unlock()
	s.changed()
	return true
}

// ClearPage removes every annotation from the live layer. Snapshots of
// other pages are not affected.
func (s *Surface) ClearPage() {
	s.mu.Lock()
	s.items = nil
	s.selected = map[string]bool{}
	s.mu.Unlock()
	s.changed()
}

func (s *Surface) indexLocked(id string) int {
	for i, a := range s.items {
		if a.ID() == id {
			return i
		}
	}
	return -1
}

// Render paints the live annotations onto dst with page space multiplied by
// scale. A failing annotation is logged and skipped.
func (s *Surface) Render(dst *image.RGBA, scale float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.items {
		if err := a.Render(dst, scale); err != nil {
			log.Printf("render %s %s: %v", a.Kind(), a.ID(), err)
		}
	}
}

// Overlay renders the live layer onto a transparent w×h raster.
func (s *Surface) Overlay(w, h int, scale float64) *image.RGBA {
	dst := render.Blank(w, h)
	s.Render(dst, scale)
	return dst
}

var selectionColor = color.RGBA{0, 120, 215, 255}

// RenderSelection outlines the selected annotations and their resize handle.
func (s *Surface) RenderSelection(dst *image.RGBA, scale float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.items {
		if !s.selected[a.ID()] {
			continue
		}
		b := a.Bounds().Pixels(scale)
		render.Rect(dst, b.Inset(-2), selectionColor, 1)
		h := handleRect(a.Bounds()).Pixels(scale)
		render.FillRect(dst, h, selectionColor)
	}
}
