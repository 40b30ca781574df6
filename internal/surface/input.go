package surface

import (
	"errors"
	"log"
	"math"

	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/mouse"

	"github.com/example/possemark/internal/annotation"
	"github.com/example/possemark/internal/appstate"
)

type dragMode int

const (
	dragNone dragMode = iota
	dragStroke
	dragMove
	dragResize
)

type dragState struct {
	mode   dragMode
	last   annotation.Point
	points []annotation.Point
	// resize keeps the bounds of the grabbed annotation at the previous step.
	bounds annotation.Rect
}

// PointerDown starts an interaction at p according to the active tool.
// Pointer input is ignored while an export is running.
func (s *Surface) PointerDown(p annotation.Point, additive bool) {
	if s.state.Exporting() {
		return
	}
	switch s.state.Tool() {
	case appstate.ToolFreehand:
		s.mu.Lock()
		s.drag = dragState{mode: dragStroke, last: p, points: []annotation.Point{p}}
		s.mu.Unlock()
	case appstate.ToolHighlight:
		if _, err := s.PlaceHighlightAt(p); err != nil {
			log.Printf("place highlight: %v", err)
		}
	default:
		if b, ok := s.selectedHandleAt(p); ok {
			s.mu.Lock()
			s.drag = dragState{mode: dragResize, last: p, bounds: b}
			s.mu.Unlock()
			return
		}
		if _, ok := s.SelectAt(p, additive); ok {
			s.mu.Lock()
			s.drag = dragState{mode: dragMove, last: p}
			s.mu.Unlock()
		}
	}
}

// PointerMove continues the interaction started by PointerDown.
// A drag still in progress when an export starts is abandoned.
func (s *Surface) PointerMove(p annotation.Point) {
	s.mu.Lock()
	if s.state.Exporting() {
		s.drag = dragState{}
		s.mu.Unlock()
		return
	}
	d := s.drag
	switch d.mode {
	case dragStroke:
		s.drag.points = append(s.drag.points, p)
		s.drag.last = p
		s.mu.Unlock()
		s.changed()
		return
	case dragNone:
		s.mu.Unlock()
		return
	}
	s.drag.last = p
	s.mu.Unlock()

	switch d.mode {
	case dragMove:
		s.MoveSelected(p.X-d.last.X, p.Y-d.last.Y)
	case dragResize:
		w := math.Max(1, p.X-d.bounds.X)
		h := math.Max(1, p.Y-d.bounds.Y)
		if d.bounds.W > 0 && d.bounds.H > 0 {
			s.ResizeSelected(w/d.bounds.W, h/d.bounds.H)
		}
		s.mu.Lock()
		s.drag.bounds.W, s.drag.bounds.H = w, h
		s.mu.Unlock()
	}
}

// PointerUp finishes the interaction. A freehand drag becomes one stroke.
func (s *Surface) PointerUp(p annotation.Point) {
	s.mu.Lock()
	d := s.drag
	s.drag = dragState{}
	s.mu.Unlock()
	if d.mode != dragStroke || s.state.Exporting() {
		return
	}
	if p != d.last {
		d.points = append(d.points, p)
	}
	if _, err := s.AddFreehandStroke(d.points); err != nil && !errors.Is(err, ErrToolInactive) {
		log.Printf("freehand stroke: %v", err)
	}
}

// PendingStroke returns the points of a freehand drag in progress.
func (s *Surface) PendingStroke() []annotation.Point {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.drag.mode != dragStroke {
		return nil
	}
	return append([]annotation.Point(nil), s.drag.points...)
}

func (s *Surface) selectedHandleAt(p annotation.Point) (annotation.Rect, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.items) - 1; i >= 0; i-- {
		a := s.items[i]
		if s.selected[a.ID()] && handleRect(a.Bounds()).Inset(-2).Contains(p) {
			return a.Bounds(), true
		}
	}
	return annotation.Rect{}, false
}

// HandleMouse feeds a window mouse event to the surface. toPage maps window
// pixels into page space.
func (s *Surface) HandleMouse(e mouse.Event, toPage func(x, y float32) annotation.Point) {
	if e.Button != mouse.ButtonLeft && e.Direction != mouse.DirNone {
		return
	}
	p := toPage(e.X, e.Y)
	switch e.Direction {
	case mouse.DirPress:
		s.PointerDown(p, e.Modifiers&key.ModShift != 0)
	case mouse.DirNone:
		s.PointerMove(p)
	case mouse.DirRelease:
		s.PointerUp(p)
	}
}

// HandleKey consumes surface-level keys: Delete and Backspace remove the
// selection and Escape clears it. It reports whether the event was used.
func (s *Surface) HandleKey(e key.Event) bool {
	if e.Direction != key.DirPress {
		return false
	}
	switch e.Code {
	case key.CodeDeleteForward, key.CodeDeleteBackspace:
		if s.state.Exporting() {
			return true
		}
		s.DeleteSelected()
		return true
	case key.CodeEscape:
		s.ClearSelection()
		return true
	}
	return false
}
