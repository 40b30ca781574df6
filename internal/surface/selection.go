package surface

import (
	"github.com/example/possemark/internal/annotation"
)

// handleSize is the page-space size of the resize handle drawn at the
// bottom-right corner of a selected annotation.
const handleSize = 8

func handleRect(b annotation.Rect) annotation.Rect {
	return annotation.Rect{X: b.X + b.W - handleSize/2, Y: b.Y + b.H - handleSize/2, W: handleSize, H: handleSize}
}

// Select replaces the selection with the given identifiers. Unknown ids are
// ignored.
func (s *Surface) Select(ids ...string) {
	s.mu.Lock()
	s.selected = map[string]bool{}
	for _, id := range ids {
		if s.indexLocked(id) >= 0 {
			s.selected[id] = true
		}
	}
	s.mu.Unlock()
	s.changed()
}

// SelectAll selects every annotation on the page.
func (s *Surface) SelectAll() {
	s.mu.Lock()
	s.selected = make(map[string]bool, len(s.items))
	for _, a := range s.items {
		s.selected[a.ID()] = true
	}
	s.mu.Unlock()
	s.changed()
}

// SelectAt selects the topmost annotation under p. With additive set the hit
// is toggled in the existing selection; otherwise it replaces it and a miss
// clears it. It returns the id that was hit, if any.
func (s *Surface) SelectAt(p annotation.Point, additive bool) (string, bool) {
	s.mu.Lock()
	id, ok := s.hitLocked(p)
	switch {
	case ok && additive:
		if s.selected[id] {
			delete(s.selected, id)
		} else {
			s.selected[id] = true
		}
	case ok:
		s.selected = map[string]bool{id: true}
	case !additive:
		s.selected = map[string]bool{}
	}
	s.mu.Unlock()
	s.changed()
	return id, ok
}

func (s *Surface) hitLocked(p annotation.Point) (string, bool) {
	for i := len(s.items) - 1; i >= 0; i-- {
		if s.items[i].HitTest(p) {
			return s.items[i].ID(), true
		}
	}
	return "", false
}

// ClearSelection deselects everything.
func (s *Surface) ClearSelection() {
	s.mu.Lock()
	n := len(s.selected)
	s.selected = map[string]bool{}
	s.mu.Unlock()
	if n > 0 {
		s.changed()
	}
}

// Selected returns the selected identifiers in paint order.
func (s *Surface) Selected() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, a := range s.items {
		if s.selected[a.ID()] {
			out = append(out, a.ID())
		}
	}
	return out
}

// MoveSelected translates the selection by (dx, dy).
func (s *Surface) MoveSelected(dx, dy float64) {
	s.eachSelected(func(a annotation.Annotation) { a.Translate(dx, dy) })
}

// ResizeSelected scales the selection about each annotation's top-left corner.
// Non-positive factors are ignored.
func (s *Surface) ResizeSelected(sx, sy float64) {
	if sx <= 0 || sy <= 0 {
		return
	}
	s.eachSelected(func(a annotation.Annotation) { a.Resize(sx, sy) })
}

// Raise moves the selection to the top of the paint order.
func (s *Surface) Raise() {
	s.mu.Lock()
	var top, rest []annotation.Annotation
	for _, a := range s.items {
		if s.selected[a.ID()] {
			top = append(top, a)
		} else {
			rest = append(rest, a)
		}
	}
	s.items = append(rest, top...)
	s.mu.Unlock()
	s.changed()
}

func (s *Surface) eachSelected(fn func(annotation.Annotation)) {
	s.mu.Lock()
	n := 0
	for _, a := range s.items {
		if s.selected[a.ID()] {
			fn(a)
			n++
		}
	}
	s.mu.Unlock()
	if n > 0 {
		s.changed()
	}
}
