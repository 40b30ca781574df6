// Package appstate holds the per-document viewer session: the current page,
// the active tool and style defaults, and the export and visibility flags.
// A State is created once per loaded document and passed explicitly to the
// surface, navigation driver, export pipeline and toolbar.
package appstate

import (
	"sync"

	"github.com/example/possemark/internal/annotation"
)

// Settings is a copy of the user-adjustable parts of the session.
type Settings struct {
	Tool        Tool
	Stroke      annotation.Color
	StrokeWidth int
	Fill        annotation.Color
	Hidden      bool
}

// Style returns the default annotation style described by s.
func (s Settings) Style() annotation.Style {
	return annotation.Style{Fill: s.Fill, Stroke: s.Stroke, StrokeWidth: s.StrokeWidth}
}

// State is the viewer session. It is safe for concurrent use.
type State struct {
	mu sync.Mutex

	page      int
	total     int
	settings  Settings
	initial   Settings
	exporting bool
	edits     int
	drained   *sync.Cond

	listenerMu sync.Mutex
	listeners  []func(Settings)
}

// Option modifies a State during creation.
type Option func(*State)

// WithStroke sets the initial stroke colour.
func WithStroke(c annotation.Color) Option { return func(s *State) { s.settings.Stroke = c } }

// WithFill sets the initial fill colour.
func WithFill(c annotation.Color) Option { return func(s *State) { s.settings.Fill = c } }

// WithStrokeWidth sets the initial stroke width.
func WithStrokeWidth(w int) Option { return func(s *State) { s.settings.StrokeWidth = w } }

// WithTool sets the initial tool.
func WithTool(t Tool) Option { return func(s *State) { s.settings.Tool = t } }

// WithTotalPages sets the page count of an already loaded document.
func WithTotalPages(n int) Option { return func(s *State) { s.total = n } }

// WithSettingsListener registers a callback for when tool or style settings change.
func WithSettingsListener(fn func(Settings)) Option {
	return func(s *State) { s.listeners = append(s.listeners, fn) }
}

// New creates a State with the provided options. Unless configured otherwise
// strokes are red and 2px wide and shapes are unfilled.
func New(opts ...Option) *State {
	s := &State{
		settings: Settings{
			Stroke:      annotation.MustColor("red"),
			StrokeWidth: 2,
			Fill:        annotation.Transparent,
		},
	}
	for _, o := range opts {
		o(s)
	}
	s.settings.StrokeWidth = annotation.ClampWidth(s.settings.StrokeWidth)
	s.initial = s.settings
	s.initial.Hidden = false
	s.Reset(s.total)
	return s
}

// Reset returns the session to its initial values for a document of total
// pages. It is called whenever the document source changes.
func (s *State) Reset(total int) {
	if total < 0 {
		total = 0
	}
	s.mu.Lock()
	s.total = total
	s.page = 0
	if total > 0 {
		s.page = 1
	}
	s.settings = s.initial
	s.exporting = false
	settings := s.settings
	s.mu.Unlock()
	s.notify(settings)
}

// Page returns the current 1-based page, or 0 when no document is loaded.
func (s *State) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// TotalPages returns the page count of the loaded document.
func (s *State) TotalPages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// SetPage moves to page n if it lies in [1, TotalPages]. It reports whether
// the page changed.
func (s *State) SetPage(n int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 1 || n > s.total || n == s.page {
		return false
	}
	s.page = n
	return true
}

// Settings returns a copy of the current tool and style settings.
func (s *State) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Tool returns the active tool.
func (s *State) Tool() Tool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.Tool
}

// SetTool activates t, replacing whichever tool was active.
func (s *State) SetTool(t Tool) { s.update(func(st *Settings) { st.Tool = t }) }

// ToggleTool activates t, or returns to ToolNone when t is already active.
func (s *State) ToggleTool(t Tool) Tool {
	var out Tool
	s.update(func(st *Settings) {
		if st.Tool == t {
			st.Tool = ToolNone
		} else {
			st.Tool = t
		}
		out = st.Tool
	})
	return out
}

// SetStroke sets the default stroke colour for new shapes and strokes.
func (s *State) SetStroke(c annotation.Color) { s.update(func(st *Settings) { st.Stroke = c }) }

// SetFill sets the default fill colour for new shapes.
func (s *State) SetFill(c annotation.Color) { s.update(func(st *Settings) { st.Fill = c }) }

// SetStrokeWidth sets the default stroke width, clamped to [0, 10].
func (s *State) SetStrokeWidth(w int) {
	s.update(func(st *Settings) { st.StrokeWidth = annotation.ClampWidth(w) })
}

// ApplyStyle folds a style patch into the defaults.
func (s *State) ApplyStyle(p annotation.StylePatch) {
	s.update(func(st *Settings) {
		next := p.Apply(st.Style())
		st.Fill = next.Fill
		st.Stroke = next.Stroke
		st.StrokeWidth = next.StrokeWidth
	})
}

// Hidden reports whether the annotation overlay is hidden.
func (s *State) Hidden() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.Hidden
}

// SetHidden hides or shows the overlay. Annotations are left untouched.
func (s *State) SetHidden(h bool) { s.update(func(st *Settings) { st.Hidden = h }) }

// ToggleHidden flips overlay visibility and returns the new value.
func (s *State) ToggleHidden() bool {
	var out bool
	s.update(func(st *Settings) {
		st.Hidden = !st.Hidden
		out = st.Hidden
	})
	return out
}

// Exporting reports whether an export is running.
func (s *State) Exporting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exporting
}

// BeginExport marks an export as running. It returns false, leaving the
// session unchanged, when another export already holds the flag. Edits that
// are already in flight finish before it returns.
func (s *State) BeginExport() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exporting {
		return false
	}
	s.exporting = true
	for s.edits > 0 {
		s.cond().Wait()
	}
	return true
}

// EndExport clears the export flag.
func (s *State) EndExport() {
	s.mu.Lock()
	s.exporting = false
	s.mu.Unlock()
}

// BeginEdit admits one change to the page or the surface. It returns false
// while an export runs. Each successful call must be paired with EndEdit.
func (s *State) BeginEdit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exporting {
		return false
	}
	s.edits++
	return true
}

// EndEdit finishes an edit started by BeginEdit.
func (s *State) EndEdit() {
	s.mu.Lock()
	s.edits--
	if s.edits == 0 {
		s.cond().Broadcast()
	}
	s.mu.Unlock()
}

// cond must be called with s.mu held.
func (s *State) cond() *sync.Cond {
	if s.drained == nil {
		s.drained = sync.NewCond(&s.mu)
	}
	return s.drained
}

// OnSettingsChange registers fn to be called after every settings change.
func (s *State) OnSettingsChange(fn func(Settings)) {
	s.listenerMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenerMu.Unlock()
}

func (s *State) update(fn func(*Settings)) {
	s.mu.Lock()
	before := s.settings
	fn(&s.settings)
	after := s.settings
	s.mu.Unlock()
	if before != after {
		s.notify(after)
	}
}

func (s *State) notify(st Settings) {
	s.listenerMu.Lock()
	fns := append([]func(Settings){}, s.listeners...)
	s.listenerMu.Unlock()
	for _, fn := range fns {
		fn(st)
	}
}
