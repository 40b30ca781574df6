// Package toolbar is the mode selector and command surface of a viewer
// session. Window keys, the interactive prompt and annotate scripts all go
// through the same Toolbar methods.
package toolbar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"

	"github.com/example/possemark/internal/annotation"
	"github.com/example/possemark/internal/appstate"
	"github.com/example/possemark/internal/capture"
	"github.com/example/possemark/internal/clipboard"
	"github.com/example/possemark/internal/export"
	"github.com/example/possemark/internal/navigate"
	"github.com/example/possemark/internal/notify"
	"github.com/example/possemark/internal/surface"
)

// ErrBusy is returned for navigation and shape creation while an export is
// running.
var ErrBusy = errors.New("toolbar disabled while exporting")

// Clipboard is the image clipboard used by paste and copy.
type Clipboard interface {
	ReadImageData() ([]byte, error)
	WriteImage(img image.Image) error
}

type systemClipboard struct{}

func (systemClipboard) ReadImageData() ([]byte, error)   { return clipboard.ReadImageData() }
func (systemClipboard) WriteImage(img image.Image) error { return clipboard.WriteImage(img) }

// Toolbar binds the controls of one session.
type Toolbar struct {
	state    *appstate.State
	surface  *surface.Surface
	nav      *navigate.Driver
	pipeline *export.Pipeline
	capturer capture.Capturer

	clip     Clipboard
	notifier *notify.Notifier
	locate   func(export.Result) string
	onExport []func(export.Result)

	keys map[KeyShortcut]*Binding
	wg   sync.WaitGroup
}

// Option configures a Toolbar.
type Option func(*Toolbar)

// WithClipboard replaces the system clipboard.
func WithClipboard(c Clipboard) Option { return func(t *Toolbar) { t.clip = c } }

// WithNotifier sends desktop notifications after exports and copies.
func WithNotifier(n *notify.Notifier) Option { return func(t *Toolbar) { t.notifier = n } }

// WithLocator names where a delivered export ended up, for notifications.
// By default the document name is used.
func WithLocator(fn func(export.Result) string) Option { return func(t *Toolbar) { t.locate = fn } }

// WithExportListener registers fn to run after every delivered export.
func WithExportListener(fn func(export.Result)) Option {
	return func(t *Toolbar) { t.onExport = append(t.onExport, fn) }
}

// New creates a toolbar over the session components.
func New(state *appstate.State, s *surface.Surface, nav *navigate.Driver, p *export.Pipeline, c capture.Capturer, opts ...Option) *Toolbar {
	t := &Toolbar{
		state:    state,
		surface:  s,
		nav:      nav,
		pipeline: p,
		capturer: c,
		clip:     systemClipboard{},
	}
	for _, o := range opts {
		o(t)
	}
	t.keys = make(map[KeyShortcut]*Binding)
	for _, b := range t.Bindings() {
		for _, k := range b.Keys {
			t.keys[k] = b
		}
	}
	return t
}

// begin admits one change to the page or surface. It fails while an export
// runs, and holds exports off until the returned func is called.
func (t *Toolbar) begin() (func(), error) {
	if !t.state.BeginEdit() {
		return nil, ErrBusy
	}
	return t.state.EndEdit, nil
}

// Next moves to the following page.
func (t *Toolbar) Next() (bool, error) {
	end, err := t.begin()
	if err != nil {
		return false, err
	}
	defer end()
	return t.nav.Next()
}

// Prev moves to the previous page.
func (t *Toolbar) Prev() (bool, error) {
	end, err := t.begin()
	if err != nil {
		return false, err
	}
	defer end()
	return t.nav.Prev()
}

// GoToPage jumps to page n. Out of range targets are ignored.
func (t *Toolbar) GoToPage(n int) (bool, error) {
	end, err := t.begin()
	if err != nil {
		return false, err
	}
	defer end()
	return t.nav.GoToPage(n)
}

// AddShape inserts a rectangle, circle, text box or highlight.
func (t *Toolbar) AddShape(kind annotation.Kind) (string, error) {
	end, err := t.begin()
	if err != nil {
		return "", err
	}
	defer end()
	return t.surface.AddShape(kind)
}

// Add inserts a fully specified annotation.
func (t *Toolbar) Add(a annotation.Annotation) (string, error) {
	end, err := t.begin()
	if err != nil {
		return "", err
	}
	defer end()
	return t.surface.Add(a)
}

// ToggleTool switches tool t on, or off when it is already active.
func (t *Toolbar) ToggleTool(tool appstate.Tool) appstate.Tool {
	return t.state.ToggleTool(tool)
}

// SetTool makes tool the active one.
func (t *Toolbar) SetTool(tool appstate.Tool) { t.state.SetTool(tool) }

// SetStroke changes the stroke colour of the selection, or the default.
// Colours outside the palette are added so cycling continues from them.
func (t *Toolbar) SetStroke(c annotation.Color) {
	appstate.EnsurePaletteColor(c, "")
	t.surface.ApplyStyle(annotation.StylePatch{Stroke: &c})
}

// SetFill changes the fill colour of the selection, or the default.
func (t *Toolbar) SetFill(c annotation.Color) {
	t.surface.ApplyStyle(annotation.StylePatch{Fill: &c})
}

// SetWidth changes the stroke width. Values are clamped to 0..10.
func (t *Toolbar) SetWidth(w int) {
	w = annotation.ClampWidth(w)
	t.surface.ApplyStyle(annotation.StylePatch{StrokeWidth: &w})
}

// CycleStroke steps the default stroke colour through the palette.
func (t *Toolbar) CycleStroke(step int) appstate.PaletteColor {
	pc := appstate.NextPaletteColor(t.state.Settings().Stroke, step)
	t.SetStroke(pc.Color)
	return pc
}

// ToggleVisibility hides or shows the overlay. Annotations are kept.
func (t *Toolbar) ToggleVisibility() bool { return t.state.ToggleHidden() }

// DeleteSelected removes the selection and returns how many were removed.
func (t *Toolbar) DeleteSelected() (int, error) {
	end, err := t.begin()
	if err != nil {
		return 0, err
	}
	defer end()
	return t.surface.DeleteSelected(), nil
}

// ExportPage exports the page on screen.
func (t *Toolbar) ExportPage(ctx context.Context) (export.Result, error) {
	res, err := t.pipeline.ExportCurrentPage(ctx)
	if err != nil {
		return res, err
	}
	t.exported(res)
	return res, nil
}

// ExportAll exports every page of the document.
func (t *Toolbar) ExportAll(ctx context.Context) (export.Result, error) {
	res, err := t.pipeline.ExportAllPages(ctx)
	if err != nil {
		return res, err
	}
	t.exported(res)
	return res, nil
}

// OnExport registers fn to run after every delivered export. Register
// listeners before the toolbar is used.
func (t *Toolbar) OnExport(fn func(export.Result)) {
	t.onExport = append(t.onExport, fn)
}

func (t *Toolbar) exported(res export.Result) {
	if t.notifier != nil {
		where := res.Name
		if t.locate != nil {
			where = t.locate(res)
		}
		t.notifier.Export(where, len(res.Pages))
	}
	for _, fn := range t.onExport {
		fn(res)
	}
}

// PasteImage inserts the image on the clipboard.
func (t *Toolbar) PasteImage() (string, error) {
	end, err := t.begin()
	if err != nil {
		return "", err
	}
	defer end()
	data, err := t.clip.ReadImageData()
	if err != nil {
		return "", fmt.Errorf("paste image: %w", err)
	}
	return t.surface.InsertImage(bytes.NewReader(data))
}

// CopyPage copies the flattened current page to the clipboard.
func (t *Toolbar) CopyPage(ctx context.Context) error {
	img, err := t.capturer.Capture(ctx)
	if err != nil {
		return fmt.Errorf("copy page: %w", err)
	}
	if err := t.clip.WriteImage(img); err != nil {
		return fmt.Errorf("copy page: %w", err)
	}
	if t.notifier != nil {
		t.notifier.Copy(fmt.Sprintf("page %d", t.state.Page()), img)
	}
	return nil
}

// Go runs fn in the background, logging its error. Wait blocks until
// every such call returns.
func (t *Toolbar) Go(name string, fn func() error) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if err := fn(); err != nil {
			log.Printf("%s: %v", name, err)
		}
	}()
}

// Wait blocks until background actions started with Go have finished.
func (t *Toolbar) Wait() { t.wg.Wait() }
