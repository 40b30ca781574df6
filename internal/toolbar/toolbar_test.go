package toolbar

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"strings"
	"testing"

	"golang.org/x/mobile/event/key"

	"github.com/example/possemark/internal/annotation"
	"github.com/example/possemark/internal/appstate"
	"github.com/example/possemark/internal/capture"
	"github.com/example/possemark/internal/editstore"
	"github.com/example/possemark/internal/export"
	"github.com/example/possemark/internal/navigate"
	"github.com/example/possemark/internal/surface"
)

// whitePages renders blank 100x140 pages.
type whitePages struct{ total int }

func (w whitePages) PageCount(context.Context) (int, error) { return w.total, nil }

func (w whitePages) RenderPage(_ context.Context, _ int, scale float64) (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, int(100*scale), int(140*scale)))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return img, nil
}

type fakeClipboard struct {
	data    []byte
	written image.Image
}

func (f *fakeClipboard) ReadImageData() ([]byte, error) {
	if f.data == nil {
		return nil, errors.New("empty")
	}
	return f.data, nil
}

func (f *fakeClipboard) WriteImage(img image.Image) error {
	f.written = img
	return nil
}

type memorySink struct {
	offers int
	data   []byte
}

func (m *memorySink) Offer(_ context.Context, _ string, pdf []byte) error {
	m.offers++
	m.data = pdf
	return nil
}

type fixture struct {
	tb    *Toolbar
	state *appstate.State
	s     *surface.Surface
	nav   *navigate.Driver
	clip  *fakeClipboard
	sink  *memorySink
}

func newFixture(t *testing.T, pages int) *fixture {
	t.Helper()
	st := appstate.New()
	s := surface.New(st, surface.DefaultOptions())
	nav := navigate.New(st, editstore.New(), s)
	nav.Reset(pages)
	region := capture.NewRegion(whitePages{pages}, s, 2)
	sink := &memorySink{}
	p := export.New(st, nav, region, sink, export.Options{})
	clip := &fakeClipboard{}
	tb := New(st, s, nav, p, region, WithClipboard(clip))
	return &fixture{tb: tb, state: st, s: s, nav: nav, clip: clip, sink: sink}
}

func TestBusyWhileExporting(t *testing.T) {
	f := newFixture(t, 3)
	id, err := f.tb.AddShape(annotation.KindRectangle)
	if err != nil {
		t.Fatalf("AddShape: %v", err)
	}
	f.s.Select(id)
	if !f.state.BeginExport() {
		t.Fatal("BeginExport failed")
	}
	for _, line := range []string{"move 100 0", "resize 3", "raise", "clear"} {
		if err := f.tb.Exec(context.Background(), io.Discard, line); !errors.Is(err, ErrBusy) {
			t.Fatalf("%s error = %v", line, err)
		}
	}
	if r := f.s.Annotations()[0].(*annotation.Rectangle); r.X != 10 || r.W != 50 || r.H != 50 {
		t.Fatalf("rectangle changed during export: %+v", r)
	}
	if _, err := f.tb.Next(); !errors.Is(err, ErrBusy) {
		t.Fatalf("Next error = %v", err)
	}
	if _, err := f.tb.GoToPage(3); !errors.Is(err, ErrBusy) {
		t.Fatalf("GoToPage error = %v", err)
	}
	if _, err := f.tb.AddShape(annotation.KindRectangle); !errors.Is(err, ErrBusy) {
		t.Fatalf("AddShape error = %v", err)
	}
	if f.state.Page() != 1 || f.s.Len() != 1 {
		t.Fatalf("state changed: page %d len %d", f.state.Page(), f.s.Len())
	}
	f.state.EndExport()
	if ok, err := f.tb.Next(); !ok || err != nil {
		t.Fatalf("Next after export = %v, %v", ok, err)
	}
}

func TestToggleToolExclusive(t *testing.T) {
	f := newFixture(t, 1)
	f.tb.ToggleTool(appstate.ToolFreehand)
	if got := f.tb.ToggleTool(appstate.ToolHighlight); got != appstate.ToolHighlight {
		t.Fatalf("tool = %v", got)
	}
	if got := f.tb.ToggleTool(appstate.ToolHighlight); got != appstate.ToolNone {
		t.Fatalf("second toggle = %v", got)
	}
}

func TestStyleForwardedToSelection(t *testing.T) {
	f := newFixture(t, 1)
	id, err := f.tb.AddShape(annotation.KindRectangle)
	if err != nil {
		t.Fatal(err)
	}
	f.s.Select(id)
	blue := annotation.MustColor("blue")
	f.tb.SetStroke(blue)
	f.tb.SetWidth(42)
	r := f.s.Annotations()[0].(*annotation.Rectangle)
	if r.Stroke != blue || r.StrokeWidth != annotation.MaxStrokeWidth {
		t.Fatalf("style = %+v", r.Style)
	}
	if f.state.Settings().Stroke == blue {
		t.Fatal("defaults changed while a shape was selected")
	}
}

func TestVisibilityKeepsAnnotations(t *testing.T) {
	f := newFixture(t, 1)
	f.tb.AddShape(annotation.KindCircle)
	if !f.tb.ToggleVisibility() {
		t.Fatal("overlay not hidden")
	}
	if f.s.Len() != 1 {
		t.Fatalf("len = %d", f.s.Len())
	}
	if f.tb.ToggleVisibility() {
		t.Fatal("overlay still hidden")
	}
}

func TestPasteImage(t *testing.T) {
	f := newFixture(t, 1)
	if _, err := f.tb.PasteImage(); err == nil {
		t.Fatal("paste from empty clipboard succeeded")
	}
	f.clip.data = []byte("not an image")
	if _, err := f.tb.PasteImage(); err == nil {
		t.Fatal("paste of garbage succeeded")
	}
	if f.s.Len() != 0 {
		t.Fatalf("len = %d", f.s.Len())
	}
	var buf bytes.Buffer
	png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 10, 5)))
	f.clip.data = buf.Bytes()
	if _, err := f.tb.PasteImage(); err != nil {
		t.Fatalf("PasteImage: %v", err)
	}
	if f.s.Len() != 1 || f.s.Annotations()[0].Kind() != annotation.KindImage {
		t.Fatalf("annotations = %v", f.s.Annotations())
	}
}

func TestCopyPage(t *testing.T) {
	f := newFixture(t, 1)
	if err := f.tb.CopyPage(context.Background()); err != nil {
		t.Fatalf("CopyPage: %v", err)
	}
	if f.clip.written == nil || f.clip.written.Bounds().Dx() != 200 {
		t.Fatalf("written = %v", f.clip.written)
	}
}

func TestHandleKey(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	press := func(code key.Code, mods key.Modifiers) bool {
		t.Helper()
		ok, err := f.tb.HandleKey(ctx, key.Event{Code: code, Modifiers: mods, Direction: key.DirPress})
		if err != nil {
			t.Fatalf("key %v: %v", code, err)
		}
		return ok
	}
	if !press(key.CodeR, 0) || f.s.Len() != 1 {
		t.Fatalf("R did not add a rectangle")
	}
	if !press(key.CodeF, 0) || f.state.Tool() != appstate.ToolFreehand {
		t.Fatalf("F tool = %v", f.state.Tool())
	}
	if !press(key.CodeRightArrow, 0) || f.state.Page() != 2 {
		t.Fatalf("page = %d", f.state.Page())
	}
	if press(key.CodeQ, 0) {
		t.Fatal("unbound key handled")
	}
	if !press(key.CodeE, key.ModShift) {
		t.Fatal("Shift+E not bound")
	}
	f.tb.Wait()
	if f.sink.offers != 1 {
		t.Fatalf("offers = %d", f.sink.offers)
	}
	if f.state.Page() != 2 {
		t.Fatalf("page after export = %d", f.state.Page())
	}
}

func TestScriptScenario(t *testing.T) {
	f := newFixture(t, 2)
	script := `
# mark page one
rect 10 10 50 50
text 10 70 note
next
list
prev
export page
`
	var out bytes.Buffer
	if err := f.tb.Run(context.Background(), strings.NewReader(script), &out); err != nil {
		t.Fatalf("Run: %v\n%s", err, out.String())
	}
	got := f.s.Annotations()
	if len(got) != 2 || got[0].Kind() != annotation.KindRectangle || got[1].Kind() != annotation.KindText {
		t.Fatalf("annotations = %v", got)
	}
	if tb := got[1].(*annotation.TextBox); tb.Text != "note" || tb.X != 10 || tb.Y != 70 {
		t.Fatalf("text box = %+v", tb)
	}
	if !strings.Contains(out.String(), "page 2/2") || !strings.Contains(out.String(), "exported marked_submission.pdf") {
		t.Fatalf("output:\n%s", out.String())
	}
	if f.sink.offers != 1 || f.state.Exporting() {
		t.Fatalf("offers=%d exporting=%v", f.sink.offers, f.state.Exporting())
	}
}

func TestScriptDrawRestoresTool(t *testing.T) {
	f := newFixture(t, 1)
	var out bytes.Buffer
	if err := f.tb.Exec(context.Background(), &out, "draw 0,0 10,10 20,5"); err != nil {
		t.Fatalf("draw: %v", err)
	}
	if f.state.Tool() != appstate.ToolNone {
		t.Fatalf("tool = %v", f.state.Tool())
	}
	s := f.s.Annotations()[0].(*annotation.Stroke)
	if len(s.Points) != 3 {
		t.Fatalf("points = %v", s.Points)
	}
}

func TestScriptSelectAndDelete(t *testing.T) {
	f := newFixture(t, 1)
	var out bytes.Buffer
	for _, line := range []string{"rect 0 0 10 10", "circle 100 100 5", "select 5 5", "delete"} {
		if err := f.tb.Exec(context.Background(), &out, line); err != nil {
			t.Fatalf("%s: %v", line, err)
		}
	}
	if f.s.Len() != 1 || !strings.Contains(out.String(), "deleted 1") {
		t.Fatalf("len=%d out=%s", f.s.Len(), out.String())
	}
}

func TestScriptErrors(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	var out bytes.Buffer
	if err := f.tb.Exec(ctx, &out, "frobnicate"); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("unknown command error = %v", err)
	}
	for _, line := range []string{"goto x", "rect 1 2", "color #12", "tool laser", "width wide"} {
		if err := f.tb.Exec(ctx, &out, line); err == nil {
			t.Errorf("%q succeeded", line)
		}
	}
	err := f.tb.Run(ctx, strings.NewReader("rect\nbogus\nrect\n"), &out)
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("Run error = %v", err)
	}
	if f.s.Len() != 1 {
		t.Fatalf("len = %d, run did not stop at the failing line", f.s.Len())
	}
}

func TestGotoOutOfRangeIsNoop(t *testing.T) {
	f := newFixture(t, 2)
	var out bytes.Buffer
	if err := f.tb.Exec(context.Background(), &out, "goto 9"); err != nil {
		t.Fatalf("goto: %v", err)
	}
	if f.state.Page() != 1 {
		t.Fatalf("page = %d", f.state.Page())
	}
}
