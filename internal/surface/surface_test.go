package surface

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/mobile/event/key"

	"github.com/example/possemark/internal/annotation"
	"github.com/example/possemark/internal/appstate"
	"github.com/example/possemark/internal/editstore"
)

func newSurface(t *testing.T) (*Surface, *appstate.State) {
	t.Helper()
	st := appstate.New(appstate.WithTotalPages(2))
	return New(st, DefaultOptions()), st
}

func TestAddShapeDefaults(t *testing.T) {
	s, _ := newSurface(t)
	for _, k := range []annotation.Kind{annotation.KindRectangle, annotation.KindCircle, annotation.KindText, annotation.KindHighlight} {
		if _, err := s.AddShape(k); err != nil {
			t.Fatalf("AddShape(%s): %v", k, err)
		}
	}
	got := s.Annotations()
	r := got[0].(*annotation.Rectangle)
	if r.X != 10 || r.Y != 10 || r.W != 50 || r.H != 50 {
		t.Fatalf("rectangle = %+v", r)
	}
	if r.Stroke != (annotation.Color{R: 255, A: 255}) || r.StrokeWidth != 2 {
		t.Fatalf("rectangle style = %+v", r.Style)
	}
	if tb := got[2].(*annotation.TextBox); tb.Text != "Text" {
		t.Fatalf("text = %q", tb.Text)
	}
	if _, err := s.AddShape(annotation.KindStroke); !errors.Is(err, annotation.ErrUnknownKind) {
		t.Fatalf("AddShape(stroke) error = %v", err)
	}
}

func TestDetachedSurfaceRejectsAdds(t *testing.T) {
	s, _ := newSurface(t)
	s.Detach()
	if _, err := s.AddShape(annotation.KindRectangle); !errors.Is(err, ErrNoSurface) {
		t.Fatalf("error = %v, want ErrNoSurface", err)
	}
	if err := s.Load(editstore.Snapshot{Page: 1}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := s.AddShape(annotation.KindRectangle); err != nil {
		t.Fatalf("AddShape after Load: %v", err)
	}
}

func TestFreehandRequiresTool(t *testing.T) {
	s, st := newSurface(t)
	pts := []annotation.Point{{X: 1, Y: 1}, {X: 4, Y: 4}}
	if _, err := s.AddFreehandStroke(pts); !errors.Is(err, ErrToolInactive) {
		t.Fatalf("error = %v, want ErrToolInactive", err)
	}
	st.SetTool(appstate.ToolFreehand)
	if _, err := s.AddFreehandStroke(pts); err != nil {
		t.Fatalf("AddFreehandStroke: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("len = %d", s.Len())
	}
}

func TestModeExclusivity(t *testing.T) {
	s, st := newSurface(t)
	st.SetTool(appstate.ToolHighlight)
	st.SetTool(appstate.ToolFreehand)
	if _, err := s.PlaceHighlightAt(annotation.Point{X: 5, Y: 5}); !errors.Is(err, ErrToolInactive) {
		t.Fatalf("highlight placed while freehand active: %v", err)
	}
	st.SetTool(appstate.ToolHighlight)
	if _, err := s.AddFreehandStroke([]annotation.Point{{X: 0, Y: 0}}); !errors.Is(err, ErrToolInactive) {
		t.Fatalf("stroke added while highlight active: %v", err)
	}
}

func TestPlaceHighlightIsOneShot(t *testing.T) {
	s, st := newSurface(t)
	st.SetTool(appstate.ToolHighlight)
	s.PointerDown(annotation.Point{X: 30, Y: 40}, false)
	if st.Tool() != appstate.ToolNone {
		t.Fatalf("tool = %v after placement, want none", st.Tool())
	}
	got := s.Annotations()
	if len(got) != 1 {
		t.Fatalf("len = %d", len(got))
	}
	h := got[0].(*annotation.Highlight)
	if h.X != 30 || h.Y != 40 || h.W != 120 || h.H != 24 || h.Opacity != 0.4 {
		t.Fatalf("highlight = %+v", h)
	}
	s.PointerDown(annotation.Point{X: 300, Y: 300}, false)
	if s.Len() != 1 {
		t.Fatalf("second click placed another highlight")
	}
}

func TestPointerDragMakesOneStroke(t *testing.T) {
	s, st := newSurface(t)
	st.SetTool(appstate.ToolFreehand)
	s.PointerDown(annotation.Point{X: 0, Y: 0}, false)
	s.PointerMove(annotation.Point{X: 5, Y: 5})
	s.PointerMove(annotation.Point{X: 10, Y: 5})
	s.PointerUp(annotation.Point{X: 12, Y: 6})
	got := s.Annotations()
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	want := []annotation.Point{{X: 0, Y: 0}, {X: 5, Y: 5}, {X: 10, Y: 5}, {X: 12, Y: 6}}
	if diff := cmp.Diff(want, got[0].(*annotation.Stroke).Points); diff != "" {
		t.Fatalf("points (-want +got):\n%s", diff)
	}
}

func TestApplyStyleSelectionOrDefaults(t *testing.T) {
	s, st := newSurface(t)
	id, _ := s.AddShape(annotation.KindRectangle)
	blue := annotation.MustColor("blue")

	s.ApplyStyle(annotation.StylePatch{Stroke: &blue})
	if st.Settings().Stroke != blue {
		t.Fatal("defaults not updated with empty selection")
	}
	if r := s.Annotations()[0].(*annotation.Rectangle); r.Stroke == blue {
		t.Fatal("unselected annotation restyled")
	}

	s.Select(id)
	green := annotation.MustColor("green")
	w := 6
	s.ApplyStyle(annotation.StylePatch{Fill: &green, StrokeWidth: &w})
	r := s.Annotations()[0].(*annotation.Rectangle)
	if r.Fill != green || r.StrokeWidth != 6 {
		t.Fatalf("selected style = %+v", r.Style)
	}
	if st.Settings().Fill == green {
		t.Fatal("defaults changed while a selection exists")
	}
}

func TestDeleteSelected(t *testing.T) {
	s, _ := newSurface(t)
	var ids []string
	for i := 0; i < 4; i++ {
		id, _ := s.AddShape(annotation.KindRectangle)
		ids = append(ids, id)
	}
	if n := s.DeleteSelected(); n != 0 || s.Len() != 4 {
		t.Fatalf("empty delete removed %d, len %d", n, s.Len())
	}
	s.Select(ids[1], ids[3])
	if n := s.DeleteSelected(); n != 2 || s.Len() != 2 {
		t.Fatalf("removed %d, len %d", n, s.Len())
	}
	var left []string
	for _, a := range s.Annotations() {
		left = append(left, a.ID())
	}
	if diff := cmp.Diff([]string{ids[0], ids[2]}, left); diff != "" {
		t.Fatalf("remaining (-want +got):\n%s", diff)
	}
}

func TestDeleteKey(t *testing.T) {
	s, _ := newSurface(t)
	id, _ := s.AddShape(annotation.KindCircle)
	s.Select(id)
	if !s.HandleKey(key.Event{Code: key.CodeDeleteForward, Direction: key.DirPress}) {
		t.Fatal("delete key not handled")
	}
	if s.Len() != 0 {
		t.Fatalf("len = %d", s.Len())
	}
}

func TestSelectAtPicksTopmost(t *testing.T) {
	s, _ := newSurface(t)
	s.AddShape(annotation.KindRectangle)
	top, _ := s.AddShape(annotation.KindRectangle)
	id, ok := s.SelectAt(annotation.Point{X: 20, Y: 20}, false)
	if !ok || id != top {
		t.Fatalf("SelectAt = %q %v, want %q", id, ok, top)
	}
	s.SelectAt(annotation.Point{X: 500, Y: 500}, false)
	if len(s.Selected()) != 0 {
		t.Fatal("miss did not clear selection")
	}
}

func TestRaiseMovesSelectionToTop(t *testing.T) {
	s, _ := newSurface(t)
	bottom, _ := s.AddShape(annotation.KindRectangle)
	s.AddShape(annotation.KindRectangle)
	s.Select(bottom)
	s.Raise()
	if id, _ := s.SelectAt(annotation.Point{X: 20, Y: 20}, false); id != bottom {
		t.Fatalf("topmost = %q, want %q", id, bottom)
	}
}

func TestDragMovesSelection(t *testing.T) {
	s, st := newSurface(t)
	st.SetTool(appstate.ToolSelect)
	s.AddShape(annotation.KindRectangle)
	s.PointerDown(annotation.Point{X: 20, Y: 20}, false)
	s.PointerMove(annotation.Point{X: 25, Y: 30})
	s.PointerUp(annotation.Point{X: 25, Y: 30})
	r := s.Annotations()[0].(*annotation.Rectangle)
	if r.X != 15 || r.Y != 20 {
		t.Fatalf("moved to %v,%v want 15,20", r.X, r.Y)
	}
}

func TestResizeSelected(t *testing.T) {
	s, _ := newSurface(t)
	id, _ := s.AddShape(annotation.KindRectangle)
	s.Select(id)
	s.ResizeSelected(2, 0.5)
	r := s.Annotations()[0].(*annotation.Rectangle)
	if r.W != 100 || r.H != 25 {
		t.Fatalf("size = %vx%v", r.W, r.H)
	}
}

func TestDumpLoadRoundTrip(t *testing.T) {
	s, st := newSurface(t)
	s.AddShape(annotation.KindRectangle)
	s.AddText(annotation.Point{X: 40, Y: 80}, "note")
	st.SetTool(appstate.ToolFreehand)
	s.AddFreehandStroke([]annotation.Point{{X: 1, Y: 2}, {X: 3, Y: 4}})
	snap, err := s.Dump()
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if snap.Page != 1 {
		t.Fatalf("snapshot page = %d", snap.Page)
	}

	fresh := New(st, DefaultOptions())
	if err := fresh.Load(snap); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(s.Annotations(), fresh.Annotations()); diff != "" {
		t.Fatalf("round trip (-want +got):\n%s", diff)
	}
}

func TestClearPage(t *testing.T) {
	s, _ := newSurface(t)
	s.AddShape(annotation.KindRectangle)
	s.ClearPage()
	if s.Len() != 0 {
		t.Fatalf("len = %d", s.Len())
	}
}

func TestInsertImage(t *testing.T) {
	s, _ := newSurface(t)
	if _, err := s.InsertImage(strings.NewReader("garbage")); err == nil {
		t.Fatal("expected error")
	}
	if s.Len() != 0 {
		t.Fatal("failed insert left an annotation")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 10, 5))); err != nil {
		t.Fatal(err)
	}
	if _, err := s.InsertImage(&buf); err != nil {
		t.Fatalf("InsertImage: %v", err)
	}
	b := s.Annotations()[0].Bounds()
	if b.W != 200 || b.H != 100 {
		t.Fatalf("image bounds = %+v", b)
	}
}

func TestOnChangeFires(t *testing.T) {
	s, _ := newSurface(t)
	n := 0
	s.OnChange(func() { n++ })
	s.AddShape(annotation.KindRectangle)
	s.ClearPage()
	if n != 2 {
		t.Fatalf("change callbacks = %d, want 2", n)
	}
}

func TestPointerIgnoredWhileExporting(t *testing.T) {
	s, st := newSurface(t)
	st.SetTool(appstate.ToolHighlight)
	st.BeginExport()
	s.PointerDown(annotation.Point{X: 1, Y: 1}, false)
	if s.Len() != 0 {
		t.Fatal("pointer input applied during export")
	}
}

func TestDragAbandonedWhenExportStarts(t *testing.T) {
	s, st := newSurface(t)
	st.SetTool(appstate.ToolFreehand)
	s.PointerDown(annotation.Point{X: 1, Y: 1}, false)
	s.PointerMove(annotation.Point{X: 5, Y: 5})
	st.BeginExport()
	s.PointerMove(annotation.Point{X: 9, Y: 9})
	s.PointerUp(annotation.Point{X: 9, Y: 9})
	if s.Len() != 0 {
		t.Fatal("stroke added during export")
	}
	st.EndExport()

	st.SetTool(appstate.ToolSelect)
	s.AddShape(annotation.KindRectangle)
	s.PointerDown(annotation.Point{X: 20, Y: 20}, false)
	st.BeginExport()
	s.PointerMove(annotation.Point{X: 80, Y: 80})
	s.PointerUp(annotation.Point{X: 80, Y: 80})
	st.EndExport()
	s.PointerMove(annotation.Point{X: 90, Y: 90})
	if r := s.Annotations()[0].(*annotation.Rectangle); r.X != 10 || r.Y != 10 {
		t.Fatalf("rectangle moved during export: %v,%v", r.X, r.Y)
	}
}
