package toolbar

import (
	"context"

	"golang.org/x/mobile/event/key"

	"github.com/example/possemark/internal/annotation"
	"github.com/example/possemark/internal/appstate"
)

// KeyShortcut describes a keyboard combination that triggers an action.
type KeyShortcut struct {
	Code      key.Code
	Modifiers key.Modifiers
}

// Binding is a named toolbar action and its shortcuts.
type Binding struct {
	Name string
	Keys []KeyShortcut
	// Background actions run through Toolbar.Go so the event loop keeps
	// painting while they work.
	Background bool
	Run        func(ctx context.Context) error
}

const modMask = key.ModShift | key.ModControl | key.ModAlt | key.ModMeta

// Bindings lists every keyboard action.
func (t *Toolbar) Bindings() []*Binding {
	shape := func(k annotation.Kind) func(context.Context) error {
		return func(context.Context) error { _, err := t.AddShape(k); return err }
	}
	tool := func(tl appstate.Tool) func(context.Context) error {
		return func(context.Context) error { t.ToggleTool(tl); return nil }
	}
	width := func(d int) func(context.Context) error {
		return func(context.Context) error {
			t.SetWidth(t.state.Settings().StrokeWidth + d)
			return nil
		}
	}
	return []*Binding{
		{Name: "next", Keys: []KeyShortcut{{Code: key.CodeRightArrow}, {Code: key.CodePageDown}},
			Run: func(context.Context) error { _, err := t.Next(); return err }},
		{Name: "prev", Keys: []KeyShortcut{{Code: key.CodeLeftArrow}, {Code: key.CodePageUp}},
			Run: func(context.Context) error { _, err := t.Prev(); return err }},
		{Name: "select", Keys: []KeyShortcut{{Code: key.CodeS}}, Run: tool(appstate.ToolSelect)},
		{Name: "freehand", Keys: []KeyShortcut{{Code: key.CodeF}}, Run: tool(appstate.ToolFreehand)},
		{Name: "highlight", Keys: []KeyShortcut{{Code: key.CodeH}}, Run: tool(appstate.ToolHighlight)},
		{Name: "rect", Keys: []KeyShortcut{{Code: key.CodeR}}, Run: shape(annotation.KindRectangle)},
		{Name: "circle", Keys: []KeyShortcut{{Code: key.CodeC}}, Run: shape(annotation.KindCircle)},
		{Name: "text", Keys: []KeyShortcut{{Code: key.CodeT}}, Run: shape(annotation.KindText)},
		{Name: "delete", Keys: []KeyShortcut{{Code: key.CodeDeleteForward}, {Code: key.CodeDeleteBackspace}},
			Run: func(context.Context) error { _, err := t.DeleteSelected(); return err }},
		{Name: "visibility", Keys: []KeyShortcut{{Code: key.CodeV}},
			Run: func(context.Context) error { t.ToggleVisibility(); return nil }},
		{Name: "paste", Keys: []KeyShortcut{{Code: key.CodeV, Modifiers: key.ModControl}},
			Run: func(context.Context) error { _, err := t.PasteImage(); return err }},
		{Name: "copy", Keys: []KeyShortcut{{Code: key.CodeC, Modifiers: key.ModControl}}, Background: true,
			Run: t.CopyPage},
		{Name: "export page", Keys: []KeyShortcut{{Code: key.CodeE}}, Background: true,
			Run: func(ctx context.Context) error { _, err := t.ExportPage(ctx); return err }},
		{Name: "export all", Keys: []KeyShortcut{{Code: key.CodeE, Modifiers: key.ModShift}}, Background: true,
			Run: func(ctx context.Context) error { _, err := t.ExportAll(ctx); return err }},
		{Name: "next color", Keys: []KeyShortcut{{Code: key.CodeRightSquareBracket}},
			Run: func(context.Context) error { t.CycleStroke(1); return nil }},
		{Name: "prev color", Keys: []KeyShortcut{{Code: key.CodeLeftSquareBracket}},
			Run: func(context.Context) error { t.CycleStroke(-1); return nil }},
		{Name: "wider", Keys: []KeyShortcut{{Code: key.CodeEqualSign}, {Code: key.CodeKeypadPlusSign}}, Run: width(1)},
		{Name: "thinner", Keys: []KeyShortcut{{Code: key.CodeHyphenMinus}, {Code: key.CodeKeypadHyphenMinus}}, Run: width(-1)},
	}
}

// HandleKey runs the action bound to a key press. It reports whether the
// key was bound; foreground action errors are returned.
func (t *Toolbar) HandleKey(ctx context.Context, e key.Event) (bool, error) {
	if e.Direction != key.DirPress && e.Direction != key.DirNone {
		return false, nil
	}
	b, ok := t.keys[KeyShortcut{Code: e.Code, Modifiers: e.Modifiers & modMask}]
	if !ok {
		return false, nil
	}
	if b.Background {
		t.Go(b.Name, func() error { return b.Run(ctx) })
		return true, nil
	}
	return true, b.Run(ctx)
}
