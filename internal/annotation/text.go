package annotation

import (
	"image"
	"math"

	"github.com/example/possemark/internal/render"
)

// Font selects the typeface and size of a text box. Only the embedded Go
// Regular face is rendered; Family is kept so snapshots round-trip.
type Font struct {
	Family string  `json:"family,omitempty"`
	Size   float64 `json:"size"`
}

// TextBox is a single line of text anchored at its top-left corner.
type TextBox struct {
	Meta
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Text string  `json:"text"`
	Fill Color   `json:"fill"`
	Font Font    `json:"font"`
}

// NewTextBox returns a text box with a fresh identifier.
func NewTextBox(x, y float64, text string, fill Color, f Font) *TextBox {
	return &TextBox{Meta: Meta{UID: NewID()}, X: x, Y: y, Text: text, Fill: fill, Font: f}
}

func (t *TextBox) size() float64 {
	if t.Font.Size <= 0 {
		return render.DefaultTextSize
	}
	return t.Font.Size
}

func (t *TextBox) Kind() Kind { return KindText }

func (t *TextBox) Bounds() Rect {
	w, h, _, err := render.MeasureText(t.Text, t.size())
	if err != nil {
		return Rect{X: t.X, Y: t.Y}
	}
	return Rect{X: t.X, Y: t.Y, W: float64(w), H: float64(h)}
}

func (t *TextBox) HitTest(p Point) bool { return t.Bounds().Inset(-hitTolerance).Contains(p) }

// ApplyStyle recolours the text with the fill colour. A stroke width maps
// to nothing for text.
func (t *TextBox) ApplyStyle(p StylePatch) {
	if p.Fill != nil {
		t.Fill = *p.Fill
	}
}

func (t *TextBox) Translate(dx, dy float64) { t.X += dx; t.Y += dy }

// Resize scales the font size by the vertical factor.
func (t *TextBox) Resize(_, sy float64) {
	t.Font.Size = math.Max(1, t.size()*sy)
}

func (t *TextBox) Validate() error { return nonNegative("font size", t.Font.Size) }

func (t *TextBox) Render(dst *image.RGBA, scale float64) error {
	if t.Text == "" {
		return nil
	}
	return render.Text(dst, px(t.X, scale), px(t.Y, scale), t.Text, t.Fill, t.size()*scale)
}
