package annotation

import (
	"fmt"
	"image"
	"math"

	"github.com/example/possemark/internal/render"
)

// Rectangle is an outlined and optionally filled box.
type Rectangle struct {
	Meta
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
	Style
}

// NewRectangle returns a rectangle with a fresh identifier.
func NewRectangle(x, y, w, h float64, s Style) *Rectangle {
	return &Rectangle{Meta: Meta{UID: NewID()}, X: x, Y: y, W: w, H: h, Style: s}
}

func (r *Rectangle) Kind() Kind   { return KindRectangle }
func (r *Rectangle) Bounds() Rect { return Rect{X: r.X, Y: r.Y, W: r.W, H: r.H} }

func (r *Rectangle) HitTest(p Point) bool {
	return r.Bounds().Inset(-float64(r.StrokeWidth)/2 - hitTolerance).Contains(p)
}

func (r *Rectangle) ApplyStyle(p StylePatch) { r.Style = p.Apply(r.Style) }
func (r *Rectangle) Translate(dx, dy float64) { r.X += dx; r.Y += dy }

func (r *Rectangle) Resize(sx, sy float64) {
	r.W = math.Max(0, r.W*sx)
	r.H = math.Max(0, r.H*sy)
}

func (r *Rectangle) Validate() error {
	if err := nonNegative("width", r.W); err != nil {
		return err
	}
	return nonNegative("height", r.H)
}

func (r *Rectangle) Render(dst *image.RGBA, scale float64) error {
	rect := r.Bounds().Pixels(scale)
	render.FillRect(dst, rect, r.Fill)
	render.Rect(dst, rect, r.Stroke, px(float64(r.StrokeWidth), scale))
	return nil
}

// Circle is described by the top-left corner of its bounding square and a radius.
type Circle struct {
	Meta
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
	Style
}

// NewCircle returns a circle with a fresh identifier.
func NewCircle(x, y, radius float64, s Style) *Circle {
	return &Circle{Meta: Meta{UID: NewID()}, X: x, Y: y, Radius: radius, Style: s}
}

// Center returns the circle centre in page space.
func (c *Circle) Center() Point { return Point{c.X + c.Radius, c.Y + c.Radius} }

func (c *Circle) Kind() Kind   { return KindCircle }
func (c *Circle) Bounds() Rect { return Rect{X: c.X, Y: c.Y, W: 2 * c.Radius, H: 2 * c.Radius} }

func (c *Circle) HitTest(p Point) bool {
	ctr := c.Center()
	return math.Hypot(p.X-ctr.X, p.Y-ctr.Y) <= c.Radius+float64(c.StrokeWidth)/2+hitTolerance
}

func (c *Circle) ApplyStyle(p StylePatch) { c.Style = p.Apply(c.Style) }
func (c *Circle) Translate(dx, dy float64) { c.X += dx; c.Y += dy }

// Resize keeps the shape circular by using the larger factor.
func (c *Circle) Resize(sx, sy float64) {
	c.Radius = math.Max(0, c.Radius*math.Max(sx, sy))
}

func (c *Circle) Validate() error { return nonNegative("radius", c.Radius) }

func (c *Circle) Render(dst *image.RGBA, scale float64) error {
	ctr := c.Center()
	r := c.Radius * scale
	render.FillEllipse(dst, ctr.X*scale, ctr.Y*scale, r, r, c.Fill)
	ir := px(c.Radius, scale)
	render.Ellipse(dst, px(ctr.X, scale), px(ctr.Y, scale), ir, ir, c.Stroke, px(float64(c.StrokeWidth), scale))
	return nil
}

// Highlight is a translucent box placed with the highlight tool.
type Highlight struct {
	Meta
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	W       float64 `json:"w"`
	H       float64 `json:"h"`
	Fill    Color   `json:"fill"`
	Opacity float64 `json:"opacity"`
}

// NewHighlight returns a highlight with a fresh identifier.
func NewHighlight(x, y, w, h float64, fill Color, opacity float64) *Highlight {
	return &Highlight{Meta: Meta{UID: NewID()}, X: x, Y: y, W: w, H: h, Fill: fill, Opacity: opacity}
}

func (h *Highlight) Kind() Kind           { return KindHighlight }
func (h *Highlight) Bounds() Rect         { return Rect{X: h.X, Y: h.Y, W: h.W, H: h.H} }
func (h *Highlight) HitTest(p Point) bool { return h.Bounds().Contains(p) }

func (h *Highlight) ApplyStyle(p StylePatch) {
	if p.Fill != nil {
		h.Fill = *p.Fill
	}
}

func (h *Highlight) Translate(dx, dy float64) { h.X += dx; h.Y += dy }

func (h *Highlight) Resize(sx, sy float64) {
	h.W = math.Max(0, h.W*sx)
	h.H = math.Max(0, h.H*sy)
}

func (h *Highlight) Validate() error {
	if err := nonNegative("width", h.W); err != nil {
		return err
	}
	if err := nonNegative("height", h.H); err != nil {
		return err
	}
	if h.Opacity < 0 || h.Opacity > 1 || math.IsNaN(h.Opacity) {
		return fmt.Errorf("%w: opacity %g outside [0,1]", ErrInvalidGeometry, h.Opacity)
	}
	return nil
}

func (h *Highlight) Render(dst *image.RGBA, scale float64) error {
	render.FillRect(dst, h.Bounds().Pixels(scale), h.Fill.WithAlpha(h.Opacity))
	return nil
}
