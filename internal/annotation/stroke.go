package annotation

import (
	"image"
	"math"

	"github.com/example/possemark/internal/render"
)

// Stroke is a freehand polyline produced by one pointer drag.
type Stroke struct {
	Meta
	Points []Point `json:"points"`
	Color  Color   `json:"color"`
	Width  int     `json:"width"`
}

// NewStroke returns a stroke with a fresh identifier.
func NewStroke(points []Point, col Color, width int) *Stroke {
	return &Stroke{Meta: Meta{UID: NewID()}, Points: append([]Point(nil), points...), Color: col, Width: ClampWidth(width)}
}

func (s *Stroke) Kind() Kind { return KindStroke }

func (s *Stroke) Bounds() Rect {
	if len(s.Points) == 0 {
		return Rect{}
	}
	minX, minY := s.Points[0].X, s.Points[0].Y
	maxX, maxY := minX, minY
	for _, p := range s.Points[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

func (s *Stroke) HitTest(p Point) bool {
	limit := float64(s.Width)/2 + hitTolerance
	switch len(s.Points) {
	case 0:
		return false
	case 1:
		return segmentDistance(p, s.Points[0], s.Points[0]) <= limit
	}
	for i := 1; i < len(s.Points); i++ {
		if segmentDistance(p, s.Points[i-1], s.Points[i]) <= limit {
			return true
		}
	}
	return false
}

// ApplyStyle maps the stroke colour and width onto the stroke.
func (s *Stroke) ApplyStyle(p StylePatch) {
	if p.Stroke != nil {
		s.Color = *p.Stroke
	}
	if p.StrokeWidth != nil {
		s.Width = ClampWidth(*p.StrokeWidth)
	}
}

func (s *Stroke) Translate(dx, dy float64) {
	for i := range s.Points {
		s.Points[i] = s.Points[i].Add(dx, dy)
	}
}

func (s *Stroke) Resize(sx, sy float64) {
	if len(s.Points) == 0 {
		return
	}
	o := s.Bounds()
	for i, p := range s.Points {
		s.Points[i] = Point{X: o.X + (p.X-o.X)*sx, Y: o.Y + (p.Y-o.Y)*sy}
	}
}

func (s *Stroke) Validate() error { return nonNegative("width", float64(s.Width)) }

func (s *Stroke) Render(dst *image.RGBA, scale float64) error {
	pts := make([]image.Point, len(s.Points))
	for i, p := range s.Points {
		pts[i] = image.Pt(px(p.X, scale), px(p.Y, scale))
	}
	render.Polyline(dst, pts, s.Color, px(float64(s.Width), scale))
	return nil
}
