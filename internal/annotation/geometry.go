package annotation

import (
	"image"
	"math"
)

// Point is a location in page space. Page space is the page raster at scale 1
// with the origin in the top-left corner.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by (dx, dy).
func (p Point) Add(dx, dy float64) Point { return Point{p.X + dx, p.Y + dy} }

// Rect is an axis-aligned box in page space.
type Rect struct {
	X, Y, W, H float64
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

// Inset grows (negative n) or shrinks r on every side.
func (r Rect) Inset(n float64) Rect {
	return Rect{X: r.X + n, Y: r.Y + n, W: math.Max(0, r.W-2*n), H: math.Max(0, r.H-2*n)}
}

// Pixels maps r into a device rectangle at the given scale.
func (r Rect) Pixels(scale float64) image.Rectangle {
	return image.Rect(px(r.X, scale), px(r.Y, scale), px(r.X+r.W, scale), px(r.Y+r.H, scale))
}

func px(v, scale float64) int { return int(math.Round(v * scale)) }

// segmentDistance returns the distance from p to the segment ab.
func segmentDistance(p, a, b Point) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	if dx == 0 && dy == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / (dx*dx + dy*dy)
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(p.X-(a.X+t*dx), p.Y-(a.Y+t*dy))
}
