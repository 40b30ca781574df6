package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

// blendPixel composites col over the pixel at (x, y). Opaque colours are
// written directly so thick strokes stay crisp.
func blendPixel(img *image.RGBA, x, y int, col color.Color) {
	if !image.Pt(x, y).In(img.Bounds()) {
		return
	}
	r, g, b, a := col.RGBA()
	if a == 0xffff {
		img.SetRGBA(x, y, color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), 0xff})
		return
	}
	if a == 0 {
		return
	}
	dst := img.RGBAAt(x, y)
	inv := 0xffff - a
	img.SetRGBA(x, y, color.RGBA{
		R: uint8((r + uint32(dst.R)*0x101*inv/0xffff) >> 8),
		G: uint8((g + uint32(dst.G)*0x101*inv/0xffff) >> 8),
		B: uint8((b + uint32(dst.B)*0x101*inv/0xffff) >> 8),
		A: uint8((a + uint32(dst.A)*0x101*inv/0xffff) >> 8),
	})
}

func setThickPixel(img *image.RGBA, x, y, thick int, col color.Color) {
	r := thick / 2
	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			blendPixel(img, x+dx, y+dy, col)
		}
	}
}

// Line draws a line between the two points with the given thickness. A
// thickness of zero draws nothing.
func Line(img *image.RGBA, x0, y0, x1, y1 int, col color.Color, thick int) {
	if thick <= 0 {
		return
	}
	dx := math.Abs(float64(x1 - x0))
	dy := math.Abs(float64(y1 - y0))
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy
	for {
		setThickPixel(img, x0, y0, thick, col)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// Polyline joins consecutive points with lines. A single point is drawn as a dot.
func Polyline(img *image.RGBA, pts []image.Point, col color.Color, thick int) {
	if thick <= 0 || len(pts) == 0 {
		return
	}
	if len(pts) == 1 {
		setThickPixel(img, pts[0].X, pts[0].Y, thick, col)
		return
	}
	for i := 1; i < len(pts); i++ {
		Line(img, pts[i-1].X, pts[i-1].Y, pts[i].X, pts[i].Y, col, thick)
	}
}

// Rect outlines rect with the given thickness.
func Rect(img *image.RGBA, rect image.Rectangle, col color.Color, thick int) {
	if rect.Empty() {
		return
	}
	Line(img, rect.Min.X, rect.Min.Y, rect.Max.X-1, rect.Min.Y, col, thick)
	Line(img, rect.Max.X-1, rect.Min.Y, rect.Max.X-1, rect.Max.Y-1, col, thick)
	Line(img, rect.Max.X-1, rect.Max.Y-1, rect.Min.X, rect.Max.Y-1, col, thick)
	Line(img, rect.Min.X, rect.Max.Y-1, rect.Min.X, rect.Min.Y, col, thick)
}

// Ellipse outlines an ellipse centred at (cx, cy).
func Ellipse(img *image.RGBA, cx, cy, rx, ry int, col color.Color, thick int) {
	if thick <= 0 {
		return
	}
	steps := int(math.Ceil(2 * math.Pi * math.Sqrt(float64(rx*rx+ry*ry))))
	if steps < 8 {
		steps = 8
	}
	var prevX, prevY int
	for i := 0; i <= steps; i++ {
		angle := 2 * math.Pi * float64(i) / float64(steps)
		x := cx + int(math.Cos(angle)*float64(rx))
		y := cy + int(math.Sin(angle)*float64(ry))
		if i > 0 {
			Line(img, prevX, prevY, x, y, col, thick)
		} else {
			setThickPixel(img, x, y, thick, col)
		}
		prevX, prevY = x, y
	}
}

// FillRect composites col over rect.
func FillRect(img *image.RGBA, rect image.Rectangle, col color.Color) {
	if rect.Empty() || transparent(col) {
		return
	}
	draw.Draw(img, rect, image.NewUniform(col), image.Point{}, draw.Over)
}

// kappa is the control point distance for approximating a quarter circle
// with a cubic Bézier curve.
const kappa = 0.5522847498

// FillEllipse composites an anti-aliased filled ellipse over img.
func FillEllipse(img *image.RGBA, cx, cy, rx, ry float64, col color.Color) {
	if rx <= 0 || ry <= 0 || transparent(col) {
		return
	}
	b := img.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	x := float32(cx - float64(b.Min.X))
	y := float32(cy - float64(b.Min.Y))
	a := float32(rx)
	c := float32(ry)
	ka := float32(kappa) * a
	kc := float32(kappa) * c
	z.MoveTo(x+a, y)
	z.CubeTo(x+a, y+kc, x+ka, y+c, x, y+c)
	z.CubeTo(x-ka, y+c, x-a, y+kc, x-a, y)
	z.CubeTo(x-a, y-kc, x-ka, y-c, x, y-c)
	z.CubeTo(x+ka, y-c, x+a, y-kc, x+a, y)
	z.ClosePath()
	z.Draw(img, b, image.NewUniform(col), image.Point{})
}

func transparent(col color.Color) bool {
	if col == nil {
		return true
	}
	_, _, _, a := col.RGBA()
	return a == 0
}
