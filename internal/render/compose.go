package render

import (
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// Blank returns a fully transparent canvas of the given size.
func Blank(w, h int) *image.RGBA {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

// ScaleOver draws src scaled into rect of dst, compositing over existing pixels.
func ScaleOver(dst *image.RGBA, rect image.Rectangle, src image.Image) {
	if src == nil || rect.Empty() || src.Bounds().Empty() {
		return
	}
	xdraw.CatmullRom.Scale(dst, rect, src, src.Bounds(), draw.Over, nil)
}

// Scale returns a copy of src resized to w×h.
func Scale(src image.Image, w, h int) *image.RGBA {
	out := Blank(w, h)
	if src == nil || w == 0 || h == 0 {
		return out
	}
	xdraw.CatmullRom.Scale(out, out.Bounds(), src, src.Bounds(), draw.Src, nil)
	return out
}

// Flatten places page on an opaque background and composites overlay on top.
// The overlay is stretched to the page bounds when the sizes differ. A nil
// overlay yields the page alone.
func Flatten(page image.Image, overlay image.Image, background color.Color) *image.RGBA {
	b := page.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), page, b.Min, draw.Over)
	if overlay == nil {
		return out
	}
	if overlay.Bounds().Size() == out.Bounds().Size() {
		draw.Draw(out, out.Bounds(), overlay, overlay.Bounds().Min, draw.Over)
	} else {
		ScaleOver(out, out.Bounds(), overlay)
	}
	return out
}
