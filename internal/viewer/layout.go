package viewer

import (
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/example/possemark/internal/annotation"
	"github.com/example/possemark/internal/appstate"
)

const (
	statusHeight = 24
	margin       = 8
	minZoom      = 0.1
)

// layout maps page space onto the window.
type layout struct {
	Origin image.Point
	Zoom   float64
}

// ToPage converts window pixels into page coordinates.
func (l layout) ToPage(x, y float32) annotation.Point {
	z := l.Zoom
	if z <= 0 {
		z = 1
	}
	return annotation.Point{
		X: (float64(x) - float64(l.Origin.X)) / z,
		Y: (float64(y) - float64(l.Origin.Y)) / z,
	}
}

// fitZoom returns the zoom that fits a page of size pw x ph inside the
// window area above the status bar.
func fitZoom(pw, ph float64, winW, winH int) float64 {
	availW := float64(winW - 2*margin)
	availH := float64(winH - statusHeight - 2*margin)
	if pw <= 0 || ph <= 0 || availW <= 0 || availH <= 0 {
		return 1
	}
	return math.Max(minZoom, math.Min(availW/pw, availH/ph))
}

// pageRect centres an image of size sz in the page area of the window.
func pageRect(sz image.Point, winW, winH int) image.Rectangle {
	areaH := winH - statusHeight
	x := (winW - sz.X) / 2
	y := (areaH - sz.Y) / 2
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	return image.Rectangle{Min: image.Pt(x, y), Max: image.Pt(x+sz.X, y+sz.Y)}
}

// statusLine summarises the session for the bar under the page.
func statusLine(page, total int, st appstate.Settings, exporting bool, message string) string {
	var sb strings.Builder
	if total == 0 {
		sb.WriteString("no document")
	} else {
		fmt.Fprintf(&sb, "page %d/%d", page, total)
	}
	fmt.Fprintf(&sb, "  tool:%s  stroke:%s  fill:%s  width:%d", st.Tool, st.Stroke, st.Fill, st.StrokeWidth)
	if st.Hidden {
		sb.WriteString("  [hidden]")
	}
	if exporting {
		sb.WriteString("  [exporting]")
	}
	if message != "" {
		sb.WriteString("  ")
		sb.WriteString(message)
	}
	return sb.String()
}
