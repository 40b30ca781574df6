package appstate

import (
	"sync"

	"github.com/example/possemark/internal/annotation"
)

// PaletteColor is a named swatch offered by the colour pickers.
type PaletteColor struct {
	Name  string
	Color annotation.Color
}

var (
	paletteMu sync.RWMutex
	palette   = []PaletteColor{
		{"Black", annotation.Color{A: 255}},
		{"White", annotation.Color{R: 255, G: 255, B: 255, A: 255}},
		{"Red", annotation.Color{R: 255, A: 255}},
		{"Lime", annotation.Color{G: 255, A: 255}},
		{"Blue", annotation.Color{B: 255, A: 255}},
		{"Yellow", annotation.Color{R: 255, G: 255, A: 255}},
		{"Cyan", annotation.Color{G: 255, B: 255, A: 255}},
		{"Magenta", annotation.Color{R: 255, B: 255, A: 255}},
		{"Maroon", annotation.Color{R: 128, A: 255}},
		{"Green", annotation.Color{G: 128, A: 255}},
		{"Navy", annotation.Color{B: 128, A: 255}},
		{"Gray", annotation.Color{R: 128, G: 128, B: 128, A: 255}},
		{"Transparent", annotation.Transparent},
	}
)

// PaletteColors returns a copy of the available swatches.
func PaletteColors() []PaletteColor {
	paletteMu.RLock()
	defer paletteMu.RUnlock()
	out := make([]PaletteColor, len(palette))
	copy(out, palette)
	return out
}

// EnsurePaletteColor makes sure col is present in the palette and returns its index.
func EnsurePaletteColor(col annotation.Color, name string) int {
	paletteMu.Lock()
	defer paletteMu.Unlock()
	for idx, existing := range palette {
		if existing.Color == col {
			return idx
		}
	}
	if name == "" {
		name = col.String()
	}
	palette = append(palette, PaletteColor{Name: name, Color: col})
	return len(palette) - 1
}

// NextPaletteColor returns the swatch after col, wrapping around. Colours not
// in the palette step to the first entry.
func NextPaletteColor(col annotation.Color, step int) PaletteColor {
	paletteMu.RLock()
	defer paletteMu.RUnlock()
	idx := -1
	for i, p := range palette {
		if p.Color == col {
			idx = i
			break
		}
	}
	if idx < 0 {
		return palette[0]
	}
	n := len(palette)
	return palette[((idx+step)%n+n)%n]
}
