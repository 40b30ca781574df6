package annotation

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// Color is a non-premultiplied RGBA colour that serialises as #RRGGBB or
// #RRGGBBAA.
type Color color.NRGBA

// Transparent is the zero colour.
var Transparent = Color{}

// RGBA implements color.Color.
func (c Color) RGBA() (r, g, b, a uint32) { return color.NRGBA(c).RGBA() }

// WithAlpha returns c with its alpha channel multiplied by f, clamped to [0,1].
func (c Color) WithAlpha(f float64) Color {
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	c.A = uint8(float64(c.A)*f + 0.5)
	return c
}

// String formats c as a hex colour.
func (c Color) String() string {
	if c.A == 255 {
		return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02X%02X%02X%02X", c.R, c.G, c.B, c.A)
}

// MarshalText implements encoding.TextMarshaler.
func (c Color) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Color) UnmarshalText(b []byte) error {
	v, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ParseColor accepts CSS colour names, "transparent", #RGB, #RRGGBB and
// #RRGGBBAA.
func ParseColor(s string) (Color, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return Color{}, fmt.Errorf("color cannot be empty")
	}
	if name == "transparent" || name == "none" {
		return Transparent, nil
	}
	if c, ok := colornames.Map[name]; ok {
		return Color{R: c.R, G: c.G, B: c.B, A: c.A}, nil
	}
	if !strings.HasPrefix(name, "#") {
		return Color{}, fmt.Errorf("invalid color %q", s)
	}
	hex := name[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 && len(hex) != 8 {
		return Color{}, fmt.Errorf("invalid color %q", s)
	}
	val, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q", s)
	}
	if len(hex) == 6 {
		return Color{R: uint8(val >> 16), G: uint8(val >> 8), B: uint8(val), A: 255}, nil
	}
	return Color{R: uint8(val >> 24), G: uint8(val >> 16), B: uint8(val >> 8), A: uint8(val)}, nil
}

// MustColor is ParseColor for built-in defaults; it panics on bad input.
func MustColor(s string) Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}
