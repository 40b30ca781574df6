package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// DefaultTextSize is used when a text annotation carries no usable size.
const DefaultTextSize = 16

var (
	fontOnce sync.Once
	fontErr  error
	regular  *opentype.Font
	faces    sync.Map // map[float64]font.Face
)

func loadFont() {
	regular, fontErr = opentype.Parse(goregular.TTF)
}

func faceForSize(size float64) (font.Face, error) {
	if size <= 0 {
		size = DefaultTextSize
	}
	// Quarter point buckets keep the cache small when exports scale sizes.
	size = math.Round(size*4) / 4
	fontOnce.Do(loadFont)
	if fontErr != nil {
		return nil, fmt.Errorf("parse font: %w", fontErr)
	}
	if face, ok := faces.Load(size); ok {
		return face.(font.Face), nil
	}
	face, err := opentype.NewFace(regular, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, err
	}
	faces.Store(size, face)
	return face, nil
}

// MeasureText returns the dimensions of text rendered at the provided size.
// The returned width and height represent the bounding box, while baseline is
// the offset from the top to the text baseline.
func MeasureText(text string, size float64) (width, height, baseline int, err error) {
	face, err := faceForSize(size)
	if err != nil {
		return 0, 0, 0, err
	}
	drawer := &font.Drawer{Face: face}
	width = drawer.MeasureString(text).Ceil()
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	descent := metrics.Descent.Ceil()
	baseline = ascent
	height = ascent + descent
	return
}

// Text renders the provided text with its top-left corner at (x, y).
func Text(img *image.RGBA, x, y int, text string, col color.Color, size float64) error {
	face, err := faceForSize(size)
	if err != nil {
		return err
	}
	metrics := face.Metrics()
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, y+metrics.Ascent.Ceil()),
	}
	drawer.DrawString(text)
	return nil
}
