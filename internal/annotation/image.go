package annotation

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/example/possemark/internal/render"
)

const (
	dataURLPrefix = "data:image/png;base64,"
	decodedTTL    = 5 * time.Minute
)

// Image is a raster placed on the page, scaled to ScaledWidth with its aspect
// ratio preserved. SourceRef holds the pixels as a PNG data URL so snapshots
// are self-contained.
type Image struct {
	Meta
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	ScaledWidth float64 `json:"scaledWidth"`
	SourceRef   string  `json:"sourceRef"`

	px *pixels
}

// decoded shares rasters between Image values restored from the same
// reference, so revisiting a page does not decode again.
var decoded = cache.New(decodedTTL, 2*decodedTTL)

// pixels decodes one reference at most once. Copies of an Image share it.
type pixels struct {
	ref  string
	key  string
	once sync.Once
	img  image.Image
	err  error
}

func newPixels(ref string) *pixels {
	sum := sha256.Sum256([]byte(ref))
	return &pixels{ref: ref, key: hex.EncodeToString(sum[:])}
}

func (p *pixels) load() (image.Image, error) {
	p.once.Do(func() {
		if v, ok := decoded.Get(p.key); ok {
			p.img = v.(image.Image)
			return
		}
		p.img, p.err = decodeRef(p.ref)
		if p.err == nil {
			decoded.SetDefault(p.key, p.img)
		}
	})
	return p.img, p.err
}

// NewImage decodes r (PNG, JPEG, GIF, BMP, TIFF or WebP) and returns an Image
// annotation at (x, y) scaled to width.
func NewImage(r io.Reader, x, y, width float64) (*Image, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if src.Bounds().Empty() {
		return nil, fmt.Errorf("decode image: empty bounds")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	ref := dataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes())
	px := newPixels(ref)
	px.once.Do(func() { px.img = src })
	return &Image{Meta: Meta{UID: NewID()}, X: x, Y: y, ScaledWidth: width, SourceRef: ref, px: px}, nil
}

// Source returns the referenced pixels. Values built by NewImage or Unmarshal
// decode once; hand-built values decode on every call.
func (im *Image) Source() (image.Image, error) {
	if im.px != nil && im.px.ref == im.SourceRef {
		return im.px.load()
	}
	return decodeRef(im.SourceRef)
}

// bind attaches a pixel holder for the current SourceRef.
func (im *Image) bind() { im.px = newPixels(im.SourceRef) }

func decodeRef(ref string) (image.Image, error) {
	if !strings.HasPrefix(ref, "data:") {
		return nil, fmt.Errorf("unsupported image reference")
	}
	comma := strings.IndexByte(ref, ',')
	if comma < 0 || !strings.HasSuffix(ref[:comma], ";base64") {
		return nil, fmt.Errorf("image reference is not a base64 data URL")
	}
	raw, err := base64.StdEncoding.DecodeString(ref[comma+1:])
	if err != nil {
		return nil, fmt.Errorf("decode image reference: %w", err)
	}
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return src, nil
}

func (im *Image) height() float64 {
	src, err := im.Source()
	if err != nil || src.Bounds().Dx() == 0 {
		return 0
	}
	b := src.Bounds()
	return im.ScaledWidth * float64(b.Dy()) / float64(b.Dx())
}

func (im *Image) Kind() Kind           { return KindImage }
func (im *Image) Bounds() Rect         { return Rect{X: im.X, Y: im.Y, W: im.ScaledWidth, H: im.height()} }
func (im *Image) HitTest(p Point) bool { return im.Bounds().Contains(p) }

// ApplyStyle is a no-op; images carry no style.
func (im *Image) ApplyStyle(StylePatch) {}

func (im *Image) Translate(dx, dy float64) { im.X += dx; im.Y += dy }

// Resize keeps the aspect ratio and uses the horizontal factor.
func (im *Image) Resize(sx, _ float64) { im.ScaledWidth = math.Max(0, im.ScaledWidth*sx) }

func (im *Image) Validate() error { return nonNegative("scaled width", im.ScaledWidth) }

func (im *Image) Render(dst *image.RGBA, scale float64) error {
	src, err := im.Source()
	if err != nil {
		return err
	}
	render.ScaleOver(dst, im.Bounds().Pixels(scale), src)
	return nil
}
