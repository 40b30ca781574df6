package source

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/example/possemark/internal/render"
)

// Images is a document made of one image file per page.
type Images struct {
	Paths []string
}

// NewImages returns an image-set document in page order.
func NewImages(paths ...string) *Images {
	return &Images{Paths: append([]string(nil), paths...)}
}

func (s *Images) PageCount(ctx context.Context) (int, error) {
	return len(s.Paths), ctx.Err()
}

func (s *Images) RenderPage(ctx context.Context, page int, scale float64) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkPage(page, len(s.Paths)); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Paths[page-1])
	if err != nil {
		return nil, fmt.Errorf("open page %d: %w", page, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode page %d: %w", page, err)
	}
	if scale <= 0 || scale == 1 {
		return img, nil
	}
	b := img.Bounds()
	w := int(math.Round(float64(b.Dx()) * scale))
	h := int(math.Round(float64(b.Dy()) * scale))
	return render.Scale(img, w, h), nil
}
