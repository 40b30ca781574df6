package annotation

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/patrickmn/go-cache"
)

var red = Color{R: 255, A: 255}

func samplePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{G: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestMarshalRoundTrip(t *testing.T) {
	im, err := NewImage(bytes.NewReader(samplePNG(t, 4, 2)), 5, 6, 40)
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}
	in := []Annotation{
		NewRectangle(10, 10, 50, 50, Style{Fill: Transparent, Stroke: red, StrokeWidth: 2}),
		NewCircle(100, 20, 15, Style{Fill: MustColor("#00FF0080"), Stroke: red, StrokeWidth: 1}),
		NewTextBox(30, 70, "note", red, Font{Family: "sans", Size: 18}),
		NewHighlight(0, 200, 120, 24, MustColor("yellow"), 0.4),
		NewStroke([]Point{{1, 1}, {5, 8}, {9, 2}}, red, 3),
		im,
	}
	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	out, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff(in, out, cmpopts.IgnoreUnexported(Image{})); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestUnmarshalEmptyIsEmptyLayer(t *testing.T) {
	out, err := Unmarshal(nil)
	if err != nil {
		t.Fatalf("Unmarshal(nil): %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("got %d annotations, want 0", len(out))
	}
}

func TestUnmarshalRejectsUnknownKind(t *testing.T) {
	_, err := Unmarshal([]byte(`{"version":1,"annotations":[{"kind":"hexagon","data":{}}]}`))
	if !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestUnmarshalValidatesGeometry(t *testing.T) {
	_, err := Unmarshal([]byte(`{"version":1,"annotations":[{"kind":"highlight","data":{"id":"a","w":10,"h":10,"opacity":1.5}}]}`))
	if !errors.Is(err, ErrInvalidGeometry) {
		t.Fatalf("expected ErrInvalidGeometry, got %v", err)
	}
	_, err = Unmarshal([]byte(`{"version":1,"annotations":[{"kind":"rect","data":{"id":"a","w":-1,"h":10}}]}`))
	if !errors.Is(err, ErrInvalidGeometry) {
		t.Fatalf("expected ErrInvalidGeometry for negative width, got %v", err)
	}
}

func TestUnmarshalAssignsMissingID(t *testing.T) {
	out, err := Unmarshal([]byte(`{"version":1,"annotations":[{"kind":"rect","data":{"x":1,"y":2,"w":3,"h":4}}]}`))
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out[0].ID() == "" {
		t.Fatal("expected an identifier to be assigned")
	}
}

func TestHitTest(t *testing.T) {
	cases := []struct {
		name string
		a    Annotation
		in   Point
		out  Point
	}{
		{"rect", NewRectangle(10, 10, 50, 50, Style{StrokeWidth: 1}), Point{30, 30}, Point{100, 100}},
		{"circle", NewCircle(0, 0, 10, Style{}), Point{10, 10}, Point{30, 30}},
		{"highlight", NewHighlight(0, 0, 20, 5, red, 0.5), Point{19, 4}, Point{19, 12}},
		{"stroke", NewStroke([]Point{{0, 0}, {100, 0}}, red, 2), Point{50, 3}, Point{50, 20}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !tc.a.HitTest(tc.in) {
				t.Errorf("HitTest(%v) = false, want true", tc.in)
			}
			if tc.a.HitTest(tc.out) {
				t.Errorf("HitTest(%v) = true, want false", tc.out)
			}
		})
	}
}

func TestApplyStyleRespectsVariant(t *testing.T) {
	blue := MustColor("blue")
	w := 7
	patch := StylePatch{Fill: &blue, Stroke: &blue, StrokeWidth: &w}

	r := NewRectangle(0, 0, 1, 1, Style{})
	r.ApplyStyle(patch)
	if r.Fill != blue || r.Stroke != blue || r.StrokeWidth != 7 {
		t.Fatalf("rectangle style = %+v", r.Style)
	}

	s := NewStroke(nil, red, 1)
	s.ApplyStyle(patch)
	if s.Color != blue || s.Width != 7 {
		t.Fatalf("stroke = %+v", s)
	}

	h := NewHighlight(0, 0, 1, 1, red, 0.3)
	h.ApplyStyle(patch)
	if h.Fill != blue || h.Opacity != 0.3 {
		t.Fatalf("highlight = %+v", h)
	}
}

func TestStyleWidthClamped(t *testing.T) {
	big := 25
	got := StylePatch{StrokeWidth: &big}.Apply(Style{})
	if got.StrokeWidth != MaxStrokeWidth {
		t.Fatalf("width = %d, want %d", got.StrokeWidth, MaxStrokeWidth)
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := NewStroke([]Point{{1, 1}, {2, 2}}, red, 1)
	c := Clone(s).(*Stroke)
	c.Translate(10, 10)
	if s.Points[0] != (Point{1, 1}) {
		t.Fatalf("clone shares points: %+v", s.Points)
	}
}

func TestNewImageRejectsGarbage(t *testing.T) {
	if _, err := NewImage(strings.NewReader("not an image"), 0, 0, 100); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestImageBoundsKeepAspect(t *testing.T) {
	im, err := NewImage(bytes.NewReader(samplePNG(t, 40, 20)), 0, 0, 200)
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}
	b := im.Bounds()
	if b.W != 200 || b.H != 100 {
		t.Fatalf("bounds = %+v, want 200x100", b)
	}
}

func TestImageDecodesOncePerValue(t *testing.T) {
	im, err := NewImage(bytes.NewReader(samplePNG(t, 40, 20)), 0, 0, 200)
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}
	data, err := Marshal([]Annotation{im})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	out, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	restored := out[0].(*Image)
	first, err := restored.Source()
	if err != nil {
		t.Fatalf("Source: %v", err)
	}
	decoded.Flush()
	again, err := restored.Source()
	if err != nil || again != first {
		t.Fatalf("second Source = %p, %v; want cached %p", again, err, first)
	}
	if b := Clone(restored).Bounds(); b.H != 100 {
		t.Fatalf("clone bounds = %+v", b)
	}
}

func TestDecodedImagesExpire(t *testing.T) {
	saved := decoded
	decoded = cache.New(10*time.Millisecond, 0)
	t.Cleanup(func() { decoded = saved })

	im := &Image{ScaledWidth: 10, SourceRef: dataURLPrefix + base64.StdEncoding.EncodeToString(samplePNG(t, 8, 8))}
	im.bind()
	if _, err := im.Source(); err != nil {
		t.Fatalf("Source: %v", err)
	}
	if decoded.ItemCount() != 1 {
		t.Fatalf("cached = %d, want 1", decoded.ItemCount())
	}
	time.Sleep(20 * time.Millisecond)
	decoded.DeleteExpired()
	if n := decoded.ItemCount(); n != 0 {
		t.Fatalf("expired entries kept: %d", n)
	}
}

func TestRenderHighlightIsTranslucent(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 20, 20))
	h := NewHighlight(0, 0, 10, 10, MustColor("yellow"), 0.5)
	if err := h.Render(dst, 2); err != nil {
		t.Fatalf("Render: %v", err)
	}
	got := dst.RGBAAt(19, 19)
	if got.A == 0 || got.A == 255 {
		t.Fatalf("alpha at scaled corner = %d, want translucent", got.A)
	}
	if dst.RGBAAt(0, 0).A != got.A {
		t.Fatal("highlight not uniform")
	}
}

func TestParseColor(t *testing.T) {
	cases := map[string]Color{
		"#F00":        {R: 255, A: 255},
		"#00FF00":     {G: 255, A: 255},
		"#0000FF80":   {B: 255, A: 128},
		"transparent": {},
		"white":       {R: 255, G: 255, B: 255, A: 255},
	}
	for in, want := range cases {
		got, err := ParseColor(in)
		if err != nil {
			t.Fatalf("ParseColor(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseColor(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseColor("#12"); err == nil {
		t.Error("expected error for short hex")
	}
}
