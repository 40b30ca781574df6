// Package annotation defines the vector and raster marks that are overlaid on
// a document page, together with their geometry, styling and serialised form.
package annotation

import (
	"errors"
	"fmt"
	"image"

	"github.com/google/uuid"
)

// Kind tags the concrete variant of an Annotation.
type Kind string

const (
	KindRectangle Kind = "rect"
	KindCircle    Kind = "circle"
	KindText      Kind = "text"
	KindImage     Kind = "image"
	KindHighlight Kind = "highlight"
	KindStroke    Kind = "stroke"
)

var (
	// ErrUnknownKind is returned when decoding or creating an unsupported variant.
	ErrUnknownKind = errors.New("unknown annotation kind")
	// ErrInvalidGeometry is returned for negative sizes or out of range opacity.
	ErrInvalidGeometry = errors.New("invalid annotation geometry")
)

// hitTolerance widens thin targets so they remain clickable.
const hitTolerance = 4

// Annotation is a single mark on a page. The set of implementations is closed:
// Rectangle, Circle, TextBox, Image, Highlight and Stroke.
type Annotation interface {
	ID() string
	Kind() Kind
	// Bounds returns the page-space bounding box.
	Bounds() Rect
	// HitTest reports whether p selects the annotation.
	HitTest(p Point) bool
	// ApplyStyle mutates the style attributes the variant supports.
	ApplyStyle(p StylePatch)
	Translate(dx, dy float64)
	// Resize scales the annotation about its top-left corner.
	Resize(sx, sy float64)
	// Render draws the annotation onto dst with page space multiplied by scale.
	Render(dst *image.RGBA, scale float64) error
	Validate() error

	meta() *Meta
}

// Meta carries the identity shared by all variants.
type Meta struct {
	UID string `json:"id"`
}

// ID returns the stable identifier used for selection and deletion.
func (m *Meta) ID() string { return m.UID }

func (m *Meta) meta() *Meta { return m }

// NewID returns a fresh annotation identifier.
func NewID() string { return uuid.NewString() }

// EnsureID assigns a fresh identifier when a has none and returns the id.
func EnsureID(a Annotation) string {
	m := a.meta()
	if m.UID == "" {
		m.UID = NewID()
	}
	return m.UID
}

// Style is the fill, stroke colour and stroke width applied to shapes.
type Style struct {
	Fill        Color `json:"fill"`
	Stroke      Color `json:"stroke"`
	StrokeWidth int   `json:"strokeWidth"`
}

// MaxStrokeWidth bounds the stroke width slider.
const MaxStrokeWidth = 10

// ClampWidth limits w to [0, MaxStrokeWidth].
func ClampWidth(w int) int {
	if w < 0 {
		return 0
	}
	if w > MaxStrokeWidth {
		return MaxStrokeWidth
	}
	return w
}

// StylePatch describes a live style change. Nil fields are left untouched.
type StylePatch struct {
	Fill        *Color
	Stroke      *Color
	StrokeWidth *int
}

// Empty reports whether the patch changes nothing.
func (p StylePatch) Empty() bool {
	return p.Fill == nil && p.Stroke == nil && p.StrokeWidth == nil
}

// Apply returns s with the patch applied.
func (p StylePatch) Apply(s Style) Style {
	if p.Fill != nil {
		s.Fill = *p.Fill
	}
	if p.Stroke != nil {
		s.Stroke = *p.Stroke
	}
	if p.StrokeWidth != nil {
		s.StrokeWidth = ClampWidth(*p.StrokeWidth)
	}
	return s
}

// Clone returns a deep copy of a.
func Clone(a Annotation) Annotation {
	switch v := a.(type) {
	case *Rectangle:
		c := *v
		return &c
	case *Circle:
		c := *v
		return &c
	case *TextBox:
		c := *v
		return &c
	case *Image:
		c := *v
		return &c
	case *Highlight:
		c := *v
		return &c
	case *Stroke:
		c := *v
		c.Points = append([]Point(nil), v.Points...)
		return &c
	default:
		panic(fmt.Sprintf("annotation: clone of %T", a))
	}
}

func nonNegative(name string, v float64) error {
	if v < 0 {
		return fmt.Errorf("%w: %s %g < 0", ErrInvalidGeometry, name, v)
	}
	return nil
}
