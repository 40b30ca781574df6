package annotation

import (
	"encoding/json"
	"fmt"
)

// layerVersion is bumped when the serialised layer format changes.
const layerVersion = 1

type envelope struct {
	Kind Kind            `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type layer struct {
	Version     int        `json:"version"`
	Annotations []envelope `json:"annotations"`
}

// Marshal serialises an ordered annotation list.
func Marshal(list []Annotation) ([]byte, error) {
	l := layer{Version: layerVersion, Annotations: make([]envelope, 0, len(list))}
	for _, a := range list {
		data, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("marshal %s %s: %w", a.Kind(), a.ID(), err)
		}
		l.Annotations = append(l.Annotations, envelope{Kind: a.Kind(), Data: data})
	}
	return json.Marshal(l)
}

// Unmarshal restores an annotation list produced by Marshal. Empty input
// yields an empty list.
func Unmarshal(data []byte) ([]Annotation, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var l layer
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("decode layer: %w", err)
	}
	if l.Version > layerVersion {
		return nil, fmt.Errorf("decode layer: unsupported version %d", l.Version)
	}
	out := make([]Annotation, 0, len(l.Annotations))
	for i, env := range l.Annotations {
		a, err := New(env.Kind)
		if err != nil {
			return nil, fmt.Errorf("decode annotation %d: %w", i, err)
		}
		if err := json.Unmarshal(env.Data, a); err != nil {
			return nil, fmt.Errorf("decode annotation %d: %w", i, err)
		}
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("decode annotation %d: %w", i, err)
		}
		if im, ok := a.(*Image); ok {
			im.bind()
		}
		EnsureID(a)
		out = append(out, a)
	}
	return out, nil
}

// New returns a zero value of the given kind without an identifier.
func New(k Kind) (Annotation, error) {
	switch k {
	case KindRectangle:
		return &Rectangle{}, nil
	case KindCircle:
		return &Circle{}, nil
	case KindText:
		return &TextBox{}, nil
	case KindImage:
		return &Image{}, nil
	case KindHighlight:
		return &Highlight{}, nil
	case KindStroke:
		return &Stroke{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, k)
}

// ParseKind maps user-facing names onto a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "rect", "rectangle", "square", "box":
		return KindRectangle, nil
	case "circle", "ellipse":
		return KindCircle, nil
	case "text", "textbox":
		return KindText, nil
	case "image":
		return KindImage, nil
	case "highlight":
		return KindHighlight, nil
	case "stroke", "freehand", "draw":
		return KindStroke, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}
