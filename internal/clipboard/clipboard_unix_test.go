//go:build linux || freebsd || openbsd || netbsd || dragonfly

package clipboard

import (
	"errors"
	"image"
	"sync"
	"testing"
)

func TestEnsureInitWithoutDisplay(t *testing.T) {
	t.Setenv("DISPLAY", "")
	t.Setenv("WAYLAND_DISPLAY", "")

	initOnce = sync.Once{}
	initErr = nil

	if err := WriteImage(image.NewRGBA(image.Rect(0, 0, 1, 1))); !errors.Is(err, errNoDisplay) {
		t.Fatalf("expected errNoDisplay, got %v", err)
	}
	if _, err := ReadImageData(); !errors.Is(err, errNoDisplay) {
		t.Fatalf("expected errNoDisplay from read, got %v", err)
	}
}
