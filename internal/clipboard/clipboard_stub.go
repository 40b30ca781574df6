//go:build !(linux || freebsd || openbsd || netbsd || dragonfly)

package clipboard

import (
	"fmt"
	"image"
)

var errUnsupported = fmt.Errorf("clipboard image operations are not supported on this platform")

func WriteImage(image.Image) error { return errUnsupported }

func ReadImageData() ([]byte, error) { return nil, errUnsupported }
