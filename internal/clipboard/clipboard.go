// Package clipboard pastes images into the annotation layer and copies
// flattened pages out of it.
package clipboard

import "errors"

// ErrNoImage is returned when the clipboard holds no image data.
var ErrNoImage = errors.New("clipboard does not contain image data")
