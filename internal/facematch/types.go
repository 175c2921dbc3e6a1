// Package facematch provides face bounding box geometry shared by the
// detectors, the normalizer and the web handlers.
package facematch

import (
	"fmt"
	"image"
)

// BoundingBox is an integer pixel rectangle within one image.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect converts the box to an image.Rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// Empty reports whether the box has no area.
func (b BoundingBox) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

// String formats the box as x,y wxh.
func (b BoundingBox) String() string {
	return fmt.Sprintf("%d,%d %dx%d", b.X, b.Y, b.Width, b.Height)
}

// FromRect converts an image.Rectangle to a BoundingBox.
func FromRect(r image.Rectangle) BoundingBox {
	r = r.Canon()
	return BoundingBox{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}
