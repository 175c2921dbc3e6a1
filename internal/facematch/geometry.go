package facematch

import "image"

// ComputeIoU calculates Intersection over Union between two bounding boxes.
func ComputeIoU(a, b BoundingBox) float64 {
	inter := a.Rect().Intersect(b.Rect())
	if inter.Empty() {
		return 0 // No intersection
	}

	intersection := float64(inter.Dx() * inter.Dy())
	union := float64(a.Width*a.Height+b.Width*b.Height) - intersection
	if union <= 0 {
		return 0
	}

	return intersection / union
}

// Clamp returns the part of the box that lies inside a width x height image.
// A box entirely outside the image clamps to the zero box.
func (b BoundingBox) Clamp(width, height int) BoundingBox {
	inter := b.Rect().Intersect(image.Rect(0, 0, width, height))
	if inter.Empty() {
		return BoundingBox{}
	}
	return FromRect(inter)
}

// FromRelative converts a relative (0-1) box [xmin, ymin, w, h] to pixels,
// truncating to whole pixels and clamping to the image.
func FromRelative(xmin, ymin, w, h float64, width, height int) BoundingBox {
	if width <= 0 || height <= 0 {
		return BoundingBox{}
	}
	box := BoundingBox{
		X:      int(xmin * float64(width)),
		Y:      int(ymin * float64(height)),
		Width:  int(w * float64(width)),
		Height: int(h * float64(height)),
	}
	return box.Clamp(width, height)
}

// ExpandWithMargin grows the box by margin*width horizontally and
// margin*height vertically on every side (whole pixels, truncated), then
// clamps the result to [0,width) x [0,height).
func (b BoundingBox) ExpandWithMargin(margin float64, width, height int) image.Rectangle {
	marginX := int(float64(b.Width) * margin)
	marginY := int(float64(b.Height) * margin)

	expanded := image.Rect(
		b.X-marginX,
		b.Y-marginY,
		b.X+b.Width+marginX,
		b.Y+b.Height+marginY,
	)
	return expanded.Intersect(image.Rect(0, 0, width, height))
}

// Center returns the box center in pixel coordinates.
func (b BoundingBox) Center() (float64, float64) {
	return float64(b.X) + float64(b.Width)/2, float64(b.Y) + float64(b.Height)/2
}
