package facealign

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/kozaktomas/face-compare/internal/facematch"
	"github.com/kozaktomas/face-compare/internal/landmark"
)

// MarginCrop crops img to box expanded by margin on every side, clamped to
// the image. The returned rectangle is the crop in img's coordinates.
func MarginCrop(img image.Image, box facematch.BoundingBox, margin float64) (*image.NRGBA, image.Rectangle, error) {
	if math.IsNaN(margin) || math.IsInf(margin, 0) || margin < 0 {
		return nil, image.Rectangle{}, fmt.Errorf("margin %g must be a finite non-negative fraction: %w", margin, landmark.ErrInvalidInput)
	}
	if box.Width <= 0 || box.Height <= 0 {
		return nil, image.Rectangle{}, fmt.Errorf("face box %s has no area: %w", box, landmark.ErrInvalidInput)
	}

	bounds := img.Bounds()
	clamped := box.Clamp(bounds.Dx(), bounds.Dy())
	if clamped.Empty() {
		return nil, image.Rectangle{}, fmt.Errorf("face box %s lies outside the %dx%d image: %w",
			box, bounds.Dx(), bounds.Dy(), landmark.ErrInvalidInput)
	}

	rect := clamped.ExpandWithMargin(margin, bounds.Dx(), bounds.Dy())
	if rect.Empty() {
		return nil, image.Rectangle{}, fmt.Errorf("crop of %s is empty: %w", box, landmark.ErrInvalidInput)
	}

	return imaging.Crop(img, rect.Add(bounds.Min)), rect, nil
}
