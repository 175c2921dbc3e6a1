package facealign

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Point is a position in the crop's pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// EyeAngle returns the angle in radians of the vector from left to right.
func EyeAngle(left, right Point) float64 {
	return math.Atan2(right.Y-left.Y, right.X-left.X)
}

// rotation maps crop coordinates to aligned coordinates: a rotation by
// -theta about the crop center.
func rotation(theta float64, width, height int) f64.Aff3 {
	cx, cy := float64(width)/2, float64(height)/2
	cos, sin := math.Cos(theta), math.Sin(theta)
	return f64.Aff3{
		cos, sin, cx - (cos*cx + sin*cy),
		-sin, cos, cy - (-sin*cx + cos*cy),
	}
}

func apply(m f64.Aff3, p Point) Point {
	return Point{
		X: m[0]*p.X + m[1]*p.Y + m[2],
		Y: m[3]*p.X + m[4]*p.Y + m[5],
	}
}

// Rotate levels the line from left to right by rotating img about its own
// center. The output keeps the input size; uncovered corners are black.
// It returns the rotated image and the applied correction angle in radians.
func Rotate(img image.Image, left, right Point) (*image.NRGBA, float64) {
	theta := EyeAngle(left, right)
	bounds := img.Bounds()
	if theta == 0 {
		return imaging.Clone(img), 0
	}

	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	m := rotation(theta, bounds.Dx(), bounds.Dy())
	// Transform expects source-to-destination; shift for non-zero origins.
	m[2] -= m[0]*float64(bounds.Min.X) + m[1]*float64(bounds.Min.Y)
	m[5] -= m[3]*float64(bounds.Min.X) + m[4]*float64(bounds.Min.Y)
	draw.BiLinear.Transform(dst, m, img, bounds, draw.Src, nil)

	return dst, theta
}
