// Package facealign turns a detected face into a margin-padded crop whose eye
// line is horizontal.
package facealign

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/kozaktomas/face-compare/internal/constants"
	"github.com/kozaktomas/face-compare/internal/detector"
	"github.com/kozaktomas/face-compare/internal/facematch"
	"github.com/kozaktomas/face-compare/internal/landmark"
)

// AnchorPair holds the landmark indices of the left and right eye anchors.
type AnchorPair struct {
	Left  int `json:"left"`
	Right int `json:"right"`
}

// Options configures a Normalizer.
type Options struct {
	Margin  float64
	Anchors AnchorPair
	// KeyPoints names landmark indices reported back in the aligned frame.
	KeyPoints map[string]int
}

// DefaultOptions returns margin 0.3 and the outer eye corners as anchors.
func DefaultOptions() Options {
	return Options{
		Margin: constants.DefaultFaceMargin,
		Anchors: AnchorPair{
			Left:  constants.DefaultLeftEyeAnchor,
			Right: constants.DefaultRightEyeAnchor,
		},
	}
}

// KeyPoint is a named landmark mapped into the aligned image.
type KeyPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Result is a normalized face plus the parameters that produced it.
type Result struct {
	Image         *image.NRGBA          `json:"-"`
	Box           facematch.BoundingBox `json:"face_bbox"`
	Margin        float64               `json:"margin"`
	CropBox       facematch.BoundingBox `json:"crop_bbox"`
	Anchors       AnchorPair            `json:"eye_anchors"`
	AngleDegrees  float64               `json:"rotation_angle"`
	Rotated       bool                  `json:"rotated"`
	Degraded      bool                  `json:"degraded"`
	Reason        string                `json:"reason,omitempty"`
	LandmarkCount int                   `json:"landmarks_detected"`
	KeyPoints     map[string]KeyPoint   `json:"key_points,omitempty"`
}

// Size returns the normalized image dimensions.
func (r *Result) Size() (int, int) {
	if r.Image == nil {
		return 0, 0
	}
	b := r.Image.Bounds()
	return b.Dx(), b.Dy()
}

// Normalizer crops and aligns faces using a landmark detector on the crop.
type Normalizer struct {
	landmarks detector.LandmarkDetector
	opts      Options
}

// NewNormalizer creates a normalizer. The landmark detector may be nil, in
// which case every result is an unrotated, degraded crop.
func NewNormalizer(landmarks detector.LandmarkDetector, opts Options) (*Normalizer, error) {
	if err := validateOptions(opts.Margin, opts.Anchors); err != nil {
		return nil, err
	}
	return &Normalizer{landmarks: landmarks, opts: opts}, nil
}

// Options returns the normalizer's configuration.
func (n *Normalizer) Options() Options {
	return n.opts
}

func validateOptions(margin float64, anchors AnchorPair) error {
	if math.IsNaN(margin) || math.IsInf(margin, 0) || margin < 0 {
		return fmt.Errorf("margin %g must be a finite non-negative fraction: %w", margin, landmark.ErrInvalidInput)
	}
	if anchors.Left < 0 || anchors.Right < 0 || anchors.Left == anchors.Right {
		return fmt.Errorf("eye anchors %d/%d must be distinct non-negative indices: %w",
			anchors.Left, anchors.Right, landmark.ErrInvalidInput)
	}
	return nil
}

// Normalize crops img around box with the configured margin and aligns the
// eye line.
func (n *Normalizer) Normalize(ctx context.Context, img image.Image, box facematch.BoundingBox) (*Result, error) {
	return n.NormalizeWith(ctx, img, box, n.opts.Margin, n.opts.Anchors)
}

// NormalizeWith is Normalize with an explicit margin and anchor pair.
//
// Missing landmarks do not fail the call: the unrotated crop is returned
// with Degraded set and Reason explaining why.
func (n *Normalizer) NormalizeWith(ctx context.Context, img image.Image, box facematch.BoundingBox, margin float64, anchors AnchorPair) (*Result, error) {
	if err := validateOptions(margin, anchors); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	crop, rect, err := MarginCrop(img, box, margin)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	result := &Result{
		Image:   crop,
		Box:     box.Clamp(bounds.Dx(), bounds.Dy()),
		Margin:  margin,
		CropBox: facematch.FromRect(rect),
		Anchors: anchors,
	}

	if n.landmarks == nil {
		result.degrade("no landmark detector configured")
		return result, nil
	}

	lms, err := n.landmarks.DetectLandmarks(ctx, crop)
	switch {
	case errors.Is(err, detector.ErrNotDetected):
		result.degrade("no landmarks detected on the cropped face")
		return result, nil
	case err != nil:
		return nil, fmt.Errorf("landmark detection: %w", err)
	case len(lms) == 0:
		result.degrade("no landmarks detected on the cropped face")
		return result, nil
	}
	result.LandmarkCount = len(lms)

	need := max(anchors.Left, anchors.Right) + 1
	if len(lms) < need {
		result.degrade(fmt.Sprintf("detector returned %d landmarks, eye anchors need %d", len(lms), need))
		return result, nil
	}

	left := Point{X: lms[anchors.Left].X, Y: lms[anchors.Left].Y}
	right := Point{X: lms[anchors.Right].X, Y: lms[anchors.Right].Y}
	if left == right {
		result.degrade("eye anchors coincide")
		return result, nil
	}

	aligned, theta := Rotate(crop, left, right)
	result.Image = aligned
	result.AngleDegrees = theta * 180 / math.Pi
	result.Rotated = theta != 0
	result.KeyPoints = n.keyPoints(lms, theta, crop.Bounds().Dx(), crop.Bounds().Dy())

	return result, nil
}

func (r *Result) degrade(reason string) {
	r.Degraded = true
	r.Reason = reason
}

// keyPoints maps the configured named landmarks into the aligned frame.
func (n *Normalizer) keyPoints(lms []detector.Landmark, theta float64, width, height int) map[string]KeyPoint {
	if len(n.opts.KeyPoints) == 0 {
		return nil
	}
	m := rotation(theta, width, height)
	out := make(map[string]KeyPoint, len(n.opts.KeyPoints))
	for name, idx := range n.opts.KeyPoints {
		if idx < 0 || idx >= len(lms) {
			continue
		}
		p := apply(m, Point{X: lms[idx].X, Y: lms[idx].Y})
		out[name] = KeyPoint{X: p.X, Y: p.Y, Z: lms[idx].Z}
	}
	return out
}

// DetectAndNormalize finds the most confident face in img and normalizes it.
func (n *Normalizer) DetectAndNormalize(ctx context.Context, faces detector.FaceBoxDetector, img image.Image) (*Result, *detector.FaceBox, error) {
	face, err := faces.DetectFaceBox(ctx, img)
	if err != nil {
		return nil, nil, fmt.Errorf("face detection: %w", err)
	}
	result, err := n.Normalize(ctx, img, face.Box)
	if err != nil {
		return nil, face, err
	}
	return result, face, nil
}
