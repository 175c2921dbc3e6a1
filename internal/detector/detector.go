// Package detector defines the face-box and landmark detector contracts the
// normalizer and extractor consume, plus adapters for a landmark sidecar
// service and a local pigo cascade.
package detector

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/kozaktomas/face-compare/internal/facematch"
	"github.com/kozaktomas/face-compare/internal/landmark"
)

// ErrNotDetected is returned when a detector finds no face or no landmarks.
var ErrNotDetected = fmt.Errorf("nothing detected: %w", landmark.ErrDetectionFailed)

// FaceBox is the single highest-confidence face found in an image.
type FaceBox struct {
	Box        facematch.BoundingBox `json:"bbox"`
	Confidence float64               `json:"confidence"`
	// FacesCount is the number of distinct faces above the threshold.
	FacesCount int `json:"faces_count"`
}

// Landmark is one dense landmark in the pixel space of the analysed image.
type Landmark struct {
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Z          float64  `json:"z"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// EffectiveConfidence returns the detector-supplied confidence, or
// clamp(1-|z|, 0, 1) when the detector did not provide one.
func (l Landmark) EffectiveConfidence() float64 {
	if l.Confidence != nil {
		return *l.Confidence
	}
	return min(max(1-math.Abs(l.Z), 0), 1)
}

// FaceBoxDetector finds the most confident face in an image.
type FaceBoxDetector interface {
	DetectFaceBox(ctx context.Context, img image.Image) (*FaceBox, error)
}

// LandmarkDetector returns the dense landmark set of the face in an image.
type LandmarkDetector interface {
	DetectLandmarks(ctx context.Context, img image.Image) ([]Landmark, error)
}

// Detector implements both contracts.
type Detector interface {
	FaceBoxDetector
	LandmarkDetector
}

// Combined pairs a face-box detector with a separate landmark detector.
type Combined struct {
	Faces     FaceBoxDetector
	Landmarks LandmarkDetector
}

func (c Combined) DetectFaceBox(ctx context.Context, img image.Image) (*FaceBox, error) {
	return c.Faces.DetectFaceBox(ctx, img)
}

func (c Combined) DetectLandmarks(ctx context.Context, img image.Image) ([]Landmark, error) {
	return c.Landmarks.DetectLandmarks(ctx, img)
}
