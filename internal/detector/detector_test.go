package detector

import (
	"context"
	"errors"
	"image"
	"math"
	"testing"

	pigo "github.com/esimov/pigo/core"

	"github.com/kozaktomas/face-compare/internal/facematch"
	"github.com/kozaktomas/face-compare/internal/landmark"
)

func TestErrNotDetected_IsDetectionFailed(t *testing.T) {
	if !errors.Is(ErrNotDetected, landmark.ErrDetectionFailed) {
		t.Error("ErrNotDetected must wrap ErrDetectionFailed")
	}
}

func TestLandmark_EffectiveConfidence(t *testing.T) {
	supplied := 0.8
	tests := []struct {
		name     string
		lm       Landmark
		expected float64
	}{
		{"supplied confidence wins", Landmark{Z: 0.9, Confidence: &supplied}, 0.8},
		{"zero depth", Landmark{Z: 0}, 1.0},
		{"negative depth", Landmark{Z: -0.25}, 0.75},
		{"positive depth", Landmark{Z: 0.1}, 0.9},
		{"depth beyond one clamps to zero", Landmark{Z: -1.5}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.lm.EffectiveConfidence()
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("EffectiveConfidence() = %v, want %v", got, tt.expected)
			}
		})
	}
}

type stubFaces struct{ box *FaceBox }

func (s stubFaces) DetectFaceBox(context.Context, image.Image) (*FaceBox, error) {
	return s.box, nil
}

type stubLandmarks struct{ err error }

func (s stubLandmarks) DetectLandmarks(context.Context, image.Image) ([]Landmark, error) {
	return nil, s.err
}

func TestCombined_Delegates(t *testing.T) {
	want := &FaceBox{Box: facematch.BoundingBox{X: 1, Y: 2, Width: 3, Height: 4}, Confidence: 0.9}
	var d Detector = Combined{Faces: stubFaces{box: want}, Landmarks: stubLandmarks{err: ErrNotDetected}}

	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	got, err := d.DetectFaceBox(context.Background(), img)
	if err != nil || got != want {
		t.Errorf("DetectFaceBox() = %v, %v", got, err)
	}
	if _, err := d.DetectLandmarks(context.Background(), img); !errors.Is(err, ErrNotDetected) {
		t.Errorf("expected ErrNotDetected, got %v", err)
	}
}

func TestPickBestFace(t *testing.T) {
	dets := []pigo.Detection{
		{Row: 50, Col: 50, Scale: 40, Q: 6},   // conf 0.6
		{Row: 52, Col: 51, Scale: 40, Q: 9},   // overlaps the first, stronger
		{Row: 150, Col: 150, Scale: 30, Q: 7}, // separate face
		{Row: 20, Col: 180, Scale: 20, Q: 2},  // below threshold
	}

	best, ok := pickBestFace(dets, 200, 200, 0.5)
	if !ok {
		t.Fatal("expected a face")
	}
	want := facematch.BoundingBox{X: 31, Y: 32, Width: 40, Height: 40}
	if best.Box != want {
		t.Errorf("best box = %v, want %v", best.Box, want)
	}
	if math.Abs(best.Confidence-0.9) > 1e-6 {
		t.Errorf("confidence = %v, want 0.9", best.Confidence)
	}
	if best.FacesCount != 2 {
		t.Errorf("FacesCount = %d, want 2", best.FacesCount)
	}
}

func TestPickBestFace_ClampsAndCapsConfidence(t *testing.T) {
	dets := []pigo.Detection{{Row: 5, Col: 5, Scale: 40, Q: 25}}

	best, ok := pickBestFace(dets, 100, 100, 0.5)
	if !ok {
		t.Fatal("expected a face")
	}
	if best.Box != (facematch.BoundingBox{X: 0, Y: 0, Width: 25, Height: 25}) {
		t.Errorf("box not clamped: %v", best.Box)
	}
	if best.Confidence != 1 {
		t.Errorf("confidence should cap at 1, got %v", best.Confidence)
	}
}

func TestPickBestFace_NoneAboveThreshold(t *testing.T) {
	dets := []pigo.Detection{{Row: 50, Col: 50, Scale: 40, Q: 3}}
	if _, ok := pickBestFace(dets, 100, 100, 0.5); ok {
		t.Error("expected no face below threshold")
	}
	if _, ok := pickBestFace(nil, 100, 100, 0.5); ok {
		t.Error("expected no face for empty detections")
	}
}

func TestNewPigoDetector_Errors(t *testing.T) {
	if _, err := NewPigoDetector(""); err == nil {
		t.Error("expected error for empty cascade path")
	}
	if _, err := NewPigoDetector("testdata/does-not-exist"); err == nil {
		t.Error("expected error for missing cascade file")
	}
}
