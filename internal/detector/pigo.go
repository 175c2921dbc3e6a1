package detector

import (
	"context"
	"fmt"
	"image"
	"os"
	"sort"

	pigo "github.com/esimov/pigo/core"

	"github.com/kozaktomas/face-compare/internal/constants"
	"github.com/kozaktomas/face-compare/internal/facematch"
)

// pigoScoreScale maps the cascade's detection score Q onto [0,1].
// Q >= 5 is the customary pigo acceptance level, which lands on 0.5.
const pigoScoreScale = 10.0

// PigoDetector finds face boxes locally with a pigo cascade.
type PigoDetector struct {
	classifier    *pigo.Pigo
	minSize       int
	minConfidence float64
}

// NewPigoDetector loads the facefinder cascade from path.
func NewPigoDetector(path string) (*PigoDetector, error) {
	if path == "" {
		return nil, fmt.Errorf("pigo cascade path is not configured")
	}
	cascade, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cascade file: %w", err)
	}
	return NewPigoDetectorFromCascade(cascade)
}

// NewPigoDetectorFromCascade unpacks an in-memory cascade.
func NewPigoDetectorFromCascade(cascade []byte) (*PigoDetector, error) {
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("error unpacking the cascade file: %w", err)
	}
	return &PigoDetector{
		classifier:    classifier,
		minSize:       20,
		minConfidence: constants.MinFaceConfidence,
	}, nil
}

// DetectFaceBox runs the cascade and returns the most confident face.
func (d *PigoDetector) DetectFaceBox(ctx context.Context, img image.Image) (*FaceBox, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	cols, rows := bounds.Dx(), bounds.Dy()

	cParams := pigo.CascadeParams{
		MinSize:     d.minSize,
		MaxSize:     max(cols, rows),
		ShiftFactor: 0.1,
		ScaleFactor: 1.1,

		ImageParams: pigo.ImageParams{
			Pixels: pigo.RgbToGrayscale(img),
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	dets := d.classifier.RunCascade(cParams, 0.0)
	dets = d.classifier.ClusterDetections(dets, 0.2)

	best, ok := pickBestFace(dets, cols, rows, d.minConfidence)
	if !ok {
		return nil, fmt.Errorf("no face above confidence %.2f: %w", d.minConfidence, ErrNotDetected)
	}
	return best, nil
}

// pickBestFace converts detections into clamped boxes, drops any that
// overlap a stronger detection and returns the strongest one along with the
// number of distinct faces.
func pickBestFace(dets []pigo.Detection, width, height int, minConfidence float64) (*FaceBox, bool) {
	candidates := make([]FaceBox, 0, len(dets))
	for _, det := range dets {
		conf := min(1, float64(det.Q)/pigoScoreScale)
		if conf < minConfidence {
			continue
		}
		box := facematch.BoundingBox{
			X:      det.Col - det.Scale/2,
			Y:      det.Row - det.Scale/2,
			Width:  det.Scale,
			Height: det.Scale,
		}.Clamp(width, height)
		if box.Empty() {
			continue
		}
		candidates = append(candidates, FaceBox{Box: box, Confidence: conf})
	}
	if len(candidates) == 0 {
		return nil, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	kept := candidates[:1]
	for _, c := range candidates[1:] {
		overlaps := false
		for _, k := range kept {
			if facematch.ComputeIoU(c.Box, k.Box) > 0.3 {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, c)
		}
	}
	best := kept[0]
	best.FacesCount = len(kept)
	return &best, true
}
