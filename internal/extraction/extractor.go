// Package extraction turns dense detector landmarks into typed, automatic
// landmark points ready to merge into the point store.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"image"
	"slices"

	"github.com/kozaktomas/face-compare/internal/config"
	"github.com/kozaktomas/face-compare/internal/detector"
	"github.com/kozaktomas/face-compare/internal/landmark"
)

// Version is reported by Info.
const Version = "1.0.0"

// Extractor picks landmark points per kind from a dense landmark set.
type Extractor struct {
	landmarks detector.LandmarkDetector
	table     config.LandmarksConfig
}

// Result is the outcome of one extraction. A degraded result carries no
// points and explains why in Reason.
type Result struct {
	Points        []landmark.Point `json:"feature_points"`
	LandmarkCount int              `json:"total_landmarks_detected"`
	Params        *Resolved        `json:"extraction_parameters"`
	// Filtered counts landmarks dropped for low confidence or lying outside the image.
	Filtered int    `json:"filtered_points"`
	Degraded bool   `json:"degraded"`
	Reason   string `json:"reason,omitempty"`
}

// New creates an extractor over the given landmark table.
func New(landmarks detector.LandmarkDetector, table config.LandmarksConfig) *Extractor {
	return &Extractor{landmarks: landmarks, table: table}
}

// AvailableKinds returns the extractable kinds in display order.
func (e *Extractor) AvailableKinds() []landmark.Kind {
	var kinds []landmark.Kind
	for _, k := range landmark.Kinds {
		if _, ok := e.table.Kinds[k]; ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// MaxPoints returns the number of indices available per kind.
func (e *Extractor) MaxPoints() map[landmark.Kind]int {
	out := make(map[landmark.Kind]int, len(e.table.Kinds))
	for k, kc := range e.table.Kinds {
		out[k] = len(kc.Indices)
	}
	return out
}

// Labels returns the human readable name per kind.
func (e *Extractor) Labels() map[landmark.Kind]string {
	out := make(map[landmark.Kind]string, len(e.table.Kinds))
	for k, kc := range e.table.Kinds {
		out[k] = kc.Label
	}
	return out
}

// Defaults returns the parameters used when a request leaves them out.
func (e *Extractor) Defaults() Resolved {
	r := Resolved{
		Kinds:               slices.Clone(e.table.DefaultKinds),
		PointsPerKind:       make(map[landmark.Kind]int, len(e.table.Kinds)),
		ConfidenceThreshold: e.table.ConfidenceThreshold,
	}
	for k, kc := range e.table.Kinds {
		r.PointsPerKind[k] = kc.DefaultPoints
	}
	return r
}

// Extract runs the landmark detector on img and selects points per p.
// Invalid parameters fail with ErrInvalidInput before the detector runs.
func (e *Extractor) Extract(ctx context.Context, img image.Image, p Params) (*Result, error) {
	params, err := e.Resolve(p)
	if err != nil {
		return nil, err
	}

	result := &Result{Points: []landmark.Point{}, Params: params}
	if e.landmarks == nil {
		result.Degraded = true
		result.Reason = "no landmark detector configured"
		return result, nil
	}

	lms, err := e.landmarks.DetectLandmarks(ctx, img)
	if errors.Is(err, detector.ErrNotDetected) || (err == nil && len(lms) == 0) {
		result.Degraded = true
		result.Reason = "no face landmarks detected"
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("landmark detection: %w", err)
	}

	result.LandmarkCount = len(lms)
	result.Points, result.Filtered = e.Select(lms, params)
	return result, nil
}

// Select picks the first N table indices of every requested kind, keeping
// landmarks at or above the confidence threshold. Coordinates are truncated
// to whole pixels. Labels are numbered per kind over the kept points.
func (e *Extractor) Select(lms []detector.Landmark, params *Resolved) ([]landmark.Point, int) {
	points := []landmark.Point{}
	filtered := 0
	for _, kind := range params.Kinds {
		indices := e.table.Kinds[kind].Indices
		n := min(params.PointsPerKind[kind], len(indices))

		kept := 0
		for _, idx := range indices[:n] {
			if idx >= len(lms) {
				continue
			}
			lm := lms[idx]
			x, y := int(lm.X), int(lm.Y)
			conf := lm.EffectiveConfidence()
			if conf < params.ConfidenceThreshold || lm.X < 0 || lm.Y < 0 {
				filtered++
				continue
			}
			kept++
			label := fmt.Sprintf("%s_%d", kind, kept)
			points = append(points, landmark.NewAutomatic(float64(x), float64(y), kind, label, conf, idx))
		}
	}
	return points, filtered
}
