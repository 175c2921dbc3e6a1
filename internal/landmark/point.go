// Package landmark defines the canonical landmark point shared by the
// point store, the similarity scorer and the automatic extractor.
package landmark

import (
	"encoding/json"
	"fmt"
	"math"
)

// Provenance records whether a point was placed by hand or produced by the detector.
type Provenance string

const (
	Manual    Provenance = "manual"
	Automatic Provenance = "automatic"
)

// Point is a single landmark in one image's pixel space.
type Point struct {
	X          float64
	Y          float64
	Kind       Kind
	Label      string
	Confidence *float64 // nil when unknown
	Source     Provenance
	// SourceIndex is the detector landmark index. Only meaningful for automatic points.
	SourceIndex int
}

// NewManual creates a manually placed point.
func NewManual(x, y float64, kind Kind, label string) Point {
	return Point{X: x, Y: y, Kind: kind, Label: label, Source: Manual}
}

// NewAutomatic creates a detector-produced point carrying its landmark index.
func NewAutomatic(x, y float64, kind Kind, label string, confidence float64, index int) Point {
	c := confidence
	return Point{X: x, Y: y, Kind: kind, Label: label, Confidence: &c, Source: Automatic, SourceIndex: index}
}

// IsAutomatic reports whether the point came from the detector.
func (p Point) IsAutomatic() bool {
	return p.Source == Automatic
}

// AsManual returns a copy of p with automatic provenance stripped.
func (p Point) AsManual() Point {
	p.Source = Manual
	p.SourceIndex = 0
	return p
}

// Validate checks the structural invariants of a point: finite non-negative
// coordinates, a known kind, confidence in [0,1] and a known provenance.
func (p Point) Validate() error {
	if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
		return fmt.Errorf("point %q has non-finite coordinates: %w", p.Label, ErrInvalidInput)
	}
	if p.X < 0 || p.Y < 0 {
		return fmt.Errorf("point %q has negative coordinates (%g, %g): %w", p.Label, p.X, p.Y, ErrInvalidInput)
	}
	if !p.Kind.Valid() {
		return fmt.Errorf("point %q has unknown kind %q: %w", p.Label, p.Kind, ErrInvalidInput)
	}
	if p.Confidence != nil && (*p.Confidence < 0 || *p.Confidence > 1 || math.IsNaN(*p.Confidence)) {
		return fmt.Errorf("point %q has confidence %g outside [0,1]: %w", p.Label, *p.Confidence, ErrInvalidInput)
	}
	if p.Source != Manual && p.Source != Automatic {
		return fmt.Errorf("point %q has unknown provenance %q: %w", p.Label, p.Source, ErrInvalidInput)
	}
	return nil
}

// pointJSON is the wire form. landmark_index is present only on automatic points.
type pointJSON struct {
	X             float64    `json:"x"`
	Y             float64    `json:"y"`
	Kind          Kind       `json:"type"`
	Label         string     `json:"label"`
	Confidence    *float64   `json:"confidence,omitempty"`
	LandmarkIndex *int       `json:"landmark_index,omitempty"`
	Source        Provenance `json:"source,omitempty"`
}

// MarshalJSON encodes the point with an explicit source field.
func (p Point) MarshalJSON() ([]byte, error) {
	w := pointJSON{
		X:          p.X,
		Y:          p.Y,
		Kind:       p.Kind,
		Label:      p.Label,
		Confidence: p.Confidence,
		Source:     p.Source,
	}
	if p.IsAutomatic() {
		idx := p.SourceIndex
		w.LandmarkIndex = &idx
	}
	if w.Source == "" {
		w.Source = Manual
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a point. A present landmark_index marks the point
// automatic; an automatic source without an index is rejected.
func (p *Point) UnmarshalJSON(data []byte) error {
	var w pointJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Kind == "" {
		w.Kind = KindOther
	}

	out := Point{
		X:          w.X,
		Y:          w.Y,
		Kind:       w.Kind,
		Label:      w.Label,
		Confidence: w.Confidence,
		Source:     Manual,
	}
	switch {
	case w.LandmarkIndex != nil:
		out.Source = Automatic
		out.SourceIndex = *w.LandmarkIndex
	case w.Source == Automatic:
		return fmt.Errorf("automatic point %q without landmark_index: %w", w.Label, ErrInvalidInput)
	case w.Source != "" && w.Source != Manual:
		return fmt.Errorf("unknown point source %q: %w", w.Source, ErrInvalidInput)
	}
	*p = out
	return nil
}

// CountByProvenance returns the number of manual and automatic points.
func CountByProvenance(points []Point) (manual, automatic int) {
	for _, p := range points {
		if p.IsAutomatic() {
			automatic++
		} else {
			manual++
		}
	}
	return manual, automatic
}
