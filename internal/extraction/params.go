package extraction

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/kozaktomas/face-compare/internal/landmark"
)

// Params selects which kinds to extract and how many points of each.
// Kind names are kept as sent so validation can echo them back.
type Params struct {
	FeatureTypes        []string       `json:"feature_types,omitempty"`
	PointsPerType       map[string]int `json:"points_per_type,omitempty"`
	ConfidenceThreshold *float64       `json:"confidence_threshold,omitempty"`
}

// Resolved is a validated parameter set with defaults applied.
type Resolved struct {
	Kinds               []landmark.Kind       `json:"feature_types"`
	PointsPerKind       map[landmark.Kind]int `json:"points_per_type"`
	ConfidenceThreshold float64               `json:"confidence_threshold"`
}

// Validation reports every problem found in a Params value.
type Validation struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) errorf(format string, args ...any) {
	v.Valid = false
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

func (v *Validation) warnf(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}

// Err returns nil for valid parameters, otherwise an ErrInvalidInput listing
// every error.
func (v Validation) Err() error {
	if v.Valid {
		return nil
	}
	return fmt.Errorf("invalid extraction parameters: %s: %w", strings.Join(v.Errors, "; "), landmark.ErrInvalidInput)
}

// Validate checks p against the landmark table without resolving it.
func (e *Extractor) Validate(p Params) Validation {
	_, v := e.resolve(p)
	return v
}

// Resolve validates p and fills in defaults.
func (e *Extractor) Resolve(p Params) (*Resolved, error) {
	r, v := e.resolve(p)
	if err := v.Err(); err != nil {
		return nil, err
	}
	return r, nil
}

func (e *Extractor) resolve(p Params) (*Resolved, Validation) {
	v := Validation{Valid: true, Errors: []string{}, Warnings: []string{}}
	r := &Resolved{
		PointsPerKind:       make(map[landmark.Kind]int),
		ConfidenceThreshold: e.table.ConfidenceThreshold,
	}

	names := p.FeatureTypes
	if len(names) == 0 {
		for _, k := range e.table.DefaultKinds {
			names = append(names, string(k))
		}
	}

	seen := make(map[landmark.Kind]bool)
	for _, name := range names {
		kind, err := landmark.ParseKind(name)
		if err != nil {
			v.errorf("unknown feature type: %s", name)
			continue
		}
		if _, ok := e.table.Kinds[kind]; !ok {
			v.errorf("feature type %s cannot be extracted automatically", name)
			continue
		}
		if seen[kind] {
			v.warnf("feature type %s listed more than once", name)
			continue
		}
		seen[kind] = true
		r.Kinds = append(r.Kinds, kind)
	}

	for _, name := range slices.Sorted(maps.Keys(p.PointsPerType)) {
		count := p.PointsPerType[name]
		kind, err := landmark.ParseKind(name)
		if err != nil {
			v.warnf("points_per_type entry %s ignored: unknown feature type", name)
			continue
		}
		kc, ok := e.table.Kinds[kind]
		if !ok {
			v.warnf("points_per_type entry %s ignored: not extractable", name)
			continue
		}
		switch {
		case count > len(kc.Indices):
			v.errorf("%s point count exceeds the maximum: %d > %d", name, count, len(kc.Indices))
		case count <= 0:
			v.errorf("%s point count must be at least 1: %d", name, count)
		default:
			r.PointsPerKind[kind] = count
			if !seen[kind] {
				v.warnf("points_per_type entry %s ignored: not requested", name)
			}
		}
	}
	for _, kind := range r.Kinds {
		if _, ok := r.PointsPerKind[kind]; !ok {
			r.PointsPerKind[kind] = e.table.Kinds[kind].DefaultPoints
		}
	}

	if p.ConfidenceThreshold != nil {
		t := *p.ConfidenceThreshold
		if math.IsNaN(t) || t < 0 || t > 1 {
			v.errorf("confidence_threshold must be within [0, 1]: %g", t)
		} else {
			r.ConfidenceThreshold = t
		}
	}

	return r, v
}
