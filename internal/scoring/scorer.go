// Package scoring decides which of two candidate landmark sets is closer to a
// reference set.
//
// For a reference R and candidate C of equal length the distance is
//
//	D(λ) = Σ (R[i].x − λ·C[i].x)² + (R[i].y − λ·C[i].y)²
//
// which expands to aλ² − 2bλ + c. The minimum over [λmin, λmax] is the
// unconstrained minimizer b/a clamped to the bounds.
package scoring

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/kozaktomas/face-compare/internal/constants"
	"github.com/kozaktomas/face-compare/internal/landmark"
)

// Closer identifies the winning candidate.
type Closer string

const (
	CandidateA Closer = "a"
	CandidateB Closer = "b"
)

// Fit is the optimization result for one candidate.
type Fit struct {
	Lambda float64
	Score  float64
	// Degenerate is set when every candidate point sits at the origin and D is constant.
	Degenerate bool
}

// Diagnostics carries supporting detail for a comparison.
type Diagnostics struct {
	ReferenceCount   int             `json:"reference_points_count"`
	CandidateACount  int             `json:"candidate_a_points_count"`
	CandidateBCount  int             `json:"candidate_b_points_count"`
	LambdaRange      [2]float64      `json:"lambda_range"`
	ScoreDifference  float64         `json:"score_difference"`
	SimilarityRatio  float64         `json:"similarity_ratio"`
	DegenerateA      bool            `json:"degenerate_a"`
	DegenerateB      bool            `json:"degenerate_b"`
	FeatureTypesUsed []landmark.Kind `json:"feature_types_used"`
}

// Result is the outcome of Compare.
type Result struct {
	ScoreA      float64       `json:"score_a"`
	ScoreB      float64       `json:"score_b"`
	LambdaA     float64       `json:"optimal_scale_a"`
	LambdaB     float64       `json:"optimal_scale_b"`
	Closer      Closer        `json:"closer"`
	Diagnostics Diagnostics   `json:"diagnostics"`
	Elapsed     time.Duration `json:"-"`
}

// ElapsedSeconds returns Elapsed as fractional seconds for reporting.
func (r *Result) ElapsedSeconds() float64 {
	return r.Elapsed.Seconds()
}

// Scorer runs bounded scale optimizations.
type Scorer struct {
	lambdaMin float64
	lambdaMax float64
}

// NewScorer creates a scorer searching λ in [lambdaMin, lambdaMax].
func NewScorer(lambdaMin, lambdaMax float64) (*Scorer, error) {
	if !isFinite(lambdaMin) || !isFinite(lambdaMax) {
		return nil, fmt.Errorf("lambda bounds must be finite: %w", landmark.ErrInvalidInput)
	}
	if lambdaMin > lambdaMax {
		return nil, fmt.Errorf("lambda bounds reversed (%g > %g): %w", lambdaMin, lambdaMax, landmark.ErrInvalidInput)
	}
	return &Scorer{lambdaMin: lambdaMin, lambdaMax: lambdaMax}, nil
}

// NewDefaultScorer creates a scorer with the default [0, 300] bounds.
func NewDefaultScorer() *Scorer {
	return &Scorer{lambdaMin: constants.DefaultLambdaMin, lambdaMax: constants.DefaultLambdaMax}
}

// Bounds returns the λ search interval.
func (s *Scorer) Bounds() (float64, float64) {
	return s.lambdaMin, s.lambdaMax
}

// Distance evaluates D(λ) for positionally corresponding point sets.
func Distance(reference, candidate []landmark.Point, lambda float64) (float64, error) {
	if len(reference) != len(candidate) {
		return 0, fmt.Errorf("point count mismatch: reference has %d, candidate has %d: %w",
			len(reference), len(candidate), landmark.ErrInvalidInput)
	}
	total := 0.0
	for i := range reference {
		dx := reference[i].X - lambda*candidate[i].X
		dy := reference[i].Y - lambda*candidate[i].Y
		total += dx*dx + dy*dy
	}
	return total, nil
}

// Optimize finds the λ in the scorer's bounds minimizing D(λ).
func (s *Scorer) Optimize(reference, candidate []landmark.Point) (Fit, error) {
	if len(reference) != len(candidate) {
		return Fit{}, fmt.Errorf("point count mismatch: reference has %d, candidate has %d: %w",
			len(reference), len(candidate), landmark.ErrInvalidInput)
	}

	var a, b, c float64
	for i := range reference {
		r, p := reference[i], candidate[i]
		a += p.X*p.X + p.Y*p.Y
		b += r.X*p.X + r.Y*p.Y
		c += r.X*r.X + r.Y*r.Y
	}

	if a == 0 {
		return Fit{
			Lambda:     (s.lambdaMin + s.lambdaMax) / 2,
			Score:      c,
			Degenerate: true,
		}, nil
	}

	lambda := min(max(b/a, s.lambdaMin), s.lambdaMax)
	score := a*lambda*lambda - 2*b*lambda + c
	// Cancellation can leave a tiny negative residue for perfect fits.
	score = max(score, 0)

	if !isFinite(lambda) || !isFinite(score) {
		return Fit{}, fmt.Errorf("non-finite optimization result (lambda=%g, score=%g): %w",
			lambda, score, landmark.ErrComputation)
	}
	return Fit{Lambda: lambda, Score: score}, nil
}

// Compare scores both candidates against the reference and reports the closer one.
// Ties go to candidate b.
func (s *Scorer) Compare(reference, candidateA, candidateB []landmark.Point) (*Result, error) {
	start := time.Now()

	if len(reference) != len(candidateA) || len(reference) != len(candidateB) {
		return nil, fmt.Errorf("all point sets must have the same length (reference %d, a %d, b %d): %w",
			len(reference), len(candidateA), len(candidateB), landmark.ErrInvalidInput)
	}
	sets := []struct {
		name   string
		points []landmark.Point
	}{
		{"reference", reference},
		{"candidate a", candidateA},
		{"candidate b", candidateB},
	}
	for _, set := range sets {
		if err := ValidatePoints(set.points); err != nil {
			return nil, fmt.Errorf("%s: %w", set.name, err)
		}
	}

	fitA, err := s.Optimize(reference, candidateA)
	if err != nil {
		return nil, fmt.Errorf("candidate a: %w", err)
	}
	fitB, err := s.Optimize(reference, candidateB)
	if err != nil {
		return nil, fmt.Errorf("candidate b: %w", err)
	}

	closer := CandidateB
	if fitA.Score < fitB.Score {
		closer = CandidateA
	}

	return &Result{
		ScoreA:  fitA.Score,
		ScoreB:  fitB.Score,
		LambdaA: fitA.Lambda,
		LambdaB: fitB.Lambda,
		Closer:  closer,
		Diagnostics: Diagnostics{
			ReferenceCount:   len(reference),
			CandidateACount:  len(candidateA),
			CandidateBCount:  len(candidateB),
			LambdaRange:      [2]float64{s.lambdaMin, s.lambdaMax},
			ScoreDifference:  math.Abs(fitA.Score - fitB.Score),
			SimilarityRatio:  similarityRatio(fitA.Score, fitB.Score),
			DegenerateA:      fitA.Degenerate,
			DegenerateB:      fitB.Degenerate,
			FeatureTypesUsed: kindsUsed(reference),
		},
		Elapsed: time.Since(start),
	}, nil
}

// similarityRatio is min/max of the two scores, 1.0 when both are exactly zero.
func similarityRatio(a, b float64) float64 {
	hi := max(a, b)
	if hi == 0 {
		return 1.0
	}
	return min(a, b) / hi
}

func kindsUsed(points []landmark.Point) []landmark.Kind {
	seen := make(map[landmark.Kind]bool)
	var kinds []landmark.Kind
	for _, p := range points {
		if !seen[p.Kind] {
			seen[p.Kind] = true
			kinds = append(kinds, p.Kind)
		}
	}
	slices.Sort(kinds)
	return kinds
}

// ValidatePoints reports whether a point set can be scored: non-empty with
// every coordinate finite and inside [0, MaxCoordinate].
func ValidatePoints(points []landmark.Point) error {
	if len(points) == 0 {
		return fmt.Errorf("point set is empty: %w", landmark.ErrInvalidInput)
	}
	for i, p := range points {
		if !isFinite(p.X) || !isFinite(p.Y) {
			return fmt.Errorf("point %d has non-finite coordinates: %w", i, landmark.ErrInvalidInput)
		}
		if p.X < 0 || p.Y < 0 || p.X > constants.MaxCoordinate || p.Y > constants.MaxCoordinate {
			return fmt.Errorf("point %d coordinates (%g, %g) outside [0, %d]: %w",
				i, p.X, p.Y, constants.MaxCoordinate, landmark.ErrInvalidInput)
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
