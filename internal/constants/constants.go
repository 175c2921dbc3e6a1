// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Scoring constants
const (
	// DefaultLambdaMin is the lower bound of the scale search interval
	DefaultLambdaMin = 0.0

	// DefaultLambdaMax is the upper bound of the scale search interval
	DefaultLambdaMax = 300.0

	// MaxCoordinate is the largest pixel coordinate accepted for scoring
	MaxCoordinate = 10000
)

// Normalization constants
const (
	// DefaultFaceMargin is the fraction of the face box added on every side before cropping
	DefaultFaceMargin = 0.3

	// DefaultLeftEyeAnchor is the dense-mesh index of the left eye outer corner
	DefaultLeftEyeAnchor = 33

	// DefaultRightEyeAnchor is the dense-mesh index of the right eye outer corner
	DefaultRightEyeAnchor = 263

	// MinFaceConfidence is the minimum detection confidence for a face box
	MinFaceConfidence = 0.5
)

// Extraction constants
const (
	// DefaultConfidenceThreshold is the minimum landmark confidence kept by automatic extraction
	DefaultConfidenceThreshold = 0.5

	// MinDenseLandmarks is the landmark count a dense detector is expected to return
	MinDenseLandmarks = 468
)

// Processing constants
const (
	// JPEGQuality is the quality used when encoding normalized faces
	JPEGQuality = 90

	// DefaultConcurrency is the default number of parallel workers for batch extraction
	DefaultConcurrency = 4
)
