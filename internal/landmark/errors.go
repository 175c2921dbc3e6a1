package landmark

import "errors"

// Error taxonomy shared by the store, scorer, normalizer and extractor.
// Callers wrap these with context and match them with errors.Is.
var (
	// ErrNotFound is returned when an image identifier has no stored data.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput covers malformed point sets, unknown kinds and bad parameters.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDetectionFailed signals that the external detector found no face or landmarks.
	// It is a degraded outcome, most callers report it instead of failing.
	ErrDetectionFailed = errors.New("detection failed")

	// ErrComputation is an unexpected numeric failure, e.g. a non-finite score.
	ErrComputation = errors.New("computation error")
)
