package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kozaktomas/face-compare/internal/landmark"
)

// pointFile is the on-disk form written by extract and read by compare.
type pointFile struct {
	ImageID string           `json:"image_id"`
	Points  []landmark.Point `json:"points"`
}

// readPointFile loads a point set from either a pointFile object or a bare
// JSON array of points.
func readPointFile(path string) ([]landmark.Point, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var points []landmark.Point
		if err := json.Unmarshal(trimmed, &points); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return points, nil
	}

	var pf pointFile
	if err := json.Unmarshal(trimmed, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if pf.Points == nil {
		return nil, fmt.Errorf("%s has no points: %w", path, landmark.ErrInvalidInput)
	}
	return pf.Points, nil
}

func writePointFile(path, imageID string, points []landmark.Point) error {
	data, err := json.MarshalIndent(pointFile{ImageID: imageID, Points: points}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode points: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
