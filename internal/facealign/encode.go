package facealign

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/kozaktomas/face-compare/internal/constants"
)

// EncodeJPEG encodes a normalized face for storage.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(constants.JPEGQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode normalized face: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes img to path; the format follows the file extension.
func Save(img image.Image, path string) error {
	if err := imaging.Save(img, path, imaging.JPEGQuality(constants.JPEGQuality)); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
