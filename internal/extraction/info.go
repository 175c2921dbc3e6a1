package extraction

import "github.com/kozaktomas/face-compare/internal/landmark"

// Info describes the extractor for clients building a parameter form.
type Info struct {
	ServiceName           string                `json:"service_name"`
	Version               string                `json:"version"`
	AvailableFeatureTypes []landmark.Kind       `json:"available_feature_types"`
	MaxPointsPerType      map[landmark.Kind]int `json:"max_points_per_type"`
	DefaultParameters     Resolved              `json:"default_parameters"`
	SupportedImageFormats []string              `json:"supported_image_formats"`
}

// Info returns the extractor description.
func (e *Extractor) Info() Info {
	return Info{
		ServiceName:           "Automatic Feature Extraction",
		Version:               Version,
		AvailableFeatureTypes: e.AvailableKinds(),
		MaxPointsPerType:      e.MaxPoints(),
		DefaultParameters:     e.Defaults(),
		SupportedImageFormats: []string{"jpg", "jpeg", "png", "bmp"},
	}
}
