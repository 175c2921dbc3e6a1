package cmd

import (
	"fmt"
	"log"

	"github.com/kozaktomas/face-compare/internal/config"
	"github.com/kozaktomas/face-compare/internal/detector"
	"github.com/kozaktomas/face-compare/internal/extraction"
	"github.com/kozaktomas/face-compare/internal/facealign"
	"github.com/kozaktomas/face-compare/internal/scoring"
)

// engine bundles the detectors and processing stages shared by commands.
type engine struct {
	faces      detector.FaceBoxDetector
	landmarks  detector.LandmarkDetector
	normalizer *facealign.Normalizer
	extractor  *extraction.Extractor
	scorer     *scoring.Scorer
}

// buildDetectors returns the face-box detector selected by FACE_DETECTOR and
// the landmark service client.
func buildDetectors(cfg *config.Config) (detector.FaceBoxDetector, detector.LandmarkDetector, error) {
	service := detector.NewServiceClient(cfg.Detector.ServiceURL)

	switch cfg.Detector.FaceBackend {
	case config.DetectorPigo:
		pigo, err := detector.NewPigoDetector(cfg.Detector.PigoCascadePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load pigo cascade: %w", err)
		}
		log.Printf("Face detection: pigo (%s), landmarks: %s", cfg.Detector.PigoCascadePath, service.BaseURL())
		return pigo, service, nil
	default:
		log.Printf("Face detection and landmarks: %s", service.BaseURL())
		return service, service, nil
	}
}

func buildEngine(cfg *config.Config) (*engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	faces, landmarks, err := buildDetectors(cfg)
	if err != nil {
		return nil, err
	}

	normalizer, err := facealign.NewNormalizer(landmarks, facealign.Options{
		Margin: cfg.Normalizer.Margin,
		Anchors: facealign.AnchorPair{
			Left:  cfg.Landmarks.EyeAnchors.Left,
			Right: cfg.Landmarks.EyeAnchors.Right,
		},
		KeyPoints: cfg.Landmarks.KeyPoints,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create normalizer: %w", err)
	}

	scorer, err := scoring.NewScorer(cfg.Scoring.LambdaMin, cfg.Scoring.LambdaMax)
	if err != nil {
		return nil, fmt.Errorf("failed to create scorer: %w", err)
	}

	return &engine{
		faces:      faces,
		landmarks:  landmarks,
		normalizer: normalizer,
		extractor:  extraction.New(landmarks, cfg.Landmarks),
		scorer:     scorer,
	}, nil
}
