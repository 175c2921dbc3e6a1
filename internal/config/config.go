package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/face-compare/internal/constants"
	"github.com/kozaktomas/face-compare/internal/landmark"
)

//go:embed landmarks.yaml
var landmarksYAML []byte

// Face detector backends.
const (
	DetectorService = "service"
	DetectorPigo    = "pigo"
)

type Config struct {
	Web        WebConfig
	Detector   DetectorConfig
	Normalizer NormalizerConfig
	Scoring    ScoringConfig
	Upload     UploadConfig
	Landmarks  LandmarksConfig
}

type WebConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

type DetectorConfig struct {
	ServiceURL        string // landmark sidecar, defaults to http://localhost:8000
	FaceBackend       string // "service" or "pigo"
	PigoCascadePath   string
	MinFaceConfidence float64
}

type NormalizerConfig struct {
	Margin float64
}

type ScoringConfig struct {
	LambdaMin float64
	LambdaMax float64
}

type UploadConfig struct {
	MaxSize           int64
	AllowedExtensions []string
}

// LandmarksConfig is the embedded landmark table.
type LandmarksConfig struct {
	Kinds               map[landmark.Kind]KindConfig `yaml:"kinds"`
	DefaultKinds        []landmark.Kind              `yaml:"default_kinds"`
	ConfidenceThreshold float64                      `yaml:"confidence_threshold"`
	EyeAnchors          EyeAnchors                   `yaml:"eye_anchors"`
	KeyPoints           map[string]int               `yaml:"key_points"`
}

type KindConfig struct {
	Label         string `yaml:"label"`
	Indices       []int  `yaml:"indices"`
	DefaultPoints int    `yaml:"default_points"`
}

type EyeAnchors struct {
	Left  int `yaml:"left"`
	Right int `yaml:"right"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a non-negative float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// LoadLandmarks parses the embedded landmark table.
func LoadLandmarks() (LandmarksConfig, error) {
	var lc LandmarksConfig
	if err := yaml.Unmarshal(landmarksYAML, &lc); err != nil {
		return lc, fmt.Errorf("failed to unmarshal embedded landmarks.yaml: %w", err)
	}
	return lc, nil
}

func Load() *Config {
	landmarks, err := LoadLandmarks()
	if err != nil {
		// This is an embedded file so this error should never happen in practice
		panic(err.Error())
	}

	return &Config{
		Web: WebConfig{
			Host:           envString("WEB_HOST", "0.0.0.0"),
			Port:           envInt("WEB_PORT", 8080),
			AllowedOrigins: splitList(os.Getenv("WEB_ALLOWED_ORIGINS")),
		},
		Detector: DetectorConfig{
			ServiceURL:        os.Getenv("LANDMARK_SERVICE_URL"),
			FaceBackend:       strings.ToLower(envString("FACE_DETECTOR", DetectorService)),
			PigoCascadePath:   os.Getenv("PIGO_CASCADE_PATH"),
			MinFaceConfidence: constants.MinFaceConfidence,
		},
		Normalizer: NormalizerConfig{
			Margin: envFloat("FACE_MARGIN", constants.DefaultFaceMargin),
		},
		Scoring: ScoringConfig{
			LambdaMin: envFloat("LAMBDA_MIN", constants.DefaultLambdaMin),
			LambdaMax: envFloat("LAMBDA_MAX", constants.DefaultLambdaMax),
		},
		Upload: UploadConfig{
			MaxSize:           int64(envInt("MAX_UPLOAD_SIZE", constants.MaxUploadSize)),
			AllowedExtensions: constants.AllowedImageExtensions,
		},
		Landmarks: landmarks,
	}
}

// Validate checks settings that would otherwise fail later at first use.
func (c *Config) Validate() error {
	switch c.Detector.FaceBackend {
	case DetectorService:
	case DetectorPigo:
		if c.Detector.PigoCascadePath == "" {
			return fmt.Errorf("PIGO_CASCADE_PATH is required when FACE_DETECTOR=pigo")
		}
	default:
		return fmt.Errorf("unknown FACE_DETECTOR %q (expected %q or %q)",
			c.Detector.FaceBackend, DetectorService, DetectorPigo)
	}
	if c.Scoring.LambdaMin > c.Scoring.LambdaMax {
		return fmt.Errorf("LAMBDA_MIN (%g) must not exceed LAMBDA_MAX (%g)", c.Scoring.LambdaMin, c.Scoring.LambdaMax)
	}
	return c.Landmarks.Validate()
}

// Validate checks the landmark table for unknown kinds and bad defaults.
func (lc LandmarksConfig) Validate() error {
	for kind, kc := range lc.Kinds {
		if !kind.Valid() || kind == landmark.KindOther {
			return fmt.Errorf("landmark table: kind %q cannot be extracted", kind)
		}
		if len(kc.Indices) == 0 {
			return fmt.Errorf("landmark table: kind %q has no indices", kind)
		}
		if kc.DefaultPoints <= 0 || kc.DefaultPoints > len(kc.Indices) {
			return fmt.Errorf("landmark table: kind %q default_points %d outside [1, %d]",
				kind, kc.DefaultPoints, len(kc.Indices))
		}
	}
	for _, kind := range lc.DefaultKinds {
		if _, ok := lc.Kinds[kind]; !ok {
			return fmt.Errorf("landmark table: default kind %q has no indices", kind)
		}
	}
	if lc.ConfidenceThreshold < 0 || lc.ConfidenceThreshold > 1 {
		return fmt.Errorf("landmark table: confidence_threshold %g outside [0, 1]", lc.ConfidenceThreshold)
	}
	return nil
}
