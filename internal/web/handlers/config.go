package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-compare/internal/config"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config *config.Config
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{
		config: cfg,
	}
}

// ConfigResponse represents the configuration response
type ConfigResponse struct {
	FaceDetector      string     `json:"face_detector"`
	LandmarkService   string     `json:"landmark_service,omitempty"`
	MinFaceConfidence float64    `json:"min_face_confidence"`
	FaceMargin        float64    `json:"face_margin"`
	EyeAnchors        [2]int     `json:"eye_anchors"`
	LambdaRange       [2]float64 `json:"lambda_range"`
	MaxUploadSize     int64      `json:"max_upload_size"`
	AllowedExtensions []string   `json:"allowed_extensions"`
}

// Get returns the effective configuration
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	c := h.config
	response := ConfigResponse{
		FaceDetector:      c.Detector.FaceBackend,
		LandmarkService:   c.Detector.ServiceURL,
		MinFaceConfidence: c.Detector.MinFaceConfidence,
		FaceMargin:        c.Normalizer.Margin,
		EyeAnchors:        [2]int{c.Landmarks.EyeAnchors.Left, c.Landmarks.EyeAnchors.Right},
		LambdaRange:       [2]float64{c.Scoring.LambdaMin, c.Scoring.LambdaMax},
		MaxUploadSize:     c.Upload.MaxSize,
		AllowedExtensions: c.Upload.AllowedExtensions,
	}

	respondJSON(w, http.StatusOK, response)
}
