package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-compare/internal/extraction"
	"github.com/kozaktomas/face-compare/internal/imagestore"
	"github.com/kozaktomas/face-compare/internal/landmark"
	"github.com/kozaktomas/face-compare/internal/pointstore"
)

// AutoFeaturesHandler handles automatic landmark extraction endpoints.
type AutoFeaturesHandler struct {
	images    *imagestore.Store
	points    *pointstore.Store
	extractor *extraction.Extractor
}

// NewAutoFeaturesHandler creates a new automatic features handler.
func NewAutoFeaturesHandler(images *imagestore.Store, points *pointstore.Store, extractor *extraction.Extractor) *AutoFeaturesHandler {
	return &AutoFeaturesHandler{
		images:    images,
		points:    points,
		extractor: extractor,
	}
}

// ExtractRequest selects the image and extraction parameters.
type ExtractRequest struct {
	ImageID string `json:"image_id"`
	extraction.Params
}

// ExtractResponse reports the points added to the image's set.
type ExtractResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ImageID string `json:"image_id"`
	*extraction.Result
	TotalPoints int `json:"total_points"`
}

// ValidateResponse echoes the parameters with the validation outcome.
type ValidateResponse struct {
	extraction.Validation
	ValidatedParameters extraction.Params `json:"validated_parameters"`
}

// TypesResponse lists extractable kinds for building a selection form.
type TypesResponse struct {
	AvailableFeatureTypes []landmark.Kind          `json:"available_feature_types"`
	MaxPointsPerType      map[landmark.Kind]int    `json:"max_points_per_type"`
	FeatureTypeLabels     map[landmark.Kind]string `json:"feature_type_labels"`
}

// StatusResponse summarizes an image's point set.
type StatusResponse struct {
	*pointstore.Stats
	HasAutoFeatures   bool `json:"has_auto_features"`
	HasManualFeatures bool `json:"has_manual_features"`
}

// Extract detects landmarks on a stored image and appends the selected
// points to its set. A degraded extraction adds nothing and still succeeds.
func (h *AutoFeaturesHandler) Extract(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ImageID == "" {
		respondError(w, http.StatusBadRequest, "image_id is required")
		return
	}
	if _, err := h.images.Get(req.ImageID); err != nil {
		respondError(w, http.StatusNotFound, fmt.Sprintf("image not found: %s", req.ImageID))
		return
	}

	if v := h.extractor.Validate(req.Params); !v.Valid {
		respondError(w, http.StatusBadRequest, "invalid parameters: "+strings.Join(v.Errors, ", "))
		return
	}

	img, err := h.images.Decode(req.ImageID)
	if err != nil {
		respondErr(w, err, "failed to decode image")
		return
	}

	result, err := h.extractor.Extract(r.Context(), img, req.Params)
	if err != nil {
		respondErr(w, err, "automatic feature extraction failed")
		return
	}

	total := 0
	if len(result.Points) > 0 {
		total, err = h.points.MergeAutomatic(req.ImageID, result.Points)
		if err != nil {
			respondErr(w, err, "failed to store extracted points")
			return
		}
	} else if existing, err := h.points.Get(req.ImageID); err == nil {
		total = len(existing)
	}

	message := fmt.Sprintf("Extracted %d feature points", len(result.Points))
	if result.Degraded {
		message = "No feature points extracted: " + result.Reason
	}
	log.Printf("Auto extraction for %s: %d points (%d landmarks, %d filtered)",
		sanitizeForLog(req.ImageID), len(result.Points), result.LandmarkCount, result.Filtered)

	respondJSON(w, http.StatusOK, ExtractResponse{
		Success:     !result.Degraded,
		Message:     message,
		ImageID:     req.ImageID,
		Result:      result,
		TotalPoints: total,
	})
}

// Validate checks extraction parameters without running the detector.
func (h *AutoFeaturesHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var params extraction.Params
	if !decodeJSON(w, r, &params) {
		return
	}
	respondJSON(w, http.StatusOK, ValidateResponse{
		Validation:          h.extractor.Validate(params),
		ValidatedParameters: params,
	})
}

// Info describes the extractor and its defaults.
func (h *AutoFeaturesHandler) Info(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.extractor.Info())
}

// Types lists the extractable kinds with their limits and labels.
func (h *AutoFeaturesHandler) Types(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, TypesResponse{
		AvailableFeatureTypes: h.extractor.AvailableKinds(),
		MaxPointsPerType:      h.extractor.MaxPoints(),
		FeatureTypeLabels:     h.extractor.Labels(),
	})
}

// Clear removes automatic points and keeps the manual ones.
func (h *AutoFeaturesHandler) Clear(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	remaining, err := h.points.ClearAutomatic(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Feature points not found for this image")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"message":          fmt.Sprintf("Cleared automatic feature points for image %s", id),
		"remaining_points": remaining,
	})
}

// Status reports point counts by provenance and kind. Unknown ids report
// an empty set rather than an error.
func (h *AutoFeaturesHandler) Status(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	stats, err := h.points.Stats(id)
	if err != nil {
		stats = pointstore.ComputeStats(id, nil)
	}
	respondJSON(w, http.StatusOK, StatusResponse{
		Stats:             stats,
		HasAutoFeatures:   stats.HasAutomatic(),
		HasManualFeatures: stats.HasManual(),
	})
}
