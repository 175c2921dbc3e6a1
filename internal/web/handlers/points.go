package handlers

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-compare/internal/landmark"
	"github.com/kozaktomas/face-compare/internal/pointstore"
)

// PointsHandler handles manual feature point endpoints.
type PointsHandler struct {
	points *pointstore.Store
}

// NewPointsHandler creates a new points handler.
func NewPointsHandler(points *pointstore.Store) *PointsHandler {
	return &PointsHandler{points: points}
}

// SavePointsRequest is the body of a manual save.
type SavePointsRequest struct {
	ImageID string           `json:"image_id"`
	Points  []landmark.Point `json:"points"`
}

// PointsResponse is an image's stored point set.
type PointsResponse struct {
	ImageID string           `json:"image_id"`
	Points  []landmark.Point `json:"points"`
}

// Save replaces the image's point set with the submitted manual points.
// The image does not need to be uploaded first.
func (h *PointsHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req SavePointsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ImageID == "" {
		respondError(w, http.StatusBadRequest, "image_id is required")
		return
	}
	if req.Points == nil {
		req.Points = []landmark.Point{}
	}

	n, err := h.points.SaveManual(req.ImageID, req.Points)
	if err != nil {
		respondErr(w, err, "failed to save feature points")
		return
	}
	log.Printf("Saved %d feature points for image %s", n, sanitizeForLog(req.ImageID))

	respondJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"message":      "Feature points saved successfully",
		"image_id":     req.ImageID,
		"points_count": n,
	})
}

// Get returns the stored point set in order.
func (h *PointsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	points, err := h.points.Get(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Feature points not found for this image")
		return
	}
	respondJSON(w, http.StatusOK, PointsResponse{ImageID: id, Points: points})
}
