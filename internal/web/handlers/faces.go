package handlers

import (
	"fmt"
	"log"
	"net/http"

	"github.com/kozaktomas/face-compare/internal/detector"
	"github.com/kozaktomas/face-compare/internal/facealign"
	"github.com/kozaktomas/face-compare/internal/facematch"
	"github.com/kozaktomas/face-compare/internal/imagestore"
)

// FacesHandler handles face detection and normalization.
type FacesHandler struct {
	images     *imagestore.Store
	faces      detector.FaceBoxDetector
	normalizer *facealign.Normalizer
}

// NewFacesHandler creates a new faces handler.
func NewFacesHandler(images *imagestore.Store, faces detector.FaceBoxDetector, normalizer *facealign.Normalizer) *FacesHandler {
	return &FacesHandler{
		images:     images,
		faces:      faces,
		normalizer: normalizer,
	}
}

// DetectRequest names the uploaded image to process.
type DetectRequest struct {
	ImageID string `json:"image_id"`
}

// ProcessingInfo summarizes detection quality.
type ProcessingInfo struct {
	DetectionConfidence float64 `json:"detection_confidence"`
	FacesCount          int     `json:"faces_count"`
	LandmarksDetected   int     `json:"landmarks_detected"`
	ProcessedSize       [2]int  `json:"processed_size"`
}

// DetectResponse describes the stored normalized face.
type DetectResponse struct {
	Success           bool                  `json:"success"`
	Message           string                `json:"message"`
	ImageID           string                `json:"image_id"`
	OriginalImageURL  string                `json:"original_image"`
	ProcessedImageID  string                `json:"processed_image_id"`
	ProcessedImageURL string                `json:"processed_image"`
	FaceBox           facematch.BoundingBox `json:"face_bbox"`
	Normalization     *facealign.Result     `json:"normalization"`
	ProcessingInfo    ProcessingInfo        `json:"processing_info"`
}

// Detect finds the most confident face, crops and levels it, and stores the
// result as a new image whose id is returned.
func (h *FacesHandler) Detect(w http.ResponseWriter, r *http.Request) {
	var req DetectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ImageID == "" {
		respondError(w, http.StatusBadRequest, "image_id is required")
		return
	}

	img, err := h.images.Decode(req.ImageID)
	if err != nil {
		respondErr(w, err, "failed to decode image")
		return
	}

	result, face, err := h.normalizer.DetectAndNormalize(r.Context(), h.faces, img)
	if err != nil {
		respondErr(w, err, "face processing failed")
		return
	}

	data, err := facealign.EncodeJPEG(result.Image)
	if err != nil {
		respondErr(w, err, "failed to encode processed image")
		return
	}
	processed, err := h.images.PutDerived(req.ImageID, req.ImageID+"_processed.jpg", data)
	if err != nil {
		respondErr(w, err, "failed to store processed image")
		return
	}

	width, height := result.Size()
	message := "Face detected and normalized"
	if result.Degraded {
		message = fmt.Sprintf("Face detected, alignment skipped: %s", result.Reason)
	}
	log.Printf("Processed face in %s -> %s (confidence %.2f, angle %.2f, degraded %t)",
		sanitizeForLog(req.ImageID), processed.ID, face.Confidence, result.AngleDegrees, result.Degraded)

	respondJSON(w, http.StatusOK, DetectResponse{
		Success:           true,
		Message:           message,
		ImageID:           req.ImageID,
		OriginalImageURL:  imageURL(req.ImageID),
		ProcessedImageID:  processed.ID,
		ProcessedImageURL: imageURL(processed.ID),
		FaceBox:           face.Box,
		Normalization:     result,
		ProcessingInfo: ProcessingInfo{
			DetectionConfidence: face.Confidence,
			FacesCount:          face.FacesCount,
			LandmarksDetected:   result.LandmarkCount,
			ProcessedSize:       [2]int{width, height},
		},
	})
}
