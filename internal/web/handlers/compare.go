package handlers

import (
	"fmt"
	"log"
	"net/http"

	"github.com/kozaktomas/face-compare/internal/landmark"
	"github.com/kozaktomas/face-compare/internal/pointstore"
	"github.com/kozaktomas/face-compare/internal/scoring"
)

// CompareHandler handles similarity comparisons between stored point sets.
type CompareHandler struct {
	points *pointstore.Store
	scorer *scoring.Scorer
}

// NewCompareHandler creates a new compare handler.
func NewCompareHandler(points *pointstore.Store, scorer *scoring.Scorer) *CompareHandler {
	return &CompareHandler{
		points: points,
		scorer: scorer,
	}
}

// CompareRequest names the reference and the two candidates.
type CompareRequest struct {
	ReferenceID string   `json:"reference_id"`
	CompareIDs  []string `json:"compare_ids"`
}

// CompareResponse is the scoring result plus request echo and timing.
type CompareResponse struct {
	*scoring.Result
	ReferenceID   string   `json:"reference_id"`
	CompareIDs    []string `json:"compare_ids"`
	ExecutionTime float64  `json:"execution_time"`
}

// Compare scores both candidates against the reference.
func (h *CompareHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	reference, err := h.points.Get(req.ReferenceID)
	if err != nil {
		respondError(w, http.StatusNotFound,
			fmt.Sprintf("Feature points not found for reference image: %s", req.ReferenceID))
		return
	}

	if len(req.CompareIDs) != 2 {
		respondError(w, http.StatusBadRequest, "Exactly 2 comparison images are required")
		return
	}

	candidates := make([][]landmark.Point, 2)
	for i, id := range req.CompareIDs {
		candidates[i], err = h.points.Get(id)
		if err != nil {
			respondError(w, http.StatusNotFound,
				fmt.Sprintf("Feature points not found for comparison image %d: %s", i+1, id))
			return
		}
	}

	if len(reference) != len(candidates[0]) || len(reference) != len(candidates[1]) {
		respondError(w, http.StatusBadRequest, "All images must have the same number of feature points")
		return
	}

	result, err := h.scorer.Compare(reference, candidates[0], candidates[1])
	if err != nil {
		respondErr(w, err, "comparison failed")
		return
	}
	log.Printf("Compared %s against %s/%s: closer=%s (%.4f vs %.4f)",
		sanitizeForLog(req.ReferenceID), sanitizeForLog(req.CompareIDs[0]), sanitizeForLog(req.CompareIDs[1]),
		result.Closer, result.ScoreA, result.ScoreB)

	respondJSON(w, http.StatusOK, CompareResponse{
		Result:        result,
		ReferenceID:   req.ReferenceID,
		CompareIDs:    req.CompareIDs,
		ExecutionTime: result.ElapsedSeconds(),
	})
}

// CompareStatusResponse summarizes the comparison service.
type CompareStatusResponse struct {
	ServiceStatus   string     `json:"service_status"`
	StoredImages    int        `json:"stored_images"`
	AvailableImages []string   `json:"available_images"`
	LambdaRange     [2]float64 `json:"lambda_range"`
}

// Status lists the ids with stored point sets and the λ bounds.
func (h *CompareHandler) Status(w http.ResponseWriter, r *http.Request) {
	lo, hi := h.scorer.Bounds()
	respondJSON(w, http.StatusOK, CompareStatusResponse{
		ServiceStatus:   "active",
		StoredImages:    h.points.Len(),
		AvailableImages: h.points.IDs(),
		LambdaRange:     [2]float64{lo, hi},
	})
}
