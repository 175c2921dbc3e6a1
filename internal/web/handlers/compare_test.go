package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-compare/internal/landmark"
	"github.com/kozaktomas/face-compare/internal/pointstore"
	"github.com/kozaktomas/face-compare/internal/scoring"
)

func savePoints(t *testing.T, store *pointstore.Store, id string, coords ...float64) {
	t.Helper()
	points := make([]landmark.Point, 0, len(coords)/2)
	for i := 0; i+1 < len(coords); i += 2 {
		points = append(points, landmark.NewManual(coords[i], coords[i+1], landmark.KindOther, ""))
	}
	if _, err := store.SaveManual(id, points); err != nil {
		t.Fatalf("failed to save points for %s: %v", id, err)
	}
}

func newCompareEnv(t *testing.T) (*testEnv, *CompareHandler) {
	t.Helper()
	env := newTestEnv(t)
	savePoints(t, env.points, "ref", 100, 100, 200, 100, 150, 150)
	savePoints(t, env.points, "half", 50, 50, 100, 50, 75, 75)
	savePoints(t, env.points, "skewed", 10, 90, 300, 20, 40, 40)
	savePoints(t, env.points, "short", 10, 10, 20, 20)
	return env, NewCompareHandler(env.points, env.scorer)
}

func TestCompareHandler_Compare(t *testing.T) {
	_, handler := newCompareEnv(t)

	body := CompareRequest{ReferenceID: "ref", CompareIDs: []string{"skewed", "half"}}
	recorder := httptest.NewRecorder()
	handler.Compare(recorder, jsonRequest(t, "POST", "/api/v1/compare", body))

	assertStatusCode(t, recorder, http.StatusOK)

	var result struct {
		scoring.Result
		ReferenceID   string   `json:"reference_id"`
		CompareIDs    []string `json:"compare_ids"`
		ExecutionTime float64  `json:"execution_time"`
	}
	parseJSONResponse(t, recorder, &result)

	if result.Closer != scoring.CandidateB {
		t.Errorf("expected the scaled copy (b) to be closer, got %s", result.Closer)
	}
	if result.ScoreB > 1e-9 {
		t.Errorf("expected a perfect fit for b, got %g", result.ScoreB)
	}
	if result.LambdaB != 2 {
		t.Errorf("expected optimal scale 2 for b, got %g", result.LambdaB)
	}
	if result.ReferenceID != "ref" || len(result.CompareIDs) != 2 {
		t.Errorf("expected request echoed, got %q %v", result.ReferenceID, result.CompareIDs)
	}
	if result.ExecutionTime < 0 {
		t.Errorf("unexpected execution time %g", result.ExecutionTime)
	}
	if result.Diagnostics.ReferenceCount != 3 {
		t.Errorf("expected 3 reference points, got %d", result.Diagnostics.ReferenceCount)
	}
}

func TestCompareHandler_Compare_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     any
		expected int
		message  string
	}{
		{
			name:     "malformed",
			body:     `{"reference_id":`,
			expected: http.StatusBadRequest,
			message:  errInvalidRequestBody,
		},
		{
			name:     "unknown reference",
			body:     CompareRequest{ReferenceID: "nope", CompareIDs: []string{"half"}},
			expected: http.StatusNotFound,
			message:  "Feature points not found for reference image: nope",
		},
		{
			name:     "one candidate",
			body:     CompareRequest{ReferenceID: "ref", CompareIDs: []string{"half"}},
			expected: http.StatusBadRequest,
			message:  "Exactly 2 comparison images are required",
		},
		{
			name:     "three candidates",
			body:     CompareRequest{ReferenceID: "ref", CompareIDs: []string{"half", "skewed", "ref"}},
			expected: http.StatusBadRequest,
			message:  "Exactly 2 comparison images are required",
		},
		{
			name:     "unknown second candidate",
			body:     CompareRequest{ReferenceID: "ref", CompareIDs: []string{"half", "gone"}},
			expected: http.StatusNotFound,
			message:  "Feature points not found for comparison image 2: gone",
		},
		{
			name:     "length mismatch",
			body:     CompareRequest{ReferenceID: "ref", CompareIDs: []string{"half", "short"}},
			expected: http.StatusBadRequest,
			message:  "All images must have the same number of feature points",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, handler := newCompareEnv(t)

			recorder := httptest.NewRecorder()
			handler.Compare(recorder, jsonRequest(t, "POST", "/api/v1/compare", tc.body))

			assertStatusCode(t, recorder, tc.expected)
			assertJSONError(t, recorder, tc.message)
		})
	}
}

func TestCompareHandler_Compare_InvalidPoints(t *testing.T) {
	env, handler := newCompareEnv(t)
	savePoints(t, env.points, "far", 20000, 1, 2, 2, 3, 3)

	body := CompareRequest{ReferenceID: "ref", CompareIDs: []string{"half", "far"}}
	recorder := httptest.NewRecorder()
	handler.Compare(recorder, jsonRequest(t, "POST", "/api/v1/compare", body))

	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestCompareHandler_Compare_EmptySets(t *testing.T) {
	env, handler := newCompareEnv(t)
	for _, id := range []string{"e1", "e2", "e3"} {
		savePoints(t, env.points, id)
	}

	body := CompareRequest{ReferenceID: "e1", CompareIDs: []string{"e2", "e3"}}
	recorder := httptest.NewRecorder()
	handler.Compare(recorder, jsonRequest(t, "POST", "/api/v1/compare", body))

	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestCompareHandler_Status(t *testing.T) {
	_, handler := newCompareEnv(t)

	recorder := httptest.NewRecorder()
	handler.Status(recorder, httptest.NewRequest("GET", "/api/v1/compare/status", nil))

	assertStatusCode(t, recorder, http.StatusOK)

	var result CompareStatusResponse
	parseJSONResponse(t, recorder, &result)
	if result.ServiceStatus != "active" || result.StoredImages != 4 {
		t.Errorf("unexpected status %+v", result)
	}
	if len(result.AvailableImages) != 4 || result.AvailableImages[0] != "half" {
		t.Errorf("expected sorted ids, got %v", result.AvailableImages)
	}
	if result.LambdaRange != [2]float64{0, 300} {
		t.Errorf("expected lambda range [0 300], got %v", result.LambdaRange)
	}
}
