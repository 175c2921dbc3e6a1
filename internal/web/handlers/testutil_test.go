package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-compare/internal/config"
	"github.com/kozaktomas/face-compare/internal/constants"
	"github.com/kozaktomas/face-compare/internal/detector"
	"github.com/kozaktomas/face-compare/internal/extraction"
	"github.com/kozaktomas/face-compare/internal/facealign"
	"github.com/kozaktomas/face-compare/internal/facematch"
	"github.com/kozaktomas/face-compare/internal/imagestore"
	"github.com/kozaktomas/face-compare/internal/pointstore"
	"github.com/kozaktomas/face-compare/internal/scoring"
)

// testConfig creates a config with default values and the embedded landmark table
func testConfig() *config.Config {
	landmarks, err := config.LoadLandmarks()
	if err != nil {
		panic(err)
	}
	return &config.Config{
		Detector: config.DetectorConfig{
			FaceBackend:       config.DetectorService,
			MinFaceConfidence: constants.MinFaceConfidence,
		},
		Normalizer: config.NormalizerConfig{Margin: constants.DefaultFaceMargin},
		Scoring: config.ScoringConfig{
			LambdaMin: constants.DefaultLambdaMin,
			LambdaMax: constants.DefaultLambdaMax,
		},
		Upload: config.UploadConfig{
			MaxSize:           constants.MaxUploadSize,
			AllowedExtensions: constants.AllowedImageExtensions,
		},
		Landmarks: landmarks,
	}
}

// fakeFaces returns a fixed face box or error
type fakeFaces struct {
	face *detector.FaceBox
	err  error
}

func (f *fakeFaces) DetectFaceBox(ctx context.Context, img image.Image) (*detector.FaceBox, error) {
	return f.face, f.err
}

// fakeLandmarks returns a fixed landmark set or error
type fakeLandmarks struct {
	landmarks []detector.Landmark
	err       error
}

func (f *fakeLandmarks) DetectLandmarks(ctx context.Context, img image.Image) ([]detector.Landmark, error) {
	return f.landmarks, f.err
}

// denseLandmarks builds a full mesh where landmark i sits at (i%100+10, i/100+10)
// with confidence from z = 0.1.
func denseLandmarks(n int) []detector.Landmark {
	lms := make([]detector.Landmark, n)
	for i := range lms {
		lms[i] = detector.Landmark{X: float64(i%100 + 10), Y: float64(i/100 + 10), Z: 0.1}
	}
	return lms
}

// testEnv wires stores and services the way the server does
type testEnv struct {
	cfg        *config.Config
	images     *imagestore.Store
	points     *pointstore.Store
	faces      *fakeFaces
	landmarks  *fakeLandmarks
	extractor  *extraction.Extractor
	normalizer *facealign.Normalizer
	scorer     *scoring.Scorer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := testConfig()
	env := &testEnv{
		cfg:    cfg,
		images: imagestore.New(cfg.Upload.MaxSize, cfg.Upload.AllowedExtensions),
		points: pointstore.New(),
		faces: &fakeFaces{face: &detector.FaceBox{
			Box:        facematch.BoundingBox{X: 40, Y: 30, Width: 80, Height: 100},
			Confidence: 0.93,
			FacesCount: 1,
		}},
		landmarks: &fakeLandmarks{landmarks: denseLandmarks(constants.MinDenseLandmarks)},
		scorer:    scoring.NewDefaultScorer(),
	}
	env.extractor = extraction.New(env.landmarks, cfg.Landmarks)

	normalizer, err := facealign.NewNormalizer(env.landmarks, facealign.Options{
		Margin: cfg.Normalizer.Margin,
		Anchors: facealign.AnchorPair{
			Left:  cfg.Landmarks.EyeAnchors.Left,
			Right: cfg.Landmarks.EyeAnchors.Right,
		},
		KeyPoints: cfg.Landmarks.KeyPoints,
	})
	if err != nil {
		t.Fatalf("failed to create normalizer: %v", err)
	}
	env.normalizer = normalizer
	return env
}

// testPNG encodes a solid w×h PNG
func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// storeTestImage puts a 200×200 PNG into the env's image store
func storeTestImage(t *testing.T, env *testEnv) string {
	t.Helper()
	img, err := env.images.Put("face.png", testPNG(t, 200, 200))
	if err != nil {
		t.Fatalf("failed to store image: %v", err)
	}
	return img.ID
}

// multipartRequest builds a POST with a single file part
func multipartRequest(t *testing.T, path, field, filename string, data []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(data)); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest("POST", path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// jsonRequest builds a request with a JSON body
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
