package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/kozaktomas/face-compare/internal/constants"
	"github.com/kozaktomas/face-compare/internal/facematch"
)

const defaultServiceURL = "http://localhost:8000"

// ServiceClient talks to a landmark sidecar that wraps a face detection and
// face mesh model. Coordinates come back relative to the uploaded image.
type ServiceClient struct {
	baseURL       string
	client        *http.Client
	minConfidence float64
}

// NewServiceClient creates a new landmark service client
func NewServiceClient(baseURL string) *ServiceClient {
	if baseURL == "" {
		baseURL = defaultServiceURL
	}
	return &ServiceClient{
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		client:        &http.Client{},
		minConfidence: constants.MinFaceConfidence,
	}
}

// BaseURL returns the service endpoint.
func (c *ServiceClient) BaseURL() string {
	return c.baseURL
}

// faceDetection is one entry of the /detect/face response.
type faceDetection struct {
	BBox  []float64 `json:"bbox"` // [xmin, ymin, width, height], relative
	Score float64   `json:"score"`
}

type faceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []faceDetection `json:"faces"`
}

type landmarkPoint struct {
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Z          float64  `json:"z"`
	Confidence *float64 `json:"confidence,omitempty"`
}

type landmarksResponse struct {
	FacesCount int             `json:"faces_count"`
	Landmarks  []landmarkPoint `json:"landmarks"`
}

// postImage encodes img as JPEG, posts it as the multipart "file" field and
// returns the response body.
func (c *ServiceClient) postImage(ctx context.Context, endpoint string, img image.Image) ([]byte, error) {
	var imgBuf bytes.Buffer
	if err := imaging.Encode(&imgBuf, img, imaging.JPEG, imaging.JPEGQuality(constants.JPEGQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "image.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imgBuf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// DetectFaceBox returns the highest-scoring face at or above the confidence threshold.
func (c *ServiceClient) DetectFaceBox(ctx context.Context, img image.Image) (*FaceBox, error) {
	body, err := c.postImage(ctx, "/detect/face", img)
	if err != nil {
		return nil, err
	}

	var faceResp faceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	var best *faceDetection
	count := 0
	for i := range faceResp.Faces {
		f := &faceResp.Faces[i]
		if len(f.BBox) != 4 || f.Score < c.minConfidence {
			continue
		}
		count++
		if best == nil || f.Score > best.Score {
			best = f
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no face above confidence %.2f: %w", c.minConfidence, ErrNotDetected)
	}

	bounds := img.Bounds()
	box := facematch.FromRelative(best.BBox[0], best.BBox[1], best.BBox[2], best.BBox[3], bounds.Dx(), bounds.Dy())
	if box.Empty() {
		return nil, fmt.Errorf("face box outside image: %w", ErrNotDetected)
	}
	return &FaceBox{Box: box, Confidence: best.Score, FacesCount: count}, nil
}

// DetectLandmarks returns the dense landmark set in pixel coordinates of img.
func (c *ServiceClient) DetectLandmarks(ctx context.Context, img image.Image) ([]Landmark, error) {
	body, err := c.postImage(ctx, "/detect/landmarks", img)
	if err != nil {
		return nil, err
	}

	var lmResp landmarksResponse
	if err := json.Unmarshal(body, &lmResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(lmResp.Landmarks) == 0 {
		return nil, fmt.Errorf("no landmarks returned: %w", ErrNotDetected)
	}

	width := float64(img.Bounds().Dx())
	height := float64(img.Bounds().Dy())
	landmarks := make([]Landmark, len(lmResp.Landmarks))
	for i, lp := range lmResp.Landmarks {
		landmarks[i] = Landmark{
			X:          lp.X * width,
			Y:          lp.Y * height,
			Z:          lp.Z,
			Confidence: lp.Confidence,
		}
	}
	return landmarks, nil
}
