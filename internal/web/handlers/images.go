package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-compare/internal/constants"
	"github.com/kozaktomas/face-compare/internal/imagestore"
	"github.com/kozaktomas/face-compare/internal/landmark"
	"github.com/kozaktomas/face-compare/internal/pointstore"
)

// ImagesHandler handles image upload, download and deletion.
type ImagesHandler struct {
	images *imagestore.Store
	points *pointstore.Store
}

// NewImagesHandler creates a new images handler.
func NewImagesHandler(images *imagestore.Store, points *pointstore.Store) *ImagesHandler {
	return &ImagesHandler{
		images: images,
		points: points,
	}
}

// UploadResponse is returned after a successful upload.
type UploadResponse struct {
	ImageID    string    `json:"image_id"`
	URL        string    `json:"url"`
	Filename   string    `json:"filename"`
	UploadTime time.Time `json:"upload_time"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
}

func imageURL(id string) string {
	return "/api/v1/images/" + id
}

// Upload stores a single multipart file sent as "file".
func (h *ImagesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// Leave room for the multipart envelope around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.images.MaxSize()+constants.MultipartMemory)
	if err := r.ParseMultipartForm(constants.MultipartMemory); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	if header.Size > h.images.MaxSize() {
		respondError(w, http.StatusBadRequest,
			fmt.Sprintf("file too large (max %d bytes)", h.images.MaxSize()))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	img, err := h.images.Put(header.Filename, data)
	if err != nil {
		respondErr(w, err, "upload failed")
		return
	}

	respondJSON(w, http.StatusOK, UploadResponse{
		ImageID:    img.ID,
		URL:        imageURL(img.ID),
		Filename:   img.Filename,
		UploadTime: img.UploadedAt,
		Width:      img.Width,
		Height:     img.Height,
	})
}

// Get streams the stored image bytes.
func (h *ImagesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	img, err := h.images.Get(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "image not found")
		return
	}

	data := img.Data()
	w.Header().Set("Content-Type", img.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Delete removes an image together with its point set. Either may be
// missing; only when both are absent is the id unknown.
func (h *ImagesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	imgErr := h.images.Delete(id)
	ptsErr := h.points.Delete(id)
	if errors.Is(imgErr, landmark.ErrNotFound) && errors.Is(ptsErr, landmark.ErrNotFound) {
		respondError(w, http.StatusNotFound, "image not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Image and feature points deleted successfully",
	})
}
