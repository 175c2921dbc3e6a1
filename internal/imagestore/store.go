// Package imagestore keeps uploaded and processed image bytes in memory for
// the lifetime of the process.
package imagestore

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"

	"github.com/kozaktomas/face-compare/internal/landmark"
)

// Image is a stored image and its metadata.
type Image struct {
	ID         string    `json:"image_id"`
	Filename   string    `json:"filename"`
	Format     string    `json:"format"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Size       int       `json:"size"`
	UploadedAt time.Time `json:"upload_time"`
	SourceID   string    `json:"source_id,omitempty"` // set on images derived from another upload
	data       []byte
}

// Data returns the raw encoded bytes.
func (img *Image) Data() []byte {
	return img.data
}

// ContentType returns the MIME type for the stored format.
func (img *Image) ContentType() string {
	switch img.Format {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "bmp":
		return "image/bmp"
	}
	return "application/octet-stream"
}

// Store holds images by generated identifier.
type Store struct {
	mu      sync.RWMutex
	images  map[string]*Image
	maxSize int64
	allowed map[string]bool
}

// New creates a store accepting files up to maxSize bytes whose extension
// (lowercase, without dot) is in allowed.
func New(maxSize int64, allowed []string) *Store {
	ext := make(map[string]bool, len(allowed))
	for _, e := range allowed {
		ext[strings.ToLower(strings.TrimPrefix(e, "."))] = true
	}
	return &Store{
		images:  make(map[string]*Image),
		maxSize: maxSize,
		allowed: ext,
	}
}

// MaxSize returns the upload size limit in bytes.
func (s *Store) MaxSize() int64 {
	return s.maxSize
}

// Extension returns the lowercase extension of filename without the dot.
func Extension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// Allowed reports whether filename has an accepted extension.
func (s *Store) Allowed(filename string) bool {
	return s.allowed[Extension(filename)]
}

func (s *Store) validate(filename string, data []byte) (image.Config, string, error) {
	if !s.Allowed(filename) {
		return image.Config{}, "", fmt.Errorf("unsupported file type %q: %w", Extension(filename), landmark.ErrInvalidInput)
	}
	if len(data) == 0 {
		return image.Config{}, "", fmt.Errorf("file %s is empty: %w", filename, landmark.ErrInvalidInput)
	}
	if int64(len(data)) > s.maxSize {
		return image.Config{}, "", fmt.Errorf("file %s is %d bytes, limit is %d: %w",
			filename, len(data), s.maxSize, landmark.ErrInvalidInput)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, "", fmt.Errorf("file %s is not a readable image: %w", filename, landmark.ErrInvalidInput)
	}
	return cfg, format, nil
}

// Put validates and stores an uploaded file under a new identifier.
func (s *Store) Put(filename string, data []byte) (*Image, error) {
	return s.put(filename, data, "")
}

// PutDerived stores an image produced from sourceID, e.g. a normalized face.
func (s *Store) PutDerived(sourceID, filename string, data []byte) (*Image, error) {
	return s.put(filename, data, sourceID)
}

func (s *Store) put(filename string, data []byte, sourceID string) (*Image, error) {
	cfg, format, err := s.validate(filename, data)
	if err != nil {
		return nil, err
	}

	img := &Image{
		ID:         uuid.New().String(),
		Filename:   filepath.Base(filename),
		Format:     format,
		Width:      cfg.Width,
		Height:     cfg.Height,
		Size:       len(data),
		UploadedAt: time.Now().UTC(),
		SourceID:   sourceID,
		data:       bytes.Clone(data),
	}

	s.mu.Lock()
	s.images[img.ID] = img
	s.mu.Unlock()
	return img, nil
}

// Get returns the image stored under id.
func (s *Store) Get(id string) (*Image, error) {
	s.mu.RLock()
	img, ok := s.images[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("image %s: %w", id, landmark.ErrNotFound)
	}
	return img, nil
}

// Decode returns the decoded pixels of id, honoring EXIF orientation.
func (s *Store) Decode(id string) (image.Image, error) {
	img, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	decoded, err := imaging.Decode(bytes.NewReader(img.data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", id, err)
	}
	return decoded, nil
}

// Delete removes id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.images[id]; !ok {
		return fmt.Errorf("image %s: %w", id, landmark.ErrNotFound)
	}
	delete(s.images, id)
	return nil
}

// IDs returns the stored identifiers sorted.
func (s *Store) IDs() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.images))
	for id := range s.images {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Len returns the number of stored images.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.images)
}
