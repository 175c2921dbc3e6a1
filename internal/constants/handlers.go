// Package constants provides shared constants used across the codebase.
package constants

// File upload constants
const (
	// MaxUploadSize is the maximum accepted image size in bytes (5 MiB)
	MaxUploadSize = 5 << 20

	// MultipartMemory is the in-memory limit when parsing multipart forms
	MultipartMemory = 8 << 20
)

// AllowedImageExtensions lists the accepted upload extensions (lowercase, no dot).
var AllowedImageExtensions = []string{"jpg", "jpeg", "png", "bmp", "gif"}
