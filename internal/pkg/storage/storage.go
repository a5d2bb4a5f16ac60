package storage

import (
	"context"
	"io"
)

// FileStorage persists capture proof photos.
type FileStorage interface {
	// Upload writes a file and returns the stored path.
	Upload(ctx context.Context, file io.Reader, path string, contentType string) (string, error)

	// Delete removes a file. Deleting a missing file is not an error.
	Delete(ctx context.Context, path string) error

	// URL returns the public URL for a stored path.
	URL(path string) string

	// Exists reports whether a file is present.
	Exists(ctx context.Context, path string) (bool, error)
}
