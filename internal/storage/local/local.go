package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/handcrafthq/marketplace/internal/storage"
)

// safeKeyPattern rejects keys that could escape the base directory.
var safeKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// Storage implements storage.Storage on the local filesystem. Files are
// written under a base directory and served from a base URL path.
type Storage struct {
	baseDir string
	baseURL string
}

// New creates a local storage rooted at baseDir. The directory is created
// if it does not exist.
func New(baseDir, baseURL string) (*Storage, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{
		baseDir: baseDir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Upload writes the file to disk under the given key.
func (s *Storage) Upload(_ context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	if !safeKeyPattern.MatchString(input.Key) {
		return nil, fmt.Errorf("invalid storage key: %s", input.Key)
	}

	path := filepath.Join(s.baseDir, input.Key)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create file %s: %w", input.Key, err)
	}

	if _, err := io.Copy(f, input.Data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("write file %s: %w", input.Key, err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("close file %s: %w", input.Key, err)
	}

	return &storage.UploadResult{
		Key: input.Key,
		URL: s.baseURL + "/" + input.Key,
	}, nil
}

// Delete removes the file for the given key.
func (s *Storage) Delete(_ context.Context, key string) error {
	if !safeKeyPattern.MatchString(key) {
		return fmt.Errorf("invalid storage key: %s", key)
	}

	if err := os.Remove(filepath.Join(s.baseDir, key)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", key)
		}
		return fmt.Errorf("delete file %s: %w", key, err)
	}
	return nil
}

// GetURL returns the public URL for the given key.
func (s *Storage) GetURL(_ context.Context, key string) (string, error) {
	if _, err := os.Stat(filepath.Join(s.baseDir, key)); err != nil {
		return "", fmt.Errorf("file not found: %s", key)
	}
	return s.baseURL + "/" + key, nil
}
