package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/handcrafthq/marketplace/internal/storage"
)

type fileEntry struct {
	key         string
	contentType string
	size        int64
	url         string
}

// Storage implements storage.Storage using an in-memory map. It stores
// metadata only, which is enough for tests and local development.
type Storage struct {
	mu      sync.RWMutex
	files   map[string]*fileEntry
	baseURL string
}

// New creates a new in-memory storage instance.
func New(baseURL string) *Storage {
	return &Storage{
		files:   make(map[string]*fileEntry),
		baseURL: baseURL,
	}
}

// Upload stores file metadata in memory and returns the generated URL.
func (s *Storage) Upload(_ context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	url := fmt.Sprintf("%s/%s", s.baseURL, input.Key)

	s.files[input.Key] = &fileEntry{
		key:         input.Key,
		contentType: input.ContentType,
		size:        input.Size,
		url:         url,
	}

	return &storage.UploadResult{Key: input.Key, URL: url}, nil
}

// Delete removes file metadata from memory.
func (s *Storage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[key]; !ok {
		return fmt.Errorf("file not found: %s", key)
	}
	delete(s.files, key)
	return nil
}

// GetURL returns the URL for the given key.
func (s *Storage) GetURL(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.files[key]
	if !ok {
		return "", fmt.Errorf("file not found: %s", key)
	}
	return entry.url, nil
}

// Len reports the number of stored files.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}
