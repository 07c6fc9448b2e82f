// Package storage keeps course media (thumbnails, videos, banners) in an
// S3 compatible bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Object is a stored file. Key is what Delete needs, URL is what clients load.
type Object struct {
	Key string
	URL string
}

// ObjectStorage is implemented by SpacesClient and MemoryStorage.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, body io.ReadSeeker, contentType string) (Object, error)
	Delete(ctx context.Context, key string) error
}

// GenerateKey builds a collision free key under prefix, keeping the extension of filename.
func GenerateKey(prefix, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("%s/%s%s", strings.Trim(prefix, "/"), uuid.NewString(), ext)
}

// GetContentType returns the content type for a filename
func GetContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".mov":
		return "video/quicktime"
	case ".mkv":
		return "video/x-matroska"
	default:
		return "application/octet-stream"
	}
}

// IsVideo reports whether filename has an accepted video extension.
func IsVideo(filename string) bool {
	return strings.HasPrefix(GetContentType(filename), "video/")
}

// MemoryStorage keeps objects in process. It backs development runs without
// Spaces credentials and the service tests.
type MemoryStorage struct {
	mu      sync.Mutex
	baseURL string
	objects map[string][]byte
}

func NewMemoryStorage(baseURL string) *MemoryStorage {
	return &MemoryStorage{baseURL: strings.TrimRight(baseURL, "/"), objects: make(map[string][]byte)}
}

func (m *MemoryStorage) Upload(_ context.Context, key string, body io.ReadSeeker, _ string) (Object, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return Object{}, err
	}
	m.mu.Lock()
	m.objects[key] = data
	m.mu.Unlock()
	return Object{Key: key, URL: m.baseURL + "/" + key}, nil
}

func (m *MemoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// Has reports whether key is stored.
func (m *MemoryStorage) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

// Len is the number of stored objects.
func (m *MemoryStorage) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// IsImage reports whether filename has an accepted image extension.
func IsImage(filename string) bool {
	return strings.HasPrefix(GetContentType(filename), "image/")
}
