package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryStorage keeps objects in process. It backs tests and local runs
// without an S3 endpoint; download URLs use the mem:// scheme.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]MemoryObject
}

// MemoryObject is a stored object.
type MemoryObject struct {
	ContentType string
	Body        []byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: map[string]MemoryObject{}}
}

func (m *MemoryStorage) PutObject(_ context.Context, objectKey string, contentType string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectKey] = MemoryObject{ContentType: contentType, Body: append([]byte(nil), body...)}
	return nil
}

func (m *MemoryStorage) GeneratePresignedDownloadURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.objects[objectKey]; !ok {
		return "", ErrObjectNotFound
	}
	return "mem://" + objectKey, nil
}

func (m *MemoryStorage) DeleteObject(_ context.Context, objectKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, objectKey)
	return nil
}

// Object returns a stored object, for inspection in tests.
func (m *MemoryStorage) Object(objectKey string) (MemoryObject, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[objectKey]
	return o, ok
}
