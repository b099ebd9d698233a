package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

var _ Storage = (*MemoryStorage)(nil)

// MemoryStorage is an in-memory Storage for tests.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]memoryObject

	// PutErr, when set, fails every Put with this error.
	PutErr error
}

type memoryObject struct {
	data        []byte
	contentType string
	cacheCtl    string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string]memoryObject)}
}

func (s *MemoryStorage) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType, cacheControl string) error {
	if s.PutErr != nil {
		return s.PutErr
	}
	if key == "" {
		return ErrInvalidKey
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; ok {
		return fmt.Errorf("put %s: %w", key, ErrAlreadyExists)
	}
	s.objects[key] = memoryObject{data: data, contentType: contentType, cacheCtl: cacheControl}
	return nil
}

func (s *MemoryStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (s *MemoryStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *MemoryStorage) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *MemoryStorage) PublicURL(key string) string {
	return "https://cdn.test/" + key
}

func (s *MemoryStorage) GetPresignedURL(ctx context.Context, key string, expirySeconds int) (string, error) {
	return s.PublicURL(key) + "?signed=1", nil
}

func (s *MemoryStorage) HealthCheck(ctx context.Context) error {
	return nil
}

// ContentType reports the stored content type for key, for assertions.
func (s *MemoryStorage) ContentType(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.objects[key].contentType
}

// CacheControl reports the stored cache header for key, for assertions.
func (s *MemoryStorage) CacheControl(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.objects[key].cacheCtl
}

// Keys lists all stored keys.
func (s *MemoryStorage) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	return keys
}
