package services

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// MockBucketURL is the base of the URLs MockObjectStore presigns
const MockBucketURL = "https://test-bucket.s3.eu-west-1.amazonaws.com/"

type storedObject struct {
	contentType string
	data        []byte
}

// MockObjectStore is an in-memory ObjectStore for tests
type MockObjectStore struct {
	mu      sync.RWMutex
	objects map[string]storedObject
	PutErr  error
}

// NewMockObjectStore creates an empty bucket
func NewMockObjectStore() *MockObjectStore {
	return &MockObjectStore{objects: make(map[string]storedObject)}
}

// Put stores body under key
func (m *MockObjectStore) Put(_ context.Context, key, contentType string, body io.Reader, _ int64) error {
	if m.PutErr != nil {
		return m.PutErr
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("failed to read object body: %w", err)
	}

	m.mu.Lock()
	m.objects[key] = storedObject{contentType: contentType, data: data}
	m.mu.Unlock()
	return nil
}

// PresignGet returns a fake presigned URL for a stored key
func (m *MockObjectStore) PresignGet(_ context.Context, key string) (string, error) {
	if !m.Has(key) {
		return "", fmt.Errorf("no object %s in mock bucket", key)
	}
	return MockBucketURL + key + "?X-Amz-Expires=3600", nil
}

// Delete removes key
func (m *MockObjectStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// Has reports whether key is stored
func (m *MockObjectStore) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok
}

// ContentType returns the content type key was stored with
func (m *MockObjectStore) ContentType(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.objects[key].contentType
}

// Len returns the number of stored objects
func (m *MockObjectStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
