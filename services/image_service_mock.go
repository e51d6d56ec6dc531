package services

import (
	"context"
	"mime/multipart"
	"sync"

	"github.com/stickerhub/sticker-shop-api/utils"
)

// MockImageService is an in-memory ImageService for tests. Keys are
// predictable (stickers/mock_<filename>) and URLs point at MockBucketURL.
type MockImageService struct {
	mu     sync.RWMutex
	images map[string]int64 // key -> uploaded size
	// UploadErr makes every upload fail with a storage error
	UploadErr error
}

// NewMockImageService creates an empty mock image service
func NewMockImageService() *MockImageService {
	return &MockImageService{images: make(map[string]int64)}
}

// UploadImage validates the file like the real services and records it
func (m *MockImageService) UploadImage(_ context.Context, fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}
	if m.UploadErr != nil {
		return "", m.UploadErr
	}

	key := stickerKeyPrefix + "mock_" + fileHeader.Filename
	m.mu.Lock()
	m.images[key] = fileHeader.Size
	m.mu.Unlock()
	return key, nil
}

// GetImageURL returns a fake bucket URL. Unknown keys still get one, since
// fixtures reference images that were never uploaded.
func (m *MockImageService) GetImageURL(_ context.Context, imageKey string) (string, error) {
	if imageKey == "" {
		return "", nil
	}
	return MockBucketURL + imageKey + "?mock=true", nil
}

// DeleteImage forgets an image
func (m *MockImageService) DeleteImage(_ context.Context, imageKey string) error {
	m.mu.Lock()
	delete(m.images, imageKey)
	m.mu.Unlock()
	return nil
}

// ImageExists reports whether an image is currently stored
func (m *MockImageService) ImageExists(imageKey string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.images[imageKey]
	return ok
}
