package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/agrox-fyp/agrox-api/models"
	"github.com/agrox-fyp/agrox-api/utils"
)

// MockImageService is an in-memory ImageService for tests
type MockImageService struct {
	uploadedImages map[string][]byte
	deleted        []string
	UploadErr      error
	mu             sync.RWMutex
}

// NewMockImageService creates a new mock image service
func NewMockImageService() *MockImageService {
	return &MockImageService{
		uploadedImages: make(map[string][]byte),
	}
}

// SetAsMockForTesting sets this mock as the global image service instance
func (m *MockImageService) SetAsMockForTesting() {
	SetImageService(m)
}

func (m *MockImageService) UploadListingImage(ctx context.Context, listingType models.ListingType, ownerID uint, encoded string) (string, error) {
	img, err := utils.DecodeBase64Image(encoded)
	if err != nil {
		return "", err
	}
	if m.UploadErr != nil {
		return "", m.UploadErr
	}

	key := ListingImageKey(listingType, ownerID, img.Extension)
	m.mu.Lock()
	m.uploadedImages[key] = img.Data
	m.mu.Unlock()
	return key, nil
}

func (m *MockImageService) GetImageURL(ctx context.Context, imageKey string) (string, error) {
	if imageKey == "" {
		return "", nil
	}

	m.mu.RLock()
	_, exists := m.uploadedImages[imageKey]
	m.mu.RUnlock()
	if !exists {
		return "", fmt.Errorf("image not found in mock storage: %s", imageKey)
	}
	return fmt.Sprintf("https://test-bucket.s3.us-east-1.amazonaws.com/%s?mock=true", imageKey), nil
}

func (m *MockImageService) DeleteImage(ctx context.Context, imageKey string) error {
	if imageKey == "" {
		return nil
	}

	m.mu.Lock()
	delete(m.uploadedImages, imageKey)
	m.deleted = append(m.deleted, imageKey)
	m.mu.Unlock()
	return nil
}

// ImageExists checks if an image exists in mock storage
func (m *MockImageService) ImageExists(imageKey string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.uploadedImages[imageKey]
	return exists
}

// ImageCount returns the number of stored images
func (m *MockImageService) ImageCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.uploadedImages)
}

// DeletedKeys returns every key passed to DeleteImage
func (m *MockImageService) DeletedKeys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.deleted...)
}
