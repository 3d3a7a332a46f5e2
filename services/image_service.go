package services

import (
	"context"
	"fmt"
	"log"

	"github.com/agrox-fyp/agrox-api/models"
	"github.com/agrox-fyp/agrox-api/utils"
	"github.com/google/uuid"
)

// ImageService handles listing images: upload, URL generation and deletion
type ImageService interface {
	// UploadListingImage validates a base64 image and stores it, returning the storage key
	UploadListingImage(ctx context.Context, listingType models.ListingType, ownerID uint, encoded string) (string, error)

	// GetImageURL generates a URL for accessing an uploaded image
	GetImageURL(ctx context.Context, imageKey string) (string, error)

	// DeleteImage removes an image from storage
	DeleteImage(ctx context.Context, imageKey string) error
}

// S3ImageService implements ImageService on top of S3Interface
type S3ImageService struct {
	s3Service S3Interface
}

var imageServiceInstance ImageService

// InitImageService initializes the image service with an S3 backend
func InitImageService(s3Service S3Interface) ImageService {
	imageServiceInstance = &S3ImageService{
		s3Service: s3Service,
	}
	return imageServiceInstance
}

// GetImageService returns the initialized image service instance
func GetImageService() ImageService {
	return imageServiceInstance
}

// SetImageService sets the image service instance (primarily for testing)
func SetImageService(service ImageService) {
	imageServiceInstance = service
}

// ListingImageKey builds the object key listings/<type>/<owner>/<uuid><ext>
func ListingImageKey(listingType models.ListingType, ownerID uint, ext string) string {
	return fmt.Sprintf("listings/%s/%d/%s%s", listingType, ownerID, uuid.NewString(), ext)
}

func (s *S3ImageService) UploadListingImage(ctx context.Context, listingType models.ListingType, ownerID uint, encoded string) (string, error) {
	img, err := utils.DecodeBase64Image(encoded)
	if err != nil {
		return "", err
	}

	key := ListingImageKey(listingType, ownerID, img.Extension)
	if err := s.s3Service.UploadObject(ctx, key, img.Data, img.ContentType); err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return key, nil
}

func (s *S3ImageService) GetImageURL(ctx context.Context, imageKey string) (string, error) {
	if imageKey == "" {
		return "", nil
	}

	url, err := s.s3Service.GetPresignedURL(ctx, imageKey)
	if err != nil {
		return "", fmt.Errorf("failed to generate image URL: %w", err)
	}
	return url, nil
}

func (s *S3ImageService) DeleteImage(ctx context.Context, imageKey string) error {
	if imageKey == "" {
		return nil
	}

	if err := s.s3Service.DeleteObject(ctx, imageKey); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

// ResolveImageURL returns a presigned URL for key, or nil when there is no
// key, no image service, or the URL cannot be generated.
func ResolveImageURL(ctx context.Context, key *string) *string {
	svc := GetImageService()
	if key == nil || *key == "" || svc == nil {
		return nil
	}
	url, err := svc.GetImageURL(ctx, *key)
	if err != nil {
		log.Printf("images: presign %s: %v", *key, err)
		return nil
	}
	return &url
}

// AttachImageURL fills the computed image_url of a listing from its stored key
func AttachImageURL(ctx context.Context, listing models.Listing) {
	listing.SetImageURL(ResolveImageURL(ctx, listing.StoredImageKey()))
}
