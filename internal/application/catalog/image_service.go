package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taic/backend/internal/domain/catalog"
	"github.com/taic/backend/internal/domain/shared"
)

// ObjectStorageService abstracts presigned URL generation and object
// management for the media bucket
type ObjectStorageService interface {
	// GenerateUploadURL generates a presigned URL for uploading an object
	GenerateUploadURL(ctx context.Context, storageKey string, contentType string, expiresIn time.Duration) (string, time.Time, error)

	// GenerateDownloadURL generates a presigned URL for downloading an object
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)

	// DeleteObject deletes an object from storage
	DeleteObject(ctx context.Context, storageKey string) error

	// ObjectExists checks if an object exists in storage
	ObjectExists(ctx context.Context, storageKey string) (bool, error)
}

// ImageServiceConfig holds configuration for the image upload flow
type ImageServiceConfig struct {
	UploadURLExpiry   time.Duration
	DownloadURLExpiry time.Duration
}

// DefaultImageServiceConfig returns the default image service configuration
func DefaultImageServiceConfig() ImageServiceConfig {
	return ImageServiceConfig{
		UploadURLExpiry:   15 * time.Minute,
		DownloadURLExpiry: 1 * time.Hour,
	}
}

// ImageService handles the listing image upload lifecycle. Clients upload
// directly to object storage with presigned URLs; the image record tracks
// the upload from pending to confirmed.
type ImageService struct {
	productRepo    catalog.ProductRepository
	storageService ObjectStorageService
	eventPublisher shared.EventPublisher
	config         ImageServiceConfig
	logger         *zap.Logger
}

// NewImageService creates a new ImageService
func NewImageService(
	productRepo catalog.ProductRepository,
	storageService ObjectStorageService,
	config ImageServiceConfig,
	logger *zap.Logger,
) *ImageService {
	return &ImageService{
		productRepo:    productRepo,
		storageService: storageService,
		config:         config,
		logger:         logger,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *ImageService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// RequestUpload registers a pending image on the listing and returns a
// presigned PUT URL. The image is not served until the upload is confirmed.
func (s *ImageService) RequestUpload(ctx context.Context, merchantID, productID uuid.UUID, req RequestImageUploadRequest) (*ImageUploadResponse, error) {
	product, err := s.productRepo.FindByIDForMerchant(ctx, merchantID, productID)
	if err != nil {
		return nil, err
	}

	storageKey := s.generateStorageKey(merchantID, productID, req.FileName)

	image, err := product.AddImage(req.FileName, req.ContentType, req.FileSize, storageKey)
	if err != nil {
		return nil, err
	}

	if req.AltText != "" {
		if err := image.SetAltText(req.AltText); err != nil {
			return nil, err
		}
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	uploadURL, expiresAt, err := s.storageService.GenerateUploadURL(ctx, storageKey, req.ContentType, s.config.UploadURLExpiry)
	if err != nil {
		// Roll back the pending record so a retry can start clean
		if removeErr := product.RemoveImage(image.ID); removeErr == nil {
			if saveErr := s.productRepo.Save(ctx, product); saveErr != nil {
				s.logger.Warn("Failed to remove pending image after upload URL failure",
					zap.String("image_id", image.ID.String()),
					zap.Error(saveErr))
			}
		}
		return nil, shared.NewDomainError("UPLOAD_URL_FAILED", "Failed to generate upload URL")
	}

	s.publishEvents(ctx, product)

	return &ImageUploadResponse{
		ImageID:    image.ID,
		UploadURL:  uploadURL,
		StorageKey: storageKey,
		ExpiresAt:  expiresAt,
	}, nil
}

// ConfirmUpload verifies the object landed in storage and marks the image
// as uploaded so it can be served on the storefront
func (s *ImageService) ConfirmUpload(ctx context.Context, merchantID, productID, imageID uuid.UUID) (*ProductImageResponse, error) {
	product, err := s.productRepo.FindByIDForMerchant(ctx, merchantID, productID)
	if err != nil {
		return nil, err
	}

	image := findImage(product, imageID)
	if image == nil {
		return nil, shared.NewDomainError("IMAGE_NOT_FOUND", "Image not found")
	}

	exists, err := s.storageService.ObjectExists(ctx, image.StorageKey)
	if err != nil {
		return nil, shared.NewDomainError("STORAGE_CHECK_FAILED", "Failed to verify upload")
	}
	if !exists {
		return nil, shared.NewDomainError("UPLOAD_NOT_FOUND", "File not found in storage. Please upload the file first.")
	}

	if err := product.ConfirmImage(imageID); err != nil {
		return nil, err
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, product)

	response := ToProductImageResponse(image)
	if url, _, err := s.storageService.GenerateDownloadURL(ctx, image.StorageKey, s.config.DownloadURLExpiry); err == nil {
		response.URL = url
	}

	return &response, nil
}

// GetDownloadURL returns a temporary download URL for an uploaded image
func (s *ImageService) GetDownloadURL(ctx context.Context, merchantID, productID, imageID uuid.UUID) (*ImageURLResponse, error) {
	product, err := s.productRepo.FindByIDForMerchant(ctx, merchantID, productID)
	if err != nil {
		return nil, err
	}

	image := findImage(product, imageID)
	if image == nil {
		return nil, shared.NewDomainError("IMAGE_NOT_FOUND", "Image not found")
	}
	if !image.IsUploaded() {
		return nil, shared.NewDomainError("IMAGE_NOT_UPLOADED", "Image upload has not been confirmed")
	}

	url, expiresAt, err := s.storageService.GenerateDownloadURL(ctx, image.StorageKey, s.config.DownloadURLExpiry)
	if err != nil {
		return nil, shared.NewDomainError("DOWNLOAD_URL_FAILED", "Failed to generate download URL")
	}

	return &ImageURLResponse{URL: url, ExpiresAt: expiresAt}, nil
}

// Delete removes an image from the listing and deletes the stored object.
// Storage deletion is best effort; the record is removed regardless.
func (s *ImageService) Delete(ctx context.Context, merchantID, productID, imageID uuid.UUID) error {
	product, err := s.productRepo.FindByIDForMerchant(ctx, merchantID, productID)
	if err != nil {
		return err
	}

	image := findImage(product, imageID)
	if image == nil {
		return shared.NewDomainError("IMAGE_NOT_FOUND", "Image not found")
	}
	storageKey := image.StorageKey

	if err := product.RemoveImage(imageID); err != nil {
		return err
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return err
	}

	if err := s.storageService.DeleteObject(ctx, storageKey); err != nil {
		s.logger.Warn("Failed to delete image object from storage",
			zap.String("storage_key", storageKey),
			zap.Error(err))
	}

	s.publishEvents(ctx, product)

	return nil
}

// generateStorageKey builds the object key for a new image upload.
// Keys are namespaced by merchant and listing; a random UUID prevents
// collisions and key guessing.
func (s *ImageService) generateStorageKey(merchantID, productID uuid.UUID, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	return fmt.Sprintf("merchants/%s/products/%s/images/%s%s", merchantID, productID, uuid.New(), ext)
}

// publishEvents publishes the listing's domain events
func (s *ImageService) publishEvents(ctx context.Context, product *catalog.Product) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range product.GetDomainEvents() {
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish product event",
				zap.String("event_type", event.EventType()),
				zap.Error(err))
		}
	}
	product.ClearDomainEvents()
}

// findImage locates an image on the listing by ID
func findImage(product *catalog.Product, imageID uuid.UUID) *catalog.ProductImage {
	for i := range product.Images {
		if product.Images[i].ID == imageID {
			return &product.Images[i]
		}
	}
	return nil
}
