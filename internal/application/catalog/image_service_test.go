package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taic/backend/internal/domain/catalog"
	"github.com/taic/backend/internal/domain/shared"
)

// MockObjectStorageService is a mock implementation of ObjectStorageService
type MockObjectStorageService struct {
	mock.Mock
}

func (m *MockObjectStorageService) GenerateUploadURL(ctx context.Context, storageKey string, contentType string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, storageKey, contentType, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockObjectStorageService) GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, storageKey, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockObjectStorageService) DeleteObject(ctx context.Context, storageKey string) error {
	args := m.Called(ctx, storageKey)
	return args.Error(0)
}

func (m *MockObjectStorageService) ObjectExists(ctx context.Context, storageKey string) (bool, error) {
	args := m.Called(ctx, storageKey)
	return args.Bool(0), args.Error(1)
}

func newImageService() (*ImageService, *MockProductRepository, *MockObjectStorageService) {
	productRepo := new(MockProductRepository)
	storage := new(MockObjectStorageService)
	service := NewImageService(productRepo, storage, DefaultImageServiceConfig(), zap.NewNop())
	return service, productRepo, storage
}

func addPendingImage(t *testing.T, product *catalog.Product) *catalog.ProductImage {
	t.Helper()
	image, err := product.AddImage("photo.png", "image/png", 4096, fmt.Sprintf("merchants/m/products/%s/images/%s.png", product.ID, uuid.New()))
	require.NoError(t, err)
	product.ClearDomainEvents()
	return image
}

// ============================================================================
// RequestUpload
// ============================================================================

func TestImageService_RequestUpload_Success(t *testing.T) {
	ctx := context.Background()
	service, productRepo, storage := newImageService()
	merchantID := uuid.New()

	product := createDraftProduct(t, merchantID)
	keyPrefix := fmt.Sprintf("merchants/%s/products/%s/images/", merchantID, product.ID)
	expiresAt := time.Now().Add(15 * time.Minute)

	productRepo.On("FindByIDForMerchant", ctx, merchantID, product.ID).Return(product, nil)
	productRepo.On("Save", ctx, product).Return(nil)
	storage.On("GenerateUploadURL", ctx, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, keyPrefix) && strings.HasSuffix(key, ".jpg")
	}), "image/jpeg", 15*time.Minute).Return("https://media.example.test/put", expiresAt, nil)

	resp, err := service.RequestUpload(ctx, merchantID, product.ID, RequestImageUploadRequest{
		FileName:    "Backpack.JPG",
		ContentType: "image/jpeg",
		FileSize:    2048,
		AltText:     "Front view",
	})

	require.NoError(t, err)
	assert.Equal(t, "https://media.example.test/put", resp.UploadURL)
	assert.Equal(t, expiresAt, resp.ExpiresAt)
	assert.True(t, strings.HasPrefix(resp.StorageKey, keyPrefix))

	require.Len(t, product.Images, 1)
	assert.Equal(t, resp.ImageID, product.Images[0].ID)
	assert.True(t, product.Images[0].IsPendingUpload())
	assert.Equal(t, "Front view", product.Images[0].AltText)
}

func TestImageService_RequestUpload_UnsupportedContentType(t *testing.T) {
	ctx := context.Background()
	service, productRepo, _ := newImageService()
	merchantID := uuid.New()

	product := createDraftProduct(t, merchantID)
	productRepo.On("FindByIDForMerchant", ctx, merchantID, product.ID).Return(product, nil)

	_, err := service.RequestUpload(ctx, merchantID, product.ID, RequestImageUploadRequest{
		FileName:    "diagram.svg",
		ContentType: "image/svg+xml",
		FileSize:    2048,
	})

	assertDomainErrorCode(t, err, "UNSUPPORTED_CONTENT_TYPE")
	productRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestImageService_RequestUpload_FileTooLarge(t *testing.T) {
	ctx := context.Background()
	service, productRepo, _ := newImageService()
	merchantID := uuid.New()

	product := createDraftProduct(t, merchantID)
	productRepo.On("FindByIDForMerchant", ctx, merchantID, product.ID).Return(product, nil)

	_, err := service.RequestUpload(ctx, merchantID, product.ID, RequestImageUploadRequest{
		FileName:    "huge.jpg",
		ContentType: "image/jpeg",
		FileSize:    catalog.MaxImageFileSize + 1,
	})

	assertDomainErrorCode(t, err, "FILE_TOO_LARGE")
}

func TestImageService_RequestUpload_MaxImagesExceeded(t *testing.T) {
	ctx := context.Background()
	service, productRepo, _ := newImageService()
	merchantID := uuid.New()

	product := createDraftProduct(t, merchantID)
	for i := 0; i < catalog.MaxProductImages; i++ {
		addPendingImage(t, product)
	}
	productRepo.On("FindByIDForMerchant", ctx, merchantID, product.ID).Return(product, nil)

	_, err := service.RequestUpload(ctx, merchantID, product.ID, RequestImageUploadRequest{
		FileName:    "one-too-many.jpg",
		ContentType: "image/jpeg",
		FileSize:    2048,
	})

	assertDomainErrorCode(t, err, "MAX_IMAGES_EXCEEDED")
}

func TestImageService_RequestUpload_URLFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	service, productRepo, storage := newImageService()
	merchantID := uuid.New()

	product := createDraftProduct(t, merchantID)
	productRepo.On("FindByIDForMerchant", ctx, merchantID, product.ID).Return(product, nil)
	productRepo.On("Save", ctx, product).Return(nil).Twice()
	storage.On("GenerateUploadURL", ctx, mock.Anything, mock.Anything, mock.Anything).
		Return("", time.Time{}, errors.New("s3 unavailable"))

	_, err := service.RequestUpload(ctx, merchantID, product.ID, RequestImageUploadRequest{
		FileName:    "photo.jpg",
		ContentType: "image/jpeg",
		FileSize:    2048,
	})

	assertDomainErrorCode(t, err, "UPLOAD_URL_FAILED")
	assert.Empty(t, product.Images)
	productRepo.AssertExpectations(t)
}

// ============================================================================
// ConfirmUpload
// ============================================================================

func TestImageService_ConfirmUpload_Success(t *testing.T) {
	ctx := context.Background()
	service, productRepo, storage := newImageService()
	merchantID := uuid.New()

	product := createDraftProduct(t, merchantID)
	image := addPendingImage(t, product)

	productRepo.On("FindByIDForMerchant", ctx, merchantID, product.ID).Return(product, nil)
	storage.On("ObjectExists", ctx, image.StorageKey).Return(true, nil)
	productRepo.On("Save", ctx, product).Return(nil)
	storage.On("GenerateDownloadURL", ctx, image.StorageKey, 1*time.Hour).
		Return("https://media.example.test/"+image.StorageKey, time.Now().Add(1*time.Hour), nil)

	resp, err := service.ConfirmUpload(ctx, merchantID, product.ID, image.ID)

	require.NoError(t, err)
	assert.Equal(t, "uploaded", resp.Status)
	assert.NotEmpty(t, resp.URL)
	assert.True(t, product.Images[0].IsUploaded())
}

func TestImageService_ConfirmUpload_ObjectMissing(t *testing.T) {
	ctx := context.Background()
	service, productRepo, storage := newImageService()
	merchantID := uuid.New()

	product := createDraftProduct(t, merchantID)
	image := addPendingImage(t, product)

	productRepo.On("FindByIDForMerchant", ctx, merchantID, product.ID).Return(product, nil)
	storage.On("ObjectExists", ctx, image.StorageKey).Return(false, nil)

	_, err := service.ConfirmUpload(ctx, merchantID, product.ID, image.ID)

	assertDomainErrorCode(t, err, "UPLOAD_NOT_FOUND")
	assert.True(t, product.Images[0].IsPendingUpload())
	productRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestImageService_ConfirmUpload_ImageNotFound(t *testing.T) {
	ctx := context.Background()
	service, productRepo, _ := newImageService()
	merchantID := uuid.New()

	product := createDraftProduct(t, merchantID)
	productRepo.On("FindByIDForMerchant", ctx, merchantID, product.ID).Return(product, nil)

	_, err := service.ConfirmUpload(ctx, merchantID, product.ID, uuid.New())

	assertDomainErrorCode(t, err, "IMAGE_NOT_FOUND")
}

func TestImageService_ConfirmUpload_StorageCheckFails(t *testing.T) {
	ctx := context.Background()
	service, productRepo, storage := newImageService()
	merchantID := uuid.New()

	product := createDraftProduct(t, merchantID)
	image := addPendingImage(t, product)

	productRepo.On("FindByIDForMerchant", ctx, merchantID, product.ID).Return(product, nil)
	storage.On("ObjectExists", ctx, image.StorageKey).Return(false, errors.New("s3 timeout"))

	_, err := service.ConfirmUpload(ctx, merchantID, product.ID, image.ID)

	assertDomainErrorCode(t, err, "STORAGE_CHECK_FAILED")
}

// ============================================================================
// GetDownloadURL
// ============================================================================

func TestImageService_GetDownloadURL_Success(t *testing.T) {
	ctx := context.Background()
	service, productRepo, storage := newImageService()
	merchantID := uuid.New()

	product := createDraftProduct(t, merchantID)
	image := addPendingImage(t, product)
	require.NoError(t, product.ConfirmImage(image.ID))
	product.ClearDomainEvents()

	expiresAt := time.Now().Add(1 * time.Hour)
	productRepo.On("FindByIDForMerchant", ctx, merchantID, product.ID).Return(product, nil)
	storage.On("GenerateDownloadURL", ctx, image.StorageKey, 1*time.Hour).
		Return("https://media.example.test/get", expiresAt, nil)

	resp, err := service.GetDownloadURL(ctx, merchantID, product.ID, image.ID)

	require.NoError(t, err)
	assert.Equal(t, "https://media.example.test/get", resp.URL)
	assert.Equal(t, expiresAt, resp.ExpiresAt)
}

func TestImageService_GetDownloadURL_PendingRejected(t *testing.T) {
	ctx := context.Background()
	service, productRepo, _ := newImageService()
	merchantID := uuid.New()

	product := createDraftProduct(t, merchantID)
	image := addPendingImage(t, product)

	productRepo.On("FindByIDForMerchant", ctx, merchantID, product.ID).Return(product, nil)

	_, err := service.GetDownloadURL(ctx, merchantID, product.ID, image.ID)

	assertDomainErrorCode(t, err, "IMAGE_NOT_UPLOADED")
}

// ============================================================================
// Delete
// ============================================================================

func TestImageService_Delete_Success(t *testing.T) {
	ctx := context.Background()
	service, productRepo, storage := newImageService()
	merchantID := uuid.New()

	product := createDraftProduct(t, merchantID)
	image := addPendingImage(t, product)
	storageKey := image.StorageKey

	productRepo.On("FindByIDForMerchant", ctx, merchantID, product.ID).Return(product, nil)
	productRepo.On("Save", ctx, product).Return(nil)
	storage.On("DeleteObject", ctx, storageKey).Return(nil)

	err := service.Delete(ctx, merchantID, product.ID, image.ID)

	require.NoError(t, err)
	assert.Empty(t, product.Images)
	storage.AssertExpectations(t)
}

func TestImageService_Delete_StorageFailureStillRemoves(t *testing.T) {
	ctx := context.Background()
	service, productRepo, storage := newImageService()
	merchantID := uuid.New()

	product := createDraftProduct(t, merchantID)
	image := addPendingImage(t, product)

	productRepo.On("FindByIDForMerchant", ctx, merchantID, product.ID).Return(product, nil)
	productRepo.On("Save", ctx, product).Return(nil)
	storage.On("DeleteObject", ctx, image.StorageKey).Return(errors.New("s3 unavailable"))

	err := service.Delete(ctx, merchantID, product.ID, image.ID)

	require.NoError(t, err)
	assert.Empty(t, product.Images)
}

func TestImageService_Delete_ImageNotFound(t *testing.T) {
	ctx := context.Background()
	service, productRepo, _ := newImageService()
	merchantID := uuid.New()

	product := createDraftProduct(t, merchantID)
	productRepo.On("FindByIDForMerchant", ctx, merchantID, product.ID).Return(product, nil)

	err := service.Delete(ctx, merchantID, product.ID, uuid.New())

	assertDomainErrorCode(t, err, "IMAGE_NOT_FOUND")
	productRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}
