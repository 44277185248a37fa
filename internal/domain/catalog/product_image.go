package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taic/backend/internal/domain/shared"
)

// ProductImageStatus represents the upload state of an image
type ProductImageStatus string

const (
	// ProductImageStatusPendingUpload means a presigned URL was issued but
	// the object has not been confirmed in storage yet
	ProductImageStatusPendingUpload ProductImageStatus = "pending_upload"
	// ProductImageStatusUploaded means the object is in storage and the
	// image can be served
	ProductImageStatusUploaded ProductImageStatus = "uploaded"
)

// MaxImageFileSize is the maximum image size in bytes (10MB)
const MaxImageFileSize = 10 * 1024 * 1024

// allowedImageContentTypes lists the content types accepted for listing images
var allowedImageContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// ProductImage is an image attached to a listing. Images are created in
// pending upload state and confirmed once the object lands in storage;
// only uploaded images are served on the storefront.
type ProductImage struct {
	shared.BaseEntity
	ProductID   uuid.UUID          `gorm:"type:uuid;not null;index"`
	FileName    string             `gorm:"type:varchar(255);not null"`
	ContentType string             `gorm:"type:varchar(100);not null"`
	FileSize    int64              `gorm:"not null"`
	StorageKey  string             `gorm:"type:varchar(512);not null"` // Object key in the media bucket
	AltText     string             `gorm:"type:varchar(255)"`
	Position    int                `gorm:"not null;default:0"`
	Status      ProductImageStatus `gorm:"type:varchar(20);not null;default:'pending_upload'"`
	UploadedAt  *time.Time
}

// TableName returns the table name for GORM
func (ProductImage) TableName() string {
	return "product_images"
}

// NewProductImage creates an image record in pending upload state
func NewProductImage(productID uuid.UUID, fileName, contentType string, fileSize int64, storageKey string, position int) (*ProductImage, error) {
	if fileName == "" {
		return nil, shared.NewDomainError("INVALID_FILE_NAME", "File name cannot be empty")
	}
	if len(fileName) > 255 {
		return nil, shared.NewDomainError("INVALID_FILE_NAME", "File name cannot exceed 255 characters")
	}
	if !allowedImageContentTypes[strings.ToLower(contentType)] {
		return nil, shared.NewDomainError("UNSUPPORTED_CONTENT_TYPE", "Images must be JPEG, PNG, WebP, or GIF")
	}
	if fileSize <= 0 {
		return nil, shared.NewDomainError("INVALID_FILE_SIZE", "File size must be greater than zero")
	}
	if fileSize > MaxImageFileSize {
		return nil, shared.NewDomainError("FILE_TOO_LARGE", "Images cannot exceed 10MB")
	}
	if storageKey == "" {
		return nil, shared.NewDomainError("INVALID_STORAGE_KEY", "Storage key cannot be empty")
	}

	return &ProductImage{
		BaseEntity:  shared.NewBaseEntity(),
		ProductID:   productID,
		FileName:    fileName,
		ContentType: strings.ToLower(contentType),
		FileSize:    fileSize,
		StorageKey:  storageKey,
		Position:    position,
		Status:      ProductImageStatusPendingUpload,
	}, nil
}

// MarkUploaded transitions the image to uploaded after storage confirmed the object
func (i *ProductImage) MarkUploaded() error {
	if i.Status == ProductImageStatusUploaded {
		return shared.NewDomainError("ALREADY_UPLOADED", "Image is already uploaded")
	}

	now := time.Now()
	i.Status = ProductImageStatusUploaded
	i.UploadedAt = &now
	i.UpdatedAt = now

	return nil
}

// SetAltText sets the accessibility description for the image
func (i *ProductImage) SetAltText(altText string) error {
	if len(altText) > 255 {
		return shared.NewDomainError("INVALID_ALT_TEXT", "Alt text cannot exceed 255 characters")
	}
	i.AltText = altText
	i.Touch()
	return nil
}

// IsUploaded returns true if the object is confirmed in storage
func (i *ProductImage) IsUploaded() bool {
	return i.Status == ProductImageStatusUploaded
}

// IsPendingUpload returns true if the upload has not been confirmed
func (i *ProductImage) IsPendingUpload() bool {
	return i.Status == ProductImageStatusPendingUpload
}
