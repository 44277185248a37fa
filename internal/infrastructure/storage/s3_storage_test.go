package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/taic/backend/internal/infrastructure/config"
)

func validStorageConfig() *config.StorageConfig {
	return &config.StorageConfig{
		Bucket:            "product-images",
		AccessKey:         "test-key",
		SecretKey:         "test-secret",
		Endpoint:          "http://localhost:9000",
		UsePathStyle:      true,
		PresignExpiration: 15 * time.Minute,
	}
}

func TestNewS3ObjectStorageValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.StorageConfig)
		wantErr string
	}{
		{"missing bucket", func(c *config.StorageConfig) { c.Bucket = "" }, "bucket is required"},
		{"missing access key", func(c *config.StorageConfig) { c.AccessKey = "" }, "access key is required"},
		{"missing secret key", func(c *config.StorageConfig) { c.SecretKey = "" }, "secret key is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validStorageConfig()
			tt.mutate(cfg)
			_, err := NewS3ObjectStorage(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("nil config", func(t *testing.T) {
		_, err := NewS3ObjectStorage(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("valid config", func(t *testing.T) {
		store, err := NewS3ObjectStorage(validStorageConfig())
		require.NoError(t, err)
		assert.Equal(t, "product-images", store.bucket)
		assert.Equal(t, 15*time.Minute, store.presignExpiration)
	})

	t.Run("zero presign expiration falls back to default", func(t *testing.T) {
		cfg := validStorageConfig()
		cfg.PresignExpiration = 0
		store, err := NewS3ObjectStorage(cfg)
		require.NoError(t, err)
		assert.Equal(t, defaultPresignExpiration, store.presignExpiration)
	})
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		useSSL   bool
		want     string
	}{
		{"empty uses local default", "", false, "http://localhost:9000"},
		{"bare host gets http", "minio.internal:9000", false, "http://minio.internal:9000"},
		{"bare host gets https with SSL", "s3.amazonaws.com", true, "https://s3.amazonaws.com"},
		{"explicit scheme kept", "https://storage.taic.io", false, "https://storage.taic.io"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeEndpoint(tt.endpoint, tt.useSSL)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestS3StorageOptions(t *testing.T) {
	store, err := NewS3ObjectStorage(validStorageConfig(),
		WithLogger(zaptest.NewLogger(t)),
		WithPresignExpiration(time.Hour),
	)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, store.presignExpiration)
	assert.NotNil(t, store.logger)
}

func TestS3StorageUploadURL(t *testing.T) {
	store, err := NewS3ObjectStorage(validStorageConfig())
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("presigns a PUT against the configured bucket", func(t *testing.T) {
		url, expiresAt, err := store.GenerateUploadURL(ctx, "products/42/main.jpg", "image/jpeg", 15*time.Minute)
		require.NoError(t, err)
		assert.Contains(t, url, "localhost:9000")
		assert.Contains(t, url, "product-images")
		assert.True(t, strings.Contains(url, "products/42/main.jpg") || strings.Contains(url, "products%2F42%2Fmain.jpg"))
		assert.True(t, expiresAt.After(time.Now()))
		assert.True(t, expiresAt.Before(time.Now().Add(16*time.Minute)))
	})

	t.Run("non-positive expiry uses the default", func(t *testing.T) {
		url, expiresAt, err := store.GenerateUploadURL(ctx, "products/42/main.jpg", "image/jpeg", 0)
		require.NoError(t, err)
		assert.NotEmpty(t, url)
		assert.True(t, expiresAt.After(time.Now()))
	})

	t.Run("empty key rejected", func(t *testing.T) {
		_, _, err := store.GenerateUploadURL(ctx, "", "image/jpeg", 15*time.Minute)
		assert.ErrorIs(t, err, errStorageKeyRequired)
	})
}

func TestS3StorageDownloadURL(t *testing.T) {
	store, err := NewS3ObjectStorage(validStorageConfig())
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("presigns a GET against the configured bucket", func(t *testing.T) {
		url, expiresAt, err := store.GenerateDownloadURL(ctx, "products/42/main.jpg", time.Hour)
		require.NoError(t, err)
		assert.Contains(t, url, "localhost:9000")
		assert.Contains(t, url, "product-images")
		assert.True(t, expiresAt.After(time.Now()))
	})

	t.Run("empty key rejected", func(t *testing.T) {
		_, _, err := store.GenerateDownloadURL(ctx, "", time.Hour)
		assert.ErrorIs(t, err, errStorageKeyRequired)
	})
}

func TestS3StorageEmptyKeyRejected(t *testing.T) {
	store, err := NewS3ObjectStorage(validStorageConfig())
	require.NoError(t, err)
	ctx := context.Background()

	assert.ErrorIs(t, store.DeleteObject(ctx, ""), errStorageKeyRequired)

	exists, err := store.ObjectExists(ctx, "")
	assert.ErrorIs(t, err, errStorageKeyRequired)
	assert.False(t, exists)
}
