package storage

import (
	"context"
	"time"

	catalogapp "github.com/taic/backend/internal/application/catalog"
)

// StubObjectStorage stands in for a real backend when no bucket is
// configured. URLs point at a placeholder host and every object is
// reported as existing so the image confirmation flow still works in
// local development.
type StubObjectStorage struct {
	BaseURL string
}

var _ catalogapp.ObjectStorageService = (*StubObjectStorage)(nil)

func NewStubObjectStorage() *StubObjectStorage {
	return &StubObjectStorage{BaseURL: "https://storage.example.com"}
}

func (s *StubObjectStorage) stubURL(op, storageKey string, expiresAt time.Time) string {
	return s.BaseURL + "/" + op + "/" + storageKey + "?expires=" + expiresAt.Format(time.RFC3339)
}

func (s *StubObjectStorage) GenerateUploadURL(
	_ context.Context,
	storageKey, _ string,
	expiresIn time.Duration,
) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errStorageKeyRequired
	}
	expiresAt := time.Now().Add(expiresIn)
	return s.stubURL("upload", storageKey, expiresAt), expiresAt, nil
}

func (s *StubObjectStorage) GenerateDownloadURL(
	_ context.Context,
	storageKey string,
	expiresIn time.Duration,
) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errStorageKeyRequired
	}
	expiresAt := time.Now().Add(expiresIn)
	return s.stubURL("download", storageKey, expiresAt), expiresAt, nil
}

func (s *StubObjectStorage) DeleteObject(_ context.Context, storageKey string) error {
	if storageKey == "" {
		return errStorageKeyRequired
	}
	return nil
}

func (s *StubObjectStorage) ObjectExists(_ context.Context, storageKey string) (bool, error) {
	if storageKey == "" {
		return false, errStorageKeyRequired
	}
	return true, nil
}
