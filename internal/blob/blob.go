// Package blob stores profile photos and returns a URL they can be fetched from.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// MaxPhotoSize is the largest accepted upload in bytes.
const MaxPhotoSize = 5 << 20

var (
	// ErrDisabled is returned when no blob backend is configured.
	ErrDisabled = errors.New("photo uploads are not configured")
	// ErrUnsupportedType is returned for content types other than images.
	ErrUnsupportedType = errors.New("unsupported image type")
)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Uploader stores a profile photo for a user and returns its public URL.
type Uploader interface {
	UploadPhoto(ctx context.Context, userID string, r io.Reader, contentType string) (string, error)
}

// ObjectPath returns the bucket path of a user's photo. Each upload gets a
// fresh name so cached copies of the previous photo are not served.
func ObjectPath(userID, contentType string, now time.Time) (string, error) {
	ext, ok := extensions[normalizeType(contentType)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}
	return fmt.Sprintf("users/%s/avatar-%d%s", userID, now.UnixNano(), ext), nil
}

func normalizeType(contentType string) string {
	ct, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}

// Disabled rejects every upload.
type Disabled struct{}

// UploadPhoto always returns ErrDisabled.
func (Disabled) UploadPhoto(ctx context.Context, userID string, r io.Reader, contentType string) (string, error) {
	return "", ErrDisabled
}

// Memory keeps uploads in memory and serves them from BaseURL.
type Memory struct {
	BaseURL string

	mu      sync.Mutex
	objects map[string][]byte
}

// UploadPhoto stores the photo and returns BaseURL joined with its path.
func (m *Memory) UploadPhoto(ctx context.Context, userID string, r io.Reader, contentType string) (string, error) {
	path, err := ObjectPath(userID, contentType, time.Now())
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(io.LimitReader(r, MaxPhotoSize+1))
	if err != nil {
		return "", err
	}
	if len(data) > MaxPhotoSize {
		return "", fmt.Errorf("photo exceeds %d bytes", MaxPhotoSize)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	m.objects[path] = data
	return strings.TrimSuffix(m.BaseURL, "/") + "/" + path, nil
}

// Len returns the number of stored objects.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
