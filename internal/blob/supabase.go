package blob

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	storage "github.com/supabase-community/storage-go"
)

// Supabase uploads photos to a Supabase Storage bucket.
type Supabase struct {
	client *storage.Client
	bucket string
	logger *slog.Logger
}

// NewSupabase creates an uploader for the project at projectURL.
func NewSupabase(projectURL, key, bucket string, logger *slog.Logger) *Supabase {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supabase{
		client: storage.NewClient(strings.TrimSuffix(projectURL, "/")+"/storage/v1", key, nil),
		bucket: bucket,
		logger: logger.With("component", "blob"),
	}
}

// UploadPhoto uploads the photo and returns its public URL.
func (s *Supabase) UploadPhoto(ctx context.Context, userID string, r io.Reader, contentType string) (string, error) {
	path, err := ObjectPath(userID, contentType, time.Now())
	if err != nil {
		return "", err
	}

	ct := normalizeType(contentType)
	upsert := true
	options := storage.FileOptions{
		ContentType: &ct,
		Upsert:      &upsert,
	}

	if _, err := s.client.UploadFile(s.bucket, path, io.LimitReader(r, MaxPhotoSize), options); err != nil {
		s.logger.Error("photo upload failed", "user_id", userID, "path", path, "error", err)
		return "", fmt.Errorf("uploading photo: %w", err)
	}

	publicURL := s.client.GetPublicUrl(s.bucket, path)
	s.logger.Info("photo uploaded", "user_id", userID, "path", path)
	return publicURL.SignedURL, nil
}
