package blob

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestObjectPath(t *testing.T) {
	now := time.Unix(0, 42)
	tests := []struct {
		contentType string
		want        string
		wantErr     bool
	}{
		{"image/jpeg", "users/u1/avatar-42.jpg", false},
		{"IMAGE/PNG; charset=binary", "users/u1/avatar-42.png", false},
		{"image/webp", "users/u1/avatar-42.webp", false},
		{"application/pdf", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ObjectPath("u1", tt.contentType, now)
		if (err != nil) != tt.wantErr {
			t.Errorf("ObjectPath(%q) error = %v, wantErr %v", tt.contentType, err, tt.wantErr)
			continue
		}
		if tt.wantErr && !errors.Is(err, ErrUnsupportedType) {
			t.Errorf("expected ErrUnsupportedType, got %v", err)
		}
		if got != tt.want {
			t.Errorf("ObjectPath(%q) = %q, want %q", tt.contentType, got, tt.want)
		}
	}
}

func TestDisabled(t *testing.T) {
	_, err := Disabled{}.UploadPhoto(context.Background(), "u1", strings.NewReader("x"), "image/png")
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("expected ErrDisabled, got %v", err)
	}
}

func TestMemoryUpload(t *testing.T) {
	m := &Memory{BaseURL: "https://cdn.test/"}

	url, err := m.UploadPhoto(context.Background(), "u1", bytes.NewReader([]byte{1, 2, 3}), "image/png")
	if err != nil {
		t.Fatalf("UploadPhoto: %v", err)
	}
	if !strings.HasPrefix(url, "https://cdn.test/users/u1/avatar-") || !strings.HasSuffix(url, ".png") {
		t.Errorf("unexpected URL %q", url)
	}
	if m.Len() != 1 {
		t.Errorf("stored objects = %d, want 1", m.Len())
	}

	big := bytes.NewReader(make([]byte, MaxPhotoSize+1))
	if _, err := m.UploadPhoto(context.Background(), "u1", big, "image/png"); err == nil {
		t.Error("expected oversized upload to fail")
	}
}
