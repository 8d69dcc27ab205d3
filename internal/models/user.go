package models

import (
	"errors"
	"slices"
	"strings"
	"time"
)

var (
	ErrUserNameRequired = errors.New("name is required")
	ErrUserNameTooLong  = errors.New("name must be 80 characters or less")
)

// User is a registered player profile.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	PhotoURL       string    `json:"photo_url,omitempty"`
	FavoriteSports []string  `json:"favorite_sports"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ValidateName validates the display name.
func (u *User) ValidateName() error {
	name := strings.TrimSpace(u.Name)
	if name == "" {
		return ErrUserNameRequired
	}
	if len(name) > 80 {
		return ErrUserNameTooLong
	}
	return nil
}

// NormalizeSports trims entries, drops blanks and removes case-insensitive duplicates,
// keeping the first spelling seen.
func NormalizeSports(sports []string) []string {
	out := make([]string, 0, len(sports))
	seen := make(map[string]struct{}, len(sports))
	for _, s := range sports {
		s = strings.TrimSpace(s)
		key := NormalizeSport(s)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.FavoriteSports = slices.Clone(u.FavoriteSports)
	return &c
}
