package memory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/narvanalabs/matchday/internal/models"
	"github.com/narvanalabs/matchday/internal/store"
	"golang.org/x/crypto/bcrypt"
)

type userStore struct {
	s *Store
}

func (u *userStore) Create(ctx context.Context, email, password, name string) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), u.s.cost)
	if err != nil {
		return nil, err
	}

	u.s.lock()
	defer u.s.unlock()

	key := strings.ToLower(strings.TrimSpace(email))
	if _, exists := u.s.st.usersByEmail[key]; exists {
		return nil, store.ErrEmailTaken
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:             uuid.New().String(),
		Email:          key,
		Name:           strings.TrimSpace(name),
		FavoriteSports: []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	u.s.st.users[user.ID] = userRecord{user: user.Clone(), passwordHash: hashedPassword}
	u.s.st.usersByEmail[key] = user.ID
	return user, nil
}

func (u *userStore) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u.s.lock()
	id, ok := u.s.st.usersByEmail[strings.ToLower(strings.TrimSpace(email))]
	rec := u.s.st.users[id]
	u.s.unlock()

	if !ok {
		return nil, store.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(rec.passwordHash, []byte(password)); err != nil {
		return nil, store.ErrInvalidCredentials
	}
	return rec.user.Clone(), nil
}

func (u *userStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	u.s.lock()
	defer u.s.unlock()

	rec, ok := u.s.st.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return rec.user.Clone(), nil
}

func (u *userStore) Update(ctx context.Context, user *models.User) error {
	u.s.lock()
	defer u.s.unlock()

	rec, ok := u.s.st.users[user.ID]
	if !ok {
		return store.ErrNotFound
	}

	updated := rec.user.Clone()
	updated.Name = user.Name
	updated.PhotoURL = user.PhotoURL
	updated.FavoriteSports = append([]string(nil), user.FavoriteSports...)
	updated.UpdatedAt = time.Now().UTC()
	user.UpdatedAt = updated.UpdatedAt

	u.s.st.users[user.ID] = userRecord{user: updated, passwordHash: rec.passwordHash}
	return nil
}
