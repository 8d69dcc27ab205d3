package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/narvanalabs/matchday/internal/models"
	"github.com/narvanalabs/matchday/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// UserStore implements store.UserStore using PostgreSQL.
type UserStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

func (s *UserStore) conn() queryable {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

const userColumns = `id, email, name, photo_url, favorite_sports, created_at, updated_at`

// Create creates a new user with hashed password.
func (s *UserStore) Create(ctx context.Context, email, password, name string) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:             uuid.New().String(),
		Email:          strings.ToLower(strings.TrimSpace(email)),
		Name:           strings.TrimSpace(name),
		FavoriteSports: []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	query := `
		INSERT INTO users (id, email, password_hash, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = s.conn().ExecContext(ctx, query,
		user.ID, user.Email, string(hashedPassword), user.Name, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if uniqueViolationOn(err, constraintUserEmail) {
			return nil, store.ErrEmailTaken
		}
		return nil, fmt.Errorf("inserting user: %w", err)
	}

	return user, nil
}

// Authenticate verifies credentials and returns the user.
func (s *UserStore) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	query := `SELECT ` + userColumns + `, password_hash FROM users WHERE lower(email) = $1`

	var hash string
	user, err := scanUser(s.conn().QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email))), &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, store.ErrInvalidCredentials
	}

	return user, nil
}

// GetByID retrieves a user by ID.
func (s *UserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrNotFound
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(s.conn().QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return user, nil
}

// Update updates the profile fields of a user.
func (s *UserStore) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET name = $2, photo_url = $3, favorite_sports = $4, updated_at = $5
		WHERE id = $1`

	sports := user.FavoriteSports
	if sports == nil {
		sports = []string{}
	}
	updatedAt := time.Now().UTC()

	result, err := s.conn().ExecContext(ctx, query,
		user.ID, user.Name, user.PhotoURL, pq.Array(sports), updatedAt)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrNotFound
	}

	user.UpdatedAt = updatedAt
	return nil
}

func scanUser(row rowScanner, extra ...any) (*models.User, error) {
	u := &models.User{}
	dest := []any{
		&u.ID,
		&u.Email,
		&u.Name,
		&u.PhotoURL,
		pq.Array(&u.FavoriteSports),
		&u.CreatedAt,
		&u.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if u.FavoriteSports == nil {
		u.FavoriteSports = []string{}
	}
	return u, nil
}
