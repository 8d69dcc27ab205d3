// Package store provides database access interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/narvanalabs/matchday/internal/models"
)

// Common store errors.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrConcurrentModification is returned when an optimistic locking conflict is detected.
	// This occurs when the version field doesn't match during an update operation,
	// or when a join request is no longer pending.
	ErrConcurrentModification = errors.New("resource was modified by another request")

	// ErrDuplicatePending is returned when a respondent already has a pending request
	// for the same activity.
	ErrDuplicatePending = errors.New("pending join request already exists")

	// ErrEmailTaken is returned when registering an email that already has an account.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned when authentication fails.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// ActivityFilter narrows the list of open activities.
type ActivityFilter struct {
	// Sport matches case-insensitively when set.
	Sport string
	// Location matches as a case-insensitive substring when set.
	Location string
}

// ActivityStore defines operations for activity management.
type ActivityStore interface {
	// Create stores a new activity.
	Create(ctx context.Context, activity *models.Activity) error
	// Get retrieves an activity by ID. Returns ErrNotFound if missing.
	Get(ctx context.Context, id string) (*models.Activity, error)
	// Update writes status and participants with optimistic locking.
	// Returns ErrConcurrentModification if the version doesn't match.
	Update(ctx context.Context, activity *models.Activity) error
	// ListOpen retrieves open activities ordered by scheduled time.
	ListOpen(ctx context.Context, filter ActivityFilter) ([]*models.Activity, error)
	// ListByOrganizer retrieves activities organized by a user.
	ListByOrganizer(ctx context.Context, userID string) ([]*models.Activity, error)
	// ListByParticipant retrieves activities whose participant set contains the user,
	// optionally restricted to the given statuses.
	ListByParticipant(ctx context.Context, userID string, statuses ...models.ActivityStatus) ([]*models.Activity, error)
}

// JoinRequestStore defines operations for join requests.
type JoinRequestStore interface {
	// Create stores a new request. Returns ErrDuplicatePending if the respondent
	// already has a pending request for the activity.
	Create(ctx context.Context, request *models.JoinRequest) error
	// Get retrieves a request by ID. Returns ErrNotFound if missing.
	Get(ctx context.Context, id string) (*models.JoinRequest, error)
	// ListByActivity retrieves all requests for an activity in arrival order.
	ListByActivity(ctx context.Context, activityID string) ([]*models.JoinRequest, error)
	// ListAccepted retrieves accepted requests for an activity in acceptance order.
	ListAccepted(ctx context.Context, activityID string) ([]*models.JoinRequest, error)
	// HasPending reports whether the respondent has a pending request for the activity.
	HasPending(ctx context.Context, activityID, respondentID string) (bool, error)
	// Decide records the decision on a pending request.
	// Returns ErrConcurrentModification if the request is no longer pending.
	Decide(ctx context.Context, request *models.JoinRequest) error
}

// MessageStore defines operations for group chat messages.
type MessageStore interface {
	// Create appends a message.
	Create(ctx context.Context, message *models.ChatMessage) error
	// ListByActivity retrieves messages ordered by sent time, oldest first.
	ListByActivity(ctx context.Context, activityID string) ([]*models.ChatMessage, error)
}

// UserStore defines operations for user profiles.
type UserStore interface {
	// Create creates a new user with a hashed password.
	Create(ctx context.Context, email, password, name string) (*models.User, error)
	// Authenticate verifies credentials and returns the user.
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	// GetByID retrieves a user by ID. Returns ErrNotFound if missing.
	GetByID(ctx context.Context, id string) (*models.User, error)
	// Update updates name, photo and favorite sports.
	Update(ctx context.Context, user *models.User) error
}

// Store is the main interface for database operations.
type Store interface {
	// Activities returns the ActivityStore.
	Activities() ActivityStore
	// JoinRequests returns the JoinRequestStore.
	JoinRequests() JoinRequestStore
	// Messages returns the MessageStore.
	Messages() MessageStore
	// Users returns the UserStore.
	Users() UserStore

	// WithTx executes the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// Otherwise, the transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error

	// Ping verifies the backing database is reachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
