// Package memory provides an in-process implementation of the store interfaces.
// It is used for development runs and tests; transactions are serialized and
// rolled back by restoring a snapshot.
package memory

import (
	"context"
	"sync"

	"github.com/narvanalabs/matchday/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// Store keeps all records in memory.
type Store struct {
	mu   *sync.Mutex
	st   *state
	inTx bool
	cost int
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		mu:   &sync.Mutex{},
		st:   newState(),
		cost: bcrypt.MinCost,
	}
}

func (s *Store) lock() {
	if !s.inTx {
		s.mu.Lock()
	}
}

func (s *Store) unlock() {
	if !s.inTx {
		s.mu.Unlock()
	}
}

// Activities returns the ActivityStore.
func (s *Store) Activities() store.ActivityStore {
	return &activityStore{s: s}
}

// JoinRequests returns the JoinRequestStore.
func (s *Store) JoinRequests() store.JoinRequestStore {
	return &joinRequestStore{s: s}
}

// Messages returns the MessageStore.
func (s *Store) Messages() store.MessageStore {
	return &messageStore{s: s}
}

// Users returns the UserStore.
func (s *Store) Users() store.UserStore {
	return &userStore{s: s}
}

// WithTx runs fn while holding the store lock. If fn fails, every change it
// made is discarded.
func (s *Store) WithTx(ctx context.Context, fn func(store.Store) error) error {
	if s.inTx {
		// Already in a transaction, just execute the function
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	tx := &Store{mu: s.mu, st: s.st, inTx: true, cost: s.cost}
	if err := fn(tx); err != nil {
		*s.st = *snapshot
		return err
	}
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
