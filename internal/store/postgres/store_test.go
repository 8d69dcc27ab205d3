package postgres

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/narvanalabs/matchday/internal/models"
	"github.com/narvanalabs/matchday/internal/store"
)

// setupTestStore connects to TEST_DATABASE_URL and applies the schema.
func setupTestStore(t *testing.T) *PostgresStore {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database tests")
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewPostgresStore(DefaultConfig(dsn), logger)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	if err := s.Migrate(context.Background()); err != nil {
		s.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		ctx := context.Background()
		for _, table := range []string{"chat_messages", "join_requests", "activities", "users"} {
			if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				t.Logf("cleanup %s: %v", table, err)
			}
		}
		s.Close()
	})
	return s
}

func createTestUser(t *testing.T, s *PostgresStore, name string) *models.User {
	t.Helper()
	email := fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8])
	u, err := s.Users().Create(context.Background(), email, "password123", name)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func createTestActivity(t *testing.T, s *PostgresStore, organizer *models.User, sport string) *models.Activity {
	t.Helper()
	a := &models.Activity{
		OrganizerID:    organizer.ID,
		OrganizerName:  organizer.Name,
		Sport:          sport,
		Location:       "Riverside Park",
		ScheduledAt:    time.Now().Add(24 * time.Hour).UTC(),
		TotalPlayers:   4,
		PlayersNeeded:  3,
		Status:         models.ActivityStatusOpen,
		ParticipantIDs: []string{organizer.ID},
	}
	if err := s.Activities().Create(context.Background(), a); err != nil {
		t.Fatalf("create activity: %v", err)
	}
	return a
}

func TestUsers(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	u, err := s.Users().Create(ctx, "Sam@Example.com", "password123", "Sam")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Users().Create(ctx, "sam@example.com", "x", "Other"); !errors.Is(err, store.ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}

	if _, err := s.Users().Authenticate(ctx, "sam@example.com", "wrong"); !errors.Is(err, store.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	got, err := s.Users().Authenticate(ctx, "SAM@example.com", "password123")
	if err != nil || got.ID != u.ID {
		t.Fatalf("Authenticate = %v, %v", got, err)
	}

	u.FavoriteSports = []string{"Tennis", "Soccer"}
	u.PhotoURL = "https://cdn.test/a.png"
	if err := s.Users().Update(ctx, u); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err = s.Users().GetByID(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.FavoriteSports) != 2 || got.PhotoURL != u.PhotoURL {
		t.Errorf("unexpected user after update: %+v", got)
	}

	if _, err := s.Users().GetByID(ctx, "not-a-uuid"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestActivityOptimisticLocking(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	organizer := createTestUser(t, s, "org")
	a := createTestActivity(t, s, organizer, "Basketball")

	first, err := s.Activities().Get(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Activities().Get(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}

	first.Status = models.ActivityStatusClosed
	if err := s.Activities().Update(ctx, first); err != nil {
		t.Fatalf("first update: %v", err)
	}
	if first.Version != 2 {
		t.Errorf("version = %d, want 2", first.Version)
	}

	second.Status = models.ActivityStatusCancelled
	if err := s.Activities().Update(ctx, second); !errors.Is(err, store.ErrConcurrentModification) {
		t.Errorf("expected ErrConcurrentModification, got %v", err)
	}

	missing := first.Clone()
	missing.ID = uuid.NewString()
	if err := s.Activities().Update(ctx, missing); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestActivityListing(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	organizer := createTestUser(t, s, "org")
	player := createTestUser(t, s, "player")

	soccer := createTestActivity(t, s, organizer, "Soccer")
	createTestActivity(t, s, organizer, "Tennis")

	open, err := s.Activities().ListOpen(ctx, store.ActivityFilter{Sport: " SOCCER ", Location: "riverside"})
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 1 || open[0].ID != soccer.ID {
		t.Errorf("ListOpen = %v", open)
	}

	soccer.ParticipantIDs = append(soccer.ParticipantIDs, player.ID)
	soccer.Status = models.ActivityStatusFull
	if err := s.Activities().Update(ctx, soccer); err != nil {
		t.Fatal(err)
	}

	chats, err := s.Activities().ListByParticipant(ctx, player.ID, models.ActivityStatusFull, models.ActivityStatusClosed)
	if err != nil {
		t.Fatal(err)
	}
	if len(chats) != 1 || chats[0].ID != soccer.ID {
		t.Errorf("ListByParticipant = %v", chats)
	}

	organized, err := s.Activities().ListByOrganizer(ctx, organizer.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(organized) != 2 {
		t.Errorf("ListByOrganizer returned %d activities, want 2", len(organized))
	}
}

func TestJoinRequests(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	organizer := createTestUser(t, s, "org")
	player := createTestUser(t, s, "player")
	a := createTestActivity(t, s, organizer, "Soccer")

	r := &models.JoinRequest{
		ActivityID:           a.ID,
		RespondentID:         player.ID,
		RespondentName:       player.Name,
		NumberOfParticipants: 2,
	}
	if err := s.JoinRequests().Create(ctx, r); err != nil {
		t.Fatalf("Create: %v", err)
	}

	dup := &models.JoinRequest{ActivityID: a.ID, RespondentID: player.ID, RespondentName: player.Name, NumberOfParticipants: 1}
	if err := s.JoinRequests().Create(ctx, dup); !errors.Is(err, store.ErrDuplicatePending) {
		t.Errorf("expected ErrDuplicatePending, got %v", err)
	}

	pending, err := s.JoinRequests().HasPending(ctx, a.ID, player.ID)
	if err != nil || !pending {
		t.Errorf("HasPending = %v, %v", pending, err)
	}

	r.Status = models.JoinRequestStatusAccepted
	if err := s.JoinRequests().Decide(ctx, r); err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if err := s.JoinRequests().Decide(ctx, r); !errors.Is(err, store.ErrConcurrentModification) {
		t.Errorf("second Decide: expected ErrConcurrentModification, got %v", err)
	}

	accepted, err := s.JoinRequests().ListAccepted(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(accepted) != 1 || accepted[0].DecidedAt == nil {
		t.Errorf("ListAccepted = %v", accepted)
	}
}

func TestWithTxRollback(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	organizer := createTestUser(t, s, "org")
	a := createTestActivity(t, s, organizer, "Soccer")

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx store.Store) error {
		act, err := tx.Activities().Get(ctx, a.ID)
		if err != nil {
			return err
		}
		act.Status = models.ActivityStatusCancelled
		if err := tx.Activities().Update(ctx, act); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	got, err := s.Activities().Get(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.ActivityStatusOpen || got.Version != 1 {
		t.Errorf("rollback did not restore activity: %+v", got)
	}
}

func TestMessagesOrdering(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	organizer := createTestUser(t, s, "org")
	a := createTestActivity(t, s, organizer, "Soccer")

	base := time.Now().UTC()
	for i, body := range []string{"second", "first"} {
		m := &models.ChatMessage{
			ActivityID: a.ID,
			SenderID:   organizer.ID,
			SenderName: organizer.Name,
			Body:       body,
			SentAt:     base.Add(time.Duration(-i) * time.Minute),
		}
		if err := s.Messages().Create(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	msgs, err := s.Messages().ListByActivity(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[0].Body != "first" {
		t.Errorf("messages not ordered by sent time: %v", msgs)
	}
}
