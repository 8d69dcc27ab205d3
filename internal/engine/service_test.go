package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/narvanalabs/matchday/internal/events"
	"github.com/narvanalabs/matchday/internal/models"
	"github.com/narvanalabs/matchday/internal/store"
	"github.com/narvanalabs/matchday/internal/store/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*events.Event
}

func (p *recordingPublisher) Publish(e *events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) count(t events.Type) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

type fixture struct {
	svc   *Service
	store *memory.Store
	pub   *recordingPublisher
	users map[string]*models.User
}

func newFixture(t *testing.T, names ...string) *fixture {
	t.Helper()

	st := memory.New()
	pub := &recordingPublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		svc:   NewService(st, pub, DefaultConfig(), logger),
		store: st,
		pub:   pub,
		users: make(map[string]*models.User),
	}

	for _, name := range names {
		u, err := st.Users().Create(context.Background(), name+"@example.com", "password123", name)
		if err != nil {
			t.Fatalf("create user %s: %v", name, err)
		}
		f.users[name] = u
	}
	return f
}

func (f *fixture) createActivity(t *testing.T, organizer string, total int) *models.Activity {
	t.Helper()
	a, err := f.svc.CreateActivity(context.Background(), f.users[organizer], ActivityInput{
		Sport:         "Basketball",
		Location:      "Central Park Courts",
		ScheduledAt:   time.Now().Add(24 * time.Hour),
		TotalPlayers:  total,
		PlayersNeeded: total - 1,
	})
	if err != nil {
		t.Fatalf("CreateActivity: %v", err)
	}
	return a
}

func (f *fixture) submit(t *testing.T, activityID, user string, count int) *models.JoinRequest {
	t.Helper()
	r, err := f.svc.SubmitJoinRequest(context.Background(), activityID, f.users[user], count)
	if err != nil {
		t.Fatalf("SubmitJoinRequest(%s): %v", user, err)
	}
	return r
}

func TestCreateActivityValidation(t *testing.T) {
	f := newFixture(t, "alex")
	ctx := context.Background()

	tests := []struct {
		name  string
		input ActivityInput
	}{
		{"missing sport", ActivityInput{Location: "Gym", ScheduledAt: time.Now(), TotalPlayers: 4, PlayersNeeded: 2}},
		{"short location", ActivityInput{Sport: "Tennis", Location: "ab", ScheduledAt: time.Now(), TotalPlayers: 4, PlayersNeeded: 2}},
		{"too few players", ActivityInput{Sport: "Tennis", Location: "Gym", ScheduledAt: time.Now(), TotalPlayers: 1, PlayersNeeded: 1}},
		{"too many players", ActivityInput{Sport: "Tennis", Location: "Gym", ScheduledAt: time.Now(), TotalPlayers: 51, PlayersNeeded: 1}},
		{"needed equals total", ActivityInput{Sport: "Tennis", Location: "Gym", ScheduledAt: time.Now(), TotalPlayers: 4, PlayersNeeded: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateActivity(ctx, f.users["alex"], tt.input)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestCapacityScenario(t *testing.T) {
	f := newFixture(t, "u1", "u2", "u3")
	ctx := context.Background()
	a := f.createActivity(t, "u1", 4)

	r2 := f.submit(t, a.ID, "u2", 2)
	r3 := f.submit(t, a.ID, "u3", 1)

	out, err := f.svc.Decide(ctx, a.ID, r2.ID, f.id("u1"), models.DecisionAccept)
	if err != nil {
		t.Fatalf("accept u2: %v", err)
	}
	if out.JoinedCount != 3 {
		t.Errorf("joined count after u2 = %d, want 3", out.JoinedCount)
	}
	if out.Activity.Status != models.ActivityStatusOpen {
		t.Errorf("status after u2 = %s, want Open", out.Activity.Status)
	}

	out, err = f.svc.Decide(ctx, a.ID, r3.ID, f.id("u1"), models.DecisionAccept)
	if err != nil {
		t.Fatalf("accept u3: %v", err)
	}
	if out.JoinedCount != 4 {
		t.Errorf("joined count after u3 = %d, want 4", out.JoinedCount)
	}
	if out.Activity.Status != models.ActivityStatusFull {
		t.Errorf("status after u3 = %s, want Full", out.Activity.Status)
	}

	view, err := f.svc.View(ctx, a.ID, f.id("u2"))
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if len(view.Participants) != 3 {
		t.Fatalf("participants = %d, want 3", len(view.Participants))
	}
	if !view.Participants[0].IsOrganizer || view.Participants[1].UserID != f.users["u2"].ID {
		t.Errorf("unexpected participant order: %+v", view.Participants)
	}
	if !view.CanChat {
		t.Error("participant should be able to chat once Full")
	}
	if view.PendingRequests != nil {
		t.Error("pending requests must only be shown to the organizer")
	}

	if n := f.pub.count(events.TypeActivityStatusChanged); n != 1 {
		t.Errorf("status change events = %d, want 1", n)
	}
}

func TestAcceptAfterFullIsInvalidState(t *testing.T) {
	f := newFixture(t, "u1", "u2", "u3")
	ctx := context.Background()
	a := f.createActivity(t, "u1", 2)

	r2 := f.submit(t, a.ID, "u2", 1)
	r3 := f.submit(t, a.ID, "u3", 1)

	out, err := f.svc.Decide(ctx, a.ID, r2.ID, f.id("u1"), models.DecisionAccept)
	if err != nil {
		t.Fatalf("accept u2: %v", err)
	}
	if out.Activity.Status != models.ActivityStatusFull {
		t.Fatalf("status = %s, want Full", out.Activity.Status)
	}

	if _, err := f.svc.Decide(ctx, a.ID, r3.ID, f.id("u1"), models.DecisionAccept); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}

	req, err := f.store.JoinRequests().Get(ctx, r3.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !req.IsPending() {
		t.Errorf("request over capacity should stay pending, got %s", req.Status)
	}

	// Rejecting the leftover request is still allowed.
	if _, err := f.svc.Decide(ctx, a.ID, r3.ID, f.id("u1"), models.DecisionReject); err != nil {
		t.Errorf("reject after Full: %v", err)
	}

	// A new request on a Full activity is refused.
	if _, err := f.svc.SubmitJoinRequest(ctx, a.ID, f.users["u3"], 1); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState on submit, got %v", err)
	}
}

func TestConcurrentAcceptsNeverStayOpen(t *testing.T) {
	f := newFixture(t, "u1", "u2", "u3")
	ctx := context.Background()
	a := f.createActivity(t, "u1", 2)

	requests := []*models.JoinRequest{
		f.submit(t, a.ID, "u2", 1),
		f.submit(t, a.ID, "u3", 1),
	}

	var (
		wg   sync.WaitGroup
		errs = make([]error, len(requests))
	)
	for i, r := range requests {
		wg.Add(1)
		go func(i int, r *models.JoinRequest) {
			defer wg.Done()
			_, errs[i] = f.svc.Decide(ctx, a.ID, r.ID, f.id("u1"), models.DecisionAccept)
		}(i, r)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case !errors.Is(err, ErrInvalidState):
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("accepted = %d, want exactly 1", succeeded)
	}

	view, err := f.svc.View(ctx, a.ID, f.id("u1"))
	if err != nil {
		t.Fatal(err)
	}
	if view.Activity.Status != models.ActivityStatusFull {
		t.Errorf("status = %s, want Full", view.Activity.Status)
	}
	if view.JoinedCount != 2 {
		t.Errorf("joined count = %d, want 2", view.JoinedCount)
	}
}

func TestSubmitJoinRequestErrors(t *testing.T) {
	f := newFixture(t, "u1", "u2")
	ctx := context.Background()
	a := f.createActivity(t, "u1", 4)

	if _, err := f.svc.SubmitJoinRequest(ctx, a.ID, f.users["u1"], 1); !errors.Is(err, ErrAlreadyParticipant) {
		t.Errorf("organizer submit: expected ErrAlreadyParticipant, got %v", err)
	}
	if _, err := f.svc.SubmitJoinRequest(ctx, a.ID, f.users["u2"], 11); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("over cap: expected ErrInvalidInput, got %v", err)
	}

	f.submit(t, a.ID, "u2", 1)
	if _, err := f.svc.SubmitJoinRequest(ctx, a.ID, f.users["u2"], 1); !errors.Is(err, ErrDuplicatePending) {
		t.Errorf("second submit: expected ErrDuplicatePending, got %v", err)
	}
	if _, err := f.svc.SubmitJoinRequest(ctx, "missing", f.users["u2"], 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing activity: expected ErrNotFound, got %v", err)
	}
}

func TestDecideByNonOrganizerDoesNotMutate(t *testing.T) {
	f := newFixture(t, "u1", "u2", "u3")
	ctx := context.Background()
	a := f.createActivity(t, "u1", 2)
	r := f.submit(t, a.ID, "u2", 1)

	if _, err := f.svc.Decide(ctx, a.ID, r.ID, f.id("u3"), models.DecisionAccept); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	after, err := f.store.Activities().Get(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if after.Version != a.Version || after.Status != models.ActivityStatusOpen {
		t.Error("activity was mutated by an unauthorized decision")
	}
	req, err := f.store.JoinRequests().Get(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !req.IsPending() {
		t.Error("request was mutated by an unauthorized decision")
	}
}

func TestCloseAndCancel(t *testing.T) {
	f := newFixture(t, "u1", "u2")
	ctx := context.Background()
	a := f.createActivity(t, "u1", 4)

	if _, err := f.svc.Close(ctx, a.ID, f.id("u2")); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}

	closed, err := f.svc.Close(ctx, a.ID, f.id("u1"))
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if closed.Status != models.ActivityStatusClosed {
		t.Errorf("status = %s, want Closed", closed.Status)
	}

	cancelled, err := f.svc.Cancel(ctx, a.ID, f.id("u1"))
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != models.ActivityStatusCancelled {
		t.Errorf("status = %s, want Cancelled", cancelled.Status)
	}

	if _, err := f.svc.Close(ctx, a.ID, f.id("u1")); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Cancelled is terminal, got %v", err)
	}
}

func TestChat(t *testing.T) {
	f := newFixture(t, "u1", "u2", "u3")
	ctx := context.Background()
	a := f.createActivity(t, "u1", 2)
	r := f.submit(t, a.ID, "u2", 1)

	if _, err := f.svc.PostMessage(ctx, a.ID, f.users["u1"], "hello"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("chat while Open: expected ErrInvalidState, got %v", err)
	}

	if _, err := f.svc.Decide(ctx, a.ID, r.ID, f.id("u1"), models.DecisionAccept); err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.PostMessage(ctx, a.ID, f.users["u1"], "  see you at 6  "); err != nil {
		t.Fatalf("organizer post: %v", err)
	}
	if _, err := f.svc.PostMessage(ctx, a.ID, f.users["u2"], "bringing a ball"); err != nil {
		t.Fatalf("participant post: %v", err)
	}
	if _, err := f.svc.PostMessage(ctx, a.ID, f.users["u3"], "can I come"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("outsider post: expected ErrUnauthorized, got %v", err)
	}
	if _, err := f.svc.PostMessage(ctx, a.ID, f.users["u2"], "   "); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank post: expected ErrInvalidInput, got %v", err)
	}

	msgs, err := f.svc.ListMessages(ctx, a.ID, f.id("u2"))
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
	if msgs[0].Body != "see you at 6" || msgs[1].SenderID != f.users["u2"].ID {
		t.Errorf("unexpected messages: %+v %+v", msgs[0], msgs[1])
	}

	chats, err := f.svc.ListChats(ctx, f.users["u2"].ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(chats) != 1 || chats[0].ID != a.ID {
		t.Errorf("chats = %v, want [%s]", chats, a.ID)
	}
}

func TestListMine(t *testing.T) {
	f := newFixture(t, "u1", "u2")
	ctx := context.Background()
	own := f.createActivity(t, "u1", 4)
	other := f.createActivity(t, "u2", 4)

	r := f.submit(t, other.ID, "u1", 1)
	if _, err := f.svc.Decide(ctx, other.ID, r.ID, f.id("u2"), models.DecisionAccept); err != nil {
		t.Fatal(err)
	}

	mine, err := f.svc.ListMine(ctx, f.users["u1"].ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(mine.Organized) != 1 || mine.Organized[0].ID != own.ID {
		t.Errorf("organized = %v", mine.Organized)
	}
	if len(mine.Participating) != 1 || mine.Participating[0].ID != other.ID {
		t.Errorf("participating = %v", mine.Participating)
	}
}

func TestViewReconcilesStaleOpenActivity(t *testing.T) {
	f := newFixture(t, "u1", "u2")
	ctx := context.Background()
	a := f.createActivity(t, "u1", 2)
	r := f.submit(t, a.ID, "u2", 1)

	// Accept without going through the engine to leave the activity Open at capacity.
	err := f.store.WithTx(ctx, func(tx store.Store) error {
		now := time.Now()
		r.Status = models.JoinRequestStatusAccepted
		r.DecidedAt = &now
		if err := tx.JoinRequests().Decide(ctx, r); err != nil {
			return err
		}
		act, err := tx.Activities().Get(ctx, a.ID)
		if err != nil {
			return err
		}
		act.AddParticipant(r.RespondentID)
		return tx.Activities().Update(ctx, act)
	})
	if err != nil {
		t.Fatal(err)
	}

	view, err := f.svc.View(ctx, a.ID, f.id("u2"))
	if err != nil {
		t.Fatal(err)
	}
	if view.Activity.Status != models.ActivityStatusFull {
		t.Errorf("status = %s, want Full", view.Activity.Status)
	}

	stored, err := f.store.Activities().Get(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != models.ActivityStatusFull {
		t.Errorf("stored status = %s, want Full", stored.Status)
	}
}

func (f *fixture) id(name string) string {
	return f.users[name].ID
}
