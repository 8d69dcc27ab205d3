package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/narvanalabs/matchday/internal/events"
	"github.com/narvanalabs/matchday/internal/models"
	"github.com/narvanalabs/matchday/internal/projection"
	"github.com/narvanalabs/matchday/internal/store"
	"github.com/narvanalabs/matchday/pkg/logger"
)

// Publisher receives change events after a mutation commits.
type Publisher interface {
	Publish(event *events.Event)
}

// Config holds engine tuning knobs.
type Config struct {
	// MaxParticipantsPerRequest caps NumberOfParticipants on a join request.
	MaxParticipantsPerRequest int
	// MaxTxAttempts bounds the optimistic concurrency retry loop.
	MaxTxAttempts int
	// RetryBackoff is multiplied by the attempt number between retries.
	RetryBackoff time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxParticipantsPerRequest: DefaultMaxParticipantsPerRequest,
		MaxTxAttempts:             5,
		RetryBackoff:              10 * time.Millisecond,
	}
}

// Service applies the activity rules against a store. Every mutation runs in a
// single transaction and publishes its change events after commit.
type Service struct {
	store     store.Store
	publisher Publisher
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a new engine service.
func NewService(st store.Store, pub Publisher, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultConfig()
	if cfg.MaxParticipantsPerRequest <= 0 {
		cfg.MaxParticipantsPerRequest = defaults.MaxParticipantsPerRequest
	}
	if cfg.MaxTxAttempts <= 0 {
		cfg.MaxTxAttempts = defaults.MaxTxAttempts
	}
	if cfg.RetryBackoff < 0 {
		cfg.RetryBackoff = 0
	}
	return &Service{
		store:     st,
		publisher: pub,
		cfg:       cfg,
		logger:    logger.With("component", "engine"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ActivityInput holds the organizer-supplied fields of a new activity.
type ActivityInput struct {
	Sport         string    `json:"sport"`
	Location      string    `json:"location"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	TotalPlayers  int       `json:"total_players"`
	PlayersNeeded int       `json:"players_needed"`
}

// CreateActivity creates an open activity organized by organizer.
func (s *Service) CreateActivity(ctx context.Context, organizer *models.User, input ActivityInput) (*models.Activity, error) {
	if organizer == nil || organizer.ID == "" {
		return nil, ErrUnauthorized
	}

	activity := &models.Activity{
		OrganizerID:       organizer.ID,
		OrganizerName:     organizer.Name,
		OrganizerPhotoURL: organizer.PhotoURL,
		Sport:             strings.TrimSpace(input.Sport),
		Location:          strings.TrimSpace(input.Location),
		ScheduledAt:       input.ScheduledAt.UTC(),
		TotalPlayers:      input.TotalPlayers,
		PlayersNeeded:     input.PlayersNeeded,
		Status:            models.ActivityStatusOpen,
		ParticipantIDs:    []string{organizer.ID},
	}
	if err := activity.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	if err := s.store.Activities().Create(ctx, activity); err != nil {
		return nil, s.storeError("create activity", err)
	}

	s.log(ctx, activity.ID).Info("activity created",
		"organizer_id", organizer.ID,
		"sport", activity.Sport,
		"total_players", activity.TotalPlayers,
	)
	s.publish(events.New(events.TypeActivityCreated, activity.ID, organizer.ID, activity))
	return activity, nil
}

// GetActivity retrieves an activity by ID.
func (s *Service) GetActivity(ctx context.Context, id string) (*models.Activity, error) {
	activity, err := s.store.Activities().Get(ctx, id)
	if err != nil {
		return nil, s.storeError("get activity", err)
	}
	return activity, nil
}

// ListOpen lists open activities matching the filter.
func (s *Service) ListOpen(ctx context.Context, filter store.ActivityFilter) ([]*models.Activity, error) {
	activities, err := s.store.Activities().ListOpen(ctx, filter)
	if err != nil {
		return nil, s.storeError("list open activities", err)
	}
	return activities, nil
}

// MyActivities holds the activities a user organizes and those they take part in.
type MyActivities struct {
	Organized     []*models.Activity `json:"organized"`
	Participating []*models.Activity `json:"participating"`
}

// ListMine lists the activities a user organizes and the ones they joined.
// Activities the user organizes are not repeated in Participating.
func (s *Service) ListMine(ctx context.Context, userID string) (*MyActivities, error) {
	organized, err := s.store.Activities().ListByOrganizer(ctx, userID)
	if err != nil {
		return nil, s.storeError("list organized activities", err)
	}
	joined, err := s.store.Activities().ListByParticipant(ctx, userID)
	if err != nil {
		return nil, s.storeError("list joined activities", err)
	}

	participating := make([]*models.Activity, 0, len(joined))
	for _, a := range joined {
		if !a.IsOrganizer(userID) {
			participating = append(participating, a)
		}
	}
	return &MyActivities{Organized: organized, Participating: participating}, nil
}

// ListChats lists the activities whose group chat the user can open.
func (s *Service) ListChats(ctx context.Context, userID string) ([]*models.Activity, error) {
	activities, err := s.store.Activities().ListByParticipant(ctx, userID,
		models.ActivityStatusFull, models.ActivityStatusClosed)
	if err != nil {
		return nil, s.storeError("list chats", err)
	}
	return activities, nil
}

// SubmitJoinRequest creates a pending join request for requester.
func (s *Service) SubmitJoinRequest(ctx context.Context, activityID string, requester *models.User, count int) (*models.JoinRequest, error) {
	if requester == nil || requester.ID == "" {
		return nil, ErrUnauthorized
	}

	var request *models.JoinRequest
	err := s.inTx(ctx, "submit join request", func(tx store.Store) error {
		activity, err := tx.Activities().Get(ctx, activityID)
		if err != nil {
			return err
		}
		pending, err := tx.JoinRequests().HasPending(ctx, activityID, requester.ID)
		if err != nil {
			return err
		}
		if err := CheckSubmit(activity, requester.ID, count, s.cfg.MaxParticipantsPerRequest, pending); err != nil {
			return err
		}

		request = &models.JoinRequest{
			ActivityID:           activityID,
			RespondentID:         requester.ID,
			RespondentName:       requester.Name,
			RespondentPhotoURL:   requester.PhotoURL,
			NumberOfParticipants: count,
			Status:               models.JoinRequestStatusPending,
			CreatedAt:            s.now(),
		}
		if err := request.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return tx.JoinRequests().Create(ctx, request)
	})
	if err != nil {
		return nil, err
	}

	s.log(ctx, activityID).Info("join request submitted",
		"request_id", request.ID,
		"respondent_id", requester.ID,
		"participants", count,
	)
	s.publish(events.New(events.TypeRequestSubmitted, activityID, requester.ID, request))
	return request, nil
}

// Decide records the organizer's decision on a pending request. Accepting adds
// the respondent to the participant set and moves the activity to Full once
// the joined count reaches capacity, all within one transaction.
func (s *Service) Decide(ctx context.Context, activityID, requestID, callerID string, decision models.Decision) (*Outcome, error) {
	var outcome *Outcome
	err := s.inTx(ctx, "decide join request", func(tx store.Store) error {
		activity, err := tx.Activities().Get(ctx, activityID)
		if err != nil {
			return err
		}
		request, err := tx.JoinRequests().Get(ctx, requestID)
		if err != nil {
			return err
		}
		if err := CheckDecide(activity, request, callerID, decision); err != nil {
			return err
		}

		accepted, err := tx.JoinRequests().ListAccepted(ctx, activityID)
		if err != nil {
			return err
		}

		outcome = ApplyDecision(activity, request, decision, accepted, s.now())
		if err := tx.JoinRequests().Decide(ctx, outcome.Request); err != nil {
			return err
		}
		if decision == models.DecisionAccept {
			// The version check on this write serializes concurrent acceptances.
			return tx.Activities().Update(ctx, outcome.Activity)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log(ctx, activityID).Info("join request decided",
		"request_id", requestID,
		"decision", decision,
		"joined_count", outcome.JoinedCount,
		"status", outcome.Activity.Status,
	)

	eventType := events.TypeRequestRejected
	if decision == models.DecisionAccept {
		eventType = events.TypeRequestAccepted
	}
	s.publish(events.New(eventType, activityID, callerID, outcome.Request))
	if outcome.StatusChanged() {
		s.publish(events.New(events.TypeActivityStatusChanged, activityID, callerID, outcome.Activity))
	}
	return outcome, nil
}

// Close moves an open or full activity to Closed.
func (s *Service) Close(ctx context.Context, activityID, callerID string) (*models.Activity, error) {
	return s.transition(ctx, activityID, callerID, models.ActivityStatusClosed)
}

// Cancel moves a non-cancelled activity to Cancelled.
func (s *Service) Cancel(ctx context.Context, activityID, callerID string) (*models.Activity, error) {
	return s.transition(ctx, activityID, callerID, models.ActivityStatusCancelled)
}

func (s *Service) transition(ctx context.Context, activityID, callerID string, target models.ActivityStatus) (*models.Activity, error) {
	var updated *models.Activity
	err := s.inTx(ctx, "transition activity", func(tx store.Store) error {
		activity, err := tx.Activities().Get(ctx, activityID)
		if err != nil {
			return err
		}
		if err := CheckTransition(activity, callerID, target); err != nil {
			return err
		}
		activity.Status = target
		if err := tx.Activities().Update(ctx, activity); err != nil {
			return err
		}
		updated = activity
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log(ctx, activityID).Info("activity status changed", "status", target)
	s.publish(events.New(events.TypeActivityStatusChanged, activityID, callerID, updated))
	return updated, nil
}

// ActivityView is an activity as seen by one viewer.
type ActivityView struct {
	Activity        *models.Activity      `json:"activity"`
	Participants    []models.Participant  `json:"participants"`
	JoinedCount     int                   `json:"joined_count"`
	PendingRequests []*models.JoinRequest `json:"pending_requests,omitempty"`
	IsOrganizer     bool                  `json:"is_organizer"`
	IsParticipant   bool                  `json:"is_participant"`
	HasPending      bool                  `json:"has_pending_request"`
	CanChat         bool                  `json:"can_chat"`
	CanRequest      bool                  `json:"can_request"`
}

// View builds the detail view of an activity for viewerID. Pending requests
// are only included for the organizer.
func (s *Service) View(ctx context.Context, activityID, viewerID string) (*ActivityView, error) {
	activity, err := s.store.Activities().Get(ctx, activityID)
	if err != nil {
		return nil, s.storeError("get activity", err)
	}
	requests, err := s.store.JoinRequests().ListByActivity(ctx, activityID)
	if err != nil {
		return nil, s.storeError("list join requests", err)
	}
	accepted, err := s.store.JoinRequests().ListAccepted(ctx, activityID)
	if err != nil {
		return nil, s.storeError("list accepted requests", err)
	}

	participants := projection.Participants(activity, accepted)
	view := &ActivityView{
		Activity:      activity,
		Participants:  participants,
		JoinedCount:   projection.JoinedCount(participants),
		IsOrganizer:   activity.IsOrganizer(viewerID),
		IsParticipant: activity.HasParticipant(viewerID),
		CanChat:       CanChat(activity, viewerID),
	}

	for _, r := range requests {
		if !r.IsPending() {
			continue
		}
		if r.RespondentID == viewerID {
			view.HasPending = true
		}
		if view.IsOrganizer {
			view.PendingRequests = append(view.PendingRequests, r)
		}
	}
	view.CanRequest = viewerID != "" &&
		activity.Status == models.ActivityStatusOpen &&
		!view.IsParticipant && !view.HasPending

	// Heal activities left Open at capacity by writers that skipped the transaction.
	if status := RecomputeStatus(activity, view.JoinedCount); status != activity.Status {
		s.log(ctx, activityID).Warn("activity at capacity still open, reconciling",
			"joined_count", view.JoinedCount,
			"total_players", activity.TotalPlayers,
		)
		if reconciled, err := s.reconcile(ctx, activityID); err == nil {
			view.Activity = reconciled
			view.CanChat = CanChat(reconciled, viewerID)
			view.CanRequest = false
		}
	}

	return view, nil
}

// reconcile re-derives the status of an activity from its accepted requests
// and persists it if it changed. Safe to call redundantly.
func (s *Service) reconcile(ctx context.Context, activityID string) (*models.Activity, error) {
	var (
		result  *models.Activity
		changed bool
	)
	err := s.inTx(ctx, "reconcile activity", func(tx store.Store) error {
		activity, err := tx.Activities().Get(ctx, activityID)
		if err != nil {
			return err
		}
		accepted, err := tx.JoinRequests().ListAccepted(ctx, activityID)
		if err != nil {
			return err
		}
		status := RecomputeStatus(activity, JoinedCount(activity, accepted))
		result = activity
		if status == activity.Status {
			return nil
		}
		activity.Status = status
		changed = true
		return tx.Activities().Update(ctx, activity)
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.publish(events.New(events.TypeActivityStatusChanged, activityID, "", result))
	}
	return result, nil
}

// PostMessage appends a message to the activity's group chat.
func (s *Service) PostMessage(ctx context.Context, activityID string, sender *models.User, body string) (*models.ChatMessage, error) {
	if sender == nil || sender.ID == "" {
		return nil, ErrUnauthorized
	}
	body, err := models.NormalizeMessageBody(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	activity, err := s.store.Activities().Get(ctx, activityID)
	if err != nil {
		return nil, s.storeError("get activity", err)
	}
	if err := checkChat(activity, sender.ID); err != nil {
		return nil, err
	}

	msg := &models.ChatMessage{
		ActivityID:     activityID,
		SenderID:       sender.ID,
		SenderName:     sender.Name,
		SenderPhotoURL: sender.PhotoURL,
		Body:           body,
		SentAt:         s.now(),
	}
	if err := s.store.Messages().Create(ctx, msg); err != nil {
		return nil, s.storeError("create message", err)
	}

	s.publish(events.New(events.TypeMessagePosted, activityID, sender.ID, msg))
	return msg, nil
}

// ListMessages returns the chat history of an activity, oldest first.
func (s *Service) ListMessages(ctx context.Context, activityID, viewerID string) ([]*models.ChatMessage, error) {
	activity, err := s.store.Activities().Get(ctx, activityID)
	if err != nil {
		return nil, s.storeError("get activity", err)
	}
	if err := checkChat(activity, viewerID); err != nil {
		return nil, err
	}

	messages, err := s.store.Messages().ListByActivity(ctx, activityID)
	if err != nil {
		return nil, s.storeError("list messages", err)
	}
	return messages, nil
}

// checkChat distinguishes a closed chat from a caller outside the group.
func checkChat(activity *models.Activity, userID string) error {
	if CanChat(activity, userID) {
		return nil
	}
	if !activity.HasParticipant(userID) {
		return ErrUnauthorized
	}
	return fmt.Errorf("%w: chat is not available while activity is %s", ErrInvalidState, activity.Status)
}

// inTx runs fn in a store transaction, retrying on optimistic locking conflicts.
func (s *Service) inTx(ctx context.Context, op string, fn func(store.Store) error) error {
	var err error
	for attempt := 1; attempt <= s.cfg.MaxTxAttempts; attempt++ {
		err = s.store.WithTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrConcurrentModification) {
			return s.storeError(op, err)
		}

		s.log(ctx, "").Debug("transaction conflict, retrying", "op", op, "attempt", attempt)
		if attempt == s.cfg.MaxTxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return s.storeError(op, ctx.Err())
		case <-time.After(s.cfg.RetryBackoff * time.Duration(attempt)):
		}
	}
	return s.storeError(op, fmt.Errorf("gave up after %d attempts: %w", s.cfg.MaxTxAttempts, err))
}

// storeError maps store failures onto the engine's error taxonomy.
func (s *Service) storeError(op string, err error) error {
	switch {
	case isDomainError(err):
		return err
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, store.ErrDuplicatePending):
		return ErrDuplicatePending
	default:
		s.logger.Error("store operation failed", "op", op, "error", err)
		return fmt.Errorf("%s: %w: %w", op, ErrExternalService, err)
	}
}

// log returns the service logger annotated with the IDs carried by ctx and
// with activityID when set.
func (s *Service) log(ctx context.Context, activityID string) *slog.Logger {
	if activityID != "" {
		ctx = logger.ContextWithActivityID(ctx, activityID)
	}
	return logger.FromContext(ctx, s.logger)
}

func (s *Service) publish(event *events.Event) {
	if s.publisher != nil {
		s.publisher.Publish(event)
	}
}
