// Package events provides change notifications for activities so readers can
// recompute their views on push instead of polling.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type identifies what changed.
type Type string

const (
	TypeActivityCreated       Type = "activity.created"
	TypeActivityStatusChanged Type = "activity.status_changed"
	TypeRequestSubmitted      Type = "request.submitted"
	TypeRequestAccepted       Type = "request.accepted"
	TypeRequestRejected       Type = "request.rejected"
	TypeMessagePosted         Type = "message.posted"
)

// Event is a single change to shared activity state.
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	ActivityID string    `json:"activity_id"`
	ActorID    string    `json:"actor_id,omitempty"`
	Payload    any       `json:"payload,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// New creates an event stamped with a fresh ID and the current time.
func New(t Type, activityID, actorID string, payload any) *Event {
	return &Event{
		ID:         uuid.New().String(),
		Type:       t,
		ActivityID: activityID,
		ActorID:    actorID,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
}

// Subscriber receives events for one activity, or for all activities when
// ActivityID is empty.
type Subscriber struct {
	ID         string
	ActivityID string
	Ch         chan *Event
	CreatedAt  time.Time
}

// Broker manages subscriptions and fans out published events.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber // subscriber ID -> subscriber
	bufferSize  int
	logger      *slog.Logger
}

// NewBroker creates a new event broker.
func NewBroker(logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		subscribers: make(map[string]*Subscriber),
		bufferSize:  64,
		logger:      logger,
	}
}

// Subscribe registers a subscriber for an activity. The subscription is
// removed automatically when ctx is done.
func (b *Broker) Subscribe(ctx context.Context, activityID string) *Subscriber {
	b.mu.Lock()
	sub := &Subscriber{
		ID:         uuid.New().String(),
		ActivityID: activityID,
		Ch:         make(chan *Event, b.bufferSize),
		CreatedAt:  time.Now(),
	}
	b.subscribers[sub.ID] = sub
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "subscriber_id", sub.ID, "activity_id", activityID)

	go func() {
		<-ctx.Done()
		b.Unsubscribe(sub)
	}()

	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broker) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[sub.ID]; exists {
		close(sub.Ch)
		delete(b.subscribers, sub.ID)
		b.logger.Debug("subscriber removed", "subscriber_id", sub.ID)
	}
}

// Publish sends an event to all matching subscribers without blocking.
func (b *Broker) Publish(event *Event) {
	if event == nil {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		if sub.ActivityID != "" && sub.ActivityID != event.ActivityID {
			continue
		}
		select {
		case sub.Ch <- event:
		default:
			// Slow reader; it will resync from the store on its next read
			b.logger.Warn("subscriber channel full, dropping event",
				"subscriber_id", sub.ID,
				"activity_id", event.ActivityID,
				"event_type", event.Type,
			)
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
