package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/narvanalabs/matchday/internal/models"
	"github.com/narvanalabs/matchday/internal/store"
)

type activityStore struct {
	s *Store
}

func (a *activityStore) Create(ctx context.Context, activity *models.Activity) error {
	a.s.lock()
	defer a.s.unlock()

	if activity.ID == "" {
		activity.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = now
	}
	activity.UpdatedAt = now
	if activity.Version == 0 {
		activity.Version = 1
	}

	a.s.st.activities[activity.ID] = activity.Clone()
	a.s.st.activitySeq[activity.ID] = a.s.st.next()
	return nil
}

func (a *activityStore) Get(ctx context.Context, id string) (*models.Activity, error) {
	a.s.lock()
	defer a.s.unlock()

	act, ok := a.s.st.activities[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return act.Clone(), nil
}

func (a *activityStore) Update(ctx context.Context, activity *models.Activity) error {
	a.s.lock()
	defer a.s.unlock()

	current, ok := a.s.st.activities[activity.ID]
	if !ok {
		return store.ErrNotFound
	}
	if current.Version != activity.Version {
		return store.ErrConcurrentModification
	}

	activity.Version++
	activity.UpdatedAt = time.Now().UTC()
	a.s.st.activities[activity.ID] = activity.Clone()
	return nil
}

func (a *activityStore) ListOpen(ctx context.Context, filter store.ActivityFilter) ([]*models.Activity, error) {
	sport := models.NormalizeSport(filter.Sport)
	location := strings.ToLower(strings.TrimSpace(filter.Location))

	return a.list(func(act *models.Activity) bool {
		if act.Status != models.ActivityStatusOpen {
			return false
		}
		if sport != "" && models.NormalizeSport(act.Sport) != sport {
			return false
		}
		if location != "" && !strings.Contains(strings.ToLower(act.Location), location) {
			return false
		}
		return true
	}), nil
}

func (a *activityStore) ListByOrganizer(ctx context.Context, userID string) ([]*models.Activity, error) {
	return a.list(func(act *models.Activity) bool {
		return act.OrganizerID == userID
	}), nil
}

func (a *activityStore) ListByParticipant(ctx context.Context, userID string, statuses ...models.ActivityStatus) ([]*models.Activity, error) {
	return a.list(func(act *models.Activity) bool {
		if !slices.Contains(act.ParticipantIDs, userID) {
			return false
		}
		return len(statuses) == 0 || slices.Contains(statuses, act.Status)
	}), nil
}

// list returns matching activities ordered by scheduled time, then creation order.
func (a *activityStore) list(match func(*models.Activity) bool) []*models.Activity {
	a.s.lock()
	defer a.s.unlock()

	var out []*models.Activity
	for _, act := range a.s.st.activities {
		if match(act) {
			out = append(out, act.Clone())
		}
	}
	seq := a.s.st.activitySeq
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ScheduledAt.Before(out[j].ScheduledAt)
		}
		return seq[out[i].ID] < seq[out[j].ID]
	})
	return out
}
