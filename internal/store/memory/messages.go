package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/narvanalabs/matchday/internal/models"
)

type messageStore struct {
	s *Store
}

func (m *messageStore) Create(ctx context.Context, message *models.ChatMessage) error {
	m.s.lock()
	defer m.s.unlock()

	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.SentAt.IsZero() {
		message.SentAt = time.Now().UTC()
	}

	c := *message
	m.s.st.messages[message.ActivityID] = append(m.s.st.messages[message.ActivityID],
		messageRecord{msg: &c, seq: m.s.st.next()})
	return nil
}

func (m *messageStore) ListByActivity(ctx context.Context, activityID string) ([]*models.ChatMessage, error) {
	m.s.lock()
	recs := append([]messageRecord(nil), m.s.st.messages[activityID]...)
	m.s.unlock()

	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].msg.SentAt.Equal(recs[j].msg.SentAt) {
			return recs[i].msg.SentAt.Before(recs[j].msg.SentAt)
		}
		return recs[i].seq < recs[j].seq
	})

	out := make([]*models.ChatMessage, len(recs))
	for i, rec := range recs {
		c := *rec.msg
		out[i] = &c
	}
	return out, nil
}
