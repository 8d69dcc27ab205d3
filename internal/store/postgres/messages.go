package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/narvanalabs/matchday/internal/models"
)

// MessageStore implements store.MessageStore using PostgreSQL.
type MessageStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

func (s *MessageStore) conn() queryable {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// Create appends a chat message.
func (s *MessageStore) Create(ctx context.Context, message *models.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (id, activity_id, sender_id, sender_name, sender_photo_url, body, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.SentAt.IsZero() {
		message.SentAt = time.Now().UTC()
	}

	_, err := s.conn().ExecContext(ctx, query,
		message.ID,
		message.ActivityID,
		message.SenderID,
		message.SenderName,
		message.SenderPhotoURL,
		message.Body,
		message.SentAt,
	)
	if err != nil {
		return fmt.Errorf("inserting chat message: %w", err)
	}
	return nil
}

// ListByActivity retrieves the chat history of an activity, oldest first.
func (s *MessageStore) ListByActivity(ctx context.Context, activityID string) ([]*models.ChatMessage, error) {
	query := `
		SELECT id, activity_id, sender_id, sender_name, sender_photo_url, body, sent_at
		FROM chat_messages
		WHERE activity_id::text = $1
		ORDER BY sent_at, seq`

	rows, err := s.conn().QueryContext(ctx, query, activityID)
	if err != nil {
		return nil, fmt.Errorf("querying chat messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.ChatMessage
	for rows.Next() {
		m := &models.ChatMessage{}
		if err := rows.Scan(&m.ID, &m.ActivityID, &m.SenderID, &m.SenderName,
			&m.SenderPhotoURL, &m.Body, &m.SentAt); err != nil {
			return nil, fmt.Errorf("scanning chat message: %w", err)
		}
		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chat messages: %w", err)
	}

	return messages, nil
}
