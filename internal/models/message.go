package models

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxMessageLength is the longest chat message body accepted, in characters.
const MaxMessageLength = 1000

var (
	ErrMessageEmpty   = errors.New("message body is required")
	ErrMessageTooLong = errors.New("message body must be 1000 characters or less")
)

// ChatMessage is an immutable message in an activity's group chat.
type ChatMessage struct {
	ID             string    `json:"id"`
	ActivityID     string    `json:"activity_id"`
	SenderID       string    `json:"sender_id"`
	SenderName     string    `json:"sender_name"`
	SenderPhotoURL string    `json:"sender_photo_url,omitempty"`
	Body           string    `json:"body"`
	SentAt         time.Time `json:"sent_at"`
}

// NormalizeMessageBody trims the body and checks its length.
func NormalizeMessageBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", ErrMessageEmpty
	}
	if utf8.RuneCountInString(body) > MaxMessageLength {
		return "", ErrMessageTooLong
	}
	return body, nil
}
