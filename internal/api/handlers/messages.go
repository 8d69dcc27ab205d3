package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/narvanalabs/matchday/internal/api/middleware"
	"github.com/narvanalabs/matchday/internal/engine"
	"github.com/narvanalabs/matchday/internal/models"
	"github.com/narvanalabs/matchday/internal/store"
)

// MessageHandler handles an activity's group chat.
type MessageHandler struct {
	engine *engine.Service
	users  store.UserStore
	logger *slog.Logger
}

// NewMessageHandler creates a new chat message handler.
func NewMessageHandler(eng *engine.Service, users store.UserStore, logger *slog.Logger) *MessageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MessageHandler{
		engine: eng,
		users:  users,
		logger: logger,
	}
}

// List handles GET /v1/activities/{activityID}/messages.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	messages, err := h.engine.ListMessages(r.Context(), chi.URLParam(r, "activityID"), middleware.GetUserID(r.Context()))
	if err != nil {
		WriteDomainError(w, r, h.logger, "failed to list messages", err)
		return
	}
	if messages == nil {
		messages = []*models.ChatMessage{}
	}
	WriteJSON(w, http.StatusOK, messages)
}

// PostMessageRequest is the body of POST /v1/activities/{activityID}/messages.
type PostMessageRequest struct {
	Body string `json:"body"`
}

// Post handles POST /v1/activities/{activityID}/messages.
func (h *MessageHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req PostMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteBadRequest(w, r, err.Error())
		return
	}

	sender, err := h.users.GetByID(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		WriteDomainError(w, r, h.logger, "failed to load sender", err)
		return
	}

	msg, err := h.engine.PostMessage(r.Context(), chi.URLParam(r, "activityID"), sender, req.Body)
	if err != nil {
		WriteDomainError(w, r, h.logger, "failed to post message", err)
		return
	}
	WriteJSON(w, http.StatusCreated, msg)
}
