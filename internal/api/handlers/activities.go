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

// ActivityHandler handles activity browsing, creation and organizer actions.
type ActivityHandler struct {
	engine *engine.Service
	users  store.UserStore
	logger *slog.Logger
}

// NewActivityHandler creates a new activity handler.
func NewActivityHandler(eng *engine.Service, users store.UserStore, logger *slog.Logger) *ActivityHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivityHandler{
		engine: eng,
		users:  users,
		logger: logger,
	}
}

// List handles GET /v1/activities?sport=&location= and returns open activities.
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := store.ActivityFilter{
		Sport:    r.URL.Query().Get("sport"),
		Location: r.URL.Query().Get("location"),
	}
	activities, err := h.engine.ListOpen(r.Context(), filter)
	if err != nil {
		WriteDomainError(w, r, h.logger, "failed to list activities", err)
		return
	}
	WriteJSON(w, http.StatusOK, nonNil(activities))
}

// Create handles POST /v1/activities.
func (h *ActivityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input engine.ActivityInput
	if err := decodeJSON(w, r, &input); err != nil {
		WriteBadRequest(w, r, err.Error())
		return
	}

	organizer, err := h.users.GetByID(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		WriteDomainError(w, r, h.logger, "failed to load organizer", err)
		return
	}

	activity, err := h.engine.CreateActivity(r.Context(), organizer, input)
	if err != nil {
		WriteDomainError(w, r, h.logger, "failed to create activity", err)
		return
	}
	WriteJSON(w, http.StatusCreated, activity)
}

// Mine handles GET /v1/activities/mine.
func (h *ActivityHandler) Mine(w http.ResponseWriter, r *http.Request) {
	mine, err := h.engine.ListMine(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		WriteDomainError(w, r, h.logger, "failed to list own activities", err)
		return
	}
	mine.Organized = nonNil(mine.Organized)
	mine.Participating = nonNil(mine.Participating)
	WriteJSON(w, http.StatusOK, mine)
}

// Chats handles GET /v1/chats and lists activities whose chat the caller can open.
func (h *ActivityHandler) Chats(w http.ResponseWriter, r *http.Request) {
	activities, err := h.engine.ListChats(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		WriteDomainError(w, r, h.logger, "failed to list chats", err)
		return
	}
	WriteJSON(w, http.StatusOK, nonNil(activities))
}

// Get handles GET /v1/activities/{activityID} and returns the caller's view.
func (h *ActivityHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.engine.View(r.Context(), chi.URLParam(r, "activityID"), middleware.GetUserID(r.Context()))
	if err != nil {
		WriteDomainError(w, r, h.logger, "failed to load activity", err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

// Close handles POST /v1/activities/{activityID}/close.
func (h *ActivityHandler) Close(w http.ResponseWriter, r *http.Request) {
	activity, err := h.engine.Close(r.Context(), chi.URLParam(r, "activityID"), middleware.GetUserID(r.Context()))
	if err != nil {
		WriteDomainError(w, r, h.logger, "failed to close activity", err)
		return
	}
	WriteJSON(w, http.StatusOK, activity)
}

// Cancel handles POST /v1/activities/{activityID}/cancel.
func (h *ActivityHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	activity, err := h.engine.Cancel(r.Context(), chi.URLParam(r, "activityID"), middleware.GetUserID(r.Context()))
	if err != nil {
		WriteDomainError(w, r, h.logger, "failed to cancel activity", err)
		return
	}
	WriteJSON(w, http.StatusOK, activity)
}

// nonNil makes empty lists encode as [] rather than null.
func nonNil(activities []*models.Activity) []*models.Activity {
	if activities == nil {
		return []*models.Activity{}
	}
	return activities
}
