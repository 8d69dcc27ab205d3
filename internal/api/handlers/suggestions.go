package handlers

import (
	"log/slog"
	"net/http"

	"github.com/narvanalabs/matchday/internal/api/middleware"
	"github.com/narvanalabs/matchday/internal/engine"
	"github.com/narvanalabs/matchday/internal/models"
	"github.com/narvanalabs/matchday/internal/store"
	"github.com/narvanalabs/matchday/internal/suggestions"
)

// SuggestionHandler recommends open activities from the caller's favorite sports.
type SuggestionHandler struct {
	engine *engine.Service
	users  store.UserStore
	ranker *suggestions.Ranker
	logger *slog.Logger
}

// NewSuggestionHandler creates a new suggestion handler.
func NewSuggestionHandler(eng *engine.Service, users store.UserStore, ranker *suggestions.Ranker, logger *slog.Logger) *SuggestionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SuggestionHandler{
		engine: eng,
		users:  users,
		ranker: ranker,
		logger: logger,
	}
}

// List handles GET /v1/suggestions. Activities the caller already belongs to
// are not suggested.
func (h *SuggestionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		WriteDomainError(w, r, h.logger, "failed to load profile", err)
		return
	}

	open, err := h.engine.ListOpen(r.Context(), store.ActivityFilter{})
	if err != nil {
		WriteDomainError(w, r, h.logger, "failed to list activities", err)
		return
	}

	candidates := make([]*models.Activity, 0, len(open))
	for _, a := range open {
		if !a.HasParticipant(userID) {
			candidates = append(candidates, a)
		}
	}

	WriteJSON(w, http.StatusOK, h.ranker.Suggest(r.Context(), user.FavoriteSports, candidates))
}
