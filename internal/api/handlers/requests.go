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

// RequestHandler handles join requests and organizer decisions.
type RequestHandler struct {
	engine *engine.Service
	users  store.UserStore
	logger *slog.Logger
}

// NewRequestHandler creates a new join request handler.
func NewRequestHandler(eng *engine.Service, users store.UserStore, logger *slog.Logger) *RequestHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RequestHandler{
		engine: eng,
		users:  users,
		logger: logger,
	}
}

// SubmitRequest is the body of POST /v1/activities/{activityID}/requests.
type SubmitRequest struct {
	NumberOfParticipants int `json:"number_of_participants"`
}

// Submit handles POST /v1/activities/{activityID}/requests.
func (h *RequestHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteBadRequest(w, r, err.Error())
		return
	}

	requester, err := h.users.GetByID(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		WriteDomainError(w, r, h.logger, "failed to load requester", err)
		return
	}

	request, err := h.engine.SubmitJoinRequest(r.Context(), chi.URLParam(r, "activityID"), requester, req.NumberOfParticipants)
	if err != nil {
		WriteDomainError(w, r, h.logger, "failed to submit join request", err)
		return
	}
	WriteJSON(w, http.StatusCreated, request)
}

// DecisionRequest is the body of POST .../requests/{requestID}/decision.
type DecisionRequest struct {
	Decision string `json:"decision"`
}

// DecisionResponse reports the decided request and the resulting activity.
type DecisionResponse struct {
	Request       *models.JoinRequest `json:"request"`
	Activity      *models.Activity    `json:"activity"`
	JoinedCount   int                 `json:"joined_count"`
	StatusChanged bool                `json:"status_changed"`
}

// Decide handles POST /v1/activities/{activityID}/requests/{requestID}/decision.
func (h *RequestHandler) Decide(w http.ResponseWriter, r *http.Request) {
	var req DecisionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteBadRequest(w, r, err.Error())
		return
	}
	decision, err := models.ParseDecision(req.Decision)
	if err != nil {
		WriteBadRequest(w, r, `decision must be "accept" or "reject"`)
		return
	}

	outcome, err := h.engine.Decide(r.Context(),
		chi.URLParam(r, "activityID"),
		chi.URLParam(r, "requestID"),
		middleware.GetUserID(r.Context()),
		decision,
	)
	if err != nil {
		WriteDomainError(w, r, h.logger, "failed to decide join request", err)
		return
	}

	WriteJSON(w, http.StatusOK, &DecisionResponse{
		Request:       outcome.Request,
		Activity:      outcome.Activity,
		JoinedCount:   outcome.JoinedCount,
		StatusChanged: outcome.StatusChanged(),
	})
}
