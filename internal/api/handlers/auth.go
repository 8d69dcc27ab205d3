package handlers

import (
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/narvanalabs/matchday/internal/auth"
	"github.com/narvanalabs/matchday/internal/models"
	"github.com/narvanalabs/matchday/internal/store"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

// AuthHandler handles registration and login.
type AuthHandler struct {
	users  store.UserStore
	tokens *auth.Service
	logger *slog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(users store.UserStore, tokens *auth.Service, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteBadRequest(w, r, err.Error())
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if _, err := mail.ParseAddress(req.Email); err != nil {
		WriteBadRequest(w, r, "a valid email is required")
		return
	}
	if len(req.Password) < MinPasswordLength {
		WriteBadRequest(w, r, "password must be at least 8 characters")
		return
	}
	if err := (&models.User{Name: req.Name}).ValidateName(); err != nil {
		WriteBadRequest(w, r, err.Error())
		return
	}

	user, err := h.users.Create(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		WriteDomainError(w, r, h.logger, "failed to create user", err)
		return
	}

	token, err := h.tokens.GenerateToken(user.ID, user.Email, user.Name)
	if err != nil {
		WriteDomainError(w, r, h.logger, "failed to generate token", err)
		return
	}

	requestLog(r, h.logger).Info("user registered", "user_id", user.ID)
	WriteJSON(w, http.StatusCreated, &AuthResponse{User: user, Token: token})
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteBadRequest(w, r, err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		WriteBadRequest(w, r, "email and password required")
		return
	}

	user, err := h.users.Authenticate(r.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		WriteDomainError(w, r, h.logger, "failed to authenticate", err)
		return
	}

	token, err := h.tokens.GenerateToken(user.ID, user.Email, user.Name)
	if err != nil {
		WriteDomainError(w, r, h.logger, "failed to generate token", err)
		return
	}

	WriteJSON(w, http.StatusOK, &AuthResponse{User: user, Token: token})
}
