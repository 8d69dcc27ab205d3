package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	apierrors "github.com/narvanalabs/matchday/internal/api/errors"
	"github.com/narvanalabs/matchday/internal/auth"
	"github.com/narvanalabs/matchday/pkg/logger"
)

// AccessTokenParam is the query parameter accepted in place of the
// Authorization header. Browsers cannot set headers on websocket upgrades.
const AccessTokenParam = "access_token"

// GetUserID extracts the user ID from the request context.
func GetUserID(ctx context.Context) string {
	return logger.UserIDFromContext(ctx)
}

// WithUser returns a context carrying the authenticated identity.
func WithUser(ctx context.Context, claims *auth.Claims) context.Context {
	return logger.ContextWithUserID(ctx, claims.UserID)
}

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// AuthMiddleware handles bearer token authentication.
type AuthMiddleware struct {
	tokens TokenValidator
	logger *slog.Logger
}

// NewAuthMiddleware creates a new authentication middleware.
func NewAuthMiddleware(tokens TokenValidator, logger *slog.Logger) *AuthMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthMiddleware{
		tokens: tokens,
		logger: logger,
	}
}

// Authenticate is a middleware that validates the bearer token and stores the
// caller's identity in the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := auth.ExtractBearerToken(r.Header.Get("Authorization"))
		if token == "" {
			token = r.URL.Query().Get(AccessTokenParam)
		}
		if token == "" {
			writeUnauthorized(w, r, "Missing authentication")
			return
		}

		claims, err := m.tokens.ValidateToken(token)
		if err != nil {
			m.logger.Debug("token validation failed", "error", err)
			if errors.Is(err, auth.ErrExpiredToken) {
				writeUnauthorized(w, r, "Token has expired")
				return
			}
			writeUnauthorized(w, r, "Invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims)))
	})
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request, message string) {
	apierrors.WriteErrorWithRequestID(w, apierrors.NewUnauthorizedError(message), middleware.GetReqID(r.Context()))
}
