// Package api provides the HTTP API server for matchday.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/narvanalabs/matchday/internal/api/handlers"
	"github.com/narvanalabs/matchday/internal/api/health"
	"github.com/narvanalabs/matchday/internal/api/middleware"
	"github.com/narvanalabs/matchday/internal/auth"
	"github.com/narvanalabs/matchday/internal/blob"
	"github.com/narvanalabs/matchday/internal/engine"
	"github.com/narvanalabs/matchday/internal/events"
	"github.com/narvanalabs/matchday/internal/store"
	"github.com/narvanalabs/matchday/internal/suggestions"
	"github.com/narvanalabs/matchday/pkg/config"
)

// Version is the current version of the API server.
// This should be set at build time using ldflags.
var Version = "dev"

// requestTimeout bounds every non-streaming request.
const requestTimeout = 30 * time.Second

// Deps holds the collaborators the server routes to.
type Deps struct {
	Store   store.Store
	Engine  *engine.Service
	Broker  *events.Broker
	Auth    *auth.Service
	Ranker  *suggestions.Ranker
	Photos  blob.Uploader
	Limiter *middleware.RateLimiter
}

// Server represents the HTTP API server.
type Server struct {
	router        chi.Router
	httpServer    *http.Server
	deps          Deps
	config        *config.Config
	logger        *slog.Logger
	healthChecker *health.Checker
}

// NewServer creates a new API server with the given dependencies.
func NewServer(cfg *config.Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Photos == nil {
		deps.Photos = blob.Disabled{}
	}
	if deps.Ranker == nil {
		deps.Ranker = suggestions.NewRanker(suggestions.TemplateGenerator{}, logger)
	}

	s := &Server{
		deps:   deps,
		config: cfg,
		logger: logger,
	}

	s.healthChecker = health.NewChecker(deps.Store, Version)
	if cfg.HealthCheckTimeout > 0 {
		s.healthChecker.SetTimeout(cfg.HealthCheckTimeout)
	}
	s.healthChecker.Register("storage", func(ctx context.Context) health.ComponentStatus {
		if _, disabled := deps.Photos.(blob.Disabled); disabled {
			return health.ComponentStatus{Status: health.StatusHealthy, Message: "photo uploads disabled"}
		}
		return health.ComponentStatus{Status: health.StatusHealthy, Message: "configured"}
	})
	if deps.Broker != nil {
		s.healthChecker.Register("events", func(ctx context.Context) health.ComponentStatus {
			return health.ComponentStatus{
				Status:  health.StatusHealthy,
				Message: strconv.Itoa(deps.Broker.SubscriberCount()) + " live subscribers",
			}
		})
	}

	if deps.Limiter != nil {
		s.healthChecker.Register("rate_limiter", func(ctx context.Context) health.ComponentStatus {
			return health.ComponentStatus{
				Status:  health.StatusHealthy,
				Message: strconv.Itoa(deps.Limiter.Len()) + " tracked callers",
			}
		})
	}

	s.setupRouter()
	s.httpServer = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// setupRouter configures the router with middleware and routes.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	if s.config.TrustProxyHeaders {
		// Unauthenticated rate limits key on this address.
		r.Use(chimiddleware.RealIP)
	}
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(middleware.Recovery(s.logger))

	users := s.deps.Store.Users()
	limit := middleware.Limit(s.deps.Limiter)

	r.Get("/health", s.healthChecker.Handler())

	authHandler := handlers.NewAuthHandler(users, s.deps.Auth, s.logger)
	r.Route("/auth", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(requestTimeout))
		r.Use(limit)
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
	})

	profileHandler := handlers.NewProfileHandler(users, s.deps.Photos, s.logger)
	activityHandler := handlers.NewActivityHandler(s.deps.Engine, users, s.logger)
	requestHandler := handlers.NewRequestHandler(s.deps.Engine, users, s.logger)
	messageHandler := handlers.NewMessageHandler(s.deps.Engine, users, s.logger)
	suggestionHandler := handlers.NewSuggestionHandler(s.deps.Engine, users, s.deps.Ranker, s.logger)
	liveHandler := handlers.NewLiveHandler(s.deps.Engine, s.deps.Broker, s.logger)

	r.Route("/v1", func(r chi.Router) {
		authMiddleware := middleware.NewAuthMiddleware(s.deps.Auth, s.logger)
		r.Use(authMiddleware.Authenticate)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(requestTimeout))

			r.Get("/me", profileHandler.Get)
			r.Patch("/me", profileHandler.Update)
			r.Post("/me/photo", profileHandler.UploadPhoto)

			r.Get("/activities", activityHandler.List)
			r.Post("/activities", activityHandler.Create)
			r.Get("/activities/mine", activityHandler.Mine)
			r.Get("/chats", activityHandler.Chats)
			r.Get("/suggestions", suggestionHandler.List)
		})

		r.Route("/activities/{activityID}", func(r chi.Router) {
			r.Use(middleware.ActivityContext)

			r.Group(func(r chi.Router) {
				r.Use(chimiddleware.Timeout(requestTimeout))

				r.Get("/", activityHandler.Get)
				r.Post("/close", activityHandler.Close)
				r.Post("/cancel", activityHandler.Cancel)

				r.With(limit).Post("/requests", requestHandler.Submit)
				r.Post("/requests/{requestID}/decision", requestHandler.Decide)

				r.Get("/messages", messageHandler.List)
				r.With(limit).Post("/messages", messageHandler.Post)
			})

			if s.deps.Broker != nil {
				r.Get("/live", liveHandler.Stream)
			}
		})
	})

	s.router = r
}

// Start starts the HTTP server and blocks until ctx is done or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting API server", "addr", s.httpServer.Addr, "version", Version)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the chi router for testing purposes.
func (s *Server) Router() chi.Router {
	return s.router
}
