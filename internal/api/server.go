// Package api exposes the lifecycle engine over HTTP: workspace and
// status reads, manual status overrides, tab mutations, review control
// and a server-sent-events stream of engine activity.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mattjoyce/slipway/internal/auth"
	"github.com/mattjoyce/slipway/internal/config"
	"github.com/mattjoyce/slipway/internal/events"
	"github.com/mattjoyce/slipway/internal/gate"
	"github.com/mattjoyce/slipway/internal/lifecycle"
	"github.com/mattjoyce/slipway/internal/review"
	"github.com/mattjoyce/slipway/internal/signal"
	"github.com/mattjoyce/slipway/internal/status"
	"github.com/mattjoyce/slipway/internal/tabs"
	"github.com/mattjoyce/slipway/internal/workspace"
)

// Server is the HTTP API server.
type Server struct {
	cfg        config.APIConfig
	store      *status.Store
	registry   *tabs.Registry
	pipeline   *review.Pipeline
	gate       *gate.Gate
	aggregator *lifecycle.Aggregator
	dir        *workspace.Directory
	ingress    *signal.Ingress
	hub        *events.Hub
	logger     *slog.Logger
	server     *http.Server
	startedAt  time.Time
}

func New(
	cfg config.APIConfig,
	store *status.Store,
	registry *tabs.Registry,
	pipeline *review.Pipeline,
	g *gate.Gate,
	aggregator *lifecycle.Aggregator,
	dir *workspace.Directory,
	ingress *signal.Ingress,
	hub *events.Hub,
	logger *slog.Logger,
) *Server {
	return &Server{
		cfg:        cfg,
		store:      store,
		registry:   registry,
		pipeline:   pipeline,
		gate:       g,
		aggregator: aggregator,
		dir:        dir,
		ingress:    ingress,
		hub:        hub,
		logger:     logger,
		startedAt:  time.Now(),
	}
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.cfg.Listen,
		Handler:      s.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute, // SSE clients hold connections open
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("API server starting", "listen", s.cfg.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// Routes builds the router; exposed for tests.
func (s *Server) Routes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	// Unauthenticated ops endpoint.
	r.Get("/healthz", s.handleHealthz)

	// Protected API.
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/v1/workspaces", s.handleListWorkspaces)
		r.Post("/v1/workspaces", s.handleAddWorkspace)
		r.Delete("/v1/workspaces/{id}", s.handleRemoveWorkspace)
		r.Put("/v1/workspaces/{id}/status", s.handleSetStatus)
		r.Post("/v1/workspaces/{id}/signals", s.handleSignal)

		r.Get("/v1/workspaces/{id}/tabs", s.handleGetTabs)
		r.Post("/v1/workspaces/{id}/tabs", s.handleOpenTab)
		r.Put("/v1/workspaces/{id}/tabs/active", s.handleSetActiveTab)
		r.Delete("/v1/workspaces/{id}/tabs/{tabID}", s.handleCloseTab)

		r.Post("/v1/workspaces/{id}/review", s.handleStartReview)
		r.Get("/v1/workspaces/{id}/review", s.handleGetReview)

		r.Get("/v1/events", s.handleEvents)
	})

	return r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, err := auth.ExtractBearerToken(r)
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		if !auth.ValidateAPIKey(key, s.cfg.APIKey) {
			s.writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}
