// Package server wires handlers, middleware and routes, and runs the HTTP
// server with graceful shutdown.
//
// DEPENDENCY INJECTION FLOW:
// cmd/server opens the store (and optionally the cache) and passes them in:
//
//	ImageRepository (+ ListCache) → ImageService → ImageHandler / PageHandler
//
// The store is opened once per process and shared by every request.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/visions/internal/cache"
	"github.com/sakif/visions/internal/config"
	"github.com/sakif/visions/internal/handler"
	"github.com/sakif/visions/internal/middleware"
	"github.com/sakif/visions/internal/repository"
	"github.com/sakif/visions/internal/service"
)

// Deps are the long-lived resources the server uses. Cache may be nil.
type Deps struct {
	Repo  repository.ImageRepository
	Cache cache.ListCache
}

// Server represents the HTTP server and all its dependencies.
// It owns the store and closes it on shutdown.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	repo    repository.ImageRepository
	closers []io.Closer
}

// New creates a Server and registers its routes.
func New(cfg *config.Config, logger *slog.Logger, deps Deps) (*Server, error) {
	if deps.Repo == nil {
		return nil, errors.New("server: repository is required")
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		repo:   deps.Repo,
	}
	if c, ok := deps.Cache.(io.Closer); ok {
		s.closers = append(s.closers, c)
	}

	svc := service.NewImageService(deps.Repo, logger, service.Options{
		StrictNotFound: cfg.API.StrictNotFound,
		Cache:          deps.Cache,
	})
	if err := s.setupRoutes(svc); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /                  → Gallery page (HTML)
// GET    /healthz           → Store health (JSON)
// GET    /api/images        → List images, newest first
// POST   /api/images        → Create image
// GET    /api/images/{id}   → Get one image
// PUT    /api/images/{id}   → Replace url, title, description
// DELETE /api/images/{id}   → Delete image
//
// MIDDLEWARE ORDER:
// 1. RequestID assigns the id the logger prints
// 2. RealIP extracts the client IP from proxy headers
// 3. Logger logs each request with timing info
// 4. Recoverer turns a panic into a 500
func (s *Server) setupRoutes(svc *service.ImageService) error {
	s.router.Use(middleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	pageHandler, err := handler.NewPageHandler(svc, s.logger)
	if err != nil {
		return fmt.Errorf("creating page handler: %w", err)
	}
	imageHandler := handler.NewImageHandler(svc, s.logger)

	s.router.Get("/", pageHandler.HandleGallery)
	s.router.Get("/healthz", imageHandler.HandleHealth)

	s.router.Route("/api/images", func(r chi.Router) {
		r.Get("/", imageHandler.HandleList)
		r.Post("/", imageHandler.HandleCreate)
		r.Get("/{id}", imageHandler.HandleGet)
		r.Put("/{id}", imageHandler.HandleUpdate)
		r.Delete("/{id}", imageHandler.HandleDelete)
	})

	return nil
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests and
// closes the store.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run serves until ctx is cancelled.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new connections
// 2. Wait up to server.shutdownTimeout for in-flight requests
// 3. Close the cache client and the store
func (s *Server) Run(ctx context.Context) error {
	defer s.close()

	srv := &http.Server{
		Addr:         s.config.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("store", s.config.Store.Driver),
			slog.Bool("cache", s.config.Cache.RedisAddr != ""),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

func (s *Server) close() {
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			s.logger.Warn("failed to close cache", slog.String("error", err.Error()))
		}
	}
	if err := s.repo.Close(); err != nil {
		s.logger.Error("failed to close store", slog.String("error", err.Error()))
	}
}
