package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/saltyorg/dataroute/internal/auth"
	"github.com/saltyorg/dataroute/internal/config"
	"github.com/saltyorg/dataroute/internal/dataroute"
	"github.com/saltyorg/dataroute/internal/web/handlers"
	"github.com/saltyorg/dataroute/internal/web/middleware"
	"github.com/saltyorg/dataroute/internal/web/sse"
)

// Database is what the server needs from the connection beyond the route
type Database interface {
	handlers.Pinger
	handlers.SettingsStore
}

// Options configures a Server
type Options struct {
	Port          int
	Bind          string
	AllowedNet    *net.IPNet
	Authenticator *auth.Authenticator
	Version       handlers.VersionInfo
}

// Server represents the web server
type Server struct {
	db         Database
	port       int
	bind       string
	allowedNet *net.IPNet
	router     *chi.Mux
	auth       *auth.Authenticator
	feed       *sse.Feed
	handlers   *handlers.Handlers
}

// NewServer creates a new web server for route
func NewServer(route *dataroute.Route, db Database, opts Options) *Server {
	s := &Server{
		db:         db,
		port:       opts.Port,
		bind:       opts.Bind,
		allowedNet: opts.AllowedNet,
		router:     chi.NewRouter(),
		auth:       opts.Authenticator,
		feed:       sse.NewFeed(),
	}
	s.handlers = handlers.New(route, db, db, s.feed, opts.Version)

	if !s.auth.Enabled() {
		log.Warn().Msg("No API key or JWT secret configured; data methods are open to every caller")
	}

	s.setupRoutes()
	return s
}

// Feed returns the change feed served at /v1/events
func (s *Server) Feed() *sse.Feed {
	return s.feed
}

// Handler returns the configured router
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	r := s.router
	h := s.handlers
	timeout := config.GetTimeouts().Request

	// Global middleware (applied to all routes, except timeout which is per-group)
	r.Use(chimiddleware.RequestID)
	// AllowSubnet must come BEFORE RealIP so we check the actual connection source
	r.Use(middleware.AllowSubnet(s.allowedNet))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(timeout))
		r.Get("/healthz", h.Health)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.RequireAuth(s.auth))

		// Change feed - no timeout (long-lived connections)
		r.Get("/events", s.feed.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(timeout))
			r.Get("/data", h.Catalogue)
			r.Post("/data/{method}", h.Call)

			// Settings can only be changed by authenticated callers
			if s.auth.Enabled() {
				r.Get("/settings", h.SettingsList)
				r.Put("/settings/{key}", h.SettingsUpdate)
				r.Delete("/settings/{key}", h.SettingsDelete)
			}
		})
	})
}

// Start starts the web server and blocks until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	var addr string
	if s.bind != "" {
		addr = fmt.Sprintf("%s:%d", s.bind, s.port)
	} else {
		addr = fmt.Sprintf(":%d", s.port)
	}

	timeouts := config.GetTimeouts()
	server := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: timeouts.ReadHeader,
		// WriteTimeout disabled (0) to allow SSE long-lived connections
		// Chi middleware timeout protects regular requests
		WriteTimeout: 0,
		// IdleTimeout for keep-alive connections between requests
		IdleTimeout: 120 * time.Second,
	}

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down HTTP server")
		// End change streams first so Shutdown is not held open by them
		s.feed.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errChan:
		s.feed.Stop()
		return err
	}
}
