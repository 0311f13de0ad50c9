// Package server wires the dependency graph — database, credential
// services, business services, handlers — onto a chi router and owns the
// HTTP server lifecycle including graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/poetry-share/internal/auth"
	"github.com/sakif/poetry-share/internal/handler"
	"github.com/sakif/poetry-share/internal/middleware"
	sqliteRepo "github.com/sakif/poetry-share/internal/repository/sqlite"
	"github.com/sakif/poetry-share/internal/service"
)

// Config holds everything the server needs, loaded from the environment
// in cmd/server/main.go.
type Config struct {
	Port       int
	DBPath     string
	JWTSecret  string
	TokenTTL   time.Duration // zero means auth.DefaultTokenTTL
	CORSOrigin string        // allowed browser origin, e.g. "http://localhost:5173"

	// GitHub OAuth is optional; the routes are registered only when the
	// client ID and secret are both set.
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// Server owns the router and the database connection. The connection is
// closed during graceful shutdown in Start.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency chain:
// sqlite.DB → services → handlers → routes.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes() error {
	ttl := s.config.TokenTTL
	if ttl <= 0 {
		ttl = auth.DefaultTokenTTL
	}

	tokens, err := auth.NewTokenServiceWithTTL(s.config.JWTSecret, ttl)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	var github *auth.GitHubProvider
	if s.config.GitHubClientID != "" && s.config.GitHubClientSecret != "" {
		github = auth.NewGitHubProvider(
			s.config.GitHubClientID,
			s.config.GitHubClientSecret,
			s.config.GitHubCallbackURL,
		)
	}

	authService := service.NewAuthService(s.db, tokens, passwords, s.logger)
	poemService := service.NewPoemService(s.db, s.db, s.logger)

	authHandler := handler.NewAuthHandler(authService, github, ttl, s.logger)
	poemHandler := handler.NewPoemHandler(poemService, s.logger)

	// Global middleware, in order: request ID, real client IP, panic
	// recovery, request logging, then CORS for the configured origin.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	allowedOrigins := []string{"http://localhost:3000"}
	if s.config.CORSOrigin != "" {
		allowedOrigins = []string{s.config.CORSOrigin}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// GitHub OAuth entry points live outside /api — they're browser
	// redirects, not JSON endpoints.
	if github != nil {
		s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
		s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	}

	s.router.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		r.With(auth.RequireAuth(tokens)).Get("/checkToken", authHandler.HandleCheckToken)

		r.With(auth.RequireAdmin(tokens)).Get("/user", authHandler.HandleListUsers)
		r.Get("/user/{id}", authHandler.HandleGetUser)
		r.With(auth.RequireAuth(tokens)).Put("/user/{id}", authHandler.HandleUpdateUser)
		r.With(auth.RequireAuth(tokens)).Delete("/user/{id}", authHandler.HandleDeleteUser)

		r.With(auth.RequireSuperAdmin(tokens)).Put("/admin/{id}", authHandler.HandleChangeRole)
	})

	s.router.Route("/api/poetry", func(r chi.Router) {
		r.Get("/", poemHandler.HandleList)
		r.Get("/{id}", poemHandler.HandleGetByID)
		r.Get("/author/{id}", poemHandler.HandleListByAuthor)
		r.Get("/{id}/fav-poems", poemHandler.HandleListLikedBy)

		r.With(auth.RequireAuth(tokens)).Post("/", poemHandler.HandleCreate)
		r.With(auth.RequireAuth(tokens)).Put("/{id}", poemHandler.HandleUpdate)
		r.With(auth.RequireAuth(tokens)).Delete("/{id}", poemHandler.HandleDelete)
		r.With(auth.RequireAuth(tokens)).Put("/{id}/like", poemHandler.HandleToggleLike)
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then drains in-flight
// requests (30s budget) and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
