// Package server is the composition root: it builds the dependency graph
// from config, mounts the routes, and runs the HTTP server.
//
// DEPENDENCY FLOW:
//
//	config.Config → sqlite.DB (+ optional redis.Store)
//	             → auth.TokenService, auth.PasswordService
//	             → service.MealService, service.UserService
//	             → handler.MealHandler, handler.UserHandler, handler.GitHubHandler
//
// Handlers only see services, services only see repository interfaces.
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
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/daily-diet/internal/auth"
	"github.com/sakif/daily-diet/internal/config"
	"github.com/sakif/daily-diet/internal/handler"
	"github.com/sakif/daily-diet/internal/middleware"
	"github.com/sakif/daily-diet/internal/repository"
	redisRepo "github.com/sakif/daily-diet/internal/repository/redis"
	sqliteRepo "github.com/sakif/daily-diet/internal/repository/sqlite"
	"github.com/sakif/daily-diet/internal/service"
)

const shutdownTimeout = 30 * time.Second

// Server owns the router and every resource that must be released on
// shutdown: the database and, when configured, the Redis client.
type Server struct {
	router  *chi.Mux
	config  config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	closers []io.Closer
}

// New opens storage and wires the routes. Call Close (or Start, which
// closes on return) to release resources.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	revocations, err := s.revocationStore()
	if err != nil {
		s.Close()
		return nil, err
	}

	if err := s.setupRoutes(revocations); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// revocationStore picks Redis when an address is configured and falls back
// to the SQLite table otherwise.
func (s *Server) revocationStore() (repository.RevocationStore, error) {
	if s.config.Redis.Addr == "" {
		return s.db, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := redisRepo.New(ctx, s.config.Redis.Addr, s.config.Redis.Password, s.config.Redis.DB)
	if err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	s.closers = append(s.closers, store)
	s.logger.Info("session revocations stored in redis", slog.String("addr", s.config.Redis.Addr))
	return store, nil
}

// setupRoutes configures middleware and routes.
//
// ROUTES:
//
//	GET    /healthz                public
//	GET    /users                  public
//	POST   /users                  public
//	POST   /users/login            public, session optional
//	POST   /users/logout           session required
//	GET    /users/me               session required
//	GET    /users/github/login     public, only when GitHub is configured
//	GET    /users/github/callback  public, only when GitHub is configured
//	GET    /meals                  session required
//	GET    /meals/summary          session required
//	GET    /meals/{id}             session required
//	POST   /meals                  session required
//	PUT    /meals/{id}             session required
//	DELETE /meals/{id}             session required
//
// MIDDLEWARE ORDER: RequestID → RealIP → Logger → Recoverer. Logger sits
// outside Recoverer so the 500 a recovered panic produces is logged too.
func (s *Server) setupRoutes(revocations repository.RevocationStore) error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	tokens, err := auth.NewTokenService(s.config.Auth.JWTSecret)
	if err != nil {
		return err
	}
	passwords := auth.NewPasswordService(s.config.Auth.BcryptCost)

	mealService := service.NewMealService(s.db, s.logger)
	userService := service.NewUserService(s.db, passwords, tokens, revocations, s.logger)

	mealHandler := handler.NewMealHandler(mealService, s.logger)
	userHandler := handler.NewUserHandler(userService, s.config.Auth.CookieSecure, s.logger)

	requireAuth := auth.RequireAuth(tokens, revocations, s.logger)
	optionalAuth := auth.OptionalAuth(tokens, revocations)

	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/meals", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", mealHandler.HandleList)
		r.Get("/summary", mealHandler.HandleSummary)
		r.Get("/{id}", mealHandler.HandleGet)
		r.Post("/", mealHandler.HandleCreate)
		r.Put("/{id}", mealHandler.HandleUpdate)
		r.Delete("/{id}", mealHandler.HandleDelete)
	})

	s.router.Route("/users", func(r chi.Router) {
		r.Get("/", userHandler.HandleList)
		r.Post("/", userHandler.HandleRegister)
		r.With(optionalAuth).Post("/login", userHandler.HandleLogin)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/logout", userHandler.HandleLogout)
			r.Get("/me", userHandler.HandleMe)
		})

		if s.config.GitHubEnabled() {
			github := auth.NewGitHubProvider(
				s.config.GitHub.ClientID,
				s.config.GitHub.ClientSecret,
				s.config.GitHub.CallbackURL,
			)
			githubHandler := handler.NewGitHubHandler(github, userService, s.config.Auth.CookieSecure, s.logger)
			r.Get("/github/login", githubHandler.HandleLogin)
			r.Get("/github/callback", githubHandler.HandleCallback)
		}
	})

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.db.Ping(r.Context()); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, `{"status":"unavailable"}`+"\n")
		return
	}
	io.WriteString(w, `{"status":"ok"}`+"\n")
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases Redis (if any) and then the database.
func (s *Server) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	errs = append(errs, s.db.Close())
	return errors.Join(errs...)
}

// Start runs the HTTP server until SIGINT or SIGTERM.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new connections
//  2. Wait up to 30s for in-flight requests
//  3. Close Redis and the database (flushes WAL, releases the file lock)
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Server.Port)),
			slog.String("database", s.config.Database.Path),
			slog.Bool("github", s.config.GitHubEnabled()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
