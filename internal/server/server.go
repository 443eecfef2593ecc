// Package server wires the application together: database, services,
// handlers, routes, and graceful shutdown.
//
// This is the composition root. Every dependency is constructed here and
// handed down — services receive repository interfaces, handlers receive
// services, and nothing below this package knows how its collaborators were
// built.
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

	"github.com/sakif/taskboard/internal/auth"
	"github.com/sakif/taskboard/internal/config"
	"github.com/sakif/taskboard/internal/handler"
	"github.com/sakif/taskboard/internal/middleware"
	sqliteRepo "github.com/sakif/taskboard/internal/repository/sqlite"
	"github.com/sakif/taskboard/internal/service"
)

// Server owns the router and the resources that must be released on
// shutdown — currently just the database connection.
type Server struct {
	router *chi.Mux
	cfg    config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New builds the full dependency chain and registers all routes.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// setupRoutes assembles services and handlers and binds them to URLs.
//
// Middleware order: RequestID first so every later log line can carry it,
// RealIP before logging so the logged peer is the real client, Recoverer
// last so a panic in any handler still produces a 500.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	tokens, err := auth.NewTokenService(s.cfg.JWTSecret, s.cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	var github *auth.GitHubProvider
	if s.cfg.GitHubClientID != "" {
		github = auth.NewGitHubProvider(s.cfg.GitHubClientID, s.cfg.GitHubClientSecret, s.cfg.GitHubCallbackURL)
	}

	authSvc := service.NewAuthService(s.db.Users(), s.db.Invitations(), tokens, passwords, s.logger)
	gate := service.NewAccessService(
		s.db.Access(), s.db.Invitations(), s.db.Users(),
		s.db.Projects(), s.db.Documents(),
		s.cfg.InviteTTL, s.logger,
	)
	projectSvc := service.NewProjectService(s.db.Projects(), gate, s.logger)
	taskSvc := service.NewTaskService(s.db.Tasks(), gate, s.logger)
	ideaSvc := service.NewIdeaService(s.db.Ideas(), gate, s.logger)
	documentSvc := service.NewDocumentService(s.db.Documents(), gate, s.logger)

	authHandler := handler.NewAuthHandler(authSvc, github, s.logger)
	adminHandler := handler.NewAdminHandler(authSvc, gate, s.logger)
	projectHandler := handler.NewProjectHandler(authSvc, projectSvc, s.logger)
	taskHandler := handler.NewTaskHandler(authSvc, taskSvc, s.logger)
	ideaHandler := handler.NewIdeaHandler(authSvc, ideaSvc, s.logger)
	invitationHandler := handler.NewInvitationHandler(authSvc, gate, s.logger)
	documentHandler := handler.NewDocumentHandler(authSvc, documentSvc, s.logger)

	// Public routes: no token required.
	s.router.Post("/auth/register", authHandler.HandleRegister)
	s.router.Post("/auth/login", authHandler.HandleLogin)
	if github != nil {
		s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
		s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	}

	// Everything under /api requires a valid bearer token.
	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))

		r.Get("/me", authHandler.HandleMe)

		r.Route("/admin/users", func(r chi.Router) {
			r.Get("/", adminHandler.HandleListUsers)
			r.Put("/{userID}/privileges", adminHandler.HandleSetPrivileges)
			r.Delete("/{userID}", adminHandler.HandleDeleteUser)
		})

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", projectHandler.HandleList)
			r.Post("/", projectHandler.HandleCreate)
			r.Get("/{projectID}", projectHandler.HandleGet)
			r.Put("/{projectID}", projectHandler.HandleUpdate)
			r.Delete("/{projectID}", projectHandler.HandleDelete)

			r.Get("/{projectID}/tasks", taskHandler.HandleListByProject)
			r.Post("/{projectID}/tasks", taskHandler.HandleCreate)
			r.Get("/{projectID}/ideas", ideaHandler.HandleListByProject)
			r.Post("/{projectID}/ideas", ideaHandler.HandleCreate)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/{taskID}", taskHandler.HandleGet)
			r.Put("/{taskID}", taskHandler.HandleUpdate)
			r.Delete("/{taskID}", taskHandler.HandleDelete)
			r.Post("/{taskID}/assignees", taskHandler.HandleAssign)
			r.Delete("/{taskID}/assignees/{userID}", taskHandler.HandleUnassign)
		})

		r.Route("/ideas", func(r chi.Router) {
			r.Get("/{ideaID}", ideaHandler.HandleGet)
			r.Put("/{ideaID}", ideaHandler.HandleUpdate)
			r.Delete("/{ideaID}", ideaHandler.HandleDelete)
			r.Post("/{ideaID}/vote", ideaHandler.HandleVote)
			r.Delete("/{ideaID}/vote", ideaHandler.HandleUnvote)
		})

		r.Route("/invitations", func(r chi.Router) {
			r.Get("/", invitationHandler.HandleList)
			r.Post("/", invitationHandler.HandleInvite)
			r.Post("/{invitationID}/accept", invitationHandler.HandleAccept)
			r.Post("/{invitationID}/decline", invitationHandler.HandleDecline)
		})

		r.Route("/access/{resourceType}/{resourceID}", func(r chi.Router) {
			r.Get("/", invitationHandler.HandleListGrants)
			r.Delete("/users/{userID}", invitationHandler.HandleRevoke)
		})

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", documentHandler.HandleList)
			r.Post("/", documentHandler.HandleCreate)
			r.Get("/{documentID}", documentHandler.HandleGet)
			r.Put("/{documentID}", documentHandler.HandleUpdate)
			r.Delete("/{documentID}", documentHandler.HandleDelete)
			r.Put("/{documentID}/registers/{register}", documentHandler.HandleUpdateRegister)
			r.Get("/{documentID}/organization-chart", documentHandler.HandleGetOrganizationChart)
			r.Put("/{documentID}/organization-chart", documentHandler.HandleSaveOrganizationChart)
		})
	})

	return nil
}

// Start runs the server until SIGINT/SIGTERM, then shuts down gracefully:
// stop accepting connections, drain in-flight requests for up to 30
// seconds, close the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
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
			slog.Int("port", s.cfg.Port),
			slog.String("database", s.cfg.DBPath),
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
