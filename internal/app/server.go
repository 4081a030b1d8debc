package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/inkwelldocs/inkwell/internal/api/handlers"
	middleware "github.com/inkwelldocs/inkwell/internal/api/middlewares"
	"github.com/inkwelldocs/inkwell/internal/config"
	"github.com/inkwelldocs/inkwell/internal/core"
	"github.com/inkwelldocs/inkwell/internal/jobs"
	"github.com/inkwelldocs/inkwell/internal/services"
)

// Handlers bundles everything the route table needs.
type Handlers struct {
	Users      *services.UserService
	Documents  *services.DocumentService
	Extraction *services.ExtractionService
	Retrieval  *services.RetrievalService
	QA         *services.QAService
	Entities   core.EntityExtractor
	DB         core.DbClient
	Jobs       *jobs.Store
}

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	log        *zap.Logger
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, h *Handlers, log *zap.Logger) *Server {
	authHandler := handlers.NewAuthHandler(h.Users, cfg.JWTSecret)
	docHandler := handlers.NewDocumentHandler(h.Documents, h.Extraction, h.Jobs, log)
	searchHandler := handlers.NewRetrievalHandler(h.Documents, h.Retrieval, cfg.QATopK, log)
	qaHandler := handlers.NewQAHandler(h.Documents, h.Retrieval, h.QA, h.Entities, h.Jobs, cfg.QATopK, log)
	jobsHandler := handlers.NewJobsHandler(h.Jobs, log)
	entitiesHandler := handlers.NewEntitiesHandler(h.Documents, h.DB, h.Entities, log)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(120 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8888"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(api chi.Router) {
		// public endpoints
		api.Post("/signup", authHandler.Signup)
		api.Post("/login", authHandler.Login)

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(middleware.JWT(cfg.JWTSecret))

			protected.Post("/documents/upload", docHandler.Upload)
			protected.Get("/documents", docHandler.List)
			protected.Post("/documents/{document_id}/extract", docHandler.Extract)
			protected.Post("/documents/{document_id}/extract/async", docHandler.ExtractAsync)
			protected.Post("/documents/{document_id}/search", searchHandler.Search)
			protected.Post("/documents/{document_id}/ask", qaHandler.Ask)
			protected.Post("/documents/{document_id}/ask/async", qaHandler.AskAsync)
			protected.Get("/documents/{document_id}/entities", entitiesHandler.List)
			protected.Get("/jobs/{job_id}", jobsHandler.Get)
		})
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv, log: log}
}

// Start runs the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.log.Info("http server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}
