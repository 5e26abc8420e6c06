package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/config"
	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/pipeline"
)

// CollectionAdmin manages vector store collections. It may be nil when no
// store is configured.
type CollectionAdmin interface {
	EnsureCollection(ctx context.Context, collection string) error
	DeleteCollection(ctx context.Context, collection string) error
}

// Server is the HTTP API server for document ingestion.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	collections  CollectionAdmin
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, collections CollectionAdmin, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		collections:  collections,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/ingest", s.handleIngest)
		r.Get("/api/ingest/{jobID}/status", s.handleIngestStatus)
		r.Get("/api/ingest/{jobID}/records", s.handleIngestRecords)
		r.Post("/api/ingest/batch", s.handleBatchIngest)
		r.Get("/api/stats/partition", s.handlePartitionStats)

		r.Put("/api/collections/{name}", s.handleEnsureCollection)
		r.Delete("/api/collections/{name}", s.handleDeleteCollection)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
