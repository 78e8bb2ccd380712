// Package api is the HTTP surface of the chunking service.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/docchunk/internal/config"
	"github.com/dgallion1/docchunk/internal/doctree"
	"github.com/dgallion1/docchunk/internal/llm"
	"github.com/dgallion1/docchunk/internal/parser"
	"github.com/dgallion1/docchunk/internal/pipeline"
)

// DocumentStore reads and deletes published documents.
type DocumentStore interface {
	ListChunks(ctx context.Context, owner, docID string) ([]doctree.Chunk, error)
	DeleteDocument(ctx context.Context, owner, docID string) error
}

// StatsSource is an LLM provider that records latency samples.
type StatsSource interface {
	Name() string
	Model() string
	Stats() *llm.LLMStats
}

// Deps are the collaborators behind the handlers. Stats may be nil when no
// LLM provider is configured.
type Deps struct {
	Pipeline   *pipeline.Orchestrator
	Chunker    pipeline.Chunker
	Documents  DocumentStore
	Stats      StatsSource
	ParserOpts parser.Options
}

// Server is the HTTP API server for docchunk.
type Server struct {
	router chi.Router
	deps   Deps
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		deps: deps,
		log:  log,
		cfg:  cfg,
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

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/chunk", s.handleChunk)

		r.Post("/api/ingest", s.handleIngest)
		r.Post("/api/ingest/batch", s.handleBatchIngest)
		r.Get("/api/ingest/{jobID}/status", s.handleIngestStatus)
		r.Get("/api/ingest/{jobID}/result", s.handleIngestResult)

		r.Get("/api/stats/llm", s.handleLLMStats)

		r.Get("/api/documents/{docID}/chunks", s.handleDocumentChunks)
		r.Delete("/api/documents/{docID}", s.handleDeleteDocument)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	if s.deps.Pipeline != nil {
		body["queue_depth"] = s.deps.Pipeline.QueueDepth()
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
