package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/ragstore/internal/config"
	"github.com/dgallion1/ragstore/internal/llm"
	"github.com/dgallion1/ragstore/internal/processor"
	"github.com/dgallion1/ragstore/internal/store"
)

// Server is the HTTP API for the retrieval service.
type Server struct {
	router    chi.Router
	store     *store.Store
	processor *processor.Processor
	llm       *llm.Client // nil when answer generation is not configured
	log       *slog.Logger
	cfg       config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(st *store.Store, proc *processor.Processor, llmClient *llm.Client, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		store:     st,
		processor: proc,
		llm:       llmClient,
		log:       log,
		cfg:       cfg,
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

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/upload", s.handleUpload)

		r.Get("/api/documents", s.handleListDocuments)
		r.Get("/api/documents/{documentID}", s.handleGetDocument)
		r.Get("/api/documents/{documentID}/chunks", s.handleGetChunks)
		r.Get("/api/documents/{documentID}/parsed", s.handleGetParsed)
		r.Put("/api/documents/{documentID}/parsed", s.handleUpdateParsed)
		r.Get("/api/documents/{documentID}/catalog", s.handleGetCatalog)

		r.Post("/api/query", s.handleQuery)
		r.Post("/api/query/catalog", s.handleCatalogQuery)
		r.Post("/api/query/smart", s.handleSmartQuery)
		r.Post("/api/query/answer", s.handleAnswer)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	documents, chunks := s.store.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"documents":       documents,
		"chunks":          chunks,
		"embedding_model": s.processor.Embedder().Model(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
