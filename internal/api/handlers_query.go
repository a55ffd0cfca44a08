package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dgallion1/ragstore/internal/store"
)

type queryRequest struct {
	Query      string  `json:"query"`
	TopK       int     `json:"top_k"`
	Threshold  float64 `json:"threshold"`
	DocumentID string  `json:"document_id"`
}

func (q *queryRequest) applyDefaults() {
	if q.TopK <= 0 {
		q.TopK = 5
	}
	if q.TopK > 20 {
		q.TopK = 20
	}
	if q.Threshold < 0 {
		q.Threshold = 0
	}
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var payload queryRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.Query == "" {
		jsonError(w, "query is required", http.StatusBadRequest)
		return
	}
	payload.applyDefaults()

	queryVector, err := s.processor.Embedder().EmbedQuery(r.Context(), payload.Query)
	if err != nil {
		jsonError(w, "failed to embed query: "+err.Error(), http.StatusBadGateway)
		return
	}

	results := s.store.Search(queryVector, payload.TopK, payload.Threshold, payload.DocumentID)
	if results == nil {
		results = []store.SearchResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   payload.Query,
		"results": results,
	})
}

type catalogQueryRequest struct {
	Query      string `json:"query"`
	DocumentID string `json:"document_id"`
}

func (s *Server) handleCatalogQuery(w http.ResponseWriter, r *http.Request) {
	var payload catalogQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.Query == "" {
		jsonError(w, "query is required", http.StatusBadRequest)
		return
	}

	results := s.store.SearchCatalogFulltext(payload.Query, payload.DocumentID)
	if results == nil {
		results = []store.CatalogResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   payload.Query,
		"results": results,
	})
}

// handleSmartQuery runs catalog fulltext search first and falls back to
// vector search, then generates an answer over whichever context matched.
func (s *Server) handleSmartQuery(w http.ResponseWriter, r *http.Request) {
	if s.llm == nil {
		jsonError(w, "answer generation not configured", http.StatusServiceUnavailable)
		return
	}

	var payload catalogQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.Query == "" {
		jsonError(w, "query is required", http.StatusBadRequest)
		return
	}

	catalogResults := s.store.SearchCatalogFulltext(payload.Query, payload.DocumentID)
	if len(catalogResults) > 0 {
		contexts := make([]string, len(catalogResults))
		for i, cr := range catalogResults {
			contexts[i] = cr.Content
		}
		answer, err := s.llm.GenerateAnswer(r.Context(), payload.Query, strings.Join(contexts, "\n\n"))
		if err != nil {
			jsonError(w, "failed to generate answer: "+err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"query":           payload.Query,
			"search_type":     "catalog",
			"catalog_results": catalogResults,
			"answer":          answer,
		})
		return
	}

	queryVector, err := s.processor.Embedder().EmbedQuery(r.Context(), payload.Query)
	if err != nil {
		jsonError(w, "failed to embed query: "+err.Error(), http.StatusBadGateway)
		return
	}
	vectorResults := s.store.Search(queryVector, 5, 0.0, payload.DocumentID)
	if vectorResults == nil {
		vectorResults = []store.SearchResult{}
	}

	answer := "No relevant document content was found."
	if len(vectorResults) > 0 {
		top := vectorResults
		if len(top) > 3 {
			top = top[:3]
		}
		contexts := make([]string, len(top))
		for i, vr := range top {
			contexts[i] = vr.Content
		}
		answer, err = s.llm.GenerateAnswer(r.Context(), payload.Query, strings.Join(contexts, "\n\n"))
		if err != nil {
			jsonError(w, "failed to generate answer: "+err.Error(), http.StatusBadGateway)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":          payload.Query,
		"search_type":    "vector",
		"vector_results": vectorResults,
		"answer":         answer,
	})
}

type answerRequest struct {
	Query   string `json:"query"`
	Context string `json:"context"`
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	if s.llm == nil {
		jsonError(w, "answer generation not configured", http.StatusServiceUnavailable)
		return
	}

	var payload answerRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.Query == "" {
		jsonError(w, "query is required", http.StatusBadRequest)
		return
	}

	answer, err := s.llm.GenerateAnswer(r.Context(), payload.Query, payload.Context)
	if err != nil {
		jsonError(w, "failed to generate answer: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":  payload.Query,
		"answer": answer,
	})
}
