package api

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/ragstore/internal/catalog"
	"github.com/dgallion1/ragstore/internal/store"
)

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs := s.store.ListDocuments()
	if docs == nil {
		docs = []store.DocumentMetadata{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.store.GetDocument(chi.URLParam(r, "documentID"))
	if !ok {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

type chunkItem struct {
	Content  string         `json:"content"`
	Metadata store.Metadata `json:"metadata"`
}

func (s *Server) handleGetChunks(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentID")
	if _, ok := s.store.GetDocument(documentID); !ok {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	records := s.store.ChunksByDocument(documentID)
	items := make([]chunkItem, len(records))
	for i, c := range records {
		items[i] = chunkItem{Content: c.Content, Metadata: c.Metadata}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document_id": documentID,
		"chunks":      items,
	})
}

func (s *Server) handleGetParsed(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.store.GetDocument(chi.URLParam(r, "documentID"))
	if !ok {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	content, err := os.ReadFile(doc.ParsedPath)
	if err != nil {
		jsonError(w, "parsed document not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document_id": doc.DocumentID,
		"content":     string(content),
	})
}

type updateParsedRequest struct {
	Content string `json:"content"`
	Reindex bool   `json:"reindex"`
}

func (s *Server) handleUpdateParsed(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.store.GetDocument(chi.URLParam(r, "documentID"))
	if !ok {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}

	var payload updateParsedRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.Content == "" {
		jsonError(w, "content is required", http.StatusBadRequest)
		return
	}

	if err := s.processor.UpdateParsed(r.Context(), doc, payload.Content, payload.Reindex); err != nil {
		jsonError(w, "failed to update document: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"document_id": doc.DocumentID,
		"content":     payload.Content,
	})
}

type catalogEntry struct {
	Level     int    `json:"level"`
	Title     string `json:"title"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	FullPath  string `json:"full_path"`
}

// handleGetCatalog re-extracts the section tree from the parsed snapshot.
// Catalog trees are not persisted; chunk metadata carries their flattened
// knowledge and this endpoint rebuilds the tree on demand.
func (s *Server) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.store.GetDocument(chi.URLParam(r, "documentID"))
	if !ok {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	content, err := os.ReadFile(doc.ParsedPath)
	if err != nil {
		jsonError(w, "parsed document not found", http.StatusNotFound)
		return
	}

	cat, _ := catalog.Extract(string(content))
	entries := make([]catalogEntry, cat.Len())
	for i := range cat.Nodes {
		entries[i] = catalogEntry{
			Level:     cat.Nodes[i].Level,
			Title:     cat.Nodes[i].Title,
			StartLine: cat.Nodes[i].StartLine,
			EndLine:   cat.Nodes[i].EndLine,
			FullPath:  cat.Path(i),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document_id": doc.DocumentID,
		"catalog":     entries,
	})
}
