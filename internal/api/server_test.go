package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/ragstore/internal/config"
	"github.com/dgallion1/ragstore/internal/embedding"
	"github.com/dgallion1/ragstore/internal/processor"
	"github.com/dgallion1/ragstore/internal/splitter"
	"github.com/dgallion1/ragstore/internal/store"
)

// fakeEmbeddings serves deterministic 2-dim vectors keyed on text length.
func fakeEmbeddings(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode embeddings request: %v", err)
		}
		type item struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		var data []item
		for i, text := range req.Input {
			data = append(data, item{Index: i, Embedding: []float32{float32(len(text)), 1}})
		}
		json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
}

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	embedSrv := fakeEmbeddings(t)
	t.Cleanup(embedSrv.Close)

	dataDir := t.TempDir()
	st, err := store.Open(dataDir+"/db", log)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	embedder := embedding.NewClient(embedding.Config{
		BaseURL: embedSrv.URL,
		APIKey:  "test",
		Timeout: 5 * time.Second,
	})
	proc := processor.New(st, embedder, splitter.DefaultConfig(), dataDir, log)

	cfg := config.Config{MaxUploadBytes: 1 << 20}
	return NewServer(st, proc, nil, log, cfg), st
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func uploadMarkdown(t *testing.T, srv *Server, filename, content string) string {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("upload failed: %d %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		DocumentID string `json:"document_id"`
		Chunks     int    `json:"chunks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.DocumentID == "" || resp.Chunks == 0 {
		t.Fatalf("unexpected upload response: %s", rec.Body.String())
	}
	return resp.DocumentID
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]any
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["status"] != "ok" {
		t.Errorf("unexpected health response: %v", resp)
	}
}

func TestUploadThenQueryFlow(t *testing.T) {
	srv, st := newTestServer(t)
	docID := uploadMarkdown(t, srv, "guide.md", "# Setup\ninstall it\n# Usage\nrun it")

	if docs, _ := st.Stats(); docs != 1 {
		t.Fatalf("expected 1 stored document, got %d", docs)
	}

	// Vector query returns ranked results.
	rec := doJSON(t, srv, http.MethodPost, "/api/query", map[string]any{"query": "setup"})
	if rec.Code != http.StatusOK {
		t.Fatalf("query failed: %d %s", rec.Code, rec.Body.String())
	}
	var queryResp struct {
		Results []struct {
			Content string  `json:"content"`
			Score   float64 `json:"score"`
		} `json:"results"`
	}
	json.Unmarshal(rec.Body.Bytes(), &queryResp)
	if len(queryResp.Results) == 0 {
		t.Fatal("expected query results")
	}

	// Catalog query groups by section.
	rec = doJSON(t, srv, http.MethodPost, "/api/query/catalog", map[string]any{"query": "usage"})
	var catResp struct {
		Results []struct {
			CatalogPath string   `json:"catalog_path"`
			Chunks      []string `json:"chunks"`
		} `json:"results"`
	}
	json.Unmarshal(rec.Body.Bytes(), &catResp)
	if len(catResp.Results) != 1 || catResp.Results[0].CatalogPath != "Usage" {
		t.Fatalf("unexpected catalog results: %s", rec.Body.String())
	}

	// Document inspection endpoints.
	rec = doJSON(t, srv, http.MethodGet, "/api/documents/"+docID+"/chunks", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("chunks failed: %d", rec.Code)
	}
	rec = doJSON(t, srv, http.MethodGet, "/api/documents/"+docID+"/catalog", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Setup") {
		t.Fatalf("catalog endpoint failed: %d %s", rec.Code, rec.Body.String())
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/api/documents/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestUpload_RejectsUnsupportedType(t *testing.T) {
	srv, _ := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "evil.exe")
	fw.Write([]byte("binary"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unsupported type, got %d", rec.Code)
	}
}

func TestUpdateParsedReindexes(t *testing.T) {
	srv, st := newTestServer(t)
	docID := uploadMarkdown(t, srv, "doc.md", "# Old\noriginal body")

	rec := doJSON(t, srv, http.MethodPut, "/api/documents/"+docID+"/parsed", map[string]any{
		"content": "# New\nreplaced body",
		"reindex": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update failed: %d %s", rec.Code, rec.Body.String())
	}

	chunks := st.ChunksByDocument(docID)
	if len(chunks) != 1 || !strings.Contains(chunks[0].Content, "replaced body") {
		t.Fatalf("expected reindexed chunks, got %+v", chunks)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/documents/"+docID+"/parsed", nil)
	if !strings.Contains(rec.Body.String(), "replaced body") {
		t.Errorf("parsed snapshot not updated: %s", rec.Body.String())
	}
}

func TestSmartQuery_UnavailableWithoutLLM(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/api/query/smart", map[string]any{"query": "anything"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without llm, got %d", rec.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	var logBuf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logBuf, nil))
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	handler := AuthMiddleware("secret", log)(next)

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with invalid token, got %d", rec.Code)
	}
	if !strings.Contains(logBuf.String(), "invalid api key") {
		t.Error("rejected key not logged")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with valid token, got %d", rec.Code)
	}
}

func TestRequestLogger_TagsRequestID(t *testing.T) {
	var logBuf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logBuf, nil))
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	handler := chimiddleware.RequestID(RequestLogger(log)(next))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	out := logBuf.String()
	if !strings.Contains(out, "status=204") {
		t.Errorf("status not logged: %q", out)
	}
	idx := strings.Index(out, "request_id=")
	if idx < 0 {
		t.Fatalf("request id not logged: %q", out)
	}
	rest := out[idx+len("request_id="):]
	if rest == "" || rest[0] == '\n' || rest[0] == ' ' {
		t.Errorf("request id empty in log line: %q", out)
	}
}
