package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/ragstore/internal/splitter"
)

// ErrDocumentNotFound is returned by mutating calls that target an unknown
// document. Read calls report not-found as an empty result instead.
var ErrDocumentNotFound = errors.New("document not found")

// Metadata is the closed set of per-chunk fields plus an open extension map.
type Metadata struct {
	Source        string            `json:"source"`
	Filename      string            `json:"filename"`
	ChunkIndex    int               `json:"chunk_index"`
	CreatedAt     string            `json:"created_at"`
	CatalogPath   string            `json:"catalog_path,omitempty"`
	CatalogTitle  string            `json:"catalog_title,omitempty"`
	CatalogLevel  int               `json:"catalog_level,omitempty"`
	IsSubchunk    bool              `json:"is_subchunk,omitempty"`
	SubChunkIndex int               `json:"sub_chunk_index,omitempty"`
	Extra         map[string]string `json:"extra,omitempty"`
}

// ChunkRecord is one stored unit of retrievable text.
type ChunkRecord struct {
	ChunkID    string    `json:"chunk_id"`
	DocumentID string    `json:"document_id"`
	Content    string    `json:"content"`
	Vector     []float32 `json:"vector"`
	Metadata   Metadata  `json:"metadata"`
}

// DocumentMetadata is the record kept for one ingested source file.
type DocumentMetadata struct {
	DocumentID  string    `json:"document_id"`
	Filename    string    `json:"filename"`
	SourcePath  string    `json:"source_path"`
	ParsedPath  string    `json:"parsed_path"`
	CreatedAt   time.Time `json:"created_at"`
	NumChunks   int       `json:"num_chunks"`
	ContentType string    `json:"content_type"`
}

// Store owns the chunk and document collections and their two durable
// artifacts. Reads take the shared lock; every mutation holds the exclusive
// lock across the in-memory change and the paired persistence write, and
// rolls the memory back if the write fails.
type Store struct {
	mu sync.RWMutex

	dir        string
	chunksPath string
	docsPath   string

	chunks []ChunkRecord
	docs   []DocumentMetadata

	log *slog.Logger
}

// Open loads the durable state under dir into a new Store. Missing artifacts
// start the store empty; artifacts that exist but cannot be parsed are a
// fatal error, never silently dropped.
func Open(dir string, log *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	s := &Store{
		dir:        dir,
		chunksPath: filepath.Join(dir, "chunks.json"),
		docsPath:   filepath.Join(dir, "documents.json"),
		log:        log,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	s.log.Info("store loaded", "dir", dir, "documents", len(s.docs), "chunks", len(s.chunks))
	return s, nil
}

func (s *Store) load() error {
	if data, err := os.ReadFile(s.chunksPath); err == nil {
		if err := json.Unmarshal(data, &s.chunks); err != nil {
			return fmt.Errorf("corrupt chunk index %s: %w", s.chunksPath, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read chunk index: %w", err)
	}

	if data, err := os.ReadFile(s.docsPath); err == nil {
		if err := json.Unmarshal(data, &s.docs); err != nil {
			return fmt.Errorf("corrupt document index %s: %w", s.docsPath, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read document index: %w", err)
	}

	return nil
}

// persistLocked rewrites both artifacts. Caller holds the write lock.
// Both files are staged as temp files first and renamed into place so a
// crash mid-write never leaves a half-written artifact behind.
func (s *Store) persistLocked() error {
	chunkData, err := json.Marshal(s.chunks)
	if err != nil {
		return fmt.Errorf("marshal chunks: %w", err)
	}
	docData, err := json.MarshalIndent(s.docs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal documents: %w", err)
	}

	chunkTmp, err := writeTemp(s.dir, "chunks-*.json", chunkData)
	if err != nil {
		return err
	}
	docTmp, err := writeTemp(s.dir, "documents-*.json", docData)
	if err != nil {
		os.Remove(chunkTmp)
		return err
	}

	if err := os.Rename(chunkTmp, s.chunksPath); err != nil {
		os.Remove(chunkTmp)
		os.Remove(docTmp)
		return fmt.Errorf("replace chunk index: %w", err)
	}
	if err := os.Rename(docTmp, s.docsPath); err != nil {
		os.Remove(docTmp)
		return fmt.Errorf("replace document index: %w", err)
	}

	s.log.Debug("store persisted", "documents", len(s.docs), "chunks", len(s.chunks))
	return nil
}

func writeTemp(dir, pattern string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	name := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return name, nil
}

// AddDocumentParams carries one ingestion into the store. Chunks and Vectors
// must have equal length. Meta entries are matched to chunks by index; a
// shorter Meta list is tolerated, missing entries mean no structural metadata.
type AddDocumentParams struct {
	Filename    string
	SourcePath  string
	ParsedPath  string
	ContentType string
	Chunks      []string
	Vectors     [][]float32
	Meta        []splitter.ChunkMeta
}

// AddDocument assigns a fresh document id, appends one chunk record per
// (chunk, vector) pair and the document record, and persists the full state
// before returning.
func (s *Store) AddDocument(p AddDocumentParams) (DocumentMetadata, error) {
	if len(p.Chunks) == 0 {
		return DocumentMetadata{}, errors.New("add document: empty chunk list")
	}
	if len(p.Chunks) != len(p.Vectors) {
		return DocumentMetadata{}, fmt.Errorf("add document: %d chunks but %d vectors", len(p.Chunks), len(p.Vectors))
	}

	createdAt := time.Now().UTC()
	doc := DocumentMetadata{
		DocumentID:  uuid.NewString(),
		Filename:    p.Filename,
		SourcePath:  p.SourcePath,
		ParsedPath:  p.ParsedPath,
		CreatedAt:   createdAt,
		NumChunks:   len(p.Chunks),
		ContentType: p.ContentType,
	}
	records := buildChunkRecords(doc.DocumentID, p.SourcePath, p.Filename, createdAt, p.Chunks, p.Vectors, p.Meta)

	s.mu.Lock()
	defer s.mu.Unlock()

	prevChunks, prevDocs := s.chunks, s.docs
	s.chunks = append(s.chunks, records...)
	s.docs = append(s.docs, doc)

	if err := s.persistLocked(); err != nil {
		s.chunks, s.docs = prevChunks, prevDocs
		return DocumentMetadata{}, fmt.Errorf("persist after add: %w", err)
	}

	s.log.Info("document added",
		"document_id", doc.DocumentID,
		"filename", doc.Filename,
		"chunks", doc.NumChunks,
	)
	return doc, nil
}

func buildChunkRecords(docID, source, filename string, createdAt time.Time, chunks []string, vectors [][]float32, meta []splitter.ChunkMeta) []ChunkRecord {
	records := make([]ChunkRecord, 0, len(chunks))
	for i, content := range chunks {
		md := Metadata{
			Source:     source,
			Filename:   filename,
			ChunkIndex: i,
			CreatedAt:  createdAt.Format(time.RFC3339),
		}
		if i < len(meta) {
			md.CatalogPath = meta[i].CatalogPath
			md.CatalogTitle = meta[i].CatalogTitle
			md.CatalogLevel = meta[i].CatalogLevel
			md.IsSubchunk = meta[i].IsSubchunk
			md.SubChunkIndex = meta[i].SubChunkIndex
		}
		records = append(records, ChunkRecord{
			ChunkID:    fmt.Sprintf("%s:%d", docID, i),
			DocumentID: docID,
			Content:    content,
			Vector:     vectors[i],
			Metadata:   md,
		})
	}
	return records
}

// ReplaceChunks swaps out the whole chunk set of an existing document. Used
// by the content-update flow after a parsed snapshot is edited and re-embedded.
func (s *Store) ReplaceChunks(documentID string, chunks []string, vectors [][]float32, meta []splitter.ChunkMeta) error {
	if len(chunks) == 0 {
		return errors.New("replace chunks: empty chunk list")
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("replace chunks: %d chunks but %d vectors", len(chunks), len(vectors))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docIdx := -1
	for i := range s.docs {
		if s.docs[i].DocumentID == documentID {
			docIdx = i
			break
		}
	}
	if docIdx < 0 {
		return fmt.Errorf("replace chunks for %s: %w", documentID, ErrDocumentNotFound)
	}

	doc := s.docs[docIdx]
	records := buildChunkRecords(documentID, doc.SourcePath, doc.Filename, time.Now().UTC(), chunks, vectors, meta)

	newChunks := make([]ChunkRecord, 0, len(s.chunks)-doc.NumChunks+len(records))
	for _, c := range s.chunks {
		if c.DocumentID != documentID {
			newChunks = append(newChunks, c)
		}
	}
	newChunks = append(newChunks, records...)

	newDocs := make([]DocumentMetadata, len(s.docs))
	copy(newDocs, s.docs)
	newDocs[docIdx].NumChunks = len(chunks)

	prevChunks, prevDocs := s.chunks, s.docs
	s.chunks, s.docs = newChunks, newDocs

	if err := s.persistLocked(); err != nil {
		s.chunks, s.docs = prevChunks, prevDocs
		return fmt.Errorf("persist after replace: %w", err)
	}

	s.log.Info("document chunks replaced", "document_id", documentID, "chunks", len(chunks))
	return nil
}

// ListDocuments returns all document records in insertion order.
func (s *Store) ListDocuments() []DocumentMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]DocumentMetadata, len(s.docs))
	copy(out, s.docs)
	return out
}

// GetDocument returns the record for documentID, or false if unknown.
func (s *Store) GetDocument(documentID string) (DocumentMetadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.docs {
		if s.docs[i].DocumentID == documentID {
			return s.docs[i], true
		}
	}
	return DocumentMetadata{}, false
}

// ChunksByDocument returns the document's chunks in stored order. An unknown
// id yields an empty slice.
func (s *Store) ChunksByDocument(documentID string) []ChunkRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ChunkRecord
	for _, c := range s.chunks {
		if c.DocumentID == documentID {
			out = append(out, c)
		}
	}
	return out
}

// Stats returns the document and chunk counts.
func (s *Store) Stats() (documents, chunks int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), len(s.chunks)
}

// Clear empties the in-memory state and deletes both durable artifacts.
// Idempotent: clearing an already-empty store is a no-op. The in-memory
// state is emptied unconditionally; if an artifact cannot be removed, both
// artifacts are rewritten from the now-empty collections so disk and memory
// never disagree.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, chunks := len(s.docs), len(s.chunks)
	s.chunks = nil
	s.docs = nil

	removed := true
	for _, path := range []string{s.chunksPath, s.docsPath} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("failed to remove store artifact", "path", path, "error", err)
			removed = false
		}
	}
	if !removed {
		if err := s.persistLocked(); err != nil {
			return fmt.Errorf("clear store: %w", err)
		}
	}

	s.log.Info("store cleared", "documents_removed", docs, "chunks_removed", chunks)
	return nil
}
