// Package processor wires parsing, splitting, embedding and storage into the
// ingestion flows: single file, uploaded bytes, whole directory, and the
// content-update path that re-chunks an edited parsed snapshot.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dgallion1/ragstore/internal/embedding"
	"github.com/dgallion1/ragstore/internal/parser"
	"github.com/dgallion1/ragstore/internal/splitter"
	"github.com/dgallion1/ragstore/internal/store"
)

// ErrNoText is returned when a parser produced no usable text for a file.
var ErrNoText = errors.New("no text extracted")

type Processor struct {
	store    *store.Store
	embedder *embedding.Client
	splitCfg splitter.Config
	dataDir  string
	log      *slog.Logger
}

func New(st *store.Store, embedder *embedding.Client, splitCfg splitter.Config, dataDir string, log *slog.Logger) *Processor {
	return &Processor{
		store:    st,
		embedder: embedder,
		splitCfg: splitCfg,
		dataDir:  dataDir,
		log:      log,
	}
}

// Embedder exposes the embedding client for query-time use.
func (p *Processor) Embedder() *embedding.Client { return p.embedder }

// ProcessPath ingests one file: parse, snapshot the parsed text, split,
// embed, and store.
func (p *Processor) ProcessPath(ctx context.Context, path string) (store.DocumentMetadata, error) {
	filename := filepath.Base(path)
	pr, contentType, err := parser.ForFile(filename)
	if err != nil {
		return store.DocumentMetadata{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return store.DocumentMetadata{}, fmt.Errorf("open %s: %w", path, err)
	}
	text, err := pr.Parse(f, filename)
	f.Close()
	if err != nil {
		return store.DocumentMetadata{}, fmt.Errorf("parse %s: %w", filename, err)
	}
	if strings.TrimSpace(text) == "" {
		return store.DocumentMetadata{}, fmt.Errorf("%s: %w", filename, ErrNoText)
	}

	res := splitter.Split(text, p.splitCfg)
	if len(res.Chunks) == 0 {
		return store.DocumentMetadata{}, fmt.Errorf("%s: chunking produced no output", filename)
	}

	vectors, err := p.embedder.Embed(ctx, res.Chunks)
	if err != nil {
		return store.DocumentMetadata{}, fmt.Errorf("embed %s: %w", filename, err)
	}

	parsedPath, err := p.writeParsedSnapshot(filename, text)
	if err != nil {
		return store.DocumentMetadata{}, err
	}

	doc, err := p.store.AddDocument(store.AddDocumentParams{
		Filename:    filename,
		SourcePath:  path,
		ParsedPath:  parsedPath,
		ContentType: contentType,
		Chunks:      res.Chunks,
		Vectors:     vectors,
		Meta:        res.Meta,
	})
	if err != nil {
		return store.DocumentMetadata{}, err
	}

	p.log.Info("processed document",
		"filename", filename,
		"document_id", doc.DocumentID,
		"chunks", doc.NumChunks,
		"catalog_sections", res.Catalog.Len(),
	)
	return doc, nil
}

// ProcessDirectory ingests every supported file directly under dir using a
// bounded worker pool. Individual file failures are logged and skipped; the
// processed count is returned.
func (p *Processor) ProcessDirectory(ctx context.Context, dir string, workers int) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read directory: %w", err)
	}
	if workers <= 0 {
		workers = 1
	}

	paths := make(chan string)
	var wg sync.WaitGroup
	var mu sync.Mutex
	processed := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range paths {
				if _, err := p.ProcessPath(ctx, path); err != nil {
					p.log.Warn("skipping file", "path", path, "error", err)
					continue
				}
				mu.Lock()
				processed++
				mu.Unlock()
			}
		}()
	}

	for _, entry := range entries {
		if entry.IsDir() || !parser.IsSupportedExtension(entry.Name()) {
			continue
		}
		select {
		case <-ctx.Done():
			close(paths)
			wg.Wait()
			return processed, ctx.Err()
		case paths <- filepath.Join(dir, entry.Name()):
		}
	}
	close(paths)
	wg.Wait()

	return processed, nil
}

// SaveUpload writes uploaded bytes under the origin directory and returns
// the stored path.
func (p *Processor) SaveUpload(filename string, data []byte) (string, error) {
	originDir := filepath.Join(p.dataDir, "origin")
	if err := os.MkdirAll(originDir, 0o755); err != nil {
		return "", fmt.Errorf("create origin dir: %w", err)
	}
	target := filepath.Join(originDir, strings.ReplaceAll(filename, " ", "_"))
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	return target, nil
}

// UpdateParsed overwrites a document's parsed snapshot and, when reindex is
// set, re-splits and re-embeds the content and replaces the stored chunk set.
func (p *Processor) UpdateParsed(ctx context.Context, doc store.DocumentMetadata, content string, reindex bool) error {
	if err := os.MkdirAll(filepath.Dir(doc.ParsedPath), 0o755); err != nil {
		return fmt.Errorf("create parse dir: %w", err)
	}
	if err := os.WriteFile(doc.ParsedPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write parsed snapshot: %w", err)
	}
	if !reindex {
		return nil
	}

	res := splitter.Split(content, p.splitCfg)
	if len(res.Chunks) == 0 {
		return fmt.Errorf("update %s: chunking produced no output", doc.DocumentID)
	}
	vectors, err := p.embedder.Embed(ctx, res.Chunks)
	if err != nil {
		return fmt.Errorf("embed update: %w", err)
	}
	return p.store.ReplaceChunks(doc.DocumentID, res.Chunks, vectors, res.Meta)
}

func (p *Processor) writeParsedSnapshot(filename, text string) (string, error) {
	parseDir := filepath.Join(p.dataDir, "parse")
	if err := os.MkdirAll(parseDir, 0o755); err != nil {
		return "", fmt.Errorf("create parse dir: %w", err)
	}
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	parsedPath := filepath.Join(parseDir, stem+".md")
	if err := os.WriteFile(parsedPath, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write parsed snapshot: %w", err)
	}
	return parsedPath, nil
}
