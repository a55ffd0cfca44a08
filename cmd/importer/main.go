// Command importer bulk-ingests every supported file in a directory into the
// store, optionally clearing existing state first.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dgallion1/ragstore/internal/config"
	"github.com/dgallion1/ragstore/internal/embedding"
	"github.com/dgallion1/ragstore/internal/processor"
	"github.com/dgallion1/ragstore/internal/splitter"
	"github.com/dgallion1/ragstore/internal/store"
)

func main() {
	dir := flag.String("dir", "", "directory of documents to import")
	reset := flag.Bool("reset", false, "clear the store before importing")
	workers := flag.Int("workers", 0, "concurrent files (default IMPORT_WORKERS)")
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if *dir == "" {
		log.Error("-dir is required")
		os.Exit(2)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if *workers <= 0 {
		*workers = cfg.ImportWorkers
	}

	st, err := store.Open(filepath.Join(cfg.DataDir, "db"), log)
	if err != nil {
		log.Error("failed to open store", "error", err)
		os.Exit(1)
	}

	if *reset {
		if err := st.Clear(); err != nil {
			log.Error("failed to clear store", "error", err)
			os.Exit(1)
		}
	}

	embedder := embedding.NewClient(embedding.Config{
		BaseURL:   cfg.EmbeddingAPIBase,
		APIKey:    cfg.EmbeddingAPIKey,
		Model:     cfg.EmbeddingModel,
		BatchSize: cfg.EmbedBatchSize,
		Timeout:   cfg.EmbedTimeout,
	})

	proc := processor.New(st, embedder, splitter.Config{
		MinChunkSize: cfg.MinChunkSize,
		MaxChunkSize: cfg.MaxChunkSize,
	}, cfg.DataDir, log)

	processed, err := proc.ProcessDirectory(context.Background(), *dir, *workers)
	if err != nil {
		log.Error("import failed", "error", err, "processed", processed)
		os.Exit(1)
	}

	documents, chunks := st.Stats()
	log.Info("import complete",
		"processed", processed,
		"documents", documents,
		"chunks", chunks,
	)
}
