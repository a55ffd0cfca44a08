package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dgallion1/ragstore/internal/api"
	"github.com/dgallion1/ragstore/internal/config"
	"github.com/dgallion1/ragstore/internal/embedding"
	"github.com/dgallion1/ragstore/internal/llm"
	"github.com/dgallion1/ragstore/internal/processor"
	"github.com/dgallion1/ragstore/internal/splitter"
	"github.com/dgallion1/ragstore/internal/store"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	st, err := store.Open(filepath.Join(cfg.DataDir, "db"), log)
	if err != nil {
		log.Error("failed to open store", "error", err)
		os.Exit(1)
	}

	embedder := embedding.NewClient(embedding.Config{
		BaseURL:   cfg.EmbeddingAPIBase,
		APIKey:    cfg.EmbeddingAPIKey,
		Model:     cfg.EmbeddingModel,
		BatchSize: cfg.EmbedBatchSize,
		Timeout:   cfg.EmbedTimeout,
	})

	var llmClient *llm.Client
	if cfg.LLMConfigured() {
		llmClient = llm.NewClient(cfg.OpenAIAPIBase, cfg.OpenAIAPIKey, cfg.ModelName)
	} else {
		log.Warn("answer generation disabled: OPENAI_API_BASE/OPENAI_API_KEY not set")
	}

	proc := processor.New(st, embedder, splitter.Config{
		MinChunkSize: cfg.MinChunkSize,
		MaxChunkSize: cfg.MaxChunkSize,
	}, cfg.DataDir, log)

	srv := api.NewServer(st, proc, llmClient, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting ragstore", "port", cfg.Port, "data_dir", cfg.DataDir)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
