package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Optional bearer auth for the API; empty disables auth.
	APIKey string

	// Root for durable state: db/ (store artifacts), origin/ (uploads),
	// parse/ (parsed text snapshots).
	DataDir string

	// Embeddings API (required).
	EmbeddingAPIBase string
	EmbeddingAPIKey  string
	EmbeddingModel   string
	EmbedBatchSize   int
	EmbedTimeout     time.Duration

	// Chat completions API for answer generation (optional).
	OpenAIAPIBase string
	OpenAIAPIKey  string
	ModelName     string

	// Chunking
	MinChunkSize int
	MaxChunkSize int

	// Upload limits
	MaxUploadBytes int64

	// Directory import
	ImportWorkers int
}

func Load() Config {
	// A local .env overrides nothing already exported, same as the original
	// service's dotenv behavior.
	_ = godotenv.Load()

	cfg := Config{
		Port: envOr("PORT", "8000"),

		APIKey: os.Getenv("RAGSTORE_API_KEY"),

		DataDir: envOr("DATA_DIR", "./data"),

		EmbeddingAPIBase: envOr("EMBEDDING_API_BASE", "https://api.openai.com/v1"),
		EmbeddingAPIKey:  os.Getenv("EMBEDDING_API_KEY"),
		EmbeddingModel:   envOr("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbedBatchSize:   envInt("EMBED_BATCH_SIZE", 32),
		EmbedTimeout:     envDuration("EMBED_TIMEOUT", 30*time.Second),

		OpenAIAPIBase: os.Getenv("OPENAI_API_BASE"),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		ModelName:     envOr("MODEL_NAME", "gpt-3.5-turbo"),

		MinChunkSize: envInt("MIN_CHUNK_SIZE", 200),
		MaxChunkSize: envInt("MAX_CHUNK_SIZE", 2000),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		ImportWorkers: envInt("IMPORT_WORKERS", 4),
	}

	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = 32
	}
	if cfg.MaxChunkSize <= 0 {
		cfg.MaxChunkSize = 2000
	}
	if cfg.MinChunkSize < 0 {
		cfg.MinChunkSize = 0
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.ImportWorkers <= 0 {
		cfg.ImportWorkers = 4
	}

	return cfg
}

func (c Config) Validate() error {
	if c.EmbeddingAPIKey == "" {
		return fmt.Errorf("EMBEDDING_API_KEY is required")
	}
	return nil
}

// LLMConfigured reports whether answer generation is available.
func (c Config) LLMConfigured() bool {
	return c.OpenAIAPIBase != "" && c.OpenAIAPIKey != ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
