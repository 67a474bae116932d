package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	// Server
	ServerPort      int   `envconfig:"SERVER_PORT" default:"8080"`
	MaxUploadSizeMB int64 `envconfig:"MAX_UPLOAD_SIZE_MB" default:"50"`

	// Content sources
	DocumentsFolder string `envconfig:"DOCUMENTS_FOLDER" default:"data/documents"`
	UploadDir       string `envconfig:"UPLOAD_DIR" default:"data/uploads"`

	// Vector index
	IndexPath    string `envconfig:"INDEX_PATH" default:"data/index"`
	ChunkSize    int    `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap int    `envconfig:"CHUNK_OVERLAP" default:"200"`
	RetrievalK   int    `envconfig:"RETRIEVAL_K" default:"4"`

	// Scraping
	RendererEnabled       bool `envconfig:"RENDERER_ENABLED" default:"true"`
	RendererTimeoutSecs   int  `envconfig:"RENDERER_TIMEOUT_SECONDS" default:"15"`
	FetchTimeoutSecs      int  `envconfig:"FETCH_TIMEOUT_SECONDS" default:"30"`
	SitemapTimeoutSecs    int  `envconfig:"SITEMAP_TIMEOUT_SECONDS" default:"15"`
	MaxFailedSourcesInRes int  `envconfig:"MAX_FAILED_SOURCES_IN_RESPONSE" default:"20"`

	// Gemini
	GeminiAPIKey    string `envconfig:"GEMINI_API_KEY"`
	EmbeddingModel  string `envconfig:"EMBEDDING_MODEL" default:"gemini-embedding-001"`
	GenerationModel string `envconfig:"GENERATION_MODEL" default:"gemini-2.0-flash"`

	// Observability
	QueryLogPath string `envconfig:"QUERY_LOG_PATH" default:"data/logs/query.log"`
}

func Load() (*Config, error) {
	// Try loading .env from current dir and repo root.
	// Ignore errors, as env vars might be set in the shell.
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	rootEnv := filepath.Join(cwd, "../../.env")
	_ = godotenv.Load(rootEnv)

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DocumentsFolder == "" {
		return fmt.Errorf("%w: DOCUMENTS_FOLDER", ErrMissingRequired)
	}
	if c.IndexPath == "" {
		return fmt.Errorf("%w: INDEX_PATH", ErrMissingRequired)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("invalid CHUNK_SIZE: must be positive")
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("invalid CHUNK_OVERLAP: must be in [0, CHUNK_SIZE)")
	}
	return nil
}
