package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Storage     StorageConfig    `toml:"storage"`
	Embedding   EmbeddingConfig  `toml:"embedding"`
	Qdrant      QdrantConfig     `toml:"qdrant"`
	Chunking    ChunkingConfig   `toml:"chunking"`
	Processing  ProcessingConfig `toml:"processing"`
	Logging     LoggingConfig    `toml:"logging"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
}

// EmbeddingConfig configures the OpenAI-compatible embedding endpoint
type EmbeddingConfig struct {
	BaseURL             string        `toml:"base_url" validate:"required,url"`
	APIKey              string        `toml:"api_key"`
	Model               string        `toml:"model" validate:"required"`
	Dimension           int           `toml:"dimension" validate:"gt=0"`      // vector dimensionality, must match the model
	MaxBatchSize        int           `toml:"max_batch_size" validate:"gt=0"` // upstream provider batch cap
	MaxTokensPerRequest int           `toml:"max_tokens_per_request" validate:"gt=0"`
	RateLimit           int           `toml:"rate_limit" validate:"gt=0"` // requests per second
	Timeout             time.Duration `toml:"timeout"`
}

// QdrantConfig configures the vector database connection
type QdrantConfig struct {
	URL       string        `toml:"url" validate:"required,url"`
	APIKey    string        `toml:"api_key"`
	BatchSize int           `toml:"batch_size" validate:"gt=0"` // points per upsert request
	Timeout   time.Duration `toml:"timeout"`
}

// ChunkingConfig controls how normalized text is split for embedding
type ChunkingConfig struct {
	ChunkSize    int `toml:"chunk_size" validate:"gt=0"`
	ChunkOverlap int `toml:"chunk_overlap" validate:"gte=0"`
}

// ProcessingConfig controls the pipeline and the pending-document sweep
type ProcessingConfig struct {
	Enabled    bool   `toml:"enabled"`
	Schedule   string `toml:"schedule"`                    // cron schedule (with seconds) for the pending sweep
	Limit      int    `toml:"limit" validate:"gt=0"`       // max documents per sweep
	MaxRetries int    `toml:"max_retries" validate:"gt=0"` // reprocess budget per document
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability;
// only user-facing settings should be exposed in corpora.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Embedding: EmbeddingConfig{
			BaseURL:             "https://api.openai.com/v1",
			Model:               "text-embedding-3-small",
			Dimension:           1536,
			MaxBatchSize:        100,  // OpenAI embeddings batch cap
			MaxTokensPerRequest: 8000, // soft limit, estimated not exact
			RateLimit:           10,
			Timeout:             30 * time.Second,
		},
		Qdrant: QdrantConfig{
			URL:       "http://localhost:6333",
			BatchSize: 100,
			Timeout:   15 * time.Second,
		},
		Chunking: ChunkingConfig{
			ChunkSize:    1000,
			ChunkOverlap: 100,
		},
		Processing: ProcessingConfig{
			Enabled:    false,           // user must explicitly opt in to the background sweep
			Schedule:   "0 */1 * * * *", // every minute (cron format with seconds)
			Limit:      10,
			MaxRetries: 3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env. Later files override earlier ones.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// Validate checks the configuration for invalid or missing values.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("invalid configuration: chunk_overlap (%d) must be smaller than chunk_size (%d)",
			c.Chunking.ChunkOverlap, c.Chunking.ChunkSize)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("CORPORA_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if path := os.Getenv("CORPORA_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}

	if url := os.Getenv("CORPORA_EMBEDDING_BASE_URL"); url != "" {
		config.Embedding.BaseURL = url
	}
	if key := os.Getenv("CORPORA_EMBEDDING_API_KEY"); key != "" {
		config.Embedding.APIKey = key
	} else if key := os.Getenv("OPENAI_API_KEY"); key != "" && config.Embedding.APIKey == "" {
		config.Embedding.APIKey = key
	}
	if model := os.Getenv("CORPORA_EMBEDDING_MODEL"); model != "" {
		config.Embedding.Model = model
	}
	if dim := os.Getenv("CORPORA_EMBEDDING_DIMENSION"); dim != "" {
		if d, err := strconv.Atoi(dim); err == nil {
			config.Embedding.Dimension = d
		}
	}

	if url := os.Getenv("CORPORA_QDRANT_URL"); url != "" {
		config.Qdrant.URL = url
	}
	if key := os.Getenv("CORPORA_QDRANT_API_KEY"); key != "" {
		config.Qdrant.APIKey = key
	}

	if size := os.Getenv("CORPORA_CHUNK_SIZE"); size != "" {
		if s, err := strconv.Atoi(size); err == nil {
			config.Chunking.ChunkSize = s
		}
	}
	if overlap := os.Getenv("CORPORA_CHUNK_OVERLAP"); overlap != "" {
		if o, err := strconv.Atoi(overlap); err == nil {
			config.Chunking.ChunkOverlap = o
		}
	}

	if level := os.Getenv("CORPORA_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}
