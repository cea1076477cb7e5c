// Package config loads and validates the application configuration from
// environment variables, with an optional YAML file override.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full application configuration.
type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	Vector   VectorConfig   `yaml:"vector"`
	Session  SessionConfig  `yaml:"session"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	LogLevel string         `yaml:"log_level" validate:"oneof=debug info warn error"`
}

// LLMConfig points at an OpenAI-compatible backend. The defaults target a
// local Ollama daemon, which exposes the OpenAI surface under /v1 and
// accepts any non-empty API key.
type LLMConfig struct {
	BaseURL        string `yaml:"base_url" validate:"required,url"`
	APIKey         string `yaml:"api_key" validate:"required"`
	Model          string `yaml:"model" validate:"required"`
	VisionModel    string `yaml:"vision_model" validate:"required"`
	EmbeddingModel string `yaml:"embedding_model" validate:"required"`
	MaxTokens      int    `yaml:"max_tokens" validate:"gte=0"`
}

// VectorConfig controls the embedded vector store.
type VectorConfig struct {
	// Path is where the store persists. Empty means in-memory only.
	Path string `yaml:"path"`

	// RetrievalK is how many documents a knowledge search returns.
	RetrievalK int `yaml:"retrieval_k" validate:"gt=0"`
}

// SessionConfig controls conversation persistence.
type SessionConfig struct {
	// DBPath is the SQLite database file. Empty disables persistence.
	DBPath string `yaml:"db_path"`
}

// PipelineConfig tunes the orchestration loop.
type PipelineConfig struct {
	// MaxRetries is the draft-audit retry ceiling.
	MaxRetries int `yaml:"max_retries" validate:"gt=0"`
}

// Load reads configuration from the environment (a .env file is loaded
// first if present), applies defaults, then overlays the YAML file at
// path when it is non-empty, and validates the result.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		LLM: LLMConfig{
			BaseURL:        envOr("LLM_BASE_URL", "http://localhost:11434/v1"),
			APIKey:         envOr("LLM_API_KEY", "ollama"),
			Model:          envOr("LLM_MODEL", "llama3.2-vision"),
			VisionModel:    envOr("VISION_MODEL_NAME", "llama3.2-vision"),
			EmbeddingModel: envOr("EMBEDDING_MODEL_NAME", "nomic-embed-text"),
			MaxTokens:      envInt("LLM_MAX_TOKENS", 0),
		},
		Vector: VectorConfig{
			Path:       envOr("VECTOR_DB_PATH", "./data/medgraph.db"),
			RetrievalK: envInt("RETRIEVAL_K", 3),
		},
		Session: SessionConfig{
			DBPath: envOr("SESSION_DB_PATH", "./data/sessions.db"),
		},
		Pipeline: PipelineConfig{
			MaxRetries: envInt("MAX_RETRIES", 3),
		},
		LogLevel: envOr("LOG_LEVEL", "info"),
	}

	if path != "" {
		if err := overlayYAML(cfg, path); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}
	return cfg, nil
}

func overlayYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
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
