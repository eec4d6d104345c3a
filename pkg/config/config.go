// Package config loads the service configuration from a YAML file with
// environment-variable overrides. A missing file yields usable defaults so
// the stack runs locally with zero setup.
package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Server configures the HTTP listener.
type Server struct {
	Addr                string `yaml:"addr"`
	CORSOrigin          string `yaml:"cors_origin"`
	ShutdownTimeoutSecs int    `yaml:"shutdown_timeout_secs"`
}

// Qdrant configures the vector store connection.
type Qdrant struct {
	Addr       string `yaml:"addr"`
	Collection string `yaml:"collection"`
	Dims       int    `yaml:"dims"`
}

// Embedder configures the embedding service client. The API key is read from
// the environment variable named by APIKeyEnv, never from the file.
type Embedder struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// LLM configures the chat-completion client.
type LLM struct {
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	TimeoutSecs int     `yaml:"timeout_secs"`
}

// RAG configures retrieval and validation knobs.
type RAG struct {
	MatchThreshold   float32 `yaml:"match_threshold"`
	MatchCount       int     `yaml:"match_count"`
	MinQuestionRunes int     `yaml:"min_question_runes"`
}

// NATS configures optional query telemetry. An empty URL disables it.
type NATS struct {
	URL string `yaml:"url"`
}

// Config is the root configuration for all binaries.
type Config struct {
	Server   Server   `yaml:"server"`
	Qdrant   Qdrant   `yaml:"qdrant"`
	Embedder Embedder `yaml:"embedder"`
	LLM      LLM      `yaml:"llm"`
	RAG      RAG      `yaml:"rag"`
	NATS     NATS     `yaml:"nats"`
}

// Load reads path, fills defaults, and applies environment overrides.
// A nonexistent file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	applyEnv(cfg)
	return cfg, nil
}

// EmbedAPIKey resolves the embedder API key from the environment.
func (c *Config) EmbedAPIKey() string { return os.Getenv(c.Embedder.APIKeyEnv) }

// LLMAPIKey resolves the completion API key from the environment.
func (c *Config) LLMAPIKey() string { return os.Getenv(c.LLM.APIKeyEnv) }

// ShutdownTimeout returns the graceful-shutdown window as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSecs) * time.Second
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.CORSOrigin == "" {
		cfg.Server.CORSOrigin = "*"
	}
	if cfg.Server.ShutdownTimeoutSecs == 0 {
		cfg.Server.ShutdownTimeoutSecs = 10
	}
	if cfg.Qdrant.Addr == "" {
		cfg.Qdrant.Addr = "localhost:6334"
	}
	if cfg.Qdrant.Collection == "" {
		cfg.Qdrant.Collection = "forum_qa"
	}
	if cfg.Qdrant.Dims == 0 {
		cfg.Qdrant.Dims = 384
	}
	if cfg.Embedder.BaseURL == "" {
		cfg.Embedder.BaseURL = "http://localhost:8081"
	}
	if cfg.Embedder.APIKeyEnv == "" {
		cfg.Embedder.APIKeyEnv = "EMBED_API_KEY"
	}
	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = "all-MiniLM-L6-v2"
	}
	if cfg.Embedder.TimeoutSecs == 0 {
		cfg.Embedder.TimeoutSecs = 15
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.deepinfra.com/v1/openai"
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = "LLM_API_KEY"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "deepseek-v3"
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 512
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.7
	}
	if cfg.LLM.TimeoutSecs == 0 {
		cfg.LLM.TimeoutSecs = 60
	}
	if cfg.RAG.MatchThreshold == 0 {
		cfg.RAG.MatchThreshold = 0.5
	}
	if cfg.RAG.MatchCount == 0 {
		cfg.RAG.MatchCount = 3
	}
	if cfg.RAG.MinQuestionRunes == 0 {
		cfg.RAG.MinQuestionRunes = 6
	}
}

func applyEnv(cfg *Config) {
	override(&cfg.Server.Addr, "MEDISENSE_ADDR")
	override(&cfg.Server.CORSOrigin, "MEDISENSE_CORS_ORIGIN")
	override(&cfg.Qdrant.Addr, "QDRANT_ADDR")
	override(&cfg.Qdrant.Collection, "QDRANT_COLLECTION")
	override(&cfg.Embedder.BaseURL, "EMBED_BASE_URL")
	override(&cfg.Embedder.Model, "EMBED_MODEL")
	override(&cfg.LLM.BaseURL, "LLM_BASE_URL")
	override(&cfg.LLM.Model, "LLM_MODEL")
	override(&cfg.NATS.URL, "NATS_URL")
}

func override(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}
