// Package config loads service settings from the environment and the
// chunking policy from an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/dgallion1/docchunk/internal/chunker"
	"github.com/dgallion1/docchunk/internal/doctree"
)

// LLM provider names.
const (
	ProviderNone   = "none"
	ProviderClaude = "claude"
	ProviderOpenAI = "openai"
)

type Config struct {
	Port string `env:"PORT" envDefault:"8090"`

	// Pathstore connection
	PathstoreURL    string `env:"PATHSTORE_URL" envDefault:"http://localhost:8080"`
	PathstoreAPIKey string `env:"PATHSTORE_API_KEY"`

	// Auth
	APIKey string `env:"DOCCHUNK_API_KEY"`

	// LLM providers
	LLMProvider     string        `env:"LLM_PROVIDER" envDefault:"none"`
	LLMTimeout      time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`
	AnthropicAPIKey string        `env:"ANTHROPIC_API_KEY"`
	AnthropicModel  string        `env:"ANTHROPIC_MODEL" envDefault:"claude-sonnet-4-5-20250929"`
	OpenAIURL       string        `env:"OPENAI_URL" envDefault:"http://localhost:11434/v1"`
	OpenAIAPIKey    string        `env:"OPENAI_API_KEY"`
	OpenAIModel     string        `env:"OPENAI_MODEL" envDefault:"llama3.1"`

	// Worker pool
	WorkerCount        int `env:"WORKER_COUNT" envDefault:"4"`
	MaxQueueSize       int `env:"MAX_QUEUE_SIZE" envDefault:"100"`
	MaxConcurrentStore int `env:"MAX_CONCURRENT_STORE" envDefault:"10"`

	// Upload limits
	MaxUploadBytes int64 `env:"MAX_UPLOAD_BYTES" envDefault:"52428800"` // 50MB

	// Chunking
	ChunkingMethod    string   `env:"CHUNKING_METHOD" envDefault:"structural"`
	ChunkingFallbacks []string `env:"CHUNKING_FALLBACKS" envSeparator:","`
	MinChunkSize      int      `env:"MIN_CHUNK_SIZE" envDefault:"1000"`
	MaxChunkSize      int      `env:"MAX_CHUNK_SIZE" envDefault:"1500"`
	HardCeiling       int      `env:"HARD_CEILING" envDefault:"2000"`
	FooterRatio       float64  `env:"FOOTER_RATIO" envDefault:"0.5"`
	MinQualityScore   float64  `env:"MIN_QUALITY_SCORE" envDefault:"0.25"`
	WindowOverlap     int      `env:"WINDOW_OVERLAP" envDefault:"0"`
	DocumentType      string   `env:"DOCUMENT_TYPE"`
	PolicyFile        string   `env:"POLICY_FILE"`

	// Job state
	JobTTL time.Duration `env:"JOB_TTL" envDefault:"1h"`

	// PDF
	PDFFallbackPdftotext bool `env:"PDF_FALLBACK_PDFTOTEXT" envDefault:"true"`
}

// Load reads an optional .env file, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// loadFrom parses cfg from an explicit environment, for tests.
func loadFrom(environ map[string]string) (Config, error) {
	var cfg Config
	err := env.ParseWithOptions(&cfg, env.Options{Environment: environ})
	return cfg, err
}

// Validate checks the chunking and provider settings shared by every binary.
func (c Config) Validate() error {
	if _, err := doctree.ParseMethod(c.ChunkingMethod); err != nil {
		return fmt.Errorf("CHUNKING_METHOD: %w", err)
	}
	if len(c.ChunkingFallbacks) > 2 {
		return fmt.Errorf("CHUNKING_FALLBACKS: at most 2 methods, got %d", len(c.ChunkingFallbacks))
	}
	for _, m := range c.ChunkingFallbacks {
		if _, err := doctree.ParseMethod(m); err != nil {
			return fmt.Errorf("CHUNKING_FALLBACKS: %w", err)
		}
	}
	if c.MinChunkSize <= 0 || c.MaxChunkSize < c.MinChunkSize || c.HardCeiling < c.MaxChunkSize {
		return fmt.Errorf("chunk sizes must satisfy 0 < MIN_CHUNK_SIZE (%d) <= MAX_CHUNK_SIZE (%d) <= HARD_CEILING (%d)",
			c.MinChunkSize, c.MaxChunkSize, c.HardCeiling)
	}
	if c.FooterRatio <= 0 || c.FooterRatio > 1 {
		return fmt.Errorf("FOOTER_RATIO must be in (0, 1], got %v", c.FooterRatio)
	}
	switch c.LLMProvider {
	case ProviderNone, ProviderOpenAI:
	case ProviderClaude:
		if c.AnthropicAPIKey == "" {
			return errors.New("ANTHROPIC_API_KEY is required when LLM_PROVIDER=claude")
		}
	default:
		return fmt.Errorf("LLM_PROVIDER must be one of none, claude, openai; got %q", c.LLMProvider)
	}
	return nil
}

// ValidateServer adds the checks only the HTTP service needs.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.PathstoreAPIKey == "" {
		return errors.New("PATHSTORE_API_KEY is required")
	}
	if c.APIKey == "" {
		return errors.New("DOCCHUNK_API_KEY is required")
	}
	if c.WorkerCount <= 0 || c.MaxQueueSize <= 0 {
		return errors.New("WORKER_COUNT and MAX_QUEUE_SIZE must be positive")
	}
	return nil
}

// Method returns the primary chunking method. Call after Validate.
func (c Config) Method() doctree.Method {
	m, _ := doctree.ParseMethod(c.ChunkingMethod)
	return m
}

// Fallbacks returns the configured secondary and tertiary methods.
func (c Config) Fallbacks() []doctree.Method {
	var out []doctree.Method
	for _, s := range c.ChunkingFallbacks {
		if m, err := doctree.ParseMethod(s); err == nil {
			out = append(out, m)
		}
	}
	return out
}

// ChunkerConfig returns the size and quality settings for the chunk engine.
func (c Config) ChunkerConfig() chunker.Config {
	cfg := chunker.DefaultConfig()
	cfg.MinChunkSize = c.MinChunkSize
	cfg.MaxChunkSize = c.MaxChunkSize
	cfg.HardCeiling = c.HardCeiling
	cfg.MaxFooterRatio = c.FooterRatio
	cfg.MinQualityScore = c.MinQualityScore
	cfg.WindowOverlap = c.WindowOverlap
	return cfg
}
