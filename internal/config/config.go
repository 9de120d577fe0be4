// Package config loads service configuration from compiled defaults and
// COFOUNDER_* environment variables. Credentials for the selected providers
// are validated at load time: a missing key is a configuration error, not a
// transient outage, and aborts startup.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/ideawell/cofounderd/internal/errs"
)

type Config struct {
	Server     ServerConfig
	Embedding  EmbeddingConfig
	Vector     VectorConfig
	Completion CompletionConfig
	Retrieval  RetrievalConfig
	Storage    StorageConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port int
	// APIToken protects management endpoints (memory purge, message listing).
	// When empty, management endpoints are disabled.
	APIToken string
}

type EmbeddingConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	Timeout    time.Duration
	// CacheEntries bounds the in-process embedding cache. Zero disables it.
	CacheEntries int64
}

type VectorConfig struct {
	// Backend selects the vector index implementation: "pinecone" for the
	// hosted index, "embedded" for the in-process chromem store.
	Backend string
	// PineconeHost is the index host URL (https://<index>-<project>.svc...).
	PineconeHost   string
	PineconeAPIKey string
	// Namespace isolates this deployment's records within the index.
	Namespace string
	Timeout   time.Duration
	// DataDir holds the embedded backend's persistence directory.
	// Empty means in-memory only.
	DataDir string
}

type CompletionConfig struct {
	// Provider selects the completion backend: "openai" or "anthropic".
	Provider  string
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

type RetrievalConfig struct {
	TopK     int
	MinScore float64
	// Window is the number of trailing conversation turns used to build the
	// retrieval query.
	Window int
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4600,
		},
		Embedding: EmbeddingConfig{
			BaseURL:      "https://api.openai.com/v1",
			Model:        "text-embedding-ada-002",
			Dimensions:   1536,
			Timeout:      10 * time.Second,
			CacheEntries: 4096,
		},
		Vector: VectorConfig{
			Backend:   "embedded",
			Namespace: "cofounder-memory",
			Timeout:   10 * time.Second,
		},
		Completion: CompletionConfig{
			Provider:  "openai",
			BaseURL:   "https://api.openai.com/v1",
			Model:     "gpt-4o-mini",
			MaxTokens: 500,
			Timeout:   60 * time.Second,
		},
		Retrieval: RetrievalConfig{
			TopK:     5,
			MinScore: 0.7,
			Window:   5,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cofounderd"
	}
	return filepath.Join(home, ".cofounderd")
}

// Load builds the configuration from defaults and environment overrides,
// then validates that the selected providers have credentials.
func Load() (Config, error) {
	return loadWith(os.Getenv)
}

// loadWith is the testable core of Load; getenv abstracts os.Getenv.
func loadWith(getenv func(string) string) (Config, error) {
	cfg := defaults()
	applyEnvOverrides(&cfg, getenv)

	if cfg.Embedding.APIKey == "" {
		return Config{}, goerr.New(
			"missing embedding API key: set COFOUNDER_EMBEDDING_API_KEY",
			goerr.T(errs.TagConfigurationMissing))
	}

	switch cfg.Vector.Backend {
	case "embedded":
	case "pinecone":
		if cfg.Vector.PineconeHost == "" || cfg.Vector.PineconeAPIKey == "" {
			return Config{}, goerr.New(
				"pinecone backend selected but COFOUNDER_PINECONE_HOST or COFOUNDER_PINECONE_API_KEY is unset",
				goerr.T(errs.TagConfigurationMissing))
		}
	default:
		return Config{}, goerr.New("unknown vector backend",
			goerr.V("backend", cfg.Vector.Backend),
			goerr.T(errs.TagConfigurationMissing))
	}

	switch cfg.Completion.Provider {
	case "openai", "anthropic":
		if cfg.Completion.APIKey == "" {
			return Config{}, goerr.New(
				"missing completion API key: set COFOUNDER_COMPLETION_API_KEY",
				goerr.V("provider", cfg.Completion.Provider),
				goerr.T(errs.TagConfigurationMissing))
		}
	default:
		return Config{}, goerr.New("unknown completion provider",
			goerr.V("provider", cfg.Completion.Provider),
			goerr.T(errs.TagConfigurationMissing))
	}

	return cfg, nil
}
