package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kInt64
	kFloat
	kDuration
)

type keySpec struct {
	env   string
	typ   keyType
	apply func(cfg *Config, v any)
}

var specs = []keySpec{
	{
		env: "COFOUNDER_SERVER_PORT", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
	},
	{
		env: "COFOUNDER_API_TOKEN", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Server.APIToken = v.(string) },
	},
	{
		env: "COFOUNDER_EMBEDDING_BASE_URL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Embedding.BaseURL = v.(string) },
	},
	{
		env: "COFOUNDER_EMBEDDING_API_KEY", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Embedding.APIKey = v.(string) },
	},
	{
		env: "COFOUNDER_EMBEDDING_MODEL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Embedding.Model = v.(string) },
	},
	{
		env: "COFOUNDER_EMBEDDING_DIMENSIONS", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Embedding.Dimensions = v.(int) },
	},
	{
		env: "COFOUNDER_EMBEDDING_TIMEOUT", typ: kDuration,
		apply: func(cfg *Config, v any) { cfg.Embedding.Timeout = v.(time.Duration) },
	},
	{
		env: "COFOUNDER_EMBEDDING_CACHE_ENTRIES", typ: kInt64,
		apply: func(cfg *Config, v any) { cfg.Embedding.CacheEntries = v.(int64) },
	},
	{
		env: "COFOUNDER_VECTOR_BACKEND", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Vector.Backend = v.(string) },
	},
	{
		env: "COFOUNDER_PINECONE_HOST", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Vector.PineconeHost = v.(string) },
	},
	{
		env: "COFOUNDER_PINECONE_API_KEY", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Vector.PineconeAPIKey = v.(string) },
	},
	{
		env: "COFOUNDER_VECTOR_NAMESPACE", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Vector.Namespace = v.(string) },
	},
	{
		env: "COFOUNDER_VECTOR_TIMEOUT", typ: kDuration,
		apply: func(cfg *Config, v any) { cfg.Vector.Timeout = v.(time.Duration) },
	},
	{
		env: "COFOUNDER_VECTOR_DATA_DIR", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Vector.DataDir = v.(string) },
	},
	{
		env: "COFOUNDER_COMPLETION_PROVIDER", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Completion.Provider = v.(string) },
	},
	{
		env: "COFOUNDER_COMPLETION_BASE_URL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Completion.BaseURL = v.(string) },
	},
	{
		env: "COFOUNDER_COMPLETION_API_KEY", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Completion.APIKey = v.(string) },
	},
	{
		env: "COFOUNDER_COMPLETION_MODEL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Completion.Model = v.(string) },
	},
	{
		env: "COFOUNDER_COMPLETION_MAX_TOKENS", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Completion.MaxTokens = v.(int) },
	},
	{
		env: "COFOUNDER_COMPLETION_TIMEOUT", typ: kDuration,
		apply: func(cfg *Config, v any) { cfg.Completion.Timeout = v.(time.Duration) },
	},
	{
		env: "COFOUNDER_RETRIEVAL_TOP_K", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Retrieval.TopK = v.(int) },
	},
	{
		env: "COFOUNDER_RETRIEVAL_MIN_SCORE", typ: kFloat,
		apply: func(cfg *Config, v any) { cfg.Retrieval.MinScore = v.(float64) },
	},
	{
		env: "COFOUNDER_RETRIEVAL_WINDOW", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Retrieval.Window = v.(int) },
	},
	{
		env: "COFOUNDER_STORAGE_DATA_DIR", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
	},
	{
		env: "COFOUNDER_LOG_LEVEL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
	},
}

func applyEnvOverrides(cfg *Config, getenv func(string) string) {
	for _, s := range specs {
		raw := getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kInt64:
			if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse float from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kDuration:
			if d, err := time.ParseDuration(raw); err == nil {
				s.apply(cfg, d)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse duration from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
