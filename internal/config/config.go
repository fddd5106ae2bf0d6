package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port   int
	DBPath string
	APIKey string
	// Remote tier
	OpenAIAPIKey         string
	OpenAIBaseURL        string
	OpenAIEmbeddingModel string
	OpenAIChatModel      string
	// Local tier
	OllamaBaseURL       string
	LocalEmbeddingModel string
	LocalChatModel      string
	EmbedTimeout        time.Duration
	LocalEmbedTimeout   time.Duration
	GenerateTimeout     time.Duration
	// Retrieval and linking
	LinkThreshold float64
	DefaultTopK   int
	// Embedding cache
	EmbedCacheEnabled bool
	EmbedCacheItems   int64
	// HTTP rate limit, disabled when RateLimitRPS <= 0
	RateLimitRPS   float64
	RateLimitBurst int
	PersonaPath    string
	LogLevel       string
	LogFile        string
	// MCP adapter and CLI
	ServerURL string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:                 envInt("PORT", 8741),
		DBPath:               envStr("RECALL_DB_PATH", "/data/recall.db"),
		APIKey:               envStr("API_KEY", ""),
		OpenAIAPIKey:         envStr("OPENAI_API_KEY", ""),
		OpenAIBaseURL:        envStr("OPENAI_BASE_URL", ""),
		OpenAIEmbeddingModel: envStr("OPENAI_EMBEDDING_MODEL", "text-embedding-ada-002"),
		OpenAIChatModel:      envStr("OPENAI_CHAT_MODEL", "gpt-4.1-nano"),
		OllamaBaseURL:        envStr("OLLAMA_BASE_URL", "http://localhost:11434"),
		LocalEmbeddingModel:  envStr("LOCAL_EMBEDDING_MODEL", "all-minilm"),
		LocalChatModel:       envStr("LOCAL_CHAT_MODEL", "qwen2.5:1.5b"),
		EmbedTimeout:         envDuration("EMBED_TIMEOUT", 10*time.Second),
		LocalEmbedTimeout:    envDuration("LOCAL_EMBED_TIMEOUT", 30*time.Second),
		GenerateTimeout:      envDuration("GENERATE_TIMEOUT", 60*time.Second),
		LinkThreshold:        envFloat("LINK_THRESHOLD", 0.75),
		DefaultTopK:          envInt("DEFAULT_TOP_K", 3),
		EmbedCacheEnabled:    envBool("EMBED_CACHE_ENABLED", true),
		EmbedCacheItems:      int64(envInt("EMBED_CACHE_ITEMS", 10000)),
		RateLimitRPS:         envFloat("RATE_LIMIT_RPS", 0),
		RateLimitBurst:       envInt("RATE_LIMIT_BURST", 20),
		PersonaPath:          envStr("PERSONA_PATH", ""),
		LogLevel:             envStr("LOG_LEVEL", "info"),
		LogFile:              envStr("LOG_FILE", ""),
		ServerURL:            envStr("RECALL_SERVER_URL", "http://localhost:8741"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// RemoteEnabled reports whether the remote tier has credentials.
func (c *Config) RemoteEnabled() bool {
	return c.OpenAIAPIKey != ""
}

// RequestBudget is the longest a single request may legitimately run. The
// webhook is the slowest path: it may embed twice, once for retrieval and once
// for the interaction memory, each time trying the remote tier before the
// local one, and it generates once in between.
func (c *Config) RequestBudget() time.Duration {
	embed := c.EmbedTimeout + c.LocalEmbedTimeout
	return 2*embed + c.GenerateTimeout + 15*time.Second
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.DBPath == "" {
		return fmt.Errorf("RECALL_DB_PATH must not be empty")
	}
	if c.OllamaBaseURL == "" {
		return fmt.Errorf("OLLAMA_BASE_URL must not be empty")
	}
	if c.LinkThreshold <= 0 || c.LinkThreshold > 1 {
		return fmt.Errorf("LINK_THRESHOLD must be in (0, 1], got %f", c.LinkThreshold)
	}
	if c.DefaultTopK < 1 {
		return fmt.Errorf("DEFAULT_TOP_K must be positive, got %d", c.DefaultTopK)
	}
	if c.EmbedTimeout <= 0 || c.LocalEmbedTimeout <= 0 || c.GenerateTimeout <= 0 {
		return fmt.Errorf("EMBED_TIMEOUT, LOCAL_EMBED_TIMEOUT and GENERATE_TIMEOUT must be positive")
	}
	if c.EmbedCacheEnabled && c.EmbedCacheItems < 1 {
		return fmt.Errorf("EMBED_CACHE_ITEMS must be positive, got %d", c.EmbedCacheItems)
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		return fmt.Errorf("RATE_LIMIT_BURST must be positive when rate limiting, got %d", c.RateLimitBurst)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

// envDuration accepts Go durations ("10s") or a bare number of seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
