// Package config assembles runtime configuration from environment
// variables. Every knob has a default; an unset environment is a valid
// single-node deployment backed by in-memory storage.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig
	Provider  ProviderConfig
	Council   CouncilConfig
	Retrieval RetrievalConfig
	Cache     CacheConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	Mode         string // "debug" or "release"
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ProviderConfig binds the OpenAI-compatible generation and embedding
// endpoint.
type ProviderConfig struct {
	BaseURL          string
	APIKey           string
	EmbeddingModel   string
	Timeout          time.Duration
	EmbeddingTimeout time.Duration
}

type CouncilConfig struct {
	// RosterPath points at a YAML roster file. Empty selects the built-in
	// default roster over DefaultModel.
	RosterPath        string
	DefaultModel      string
	ReviewConcurrency int
	MaxTokens         int
}

type RetrievalConfig struct {
	// Backend selects the vector store: "memory", "sqlite" or "postgres".
	Backend       string
	SQLitePath    string
	PostgresDSN   string
	ChunkStrategy string // "fixed" or "paragraph"
	ChunkWindow   int
	ChunkOverlap  int
	ChunkMaxSize  int
	TopK          int
	EmbedDelay    time.Duration
}

type CacheConfig struct {
	// Backend selects the embedding cache: "memory", "redis" or "none".
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
	MaxEntries    int
}

type LoggingConfig struct {
	Level string
	JSON  bool
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("PORT", "8080"),
			Mode:         getEnv("GIN_MODE", "release"),
			ReadTimeout:  getDurationEnv("READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDurationEnv("WRITE_TIMEOUT", 120*time.Second),
		},
		Provider: ProviderConfig{
			BaseURL:          getEnv("PROVIDER_BASE_URL", "http://localhost:11434/v1"),
			APIKey:           getEnv("PROVIDER_API_KEY", ""),
			EmbeddingModel:   getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
			Timeout:          getDurationEnv("PROVIDER_TIMEOUT", 60*time.Second),
			EmbeddingTimeout: getDurationEnv("EMBEDDING_TIMEOUT", 30*time.Second),
		},
		Council: CouncilConfig{
			RosterPath:        getEnv("COUNCIL_ROSTER_PATH", ""),
			DefaultModel:      getEnv("COUNCIL_DEFAULT_MODEL", "llama3.1"),
			ReviewConcurrency: getIntEnv("REVIEW_CONCURRENCY", 4),
			MaxTokens:         getIntEnv("COUNCIL_MAX_TOKENS", 0),
		},
		Retrieval: RetrievalConfig{
			Backend:       getEnv("RETRIEVAL_BACKEND", "memory"),
			SQLitePath:    getEnv("RETRIEVAL_SQLITE_PATH", "concilium.db"),
			PostgresDSN:   getEnv("RETRIEVAL_POSTGRES_DSN", ""),
			ChunkStrategy: getEnv("CHUNK_STRATEGY", "fixed"),
			ChunkWindow:   getIntEnv("CHUNK_WINDOW", 500),
			ChunkOverlap:  getIntEnv("CHUNK_OVERLAP", 100),
			ChunkMaxSize:  getIntEnv("CHUNK_MAX_SIZE", 1000),
			TopK:          getIntEnv("SEARCH_TOP_K", 5),
			EmbedDelay:    getDurationEnv("EMBED_DELAY", 0),
		},
		Cache: CacheConfig{
			Backend:       getEnv("CACHE_BACKEND", "memory"),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getIntEnv("REDIS_DB", 0),
			TTL:           getDurationEnv("CACHE_TTL", 24*time.Hour),
			MaxEntries:    getIntEnv("CACHE_MAX_ENTRIES", 10000),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			JSON:  getBoolEnv("LOG_JSON", false),
		},
	}
}

// Validate rejects combinations Load cannot default its way out of.
func (c *Config) Validate() error {
	switch c.Retrieval.Backend {
	case "memory", "sqlite":
	case "postgres":
		if c.Retrieval.PostgresDSN == "" {
			return fmt.Errorf("RETRIEVAL_POSTGRES_DSN is required when RETRIEVAL_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("unknown retrieval backend %q", c.Retrieval.Backend)
	}

	switch c.Cache.Backend {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}

	switch c.Retrieval.ChunkStrategy {
	case "fixed", "paragraph":
	default:
		return fmt.Errorf("unknown chunk strategy %q", c.Retrieval.ChunkStrategy)
	}

	if c.Retrieval.ChunkOverlap >= c.Retrieval.ChunkWindow {
		return fmt.Errorf("chunk overlap %d must be smaller than window %d",
			c.Retrieval.ChunkOverlap, c.Retrieval.ChunkWindow)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
