// ABOUTME: Centralized configuration for the intake engine
// ABOUTME: Loads from environment variables with validation and defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
)

// Backend names for checkpoints and vectors
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
	BackendQdrant = "qdrant"
)

// Config holds all configuration for the intake engine
type Config struct {
	// OpenAI settings
	OpenAIKey      string
	OpenAIBaseURL  string
	ChatModel      string
	EmbeddingModel string
	Timeout        time.Duration
	MaxRetries     int
	RetryDelay     time.Duration

	// Storage settings
	DataDir           string
	DBPath            string
	DocsDir           string
	CheckpointBackend string
	RedisURL          string
	SessionTTL        time.Duration
	JanitorSchedule   string

	// Retrieval settings
	VectorBackend      string
	QdrantURL          string
	QdrantAPIKey       string
	QdrantCollection   string
	VectorDimension    int
	RetrievalTopK      int
	RetrievalOverfetch int

	// Dialogue settings
	TurnTimeout  time.Duration
	KeywordsFile string

	// Logging
	LogLevel  string
	LogFormat string
}

// DefaultDataDir returns $XDG_DATA_HOME/intake
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		dataHome = xdg.DataHome
	}
	return filepath.Join(dataHome, "intake")
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := fromEnv()
	return cfg, cfg.Validate()
}

// LoadStorageOnly reads configuration for commands that never call the model
// (index stats, session inspection). The API key is not required.
func LoadStorageOnly() (*Config, error) {
	cfg := fromEnv()
	return cfg, cfg.validateSettings()
}

func fromEnv() *Config {
	dataDir := getEnv("INTAKE_DATA_DIR", DefaultDataDir())

	cfg := &Config{
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:  os.Getenv("OPENAI_BASE_URL"),
		ChatModel:      getEnv("INTAKE_CHAT_MODEL", "gpt-4o-mini"),
		EmbeddingModel: getEnv("INTAKE_EMBEDDING_MODEL", "text-embedding-3-small"),
		Timeout:        getEnvDuration("OPENAI_TIMEOUT", 30*time.Second),
		MaxRetries:     getEnvInt("OPENAI_MAX_RETRIES", 2),
		RetryDelay:     getEnvDuration("OPENAI_RETRY_DELAY", time.Second),

		DataDir:           dataDir,
		DBPath:            getEnv("INTAKE_DB_PATH", filepath.Join(dataDir, "intake.db")),
		DocsDir:           getEnv("INTAKE_DOCS_DIR", filepath.Join(dataDir, "docs")),
		CheckpointBackend: getEnv("INTAKE_CHECKPOINT_BACKEND", BackendSQLite),
		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379/0"),
		SessionTTL:        getEnvDuration("INTAKE_SESSION_TTL", 24*time.Hour),
		JanitorSchedule:   getEnv("INTAKE_JANITOR_SCHEDULE", "@every 10m"),

		VectorBackend:      getEnv("INTAKE_VECTOR_BACKEND", BackendSQLite),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6334"),
		QdrantAPIKey:       os.Getenv("QDRANT_API_KEY"),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "first_aid"),
		VectorDimension:    getEnvInt("VECTOR_DIMENSION", 1536),
		RetrievalTopK:      getEnvInt("INTAKE_RETRIEVAL_TOP_K", 3),
		RetrievalOverfetch: getEnvInt("INTAKE_RETRIEVAL_OVERFETCH", 2),

		TurnTimeout:  getEnvDuration("INTAKE_TURN_TIMEOUT", 45*time.Second),
		KeywordsFile: os.Getenv("INTAKE_KEYWORDS_FILE"),

		LogLevel:  getEnv("INTAKE_LOG_LEVEL", "info"),
		LogFormat: getEnv("INTAKE_LOG_FORMAT", "text"),
	}

	return cfg
}

// Validate checks ranges and required credentials. A missing API key is fatal at startup.
func (c *Config) Validate() error {
	if c.OpenAIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	return c.validateSettings()
}

func (c *Config) validateSettings() error {
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("OPENAI_MAX_RETRIES must be 0-10, got %d", c.MaxRetries)
	}
	switch c.CheckpointBackend {
	case BackendSQLite, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("INTAKE_CHECKPOINT_BACKEND must be sqlite, redis or memory, got %q", c.CheckpointBackend)
	}
	switch c.VectorBackend {
	case BackendSQLite, BackendQdrant:
	default:
		return fmt.Errorf("INTAKE_VECTOR_BACKEND must be sqlite or qdrant, got %q", c.VectorBackend)
	}
	if c.RetrievalTopK <= 0 {
		return fmt.Errorf("INTAKE_RETRIEVAL_TOP_K must be positive, got %d", c.RetrievalTopK)
	}
	if c.RetrievalOverfetch < 1 {
		return fmt.Errorf("INTAKE_RETRIEVAL_OVERFETCH must be at least 1, got %d", c.RetrievalOverfetch)
	}
	if c.VectorDimension <= 0 {
		return fmt.Errorf("VECTOR_DIMENSION must be positive, got %d", c.VectorDimension)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("INTAKE_SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
