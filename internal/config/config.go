// Package config provides configuration management for labeld.
// It loads settings from environment variables with the LABELD_ prefix,
// provides sensible defaults for all options, and supports an optional YAML
// config file that overrides both.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration settings for the labeld application.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Security   SecurityConfig   `yaml:"security"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port int    `yaml:"port"` // Server port (default: 8480)
	Host string `yaml:"host"` // Server host (default: 127.0.0.1)

	RateLimitPerSecond float64 `yaml:"rate_limit_per_second"` // Sustained request rate (default: 10)
	RateLimitBurst     int     `yaml:"rate_limit_burst"`      // Maximum burst size (default: 20)
}

// StorageConfig contains database and storage configuration.
type StorageConfig struct {
	Engine       string `yaml:"engine"`        // Storage engine: sqlite, postgres (default: sqlite)
	DataPath     string `yaml:"data_path"`     // Path to the sqlite data directory (default: ./data)
	PostgresDSN  string `yaml:"postgres_dsn"`  // PostgreSQL connection string
	EmbeddingDim int    `yaml:"embedding_dim"` // Fixed embedding dimensionality, used for pgvector columns (default: 768)
}

// EmbeddingConfig contains embedding provider configuration.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"`        // Embedding provider: ollama, openai (default: ollama)
	OllamaURL      string `yaml:"ollama_url"`      // Ollama API URL (default: http://localhost:11434)
	OllamaModel    string `yaml:"ollama_model"`    // Ollama embedding model (default: nomic-embed-text)
	OpenAIAPIKey   string `yaml:"openai_api_key"`  // OpenAI API key
	OpenAIModel    string `yaml:"openai_model"`    // OpenAI embedding model (default: text-embedding-3-small)
	TimeoutSeconds int    `yaml:"timeout_seconds"` // Provider request timeout (default: 20)
}

// ClassifierConfig contains the classification tunables.
type ClassifierConfig struct {
	// SimilarityThreshold is the minimum cosine similarity the best-matching
	// label must reach for automatic assignment (default: 0.5).
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
}

// SecurityConfig contains security and authentication settings.
type SecurityConfig struct {
	SecurityMode string `yaml:"security_mode"` // Security mode: development, production (default: development)
	APIToken     string `yaml:"api_token"`     // API authentication token
}

// LoadConfig loads configuration from environment variables with defaults.
func LoadConfig() (*Config, error) {
	cfg := buildBaseConfig()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFile loads configuration from environment variables and then
// overlays values from a YAML file. File values take precedence over
// environment variables; keys absent from the file keep their env/default
// values.
func LoadConfigFile(path string) (*Config, error) {
	cfg := buildBaseConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Classifier.SimilarityThreshold < 0 || c.Classifier.SimilarityThreshold > 1 {
		return fmt.Errorf("config: similarity threshold %v out of range [0, 1]", c.Classifier.SimilarityThreshold)
	}
	switch c.Storage.Engine {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unsupported storage engine %q", c.Storage.Engine)
	}
	return nil
}

// buildBaseConfig constructs a Config with values from environment variables
// and defaults.
func buildBaseConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               getEnvInt("LABELD_PORT", 8480),
			Host:               getEnv("LABELD_HOST", "127.0.0.1"),
			RateLimitPerSecond: getEnvFloat("LABELD_RATE_LIMIT_PER_SECOND", 10.0),
			RateLimitBurst:     getEnvInt("LABELD_RATE_LIMIT_BURST", 20),
		},
		Storage: StorageConfig{
			Engine:       getEnv("LABELD_STORAGE_ENGINE", "sqlite"),
			DataPath:     getEnv("LABELD_DATA_PATH", "./data"),
			PostgresDSN:  getEnv("LABELD_POSTGRES_DSN", ""),
			EmbeddingDim: getEnvInt("LABELD_EMBEDDING_DIM", 768),
		},
		Embedding: EmbeddingConfig{
			Provider:       getEnv("LABELD_EMBEDDING_PROVIDER", "ollama"),
			OllamaURL:      getEnv("LABELD_OLLAMA_URL", "http://localhost:11434"),
			OllamaModel:    getEnv("LABELD_EMBEDDING_MODEL", "nomic-embed-text"),
			OpenAIAPIKey:   getEnv("LABELD_OPENAI_API_KEY", ""),
			OpenAIModel:    getEnv("LABELD_OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			TimeoutSeconds: getEnvInt("LABELD_EMBEDDING_TIMEOUT_SECONDS", 20),
		},
		Classifier: ClassifierConfig{
			SimilarityThreshold: getEnvFloat("LABELD_SIMILARITY_THRESHOLD", 0.5),
		},
		Security: SecurityConfig{
			SecurityMode: getEnv("LABELD_SECURITY_MODE", "development"),
			APIToken:     getEnv("LABELD_API_TOKEN", ""),
		},
	}
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
// value. An unparseable value falls back to the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default
// value. An unparseable value falls back to the default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
